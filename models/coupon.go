package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CouponTypePercentage = "percentage"
	CouponTypeFixed      = "fixed"
)

type Coupon struct {
	ID            string          `gorm:"primaryKey;type:uuid" json:"id"`
	Code          string          `gorm:"uniqueIndex;not null" json:"code"`
	DiscountType  string          `gorm:"not null" json:"discount_type"`
	DiscountValue decimal.Decimal `gorm:"type:numeric(12,2)" json:"discount_value"`

	MinimumOrderAmount *decimal.Decimal `gorm:"type:numeric(12,2)" json:"minimum_order_amount,omitempty"`
	UsageLimit         *int             `json:"usage_limit,omitempty"`
	UsageCount         int              `gorm:"default:0" json:"usage_count"`

	StartsAt  *time.Time `json:"starts_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	IsActive  bool       `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
