package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ReferralRewardPending = "pending"
	ReferralRewardEarned  = "earned"
)

// ReferralCode is a user's shareable 6-character code.
type ReferralCode struct {
	ID             string          `gorm:"primaryKey;type:uuid" json:"id"`
	UserID         string          `gorm:"uniqueIndex;not null" json:"user_id"`
	Code           string          `gorm:"uniqueIndex;not null" json:"referral_code"`
	IsActive       bool            `gorm:"default:true" json:"is_active"`
	TotalReferrals int             `gorm:"default:0" json:"total_referrals"`
	TotalEarnings  decimal.Decimal `gorm:"type:numeric(12,2)" json:"total_earnings"`
	CreatedAt      time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// Referral links a referred user to their referrer. The unique index on
// ReferredID enforces first-referrer-wins at the database, and
// FirstPurchaseCompleted flips exactly once when settlement pays the bonus.
type Referral struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	ReferrerID   string `gorm:"index;not null" json:"referrer_id"`
	ReferredID   string `gorm:"uniqueIndex;not null" json:"referred_id"`
	ReferralCode string `gorm:"not null" json:"referral_code"`

	RewardStatus           string          `gorm:"default:pending" json:"reward_status"`
	RewardAmount           decimal.Decimal `gorm:"type:numeric(12,2)" json:"reward_amount"`
	FirstPurchaseCompleted bool            `gorm:"default:false" json:"first_purchase_completed"`
	FirstOrderID           *string         `gorm:"index" json:"first_order_id,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
