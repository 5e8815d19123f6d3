package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order lifecycle statuses.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
	OrderStatusRefunded  = "refunded"
)

// Payment statuses. Settlement transitions pending -> completed exactly once.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

type Order struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	OrderNumber string `gorm:"uniqueIndex;not null" json:"order_number"`
	UserID      string `gorm:"index;not null" json:"user_id"`

	Status        string `gorm:"default:pending" json:"status"`
	PaymentStatus string `gorm:"default:pending" json:"payment_status"`

	Subtotal        decimal.Decimal `gorm:"type:numeric(12,2)" json:"subtotal"`
	DiscountAmount  decimal.Decimal `gorm:"type:numeric(12,2)" json:"discount_amount"`
	PremiumDiscount decimal.Decimal `gorm:"type:numeric(12,2)" json:"premium_discount"`
	CashbackUsed    decimal.Decimal `gorm:"type:numeric(12,2)" json:"cashback_used"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(12,2)" json:"total_amount"`
	Currency        string          `gorm:"default:USD" json:"currency"`

	PaymentMethod string `json:"payment_method"`
	// PayPal order id set at checkout; used to match the capture callback.
	PaymentProviderID *string `gorm:"index" json:"payment_provider_id,omitempty"`
	// Provider capture/IPN transaction id. The unique index is the second
	// idempotency guard behind the conditional mark-paid update.
	PaymentTransactionID *string `gorm:"uniqueIndex" json:"payment_transaction_id,omitempty"`

	DeliveryShard     string  `json:"delivery_shard"`
	DeliveryCharacter *string `json:"delivery_character,omitempty"`
	CouponCode        *string `json:"coupon_code,omitempty"`
	AdminNotes        string  `json:"admin_notes,omitempty"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type OrderItem struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	OrderID string `gorm:"index;not null" json:"order_id"`

	ProductID    string          `gorm:"index;not null" json:"product_id"`
	ProductName  string          `gorm:"not null" json:"product_name"`
	ProductSlug  string          `json:"product_slug,omitempty"`
	ProductImage string          `json:"product_image,omitempty"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:numeric(12,2)" json:"unit_price"`
	TotalPrice   decimal.Decimal `gorm:"type:numeric(12,2)" json:"total_price"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
