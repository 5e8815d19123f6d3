package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cashback transaction types. Amounts are always positive; the type implies
// direction (earned vs spent).
const (
	TxnPurchaseCashback = "purchase_cashback"
	TxnReferralBonus    = "referral_bonus"
	TxnUsed             = "used"
	TxnRefund           = "refund"
	TxnExpired          = "expired"
	TxnAdjustment       = "adjustment"
)

// CashbackBalance is the single mutable aggregate a user's cashback
// transactions roll up into. Balance never goes below zero; LifetimeEarned
// only grows. Created lazily on the first balance-affecting event.
type CashbackBalance struct {
	ID             string          `gorm:"primaryKey;type:uuid" json:"id"`
	UserID         string          `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance        decimal.Decimal `gorm:"type:numeric(12,2)" json:"balance"`
	LifetimeEarned decimal.Decimal `gorm:"type:numeric(12,2)" json:"lifetime_earned"`
	CreatedAt      time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// CashbackTransaction is the append-only ledger entry. Rows are never updated
// or deleted; expiry is recorded as a new row pointing back at the source.
type CashbackTransaction struct {
	ID      string  `gorm:"primaryKey;type:uuid" json:"id"`
	UserID  string  `gorm:"index;not null" json:"user_id"`
	OrderID *string `gorm:"index" json:"order_id,omitempty"`

	Type        string          `gorm:"index;not null" json:"type"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2)" json:"amount"`
	Description string          `json:"description"`

	ReferralCodeUsed *string `json:"referral_code_used,omitempty"`
	// For expired rows: the earned transaction this expiry consumed.
	SourceTransactionID *string `gorm:"index" json:"source_transaction_id,omitempty"`

	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
}
