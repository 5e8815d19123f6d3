package models

import "time"

// SiteSetting is a key/value row for business-tunable configuration
// (cashback percentages, PayPal receiver email, expiry windows).
type SiteSetting struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	SettingKey   string    `gorm:"uniqueIndex;not null" json:"setting_key"`
	SettingValue string    `gorm:"not null" json:"setting_value"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Setting keys used across services.
const (
	SettingCustomerCashbackPct = "customer_cashback_percentage"
	SettingReferrerBonusPct    = "referrer_bonus_percentage"
	SettingCashbackExpiryDays  = "cashback_expiry_days"
	SettingPremiumDiscountPct  = "premium_discount_percentage"
	SettingPayPalEmail         = "paypal_email"
	SettingReviewPoints        = "review_points"
	SettingCategoryReviewPts   = "category_review_points"
	SettingImageSubmissionPts  = "image_submission_points"
)
