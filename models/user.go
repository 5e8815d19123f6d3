package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the storefront account record. Auth context normally arrives via
// gateway headers; the row is the source of truth for rank and admin status.
type User struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Username     string `gorm:"index;not null" json:"username"`
	PasswordHash string `gorm:"not null" json:"-"`

	IsAdmin     bool   `gorm:"default:false" json:"is_admin"`
	AccountRank int    `gorm:"default:0" json:"account_rank"` // 1 = premium
	MainShard   string `json:"main_shard,omitempty"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// UserPoints is the review/moderation points registry. Deliberately a separate
// ledger from CashbackBalance: points are not currency.
type UserPoints struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID         string    `gorm:"uniqueIndex;not null" json:"user_id"`
	CurrentPoints  int64     `gorm:"default:0" json:"current_points"`
	LifetimePoints int64     `gorm:"default:0" json:"lifetime_points"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
