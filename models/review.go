package models

import "time"

// Moderation statuses shared by reviews and image submissions.
const (
	ModerationPending  = "pending"
	ModerationApproved = "approved"
	ModerationRejected = "rejected"
)

type ProductReview struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string `gorm:"index;not null" json:"user_id"`
	ProductID string `gorm:"index;not null" json:"product_id"`
	Rating    *int   `json:"rating,omitempty"`
	Title     string `json:"title,omitempty"`
	Content   string `json:"content"`
	Status    string `gorm:"index;default:pending" json:"status"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

type CategoryReview struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID   string `gorm:"index;not null" json:"user_id"`
	Category string `gorm:"index;not null" json:"category"`
	Rating   *int   `json:"rating,omitempty"`
	Content  string `json:"content"`
	Status   string `gorm:"index;default:pending" json:"status"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// ImageSubmission is user-submitted screenshot content awaiting moderation.
type ImageSubmission struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID   string `gorm:"index;not null" json:"user_id"`
	ImageURL string `gorm:"not null" json:"image_url"`
	Caption  string `json:"caption,omitempty"`
	Status   string `gorm:"index;default:pending" json:"status"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
