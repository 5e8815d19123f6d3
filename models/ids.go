package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IDs are assigned in BeforeCreate hooks rather than by a database default,
// so they work the same on Postgres and the sqlite driver used in tests.

func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (m *User) BeforeCreate(*gorm.DB) error                { assignID(&m.ID); return nil }
func (m *UserPoints) BeforeCreate(*gorm.DB) error          { assignID(&m.ID); return nil }
func (m *Product) BeforeCreate(*gorm.DB) error             { assignID(&m.ID); return nil }
func (m *Order) BeforeCreate(*gorm.DB) error               { assignID(&m.ID); return nil }
func (m *OrderItem) BeforeCreate(*gorm.DB) error           { assignID(&m.ID); return nil }
func (m *CashbackBalance) BeforeCreate(*gorm.DB) error     { assignID(&m.ID); return nil }
func (m *CashbackTransaction) BeforeCreate(*gorm.DB) error { assignID(&m.ID); return nil }
func (m *ReferralCode) BeforeCreate(*gorm.DB) error        { assignID(&m.ID); return nil }
func (m *Referral) BeforeCreate(*gorm.DB) error            { assignID(&m.ID); return nil }
func (m *Coupon) BeforeCreate(*gorm.DB) error              { assignID(&m.ID); return nil }
func (m *ProductReview) BeforeCreate(*gorm.DB) error       { assignID(&m.ID); return nil }
func (m *CategoryReview) BeforeCreate(*gorm.DB) error      { assignID(&m.ID); return nil }
func (m *ImageSubmission) BeforeCreate(*gorm.DB) error     { assignID(&m.ID); return nil }
func (m *SiteSetting) BeforeCreate(*gorm.DB) error         { assignID(&m.ID); return nil }
func (m *IPNLog) BeforeCreate(*gorm.DB) error              { assignID(&m.ID); return nil }
