package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"

	"uo-storefront/models"

	"gorm.io/gorm"
)

const (
	referralCodeChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referralCodeLength = 6
	codeGenMaxAttempts = 10
)

// ReferralService manages referral codes and the one-time referrer/referred
// relationship that settlement consults for first-purchase bonuses.
type ReferralService struct {
	DB *gorm.DB
}

func NewReferralService(db *gorm.DB) *ReferralService {
	return &ReferralService{DB: db}
}

func randomCode() (string, error) {
	var b strings.Builder
	for i := 0; i < referralCodeLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referralCodeChars))))
		if err != nil {
			return "", err
		}
		b.WriteByte(referralCodeChars[n.Int64()])
	}
	return b.String(), nil
}

// GetOrCreateCode returns the user's referral code, generating one on first
// use. Collisions are retried; the unique index on code is the final word.
func (s *ReferralService) GetOrCreateCode(userID string) (*models.ReferralCode, error) {
	var existing models.ReferralCode
	err := s.DB.Where("user_id = ?", userID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	for attempt := 0; attempt < codeGenMaxAttempts; attempt++ {
		code, err := randomCode()
		if err != nil {
			return nil, err
		}

		var count int64
		if err := s.DB.Model(&models.ReferralCode{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			continue
		}

		rc := models.ReferralCode{UserID: userID, Code: code, IsActive: true}
		if err := s.DB.Create(&rc).Error; err != nil {
			// Lost a race on the unique index, try a fresh code.
			continue
		}
		return &rc, nil
	}
	return nil, fmt.Errorf("could not generate a unique referral code for user %s", userID)
}

// ValidateCode resolves an active referral code to its owner.
func (s *ReferralService) ValidateCode(code string) (*models.ReferralCode, error) {
	var rc models.ReferralCode
	err := s.DB.Where("code = ? AND is_active = ?", strings.ToUpper(strings.TrimSpace(code)), true).First(&rc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidReferralCode
	}
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

// RecordReferral links newUserID to the owner of code. First-referrer-wins:
// the unique index on referred_id rejects a second relationship even when two
// signups race past the existence check.
func (s *ReferralService) RecordReferral(code, newUserID string) (*models.ReferralCode, error) {
	rc, err := s.ValidateCode(code)
	if err != nil {
		return nil, err
	}
	if rc.UserID == newUserID {
		return nil, ErrSelfReferral
	}

	var count int64
	if err := s.DB.Model(&models.Referral{}).Where("referred_id = ?", newUserID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrAlreadyReferred
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.Referral{
			ReferrerID:   rc.UserID,
			ReferredID:   newUserID,
			ReferralCode: rc.Code,
			RewardStatus: models.ReferralRewardPending,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.ReferralCode{}).
			Where("id = ?", rc.ID).
			Update("total_referrals", gorm.Expr("total_referrals + 1")).Error
	})
	if err != nil {
		// A racing signup may have inserted the relationship between the
		// check and the create; report it as the conflict it is.
		var existing int64
		s.DB.Model(&models.Referral{}).Where("referred_id = ?", newUserID).Count(&existing)
		if existing > 0 {
			return nil, ErrAlreadyReferred
		}
		return nil, err
	}

	log.Printf("[Referral] %s referred by %s (code %s)", newUserID, rc.UserID, rc.Code)
	return rc, nil
}

// Stats aggregates a referrer's code and relationship figures.
func (s *ReferralService) Stats(userID string) (map[string]interface{}, error) {
	rc, err := s.GetOrCreateCode(userID)
	if err != nil {
		return nil, err
	}

	var referrals []models.Referral
	if err := s.DB.Where("referrer_id = ?", userID).Order("created_at DESC").Find(&referrals).Error; err != nil {
		return nil, err
	}

	var converted int64
	s.DB.Model(&models.Referral{}).
		Where("referrer_id = ? AND first_purchase_completed = ?", userID, true).
		Count(&converted)

	return map[string]interface{}{
		"referral_code":   rc.Code,
		"is_active":       rc.IsActive,
		"total_referrals": rc.TotalReferrals,
		"total_earnings":  rc.TotalEarnings,
		"converted":       converted,
		"referrals":       referrals,
	}, nil
}
