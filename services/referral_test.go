package services

import (
	"testing"

	"uo-storefront/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateCodeIsStable(t *testing.T) {
	db := newTestDB(t)
	referral := NewReferralService(db)
	user := createTestUser(t, db, "a@example.com")

	first, err := referral.GetOrCreateCode(user.ID)
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Z0-9]{6}$`, first.Code)
	assert.True(t, first.IsActive)

	second, err := referral.GetOrCreateCode(user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Code, second.Code)

	var count int64
	db.Model(&models.ReferralCode{}).Where("user_id = ?", user.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestValidateCodeNormalizesInput(t *testing.T) {
	db := newTestDB(t)
	referral := NewReferralService(db)
	user := createTestUser(t, db, "a@example.com")

	rc, err := referral.GetOrCreateCode(user.ID)
	require.NoError(t, err)

	got, err := referral.ValidateCode("  " + rc.Code + " ")
	require.NoError(t, err)
	assert.Equal(t, rc.ID, got.ID)

	_, err = referral.ValidateCode("NOPE99")
	assert.ErrorIs(t, err, ErrInvalidReferralCode)
}

func TestValidateCodeRejectsInactive(t *testing.T) {
	db := newTestDB(t)
	referral := NewReferralService(db)
	user := createTestUser(t, db, "a@example.com")

	rc, err := referral.GetOrCreateCode(user.ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.ReferralCode{}).Where("id = ?", rc.ID).Update("is_active", false).Error)

	_, err = referral.ValidateCode(rc.Code)
	assert.ErrorIs(t, err, ErrInvalidReferralCode)
}

func TestRecordReferralLinksUsers(t *testing.T) {
	db := newTestDB(t)
	referral := NewReferralService(db)
	referrer := createTestUser(t, db, "ref@example.com")
	newUser := createTestUser(t, db, "new@example.com")

	rc, err := referral.GetOrCreateCode(referrer.ID)
	require.NoError(t, err)

	got, err := referral.RecordReferral(rc.Code, newUser.ID)
	require.NoError(t, err)
	assert.Equal(t, referrer.ID, got.UserID)

	var rel models.Referral
	require.NoError(t, db.Where("referred_id = ?", newUser.ID).First(&rel).Error)
	assert.Equal(t, referrer.ID, rel.ReferrerID)
	assert.Equal(t, models.ReferralRewardPending, rel.RewardStatus)
	assert.False(t, rel.FirstPurchaseCompleted)

	var updated models.ReferralCode
	require.NoError(t, db.Where("id = ?", rc.ID).First(&updated).Error)
	assert.Equal(t, 1, updated.TotalReferrals)
}

func TestRecordReferralRejectsSelf(t *testing.T) {
	db := newTestDB(t)
	referral := NewReferralService(db)
	user := createTestUser(t, db, "a@example.com")

	rc, err := referral.GetOrCreateCode(user.ID)
	require.NoError(t, err)

	_, err = referral.RecordReferral(rc.Code, user.ID)
	assert.ErrorIs(t, err, ErrSelfReferral)
}

func TestRecordReferralFirstReferrerWins(t *testing.T) {
	db := newTestDB(t)
	referral := NewReferralService(db)
	referrerA := createTestUser(t, db, "a@example.com")
	referrerB := createTestUser(t, db, "b@example.com")
	newUser := createTestUser(t, db, "new@example.com")

	codeA, err := referral.GetOrCreateCode(referrerA.ID)
	require.NoError(t, err)
	codeB, err := referral.GetOrCreateCode(referrerB.ID)
	require.NoError(t, err)

	_, err = referral.RecordReferral(codeA.Code, newUser.ID)
	require.NoError(t, err)

	_, err = referral.RecordReferral(codeB.Code, newUser.ID)
	assert.ErrorIs(t, err, ErrAlreadyReferred)

	var rel models.Referral
	require.NoError(t, db.Where("referred_id = ?", newUser.ID).First(&rel).Error)
	assert.Equal(t, referrerA.ID, rel.ReferrerID)
}

func TestStatsCountsConversions(t *testing.T) {
	db := newTestDB(t)
	referral := NewReferralService(db)
	referrer := createTestUser(t, db, "ref@example.com")
	userA := createTestUser(t, db, "ua@example.com")
	userB := createTestUser(t, db, "ub@example.com")

	rc, err := referral.GetOrCreateCode(referrer.ID)
	require.NoError(t, err)
	_, err = referral.RecordReferral(rc.Code, userA.ID)
	require.NoError(t, err)
	_, err = referral.RecordReferral(rc.Code, userB.ID)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Referral{}).
		Where("referred_id = ?", userA.ID).
		Update("first_purchase_completed", true).Error)

	stats, err := referral.Stats(referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, rc.Code, stats["referral_code"])
	assert.Equal(t, 2, stats["total_referrals"])
	assert.EqualValues(t, 1, stats["converted"])
}
