package services

import (
	"net/http/httptest"
	"testing"

	"uo-storefront/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newUserApp(t *testing.T, db *gorm.DB) (*fiber.App, *ReferralService) {
	t.Helper()
	ledger := NewLedgerService(db)
	referral := NewReferralService(db)
	svc := NewUserService(db, ledger, referral)

	app := fiber.New()
	app.Post("/auth/signup", svc.Signup)
	return app, referral
}

func signup(t *testing.T, app *fiber.App, body fiber.Map) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/auth/signup", jsonBody(t, body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestSignupCreatesAccountWithSupportRecords(t *testing.T) {
	db := newTestDB(t)
	app, _ := newUserApp(t, db)

	status := signup(t, app, fiber.Map{
		"email":    "New@Example.com",
		"username": "newbie",
		"password": "hunter2hunter2",
	})
	assert.Equal(t, fiber.StatusCreated, status)

	var user models.User
	require.NoError(t, db.Where("email = ?", "new@example.com").First(&user).Error)
	assert.NotEqual(t, "hunter2hunter2", user.PasswordHash)

	var points models.UserPoints
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&points).Error)

	var code models.ReferralCode
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&code).Error)
	assert.Regexp(t, `^[A-Z0-9]{6}$`, code.Code)
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	app, _ := newUserApp(t, db)

	body := fiber.Map{"email": "a@example.com", "username": "a", "password": "longenough"}
	assert.Equal(t, fiber.StatusCreated, signup(t, app, body))
	assert.Equal(t, fiber.StatusConflict, signup(t, app, body))
}

func TestSignupRejectsShortPassword(t *testing.T) {
	db := newTestDB(t)
	app, _ := newUserApp(t, db)

	status := signup(t, app, fiber.Map{"email": "a@example.com", "username": "a", "password": "short"})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestSignupRecordsReferral(t *testing.T) {
	db := newTestDB(t)
	app, referral := newUserApp(t, db)
	referrer := createTestUser(t, db, "ref@example.com")

	rc, err := referral.GetOrCreateCode(referrer.ID)
	require.NoError(t, err)

	status := signup(t, app, fiber.Map{
		"email":         "new@example.com",
		"username":      "newbie",
		"password":      "longenough",
		"referral_code": rc.Code,
	})
	assert.Equal(t, fiber.StatusCreated, status)

	var user models.User
	require.NoError(t, db.Where("email = ?", "new@example.com").First(&user).Error)

	var rel models.Referral
	require.NoError(t, db.Where("referred_id = ?", user.ID).First(&rel).Error)
	assert.Equal(t, referrer.ID, rel.ReferrerID)
}

func TestSignupSurvivesBadReferralCode(t *testing.T) {
	db := newTestDB(t)
	app, _ := newUserApp(t, db)

	status := signup(t, app, fiber.Map{
		"email":         "new@example.com",
		"username":      "newbie",
		"password":      "longenough",
		"referral_code": "BOGUS1",
	})
	assert.Equal(t, fiber.StatusCreated, status)

	var count int64
	db.Model(&models.Referral{}).Count(&count)
	assert.EqualValues(t, 0, count)
}
