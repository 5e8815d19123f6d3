package services

import (
	"testing"

	"uo-storefront/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an in-memory database with the full schema. MaxOpenConns is
// pinned to 1 so the pool cannot hand out a second, empty :memory: database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.UserPoints{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.CashbackBalance{},
		&models.CashbackTransaction{},
		&models.ReferralCode{},
		&models.Referral{},
		&models.Coupon{},
		&models.ProductReview{},
		&models.CategoryReview{},
		&models.ImageSubmission{},
		&models.SiteSetting{},
		&models.IPNLog{},
	))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := models.User{
		Email:        email,
		Username:     email,
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createTestProduct(t *testing.T, db *gorm.DB, name, price string) *models.Product {
	t.Helper()
	product := models.Product{
		Name:     name,
		Slug:     name,
		Price:    decimal.RequireFromString(price),
		IsActive: true,
	}
	require.NoError(t, db.Create(&product).Error)
	return &product
}

// creditBalance seeds a user's cashback balance through the ledger so the
// balance row and log entry stay consistent.
func creditBalance(t *testing.T, db *gorm.DB, ledger *LedgerService, userID, amount string) {
	t.Helper()
	require.NoError(t, ledger.Credit(db, CreditEntry{
		UserID:      userID,
		Amount:      decimal.RequireFromString(amount),
		Type:        models.TxnAdjustment,
		Description: "test seed",
	}))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
