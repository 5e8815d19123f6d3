package services

import (
	"testing"
	"time"

	"uo-storefront/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMaintenanceFixture(t *testing.T) (*LedgerService, *MaintenanceService) {
	t.Helper()
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	settings := NewSettingsService(db)
	return ledger, NewMaintenanceService(db, ledger, settings)
}

func TestCancelStaleOrders(t *testing.T) {
	_, maint := newMaintenanceFixture(t)
	db := maint.DB
	user := createTestUser(t, db, "buyer@example.com")

	stale := createPendingOrder(t, db, user.ID, "10.00", "0")
	backdateOrder(t, db, stale.ID, 25*time.Hour)
	fresh := createPendingOrder(t, db, user.ID, "10.00", "0")

	require.NoError(t, maint.CancelStaleOrders())

	var got models.Order
	require.NoError(t, db.Where("id = ?", stale.ID).First(&got).Error)
	assert.Equal(t, models.OrderStatusCancelled, got.Status)
	assert.Equal(t, models.PaymentStatusFailed, got.PaymentStatus)

	require.NoError(t, db.Where("id = ?", fresh.ID).First(&got).Error)
	assert.Equal(t, models.OrderStatusPending, got.Status)
	assert.Equal(t, models.PaymentStatusPending, got.PaymentStatus)
}

func TestCancelStaleOrdersReleasesReservation(t *testing.T) {
	ledger, maint := newMaintenanceFixture(t)
	db := maint.DB
	user := createTestUser(t, db, "buyer@example.com")

	creditBalance(t, db, ledger, user.ID, "10.00")
	order := createPendingOrder(t, db, user.ID, "10.00", "10.00")
	backdateOrder(t, db, order.ID, 25*time.Hour)

	available, err := ledger.Available(db, user.ID)
	require.NoError(t, err)
	require.True(t, available.IsZero(), "available = %s", available)

	require.NoError(t, maint.CancelStaleOrders())

	// The abandoned order no longer holds the funds.
	available, err = ledger.Available(db, user.ID)
	require.NoError(t, err)
	assert.True(t, available.Equal(dec("10.00")), "available = %s", available)
}

func TestExpireCashbackDebitsAndMarks(t *testing.T) {
	ledger, maint := newMaintenanceFixture(t)
	db := maint.DB
	user := createTestUser(t, db, "buyer@example.com")

	past := time.Now().Add(-time.Hour)
	require.NoError(t, ledger.Credit(db, CreditEntry{
		UserID:      user.ID,
		Amount:      dec("6.00"),
		Type:        models.TxnPurchaseCashback,
		Description: "old credit",
		ExpiresAt:   &past,
	}))
	require.NoError(t, ledger.Credit(db, CreditEntry{
		UserID:      user.ID,
		Amount:      dec("4.00"),
		Type:        models.TxnPurchaseCashback,
		Description: "still valid",
	}))

	require.NoError(t, maint.ExpireCashback())

	balance, err := ledger.Balance(db, user.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("4.00")), "balance = %s", balance)

	var expired models.CashbackTransaction
	require.NoError(t, db.Where("user_id = ? AND type = ?", user.ID, models.TxnExpired).First(&expired).Error)
	assert.True(t, expired.Amount.Equal(dec("6.00")))
	require.NotNil(t, expired.SourceTransactionID)
}

func TestExpireCashbackIsIdempotent(t *testing.T) {
	ledger, maint := newMaintenanceFixture(t)
	db := maint.DB
	user := createTestUser(t, db, "buyer@example.com")

	past := time.Now().Add(-time.Hour)
	require.NoError(t, ledger.Credit(db, CreditEntry{
		UserID:    user.ID,
		Amount:    dec("6.00"),
		Type:      models.TxnPurchaseCashback,
		ExpiresAt: &past,
	}))

	require.NoError(t, maint.ExpireCashback())
	require.NoError(t, maint.ExpireCashback())

	var expiredRows int64
	db.Model(&models.CashbackTransaction{}).
		Where("user_id = ? AND type = ?", user.ID, models.TxnExpired).
		Count(&expiredRows)
	assert.EqualValues(t, 1, expiredRows)

	balance, err := ledger.Balance(db, user.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), "balance = %s", balance)
}

func TestExpireCashbackClampsToSpentBalance(t *testing.T) {
	ledger, maint := newMaintenanceFixture(t)
	db := maint.DB
	user := createTestUser(t, db, "buyer@example.com")

	past := time.Now().Add(-time.Hour)
	require.NoError(t, ledger.Credit(db, CreditEntry{
		UserID:    user.ID,
		Amount:    dec("10.00"),
		Type:      models.TxnPurchaseCashback,
		ExpiresAt: &past,
	}))
	// Most of the credit was already spent before it expired.
	require.NoError(t, ledger.Debit(db, user.ID, dec("7.00"), models.TxnUsed, "spent", nil))

	require.NoError(t, maint.ExpireCashback())

	balance, err := ledger.Balance(db, user.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), "balance = %s", balance)

	var expired models.CashbackTransaction
	require.NoError(t, db.Where("user_id = ? AND type = ?", user.ID, models.TxnExpired).First(&expired).Error)
	assert.True(t, expired.Amount.Equal(dec("3.00")), "expired amount = %s", expired.Amount)
}
