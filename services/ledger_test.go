package services

import (
	"testing"

	"uo-storefront/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreditCreatesBalanceRowAndLogEntry(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db, "a@example.com")

	creditBalance(t, db, ledger, user.ID, "12.50")

	balance, err := ledger.Balance(db, user.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("12.50")), "balance = %s", balance)

	txns, err := ledger.Transactions(user.ID, 10)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, models.TxnAdjustment, txns[0].Type)
	assert.True(t, txns[0].Amount.Equal(dec("12.50")))
}

func TestCreditAccumulatesLifetimeEarned(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db, "a@example.com")

	creditBalance(t, db, ledger, user.ID, "10.00")
	creditBalance(t, db, ledger, user.ID, "5.00")
	require.NoError(t, ledger.Debit(db, user.ID, dec("8.00"), models.TxnUsed, "spend", nil))

	var bal models.CashbackBalance
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&bal).Error)
	assert.True(t, bal.Balance.Equal(dec("7.00")), "balance = %s", bal.Balance)
	assert.True(t, bal.LifetimeEarned.Equal(dec("15.00")), "lifetime = %s", bal.LifetimeEarned)
}

func TestDebitRejectsOverdraft(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db, "a@example.com")

	creditBalance(t, db, ledger, user.ID, "5.00")

	err := ledger.Debit(db, user.ID, dec("5.01"), models.TxnUsed, "too much", nil)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// The failed debit must leave no trace.
	balance, err := ledger.Balance(db, user.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("5.00")))

	txns, err := ledger.Transactions(user.ID, 10)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestDebitWithoutBalanceRow(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db, "a@example.com")

	err := ledger.Debit(db, user.ID, dec("1.00"), models.TxnUsed, "no row", nil)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db, "a@example.com")

	err := ledger.Credit(db, CreditEntry{UserID: user.ID, Amount: dec("0"), Type: models.TxnAdjustment})
	assert.Error(t, err)
	err = ledger.Credit(db, CreditEntry{UserID: user.ID, Amount: dec("-1"), Type: models.TxnAdjustment})
	assert.Error(t, err)
}

func TestAvailableSubtractsPendingReservations(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db, "a@example.com")

	creditBalance(t, db, ledger, user.ID, "20.00")

	// Two open orders holding reservations, one settled order that should
	// not count.
	orders := []models.Order{
		{OrderNumber: "ORD-1", UserID: user.ID, Status: models.OrderStatusPending, PaymentStatus: models.PaymentStatusPending, CashbackUsed: dec("4.00")},
		{OrderNumber: "ORD-2", UserID: user.ID, Status: models.OrderStatusPending, PaymentStatus: models.PaymentStatusPending, CashbackUsed: dec("3.50")},
		{OrderNumber: "ORD-3", UserID: user.ID, Status: models.OrderStatusPaid, PaymentStatus: models.PaymentStatusCompleted, CashbackUsed: dec("10.00")},
	}
	for i := range orders {
		require.NoError(t, db.Create(&orders[i]).Error)
	}

	reserved, err := ledger.PendingReservations(db, user.ID)
	require.NoError(t, err)
	assert.True(t, reserved.Equal(dec("7.50")), "reserved = %s", reserved)

	available, err := ledger.Available(db, user.ID)
	require.NoError(t, err)
	assert.True(t, available.Equal(dec("12.50")), "available = %s", available)
}

func TestReservationsIgnoreCancelledOrders(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db, "a@example.com")

	creditBalance(t, db, ledger, user.ID, "10.00")

	// An admin-cancelled order whose payment_status was never advanced must
	// not hold its reservation.
	order := models.Order{
		OrderNumber:   "ORD-1",
		UserID:        user.ID,
		Status:        models.OrderStatusCancelled,
		PaymentStatus: models.PaymentStatusPending,
		CashbackUsed:  dec("10.00"),
	}
	require.NoError(t, db.Create(&order).Error)

	reserved, err := ledger.PendingReservations(db, user.ID)
	require.NoError(t, err)
	assert.True(t, reserved.IsZero(), "reserved = %s", reserved)

	available, err := ledger.Available(db, user.ID)
	require.NoError(t, err)
	assert.True(t, available.Equal(dec("10.00")), "available = %s", available)
}

func TestLockBalanceCreatesRowLazily(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db, "a@example.com")

	require.NoError(t, ledger.LockBalance(db, user.ID))

	var bal models.CashbackBalance
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&bal).Error)
	assert.True(t, bal.Balance.IsZero())
}

func TestAvailableFloorsAtZero(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db, "a@example.com")

	creditBalance(t, db, ledger, user.ID, "2.00")
	order := models.Order{OrderNumber: "ORD-1", UserID: user.ID, Status: models.OrderStatusPending, PaymentStatus: models.PaymentStatusPending, CashbackUsed: dec("5.00")}
	require.NoError(t, db.Create(&order).Error)

	available, err := ledger.Available(db, user.ID)
	require.NoError(t, err)
	assert.True(t, available.IsZero(), "available = %s", available)
}
