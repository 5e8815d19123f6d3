package services

import (
	"fmt"
	"time"

	"uo-storefront/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerService owns every cashback balance mutation. All credits and debits
// pair a guarded balance update with an append-only CashbackTransaction row
// inside the caller's transaction, so the balance can always be reconciled
// against the log.
type LedgerService struct {
	DB *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{DB: db}
}

// CreditEntry describes a credit to apply. OrderID, ReferralCode and
// ExpiresAt are optional.
type CreditEntry struct {
	UserID       string
	Amount       decimal.Decimal
	Type         string
	Description  string
	OrderID      *string
	ReferralCode *string
	SourceTxnID  *string
	ExpiresAt    *time.Time
}

// ensureBalanceRow creates the user's balance row if absent. Safe under
// concurrent creation via the unique index on user_id.
func (s *LedgerService) ensureBalanceRow(tx *gorm.DB, userID string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&models.CashbackBalance{
		UserID:         userID,
		Balance:        decimal.Zero,
		LifetimeEarned: decimal.Zero,
	}).Error
}

// LockBalance takes a row lock on the user's balance row for the rest of tx.
// The write forces any concurrent transaction touching the same row to wait
// for this one to commit, so a reservation check made behind the lock sees
// every order a competing checkout has inserted. Creates the row first: a
// user with no balance row yet must still serialize.
func (s *LedgerService) LockBalance(tx *gorm.DB, userID string) error {
	if err := s.ensureBalanceRow(tx, userID); err != nil {
		return err
	}
	return tx.Model(&models.CashbackBalance{}).
		Where("user_id = ?", userID).
		Update("updated_at", time.Now()).Error
}

// Credit adds funds and logs the transaction. Must run inside tx.
func (s *LedgerService) Credit(tx *gorm.DB, entry CreditEntry) error {
	if !entry.Amount.IsPositive() {
		return fmt.Errorf("credit amount must be positive, got %s", entry.Amount)
	}
	if err := s.ensureBalanceRow(tx, entry.UserID); err != nil {
		return err
	}

	res := tx.Model(&models.CashbackBalance{}).
		Where("user_id = ?", entry.UserID).
		Updates(map[string]interface{}{
			"balance":         gorm.Expr("balance + ?", entry.Amount),
			"lifetime_earned": gorm.Expr("lifetime_earned + ?", entry.Amount),
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}

	return tx.Create(&models.CashbackTransaction{
		UserID:              entry.UserID,
		OrderID:             entry.OrderID,
		Type:                entry.Type,
		Amount:              entry.Amount,
		Description:         entry.Description,
		ReferralCodeUsed:    entry.ReferralCode,
		SourceTransactionID: entry.SourceTxnID,
		ExpiresAt:           entry.ExpiresAt,
	}).Error
}

// Debit removes funds and logs the transaction. The conditional update is the
// race guard: if another writer drained the balance first, zero rows match
// and ErrInsufficientBalance is returned without touching anything.
func (s *LedgerService) Debit(tx *gorm.DB, userID string, amount decimal.Decimal, txnType, description string, orderID *string) error {
	if !amount.IsPositive() {
		return fmt.Errorf("debit amount must be positive, got %s", amount)
	}

	res := tx.Model(&models.CashbackBalance{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientBalance
	}

	return tx.Create(&models.CashbackTransaction{
		UserID:      userID,
		OrderID:     orderID,
		Type:        txnType,
		Amount:      amount,
		Description: description,
	}).Error
}

// Balance returns the user's raw balance, zero if no row exists yet.
func (s *LedgerService) Balance(db *gorm.DB, userID string) (decimal.Decimal, error) {
	var bal models.CashbackBalance
	err := db.Where("user_id = ?", userID).First(&bal).Error
	if err == gorm.ErrRecordNotFound {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return bal.Balance, nil
}

// PendingReservations sums cashback_used across the user's open orders. Only
// orders still pending on both status columns hold a reservation; a cancelled
// order releases its hold even before the payment_status transition lands.
func (s *LedgerService) PendingReservations(db *gorm.DB, userID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := db.Model(&models.Order{}).
		Where("user_id = ? AND payment_status = ? AND status = ? AND cashback_used > 0",
			userID, models.PaymentStatusPending, models.OrderStatusPending).
		Select("COALESCE(SUM(cashback_used), 0)").
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total.Round(2), nil
}

// Available is the balance minus pending reservations, floored at zero.
func (s *LedgerService) Available(db *gorm.DB, userID string) (decimal.Decimal, error) {
	balance, err := s.Balance(db, userID)
	if err != nil {
		return decimal.Zero, err
	}
	reserved, err := s.PendingReservations(db, userID)
	if err != nil {
		return decimal.Zero, err
	}
	available := balance.Sub(reserved)
	if available.IsNegative() {
		return decimal.Zero, nil
	}
	return available, nil
}

// Transactions returns the user's ledger entries, newest first.
func (s *LedgerService) Transactions(userID string, limit int) ([]models.CashbackTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var txns []models.CashbackTransaction
	err := s.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}
