// services/scheduler.go
package services

import (
	"fmt"
	"log"
	"time"

	"uo-storefront/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Pending orders older than this are abandoned checkouts; cancelling them
// releases their cashback reservations.
const staleOrderAge = 24 * time.Hour

// MaintenanceService runs the periodic housekeeping jobs.
type MaintenanceService struct {
	DB       *gorm.DB
	Ledger   *LedgerService
	Settings *SettingsService
}

func NewMaintenanceService(db *gorm.DB, ledger *LedgerService, settings *SettingsService) *MaintenanceService {
	return &MaintenanceService{DB: db, Ledger: ledger, Settings: settings}
}

func (s *MaintenanceService) StartScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every 10 minutes: cancel stale pending orders
	_, _ = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			if err := s.CancelStaleOrders(); err != nil {
				log.Printf("[Scheduler] Stale order sweep failed: %v", err)
			}
		}),
	)

	// Daily: expire old cashback credits
	_, _ = sched.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			if err := s.ExpireCashback(); err != nil {
				log.Printf("[Scheduler] Cashback expiry failed: %v", err)
			}
		}),
	)
}

// CancelStaleOrders marks abandoned pending orders as cancelled and failed.
// No ledger entry is needed: reserved cashback was never debited, and once
// payment_status leaves pending the reservation sum no longer counts the
// order.
func (s *MaintenanceService) CancelStaleOrders() error {
	cutoff := time.Now().Add(-staleOrderAge)
	res := s.DB.Model(&models.Order{}).
		Where("payment_status = ? AND status = ? AND created_at < ?",
			models.PaymentStatusPending, models.OrderStatusPending, cutoff).
		Updates(map[string]interface{}{
			"status":         models.OrderStatusCancelled,
			"payment_status": models.PaymentStatusFailed,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		log.Printf("[Scheduler] Cancelled %d stale pending order(s)", res.RowsAffected)
	}
	return nil
}

// ExpireCashback removes credits whose expiry date has passed. Each expired
// credit gets its own "expired" ledger row pointing back at the original via
// source_transaction_id, which also makes the sweep idempotent: a credit with
// an expiry row is never processed twice. The debit is clamped to the current
// balance so an already-spent credit expires without going negative.
func (s *MaintenanceService) ExpireCashback() error {
	now := time.Now()

	var credits []models.CashbackTransaction
	err := s.DB.
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Where("type IN ?", []string{models.TxnPurchaseCashback, models.TxnReferralBonus}).
		Where("id NOT IN (?)", s.DB.Model(&models.CashbackTransaction{}).
			Select("source_transaction_id").
			Where("type = ? AND source_transaction_id IS NOT NULL", models.TxnExpired)).
		Find(&credits).Error
	if err != nil {
		return err
	}

	for _, credit := range credits {
		credit := credit
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			balance, err := s.Ledger.Balance(tx, credit.UserID)
			if err != nil {
				return err
			}

			amount := credit.Amount
			if amount.GreaterThan(balance) {
				amount = balance
			}

			if amount.IsPositive() {
				res := tx.Model(&models.CashbackBalance{}).
					Where("user_id = ? AND balance >= ?", credit.UserID, amount).
					Updates(map[string]interface{}{
						"balance":    gorm.Expr("balance - ?", amount),
						"updated_at": time.Now(),
					})
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					// Balance moved under us; pick it up on the next sweep.
					return ErrInsufficientBalance
				}
			} else {
				amount = decimal.Zero
			}

			return tx.Create(&models.CashbackTransaction{
				UserID:              credit.UserID,
				Type:                models.TxnExpired,
				Amount:              amount,
				Description:         fmt.Sprintf("Cashback expired (earned %s)", credit.CreatedAt.Format("2006-01-02")),
				SourceTransactionID: &credit.ID,
			}).Error
		})
		if err != nil {
			log.Printf("[Scheduler] Failed to expire cashback txn %s: %v", credit.ID, err)
			continue
		}
		log.Printf("[Scheduler] Expired cashback txn %s for user %s", credit.ID, credit.UserID)
	}
	return nil
}
