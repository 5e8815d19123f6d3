package workers

import (
	"context"
	"errors"
	"log"
	"time"

	"uo-storefront/models"
	"uo-storefront/services"

	"gorm.io/gorm"
)

// Orders younger than this are still in the normal approve-and-capture
// window; the worker leaves them alone.
const reconcileMinAge = 15 * time.Minute

// ReconciliationWorker sweeps orders stuck in pending that have a provider
// order id, asks the provider what actually happened, and settles the ones
// the provider reports as paid. This covers lost capture responses and IPNs
// that never arrived.
type ReconciliationWorker struct {
	DB         *gorm.DB
	PayPal     *services.PayPalClient
	Settlement *services.SettlementService
}

func NewReconciliationWorker(db *gorm.DB, paypal *services.PayPalClient, settlement *services.SettlementService) *ReconciliationWorker {
	return &ReconciliationWorker{DB: db, PayPal: paypal, Settlement: settlement}
}

// Poll runs the sweep until ctx is cancelled.
func (w *ReconciliationWorker) Poll(ctx context.Context, pollInterval time.Duration) {
	log.Println("Starting payment reconciliation polling...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Payment reconciliation polling stopped.")
			return
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				log.Printf("[Reconcile] Sweep failed: %v", err)
			}
		}
	}
}

func (w *ReconciliationWorker) sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-reconcileMinAge)

	var orders []models.Order
	err := w.DB.
		Where("payment_status = ? AND payment_provider_id IS NOT NULL AND created_at < ?",
			models.PaymentStatusPending, cutoff).
		Limit(50).
		Find(&orders).Error
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		return nil
	}

	log.Printf("[Reconcile] Checking %d stuck pending order(s)", len(orders))
	for _, order := range orders {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		status, err := w.PayPal.OrderStatus(ctx, *order.PaymentProviderID)
		if err != nil {
			log.Printf("[Reconcile] Provider lookup failed for order %s: %v", order.ID, err)
			continue
		}

		switch status {
		case "COMPLETED":
			_, err := w.Settlement.Settle(order.ID, *order.PaymentProviderID, "paypal")
			if errors.Is(err, services.ErrAlreadySettled) {
				continue
			}
			if err != nil {
				log.Printf("[Reconcile] Settlement failed for order %s: %v", order.ID, err)
				continue
			}
			log.Printf("[Reconcile] Recovered settlement for order %s", order.OrderNumber)
		case "VOIDED", "EXPIRED":
			if err := w.Settlement.MarkFailed(order.ID); err != nil {
				log.Printf("[Reconcile] Failed to cancel order %s: %v", order.ID, err)
			}
		default:
			// CREATED / APPROVED / PAYER_ACTION_REQUIRED: buyer may still
			// complete payment; the stale-order sweep handles abandonment.
		}
	}
	return nil
}
