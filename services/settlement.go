package services

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"uo-storefront/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var oneHundred = decimal.NewFromInt(100)

// SettlementService finalizes paid orders. Settle is the only code path that
// marks an order paid and emits its ledger side effects, and it does all of
// it inside one database transaction so a crash can never leave the order
// paid without the cashback applied, or vice versa.
type SettlementService struct {
	DB       *gorm.DB
	Ledger   *LedgerService
	Settings *SettingsService
}

func NewSettlementService(db *gorm.DB, ledger *LedgerService, settings *SettingsService) *SettlementService {
	return &SettlementService{DB: db, Ledger: ledger, Settings: settings}
}

// Settle transitions an order pending -> paid/completed and applies the
// ledger side effects exactly once:
//
//  1. conditional mark-paid; a second delivery of the same capture or IPN
//     sees zero rows updated and returns ErrAlreadySettled
//  2. debit the checkout-time cashback reservation
//  3. credit purchase cashback on the order total
//  4. on the referred user's first completed purchase, credit the referrer
//     bonus and flip the relationship to earned
func (s *SettlementService) Settle(orderID, providerTxnID, paymentMethod string) (*models.Order, error) {
	var settled models.Order

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Where("id = ?", orderID).First(&order).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"status":         models.OrderStatusPaid,
			"payment_status": models.PaymentStatusCompleted,
			"updated_at":     time.Now(),
		}
		if providerTxnID != "" {
			updates["payment_transaction_id"] = providerTxnID
		}
		if paymentMethod != "" {
			updates["payment_method"] = paymentMethod
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND payment_status = ?", orderID, models.PaymentStatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadySettled
		}

		// Commit the reservation made at checkout.
		if order.CashbackUsed.IsPositive() {
			if err := s.Ledger.Debit(tx, order.UserID, order.CashbackUsed, models.TxnUsed,
				fmt.Sprintf("Cashback applied to order %s", order.OrderNumber), &order.ID); err != nil {
				return err
			}
		}

		if err := s.creditPurchaseCashback(tx, &order); err != nil {
			return err
		}

		if err := s.creditReferralBonus(tx, &order); err != nil {
			return err
		}

		settled = order
		settled.Status = models.OrderStatusPaid
		settled.PaymentStatus = models.PaymentStatusCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Settlement] Order %s settled (txn %s)", settled.OrderNumber, providerTxnID)
	return &settled, nil
}

func (s *SettlementService) cashbackExpiry() *time.Time {
	days := s.Settings.GetInt(models.SettingCashbackExpiryDays, 365)
	if days <= 0 {
		return nil
	}
	t := time.Now().AddDate(0, 0, days)
	return &t
}

func (s *SettlementService) creditPurchaseCashback(tx *gorm.DB, order *models.Order) error {
	pct := s.Settings.GetDecimal(models.SettingCustomerCashbackPct, decimal.NewFromInt(5))
	amount := order.TotalAmount.Mul(pct).Div(oneHundred).Round(2)
	if !amount.IsPositive() {
		return nil
	}

	return s.Ledger.Credit(tx, CreditEntry{
		UserID:      order.UserID,
		Amount:      amount,
		Type:        models.TxnPurchaseCashback,
		Description: fmt.Sprintf("Cashback from order %s", order.OrderNumber),
		OrderID:     &order.ID,
		ExpiresAt:   s.cashbackExpiry(),
	})
}

func (s *SettlementService) creditReferralBonus(tx *gorm.DB, order *models.Order) error {
	var ref models.Referral
	err := tx.Where("referred_id = ? AND first_purchase_completed = ?", order.UserID, false).First(&ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pct := s.Settings.GetDecimal(models.SettingReferrerBonusPct, decimal.RequireFromString("2.5"))
	bonus := order.TotalAmount.Mul(pct).Div(oneHundred).Round(2)

	// The conditional update is the once-per-lifetime guard: a racing
	// settlement of two first orders flips the flag only once.
	res := tx.Model(&models.Referral{}).
		Where("id = ? AND first_purchase_completed = ?", ref.ID, false).
		Updates(map[string]interface{}{
			"first_purchase_completed": true,
			"reward_status":            models.ReferralRewardEarned,
			"reward_amount":            bonus,
			"first_order_id":           order.ID,
			"updated_at":               time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}

	if !bonus.IsPositive() {
		return nil
	}

	if err := s.Ledger.Credit(tx, CreditEntry{
		UserID:       ref.ReferrerID,
		Amount:       bonus,
		Type:         models.TxnReferralBonus,
		Description:  fmt.Sprintf("Referral bonus from code %s", ref.ReferralCode),
		OrderID:      &order.ID,
		ReferralCode: &ref.ReferralCode,
		ExpiresAt:    s.cashbackExpiry(),
	}); err != nil {
		return err
	}

	return tx.Model(&models.ReferralCode{}).
		Where("user_id = ?", ref.ReferrerID).
		Update("total_earnings", gorm.Expr("total_earnings + ?", bonus)).Error
}

// MarkFailed cancels an order whose payment failed or was denied. The
// reservation was never committed, so no ledger entry is needed.
func (s *SettlementService) MarkFailed(orderID string) error {
	res := s.DB.Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", orderID, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":         models.OrderStatusCancelled,
			"payment_status": models.PaymentStatusFailed,
			"updated_at":     time.Now(),
		})
	return res.Error
}

// Refund transitions a completed order to refunded and returns the cashback
// that was spent on it. Purchase cashback earned from the order is not
// clawed back; that matches the manual admin policy.
func (s *SettlementService) Refund(orderID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Where("id = ?", orderID).First(&order).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND payment_status = ?", orderID, models.PaymentStatusCompleted).
			Updates(map[string]interface{}{
				"status":         models.OrderStatusRefunded,
				"payment_status": models.PaymentStatusRefunded,
				"updated_at":     time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// A pending order is still mid-payment; leave it for the normal
			// settlement or failure transitions.
			if order.PaymentStatus == models.PaymentStatusPending {
				return nil
			}
			// Already failed or cancelled; nothing was committed, just flag
			// the state.
			return tx.Model(&models.Order{}).
				Where("id = ?", orderID).
				Updates(map[string]interface{}{
					"status":         models.OrderStatusRefunded,
					"payment_status": models.PaymentStatusRefunded,
					"updated_at":     time.Now(),
				}).Error
		}

		if order.CashbackUsed.IsPositive() {
			return s.Ledger.Credit(tx, CreditEntry{
				UserID:      order.UserID,
				Amount:      order.CashbackUsed,
				Type:        models.TxnRefund,
				Description: fmt.Sprintf("Cashback returned for refunded order %s", order.OrderNumber),
				OrderID:     &order.ID,
			})
		}
		return nil
	})
}

// IPNNotification is the parsed subset of a PayPal IPN form post.
type IPNNotification struct {
	PaymentStatus string
	TxnID         string
	ReceiverEmail string
	OrderID       string // the "custom" field, carrying our order id
	GrossAmount   string
	Currency      string
	RawPayload    string
}

func ParseIPN(form url.Values) IPNNotification {
	return IPNNotification{
		PaymentStatus: form.Get("payment_status"),
		TxnID:         form.Get("txn_id"),
		ReceiverEmail: form.Get("receiver_email"),
		OrderID:       form.Get("custom"),
		GrossAmount:   form.Get("mc_gross"),
		Currency:      form.Get("mc_currency"),
		RawPayload:    form.Encode(),
	}
}

// ProcessIPN validates and applies an asynchronous payment notification.
// Validation failures return an error for logging, but the HTTP handler
// still answers 200 to stop provider retry storms.
func (s *SettlementService) ProcessIPN(ipn IPNNotification) error {
	defer s.logIPN(ipn)

	if ipn.OrderID == "" {
		return errors.New("ipn missing order id")
	}

	configured, err := s.Settings.Get(models.SettingPayPalEmail)
	if err != nil || configured == "" {
		return errors.New("paypal receiver email not configured")
	}
	if ipn.ReceiverEmail != configured {
		return fmt.Errorf("receiver email mismatch: %s", ipn.ReceiverEmail)
	}

	var order models.Order
	if err := s.DB.Where("id = ?", ipn.OrderID).First(&order).Error; err != nil {
		return fmt.Errorf("ipn order %s: %w", ipn.OrderID, err)
	}

	received, err := decimal.NewFromString(ipn.GrossAmount)
	if err != nil || !received.Round(2).Equal(order.TotalAmount.Round(2)) {
		return fmt.Errorf("amount mismatch for order %s: got %q want %s", order.ID, ipn.GrossAmount, order.TotalAmount)
	}

	switch ipn.PaymentStatus {
	case "Completed":
		_, err := s.Settle(order.ID, ipn.TxnID, "paypal")
		if errors.Is(err, ErrAlreadySettled) {
			log.Printf("[Settlement] Duplicate IPN for order %s (txn %s), ignoring", order.ID, ipn.TxnID)
			return nil
		}
		return err
	case "Failed", "Denied", "Expired", "Canceled_Reversal":
		return s.MarkFailed(order.ID)
	case "Refunded", "Reversed":
		return s.Refund(order.ID)
	case "Pending":
		return nil
	default:
		log.Printf("[Settlement] Unknown IPN payment status %q for order %s", ipn.PaymentStatus, order.ID)
		return nil
	}
}

// ListIPNLogs returns recent webhook deliveries for admin inspection.
func (s *SettlementService) ListIPNLogs(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := s.DB.Model(&models.IPNLog{})
	if orderID := c.Query("order_id"); orderID != "" {
		query = query.Where("order_id = ?", orderID)
	}

	var logs []models.IPNLog
	if err := query.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		log.Printf("DB Error fetching IPN logs: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch IPN logs"})
	}
	return c.JSON(logs)
}

func (s *SettlementService) logIPN(ipn IPNNotification) {
	if err := s.DB.Create(&models.IPNLog{
		TxnID:         ipn.TxnID,
		OrderID:       ipn.OrderID,
		PaymentStatus: ipn.PaymentStatus,
		ReceiverEmail: ipn.ReceiverEmail,
		GrossAmount:   ipn.GrossAmount,
		Payload:       ipn.RawPayload,
	}).Error; err != nil {
		log.Printf("[Settlement] Failed to log IPN: %v", err)
	}
}
