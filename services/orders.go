package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"uo-storefront/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Pending orders can only be deleted by their owner once this much time has
// passed, so a buyer mid-payment does not yank the order out from under the
// provider callback.
const orderDeleteGracePeriod = 5 * time.Minute

// A "cashback only" order may carry a residual total up to one cent from
// rounding and still be completable without a provider payment.
var cashbackOnlyTolerance = decimal.RequireFromString("0.01")

type OrderService struct {
	DB         *gorm.DB
	Ledger     *LedgerService
	Settlement *SettlementService
}

func NewOrderService(db *gorm.DB, ledger *LedgerService, settlement *SettlementService) *OrderService {
	return &OrderService{DB: db, Ledger: ledger, Settlement: settlement}
}

// --- User Handlers ---

// GetUserOrders lists the authenticated user's orders, newest first.
func (s *OrderService) GetUserOrders(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var orders []models.Order
	if err := s.DB.Where("user_id = ?", userID).
		Preload("Items").
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		log.Printf("DB Error fetching user orders: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch orders"})
	}
	return c.JSON(orders)
}

// GetUserOrder fetches one of the user's own orders with its items.
func (s *OrderService) GetUserOrder(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	orderID := c.Params("id")

	var order models.Order
	err := s.DB.Where("id = ? AND user_id = ?", orderID, userID).
		Preload("Items").
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Order not found"})
	}
	if err != nil {
		log.Printf("DB Error fetching order %s: %v", orderID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(fiber.Map{"order": order})
}

// DeleteUserOrder removes a still-pending order the user created at least
// five minutes ago. No refund: reserved cashback was never committed.
func (s *OrderService) DeleteUserOrder(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	orderID := c.Params("id")

	var order models.Order
	err := s.DB.Where("id = ? AND user_id = ?", orderID, userID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Order not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if order.PaymentStatus != models.PaymentStatusPending {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Only pending orders can be deleted"})
	}
	if time.Since(order.CreatedAt) < orderDeleteGracePeriod {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Orders can only be deleted after 5 minutes"})
	}

	if err := s.deleteOrderRows(order.ID); err != nil {
		log.Printf("DB Error deleting order %s: %v", orderID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete order"})
	}
	return c.JSON(fiber.Map{"message": "Order deleted successfully"})
}

// CompleteCashbackOrder finalizes an order fully covered by reserved
// cashback. It runs through the same settlement path as provider payments,
// with a synthetic transaction id, so the idempotency and ledger rules are
// identical.
func (s *OrderService) CompleteCashbackOrder(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		OrderID string `json:"order_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.OrderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Order ID is required"})
	}

	var order models.Order
	err := s.DB.Where("id = ? AND user_id = ?", req.OrderID, userID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Order not found or access denied"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if order.PaymentStatus != models.PaymentStatusPending {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Order is not in pending payment status"})
	}
	if order.TotalAmount.GreaterThan(cashbackOnlyTolerance) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "This order cannot be completed with cashback only. Please use PayPal checkout.",
		})
	}
	if !order.CashbackUsed.IsPositive() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No cashback was used for this order"})
	}

	settled, err := s.Settlement.Settle(order.ID, fmt.Sprintf("cashback-%s", order.ID), "cashback")
	if errors.Is(err, ErrAlreadySettled) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Order is not in pending payment status"})
	}
	if errors.Is(err, ErrInsufficientBalance) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Insufficient cashback balance"})
	}
	if err != nil {
		log.Printf("Settlement failed for cashback order %s: %v", order.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to complete order with cashback"})
	}

	balance, _ := s.Ledger.Balance(s.DB, userID)
	return c.JSON(fiber.Map{
		"message":       "Order completed successfully with cashback",
		"order_id":      settled.ID,
		"cashback_used": settled.CashbackUsed,
		"new_balance":   balance,
	})
}

// --- Admin Handlers ---

func (s *OrderService) AdminListOrders(c *fiber.Ctx) error {
	query := s.DB.Model(&models.Order{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if paymentStatus := c.Query("payment_status"); paymentStatus != "" {
		query = query.Where("payment_status = ?", paymentStatus)
	}

	var orders []models.Order
	if err := query.Order("created_at DESC").Limit(200).Find(&orders).Error; err != nil {
		log.Printf("DB Error listing orders: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch orders"})
	}
	return c.JSON(orders)
}

func (s *OrderService) AdminGetOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")

	var order models.Order
	err := s.DB.Where("id = ?", orderID).Preload("Items").First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Order not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var user models.User
	if err := s.DB.Where("id = ?", order.UserID).First(&user).Error; err == nil {
		return c.JSON(fiber.Map{"order": order, "user_email": user.Email, "username": user.Username})
	}
	return c.JSON(fiber.Map{"order": order})
}

// AdminUpdateOrder patches status, payment_status and admin notes. Moving
// payment_status to completed goes through Settle so ledger effects apply.
func (s *OrderService) AdminUpdateOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")

	var req struct {
		Status        *string `json:"status"`
		PaymentStatus *string `json:"payment_status"`
		AdminNotes    *string `json:"admin_notes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	var order models.Order
	err := s.DB.Where("id = ?", orderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Order not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if req.PaymentStatus != nil && *req.PaymentStatus == models.PaymentStatusCompleted &&
		order.PaymentStatus == models.PaymentStatusPending {
		if _, err := s.Settlement.Settle(order.ID, fmt.Sprintf("admin-%s", order.ID), order.PaymentMethod); err != nil &&
			!errors.Is(err, ErrAlreadySettled) {
			log.Printf("Admin settlement failed for order %s: %v", order.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to settle order"})
		}
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.AdminNotes != nil {
		updates["admin_notes"] = *req.AdminNotes
	}
	if len(updates) > 1 {
		if err := s.DB.Model(&models.Order{}).Where("id = ?", orderID).Updates(updates).Error; err != nil {
			log.Printf("DB Error updating order %s: %v", orderID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update order"})
		}
	}

	s.DB.Where("id = ?", orderID).First(&order)
	return c.JSON(fiber.Map{"order": order})
}

// AdminDeleteOrder removes any order. Deleting a completed order returns the
// cashback that was spent on it to the buyer.
func (s *OrderService) AdminDeleteOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")

	var order models.Order
	err := s.DB.Where("id = ?", orderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Order not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if order.PaymentStatus == models.PaymentStatusCompleted && order.CashbackUsed.IsPositive() {
			if err := s.Ledger.Credit(tx, CreditEntry{
				UserID:      order.UserID,
				Amount:      order.CashbackUsed,
				Type:        models.TxnRefund,
				Description: fmt.Sprintf("Cashback returned for deleted order %s", order.OrderNumber),
				OrderID:     &order.ID,
			}); err != nil {
				return err
			}
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&order).Error
	})
	if err != nil {
		log.Printf("DB Error deleting order %s: %v", orderID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete order"})
	}

	log.Printf("[Orders] Admin deleted order %s", order.OrderNumber)
	return c.JSON(fiber.Map{"message": "Order deleted successfully"})
}

func (s *OrderService) deleteOrderRows(orderID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", orderID).Delete(&models.Order{}).Error
	})
}
