// handlers/payment_routes.go
package handlers

import (
	"errors"
	"log"
	"net/url"

	"uo-storefront/middleware"
	"uo-storefront/models"
	"uo-storefront/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Orders whose total falls at or under this threshold after cashback are
// payable without the provider.
var cashbackOnlyThreshold = decimal.RequireFromString("0.01")

func SetupPaymentRoutes(app *fiber.App,
	checkout *services.CheckoutService,
	paypal *services.PayPalClient,
	settlement *services.SettlementService,
	settings *services.SettingsService,
	orders *services.OrderService) {

	// IPN arrives straight from the provider, not through the gateway.
	app.Post("/payments/paypal/ipn", func(c *fiber.Ctx) error {
		form, err := url.ParseQuery(string(c.Body()))
		if err != nil {
			log.Printf("[IPN] Unparseable body: %v", err)
			return c.SendStatus(fiber.StatusOK)
		}
		if err := settlement.ProcessIPN(services.ParseIPN(form)); err != nil {
			log.Printf("[IPN] Processing failed: %v", err)
		}
		// Always 200 so the provider stops retrying.
		return c.SendStatus(fiber.StatusOK)
	})

	secured := app.Group("/s", middleware.UserContextMiddleware())

	// Create a pending order and, unless cashback covers it fully, a PayPal
	// order for the remainder.
	secured.Post("/checkout", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req services.CheckoutRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		order, err := checkout.CreatePendingOrder(userID, req)
		var vErr *services.ValidationError
		if errors.As(err, &vErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": vErr.Message})
		}
		if err != nil {
			log.Printf("Checkout failed for user %s: %v", userID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Checkout failed"})
		}

		if !order.TotalAmount.GreaterThan(cashbackOnlyThreshold) && order.CashbackUsed.IsPositive() {
			return c.Status(fiber.StatusCreated).JSON(fiber.Map{
				"order":         order,
				"cashback_only": true,
			})
		}

		payeeEmail, err := settings.Get(models.SettingPayPalEmail)
		if err != nil || payeeEmail == "" {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Payments are not configured"})
		}

		created, err := paypal.CreateOrder(c.Context(), order, payeeEmail)
		if err != nil {
			log.Printf("PayPal order creation failed for order %s: %v", order.ID, err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Payment provider unavailable"})
		}

		if err := checkout.DB.Model(&models.Order{}).
			Where("id = ?", order.ID).
			Update("payment_provider_id", created.ID).Error; err != nil {
			log.Printf("Failed to store provider id for order %s: %v", order.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Checkout failed"})
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"order":           order,
			"paypal_order_id": created.ID,
			"approval_url":    created.ApprovalURL,
		})
	})

	// Capture after the buyer approves on the provider side.
	secured.Post("/checkout/capture", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			PayPalOrderID string `json:"paypal_order_id"`
		}
		if err := c.BodyParser(&req); err != nil || req.PayPalOrderID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "PayPal order ID is required"})
		}

		var order models.Order
		err := checkout.DB.Where("payment_provider_id = ? AND user_id = ?", req.PayPalOrderID, userID).
			First(&order).Error
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Order not found"})
		}

		result, err := paypal.CaptureOrder(c.Context(), req.PayPalOrderID)
		if err != nil {
			log.Printf("PayPal capture failed for order %s: %v", order.ID, err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Payment capture failed"})
		}
		if result.Status != "COMPLETED" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":  "Payment was not completed",
				"status": result.Status,
			})
		}

		settled, err := settlement.Settle(order.ID, result.CaptureID, "paypal")
		if errors.Is(err, services.ErrAlreadySettled) {
			// Capture raced the IPN; the order is paid either way.
			checkout.DB.Where("id = ?", order.ID).First(&order)
			return c.JSON(fiber.Map{"message": "Order completed successfully", "order": order})
		}
		if err != nil {
			log.Printf("Settlement failed for order %s after capture %s: %v", order.ID, result.CaptureID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to finalize order"})
		}

		return c.JSON(fiber.Map{"message": "Order completed successfully", "order": settled})
	})

	// Finalize an order fully covered by reserved cashback.
	secured.Post("/checkout/cashback-complete", orders.CompleteCashbackOrder)
}
