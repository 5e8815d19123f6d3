package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"uo-storefront/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CheckoutService creates pending orders, including the cashback reservation
// that keeps a user from committing the same funds to two open orders.
type CheckoutService struct {
	DB       *gorm.DB
	Ledger   *LedgerService
	Settings *SettingsService
}

func NewCheckoutService(db *gorm.DB, ledger *LedgerService, settings *SettingsService) *CheckoutService {
	return &CheckoutService{DB: db, Ledger: ledger, Settings: settings}
}

type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CheckoutRequest struct {
	Items         []CartItem      `json:"items"`
	CashbackToUse decimal.Decimal `json:"cashback_to_use"`
	SelectedShard string          `json:"selected_shard"`
	CouponCode    string          `json:"coupon_code,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`
}

// ValidationError carries a user-facing message for 400 responses.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:5])
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), suffix)
}

// CreatePendingOrder validates the cart, prices it against the product
// catalog, applies premium/coupon discounts, reserves the requested cashback
// and inserts the order with its items, all in one transaction. The
// availability check and the reservation it justifies are not separable.
func (s *CheckoutService) CreatePendingOrder(userID string, req CheckoutRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, validationErrorf("Cart is empty")
	}
	if req.SelectedShard == "" {
		return nil, validationErrorf("Shard selection required")
	}
	if req.CashbackToUse.IsNegative() {
		return nil, validationErrorf("Invalid cashback amount")
	}

	var created models.Order

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			return err
		}

		items, subtotal, err := s.priceCart(tx, req.Items)
		if err != nil {
			return err
		}

		premiumDiscount := decimal.Zero
		if user.AccountRank == 1 {
			pct := s.Settings.GetDecimal(models.SettingPremiumDiscountPct, decimal.NewFromInt(10))
			premiumDiscount = subtotal.Mul(pct).Div(oneHundred).Round(2)
		}

		couponDiscount, couponCode, err := s.applyCoupon(tx, req.CouponCode, subtotal)
		if err != nil {
			return err
		}

		payable := subtotal.Sub(premiumDiscount).Sub(couponDiscount)
		if payable.IsNegative() {
			payable = decimal.Zero
		}

		if req.CashbackToUse.IsPositive() {
			// Serialize concurrent checkouts for this user: the availability
			// read below must not race another transaction's order insert.
			if err := s.Ledger.LockBalance(tx, userID); err != nil {
				return err
			}
			available, err := s.Ledger.Available(tx, userID)
			if err != nil {
				return err
			}
			if req.CashbackToUse.GreaterThan(available) {
				return validationErrorf("Insufficient cashback balance. Available: $%s", available.StringFixed(2))
			}
			if req.CashbackToUse.GreaterThan(payable) {
				return validationErrorf("Cashback cannot exceed the order total of $%s", payable.StringFixed(2))
			}
		}

		finalTotal := payable.Sub(req.CashbackToUse)
		if finalTotal.IsNegative() {
			finalTotal = decimal.Zero
		}

		paymentMethod := req.PaymentMethod
		if paymentMethod == "" {
			paymentMethod = "manual_payment"
		}

		order := models.Order{
			OrderNumber:     newOrderNumber(),
			UserID:          userID,
			Status:          models.OrderStatusPending,
			PaymentStatus:   models.PaymentStatusPending,
			Subtotal:        subtotal,
			DiscountAmount:  couponDiscount,
			PremiumDiscount: premiumDiscount,
			CashbackUsed:    req.CashbackToUse.Round(2),
			TotalAmount:     finalTotal,
			Currency:        "USD",
			PaymentMethod:   paymentMethod,
			DeliveryShard:   req.SelectedShard,
			CouponCode:      couponCode,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}

		if couponCode != nil && couponDiscount.IsPositive() {
			if err := tx.Model(&models.Coupon{}).
				Where("code = ?", *couponCode).
				Update("usage_count", gorm.Expr("usage_count + 1")).Error; err != nil {
				return err
			}
		}

		created = order
		created.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// priceCart resolves cart lines against the catalog. Prices always come from
// the product table, never from the client.
func (s *CheckoutService) priceCart(tx *gorm.DB, lines []CartItem) ([]models.OrderItem, decimal.Decimal, error) {
	items := make([]models.OrderItem, 0, len(lines))
	subtotal := decimal.Zero

	for _, line := range lines {
		if line.ProductID == "" || line.Quantity <= 0 {
			return nil, decimal.Zero, validationErrorf("Invalid cart item data")
		}

		var product models.Product
		err := tx.Where("id = ? AND is_active = ?", line.ProductID, true).First(&product).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, decimal.Zero, validationErrorf("Product %s is not available", line.ProductID)
		}
		if err != nil {
			return nil, decimal.Zero, err
		}

		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		items = append(items, models.OrderItem{
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductSlug:  product.Slug,
			ProductImage: product.ImageURL,
			Quantity:     line.Quantity,
			UnitPrice:    product.Price,
			TotalPrice:   lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}
	return items, subtotal, nil
}

// applyCoupon returns the discount for a coupon code, or zero when the code
// is missing, inactive, outside its window, over its limit, or under the
// minimum order amount. A bad coupon never fails the checkout.
func (s *CheckoutService) applyCoupon(tx *gorm.DB, code string, subtotal decimal.Decimal) (decimal.Decimal, *string, error) {
	if code == "" {
		return decimal.Zero, nil, nil
	}

	now := time.Now()
	var coupon models.Coupon
	err := tx.Where("code = ? AND is_active = ?", code, true).
		Where("(starts_at IS NULL OR starts_at <= ?)", now).
		Where("(expires_at IS NULL OR expires_at > ?)", now).
		First(&coupon).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil, nil
	}
	if err != nil {
		return decimal.Zero, nil, err
	}

	if coupon.UsageLimit != nil && coupon.UsageCount >= *coupon.UsageLimit {
		return decimal.Zero, nil, nil
	}
	if coupon.MinimumOrderAmount != nil && subtotal.LessThan(*coupon.MinimumOrderAmount) {
		return decimal.Zero, nil, nil
	}

	var discount decimal.Decimal
	switch coupon.DiscountType {
	case models.CouponTypePercentage:
		discount = subtotal.Mul(coupon.DiscountValue).Div(oneHundred).Round(2)
	case models.CouponTypeFixed:
		discount = coupon.DiscountValue
	default:
		return decimal.Zero, nil, nil
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return discount, &coupon.Code, nil
}
