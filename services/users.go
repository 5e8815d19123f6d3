package services

import (
	"errors"
	"log"
	"strings"

	"uo-storefront/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService covers signup plus the account-facing balance and referral
// endpoints.
type UserService struct {
	DB       *gorm.DB
	Ledger   *LedgerService
	Referral *ReferralService
}

func NewUserService(db *gorm.DB, ledger *LedgerService, referral *ReferralService) *UserService {
	return &UserService{DB: db, Ledger: ledger, Referral: referral}
}

// Signup creates an account. A supplied referral code is processed
// best-effort: a bad code never fails the signup.
func (s *UserService) Signup(c *fiber.Ctx) error {
	var req struct {
		Email        string `json:"email"`
		Username     string `json:"username"`
		Password     string `json:"password"`
		MainShard    string `json:"main_shard"`
		ReferralCode string `json:"referral_code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Username == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email and username are required"})
	}
	if len(req.Password) < 8 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Password must be at least 8 characters"})
	}

	var existing int64
	if err := s.DB.Model(&models.User{}).Where("email = ?", req.Email).Count(&existing).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if existing > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "An account with this email already exists"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create account"})
	}

	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hash),
		MainShard:    req.MainShard,
	}
	if err := s.DB.Create(&user).Error; err != nil {
		log.Printf("DB Error creating user: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create account"})
	}

	if err := s.DB.Create(&models.UserPoints{UserID: user.ID}).Error; err != nil {
		log.Printf("Failed to create points record for %s: %v", user.ID, err)
	}

	if req.ReferralCode != "" {
		if _, err := s.Referral.RecordReferral(req.ReferralCode, user.ID); err != nil {
			log.Printf("Referral processing failed for %s: %v", user.ID, err)
		}
	}

	if _, err := s.Referral.GetOrCreateCode(user.ID); err != nil {
		log.Printf("Referral code creation failed for %s: %v", user.ID, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":       user.ID,
		"email":    user.Email,
		"username": user.Username,
	})
}

// CashbackBalance reports the raw balance, the amount tied up in pending
// reservations, and what remains available for new checkouts.
func (s *UserService) CashbackBalance(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	balance, err := s.Ledger.Balance(s.DB, userID)
	if err != nil {
		log.Printf("DB Error fetching balance for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch balance"})
	}
	reserved, err := s.Ledger.PendingReservations(s.DB, userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch balance"})
	}
	available := balance.Sub(reserved)
	if available.IsNegative() {
		available = decimal.Zero
	}

	return c.JSON(fiber.Map{
		"balance":              balance,
		"pending_reservations": reserved,
		"available":            available,
	})
}

// CashbackHistory returns the user's ledger entries.
func (s *UserService) CashbackHistory(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	txns, err := s.Ledger.Transactions(userID, c.QueryInt("limit", 50))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch transactions"})
	}
	return c.JSON(txns)
}

// Points returns the review-points registry figures.
func (s *UserService) Points(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var points models.UserPoints
	err := s.DB.Where("user_id = ?", userID).First(&points).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(fiber.Map{"current_points": 0, "lifetime_points": 0})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch points"})
	}
	return c.JSON(fiber.Map{
		"current_points":  points.CurrentPoints,
		"lifetime_points": points.LifetimePoints,
	})
}

// ReferralStats exposes the user's code and referral figures.
func (s *UserService) ReferralStats(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	stats, err := s.Referral.Stats(userID)
	if err != nil {
		log.Printf("DB Error fetching referral stats for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch referral stats"})
	}
	return c.JSON(stats)
}
