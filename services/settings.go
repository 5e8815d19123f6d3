package services

import (
	"errors"
	"log"
	"strconv"

	"uo-storefront/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsService reads and writes site_settings rows. Missing keys fall back
// to the documented defaults so a fresh database behaves sensibly.
type SettingsService struct {
	DB *gorm.DB
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{DB: db}
}

var settingDefaults = map[string]string{
	models.SettingCustomerCashbackPct: "5",
	models.SettingReferrerBonusPct:    "2.5",
	models.SettingCashbackExpiryDays:  "365",
	models.SettingPremiumDiscountPct:  "10",
	models.SettingReviewPoints:        "10",
	models.SettingCategoryReviewPts:   "5",
	models.SettingImageSubmissionPts:  "20",
}

// Get returns the stored value, or the default for known keys.
func (s *SettingsService) Get(key string) (string, error) {
	var setting models.SiteSetting
	err := s.DB.Where("setting_key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if def, ok := settingDefaults[key]; ok {
			return def, nil
		}
		return "", err
	}
	if err != nil {
		return "", err
	}
	return setting.SettingValue, nil
}

// GetDecimal parses the setting as a decimal, falling back on parse errors.
func (s *SettingsService) GetDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	raw, err := s.Get(key)
	if err != nil {
		return fallback
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		log.Printf("[Settings] Bad decimal for %s: %q", key, raw)
		return fallback
	}
	return v
}

func (s *SettingsService) GetInt(key string, fallback int) int {
	raw, err := s.Get(key)
	if err != nil {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("[Settings] Bad integer for %s: %q", key, raw)
		return fallback
	}
	return v
}

func (s *SettingsService) Set(key, value string) error {
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"setting_value"}),
	}).Create(&models.SiteSetting{SettingKey: key, SettingValue: value}).Error
}

// --- Admin Handlers ---

func (s *SettingsService) GetAllSettings(c *fiber.Ctx) error {
	var settings []models.SiteSetting
	if err := s.DB.Order("setting_key ASC").Find(&settings).Error; err != nil {
		log.Printf("DB Error fetching settings: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch settings"})
	}
	return c.JSON(settings)
}

func (s *SettingsService) UpdateSettings(c *fiber.Ctx) error {
	var req map[string]string
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if len(req) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No settings provided"})
	}

	for key, value := range req {
		if err := s.Set(key, value); err != nil {
			log.Printf("DB Error saving setting %s: %v", key, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save settings"})
		}
	}
	return c.JSON(fiber.Map{"message": "Settings updated successfully"})
}
