package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"uo-storefront/models"
	"uo-storefront/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReviewService handles moderation of user-submitted content. Approvals award
// points best-effort: a failed point credit is logged and swallowed so the
// moderation action itself still succeeds.
type ReviewService struct {
	DB       *gorm.DB
	Settings *SettingsService
}

func NewReviewService(db *gorm.DB, settings *SettingsService) *ReviewService {
	return &ReviewService{DB: db, Settings: settings}
}

// awardPoints credits the points registry, creating the row lazily.
func (s *ReviewService) awardPoints(userID string, points int64, reason string) error {
	if points <= 0 {
		return nil
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&models.UserPoints{UserID: userID}).Error; err != nil {
			return err
		}
		res := tx.Model(&models.UserPoints{}).
			Where("user_id = ?", userID).
			Updates(map[string]interface{}{
				"current_points":  gorm.Expr("current_points + ?", points),
				"lifetime_points": gorm.Expr("lifetime_points + ?", points),
				"updated_at":      time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		log.Printf("[Points] Awarded %d points to %s (%s)", points, userID, reason)
		return nil
	})
}

// revokePoints claws back points from current_points, clamping at zero.
// Lifetime points are history and stay untouched.
func (s *ReviewService) revokePoints(userID string, points int64, reason string) error {
	if points <= 0 {
		return nil
	}
	res := s.DB.Model(&models.UserPoints{}).
		Where("user_id = ? AND current_points >= ?", userID, points).
		Updates(map[string]interface{}{
			"current_points": gorm.Expr("current_points - ?", points),
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		res = s.DB.Model(&models.UserPoints{}).
			Where("user_id = ?", userID).
			Updates(map[string]interface{}{"current_points": 0, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
	}
	log.Printf("[Points] Revoked %d points from %s (%s)", points, userID, reason)
	return nil
}

type moderationRequest struct {
	Action string `json:"action"`
}

func parseModerationAction(c *fiber.Ctx) (string, error) {
	var req moderationRequest
	if err := c.BodyParser(&req); err != nil {
		return "", err
	}
	if req.Action != "approve" && req.Action != "reject" {
		return "", errors.New("invalid action")
	}
	return req.Action, nil
}

// ModerateReview approves or rejects a product review. Transitioning into
// approved awards points; leaving approved revokes them.
func (s *ReviewService) ModerateReview(c *fiber.Ctx) error {
	action, err := parseModerationAction(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": `Invalid action. Must be "approve" or "reject"`})
	}

	var review models.ProductReview
	if err := s.DB.Where("id = ?", c.Params("id")).First(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Review not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	newStatus := models.ModerationApproved
	if action == "reject" {
		newStatus = models.ModerationRejected
	}
	wasApproved := review.Status == models.ModerationApproved

	if err := s.DB.Model(&review).Update("status", newStatus).Error; err != nil {
		log.Printf("DB Error updating review %s: %v", review.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update review"})
	}

	points := int64(s.Settings.GetInt(models.SettingReviewPoints, 10))
	if newStatus == models.ModerationApproved && !wasApproved {
		if err := s.awardPoints(review.UserID, points, "review approved"); err != nil {
			log.Printf("Point award failed for review %s: %v", review.ID, err)
		}
	} else if newStatus == models.ModerationRejected && wasApproved {
		if err := s.revokePoints(review.UserID, points, "review rejected"); err != nil {
			log.Printf("Point revoke failed for review %s: %v", review.ID, err)
		}
	}

	review.Status = newStatus
	return c.JSON(fiber.Map{"message": "Review " + action + "d successfully", "review": review})
}

// DeleteReview removes a review; deleting an approved one revokes its points.
func (s *ReviewService) DeleteReview(c *fiber.Ctx) error {
	var review models.ProductReview
	if err := s.DB.Where("id = ?", c.Params("id")).First(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Review not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if err := s.DB.Delete(&review).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete review"})
	}

	if review.Status == models.ModerationApproved {
		points := int64(s.Settings.GetInt(models.SettingReviewPoints, 10))
		if err := s.revokePoints(review.UserID, points, "approved review deleted"); err != nil {
			log.Printf("Point revoke failed for deleted review %s: %v", review.ID, err)
		}
	}
	return c.JSON(fiber.Map{"message": "Review deleted successfully"})
}

// ModerateCategoryReview mirrors ModerateReview for category reviews.
func (s *ReviewService) ModerateCategoryReview(c *fiber.Ctx) error {
	action, err := parseModerationAction(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": `Invalid action. Must be "approve" or "reject"`})
	}

	var review models.CategoryReview
	if err := s.DB.Where("id = ?", c.Params("id")).First(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Review not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	newStatus := models.ModerationApproved
	if action == "reject" {
		newStatus = models.ModerationRejected
	}
	wasApproved := review.Status == models.ModerationApproved

	if err := s.DB.Model(&review).Update("status", newStatus).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update review"})
	}

	points := int64(s.Settings.GetInt(models.SettingCategoryReviewPts, 5))
	if newStatus == models.ModerationApproved && !wasApproved {
		if err := s.awardPoints(review.UserID, points, "category review approved"); err != nil {
			log.Printf("Point award failed for category review %s: %v", review.ID, err)
		}
	} else if newStatus == models.ModerationRejected && wasApproved {
		if err := s.revokePoints(review.UserID, points, "category review rejected"); err != nil {
			log.Printf("Point revoke failed for category review %s: %v", review.ID, err)
		}
	}

	review.Status = newStatus
	return c.JSON(fiber.Map{"message": "Review " + action + "d successfully", "review": review})
}

// ModerateImageSubmission approves or rejects a screenshot submission.
func (s *ReviewService) ModerateImageSubmission(c *fiber.Ctx) error {
	action, err := parseModerationAction(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": `Invalid action. Must be "approve" or "reject"`})
	}

	var submission models.ImageSubmission
	if err := s.DB.Where("id = ?", c.Params("id")).First(&submission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Submission not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	newStatus := models.ModerationApproved
	if action == "reject" {
		newStatus = models.ModerationRejected
	}
	wasApproved := submission.Status == models.ModerationApproved

	if err := s.DB.Model(&submission).Update("status", newStatus).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update submission"})
	}

	points := int64(s.Settings.GetInt(models.SettingImageSubmissionPts, 20))
	if newStatus == models.ModerationApproved && !wasApproved {
		if err := s.awardPoints(submission.UserID, points, "image submission approved"); err != nil {
			log.Printf("Point award failed for submission %s: %v", submission.ID, err)
		}
	} else if newStatus == models.ModerationRejected && wasApproved {
		if err := s.revokePoints(submission.UserID, points, "image submission rejected"); err != nil {
			log.Printf("Point revoke failed for submission %s: %v", submission.ID, err)
		}
	}

	submission.Status = newStatus
	return c.JSON(fiber.Map{"message": "Submission " + action + "d successfully", "submission": submission})
}

// DeleteImageSubmission removes a submission, revoking points if it had been
// approved.
func (s *ReviewService) DeleteImageSubmission(c *fiber.Ctx) error {
	var submission models.ImageSubmission
	if err := s.DB.Where("id = ?", c.Params("id")).First(&submission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Submission not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if err := s.DB.Delete(&submission).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete submission"})
	}

	if submission.Status == models.ModerationApproved {
		points := int64(s.Settings.GetInt(models.SettingImageSubmissionPts, 20))
		if err := s.revokePoints(submission.UserID, points, "approved submission deleted"); err != nil {
			log.Printf("Point revoke failed for deleted submission %s: %v", submission.ID, err)
		}
	}
	return c.JSON(fiber.Map{"message": "Submission deleted successfully"})
}

// CreateCategoryReview lets an authenticated user review a whole catalog
// category. One review per category per user.
func (s *ReviewService) CreateCategoryReview(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Category string `json:"category"`
		Rating   *int   `json:"rating"`
		Content  string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Category == "" || req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Category and content are required"})
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Rating must be between 1 and 5"})
	}

	var existing int64
	s.DB.Model(&models.CategoryReview{}).
		Where("user_id = ? AND category = ?", userID, req.Category).
		Count(&existing)
	if existing > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "You have already reviewed this category"})
	}

	review := models.CategoryReview{
		UserID:   userID,
		Category: req.Category,
		Rating:   req.Rating,
		Content:  req.Content,
		Status:   models.ModerationPending,
	}
	if err := s.DB.Create(&review).Error; err != nil {
		log.Printf("DB Error creating category review: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create review"})
	}
	return c.Status(fiber.StatusCreated).JSON(review)
}

// CreateImageSubmission stores a user's screenshot on the CDN and queues it
// for moderation.
func (s *ReviewService) CreateImageSubmission(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Image file is required"})
	}

	key := fmt.Sprintf("submissions/%s-%s", userID, uuid.NewString()[:8])
	url, err := utils.UploadFileToCDN(fileHeader, key)
	if err != nil {
		log.Printf("CDN upload failed for submission by %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload image"})
	}

	submission := models.ImageSubmission{
		UserID:   userID,
		ImageURL: url,
		Caption:  c.FormValue("caption"),
		Status:   models.ModerationPending,
	}
	if err := s.DB.Create(&submission).Error; err != nil {
		log.Printf("DB Error creating image submission: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create submission"})
	}
	return c.Status(fiber.StatusCreated).JSON(submission)
}

// CreateReview lets an authenticated user submit a product review.
func (s *ReviewService) CreateReview(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		ProductID string `json:"product_id"`
		Rating    *int   `json:"rating"`
		Title     string `json:"title"`
		Content   string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.ProductID == "" || req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Product and content are required"})
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Rating must be between 1 and 5"})
	}

	var existing int64
	s.DB.Model(&models.ProductReview{}).
		Where("user_id = ? AND product_id = ?", userID, req.ProductID).
		Count(&existing)
	if existing > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "You have already reviewed this product"})
	}

	review := models.ProductReview{
		UserID:    userID,
		ProductID: req.ProductID,
		Rating:    req.Rating,
		Title:     req.Title,
		Content:   req.Content,
		Status:    models.ModerationPending,
	}
	if err := s.DB.Create(&review).Error; err != nil {
		log.Printf("DB Error creating review: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create review"})
	}
	return c.Status(fiber.StatusCreated).JSON(review)
}
