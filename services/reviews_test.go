package services

import (
	"net/http/httptest"
	"testing"

	"uo-storefront/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newReviewApp(t *testing.T, db *gorm.DB, userID string) *fiber.App {
	t.Helper()
	svc := NewReviewService(db, NewSettingsService(db))

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Post("/reviews", svc.CreateReview)
	app.Post("/category-reviews", svc.CreateCategoryReview)
	app.Post("/admin/category-reviews/:id/moderate", svc.ModerateCategoryReview)
	app.Post("/admin/reviews/:id/moderate", svc.ModerateReview)
	app.Delete("/admin/reviews/:id", svc.DeleteReview)
	app.Post("/admin/image-submissions/:id/moderate", svc.ModerateImageSubmission)
	return app
}

func userPoints(t *testing.T, db *gorm.DB, userID string) models.UserPoints {
	t.Helper()
	var points models.UserPoints
	require.NoError(t, db.Where("user_id = ?", userID).First(&points).Error)
	return points
}

func TestApproveReviewAwardsPoints(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "writer@example.com")
	app := newReviewApp(t, db, user.ID)

	review := models.ProductReview{UserID: user.ID, ProductID: "p1", Content: "solid", Status: models.ModerationPending}
	require.NoError(t, db.Create(&review).Error)

	req := httptest.NewRequest("POST", "/admin/reviews/"+review.ID+"/moderate",
		jsonBody(t, fiber.Map{"action": "approve"}))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	points := userPoints(t, db, user.ID)
	assert.EqualValues(t, 10, points.CurrentPoints)
	assert.EqualValues(t, 10, points.LifetimePoints)
}

func TestApproveIsNotRepeatable(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "writer@example.com")
	app := newReviewApp(t, db, user.ID)

	review := models.ProductReview{UserID: user.ID, ProductID: "p1", Content: "solid", Status: models.ModerationPending}
	require.NoError(t, db.Create(&review).Error)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/admin/reviews/"+review.ID+"/moderate",
			jsonBody(t, fiber.Map{"action": "approve"}))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	points := userPoints(t, db, user.ID)
	assert.EqualValues(t, 10, points.CurrentPoints)
}

func TestRejectingApprovedReviewRevokesPoints(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "writer@example.com")
	app := newReviewApp(t, db, user.ID)

	review := models.ProductReview{UserID: user.ID, ProductID: "p1", Content: "solid", Status: models.ModerationPending}
	require.NoError(t, db.Create(&review).Error)

	for _, action := range []string{"approve", "reject"} {
		req := httptest.NewRequest("POST", "/admin/reviews/"+review.ID+"/moderate",
			jsonBody(t, fiber.Map{"action": action}))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	points := userPoints(t, db, user.ID)
	assert.EqualValues(t, 0, points.CurrentPoints)
	// Lifetime is history and keeps the original award.
	assert.EqualValues(t, 10, points.LifetimePoints)
}

func TestRevokeClampsAtZero(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "writer@example.com")
	app := newReviewApp(t, db, user.ID)

	// The user was already approved once and then had points spent elsewhere.
	require.NoError(t, db.Create(&models.UserPoints{UserID: user.ID, CurrentPoints: 3, LifetimePoints: 10}).Error)

	review := models.ProductReview{UserID: user.ID, ProductID: "p1", Content: "solid", Status: models.ModerationApproved}
	require.NoError(t, db.Create(&review).Error)

	req := httptest.NewRequest("DELETE", "/admin/reviews/"+review.ID, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	points := userPoints(t, db, user.ID)
	assert.EqualValues(t, 0, points.CurrentPoints)
}

func TestModerateRejectsUnknownAction(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "writer@example.com")
	app := newReviewApp(t, db, user.ID)

	review := models.ProductReview{UserID: user.ID, ProductID: "p1", Content: "solid"}
	require.NoError(t, db.Create(&review).Error)

	req := httptest.NewRequest("POST", "/admin/reviews/"+review.ID+"/moderate",
		jsonBody(t, fiber.Map{"action": "escalate"}))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestApproveImageSubmissionAwardsConfiguredPoints(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "shooter@example.com")
	app := newReviewApp(t, db, user.ID)

	submission := models.ImageSubmission{UserID: user.ID, ImageURL: "https://cdn.example.com/s.png", Status: models.ModerationPending}
	require.NoError(t, db.Create(&submission).Error)

	req := httptest.NewRequest("POST", "/admin/image-submissions/"+submission.ID+"/moderate",
		jsonBody(t, fiber.Map{"action": "approve"}))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	points := userPoints(t, db, user.ID)
	assert.EqualValues(t, 20, points.CurrentPoints)
}

func TestCreateCategoryReviewQueuesForModeration(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "writer@example.com")
	app := newReviewApp(t, db, user.ID)

	body := fiber.Map{"category": "housing", "content": "deep system", "rating": 4}
	req := httptest.NewRequest("POST", "/category-reviews", jsonBody(t, body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var review models.CategoryReview
	require.NoError(t, db.Where("user_id = ? AND category = ?", user.ID, "housing").First(&review).Error)
	assert.Equal(t, models.ModerationPending, review.Status)

	// One review per category per user.
	req = httptest.NewRequest("POST", "/category-reviews", jsonBody(t, body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestCreateCategoryReviewThenApprove(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "writer@example.com")
	app := newReviewApp(t, db, user.ID)

	req := httptest.NewRequest("POST", "/category-reviews",
		jsonBody(t, fiber.Map{"category": "pvp", "content": "balanced"}))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var review models.CategoryReview
	require.NoError(t, db.Where("user_id = ? AND category = ?", user.ID, "pvp").First(&review).Error)

	req = httptest.NewRequest("POST", "/admin/category-reviews/"+review.ID+"/moderate",
		jsonBody(t, fiber.Map{"action": "approve"}))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	points := userPoints(t, db, user.ID)
	assert.EqualValues(t, 5, points.CurrentPoints)
}

func TestCreateCategoryReviewValidation(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "writer@example.com")
	app := newReviewApp(t, db, user.ID)

	for _, body := range []fiber.Map{
		{"category": "", "content": "no category"},
		{"category": "pvp", "content": ""},
		{"category": "pvp", "content": "bad rating", "rating": 6},
	} {
		req := httptest.NewRequest("POST", "/category-reviews", jsonBody(t, body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	}
}

func TestCreateReviewOncePerProduct(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "writer@example.com")
	app := newReviewApp(t, db, user.ID)

	body := fiber.Map{"product_id": "p1", "content": "great", "rating": 5}
	req := httptest.NewRequest("POST", "/reviews", jsonBody(t, body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	req = httptest.NewRequest("POST", "/reviews", jsonBody(t, body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}
