// handlers/admin_routes.go
package handlers

import (
	"uo-storefront/middleware"
	"uo-storefront/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAdminRoutes(app *fiber.App, settingsService *services.SettingsService, reviewService *services.ReviewService, settlementService *services.SettlementService) {
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.AdminRequired())

	admin.Get("/settings", settingsService.GetAllSettings)
	admin.Put("/settings", settingsService.UpdateSettings)
	admin.Get("/ipn-logs", settlementService.ListIPNLogs)

	// Content moderation. Approvals and rejections carry points side effects.
	admin.Post("/reviews/:id/moderate", reviewService.ModerateReview)
	admin.Delete("/reviews/:id", reviewService.DeleteReview)
	admin.Post("/category-reviews/:id/moderate", reviewService.ModerateCategoryReview)
	admin.Post("/image-submissions/:id/moderate", reviewService.ModerateImageSubmission)
	admin.Delete("/image-submissions/:id", reviewService.DeleteImageSubmission)
}
