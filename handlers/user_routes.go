// handlers/user_routes.go
package handlers

import (
	"uo-storefront/middleware"
	"uo-storefront/services"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, userService *services.UserService) {
	// Signup is public: the gateway has no identity to forward yet.
	app.Post("/auth/signup", userService.Signup)

	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Get("/user/cashback", userService.CashbackBalance)
	secured.Get("/user/cashback/history", userService.CashbackHistory)
	secured.Get("/user/points", userService.Points)
	secured.Get("/user/referral", userService.ReferralStats)
}
