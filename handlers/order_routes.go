// handlers/order_routes.go
package handlers

import (
	"uo-storefront/middleware"
	"uo-storefront/services"

	"github.com/gofiber/fiber/v2"
)

func SetupOrderRoutes(app *fiber.App, orderService *services.OrderService) {
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Get("/orders", orderService.GetUserOrders)
	secured.Get("/orders/:id", orderService.GetUserOrder)
	secured.Delete("/orders/:id", orderService.DeleteUserOrder)

	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.AdminRequired())

	admin.Get("/orders", orderService.AdminListOrders)
	admin.Get("/orders/:id", orderService.AdminGetOrder)
	admin.Patch("/orders/:id", orderService.AdminUpdateOrder)
	admin.Delete("/orders/:id", orderService.AdminDeleteOrder)
}
