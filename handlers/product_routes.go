// handlers/product_routes.go
package handlers

import (
	"uo-storefront/middleware"
	"uo-storefront/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProductRoutes(app *fiber.App, productService *services.ProductService, reviewService *services.ReviewService) {
	// Public catalog
	app.Get("/products", productService.ListProducts)
	app.Get("/products/:slug", productService.GetProductBySlug)

	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/reviews", reviewService.CreateReview)
	secured.Post("/category-reviews", reviewService.CreateCategoryReview)
	secured.Post("/image-submissions", reviewService.CreateImageSubmission)

	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.AdminRequired())

	admin.Post("/products", productService.CreateProduct)
	admin.Put("/products/:id", productService.UpdateProduct)
	admin.Delete("/products/:id", productService.DeleteProduct)
	admin.Post("/products/:id/image", productService.UploadProductImage)
}
