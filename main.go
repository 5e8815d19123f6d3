package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"uo-storefront/handlers"
	"uo-storefront/models"
	"uo-storefront/services"
	"uo-storefront/utils"
	"uo-storefront/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // 20MB, enough for product images
	})

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitCDN(); err != nil {
		log.Fatal("failed to initialize CDN client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.UserPoints{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.CashbackBalance{},
		&models.CashbackTransaction{},
		&models.ReferralCode{},
		&models.Referral{},
		&models.Coupon{},
		&models.ProductReview{},
		&models.CategoryReview{},
		&models.ImageSubmission{},
		&models.SiteSetting{},
		&models.IPNLog{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	settingsService := services.NewSettingsService(db)
	ledgerService := services.NewLedgerService(db)
	referralService := services.NewReferralService(db)
	settlementService := services.NewSettlementService(db, ledgerService, settingsService)
	checkoutService := services.NewCheckoutService(db, ledgerService, settingsService)
	orderService := services.NewOrderService(db, ledgerService, settlementService)
	userService := services.NewUserService(db, ledgerService, referralService)
	productService := services.NewProductService(db)
	reviewService := services.NewReviewService(db, settingsService)
	maintenanceService := services.NewMaintenanceService(db, ledgerService, settingsService)
	paypalClient := services.NewPayPalClient()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reconciliationWorker := workers.NewReconciliationWorker(db, paypalClient, settlementService)
	go reconciliationWorker.Poll(ctx, 5*time.Minute)

	maintenanceService.StartScheduler()

	handlers.SetupUserRoutes(app, userService)
	handlers.SetupProductRoutes(app, productService, reviewService)
	handlers.SetupOrderRoutes(app, orderService)
	handlers.SetupPaymentRoutes(app, checkoutService, paypalClient, settlementService, settingsService, orderService)
	handlers.SetupAdminRoutes(app, settingsService, reviewService, settlementService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("Server running on http://localhost:%s", port)
	log.Println("Payment reconciliation polling running (every 5m)")
	log.Printf("CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
