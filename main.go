package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"streetpass-backend/handlers"
	"streetpass-backend/middleware"
	"streetpass-backend/models"
	"streetpass-backend/services"
	"streetpass-backend/utils"
	"streetpass-backend/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // 1MB — JSON-only API
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-Service-Token, X-Device-ID",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Location{},
		&models.LocationStats{},
		&models.CheckIn{},
		&models.Quest{},
		&models.UserQuest{},
		&models.QuestProgressEvent{},
		&models.MintTask{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	userService := services.NewUserService(db)
	locationService := services.NewLocationService(db)
	questService := services.NewQuestService(db, userService)
	checkInService := services.NewCheckInService(db, userService, questService)

	// Operator-tunable admission and dedup knobs
	if radiusStr := os.Getenv("CHECKIN_RADIUS_KM"); radiusStr != "" {
		radius, err := strconv.ParseFloat(radiusStr, 64)
		if err != nil || radius <= 0 {
			log.Fatalf("invalid CHECKIN_RADIUS_KM: %q", radiusStr)
		}
		checkInService.RadiusKm = radius
	}
	if cooldownStr := os.Getenv("CHECKIN_COOLDOWN"); cooldownStr != "" {
		cooldown, err := time.ParseDuration(cooldownStr)
		if err != nil || cooldown < 0 {
			log.Fatalf("invalid CHECKIN_COOLDOWN: %q", cooldownStr)
		}
		checkInService.Cooldown = cooldown
	}

	// Mint outbox worker — settles NFT mints after check-in commit
	mintClient := workers.NewMintRelayClient(db)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go workers.PollMintTasks(ctx, mintClient, 10*time.Second)

	questService.StartExpiryScheduler(5 * time.Minute)

	handlers.SetupUserRoutes(app, userService, checkInService)
	handlers.SetupLocationRoutes(app, locationService, checkInService)
	handlers.SetupCheckInRoutes(app, checkInService)
	handlers.SetupQuestRoutes(app, questService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Mint outbox polling running (every 10s)")
	log.Println("✅ Quest expiry sweep running (every 5m)")
	log.Printf("✅ Check-in radius: %.3f km, cooldown: %s", checkInService.RadiusKm, checkInService.Cooldown)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
