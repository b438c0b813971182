package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/tracksandtaps/taps_core/internal/api"
	"github.com/tracksandtaps/taps_core/internal/cache"
	"github.com/tracksandtaps/taps_core/internal/db"
	"github.com/tracksandtaps/taps_core/internal/middleware"
	"github.com/tracksandtaps/taps_core/internal/navigation"
	"github.com/tracksandtaps/taps_core/internal/obs"
	"github.com/tracksandtaps/taps_core/internal/routing"
	"github.com/tracksandtaps/taps_core/internal/store"
	"github.com/tracksandtaps/taps_core/internal/tourmetrics"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	log.Println("Starting Tracks & Taps API server...")

	obs.SetDebug(getEnvBool("LOG_DEBUG", false))
	if obs.DebugEnabled() {
		log.Println("✓ Debug logging enabled")
	}

	// Initialize database connection
	pool, err := db.GetDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("✓ Database connection established")

	// Initialize Redis connection
	rdb, err := cache.GetClient()
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer cache.Close()
	log.Println("✓ Redis connection established")

	routeCfg := routing.LoadConfigFromEnv()
	routes := routing.NewRouteComputer(routing.NewOSRMClient(routeCfg), routeCfg)
	log.Printf("✓ Path finder %s (profile=%s timeout=%s detour=%.1fx)",
		routeCfg.BaseURL, routeCfg.Profile, routeCfg.Timeout, routeCfg.DetourFactor)

	nav := navigation.NewRegistry(routes, navigation.LoadConfigFromEnv())
	defer nav.CloseAll()

	draftTTL, err := time.ParseDuration(getEnv("DRAFT_IDLE_TTL", "2h"))
	if err != nil {
		draftTTL = 2 * time.Hour
	}

	handler := api.NewHandler(api.Options{
		Routes:     routes,
		Navigation: nav,
		Drafts:     tourmetrics.NewDrafts(draftTTL),
		Tours:      store.NewTourStore(pool),
		Cache:      cache.NewRouteCache(rdb, cache.LoadConfigFromEnv()),
		DB:         pool,
		Redis:      rdb,
	})

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Tracks & Taps API",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
	}))

	if getEnvBool("ENABLE_RATE_LIMIT", true) {
		app.Use("/v1", middleware.RateLimitMiddleware(rdb, middleware.LoadRateLimitConfigFromEnv()))
		log.Println("✓ Rate limiting middleware enabled")
	}

	handler.Register(app)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})

	// Get port from environment
	port := getEnv("API_PORT", "8080")
	addr := fmt.Sprintf(":%s", port)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("🚀 Server listening on http://localhost%s", addr)
	log.Printf("📍 Foot route: http://localhost%s/v1/routes/foot?from=LAT,LON&to=LAT,LON", addr)
	log.Printf("❤️  Health check: http://localhost%s/health", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// customErrorHandler handles errors returned from handlers
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error: %v", err)

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return b
}
