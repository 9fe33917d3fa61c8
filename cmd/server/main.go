package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/joho/godotenv"
	"github.com/noteshare-io/noteshare/internal/config"
	"github.com/noteshare-io/noteshare/internal/database"
	"github.com/noteshare-io/noteshare/internal/handlers"
	"github.com/noteshare-io/noteshare/internal/mailer"
	"github.com/noteshare-io/noteshare/internal/media"
	"github.com/noteshare-io/noteshare/internal/middleware"
	"github.com/noteshare-io/noteshare/internal/services"
	"github.com/noteshare-io/noteshare/internal/types"

	_ "github.com/noteshare-io/noteshare/docs/api" // Swagger docs
)

// @title Noteshare API
// @version 1.0.0
// @description PDF note-sharing service: OTP-verified accounts, session auth, PDF uploads with first-page thumbnails
// @contact.name API Support
// @contact.url https://github.com/noteshare-io/noteshare

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name session_id

func main() {
	// Load .env when present; real deployments set the environment directly
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Object storage
	blobs, err := media.NewMinioStore(media.MinioConfig{
		Endpoint:  cfg.StorageEndpoint,
		Region:    cfg.StorageRegion,
		Bucket:    cfg.StorageBucket,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		UseSSL:    cfg.StorageUseSSL,
		PublicURL: cfg.StoragePublicURL,
	})
	if err != nil {
		log.Fatalf("Failed to create storage client: %v", err)
	}

	uploader := &media.Uploader{
		Blobs:              blobs,
		Raster:             media.FitzRasterizer{},
		DisableLocalRaster: cfg.DisableLocalRaster,
	}
	if cfg.DisableLocalRaster {
		log.Println("Local rasterization disabled; notes will be created without thumbnails")
	}

	// Sessions and OTP state; Redis shares both across instances when configured
	var sessionStorage fiber.Storage
	var codeStore services.CodeStore = services.NewMemoryCodeStore()
	if cfg.RedisAddr != "" {
		sessionStorage = middleware.NewRedisStorage(cfg.RedisAddr, cfg.RedisPassword)
		codeStore = services.NewRedisCodeStore(cfg.RedisAddr, cfg.RedisPassword)
		log.Printf("Using Redis at %s for sessions and OTP codes", cfg.RedisAddr)
	}
	sessions := middleware.NewSessionStore(cfg, sessionStorage)

	otp := services.NewOTPService(db, codeStore,
		mailer.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom),
		cfg.OTPTTL)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    50 * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("noteshare")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Create handlers
	authHandler := &handlers.AuthHandler{DB: db, OTP: otp, Sessions: sessions}
	noteHandler := &handlers.NoteHandler{DB: db, Uploader: uploader, Blobs: blobs}
	profileHandler := &handlers.ProfileHandler{DB: db, Sessions: sessions, Blobs: blobs}
	healthHandler := &handlers.HealthHandler{Cfg: cfg, DB: db}

	requireAuth := middleware.RequireAuth(sessions)
	optionalAuth := middleware.OptionalAuth(sessions)

	// Account routes
	app.Post("/register", authHandler.Register)
	app.Post("/login", authHandler.Login)
	app.Post("/logout", authHandler.Logout)

	// API routes under /api
	api := app.Group("/api")

	api.Get("/health", healthHandler.Check)

	// OTP routes
	api.Post("/send-otp", authHandler.SendOTP)
	api.Post("/verify-otp", authHandler.VerifyOTP)
	api.Post("/password-reset/send-otp", authHandler.SendResetOTP)
	api.Post("/password-reset/verify-otp", authHandler.VerifyResetOTP)
	api.Post("/password-reset/confirm", authHandler.ConfirmReset)

	// Note routes (reads are public, mutations need a session)
	notes := api.Group("/notes")
	notes.Get("/", optionalAuth, noteHandler.List)
	notes.Get("/user/:username", optionalAuth, noteHandler.ListByUser)
	notes.Get("/download/:id", noteHandler.Download)
	notes.Post("/create", requireAuth, noteHandler.Create)
	notes.Post("/upload", requireAuth, noteHandler.Upload)
	notes.Get("/:id", optionalAuth, noteHandler.GetOne)
	notes.Delete("/:id", requireAuth, noteHandler.Delete)

	// Profile routes
	profile := api.Group("/profile", requireAuth)
	profile.Post("/", profileHandler.Update)
	profile.Post("/password", profileHandler.UpdatePassword)
	profile.Post("/delete-account", profileHandler.DeleteAccount)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "[404] Resource Not Found",
		})
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// customErrorHandler keeps stray errors inside the response envelope
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()

	var ce *types.CustomError
	var fe *fiber.Error
	switch {
	case errors.As(err, &ce):
		code = ce.Code
		message = ce.Message
	case errors.As(err, &fe):
		code = fe.Code
		message = fe.Message
	}

	// Upstream detail stays in the logs, not the response
	if code >= fiber.StatusInternalServerError {
		log.Printf("Request failed: %v (%s %s)", err, c.Method(), c.OriginalURL())
		message = "Something went wrong"
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
