package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ejanapp/api/internal/client"
	"github.com/ejanapp/api/internal/config"
	"github.com/ejanapp/api/internal/handler"
	"github.com/ejanapp/api/internal/middleware"
	"github.com/ejanapp/api/internal/repository"
	"github.com/ejanapp/api/internal/service"
	"github.com/ejanapp/api/internal/videogen"
	"github.com/ejanapp/api/internal/worker"
	ws "github.com/ejanapp/api/internal/websocket"
)

// @title          Ejan API
// @version        1.0
// @description    Backend API for Ejan, AI-assisted makeup and hairstyle tutorials.
// @host           localhost:8000
// @BasePath       /
// @schemes        http https
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	setupLogging(cfg)

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	redisAvailable := true
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("Redis not available, using in-memory stores")
		redisAvailable = false
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()

	// Initialize external clients
	geminiClient := client.NewGeminiClient(&cfg.Gemini)
	veoClient := client.NewVeoClient(&cfg.Veo)
	functionClient := client.NewFunctionClient(&cfg.Function)

	// Initialize storage (falls back to in-memory when not configured)
	var storage client.StorageClient
	storageConfigured := false
	if s3Client, err := client.NewS3Client(&cfg.Storage); err != nil {
		log.Warn().Err(err).Msg("Object storage not configured, using in-memory storage")
		storage = client.NewMemoryStorage()
	} else {
		storage = s3Client
		storageConfigured = true
	}

	// Initialize repositories
	var tutorialRepo repository.TutorialRepository
	var styleRepo repository.StyleRepository
	if redisAvailable {
		tutorialRepo = repository.NewRedisTutorialRepository(redisClient)
		styleRepo = repository.NewRedisStyleRepository(redisClient)
	} else {
		tutorialRepo = repository.NewMemoryTutorialRepository()
		styleRepo = repository.NewMemoryStyleRepository()
	}

	// Initialize services
	structureService := service.NewStructureService(geminiClient, &cfg.Gemini)
	imageService := service.NewImageService(geminiClient, &cfg.Gemini)
	styleService := service.NewStyleService(imageService, storage, styleRepo)
	uploadService := service.NewUploadService(storage)
	dispatcher := worker.NewAsynqDispatcher(asynqClient)
	tutorialService := service.NewTutorialService(structureService, imageService, storage, tutorialRepo, styleRepo, dispatcher)

	// Initialize handlers
	stylesHandler := handler.NewStylesHandler(styleService, validate)
	tutorialsHandler := handler.NewTutorialsHandler(tutorialService, validate, time.Duration(cfg.Server.RequestTimeout)*time.Second)
	uploadHandler := handler.NewUploadHandler(uploadService, validate)

	// Initialize auth middleware
	var apiAuthMiddleware fiber.Handler
	if cfg.Gateway.Enabled {
		log.Info().Msg("Gateway mode enabled, using header-based auth")
		apiAuthMiddleware = middleware.GatewayAuthMiddleware()
	} else {
		apiAuthMiddleware = middleware.NewAuthMiddleware(cfg.JWT.Secret).Authenticate()
	}
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    16 * 1024 * 1024, // fits a 10MB photo with base64 overhead
	})

	// Global middleware
	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams}\n"
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"gemini":   geminiClient.IsConfigured(),
				"veo":      veoClient.IsConfigured(),
				"function": functionClient.IsConfigured(),
				"storage":  storageConfigured,
				"redis":    redisAvailable,
				"auth":     cfg.JWT.Secret != "" || cfg.Gateway.Enabled,
			},
		})
	})

	// API routes
	api := app.Group("/api", apiAuthMiddleware)

	// Style routes
	styles := api.Group("/styles")
	styles.Post("/generate", rateLimiter.StylesLimit(cfg.RateLimit.StylesPerHour), stylesHandler.Generate)
	styles.Get("/:styleId", stylesHandler.Get)

	// Tutorial routes
	tutorials := api.Group("/tutorials")
	tutorials.Post("/generate", rateLimiter.TutorialsLimit(cfg.RateLimit.TutorialsPerHour), tutorialsHandler.Generate)
	tutorials.Get("/:tutorialId", tutorialsHandler.Get)
	tutorials.Get("/:tutorialId/status", rateLimiter.StatusLimit(cfg.RateLimit.StatusPerMin), tutorialsHandler.Status)

	// Upload routes
	uploads := api.Group("/uploads", rateLimiter.UploadsLimit(cfg.RateLimit.UploadsPerHour))
	uploads.Post("/photo", uploadHandler.Photo)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/tutorials/:tutorialId", websocket.New(func(c *websocket.Conn) {
		tutorialID := c.Params("tutorialId")
		hub.HandleConnection(c, tutorialID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, functionClient, veoClient, storage, tutorialRepo, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Info().Str("addr", addr).Msg("Server starting")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
}

func startWorkerServer(
	cfg *config.Config,
	functionClient *client.FunctionClient,
	veoClient *client.VeoClient,
	storage client.StorageClient,
	tutorialRepo repository.TutorialRepository,
	hub *ws.Hub,
) {
	asynqLogLevel := asynq.InfoLevel
	switch {
	case strings.EqualFold(cfg.Server.LogLevel, "debug"):
		asynqLogLevel = asynq.DebugLevel
	case strings.EqualFold(cfg.Server.LogLevel, "warn"):
		asynqLogLevel = asynq.WarnLevel
	case strings.EqualFold(cfg.Server.LogLevel, "error"):
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				worker.QueueVideo: 8,
				"default":         2,
			},
			LogLevel: asynqLogLevel,
		},
	)

	// Without a deployed function the worker runs the delegate in process.
	var delegate *videogen.Delegate
	if veoClient.IsConfigured() {
		delegate = videogen.NewDelegate(
			veoClient,
			storage,
			time.Duration(cfg.Veo.PollInterval)*time.Second,
			time.Duration(cfg.Veo.Timeout)*time.Second,
		)
	}

	videoWorker := worker.NewVideoWorker(functionClient, delegate, storage, tutorialRepo, hub)

	mux := asynq.NewServeMux()
	mux.HandleFunc(worker.TypeVideoGenerate, videoWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Error().Err(err).Msg("Asynq worker error")
	}
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Server.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Server.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
