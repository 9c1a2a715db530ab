package main

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ejanapp/api/internal/client"
	"github.com/ejanapp/api/internal/config"
	"github.com/ejanapp/api/internal/model"
	"github.com/ejanapp/api/internal/videogen"
	"github.com/ejanapp/api/pkg/response"
)

// The video function is deployed separately from the API server. It accepts
// one request per step video, runs the generation delegate to completion and
// reports the outcome. Its wall-clock budget caps each run.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	level, lerr := zerolog.ParseLevel(strings.ToLower(cfg.Server.LogLevel))
	if lerr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Server.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	veoClient := client.NewVeoClient(&cfg.Veo)

	var storage client.StorageClient
	if s3Client, serr := client.NewS3Client(&cfg.Storage); serr != nil {
		log.Warn().Err(serr).Msg("Object storage not configured, using in-memory storage")
		storage = client.NewMemoryStorage()
	} else {
		storage = s3Client
	}

	delegate := videogen.NewDelegate(
		veoClient,
		storage,
		time.Duration(cfg.Veo.PollInterval)*time.Second,
		time.Duration(cfg.Veo.Timeout)*time.Second,
	)

	validate := validator.New()

	app := fiber.New(fiber.Config{
		// Requests hold the connection open for the whole generation run.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Duration(cfg.Veo.Timeout+60) * time.Second,
	})
	app.Use(recover.New())
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"veo":    veoClient.IsConfigured(),
		})
	})

	app.Post("/", func(c *fiber.Ctx) error {
		var req model.VideoFunctionRequest
		if err := c.BodyParser(&req); err != nil {
			return response.ValidationError(c, "Invalid request body", nil)
		}
		if err := validate.Struct(&req); err != nil {
			return response.ValidationError(c, "Validation failed", nil)
		}

		result := delegate.Generate(c.Context(), &req)
		switch result.State {
		case videogen.StateDone:
			return c.JSON(model.VideoFunctionResponse{
				Status:   model.VideoFunctionStatusSuccess,
				VideoURL: result.VideoURL,
				Duration: int(result.Duration.Seconds()),
			})
		case videogen.StateTimedOut:
			return c.Status(fiber.StatusGatewayTimeout).JSON(model.VideoFunctionResponse{
				Status:   model.VideoFunctionStatusFailed,
				Duration: int(result.Duration.Seconds()),
				Error:    result.Err.Error(),
			})
		default:
			return c.Status(fiber.StatusBadGateway).JSON(model.VideoFunctionResponse{
				Status:   model.VideoFunctionStatusFailed,
				Duration: int(result.Duration.Seconds()),
				Error:    result.Err.Error(),
			})
		}
	})

	addr := ":" + cfg.Server.Port
	log.Info().Str("addr", addr).Msg("Video function starting")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
}
