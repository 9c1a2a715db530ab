package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/ejanapp/api/internal/auth"
	"github.com/ejanapp/api/internal/client"
	"github.com/ejanapp/api/internal/config"
	"github.com/ejanapp/api/internal/handler"
	"github.com/ejanapp/api/internal/middleware"
	"github.com/ejanapp/api/internal/model"
	"github.com/ejanapp/api/internal/repository"
	"github.com/ejanapp/api/internal/service"
	"github.com/ejanapp/api/internal/worker"
	ws "github.com/ejanapp/api/internal/websocket"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing.
type testApp struct {
	app     *fiber.App
	storage *client.MemoryStorage
}

// syncDispatcher runs each video work item inline through the real worker so
// tests observe the state the queue would eventually produce.
type syncDispatcher struct {
	worker *worker.VideoWorker
}

func (d *syncDispatcher) Dispatch(_ context.Context, payload *model.VideoTaskPayload) error {
	task, err := worker.NewVideoGenerateTask(payload)
	if err != nil {
		return err
	}
	// Detached context: queued work outlives the request.
	return d.worker.ProcessTask(context.Background(), task)
}

// setupApp builds the app the way main.go does, with unconfigured external
// clients so every service uses its mock fallback.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	// Points at nothing; the rate limiter fails open when Redis is away.
	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6390", DB: 15})
	t.Cleanup(func() { redisClient.Close() })

	validate := validator.New()
	hub := ws.NewHub()

	geminiClient := client.NewGeminiClient(&config.GeminiConfig{
		TextModel:  "text-model",
		ImageModel: "image-model",
		SubModel:   "sub-model",
	})

	storage := client.NewMemoryStorage()
	tutorialRepo := repository.NewMemoryTutorialRepository()
	styleRepo := repository.NewMemoryStyleRepository()

	videoWorker := worker.NewVideoWorker(nil, nil, storage, tutorialRepo, hub)
	dispatcher := &syncDispatcher{worker: videoWorker}

	structureService := service.NewStructureService(geminiClient, &config.GeminiConfig{})
	imageService := service.NewImageService(geminiClient, &config.GeminiConfig{})
	styleService := service.NewStyleService(imageService, storage, styleRepo)
	uploadService := service.NewUploadService(storage)
	tutorialService := service.NewTutorialService(structureService, imageService, storage, tutorialRepo, styleRepo, dispatcher)

	stylesHandler := handler.NewStylesHandler(styleService, validate)
	tutorialsHandler := handler.NewTutorialsHandler(tutorialService, validate, 240*time.Second)
	uploadHandler := handler.NewUploadHandler(uploadService, validate)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New(fiber.Config{
		BodyLimit: 16 * 1024 * 1024,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"gemini":   false,
				"veo":      false,
				"function": false,
				"storage":  false,
				"auth":     true,
			},
		})
	})

	api := app.Group("/api", authMiddleware.Authenticate())

	styles := api.Group("/styles")
	styles.Post("/generate", rateLimiter.StylesLimit(10000), stylesHandler.Generate)
	styles.Get("/:styleId", stylesHandler.Get)

	tutorials := api.Group("/tutorials")
	tutorials.Post("/generate", rateLimiter.TutorialsLimit(10000), tutorialsHandler.Generate)
	tutorials.Get("/:tutorialId", tutorialsHandler.Get)
	tutorials.Get("/:tutorialId/status", rateLimiter.StatusLimit(10000), tutorialsHandler.Status)

	uploads := api.Group("/uploads", rateLimiter.UploadsLimit(10000))
	uploads.Post("/photo", uploadHandler.Photo)

	return &testApp{app: app, storage: storage}
}

// generateToken creates an HMAC JWT for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	claims := auth.Claims{
		UserID: "test-user-123",
		Email:  "test@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "ejan-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest performs an HTTP request against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses a response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus fails the test if the response status differs.
func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d", want, resp.StatusCode)
	}
}
