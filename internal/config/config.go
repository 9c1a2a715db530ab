package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Gemini    GeminiConfig
	Veo       VeoConfig
	Storage   StorageConfig
	Function  FunctionConfig
	Gateway   GatewayConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	ApiDomain      string
	RequestTimeout int // seconds, cap for a tutorial generation request
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	StylesPerHour    int
	TutorialsPerHour int
	UploadsPerHour   int
	StatusPerMin     int
}

// GeminiConfig covers the text structuring and image generation models.
type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ImageModel string
	SubModel   string // lightweight model for localized titles
}

// VeoConfig covers the long-running video generation API used by the delegate.
type VeoConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	PollInterval int // seconds between operation polls
	Timeout      int // wall-clock budget in seconds
}

type StorageConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

// FunctionConfig points the backend at the deployed video generation function.
type FunctionConfig struct {
	URL     string
	Timeout int // seconds; must exceed the delegate's own budget
}

type GatewayConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("GEMINI_API_KEY")
	readSecret("VEO_API_KEY")
	readSecret("STORAGE_ACCESS_KEY_ID")
	readSecret("STORAGE_SECRET_ACCESS_KEY")
	readSecret("JWT_SECRET")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.api_domain", "API_DOMAIN")
	_ = viper.BindEnv("server.request_timeout", "REQUEST_TIMEOUT")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	_ = viper.BindEnv("gemini.base_url", "GEMINI_BASE_URL")
	_ = viper.BindEnv("gemini.text_model", "GEMINI_TEXT_MODEL")
	_ = viper.BindEnv("gemini.image_model", "GEMINI_IMAGE_MODEL")
	_ = viper.BindEnv("gemini.sub_model", "GEMINI_SUB_MODEL")
	_ = viper.BindEnv("veo.api_key", "VEO_API_KEY")
	_ = viper.BindEnv("veo.base_url", "VEO_BASE_URL")
	_ = viper.BindEnv("veo.model", "VEO_MODEL")
	_ = viper.BindEnv("veo.poll_interval", "VEO_POLL_INTERVAL")
	_ = viper.BindEnv("veo.timeout", "VEO_TIMEOUT")
	_ = viper.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	_ = viper.BindEnv("storage.region", "STORAGE_REGION")
	_ = viper.BindEnv("storage.access_key_id", "STORAGE_ACCESS_KEY_ID")
	_ = viper.BindEnv("storage.secret_access_key", "STORAGE_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("storage.bucket_name", "STORAGE_BUCKET_NAME")
	_ = viper.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")
	_ = viper.BindEnv("function.url", "VIDEO_FUNCTION_URL")
	_ = viper.BindEnv("function.timeout", "VIDEO_FUNCTION_TIMEOUT")
	_ = viper.BindEnv("gateway.enabled", "GATEWAY_ENABLED")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("server.request_timeout", 240)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.styles_per_hour", 20)
	viper.SetDefault("ratelimit.tutorials_per_hour", 10)
	viper.SetDefault("ratelimit.uploads_per_hour", 50)
	viper.SetDefault("ratelimit.status_per_min", 120)

	// Gemini defaults
	viper.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	viper.SetDefault("gemini.text_model", "gemini-2.0-flash-exp")
	viper.SetDefault("gemini.image_model", "gemini-2.5-flash-image-preview")
	viper.SetDefault("gemini.sub_model", "gemini-2.0-flash-lite")

	// Veo defaults
	viper.SetDefault("veo.base_url", "https://generativelanguage.googleapis.com/v1beta")
	viper.SetDefault("veo.model", "veo-3.0-generate-001")
	viper.SetDefault("veo.poll_interval", 10)
	viper.SetDefault("veo.timeout", 540)

	// Storage defaults
	viper.SetDefault("storage.region", "auto")

	// Function defaults
	viper.SetDefault("function.timeout", 600)

	// Gateway defaults
	viper.SetDefault("gateway.enabled", false)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:           viper.GetString("server.port"),
			Env:            viper.GetString("server.env"),
			LogLevel:       viper.GetString("server.log_level"),
			ApiDomain:      viper.GetString("server.api_domain"),
			RequestTimeout: viper.GetInt("server.request_timeout"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			StylesPerHour:    viper.GetInt("ratelimit.styles_per_hour"),
			TutorialsPerHour: viper.GetInt("ratelimit.tutorials_per_hour"),
			UploadsPerHour:   viper.GetInt("ratelimit.uploads_per_hour"),
			StatusPerMin:     viper.GetInt("ratelimit.status_per_min"),
		},
		Gemini: GeminiConfig{
			APIKey:     viper.GetString("gemini.api_key"),
			BaseURL:    viper.GetString("gemini.base_url"),
			TextModel:  viper.GetString("gemini.text_model"),
			ImageModel: viper.GetString("gemini.image_model"),
			SubModel:   viper.GetString("gemini.sub_model"),
		},
		Veo: VeoConfig{
			APIKey:       viper.GetString("veo.api_key"),
			BaseURL:      viper.GetString("veo.base_url"),
			Model:        viper.GetString("veo.model"),
			PollInterval: viper.GetInt("veo.poll_interval"),
			Timeout:      viper.GetInt("veo.timeout"),
		},
		Storage: StorageConfig{
			Endpoint:        viper.GetString("storage.endpoint"),
			Region:          viper.GetString("storage.region"),
			AccessKeyID:     viper.GetString("storage.access_key_id"),
			SecretAccessKey: viper.GetString("storage.secret_access_key"),
			BucketName:      viper.GetString("storage.bucket_name"),
			PublicURL:       viper.GetString("storage.public_url"),
		},
		Function: FunctionConfig{
			URL:     viper.GetString("function.url"),
			Timeout: viper.GetInt("function.timeout"),
		},
		Gateway: GatewayConfig{
			Enabled: viper.GetBool("gateway.enabled"),
		},
	}

	return cfg, nil
}
