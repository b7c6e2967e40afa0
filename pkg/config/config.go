package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port    string
		Env     string
		Timeout time.Duration
		BaseURL string
		Version string
		// OpenAPISchema is validated against and served under /api/docs
		OpenAPISchema string
		SwaggerUIPath string
	}

	// Database configuration
	Database struct {
		Driver   string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		Path     string
		MaxConns int
		Timeout  time.Duration
	}

	// JWT configuration
	JWT struct {
		Secret      string
		ExpiryHours time.Duration
	}

	// Security configuration
	Security struct {
		RateLimit        float64
		RateLimitBurst   int
		AIRateLimit      float64
		AIRateLimitBurst int
		AllowedOrigins   []string
		MaxBodySize      int64
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// AI provider settings
	AI struct {
		Model           string
		PromptPath      string
		Temperature     float64
		TopP            float64
		TopK            int
		MaxOutputTokens int
		RequestTimeout  time.Duration
		BreakerFailures int
		BreakerRetry    time.Duration
	}

	// Cache settings
	Cache struct {
		Enabled     bool
		TTL         time.Duration
		MaxSize     int
		PurgeWindow time.Duration
	}

	// Redis settings, used as cache backend when Enabled
	Redis struct {
		Enabled  bool
		Addr     string
		Password string
		DB       int
	}

	// Observability settings
	Observability struct {
		ServiceName   string
		EnableTracing bool
		MetricsPath   string
	}

	// Weather forecast provider
	Weather struct {
		BaseURL          string
		DefaultLatitude  float64
		DefaultLongitude float64
		Timeout          time.Duration
	}

	// Plant health classifier
	PlantHealth struct {
		BaseURL string
		Model   string
		Timeout time.Duration
	}

	// gRPC health endpoint
	GRPC struct {
		Enabled bool
		Port    string
	}

	// Health checker
	Health struct {
		CheckPeriod time.Duration
	}
}

var (
	instance *Config
	once     sync.Once
)

// New creates a new Config instance with values from environment variables
// Uses singleton pattern to ensure only one instance exists
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		godotenv.Load()

		instance = load()
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

func load() *Config {
	cfg := &Config{}

	// Server config
	cfg.Server.Port = getEnvString("PORT", "8081")
	cfg.Server.Env = getEnvString("APP_ENV", "development")
	cfg.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)
	cfg.Server.BaseURL = getEnvString("BASE_URL", "http://localhost:"+cfg.Server.Port)
	cfg.Server.Version = getEnvString("APP_VERSION", "dev")
	cfg.Server.OpenAPISchema = getEnvString("OPENAPI_SCHEMA_PATH", "api/openapi.yaml")
	cfg.Server.SwaggerUIPath = getEnvString("SWAGGER_UI_PATH", "")

	// Database config
	cfg.Database.Driver = getEnvString("DB_DRIVER", "postgres")
	cfg.Database.Host = getEnvString("DB_HOST", "localhost")
	cfg.Database.Port = getEnvString("DB_PORT", "5432")
	cfg.Database.User = getEnvString("DB_USER", "postgres")
	cfg.Database.Password = getEnvString("DB_PASSWORD", "postgres")
	cfg.Database.Name = getEnvString("DB_NAME", "greenhouse")
	cfg.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
	cfg.Database.Path = getEnvString("DB_PATH", "greenhouse.db")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
	cfg.Database.Timeout = getEnvDuration("DB_TIMEOUT", 5*time.Second)

	// JWT config
	cfg.JWT.Secret = getEnvString("JWT_SECRET", "")
	cfg.JWT.ExpiryHours = getEnvDuration("JWT_EXPIRY", 24*time.Hour)

	// Security config
	cfg.Security.RateLimit = getEnvFloat("RATE_LIMIT", 5)
	cfg.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)
	cfg.Security.AIRateLimit = getEnvFloat("AI_RATE_LIMIT", 0.5)
	cfg.Security.AIRateLimitBurst = getEnvInt("AI_RATE_LIMIT_BURST", 3)
	cfg.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})
	cfg.Security.MaxBodySize = getEnvInt64("MAX_BODY_SIZE", 1<<20) // 1MB

	// Logging config
	cfg.Logging.Level = getEnvString("LOG_LEVEL", "info")
	cfg.Logging.Format = getEnvString("LOG_FORMAT", "json")

	// AI config
	cfg.AI.Model = getEnvString("AI_MODEL", "gemini-2.5-flash")
	cfg.AI.PromptPath = getEnvString("AI_PROMPT_PATH", "prompts/greenhouse_assistant_prompt.txt")
	cfg.AI.Temperature = getEnvFloat("AI_TEMPERATURE", 0.7)
	cfg.AI.TopP = getEnvFloat("AI_TOP_P", 0.95)
	cfg.AI.TopK = getEnvInt("AI_TOP_K", 40)
	cfg.AI.MaxOutputTokens = getEnvInt("AI_MAX_OUTPUT_TOKENS", 2048)
	cfg.AI.RequestTimeout = getEnvDuration("AI_REQUEST_TIMEOUT", 60*time.Second)
	cfg.AI.BreakerFailures = getEnvInt("AI_BREAKER_FAILURES", 5)
	cfg.AI.BreakerRetry = getEnvDuration("AI_BREAKER_RETRY", 30*time.Second)

	// Cache settings
	cfg.Cache.Enabled = getEnvBool("CACHE_ENABLED", true)
	cfg.Cache.TTL = getEnvDuration("CACHE_TTL", 5*time.Minute)
	cfg.Cache.MaxSize = getEnvInt("CACHE_MAX_SIZE", 1000)
	cfg.Cache.PurgeWindow = getEnvDuration("CACHE_PURGE_WINDOW", 10*time.Minute)

	// Redis settings
	cfg.Redis.Enabled = getEnvBool("REDIS_ENABLED", false)
	cfg.Redis.Addr = getEnvString("REDIS_URL", "localhost:6379")
	cfg.Redis.Password = getEnvString("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// Observability
	cfg.Observability.ServiceName = getEnvString("OTEL_SERVICE_NAME", "greenhouse-backend")
	cfg.Observability.EnableTracing = getEnvBool("ENABLE_TRACING", false)
	cfg.Observability.MetricsPath = getEnvString("METRICS_PATH", "/metrics")

	// Weather
	cfg.Weather.BaseURL = getEnvString("WEATHER_API_URL", "https://api.open-meteo.com/v1/forecast")
	cfg.Weather.DefaultLatitude = getEnvFloat("WEATHER_DEFAULT_LATITUDE", 25.793)
	cfg.Weather.DefaultLongitude = getEnvFloat("WEATHER_DEFAULT_LONGITUDE", -108.9981)
	cfg.Weather.Timeout = getEnvDuration("WEATHER_TIMEOUT", 15*time.Second)

	// Plant health classifier
	cfg.PlantHealth.BaseURL = getEnvString("PLANT_HEALTH_API_URL", "https://api-inference.huggingface.co/models")
	cfg.PlantHealth.Model = getEnvString("PLANT_HEALTH_MODEL", "linkanjarad/mobilenet_v2_1.0_224-plant-disease-identification")
	cfg.PlantHealth.Timeout = getEnvDuration("PLANT_HEALTH_TIMEOUT", 60*time.Second)

	// gRPC
	cfg.GRPC.Enabled = getEnvBool("GRPC_ENABLED", true)
	cfg.GRPC.Port = getEnvString("GRPC_PORT", "9091")

	cfg.Health.CheckPeriod = getEnvDuration("HEALTH_CHECK_PERIOD", 30*time.Second)

	return cfg
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
