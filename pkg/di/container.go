package di

import (
	"context"
	"fmt"

	"greenhouse-assistant/backend/ai"
	"greenhouse-assistant/backend/internal/planthealth"
	"greenhouse-assistant/backend/internal/repository"
	"greenhouse-assistant/backend/internal/service"
	"greenhouse-assistant/backend/internal/weather"
	"greenhouse-assistant/backend/internal/ws"
	"greenhouse-assistant/backend/pkg/cache"
	"greenhouse-assistant/backend/pkg/config"
	"greenhouse-assistant/backend/pkg/health"
	"greenhouse-assistant/backend/pkg/jwt"
	"greenhouse-assistant/backend/pkg/logger"
	"greenhouse-assistant/backend/pkg/resilience"
	"greenhouse-assistant/backend/pkg/secrets"
	"greenhouse-assistant/backend/shared/redis"

	"gorm.io/gorm"
)

// devJWTSecret signs tokens when no secret is configured outside production
const devJWTSecret = "greenhouse-development-secret"

// Container holds all the dependencies for the application
type Container struct {
	DB     *gorm.DB
	Config *config.Config
	Logger *logger.Logger

	JWTService *jwt.Service
	Cache      cache.Store

	Users       repository.UserRepository
	Greenhouses repository.GreenhouseRepository
	Plants      repository.PlantRepository
	Sensors     repository.SensorRepository
	Chats       repository.ChatRepository

	UserService       *service.UserService
	GreenhouseService *service.GreenhouseService
	PlantService      *service.PlantService
	SensorService     *service.SensorService
	ChatService       *service.ChatService

	AI      *ai.Lazy
	Weather *weather.Client
	Hub     *ws.Hub
	Health  *health.Checker

	closers []func()
}

// New creates a new dependency injection container
func New(db *gorm.DB, cfg *config.Config, log *logger.Logger) (*Container, error) {
	if cfg == nil {
		cfg = config.Get()
	}
	if log == nil {
		log = logger.GetGlobal()
	}
	c := &Container{DB: db, Config: cfg, Logger: log}

	manager, err := secretsManager(log)
	if err != nil {
		return nil, err
	}

	jwtSecret := manager.GetSecretWithDefault(context.Background(), secrets.KeyJWTSecret, cfg.JWT.Secret)
	if jwtSecret == "" {
		if cfg.Server.Env == "production" {
			return nil, fmt.Errorf("%s must be set in production", secrets.KeyJWTSecret)
		}
		log.Warn("JWT_SECRET is not set, using the development secret")
		jwtSecret = devJWTSecret
	}
	c.JWTService = jwt.NewService(jwtSecret, cfg.JWT.ExpiryHours)

	c.Cache = c.newCache()

	timeout := cfg.Database.Timeout
	c.Users = repository.NewGormUserRepository(db, timeout)
	c.Greenhouses = repository.NewGormGreenhouseRepository(db, timeout)
	c.Plants = repository.NewGormPlantRepository(db, timeout)
	c.Sensors = repository.NewGormSensorRepository(db, timeout)
	c.Chats = repository.NewGormChatRepository(db, timeout)

	c.Hub = ws.NewHub(cfg.Security.AllowedOrigins, log)
	c.Weather = weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.Timeout)

	// The assistant is built on the first chat message so the server starts
	// without a Gemini key.
	c.AI = ai.NewLazy(func(ctx context.Context) (*ai.Client, error) {
		apiKey := manager.GetSecretWithDefault(ctx, secrets.KeyGeminiAPIKey, "")
		return ai.NewGeminiClient(ctx, cfg, apiKey, log)
	})

	c.UserService = service.NewUserService(c.Users, c.JWTService, c.Cache, cfg.Cache.TTL, log)
	c.GreenhouseService = service.NewGreenhouseService(c.Greenhouses, c.Cache, cfg.Cache.TTL, log)
	c.PlantService = service.NewPlantService(c.Plants, c.GreenhouseService, classifier(manager, cfg, log), log)
	c.SensorService = service.NewSensorService(c.Sensors, c.GreenhouseService, c.Hub, log)
	c.ChatService = service.NewChatService(c.Chats, c.AI, log)

	c.Health = c.newHealthChecker()

	return c, nil
}

func secretsManager(log *logger.Logger) (secrets.Manager, error) {
	if m := secrets.Default(); m != nil {
		return m, nil
	}
	if err := secrets.Init(log); err != nil {
		return nil, fmt.Errorf("failed to initialize secrets: %w", err)
	}
	return secrets.Default(), nil
}

func (c *Container) newCache() cache.Store {
	cfg := c.Config
	switch {
	case !cfg.Cache.Enabled:
		return cache.Noop{}
	case cfg.Redis.Enabled:
		client := redis.NewRedisClient(redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   "greenhouse:",
		})
		c.closers = append(c.closers, func() { _ = client.Close() })
		c.Logger.Info("Using Redis cache", "addr", cfg.Redis.Addr)
		return client
	default:
		mem := cache.NewMemory(cfg.Cache.MaxSize, cfg.Cache.PurgeWindow)
		c.closers = append(c.closers, mem.Close)
		return mem
	}
}

// classifier returns nil when no Hugging Face token is configured
func classifier(manager secrets.Manager, cfg *config.Config, log *logger.Logger) service.Classifier {
	token := manager.GetSecretWithDefault(context.Background(), secrets.KeyHuggingFaceToken, "")
	client, err := planthealth.NewClient(planthealth.Options{
		BaseURL: cfg.PlantHealth.BaseURL,
		Model:   cfg.PlantHealth.Model,
		Token:   token,
		Timeout: cfg.PlantHealth.Timeout,
	})
	if err != nil {
		log.Warn("Plant health classifier disabled", "error", err)
		return nil
	}
	return client
}

func (c *Container) newHealthChecker() *health.Checker {
	checker := health.NewChecker(c.Logger, c.Config.Health.CheckPeriod)

	checker.RegisterDatabaseCheck(func(ctx context.Context) error {
		sqlDB, err := c.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})

	if r, ok := c.Cache.(*redis.RedisClient); ok {
		checker.RegisterCacheCheck("redis", r.Ping)
	}

	checker.RegisterCheck("ai", false, func(context.Context) (health.Status, string, error) {
		client := c.AI.Peek()
		if client == nil {
			if err := c.AI.LastError(); err != nil {
				return health.StatusDegraded, err.Error(), nil
			}
			return health.StatusUp, "not initialized", nil
		}
		breaker := client.Breaker()
		if breaker == nil {
			return health.StatusUp, "", nil
		}
		switch state := breaker.State(); state {
		case resilience.StateOpen:
			return health.StatusDegraded, "circuit open", nil
		default:
			return health.StatusUp, string(state), nil
		}
	})

	return checker
}

// Close releases the cache backend
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
