package router

import (
	"net/http"

	"greenhouse-assistant/backend/internal/api"
	"greenhouse-assistant/backend/pkg/config"
	"greenhouse-assistant/backend/pkg/di"
	"greenhouse-assistant/backend/pkg/errors"
	"greenhouse-assistant/backend/pkg/logger"
	"greenhouse-assistant/backend/pkg/middleware"
	"greenhouse-assistant/backend/pkg/validator"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config

	// Limiters are swept by Run in the server
	Limiters []*middleware.RateLimiter

	metrics http.Handler
}

// Options carries the collaborators that are built outside the container
type Options struct {
	// Metrics is mounted on the configured metrics path when set
	Metrics http.Handler
}

// New creates a new router with the given container
func New(container *di.Container, opts Options) *Router {
	logger.SetGlobal(container.Logger)
	cfg := container.Config

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := validator.RegisterBindings(); err != nil {
		container.Logger.Error("Failed to register validation rules", "error", err)
	}

	engine := gin.New()

	// Use the logger middleware first to capture all requests
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(middleware.CORS(cfg.Security.AllowedOrigins))
	engine.Use(middleware.BodyLimit(cfg.Security.MaxBodySize))

	global := middleware.NewRateLimiter(container.Logger, middleware.RateLimiterOptions{
		Name:    "global",
		Limit:   rate.Limit(cfg.Security.RateLimit),
		Burst:   cfg.Security.RateLimitBurst,
		KeyFunc: middleware.ClientIPKey,
	})
	engine.Use(global.Middleware())

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
		Limiters:  []*middleware.RateLimiter{global},
		metrics:   opts.Metrics,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.setupHealthRoutes()
	r.AddOpenAPIValidation(r.Config.Server.OpenAPISchema)

	c := r.Container
	jwtAuth := middleware.JWTAuthMiddleware(c.JWTService, r.Logger)

	// Calls into the assistant are limited per user on top of the global limit
	aiLimiter := middleware.NewRateLimiter(r.Logger, middleware.RateLimiterOptions{
		Name:    "ai",
		Limit:   rate.Limit(r.Config.Security.AIRateLimit),
		Burst:   r.Config.Security.AIRateLimitBurst,
		KeyFunc: middleware.UserKey,
	})
	r.Limiters = append(r.Limiters, aiLimiter)

	authHandler := api.NewAuthHandler(c.UserService, r.Logger)
	userController := api.NewUserController(c.UserService)
	chatController := api.NewChatController(c.ChatService, r.Logger)
	greenhouseController := api.NewGreenhouseController(
		c.GreenhouseService,
		c.PlantService,
		c.SensorService,
		api.GreenhouseControllerOptions{
			Forecaster:       c.Weather,
			Hub:              c.Hub,
			DefaultLatitude:  r.Config.Weather.DefaultLatitude,
			DefaultLongitude: r.Config.Weather.DefaultLongitude,
		},
		r.Logger,
	)
	plantController := api.NewPlantController(c.PlantService)
	sensorController := api.NewSensorController(c.SensorService)

	v1 := r.Engine.Group("/api/v1")

	// Public routes (no auth required)
	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/signup", authHandler.Signup)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.GET("/me", jwtAuth, authHandler.Me)
	}

	// Protected routes (require authentication)
	protected := v1.Group("")
	protected.Use(jwtAuth)
	{
		users := protected.Group("/users")
		users.GET("", userController.List)
		users.PATCH("/:id", userController.Update)

		chatController.RegisterRoutes(protected, aiLimiter.Middleware())
		greenhouseController.RegisterRoutes(protected)
		plantController.RegisterRoutes(protected)
		sensorController.RegisterRoutes(protected)
	}
}
