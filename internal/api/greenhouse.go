package api

import (
	"context"
	"net/http"
	"strconv"

	"greenhouse-assistant/backend/internal/models"
	"greenhouse-assistant/backend/internal/repository"
	"greenhouse-assistant/backend/internal/service"
	"greenhouse-assistant/backend/internal/weather"
	"greenhouse-assistant/backend/internal/ws"
	apperrors "greenhouse-assistant/backend/pkg/errors"
	"greenhouse-assistant/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Forecaster returns hourly weather for a location
type Forecaster interface {
	Forecast(ctx context.Context, latitude, longitude float64) (*weather.Forecast, error)
}

// GreenhouseController handles greenhouse endpoints and the views that hang
// off a greenhouse
type GreenhouseController struct {
	greenhouses *service.GreenhouseService
	plants      *service.PlantService
	sensors     *service.SensorService
	forecaster  Forecaster
	hub         *ws.Hub
	defaultLat  float64
	defaultLon  float64
	logger      *logger.Logger
}

// GreenhouseControllerOptions carries the optional collaborators
type GreenhouseControllerOptions struct {
	Forecaster       Forecaster
	Hub              *ws.Hub
	DefaultLatitude  float64
	DefaultLongitude float64
}

// NewGreenhouseController creates a new greenhouse controller
func NewGreenhouseController(
	greenhouses *service.GreenhouseService,
	plants *service.PlantService,
	sensors *service.SensorService,
	opts GreenhouseControllerOptions,
	logger *logger.Logger,
) *GreenhouseController {
	if opts.DefaultLatitude == 0 && opts.DefaultLongitude == 0 {
		opts.DefaultLatitude, opts.DefaultLongitude = weather.DefaultLatitude, weather.DefaultLongitude
	}
	return &GreenhouseController{
		greenhouses: greenhouses,
		plants:      plants,
		sensors:     sensors,
		forecaster:  opts.Forecaster,
		hub:         opts.Hub,
		defaultLat:  opts.DefaultLatitude,
		defaultLon:  opts.DefaultLongitude,
		logger:      logger,
	}
}

// RegisterRoutes registers the greenhouse routes on an authenticated group
func (ctl *GreenhouseController) RegisterRoutes(group *gin.RouterGroup) {
	gh := group.Group("/greenhouses")
	{
		gh.POST("", ctl.Create)
		gh.GET("", ctl.List)
		gh.GET("/:id", ctl.authorize, ctl.Get)
		gh.PATCH("/:id", ctl.authorize, ctl.Update)
		gh.DELETE("/:id", ctl.authorize, ctl.Delete)
		gh.GET("/:id/plants", ctl.authorize, ctl.ListPlants)
		gh.GET("/:id/sensors", ctl.authorize, ctl.ListSensors)
		gh.GET("/:id/sensor-data", ctl.authorize, ctl.SensorData)
		gh.GET("/:id/weather", ctl.authorize, ctl.Weather)
	}
	group.GET("/ws/greenhouses/:id/readings", ctl.authorize, ctl.LiveReadings)
}

const greenhouseIDKey = "greenhouseID"

func (ctl *GreenhouseController) authorize(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}
	if err := ctl.greenhouses.Authorize(c.Request.Context(), userID, id); err != nil {
		c.Error(err)
		c.Abort()
		return
	}
	c.Set(greenhouseIDKey, id)
	c.Next()
}

// Create stores a greenhouse owned by the caller
func (ctl *GreenhouseController) Create(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		c.Error(err)
		return
	}
	var req models.CreateGreenhouseRequest
	if !bind(c, &req) {
		return
	}
	gh, err := ctl.greenhouses.Create(c.Request.Context(), userID, &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gh)
}

// List returns the caller's greenhouses
func (ctl *GreenhouseController) List(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		c.Error(err)
		return
	}
	skip, limit, err := pageParams(c, repository.DefaultGreenhouseLimit, repository.MaxGreenhouseLimit)
	if err != nil {
		c.Error(err)
		return
	}
	greenhouses, err := ctl.greenhouses.List(c.Request.Context(), userID, skip, limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, greenhouses)
}

// Get returns the greenhouse with its plants and sensors
func (ctl *GreenhouseController) Get(c *gin.Context) {
	gh, err := ctl.greenhouses.Get(c.Request.Context(), c.GetUint(greenhouseIDKey))
	if err != nil {
		c.Error(err)
		return
	}
	if gh.Plants == nil {
		gh.Plants = []models.Plant{}
	}
	if gh.Sensors == nil {
		gh.Sensors = []models.Sensor{}
	}
	c.JSON(http.StatusOK, gh)
}

// Update changes the greenhouse name or location
func (ctl *GreenhouseController) Update(c *gin.Context) {
	var req models.UpdateGreenhouseRequest
	if !bind(c, &req) {
		return
	}
	gh, err := ctl.greenhouses.Update(c.Request.Context(), c.GetUint(greenhouseIDKey), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gh)
}

// Delete removes the greenhouse and everything in it
func (ctl *GreenhouseController) Delete(c *gin.Context) {
	if err := ctl.greenhouses.Delete(c.Request.Context(), c.GetUint(greenhouseIDKey)); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListPlants returns the plants of the greenhouse
func (ctl *GreenhouseController) ListPlants(c *gin.Context) {
	skip, limit, err := pageParams(c, repository.DefaultPlantLimit, repository.MaxPlantLimit)
	if err != nil {
		c.Error(err)
		return
	}
	plants, err := ctl.plants.ListByGreenhouse(c.Request.Context(), c.GetUint(greenhouseIDKey), skip, limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, plants)
}

// ListSensors returns the sensors of the greenhouse
func (ctl *GreenhouseController) ListSensors(c *gin.Context) {
	skip, limit, err := pageParams(c, repository.DefaultSensorLimit, repository.MaxSensorLimit)
	if err != nil {
		c.Error(err)
		return
	}
	sensors, err := ctl.sensors.ListByGreenhouse(c.Request.Context(), c.GetUint(greenhouseIDKey), skip, limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, sensors)
}

// SensorData returns the latest value of every active sensor, ready to be
// sent as sensor_data with a chat message
func (ctl *GreenhouseController) SensorData(c *gin.Context) {
	data, err := ctl.sensors.LatestSensorData(c.Request.Context(), c.GetUint(greenhouseIDKey))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sensor_data": data})
}

// Weather returns the hourly forecast for the given or default coordinates
func (ctl *GreenhouseController) Weather(c *gin.Context) {
	if ctl.forecaster == nil {
		c.Error(apperrors.NewError(http.StatusServiceUnavailable, "WEATHER_UNAVAILABLE", "Weather forecasts are not configured"))
		return
	}
	lat, err := queryFloat(c, "latitude", ctl.defaultLat)
	if err != nil {
		c.Error(err)
		return
	}
	lon, err := queryFloat(c, "longitude", ctl.defaultLon)
	if err != nil {
		c.Error(err)
		return
	}

	forecast, err := ctl.forecaster.Forecast(c.Request.Context(), lat, lon)
	if err != nil {
		c.Error(apperrors.NewError(http.StatusBadGateway, "WEATHER_ERROR", "Error communicating with the weather provider").WithCause(err))
		return
	}
	c.JSON(http.StatusOK, forecast)
}

// LiveReadings upgrades to a websocket that receives every reading stored
// for the greenhouse
func (ctl *GreenhouseController) LiveReadings(c *gin.Context) {
	if ctl.hub == nil {
		c.Error(apperrors.NewError(http.StatusServiceUnavailable, "LIVE_FEED_UNAVAILABLE", "Live readings are not enabled"))
		return
	}
	userID, _ := currentUser(c)
	greenhouseID := c.GetUint(greenhouseIDKey)
	logger.FromGin(c, ctl.logger).Info("Live readings subscription", "greenhouse_id", greenhouseID)
	ctl.hub.ServeWs(c, greenhouseID, userID)
}

func queryFloat(c *gin.Context, name string, def float64) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperrors.NewBadRequestError(apperrors.CodeValidation, name+" must be a number")
	}
	return v, nil
}
