package api

import (
	"net/http"

	"greenhouse-assistant/backend/internal/models"
	"greenhouse-assistant/backend/internal/repository"
	"greenhouse-assistant/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// SensorController handles sensor and reading endpoints
type SensorController struct {
	sensors *service.SensorService
}

// NewSensorController creates a new sensor controller
func NewSensorController(sensors *service.SensorService) *SensorController {
	return &SensorController{sensors: sensors}
}

// RegisterRoutes registers the sensor routes on an authenticated group
func (ctl *SensorController) RegisterRoutes(group *gin.RouterGroup) {
	sensors := group.Group("/sensors")
	{
		sensors.POST("", ctl.Create)
		sensors.GET("/:id", ctl.authorize, ctl.Get)
		sensors.PATCH("/:id", ctl.authorize, ctl.Update)
		sensors.DELETE("/:id", ctl.authorize, ctl.Delete)
		sensors.POST("/:id/readings", ctl.authorize, ctl.RecordReading)
		sensors.POST("/:id/readings/bulk", ctl.authorize, ctl.RecordBulk)
		sensors.GET("/:id/readings", ctl.authorize, ctl.ListReadings)
	}
}

const sensorIDKey = "sensorID"

func (ctl *SensorController) authorize(c *gin.Context) {
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
	if err := ctl.sensors.Authorize(c.Request.Context(), userID, id); err != nil {
		c.Error(err)
		c.Abort()
		return
	}
	c.Set(sensorIDKey, id)
	c.Next()
}

// Create installs a sensor in one of the caller's greenhouses
func (ctl *SensorController) Create(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		c.Error(err)
		return
	}
	var req models.CreateSensorRequest
	if !bind(c, &req) {
		return
	}
	sensor, err := ctl.sensors.Create(c.Request.Context(), userID, &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, sensor)
}

// Get returns the sensor with its latest readings
func (ctl *SensorController) Get(c *gin.Context) {
	sensor, err := ctl.sensors.Get(c.Request.Context(), c.GetUint(sensorIDKey))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, sensor)
}

// Update changes the sensor's name, type or active flag
func (ctl *SensorController) Update(c *gin.Context) {
	var req models.UpdateSensorRequest
	if !bind(c, &req) {
		return
	}
	sensor, err := ctl.sensors.Update(c.Request.Context(), c.GetUint(sensorIDKey), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, sensor)
}

// Delete removes the sensor and its readings
func (ctl *SensorController) Delete(c *gin.Context) {
	if err := ctl.sensors.Delete(c.Request.Context(), c.GetUint(sensorIDKey)); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RecordReading stores one value
func (ctl *SensorController) RecordReading(c *gin.Context) {
	var req models.CreateReadingRequest
	if !bind(c, &req) {
		return
	}
	reading, err := ctl.sensors.RecordReading(c.Request.Context(), c.GetUint(sensorIDKey), *req.Value)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, reading)
}

// RecordBulk stores up to a thousand values with one timestamp
func (ctl *SensorController) RecordBulk(c *gin.Context) {
	var req models.BulkReadingsRequest
	if !bind(c, &req) {
		return
	}
	readings, err := ctl.sensors.RecordReadings(c.Request.Context(), c.GetUint(sensorIDKey), req.Readings)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"count": len(readings), "readings": readings})
}

// ListReadings returns the newest readings first
func (ctl *SensorController) ListReadings(c *gin.Context) {
	limit, err := queryInt(c, "limit", repository.DefaultReadingLimit)
	if err != nil {
		c.Error(err)
		return
	}
	readings, err := ctl.sensors.ListReadings(c.Request.Context(), c.GetUint(sensorIDKey), limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, readings)
}
