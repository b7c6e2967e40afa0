package service

import (
	"context"
	"fmt"

	"greenhouse-assistant/backend/ai"
	"greenhouse-assistant/backend/internal/models"
	"greenhouse-assistant/backend/internal/repository"
	apperrors "greenhouse-assistant/backend/pkg/errors"
	"greenhouse-assistant/backend/pkg/logger"
)

// ReadingPublisher receives every reading after it is stored
type ReadingPublisher interface {
	PublishReadings(greenhouseID uint, sensor *models.Sensor, readings []models.SensorReading)
}

// SensorService manages sensors and their readings
type SensorService struct {
	sensors     repository.SensorRepository
	greenhouses *GreenhouseService
	publisher   ReadingPublisher
	log         *logger.Logger
}

// NewSensorService creates a sensor service. publisher may be nil.
func NewSensorService(sensors repository.SensorRepository, greenhouses *GreenhouseService, publisher ReadingPublisher, log *logger.Logger) *SensorService {
	if log == nil {
		log = logger.Discard()
	}
	return &SensorService{sensors: sensors, greenhouses: greenhouses, publisher: publisher, log: log}
}

// Authorize checks that userID owns the greenhouse the sensor is installed in
func (s *SensorService) Authorize(ctx context.Context, userID, sensorID uint) error {
	greenhouseID, err := s.sensors.GreenhouseOf(ctx, sensorID)
	if err != nil {
		return err
	}
	return s.greenhouses.Authorize(ctx, userID, greenhouseID)
}

// Create installs a sensor in a greenhouse owned by userID. Sensors are
// active unless the request says otherwise.
func (s *SensorService) Create(ctx context.Context, userID uint, req *models.CreateSensorRequest) (*models.Sensor, error) {
	if err := s.greenhouses.Authorize(ctx, userID, req.GreenhouseID); err != nil {
		return nil, err
	}
	sensor := &models.Sensor{
		GreenhouseID: req.GreenhouseID,
		Name:         req.Name,
		Type:         req.Type,
		Active:       true,
	}
	if req.Active != nil {
		sensor.Active = *req.Active
	}
	if err := s.sensors.Create(ctx, sensor); err != nil {
		return nil, err
	}
	return sensor, nil
}

// Get returns the sensor with its most recent readings
func (s *SensorService) Get(ctx context.Context, id uint) (*models.Sensor, error) {
	sensor, err := s.sensors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	readings, err := s.sensors.ListReadings(ctx, id, repository.DefaultReadingLimit)
	if err != nil {
		return nil, err
	}
	sensor.Readings = readings
	return sensor, nil
}

// ListByGreenhouse returns the sensors of a greenhouse
func (s *SensorService) ListByGreenhouse(ctx context.Context, greenhouseID uint, skip, limit int) ([]models.Sensor, error) {
	return s.sensors.ListByGreenhouse(ctx, greenhouseID, skip, limit)
}

// Update changes the given fields; an empty request is rejected
func (s *SensorService) Update(ctx context.Context, id uint, req *models.UpdateSensorRequest) (*models.Sensor, error) {
	if req.Empty() {
		return nil, apperrors.NewBadRequestError("NO_FIELDS", "No fields to update")
	}
	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Type != nil {
		updates["type"] = *req.Type
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	return s.sensors.Update(ctx, id, updates)
}

// Delete removes the sensor and its readings
func (s *SensorService) Delete(ctx context.Context, id uint) error {
	return s.sensors.Delete(ctx, id)
}

// RecordReading stores one value
func (s *SensorService) RecordReading(ctx context.Context, sensorID uint, value float64) (*models.SensorReading, error) {
	readings, err := s.RecordReadings(ctx, sensorID, []float64{value})
	if err != nil {
		return nil, err
	}
	return &readings[0], nil
}

// RecordReadings stores all values at once and publishes them to live
// subscribers of the greenhouse
func (s *SensorService) RecordReadings(ctx context.Context, sensorID uint, values []float64) ([]models.SensorReading, error) {
	if len(values) == 0 {
		return nil, apperrors.NewBadRequestError(apperrors.CodeValidation, "At least one reading is required")
	}
	if len(values) > repository.MaxBulkReadings {
		return nil, apperrors.NewBadRequestError(apperrors.CodeValidation,
			fmt.Sprintf("At most %d readings can be stored at once", repository.MaxBulkReadings))
	}

	readings, err := s.sensors.AddReadings(ctx, sensorID, values)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		sensor, err := s.sensors.GetByID(ctx, sensorID)
		if err != nil {
			s.log.Warn("Readings stored but not published", "sensor_id", sensorID, "error", err.Error())
			return readings, nil
		}
		s.publisher.PublishReadings(sensor.GreenhouseID, sensor, readings)
	}
	return readings, nil
}

// ListReadings returns the newest readings of a sensor
func (s *SensorService) ListReadings(ctx context.Context, sensorID uint, limit int) ([]models.SensorReading, error) {
	return s.sensors.ListReadings(ctx, sensorID, limit)
}

// LatestSensorData returns the newest value of each active sensor in the
// shape the chat endpoint accepts. Sensors are keyed by type; a second sensor
// of the same type is keyed "type (name)".
func (s *SensorService) LatestSensorData(ctx context.Context, greenhouseID uint) (ai.SensorData, error) {
	latest, err := s.sensors.LatestReadings(ctx, greenhouseID)
	if err != nil {
		return nil, err
	}
	data := make(ai.SensorData, 0, len(latest))
	seen := make(map[string]bool, len(latest))
	for _, r := range latest {
		key := r.Type
		if seen[key] {
			key = fmt.Sprintf("%s (%s)", r.Type, r.Name)
		}
		seen[key] = true
		data.Add(key, r.Value)
	}
	return data, nil
}
