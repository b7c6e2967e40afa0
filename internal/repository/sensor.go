package repository

import (
	"context"
	"time"

	"greenhouse-assistant/backend/internal/models"

	"gorm.io/gorm"
)

const (
	DefaultSensorLimit  = 100
	MaxSensorLimit      = 100
	DefaultReadingLimit = 100
	MaxReadingLimit     = 1000
	// MaxBulkReadings caps a single bulk insert
	MaxBulkReadings = 1000
)

// LatestReading is the most recent value of one sensor
type LatestReading struct {
	SensorID   uint      `json:"sensor_id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}

// SensorRepository stores sensors and readings
type SensorRepository interface {
	Create(ctx context.Context, sensor *models.Sensor) error
	GetByID(ctx context.Context, id uint) (*models.Sensor, error)
	ListByGreenhouse(ctx context.Context, greenhouseID uint, skip, limit int) ([]models.Sensor, error)
	Update(ctx context.Context, id uint, updates map[string]any) (*models.Sensor, error)
	Delete(ctx context.Context, id uint) error
	GreenhouseOf(ctx context.Context, id uint) (uint, error)
	AddReadings(ctx context.Context, sensorID uint, values []float64) ([]models.SensorReading, error)
	ListReadings(ctx context.Context, sensorID uint, limit int) ([]models.SensorReading, error)
	LatestReadings(ctx context.Context, greenhouseID uint) ([]LatestReading, error)
}

// GormSensorRepository implements SensorRepository
type GormSensorRepository struct {
	base
	now func() time.Time
}

// NewGormSensorRepository creates a sensor repository
func NewGormSensorRepository(db *gorm.DB, timeout time.Duration) *GormSensorRepository {
	return &GormSensorRepository{base: newBase(db, timeout), now: time.Now}
}

func (r *GormSensorRepository) Create(ctx context.Context, sensor *models.Sensor) error {
	return r.run(ctx, "Sensor", func(db *gorm.DB) error {
		return db.Create(sensor).Error
	})
}

func (r *GormSensorRepository) GetByID(ctx context.Context, id uint) (*models.Sensor, error) {
	var sensor models.Sensor
	err := r.run(ctx, "Sensor", func(db *gorm.DB) error {
		return db.First(&sensor, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &sensor, nil
}

func (r *GormSensorRepository) ListByGreenhouse(ctx context.Context, greenhouseID uint, skip, limit int) ([]models.Sensor, error) {
	skip, limit = page(skip, limit, DefaultSensorLimit, MaxSensorLimit)
	sensors := []models.Sensor{}
	err := r.run(ctx, "Sensor", func(db *gorm.DB) error {
		return db.Where("greenhouse_id = ?", greenhouseID).Order("id ASC").Offset(skip).Limit(limit).Find(&sensors).Error
	})
	return sensors, err
}

func (r *GormSensorRepository) Update(ctx context.Context, id uint, updates map[string]any) (*models.Sensor, error) {
	var sensor models.Sensor
	err := r.transaction(ctx, "Sensor", func(tx *gorm.DB) error {
		if err := tx.First(&sensor, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&sensor).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&sensor, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &sensor, nil
}

// Delete removes the sensor and its readings
func (r *GormSensorRepository) Delete(ctx context.Context, id uint) error {
	return r.transaction(ctx, "Sensor", func(tx *gorm.DB) error {
		var sensor models.Sensor
		if err := tx.Select("id").First(&sensor, id).Error; err != nil {
			return err
		}
		return deleteSensors(tx, []uint{id})
	})
}

func (r *GormSensorRepository) GreenhouseOf(ctx context.Context, id uint) (uint, error) {
	var sensor models.Sensor
	err := r.run(ctx, "Sensor", func(db *gorm.DB) error {
		return db.Select("id", "greenhouse_id").First(&sensor, id).Error
	})
	return sensor.GreenhouseID, err
}

// AddReadings stores all values with one timestamp, atomically
func (r *GormSensorRepository) AddReadings(ctx context.Context, sensorID uint, values []float64) ([]models.SensorReading, error) {
	now := r.now().UTC()
	readings := make([]models.SensorReading, len(values))
	for i, v := range values {
		readings[i] = models.SensorReading{SensorID: sensorID, Value: v, RecordedAt: now}
	}

	err := r.transaction(ctx, "Sensor", func(tx *gorm.DB) error {
		var sensor models.Sensor
		if err := tx.Select("id").First(&sensor, sensorID).Error; err != nil {
			return err
		}
		return tx.CreateInBatches(&readings, 200).Error
	})
	if err != nil {
		return nil, err
	}
	return readings, nil
}

func (r *GormSensorRepository) ListReadings(ctx context.Context, sensorID uint, limit int) ([]models.SensorReading, error) {
	_, limit = page(0, limit, DefaultReadingLimit, MaxReadingLimit)
	readings := []models.SensorReading{}
	err := r.run(ctx, "Sensor", func(db *gorm.DB) error {
		return db.Where("sensor_id = ?", sensorID).
			Order("recorded_at DESC").Order("id DESC").
			Limit(limit).Find(&readings).Error
	})
	return readings, err
}

// LatestReadings returns the newest reading of every active sensor of the
// greenhouse that has one, ordered by sensor id
func (r *GormSensorRepository) LatestReadings(ctx context.Context, greenhouseID uint) ([]LatestReading, error) {
	latest := []LatestReading{}
	err := r.run(ctx, "Sensor", func(db *gorm.DB) error {
		newest := db.Model(&models.SensorReading{}).
			Select("MAX(id)").
			Group("sensor_id")
		return db.Table("sensor_readings AS r").
			Select("s.id AS sensor_id, s.name AS name, s.type AS type, r.value AS value, r.recorded_at AS recorded_at").
			Joins("JOIN sensors AS s ON s.id = r.sensor_id").
			Where("s.greenhouse_id = ? AND s.active = ?", greenhouseID, true).
			Where("r.id IN (?)", newest).
			Order("s.id ASC").
			Scan(&latest).Error
	})
	return latest, err
}
