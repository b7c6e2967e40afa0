package repository

import (
	"context"
	"time"

	"greenhouse-assistant/backend/internal/models"

	"gorm.io/gorm"
)

const (
	DefaultGreenhouseLimit = 100
	MaxGreenhouseLimit     = 100
)

// GreenhouseRepository stores greenhouses
type GreenhouseRepository interface {
	Create(ctx context.Context, gh *models.Greenhouse) error
	GetByID(ctx context.Context, id uint, withDetails bool) (*models.Greenhouse, error)
	ListByOwner(ctx context.Context, ownerID uint, skip, limit int) ([]models.Greenhouse, error)
	Update(ctx context.Context, id uint, updates map[string]any) (*models.Greenhouse, error)
	Delete(ctx context.Context, id uint) error
	OwnerOf(ctx context.Context, id uint) (uint, error)
}

// GormGreenhouseRepository implements GreenhouseRepository
type GormGreenhouseRepository struct {
	base
}

// NewGormGreenhouseRepository creates a greenhouse repository
func NewGormGreenhouseRepository(db *gorm.DB, timeout time.Duration) *GormGreenhouseRepository {
	return &GormGreenhouseRepository{base: newBase(db, timeout)}
}

func (r *GormGreenhouseRepository) Create(ctx context.Context, gh *models.Greenhouse) error {
	return r.run(ctx, "Greenhouse", func(db *gorm.DB) error {
		return db.Create(gh).Error
	})
}

// GetByID loads a greenhouse, with its plants and sensors when withDetails is set
func (r *GormGreenhouseRepository) GetByID(ctx context.Context, id uint, withDetails bool) (*models.Greenhouse, error) {
	var gh models.Greenhouse
	err := r.run(ctx, "Greenhouse", func(db *gorm.DB) error {
		if withDetails {
			db = db.Preload("Plants", byID).Preload("Sensors", byID)
		}
		return db.First(&gh, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &gh, nil
}

func byID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

func (r *GormGreenhouseRepository) ListByOwner(ctx context.Context, ownerID uint, skip, limit int) ([]models.Greenhouse, error) {
	skip, limit = page(skip, limit, DefaultGreenhouseLimit, MaxGreenhouseLimit)
	greenhouses := []models.Greenhouse{}
	err := r.run(ctx, "Greenhouse", func(db *gorm.DB) error {
		return db.Where("user_id = ?", ownerID).Order("id ASC").Offset(skip).Limit(limit).Find(&greenhouses).Error
	})
	return greenhouses, err
}

func (r *GormGreenhouseRepository) Update(ctx context.Context, id uint, updates map[string]any) (*models.Greenhouse, error) {
	var gh models.Greenhouse
	err := r.transaction(ctx, "Greenhouse", func(tx *gorm.DB) error {
		if err := tx.First(&gh, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&gh).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&gh, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &gh, nil
}

// Delete removes the greenhouse with its plants, analyses, sensors and readings
func (r *GormGreenhouseRepository) Delete(ctx context.Context, id uint) error {
	return r.transaction(ctx, "Greenhouse", func(tx *gorm.DB) error {
		var gh models.Greenhouse
		if err := tx.Select("id").First(&gh, id).Error; err != nil {
			return err
		}

		var plantIDs, sensorIDs []uint
		if err := tx.Model(&models.Plant{}).Where("greenhouse_id = ?", id).Pluck("id", &plantIDs).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Sensor{}).Where("greenhouse_id = ?", id).Pluck("id", &sensorIDs).Error; err != nil {
			return err
		}
		if err := deletePlants(tx, plantIDs); err != nil {
			return err
		}
		if err := deleteSensors(tx, sensorIDs); err != nil {
			return err
		}
		return tx.Delete(&models.Greenhouse{}, id).Error
	})
}

func (r *GormGreenhouseRepository) OwnerOf(ctx context.Context, id uint) (uint, error) {
	var gh models.Greenhouse
	err := r.run(ctx, "Greenhouse", func(db *gorm.DB) error {
		return db.Select("id", "user_id").First(&gh, id).Error
	})
	return gh.UserID, err
}

func deletePlants(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("plant_id IN ?", ids).Delete(&models.PlantAnalysis{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&models.Plant{}).Error
}

func deleteSensors(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("sensor_id IN ?", ids).Delete(&models.SensorReading{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&models.Sensor{}).Error
}
