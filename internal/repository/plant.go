package repository

import (
	"context"
	"time"

	"greenhouse-assistant/backend/internal/models"

	"gorm.io/gorm"
)

const (
	DefaultPlantLimit    = 100
	MaxPlantLimit        = 100
	DefaultAnalysisLimit = 50
	MaxAnalysisLimit     = 100
)

// PlantRepository stores plants and their analyses
type PlantRepository interface {
	Create(ctx context.Context, plant *models.Plant) error
	GetByID(ctx context.Context, id uint, withAnalyses bool) (*models.Plant, error)
	ListByGreenhouse(ctx context.Context, greenhouseID uint, skip, limit int) ([]models.Plant, error)
	Update(ctx context.Context, id uint, updates map[string]any) (*models.Plant, error)
	Delete(ctx context.Context, id uint) error
	GreenhouseOf(ctx context.Context, id uint) (uint, error)
	CreateAnalysis(ctx context.Context, analysis *models.PlantAnalysis) error
	ListAnalyses(ctx context.Context, plantID uint, limit int) ([]models.PlantAnalysis, error)
}

// GormPlantRepository implements PlantRepository
type GormPlantRepository struct {
	base
}

// NewGormPlantRepository creates a plant repository
func NewGormPlantRepository(db *gorm.DB, timeout time.Duration) *GormPlantRepository {
	return &GormPlantRepository{base: newBase(db, timeout)}
}

func (r *GormPlantRepository) Create(ctx context.Context, plant *models.Plant) error {
	return r.run(ctx, "Plant", func(db *gorm.DB) error {
		return db.Create(plant).Error
	})
}

func newestAnalysesFirst(db *gorm.DB) *gorm.DB {
	return db.Order("analyzed_at DESC").Order("id DESC")
}

func (r *GormPlantRepository) GetByID(ctx context.Context, id uint, withAnalyses bool) (*models.Plant, error) {
	var plant models.Plant
	err := r.run(ctx, "Plant", func(db *gorm.DB) error {
		if withAnalyses {
			db = db.Preload("Analyses", newestAnalysesFirst)
		}
		return db.First(&plant, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &plant, nil
}

func (r *GormPlantRepository) ListByGreenhouse(ctx context.Context, greenhouseID uint, skip, limit int) ([]models.Plant, error) {
	skip, limit = page(skip, limit, DefaultPlantLimit, MaxPlantLimit)
	plants := []models.Plant{}
	err := r.run(ctx, "Plant", func(db *gorm.DB) error {
		return db.Where("greenhouse_id = ?", greenhouseID).Order("id ASC").Offset(skip).Limit(limit).Find(&plants).Error
	})
	return plants, err
}

func (r *GormPlantRepository) Update(ctx context.Context, id uint, updates map[string]any) (*models.Plant, error) {
	var plant models.Plant
	err := r.transaction(ctx, "Plant", func(tx *gorm.DB) error {
		if err := tx.First(&plant, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&plant).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&plant, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &plant, nil
}

// Delete removes the plant and its analyses
func (r *GormPlantRepository) Delete(ctx context.Context, id uint) error {
	return r.transaction(ctx, "Plant", func(tx *gorm.DB) error {
		var plant models.Plant
		if err := tx.Select("id").First(&plant, id).Error; err != nil {
			return err
		}
		return deletePlants(tx, []uint{id})
	})
}

func (r *GormPlantRepository) GreenhouseOf(ctx context.Context, id uint) (uint, error) {
	var plant models.Plant
	err := r.run(ctx, "Plant", func(db *gorm.DB) error {
		return db.Select("id", "greenhouse_id").First(&plant, id).Error
	})
	return plant.GreenhouseID, err
}

func (r *GormPlantRepository) CreateAnalysis(ctx context.Context, analysis *models.PlantAnalysis) error {
	return r.run(ctx, "Plant analysis", func(db *gorm.DB) error {
		return db.Create(analysis).Error
	})
}

func (r *GormPlantRepository) ListAnalyses(ctx context.Context, plantID uint, limit int) ([]models.PlantAnalysis, error) {
	_, limit = page(0, limit, DefaultAnalysisLimit, MaxAnalysisLimit)
	analyses := []models.PlantAnalysis{}
	err := r.run(ctx, "Plant analysis", func(db *gorm.DB) error {
		return newestAnalysesFirst(db.Where("plant_id = ?", plantID)).Limit(limit).Find(&analyses).Error
	})
	return analyses, err
}
