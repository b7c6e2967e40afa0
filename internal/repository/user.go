package repository

import (
	"context"
	"time"

	"greenhouse-assistant/backend/internal/models"

	"gorm.io/gorm"
)

const (
	DefaultUserLimit = 100
	MaxUserLimit     = 100
)

// UserRepository stores accounts
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context, skip, limit int) ([]models.User, error)
	Update(ctx context.Context, id uint, updates map[string]any) (*models.User, error)
}

// GormUserRepository implements UserRepository
type GormUserRepository struct {
	base
}

// NewGormUserRepository creates a user repository
func NewGormUserRepository(db *gorm.DB, timeout time.Duration) *GormUserRepository {
	return &GormUserRepository{base: newBase(db, timeout)}
}

func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.run(ctx, "User", func(db *gorm.DB) error {
		return db.Create(user).Error
	})
}

func (r *GormUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.run(ctx, "User", func(db *gorm.DB) error {
		return db.First(&user, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.run(ctx, "User", func(db *gorm.DB) error {
		return db.Where("username = ?", username).First(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) List(ctx context.Context, skip, limit int) ([]models.User, error) {
	skip, limit = page(skip, limit, DefaultUserLimit, MaxUserLimit)
	users := []models.User{}
	err := r.run(ctx, "User", func(db *gorm.DB) error {
		return db.Order("id ASC").Offset(skip).Limit(limit).Find(&users).Error
	})
	return users, err
}

// Update applies column updates; the password column must already be hashed
func (r *GormUserRepository) Update(ctx context.Context, id uint, updates map[string]any) (*models.User, error) {
	var user models.User
	err := r.transaction(ctx, "User", func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&user, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
