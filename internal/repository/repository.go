package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"greenhouse-assistant/backend/internal/models"
	apperrors "greenhouse-assistant/backend/pkg/errors"

	"gorm.io/gorm"
)

// DefaultTimeout bounds a single repository call when none is configured
const DefaultTimeout = 5 * time.Second

// base runs every query on a context bounded by timeout and converts driver
// errors into application errors
type base struct {
	db      *gorm.DB
	timeout time.Duration
}

func newBase(db *gorm.DB, timeout time.Duration) base {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return base{db: db, timeout: timeout}
}

func (b base) run(ctx context.Context, entity string, fn func(db *gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return translate(ctx, fn(b.db.WithContext(ctx)), entity)
}

func (b base) transaction(ctx context.Context, entity string, fn func(tx *gorm.DB) error) error {
	return b.run(ctx, entity, func(db *gorm.DB) error {
		return db.Transaction(fn)
	})
}

func translate(ctx context.Context, err error, entity string) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound(entity)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), ctx.Err() != nil:
		return apperrors.NewStorageTimeoutError(err)
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated), isConstraintViolation(err):
		return apperrors.NewConflictError(apperrors.CodeConflict, entity+" conflicts with existing data").WithCause(err)
	}
	return apperrors.NewInternalServerError("DATABASE_ERROR", "Database operation failed").WithCause(err)
}

// NotFound builds the error returned for a missing entity
func NotFound(entity string) *apperrors.AppError {
	code := strings.ToUpper(strings.ReplaceAll(entity, " ", "_")) + "_NOT_FOUND"
	return apperrors.NewNotFoundError(code, entity+" not found")
}

// isConstraintViolation catches driver messages that were not translated
func isConstraintViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"unique constraint failed",
		"foreign key constraint failed",
		"not null constraint failed",
		"check constraint failed",
		"duplicate key value",
		"violates foreign key constraint",
		"violates not-null constraint",
		"violates check constraint",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// page clamps skip/limit
func page(skip, limit, defaultLimit, maxLimit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return skip, limit
}

// Migrate creates or updates the schema, parents before children
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Greenhouse{},
		&models.Plant{},
		&models.PlantAnalysis{},
		&models.Sensor{},
		&models.SensorReading{},
		&models.Chat{},
		&models.Message{},
	)
}
