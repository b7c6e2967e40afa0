package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"greenhouse-assistant/backend/internal/models"
	"greenhouse-assistant/backend/internal/repository"
	"greenhouse-assistant/backend/pkg/cache"
	apperrors "greenhouse-assistant/backend/pkg/errors"
	"greenhouse-assistant/backend/pkg/logger"
)

var errGreenhouseForbidden = apperrors.NewForbiddenError(apperrors.CodeForbidden, "You do not have access to this greenhouse")

// GreenhouseService manages greenhouses and answers ownership questions for
// everything that lives inside one
type GreenhouseService struct {
	greenhouses repository.GreenhouseRepository
	cache       cache.Store
	cacheTTL    time.Duration
	log         *logger.Logger
}

// NewGreenhouseService creates a greenhouse service. store may be nil.
func NewGreenhouseService(greenhouses repository.GreenhouseRepository, store cache.Store, cacheTTL time.Duration, log *logger.Logger) *GreenhouseService {
	if store == nil {
		store = cache.Noop{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &GreenhouseService{greenhouses: greenhouses, cache: store, cacheTTL: cacheTTL, log: log}
}

func ownerCacheKey(greenhouseID uint) string {
	return fmt.Sprintf("greenhouse:%d:owner", greenhouseID)
}

// Create stores a greenhouse owned by ownerID
func (s *GreenhouseService) Create(ctx context.Context, ownerID uint, req *models.CreateGreenhouseRequest) (*models.Greenhouse, error) {
	gh := &models.Greenhouse{Name: req.Name, UserID: ownerID}
	if req.Location != nil {
		gh.Location = *req.Location
	}
	if err := s.greenhouses.Create(ctx, gh); err != nil {
		return nil, err
	}
	s.log.WithContext(ctx).Info("Greenhouse created", "greenhouse_id", gh.ID, "user_id", ownerID)
	return gh, nil
}

// Get returns a greenhouse with its plants and sensors
func (s *GreenhouseService) Get(ctx context.Context, id uint) (*models.Greenhouse, error) {
	return s.greenhouses.GetByID(ctx, id, true)
}

// List returns the owner's greenhouses
func (s *GreenhouseService) List(ctx context.Context, ownerID uint, skip, limit int) ([]models.Greenhouse, error) {
	return s.greenhouses.ListByOwner(ctx, ownerID, skip, limit)
}

// Update changes the given fields; an empty request is rejected
func (s *GreenhouseService) Update(ctx context.Context, id uint, req *models.UpdateGreenhouseRequest) (*models.Greenhouse, error) {
	if req.Empty() {
		return nil, apperrors.NewBadRequestError("NO_FIELDS", "No fields to update")
	}
	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	return s.greenhouses.Update(ctx, id, updates)
}

// Delete removes the greenhouse and everything inside it
func (s *GreenhouseService) Delete(ctx context.Context, id uint) error {
	if err := s.greenhouses.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, ownerCacheKey(id)); err != nil {
		s.log.Warn("Owner cache invalidation failed", "greenhouse_id", id, "error", err.Error())
	}
	return nil
}

// OwnerOf returns the owning user id, consulting the cache first
func (s *GreenhouseService) OwnerOf(ctx context.Context, id uint) (uint, error) {
	key := ownerCacheKey(id)
	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		s.log.Warn("Owner cache read failed", "greenhouse_id", id, "error", err.Error())
	} else if ok {
		if owner, err := strconv.ParseUint(raw, 10, 64); err == nil {
			return uint(owner), nil
		}
		_ = s.cache.Delete(ctx, key)
	}

	owner, err := s.greenhouses.OwnerOf(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := s.cache.Set(ctx, key, strconv.FormatUint(uint64(owner), 10), s.cacheTTL); err != nil {
		s.log.Warn("Owner cache write failed", "greenhouse_id", id, "error", err.Error())
	}
	return owner, nil
}

// Authorize checks that userID owns the greenhouse
func (s *GreenhouseService) Authorize(ctx context.Context, userID, greenhouseID uint) error {
	owner, err := s.OwnerOf(ctx, greenhouseID)
	if err != nil {
		return err
	}
	if owner != userID {
		return errGreenhouseForbidden
	}
	return nil
}
