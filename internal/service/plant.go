package service

import (
	"context"

	"greenhouse-assistant/backend/internal/models"
	"greenhouse-assistant/backend/internal/planthealth"
	"greenhouse-assistant/backend/internal/repository"
	apperrors "greenhouse-assistant/backend/pkg/errors"
	"greenhouse-assistant/backend/pkg/logger"
)

// Classifier identifies plant diseases in an image
type Classifier interface {
	Classify(ctx context.Context, imageURL string) (*planthealth.Result, error)
}

// PlantService manages plants and their analyses
type PlantService struct {
	plants      repository.PlantRepository
	greenhouses *GreenhouseService
	classifier  Classifier
	log         *logger.Logger
}

// NewPlantService creates a plant service. classifier may be nil, in which
// case Classify reports a configuration error.
func NewPlantService(plants repository.PlantRepository, greenhouses *GreenhouseService, classifier Classifier, log *logger.Logger) *PlantService {
	if log == nil {
		log = logger.Discard()
	}
	return &PlantService{plants: plants, greenhouses: greenhouses, classifier: classifier, log: log}
}

// Authorize checks that userID owns the greenhouse the plant grows in
func (s *PlantService) Authorize(ctx context.Context, userID, plantID uint) error {
	greenhouseID, err := s.plants.GreenhouseOf(ctx, plantID)
	if err != nil {
		return err
	}
	return s.greenhouses.Authorize(ctx, userID, greenhouseID)
}

// Create adds a plant to a greenhouse owned by userID
func (s *PlantService) Create(ctx context.Context, userID uint, req *models.CreatePlantRequest) (*models.Plant, error) {
	if err := s.greenhouses.Authorize(ctx, userID, req.GreenhouseID); err != nil {
		return nil, err
	}
	plant := &models.Plant{Name: req.Name, Type: req.Type, GreenhouseID: req.GreenhouseID}
	if err := s.plants.Create(ctx, plant); err != nil {
		return nil, err
	}
	return plant, nil
}

// Get returns the plant with its analyses
func (s *PlantService) Get(ctx context.Context, id uint) (*models.Plant, error) {
	return s.plants.GetByID(ctx, id, true)
}

// ListByGreenhouse returns the plants of a greenhouse
func (s *PlantService) ListByGreenhouse(ctx context.Context, greenhouseID uint, skip, limit int) ([]models.Plant, error) {
	return s.plants.ListByGreenhouse(ctx, greenhouseID, skip, limit)
}

// Update changes the given fields; an empty request is rejected
func (s *PlantService) Update(ctx context.Context, id uint, req *models.UpdatePlantRequest) (*models.Plant, error) {
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
	return s.plants.Update(ctx, id, updates)
}

// Delete removes the plant and its analyses
func (s *PlantService) Delete(ctx context.Context, id uint) error {
	return s.plants.Delete(ctx, id)
}

// AddAnalysis records a health or pest check
func (s *PlantService) AddAnalysis(ctx context.Context, plantID uint, req *models.CreateAnalysisRequest) (*models.PlantAnalysis, error) {
	analysis := &models.PlantAnalysis{
		PlantID:      plantID,
		AnalysisType: req.AnalysisType,
		Result:       req.Result,
		Confidence:   req.Confidence,
	}
	if err := s.plants.CreateAnalysis(ctx, analysis); err != nil {
		return nil, err
	}
	return analysis, nil
}

// ListAnalyses returns the plant's analyses, newest first
func (s *PlantService) ListAnalyses(ctx context.Context, plantID uint, limit int) ([]models.PlantAnalysis, error) {
	return s.plants.ListAnalyses(ctx, plantID, limit)
}

// Classify runs the image through the disease classifier and stores the top
// prediction as a health analysis
func (s *PlantService) Classify(ctx context.Context, plantID uint, imageURL string) (*models.PlantAnalysis, *planthealth.Result, error) {
	if s.classifier == nil {
		return nil, nil, apperrors.NewConfigurationError("Plant health classifier is not configured", planthealth.ErrMissingToken)
	}
	if _, err := s.plants.GreenhouseOf(ctx, plantID); err != nil {
		return nil, nil, err
	}

	result, err := s.classifier.Classify(ctx, imageURL)
	if err != nil {
		s.log.WithContext(ctx).LogError(err, "Plant classification failed", "plant_id", plantID)
		return nil, nil, apperrors.NewError(502, "CLASSIFIER_ERROR", "Error communicating with the plant health classifier").WithCause(err)
	}

	confidence := result.Top.Score
	label := result.Top.Label
	if len(label) > 100 {
		label = label[:100]
	}
	analysis := &models.PlantAnalysis{
		PlantID:      plantID,
		AnalysisType: models.AnalysisHealth,
		Result:       label,
		Confidence:   &confidence,
	}
	if err := s.plants.CreateAnalysis(ctx, analysis); err != nil {
		return nil, nil, err
	}
	return analysis, result, nil
}
