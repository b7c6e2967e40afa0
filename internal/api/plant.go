package api

import (
	"net/http"

	"greenhouse-assistant/backend/internal/models"
	"greenhouse-assistant/backend/internal/planthealth"
	"greenhouse-assistant/backend/internal/repository"
	"greenhouse-assistant/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// PlantController handles plant and analysis endpoints
type PlantController struct {
	plants *service.PlantService
}

// NewPlantController creates a new plant controller
func NewPlantController(plants *service.PlantService) *PlantController {
	return &PlantController{plants: plants}
}

// RegisterRoutes registers the plant routes on an authenticated group
func (ctl *PlantController) RegisterRoutes(group *gin.RouterGroup) {
	plants := group.Group("/plants")
	{
		plants.POST("", ctl.Create)
		plants.GET("/:id", ctl.authorize, ctl.Get)
		plants.PATCH("/:id", ctl.authorize, ctl.Update)
		plants.DELETE("/:id", ctl.authorize, ctl.Delete)
		plants.POST("/:id/analyses", ctl.authorize, ctl.AddAnalysis)
		plants.GET("/:id/analyses", ctl.authorize, ctl.ListAnalyses)
		plants.POST("/:id/analyses/classify", ctl.authorize, ctl.Classify)
	}
}

const plantIDKey = "plantID"

func (ctl *PlantController) authorize(c *gin.Context) {
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
	if err := ctl.plants.Authorize(c.Request.Context(), userID, id); err != nil {
		c.Error(err)
		c.Abort()
		return
	}
	c.Set(plantIDKey, id)
	c.Next()
}

// Create adds a plant to one of the caller's greenhouses
func (ctl *PlantController) Create(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		c.Error(err)
		return
	}
	var req models.CreatePlantRequest
	if !bind(c, &req) {
		return
	}
	plant, err := ctl.plants.Create(c.Request.Context(), userID, &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, plant)
}

// Get returns the plant with its analyses
func (ctl *PlantController) Get(c *gin.Context) {
	plant, err := ctl.plants.Get(c.Request.Context(), c.GetUint(plantIDKey))
	if err != nil {
		c.Error(err)
		return
	}
	if plant.Analyses == nil {
		plant.Analyses = []models.PlantAnalysis{}
	}
	c.JSON(http.StatusOK, plant)
}

// Update renames or retypes the plant
func (ctl *PlantController) Update(c *gin.Context) {
	var req models.UpdatePlantRequest
	if !bind(c, &req) {
		return
	}
	plant, err := ctl.plants.Update(c.Request.Context(), c.GetUint(plantIDKey), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, plant)
}

// Delete removes the plant and its analyses
func (ctl *PlantController) Delete(c *gin.Context) {
	if err := ctl.plants.Delete(c.Request.Context(), c.GetUint(plantIDKey)); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddAnalysis records a health or pest check
func (ctl *PlantController) AddAnalysis(c *gin.Context) {
	var req models.CreateAnalysisRequest
	if !bind(c, &req) {
		return
	}
	analysis, err := ctl.plants.AddAnalysis(c.Request.Context(), c.GetUint(plantIDKey), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, analysis)
}

// ListAnalyses returns the plant's analyses, newest first
func (ctl *PlantController) ListAnalyses(c *gin.Context) {
	limit, err := queryInt(c, "limit", repository.DefaultAnalysisLimit)
	if err != nil {
		c.Error(err)
		return
	}
	analyses, err := ctl.plants.ListAnalyses(c.Request.Context(), c.GetUint(plantIDKey), limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, analyses)
}

// ClassifyResponse pairs the stored analysis with every prediction
type ClassifyResponse struct {
	Analysis    *models.PlantAnalysis    `json:"analysis"`
	Predictions []planthealth.Prediction `json:"predictions"`
}

// Classify sends an image to the disease classifier and stores the result
func (ctl *PlantController) Classify(c *gin.Context) {
	var req models.ClassifyRequest
	if !bind(c, &req) {
		return
	}
	analysis, result, err := ctl.plants.Classify(c.Request.Context(), c.GetUint(plantIDKey), req.ImageURL)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, ClassifyResponse{Analysis: analysis, Predictions: result.Predictions})
}
