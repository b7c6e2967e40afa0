package models

import "time"

// Analysis types
const (
	AnalysisHealth = "health"
	AnalysisPest   = "pest"
)

// PlantAnalysis stores the outcome of a health or pest check on a plant
type PlantAnalysis struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PlantID      uint      `gorm:"not null;index" json:"plant_id"`
	AnalysisType string    `gorm:"size:10;not null" json:"analysis_type"`
	Result       string    `gorm:"size:100;not null" json:"result"`
	Confidence   *float64  `json:"confidence"` // 0-1
	AnalyzedAt   time.Time `gorm:"autoCreateTime" json:"analyzed_at"`
}

// TableName keeps the historical table name
func (PlantAnalysis) TableName() string {
	return "plants_analysis"
}

// CreateAnalysisRequest is the body of POST /plants/:id/analyses
type CreateAnalysisRequest struct {
	AnalysisType string   `json:"analysis_type" binding:"required,oneof=health pest"`
	Result       string   `json:"result" binding:"required,min=1,max=100"`
	Confidence   *float64 `json:"confidence" binding:"omitempty,gte=0,lte=1"`
}

// ClassifyRequest is the body of POST /plants/:id/analyses/classify
type ClassifyRequest struct {
	ImageURL string `json:"image_url" binding:"required,url"`
}
