package models

import "time"

// Greenhouse is a physical growing site owned by a user
type Greenhouse struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Location  string    `gorm:"size:200" json:"location"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	Plants    []Plant   `gorm:"foreignKey:GreenhouseID;constraint:OnDelete:CASCADE" json:"plants,omitempty"`
	Sensors   []Sensor  `gorm:"foreignKey:GreenhouseID;constraint:OnDelete:CASCADE" json:"sensors,omitempty"`
}

// CreateGreenhouseRequest is the body of POST /greenhouses
type CreateGreenhouseRequest struct {
	Name     string  `json:"name" binding:"required,min=1,max=100"`
	Location *string `json:"location" binding:"omitempty,max=200"`
}

// UpdateGreenhouseRequest is the body of PATCH /greenhouses/:id
type UpdateGreenhouseRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=100"`
	Location *string `json:"location" binding:"omitempty,max=200"`
}

// Empty reports whether the request changes nothing
func (r UpdateGreenhouseRequest) Empty() bool {
	return r.Name == nil && r.Location == nil
}

// Plant is a crop tracked inside a greenhouse
type Plant struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"size:100;not null" json:"name"`
	Type         string          `gorm:"size:50;not null" json:"type"`
	GreenhouseID uint            `gorm:"not null;index" json:"greenhouse_id"`
	CreatedAt    time.Time       `json:"created_at"`
	Analyses     []PlantAnalysis `gorm:"foreignKey:PlantID;constraint:OnDelete:CASCADE" json:"analyses,omitempty"`
}

// CreatePlantRequest is the body of POST /plants
type CreatePlantRequest struct {
	Name         string `json:"name" binding:"required,min=1,max=100"`
	Type         string `json:"type" binding:"required,min=1,max=50"`
	GreenhouseID uint   `json:"greenhouse_id" binding:"required,gt=0"`
}

// UpdatePlantRequest is the body of PATCH /plants/:id
type UpdatePlantRequest struct {
	Name *string `json:"name" binding:"omitempty,min=1,max=100"`
	Type *string `json:"type" binding:"omitempty,min=1,max=50"`
}

// Empty reports whether the request changes nothing
func (r UpdatePlantRequest) Empty() bool {
	return r.Name == nil && r.Type == nil
}
