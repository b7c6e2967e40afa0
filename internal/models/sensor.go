package models

import "time"

// Sensor types
const (
	SensorTemperature  = "temperature"
	SensorHumidity     = "humidity"
	SensorLight        = "light"
	SensorSoilMoisture = "soil_moisture"
)

// Sensor is a measuring device installed in a greenhouse
type Sensor struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	GreenhouseID uint            `gorm:"not null;index" json:"greenhouse_id"`
	Name         string          `gorm:"size:100;not null" json:"name"`
	Type         string          `gorm:"size:20;not null" json:"type"`
	Active       bool            `gorm:"not null" json:"active"`
	InstalledAt  time.Time       `gorm:"autoCreateTime" json:"installed_at"`
	Readings     []SensorReading `gorm:"foreignKey:SensorID;constraint:OnDelete:CASCADE" json:"readings,omitempty"`
}

// SensorReading is one measured value
type SensorReading struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SensorID   uint      `gorm:"not null;index" json:"sensor_id"`
	Value      float64   `gorm:"not null" json:"value"`
	RecordedAt time.Time `gorm:"not null;index" json:"recorded_at"`
}

// CreateSensorRequest is the body of POST /sensors
type CreateSensorRequest struct {
	Name         string `json:"name" binding:"required,min=1,max=100"`
	Type         string `json:"type" binding:"required,oneof=temperature humidity light soil_moisture"`
	GreenhouseID uint   `json:"greenhouse_id" binding:"required,gt=0"`
	Active       *bool  `json:"active"`
}

// UpdateSensorRequest is the body of PATCH /sensors/:id
type UpdateSensorRequest struct {
	Name   *string `json:"name" binding:"omitempty,min=1,max=100"`
	Type   *string `json:"type" binding:"omitempty,oneof=temperature humidity light soil_moisture"`
	Active *bool   `json:"active"`
}

// Empty reports whether the request changes nothing
func (r UpdateSensorRequest) Empty() bool {
	return r.Name == nil && r.Type == nil && r.Active == nil
}

// CreateReadingRequest is the body of POST /sensors/:id/readings
type CreateReadingRequest struct {
	Value *float64 `json:"value" binding:"required"`
}

// BulkReadingsRequest is the body of POST /sensors/:id/readings/bulk
type BulkReadingsRequest struct {
	Readings []float64 `json:"readings" binding:"required,min=1,max=1000"`
}
