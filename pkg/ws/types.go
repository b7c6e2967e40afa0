package ws

import (
	"time"
)

// Message types pushed to live subscribers
const (
	TypeReading = "reading"
	TypeHello   = "hello"
	TypePing    = "ping"
	TypePong    = "pong"
	TypeError   = "error"
)

// Envelope is the frame written to every websocket client
type Envelope struct {
	Type    string `json:"type"`
	Content any    `json:"content"`
}

// Reading is one stored sensor value as seen by live subscribers
type Reading struct {
	ID           uint      `json:"id"`
	GreenhouseID uint      `json:"greenhouse_id"`
	SensorID     uint      `json:"sensor_id"`
	SensorName   string    `json:"sensor_name"`
	SensorType   string    `json:"sensor_type"`
	Value        float64   `json:"value"`
	RecordedAt   time.Time `json:"recorded_at"`
}
