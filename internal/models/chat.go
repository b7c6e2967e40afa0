package models

import (
	"time"

	"greenhouse-assistant/backend/ai"
)

// Message authors
const (
	AuthorUser      = "user"
	AuthorAssistant = "assistant"
)

// Chat is a named conversation owned by one user
type Chat struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   uint      `gorm:"not null;index" json:"owner_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
	Messages  []Message `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// Message is one immutable turn of a chat
type Message struct {
	ID     uint      `gorm:"primaryKey" json:"id"`
	ChatID uint      `gorm:"not null;index" json:"chat_id"`
	Author string    `gorm:"size:20;not null" json:"author"`
	Body   string    `gorm:"type:text;not null" json:"message"`
	SentAt time.Time `gorm:"not null;index" json:"sent_at"`
}

// ValidAuthor reports whether author is a known message author
func ValidAuthor(author string) bool {
	return author == AuthorUser || author == AuthorAssistant
}

// CreateChatRequest is the body of POST /chats
type CreateChatRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// RenameChatRequest is the body of PATCH /chats/:id
type RenameChatRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// SendMessageRequest is the body of POST /chats/:id/messages
type SendMessageRequest struct {
	Message       string            `json:"message" binding:"required,min=1"`
	SensorData    ai.SensorData     `json:"sensor_data"`
	PlantAnalysis *ai.PlantAnalysis `json:"plant_analysis"`
}
