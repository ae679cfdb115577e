package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ChatMessage is one transcript entry of an assistant conversation.
type ChatMessage struct {
	Role      string    `json:"role" binding:"required,oneof=user assistant"`
	Content   string    `json:"content" binding:"required"`
	Timestamp time.Time `json:"timestamp"`
}

// AIChatHistory is a transcript the user chose to save, read-only afterwards.
type AIChatHistory struct {
	ID           string                           `gorm:"type:char(36);primaryKey" json:"id"`
	UserID       string                           `gorm:"type:char(36);not null;index" json:"user_id"`
	Symptom      string                           `gorm:"size:255;not null" json:"symptom"`
	StartDate    *datatypes.Date                  `json:"start_date"`
	EndDate      *datatypes.Date                  `json:"end_date"`
	IsOngoing    bool                             `json:"is_ongoing"`
	Duration     string                           `gorm:"size:100" json:"duration"`
	Patterns     string                           `gorm:"type:text" json:"patterns"`
	Notes        string                           `gorm:"type:text" json:"notes"`
	ChatMessages datatypes.JSONSlice[ChatMessage] `json:"chat_messages"`
	CreatedAt    time.Time                        `json:"created_at"`
}

func (AIChatHistory) TableName() string { return "ai_doctor_chat_history" }

func (h *AIChatHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}

// SaveChatHistoryInput is the explicit save action of a finished chat.
// Dates use the YYYY-MM-DD layout.
type SaveChatHistoryInput struct {
	Symptom   string        `json:"symptom"`
	StartDate string        `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate   string        `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
	IsOngoing bool          `json:"is_ongoing"`
	Duration  string        `json:"duration"`
	Patterns  string        `json:"patterns"`
	Notes     string        `json:"notes"`
	Messages  []ChatMessage `json:"messages" binding:"dive"`
}

// AssistantChatInput is one assistant turn: the full client-held transcript.
type AssistantChatInput struct {
	Messages []ChatMessage `json:"messages" binding:"required,min=1,dive"`
}
