package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a direct message. Rows are immutable apart from ReadAt.
type Message struct {
	ID         string     `gorm:"type:char(36);primaryKey" json:"id"`
	SenderID   string     `gorm:"type:char(36);not null;index:idx_message_pair,priority:1" json:"sender_id"`
	ReceiverID string     `gorm:"type:char(36);not null;index:idx_message_pair,priority:2" json:"receiver_id"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time  `gorm:"index:idx_message_pair,priority:3" json:"created_at"`
	ReadAt     *time.Time `json:"read_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

type SendMessageInput struct {
	Content string `json:"content"`
}
