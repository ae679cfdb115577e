package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	svcErr "aigyoo-backend/internal/errors"
	"aigyoo-backend/internal/models"
	"aigyoo-backend/internal/session"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const MsgSaveIncomplete = "Please enter a symptom and have at least one message in the chat"

// History stores transcripts the user explicitly saved.
type History struct {
	db *gorm.DB
}

func NewHistory(db *gorm.DB) *History {
	return &History{db: db}
}

// Save stores a finished transcript for the caller.
func (h *History) Save(ctx context.Context, sess *session.Session, input models.SaveChatHistoryInput) (*models.AIChatHistory, error) {
	symptom := strings.TrimSpace(input.Symptom)
	if symptom == "" || len(input.Messages) == 0 {
		return nil, svcErr.Validation(MsgSaveIncomplete)
	}

	start, err := parseDate(input.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(input.EndDate)
	if err != nil {
		return nil, err
	}
	if input.IsOngoing {
		end = nil
	}
	if start != nil && end != nil && time.Time(*end).Before(time.Time(*start)) {
		return nil, svcErr.Validation("End date cannot be before start date")
	}

	messages := make([]models.ChatMessage, len(input.Messages))
	for i, m := range input.Messages {
		if m.Timestamp.IsZero() {
			m.Timestamp = time.Now().UTC()
		}
		messages[i] = m
	}

	rec := models.AIChatHistory{
		UserID:       sess.UserID,
		Symptom:      symptom,
		StartDate:    start,
		EndDate:      end,
		IsOngoing:    input.IsOngoing,
		Duration:     strings.TrimSpace(input.Duration),
		Patterns:     strings.TrimSpace(input.Patterns),
		Notes:        strings.TrimSpace(input.Notes),
		ChatMessages: datatypes.NewJSONSlice(messages),
	}
	if err := h.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, svcErr.Map(err)
	}
	return &rec, nil
}

// List returns the caller's saved transcripts, newest first.
func (h *History) List(ctx context.Context, sess *session.Session) ([]models.AIChatHistory, error) {
	var out []models.AIChatHistory
	err := h.db.WithContext(ctx).
		Where("user_id = ?", sess.UserID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return out, nil
}

// Delete removes one of the caller's saved transcripts.
func (h *History) Delete(ctx context.Context, sess *session.Session, id string) error {
	var rec models.AIChatHistory
	err := h.db.WithContext(ctx).Select("id", "user_id").First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return svcErr.NotFound("Chat history not found")
	}
	if err != nil {
		return svcErr.Map(err)
	}
	if rec.UserID != sess.UserID && !sess.IsAdmin() {
		return svcErr.Forbidden("You can only delete your own chat history")
	}
	return svcErr.Map(h.db.WithContext(ctx).Delete(&models.AIChatHistory{}, "id = ?", id).Error)
}

func parseDate(s string) (*datatypes.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, svcErr.Validation("Dates must use the YYYY-MM-DD format")
	}
	d := datatypes.Date(t)
	return &d, nil
}
