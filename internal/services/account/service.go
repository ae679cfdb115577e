// Package account removes a user and everything they own.
package account

import (
	"context"
	"errors"

	svcErr "aigyoo-backend/internal/errors"
	"aigyoo-backend/internal/logger"
	"aigyoo-backend/internal/models"
	"aigyoo-backend/internal/session"
	"aigyoo-backend/internal/storage"
	"aigyoo-backend/pkg/utils"

	"gorm.io/gorm"
)

// SignOuter ends the caller's session once their account is gone.
type SignOuter interface {
	SignOut(ctx context.Context, s *session.Session) error
}

type Service struct {
	db       *gorm.DB
	blobs    storage.BlobStore
	sessions SignOuter
}

func NewService(db *gorm.DB, blobs storage.BlobStore, sessions SignOuter) *Service {
	return &Service{db: db, blobs: blobs, sessions: sessions}
}

// Delete removes userID. Only the account owner or an admin may do it.
// Uploaded files go first, then every row in one transaction, children
// before parents. Tokens of the deleted user stop resolving because
// CurrentUser requires the user row.
func (s *Service) Delete(ctx context.Context, sess *session.Session, userID string) error {
	if sess == nil {
		return svcErr.AuthRequired("Not authenticated")
	}
	if userID == "" {
		return svcErr.Validation("User ID is required")
	}
	if userID != sess.UserID && !sess.IsAdmin() {
		return svcErr.Forbidden("You can only delete your own account")
	}
	if !utils.IsUUID(userID) {
		return svcErr.NotFound("User not found")
	}

	var user models.User
	err := s.db.WithContext(ctx).Select("id").First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return svcErr.NotFound("User not found")
	}
	if err != nil {
		return svcErr.Map(err)
	}

	if s.blobs != nil {
		n, err := s.blobs.DeletePrefix(ctx, storage.UserPrefix(userID))
		if err != nil {
			return svcErr.Backend("failed to delete uploaded files", err)
		}
		logger.Info("account files removed", "user_id", userID, "objects", n)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		postIDs := tx.Model(&models.Post{}).Select("id").Where("user_id = ?", userID)

		steps := []struct {
			model interface{}
			query string
			args  []interface{}
		}{
			{&models.Like{}, "user_id = ? OR post_id IN (?)", []interface{}{userID, postIDs}},
			{&models.Comment{}, "user_id = ? OR post_id IN (?)", []interface{}{userID, postIDs}},
			{&models.Post{}, "user_id = ?", []interface{}{userID}},
			{&models.Message{}, "sender_id = ? OR receiver_id = ?", []interface{}{userID, userID}},
			{&models.Friendship{}, "requester_id = ? OR receiver_id = ?", []interface{}{userID, userID}},
			{&models.DoctorVerification{}, "user_id = ?", []interface{}{userID}},
			{&models.AIChatHistory{}, "user_id = ?", []interface{}{userID}},
			{&models.Profile{}, "id = ?", []interface{}{userID}},
			{&models.User{}, "id = ?", []interface{}{userID}},
		}
		for _, st := range steps {
			if err := tx.Where(st.query, st.args...).Delete(st.model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return svcErr.Backend("failed to delete account", err)
	}

	logger.Info("account deleted", "user_id", userID, "by", sess.UserID)

	if userID == sess.UserID && s.sessions != nil {
		if err := s.sessions.SignOut(ctx, sess); err != nil {
			logger.Warn("session not revoked after account deletion", "user_id", userID, "error", err)
		}
	}
	return nil
}
