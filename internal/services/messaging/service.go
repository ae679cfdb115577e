// Package messaging sends direct messages and streams a conversation.
package messaging

import (
	"context"
	"errors"
	"strings"
	"time"

	svcErr "aigyoo-backend/internal/errors"
	"aigyoo-backend/internal/logger"
	"aigyoo-backend/internal/models"
	"aigyoo-backend/internal/realtime"
	"aigyoo-backend/internal/session"
	"aigyoo-backend/pkg/utils"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	MsgEmpty        = "Message cannot be empty"
	maxMessageRunes = 4000
)

type Service struct {
	db       *gorm.DB
	feed     realtime.Feed
	notifier utils.Notifier
	now      func() time.Time
}

func NewService(db *gorm.DB, feed realtime.Feed, notifier utils.Notifier) *Service {
	if notifier == nil {
		notifier = utils.NopNotifier{}
	}
	return &Service{db: db, feed: feed, notifier: notifier, now: time.Now}
}

// Topic is the realtime topic of the conversation between a and b.
func Topic(a, b string) realtime.Topic {
	return realtime.Topic{Table: realtime.TableMessages, Filter: models.PairKey(a, b)}
}

// Send stores a message from the caller to receiverID and publishes it.
func (s *Service) Send(ctx context.Context, sess *session.Session, receiverID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, svcErr.Validation(MsgEmpty)
	}
	if len([]rune(content)) > maxMessageRunes {
		return nil, svcErr.Validation("Message is too long")
	}
	if receiverID == sess.UserID {
		return nil, svcErr.Validation("You cannot message yourself")
	}
	if err := s.requireUser(ctx, receiverID); err != nil {
		return nil, err
	}

	msg := models.Message{
		SenderID:   sess.UserID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, svcErr.Map(err)
	}

	s.publish(ctx, realtime.EventInsert, &msg)
	s.notify(ctx, &msg)
	return &msg, nil
}

// Conversation returns the messages between the caller and otherID,
// oldest first. Sent and received rows are fetched concurrently.
func (s *Service) Conversation(ctx context.Context, sess *session.Session, otherID string) ([]models.Message, error) {
	if err := s.requireUser(ctx, otherID); err != nil {
		return nil, err
	}

	var sent, received []models.Message
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Where("sender_id = ? AND receiver_id = ?", sess.UserID, otherID).
			Find(&sent).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Where("sender_id = ? AND receiver_id = ?", otherID, sess.UserID).
			Find(&received).Error
	})
	if err := g.Wait(); err != nil {
		return nil, svcErr.Map(err)
	}

	conv := NewConversation(sent)
	conv.Merge(received)
	return conv.Messages(), nil
}

// MarkRead stamps read_at on unread messages otherID sent to the caller.
func (s *Service) MarkRead(ctx context.Context, sess *session.Session, otherID string) (int64, error) {
	if err := s.requireUser(ctx, otherID); err != nil {
		return 0, err
	}

	now := s.now().UTC()
	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND read_at IS NULL", otherID, sess.UserID).
		Update("read_at", now)
	if res.Error != nil {
		return 0, svcErr.Map(res.Error)
	}

	if res.RowsAffected > 0 && s.feed != nil {
		ev, err := realtime.NewEvent(realtime.EventUpdate, realtime.TableMessages, "read:"+sess.UserID, map[string]interface{}{
			"reader_id": sess.UserID,
			"read_at":   now,
		})
		if err == nil {
			_ = s.feed.Publish(ctx, Topic(sess.UserID, otherID), ev)
		}
	}
	return res.RowsAffected, nil
}

// Stream subscribes to the conversation and seeds it with the current
// snapshot. onMessage receives the snapshot first, then every new message
// exactly once, until ctx is done.
func (s *Service) Stream(ctx context.Context, sess *session.Session, otherID string, onMessage func(models.Message) error) error {
	if s.feed == nil {
		return svcErr.Backend("realtime is not available", nil)
	}

	// Subscribe before the snapshot so nothing falls between the two
	sub, err := s.feed.Subscribe(ctx, Topic(sess.UserID, otherID))
	if err != nil {
		return svcErr.Backend("failed to subscribe", err)
	}
	defer sub.Close()

	snapshot, err := s.Conversation(ctx, sess, otherID)
	if err != nil {
		return err
	}
	conv := NewConversation(nil)
	for _, m := range snapshot {
		conv.Append(m)
		if err := onMessage(m); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C:
			if !ok {
				return nil
			}
			if ev.Type != realtime.EventInsert {
				continue
			}
			var m models.Message
			if err := ev.Decode(&m); err != nil {
				logger.Warn("malformed message event", "id", ev.ID, "error", err)
				continue
			}
			if !conv.Append(m) {
				continue
			}
			if err := onMessage(m); err != nil {
				return err
			}
		}
	}
}

func (s *Service) requireUser(ctx context.Context, id string) error {
	if !utils.IsUUID(id) {
		return svcErr.NotFound("User not found")
	}
	var p models.Profile
	err := s.db.WithContext(ctx).Select("id").First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return svcErr.NotFound("User not found")
	}
	return svcErr.Map(err)
}

func (s *Service) publish(ctx context.Context, typ realtime.EventType, msg *models.Message) {
	if s.feed == nil {
		return
	}
	ev, err := realtime.NewEvent(typ, realtime.TableMessages, msg.ID, msg)
	if err != nil {
		logger.Warn("message event not built", "error", err)
		return
	}
	if err := s.feed.Publish(ctx, Topic(msg.SenderID, msg.ReceiverID), ev); err != nil {
		logger.Warn("message event not published", "message_id", msg.ID, "error", err)
	}
}

func (s *Service) notify(ctx context.Context, msg *models.Message) {
	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "fcm_token").First(&user, "id = ?", msg.ReceiverID).Error; err != nil {
		return
	}
	preview := msg.Content
	if r := []rune(preview); len(r) > 80 {
		preview = string(r[:80]) + "…"
	}
	data := map[string]string{"type": "message", "sender_id": msg.SenderID, "message_id": msg.ID}
	if err := s.notifier.Send(ctx, user.FCMToken, "New message", preview, data); err != nil {
		logger.Warn("message push failed", "user_id", msg.ReceiverID, "error", err)
	}
}
