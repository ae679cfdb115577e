// Package social manages friend requests. One edge exists per unordered
// pair of users; friendship is the accepted edge read in either direction.
package social

import (
	"context"
	"errors"

	svcErr "aigyoo-backend/internal/errors"
	"aigyoo-backend/internal/logger"
	"aigyoo-backend/internal/models"
	"aigyoo-backend/internal/realtime"
	"aigyoo-backend/internal/services/verification"
	"aigyoo-backend/internal/session"
	"aigyoo-backend/pkg/utils"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Relation is the state of the edge between the caller and another user.
type Relation string

const (
	RelationNone     Relation = "none"
	RelationSelf     Relation = "self"
	RelationSent     Relation = "request_sent"
	RelationReceived Relation = "request_received"
	RelationFriends  Relation = "friends"
)

type Service struct {
	db       *gorm.DB
	feed     realtime.Feed
	notifier utils.Notifier
}

func NewService(db *gorm.DB, feed realtime.Feed, notifier utils.Notifier) *Service {
	if notifier == nil {
		notifier = utils.NopNotifier{}
	}
	return &Service{db: db, feed: feed, notifier: notifier}
}

// SendRequest creates a pending edge from the caller to receiverID.
func (s *Service) SendRequest(ctx context.Context, sess *session.Session, receiverID string) (*models.Friendship, error) {
	if receiverID == sess.UserID {
		return nil, svcErr.Validation("You cannot send a friend request to yourself")
	}
	if err := s.requireProfile(ctx, receiverID); err != nil {
		return nil, err
	}

	// Either direction counts as an existing edge
	existing, err := s.edge(ctx, sess.UserID, receiverID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status == models.FriendshipAccepted {
			return nil, svcErr.Conflict("You are already friends")
		}
		return nil, svcErr.Conflict("A friend request already exists")
	}

	edge := models.Friendship{
		RequesterID: sess.UserID,
		ReceiverID:  receiverID,
		Status:      models.FriendshipPending,
	}
	if err := s.db.WithContext(ctx).Create(&edge).Error; err != nil {
		// Lost a race against the other side: the unique pair key decides
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, svcErr.Conflict("A friend request already exists")
		}
		return nil, svcErr.Map(err)
	}

	s.publish(ctx, realtime.EventInsert, &edge)
	s.notify(ctx, receiverID, "New friend request", "Someone wants to connect with you", sess.UserID)
	logger.Info("friend request sent", "requester_id", sess.UserID, "receiver_id", receiverID)
	return &edge, nil
}

// AcceptRequest accepts the pending request requesterID sent to the caller.
func (s *Service) AcceptRequest(ctx context.Context, sess *session.Session, requesterID string) (*models.Friendship, error) {
	edge, err := s.edge(ctx, requesterID, sess.UserID)
	if err != nil {
		return nil, err
	}
	if edge == nil || edge.Status != models.FriendshipPending {
		return nil, svcErr.NotFound("Friend request not found")
	}
	// Only the receiver accepts
	if edge.ReceiverID != sess.UserID {
		return nil, svcErr.Forbidden("Only the receiver can accept this request")
	}

	err = s.db.WithContext(ctx).Model(edge).
		Where("status = ?", models.FriendshipPending).
		Update("status", models.FriendshipAccepted).Error
	if err != nil {
		return nil, svcErr.Map(err)
	}
	edge.Status = models.FriendshipAccepted

	s.publish(ctx, realtime.EventUpdate, edge)
	s.notify(ctx, requesterID, "Friend request accepted", "Your friend request was accepted", sess.UserID)
	return edge, nil
}

// CancelRequest deletes the pending request the caller sent to receiverID.
func (s *Service) CancelRequest(ctx context.Context, sess *session.Session, receiverID string) error {
	edge, err := s.edge(ctx, sess.UserID, receiverID)
	if err != nil {
		return err
	}
	if edge == nil || edge.Status != models.FriendshipPending {
		return svcErr.NotFound("Friend request not found")
	}
	// Only the original requester cancels
	if edge.RequesterID != sess.UserID {
		return svcErr.Forbidden("Only the requester can cancel this request")
	}

	res := s.db.WithContext(ctx).
		Where("id = ? AND status = ?", edge.ID, models.FriendshipPending).
		Delete(&models.Friendship{})
	if res.Error != nil {
		return svcErr.Map(res.Error)
	}
	if res.RowsAffected == 0 {
		return svcErr.NotFound("Friend request not found")
	}

	s.publish(ctx, realtime.EventDelete, edge)
	return nil
}

// IsFriend reports whether an accepted edge exists in either direction.
func (s *Service) IsFriend(ctx context.Context, a, b string) (bool, error) {
	edge, err := s.edge(ctx, a, b)
	if err != nil {
		return false, err
	}
	return edge != nil && edge.Status == models.FriendshipAccepted, nil
}

// IsPending reports whether a pending edge exists in either direction.
func (s *Service) IsPending(ctx context.Context, a, b string) (bool, error) {
	edge, err := s.edge(ctx, a, b)
	if err != nil {
		return false, err
	}
	return edge != nil && edge.Status == models.FriendshipPending, nil
}

// RelationTo describes the edge between the caller and otherID.
func (s *Service) RelationTo(ctx context.Context, sess *session.Session, otherID string) (Relation, error) {
	if otherID == sess.UserID {
		return RelationSelf, nil
	}
	edge, err := s.edge(ctx, sess.UserID, otherID)
	if err != nil {
		return RelationNone, err
	}
	switch {
	case edge == nil:
		return RelationNone, nil
	case edge.Status == models.FriendshipAccepted:
		return RelationFriends, nil
	case edge.RequesterID == sess.UserID:
		return RelationSent, nil
	default:
		return RelationReceived, nil
	}
}

// Friends lists the accepted friends of the caller.
func (s *Service) Friends(ctx context.Context, sess *session.Session) ([]models.Author, error) {
	var sent, received []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Friendship{}).
			Where("requester_id = ? AND status = ?", sess.UserID, models.FriendshipAccepted).
			Pluck("receiver_id", &sent).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Friendship{}).
			Where("receiver_id = ? AND status = ?", sess.UserID, models.FriendshipAccepted).
			Pluck("requester_id", &received).Error
	})
	if err := g.Wait(); err != nil {
		return nil, svcErr.Map(err)
	}

	return s.authorsInOrder(ctx, lo.Uniq(append(sent, received...)))
}

// FriendRequest is a pending request with the other party's identity.
type FriendRequest struct {
	models.Friendship
	From *models.Author `json:"from,omitempty"`
	To   *models.Author `json:"to,omitempty"`
}

// IncomingRequests lists pending requests sent to the caller.
func (s *Service) IncomingRequests(ctx context.Context, sess *session.Session) ([]FriendRequest, error) {
	return s.requests(ctx, "receiver_id", sess.UserID)
}

// SentRequests lists pending requests the caller sent.
func (s *Service) SentRequests(ctx context.Context, sess *session.Session) ([]FriendRequest, error) {
	return s.requests(ctx, "requester_id", sess.UserID)
}

// ConnectedIDs returns every user the caller has an edge with, in any state.
func (s *Service) ConnectedIDs(ctx context.Context, userID string) ([]string, error) {
	var edges []models.Friendship
	err := s.db.WithContext(ctx).
		Where("requester_id = ? OR receiver_id = ?", userID, userID).
		Find(&edges).Error
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return lo.Map(edges, func(e models.Friendship, _ int) string {
		if e.RequesterID == userID {
			return e.ReceiverID
		}
		return e.RequesterID
	}), nil
}

func (s *Service) requests(ctx context.Context, column, userID string) ([]FriendRequest, error) {
	var edges []models.Friendship
	err := s.db.WithContext(ctx).
		Where(column+" = ? AND status = ?", userID, models.FriendshipPending).
		Order("created_at desc").
		Find(&edges).Error
	if err != nil {
		return nil, svcErr.Map(err)
	}

	ids := lo.FlatMap(edges, func(e models.Friendship, _ int) []string {
		return []string{e.RequesterID, e.ReceiverID}
	})
	authors, err := verification.Authors(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	out := make([]FriendRequest, 0, len(edges))
	for _, e := range edges {
		req := FriendRequest{Friendship: e}
		if a, ok := authors[e.RequesterID]; ok {
			req.From = &a
		}
		if a, ok := authors[e.ReceiverID]; ok {
			req.To = &a
		}
		out = append(out, req)
	}
	return out, nil
}

func (s *Service) authorsInOrder(ctx context.Context, ids []string) ([]models.Author, error) {
	authors, err := verification.Authors(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.Author, 0, len(ids))
	for _, id := range ids {
		if a, ok := authors[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// edge loads the single edge between a and b in either direction.
func (s *Service) edge(ctx context.Context, a, b string) (*models.Friendship, error) {
	var edge models.Friendship
	err := s.db.WithContext(ctx).Where("pair_key = ?", models.PairKey(a, b)).First(&edge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &edge, nil
}

func (s *Service) requireProfile(ctx context.Context, id string) error {
	if !utils.IsUUID(id) {
		return svcErr.NotFound("User not found")
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return svcErr.Map(err)
	}
	if count == 0 {
		return svcErr.NotFound("User not found")
	}
	return nil
}

// publish sends the change to both parties' friendship topics.
func (s *Service) publish(ctx context.Context, typ realtime.EventType, edge *models.Friendship) {
	if s.feed == nil {
		return
	}
	ev, err := realtime.NewEvent(typ, realtime.TableFriendships, edge.ID, edge)
	if err != nil {
		logger.Warn("friendship event not built", "error", err)
		return
	}
	for _, uid := range []string{edge.RequesterID, edge.ReceiverID} {
		topic := realtime.Topic{Table: realtime.TableFriendships, Filter: uid}
		if err := s.feed.Publish(ctx, topic, ev); err != nil {
			logger.Warn("friendship event not published", "user_id", uid, "error", err)
		}
	}
}

func (s *Service) notify(ctx context.Context, userID, title, body, fromID string) {
	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "fcm_token").First(&user, "id = ?", userID).Error; err != nil {
		return
	}
	data := map[string]string{"type": "friend_request", "from_id": fromID}
	if err := s.notifier.Send(ctx, user.FCMToken, title, body, data); err != nil {
		logger.Warn("friend push failed", "user_id", userID, "error", err)
	}
}
