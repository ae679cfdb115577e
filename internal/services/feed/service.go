// Package feed holds posts, likes and comments. Author identity is joined
// at read time, so badges are as fresh as the query.
package feed

import (
	"context"
	"errors"
	"strings"
	"time"

	svcErr "aigyoo-backend/internal/errors"
	"aigyoo-backend/internal/logger"
	"aigyoo-backend/internal/models"
	"aigyoo-backend/internal/realtime"
	"aigyoo-backend/internal/services/verification"
	"aigyoo-backend/internal/session"
	"aigyoo-backend/pkg/utils"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
	maxContentLen   = 5000
)

// AllFilter is the realtime filter value of the global posts topic.
const AllFilter = "all"

type Service struct {
	db   *gorm.DB
	feed realtime.Feed
}

func NewService(db *gorm.DB, feed realtime.Feed) *Service {
	return &Service{db: db, feed: feed}
}

// PostView is a post with its author, counters and the caller's like.
type PostView struct {
	models.Post
	Author        models.Author `json:"author"`
	LikesCount    int64         `json:"likes_count"`
	CommentsCount int64         `json:"comments_count"`
	LikedByMe     bool          `json:"liked_by_me"`
}

type CommentView struct {
	models.Comment
	Author models.Author `json:"author"`
}

// LikeResult is the state after a toggle.
type LikeResult struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likes_count"`
}

func (s *Service) CreatePost(ctx context.Context, sess *session.Session, content string) (*PostView, error) {
	content, err := cleanContent(content, "Post cannot be empty")
	if err != nil {
		return nil, err
	}

	post := models.Post{UserID: sess.UserID, Content: content}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, svcErr.Map(err)
	}

	s.publish(ctx, realtime.TablePosts, AllFilter, realtime.EventInsert, post.ID, &post)
	views, err := s.views(ctx, sess, []models.Post{post})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// DeletePost removes a post with its likes and comments. Owner only.
func (s *Service) DeletePost(ctx context.Context, sess *session.Session, postID string) error {
	post, err := s.post(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != sess.UserID {
		return svcErr.Forbidden("You can only delete your own posts")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(post).Error
	})
	if err != nil {
		return svcErr.Map(err)
	}

	s.publish(ctx, realtime.TablePosts, AllFilter, realtime.EventDelete, post.ID, post)
	logger.Info("post deleted", "post_id", post.ID, "by", sess.UserID)
	return nil
}

// ToggleLike inserts the caller's like when absent and deletes it when
// present. Two toggles return to the original state.
func (s *Service) ToggleLike(ctx context.Context, sess *session.Session, postID string) (*LikeResult, error) {
	post, err := s.post(ctx, postID)
	if err != nil {
		return nil, err
	}

	res := &LikeResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Where("post_id = ? AND user_id = ?", post.ID, sess.UserID).Delete(&models.Like{})
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected == 0 {
			like := models.Like{PostID: post.ID, UserID: sess.UserID}
			if err := tx.Create(&like).Error; err != nil {
				return err
			}
			res.Liked = true
		}
		return tx.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&res.LikesCount).Error
	})
	if err != nil {
		// A concurrent toggle already inserted the same like
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, svcErr.Conflict("Like changed concurrently, please retry")
		}
		return nil, svcErr.Map(err)
	}

	typ := realtime.EventDelete
	if res.Liked {
		typ = realtime.EventInsert
	}
	s.publish(ctx, realtime.TableLikes, post.ID, typ, post.ID+":"+sess.UserID, res)
	return res, nil
}

func (s *Service) AddComment(ctx context.Context, sess *session.Session, postID, content string) (*CommentView, error) {
	post, err := s.post(ctx, postID)
	if err != nil {
		return nil, err
	}
	content, err = cleanContent(content, "Comment cannot be empty")
	if err != nil {
		return nil, err
	}

	comment := models.Comment{PostID: post.ID, UserID: sess.UserID, Content: content}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, svcErr.Map(err)
	}

	s.publish(ctx, realtime.TableComments, post.ID, realtime.EventInsert, comment.ID, &comment)
	authors, err := verification.Authors(ctx, s.db, []string{sess.UserID})
	if err != nil {
		return nil, err
	}
	return &CommentView{Comment: comment, Author: authors[sess.UserID]}, nil
}

// ListFilter pages the feed. Before and BeforeID form an exclusive
// (created_at, id) cursor taken from the last post of the previous page.
type ListFilter struct {
	Limit    int
	Before   *time.Time
	BeforeID string
	UserID   string
}

// ListPosts returns posts newest first.
func (s *Service) ListPosts(ctx context.Context, sess *session.Session, f ListFilter) ([]PostView, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)

	q := s.db.WithContext(ctx).Order("created_at desc, id desc").Limit(limit)
	switch {
	case f.Before != nil && f.BeforeID != "":
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", *f.Before, *f.Before, f.BeforeID)
	case f.Before != nil:
		q = q.Where("created_at < ?", *f.Before)
	}
	if f.UserID != "" {
		if !utils.IsUUID(f.UserID) {
			return nil, svcErr.NotFound("User not found")
		}
		q = q.Where("user_id = ?", f.UserID)
	}

	var posts []models.Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, svcErr.Map(err)
	}
	return s.views(ctx, sess, posts)
}

// ListComments returns the comments of a post oldest first.
func (s *Service) ListComments(ctx context.Context, postID string) ([]CommentView, error) {
	post, err := s.post(ctx, postID)
	if err != nil {
		return nil, err
	}

	var comments []models.Comment
	err = s.db.WithContext(ctx).Where("post_id = ?", post.ID).Order("created_at asc").Find(&comments).Error
	if err != nil {
		return nil, svcErr.Map(err)
	}

	ids := lo.Map(comments, func(c models.Comment, _ int) string { return c.UserID })
	authors, err := verification.Authors(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	out := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		out = append(out, CommentView{Comment: c, Author: authors[c.UserID]})
	}
	return out, nil
}

type countRow struct {
	PostID string
	Total  int64
}

func (s *Service) views(ctx context.Context, sess *session.Session, posts []models.Post) ([]PostView, error) {
	out := make([]PostView, 0, len(posts))
	if len(posts) == 0 {
		return out, nil
	}

	postIDs := lo.Map(posts, func(p models.Post, _ int) string { return p.ID })
	authorIDs := lo.Map(posts, func(p models.Post, _ int) string { return p.UserID })

	authors, err := verification.Authors(ctx, s.db, authorIDs)
	if err != nil {
		return nil, err
	}

	likes, err := s.counts(ctx, &models.Like{}, postIDs)
	if err != nil {
		return nil, err
	}
	comments, err := s.counts(ctx, &models.Comment{}, postIDs)
	if err != nil {
		return nil, err
	}

	var mine []string
	err = s.db.WithContext(ctx).Model(&models.Like{}).
		Where("post_id IN ? AND user_id = ?", postIDs, sess.UserID).
		Pluck("post_id", &mine).Error
	if err != nil {
		return nil, svcErr.Map(err)
	}
	liked := lo.SliceToMap(mine, func(id string) (string, struct{}) { return id, struct{}{} })

	for _, p := range posts {
		_, isLiked := liked[p.ID]
		out = append(out, PostView{
			Post:          p,
			Author:        authors[p.UserID],
			LikesCount:    likes[p.ID],
			CommentsCount: comments[p.ID],
			LikedByMe:     isLiked,
		})
	}
	return out, nil
}

func (s *Service) counts(ctx context.Context, model interface{}, postIDs []string) (map[string]int64, error) {
	var rows []countRow
	err := s.db.WithContext(ctx).Model(model).
		Select("post_id, COUNT(*) AS total").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return lo.SliceToMap(rows, func(r countRow) (string, int64) { return r.PostID, r.Total }), nil
}

func (s *Service) post(ctx context.Context, id string) (*models.Post, error) {
	if !utils.IsUUID(id) {
		return nil, svcErr.NotFound("Post not found")
	}
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.NotFound("Post not found")
		}
		return nil, svcErr.Map(err)
	}
	return &post, nil
}

func (s *Service) publish(ctx context.Context, table, filter string, typ realtime.EventType, id string, record any) {
	if s.feed == nil {
		return
	}
	ev, err := realtime.NewEvent(typ, table, id, record)
	if err != nil {
		logger.Warn("feed event not built", "table", table, "error", err)
		return
	}
	if err := s.feed.Publish(ctx, realtime.Topic{Table: table, Filter: filter}, ev); err != nil {
		logger.Warn("feed event not published", "table", table, "error", err)
	}
}

func cleanContent(content, emptyMsg string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", svcErr.Validation(emptyMsg)
	}
	if len([]rune(content)) > maxContentLen {
		return "", svcErr.Validation("Content is too long")
	}
	return content, nil
}
