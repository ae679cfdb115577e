// Package profile reads and edits profiles and suggests people to follow.
package profile

import (
	"context"
	"errors"
	"strings"

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
	suggestionLimit = 10
	searchLimit     = 20
)

// ConnectionLister returns the ids the user already has a friend edge with.
type ConnectionLister interface {
	ConnectedIDs(ctx context.Context, userID string) ([]string, error)
}

type Service struct {
	db          *gorm.DB
	connections ConnectionLister
	feed        realtime.Feed
}

func NewService(db *gorm.DB, connections ConnectionLister, feed realtime.Feed) *Service {
	return &Service{db: db, connections: connections, feed: feed}
}

// View is a profile with its derived badge.
type View struct {
	models.Profile
	Display verification.Display `json:"display"`
}

// Get returns the profile of id. Malformed or unknown ids are NotFound.
func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	if !utils.IsUUID(id) {
		return nil, svcErr.NotFound("Profile not found")
	}

	var p models.Profile
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.NotFound("Profile not found")
		}
		return nil, svcErr.Map(err)
	}

	latest, err := verification.LatestForUsers(ctx, s.db, []string{p.ID})
	if err != nil {
		return nil, err
	}
	return &View{
		Profile: p,
		Display: verification.Render(verification.Derive(p.Role, p.IsVerified, latest[p.ID])),
	}, nil
}

// Update edits the caller's own profile. Username, role and the verified
// flag are not editable here.
func (s *Service) Update(ctx context.Context, sess *session.Session, input models.UpdateProfileInput) (*View, error) {
	if input.Specialization != nil && *input.Specialization != "" {
		if !sess.IsDoctor() {
			return nil, svcErr.Validation("Only doctors have a specialization")
		}
		if !lo.Contains(models.Specializations, *input.Specialization) {
			return nil, svcErr.Validation("Unknown specialization")
		}
	}

	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		return nil, svcErr.Validation("Full name is required")
	}

	updates := map[string]interface{}{
		"full_name":           fullName,
		"bio":                 strings.TrimSpace(input.Bio),
		"hospital":            trimmed(input.Hospital),
		"years_of_experience": input.YearsOfExperience,
		"phone_number":        trimmed(input.PhoneNumber),
	}
	if sess.IsDoctor() {
		updates["specialization"] = trimmed(input.Specialization)
	}

	res := s.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", sess.UserID).Updates(updates)
	if res.Error != nil {
		return nil, svcErr.Map(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, svcErr.NotFound("Profile not found")
	}

	view, err := s.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, &view.Profile)
	return view, nil
}

// Suggestions lists up to ten profiles the caller has no edge with yet.
func (s *Service) Suggestions(ctx context.Context, sess *session.Session) ([]models.Author, error) {
	exclude, err := s.connections.ConnectedIDs(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	exclude = append(exclude, sess.UserID)

	var profiles []models.Profile
	err = s.db.WithContext(ctx).
		Where("id NOT IN ?", exclude).
		Where("role <> ?", models.RoleAdmin).
		Order("created_at desc").
		Limit(suggestionLimit).
		Find(&profiles).Error
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return s.authors(ctx, profiles)
}

// Search matches username or full name, case-insensitive.
func (s *Service) Search(ctx context.Context, sess *session.Session, q string) ([]models.Author, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return []models.Author{}, nil
	}
	pattern := "%" + escapeLike(q) + "%"

	var profiles []models.Profile
	err := s.db.WithContext(ctx).
		Where("(LOWER(username) LIKE ? ESCAPE '!' OR LOWER(full_name) LIKE ? ESCAPE '!')", pattern, pattern).
		Where("id <> ?", sess.UserID).
		Order("username").
		Limit(searchLimit).
		Find(&profiles).Error
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return s.authors(ctx, profiles)
}

func (s *Service) authors(ctx context.Context, profiles []models.Profile) ([]models.Author, error) {
	ids := lo.Map(profiles, func(p models.Profile, _ int) string { return p.ID })
	latest, err := verification.LatestForUsers(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.Author, 0, len(profiles))
	for i := range profiles {
		out = append(out, verification.AuthorOf(&profiles[i], latest[profiles[i].ID]))
	}
	return out, nil
}

func (s *Service) publish(ctx context.Context, p *models.Profile) {
	if s.feed == nil {
		return
	}
	ev, err := realtime.NewEvent(realtime.EventUpdate, realtime.TableProfiles, p.ID, p)
	if err != nil {
		return
	}
	if err := s.feed.Publish(ctx, realtime.Topic{Table: realtime.TableProfiles, Filter: p.ID}, ev); err != nil {
		logger.Warn("profile event not published", "user_id", p.ID, "error", err)
	}
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
