// Package session is the identity provider: sign-up, sign-in, sign-out and
// token resolution. A Session is created at sign-in, passed explicitly to
// every service call and destroyed at sign-out.
package session

import (
	"context"
	"time"

	"aigyoo-backend/internal/models"
)

type Session struct {
	UserID    string      `json:"user_id"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	TokenID   string      `json:"-"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func (s *Session) IsAdmin() bool  { return s != nil && s.Role == models.RoleAdmin }
func (s *Session) IsDoctor() bool { return s != nil && s.Role == models.RoleDoctor }

// Provider is the identity capability consumed by handlers.
type Provider interface {
	SignUp(ctx context.Context, input models.RegisterInput) (*models.Profile, error)
	SignIn(ctx context.Context, input models.LoginInput) (string, *Session, error)
	SignOut(ctx context.Context, s *Session) error
	CurrentUser(ctx context.Context, token string) (*Session, error)
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored in ctx, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
