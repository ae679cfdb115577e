package session

import (
	"context"
	"errors"
	"strings"
	"time"

	svcErr "aigyoo-backend/internal/errors"
	"aigyoo-backend/internal/logger"
	"aigyoo-backend/internal/models"
	"aigyoo-backend/pkg/utils"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

const (
	msgEmailTaken       = "This email is already registered. Please log in instead."
	msgBadCredentials   = "Invalid email or password"
	msgSessionExpired   = "Session expired, please log in again"
	msgSpecialization   = "Please select your specialization"
	msgInvalidSpecialty = "Unknown specialization"
)

// Revoker keeps the deny-list of signed-out token ids.
type Revoker interface {
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Manager is the local Provider backed by the users table and JWTs.
type Manager struct {
	db      *gorm.DB
	revoker Revoker
	secret  string
	ttl     time.Duration
}

func NewManager(db *gorm.DB, revoker Revoker, secret string, ttl time.Duration) *Manager {
	return &Manager{db: db, revoker: revoker, secret: secret, ttl: ttl}
}

func (m *Manager) SignUp(ctx context.Context, input models.RegisterInput) (*models.Profile, error) {
	// 1. Validate the doctor specific fields
	if input.Role == models.RoleDoctor {
		if strings.TrimSpace(input.Specialization) == "" {
			return nil, svcErr.Validation(msgSpecialization)
		}
		if !lo.Contains(models.Specializations, input.Specialization) {
			return nil, svcErr.Validation(msgInvalidSpecialty)
		}
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	// 2. Hash the password
	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, svcErr.Backend("failed to process password", err)
	}

	var profile models.Profile
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 3. Reject duplicate emails
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return svcErr.Conflict(msgEmailTaken)
		}

		user := models.User{Email: email, PasswordHash: hash, Role: input.Role}
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return svcErr.Conflict(msgEmailTaken)
			}
			return err
		}

		username, err := uniqueUsername(tx, utils.UsernameFromEmail(email))
		if err != nil {
			return err
		}

		// 4. Create the profile with the same id
		profile = models.Profile{
			ID:       user.ID,
			Username: username,
			FullName: strings.TrimSpace(input.FullName),
			Role:     input.Role,
		}
		if input.Role == models.RoleDoctor {
			profile.Specialization = lo.ToPtr(input.Specialization)
			if ln := strings.TrimSpace(input.LicenseNumber); ln != "" {
				profile.LicenseNumber = lo.ToPtr(ln)
			}
		}
		return tx.Create(&profile).Error
	})
	if err != nil {
		return nil, svcErr.Map(err)
	}

	logger.Info("user signed up", "user_id", profile.ID, "role", profile.Role)
	return &profile, nil
}

func (m *Manager) SignIn(ctx context.Context, input models.LoginInput) (string, *Session, error) {
	var user models.User
	err := m.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, svcErr.AuthRequired(msgBadCredentials)
		}
		return "", nil, svcErr.Map(err)
	}

	if !utils.CheckPassword(input.Password, user.PasswordHash) {
		return "", nil, svcErr.AuthRequired(msgBadCredentials)
	}

	// Refresh the push token when the client sends one
	if input.FCMToken != "" && input.FCMToken != user.FCMToken {
		if err := m.db.WithContext(ctx).Model(&user).Update("fcm_token", input.FCMToken).Error; err != nil {
			logger.Warn("failed to store fcm token", "user_id", user.ID, "error", err)
		}
	}

	token, claims, err := utils.GenerateToken(m.secret, user.ID, string(user.Role), m.ttl)
	if err != nil {
		return "", nil, svcErr.Backend("failed to generate token", err)
	}

	if _, err := m.EnsureProfile(ctx, &user); err != nil {
		return "", nil, err
	}

	return token, &Session{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (m *Manager) SignOut(ctx context.Context, s *Session) error {
	if s == nil {
		return svcErr.AuthRequired(msgSessionExpired)
	}
	if err := m.revoker.RevokeToken(ctx, s.TokenID, s.ExpiresAt); err != nil {
		return svcErr.Backend("failed to sign out", err)
	}
	return nil
}

// CurrentUser resolves a bearer token into a session. The user must still
// exist and the token must not be revoked. A missing profile is recreated.
func (m *Manager) CurrentUser(ctx context.Context, token string) (*Session, error) {
	claims, err := utils.ValidateToken(m.secret, token)
	if err != nil {
		return nil, svcErr.AuthRequired(msgSessionExpired)
	}

	revoked, err := m.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, svcErr.Backend("failed to check session", err)
	}
	if revoked {
		return nil, svcErr.AuthRequired(msgSessionExpired)
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, svcErr.AuthRequired(msgSessionExpired)
	}

	var user models.User
	if err := m.db.WithContext(ctx).First(&user, "id = ?", claims.Subject).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.AuthRequired(msgSessionExpired)
		}
		return nil, svcErr.Map(err)
	}

	if _, err := m.EnsureProfile(ctx, &user); err != nil {
		return nil, err
	}

	return &Session{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// EnsureProfile creates the profile of user when it is missing.
func (m *Manager) EnsureProfile(ctx context.Context, user *models.User) (*models.Profile, error) {
	db := m.db.WithContext(ctx)

	var profile models.Profile
	err := db.First(&profile, "id = ?", user.ID).Error
	if err == nil {
		return &profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.Map(err)
	}

	username, err := uniqueUsername(db, utils.UsernameFromEmail(user.Email))
	if err != nil {
		return nil, svcErr.Map(err)
	}
	profile = models.Profile{ID: user.ID, Username: username, Role: user.Role}

	// A concurrent request may have created it first
	if err := db.Create(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if err := db.First(&profile, "id = ?", user.ID).Error; err != nil {
				return nil, svcErr.Map(err)
			}
			return &profile, nil
		}
		return nil, svcErr.Map(err)
	}

	logger.Info("profile recreated", "user_id", user.ID)
	return &profile, nil
}

func uniqueUsername(db *gorm.DB, base string) (string, error) {
	candidate := base
	for i := 0; i < 5; i++ {
		var count int64
		if err := db.Model(&models.Profile{}).Where("username = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = base + "_" + uuid.NewString()[:6]
	}
	return base + "_" + strings.ReplaceAll(uuid.NewString(), "-", ""), nil
}
