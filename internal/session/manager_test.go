package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"aigyoo-backend/internal/cache"
	svcErr "aigyoo-backend/internal/errors"
	"aigyoo-backend/internal/models"
	"aigyoo-backend/internal/testutil"
	"aigyoo-backend/pkg/utils"
)

const testSecret = "0123456789abcdef0123"

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	utils.PasswordCost = bcrypt.MinCost

	mr := miniredis.RunT(t)
	rc := &cache.RedisCache{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	return NewManager(testutil.NewDB(t), rc, testSecret, time.Hour)
}

func TestSignUp_Patient(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	profile, err := m.SignUp(ctx, models.RegisterInput{
		FullName: "Jane Doe",
		Email:    "Jane@Example.com",
		Password: "secret123",
		Role:     models.RolePatient,
	})
	require.NoError(t, err)
	assert.Equal(t, "jane", profile.Username)
	assert.Equal(t, models.RolePatient, profile.Role)
	assert.False(t, profile.IsVerified)

	_, err = m.SignUp(ctx, models.RegisterInput{
		FullName: "Jane Again",
		Email:    "jane@example.com",
		Password: "secret123",
		Role:     models.RolePatient,
	})
	require.Error(t, err)
	assert.True(t, svcErr.Is(err, svcErr.KindConflict))
	assert.Equal(t, "This email is already registered. Please log in instead.", svcErr.Message(err))
}

func TestSignUp_DoctorRequiresSpecialization(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.SignUp(ctx, models.RegisterInput{
		FullName: "Dr House",
		Email:    "house@example.com",
		Password: "secret123",
		Role:     models.RoleDoctor,
	})
	assert.True(t, svcErr.Is(err, svcErr.KindValidation))

	profile, err := m.SignUp(ctx, models.RegisterInput{
		FullName:       "Dr House",
		Email:          "house@example.com",
		Password:       "secret123",
		Role:           models.RoleDoctor,
		Specialization: "Internal Medicine",
		LicenseNumber:  "LIC-42",
	})
	require.NoError(t, err)
	require.NotNil(t, profile.Specialization)
	assert.Equal(t, "Internal Medicine", *profile.Specialization)
	assert.Equal(t, "LIC-42", *profile.LicenseNumber)
}

func TestSignUp_UsernameCollision(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	first, err := m.SignUp(ctx, models.RegisterInput{FullName: "A", Email: "sam@a.com", Password: "secret123", Role: models.RolePatient})
	require.NoError(t, err)
	second, err := m.SignUp(ctx, models.RegisterInput{FullName: "B", Email: "sam@b.com", Password: "secret123", Role: models.RolePatient})
	require.NoError(t, err)

	assert.Equal(t, "sam", first.Username)
	assert.NotEqual(t, first.Username, second.Username)
}

func TestSessionLifecycle(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.SignUp(ctx, models.RegisterInput{FullName: "Pat", Email: "pat@example.com", Password: "secret123", Role: models.RolePatient})
	require.NoError(t, err)

	_, _, err = m.SignIn(ctx, models.LoginInput{Email: "pat@example.com", Password: "nope"})
	assert.True(t, svcErr.Is(err, svcErr.KindAuthRequired))

	token, sess, err := m.SignIn(ctx, models.LoginInput{Email: "pat@example.com", Password: "secret123", FCMToken: "device-1"})
	require.NoError(t, err)
	assert.Equal(t, models.RolePatient, sess.Role)

	current, err := m.CurrentUser(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, current.UserID)

	var user models.User
	require.NoError(t, m.db.First(&user, "id = ?", sess.UserID).Error)
	assert.Equal(t, "device-1", user.FCMToken)

	require.NoError(t, m.SignOut(ctx, current))

	_, err = m.CurrentUser(ctx, token)
	assert.True(t, svcErr.Is(err, svcErr.KindAuthRequired))
}

func TestCurrentUser_RecreatesMissingProfile(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created, err := m.SignUp(ctx, models.RegisterInput{FullName: "Lee", Email: "lee@example.com", Password: "secret123", Role: models.RoleDoctor, Specialization: "Neurology"})
	require.NoError(t, err)
	token, _, err := m.SignIn(ctx, models.LoginInput{Email: "lee@example.com", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, m.db.Delete(&models.Profile{}, "id = ?", created.ID).Error)

	_, err = m.CurrentUser(ctx, token)
	require.NoError(t, err)

	var profile models.Profile
	require.NoError(t, m.db.First(&profile, "id = ?", created.ID).Error)
	assert.Equal(t, models.RoleDoctor, profile.Role)
	assert.Equal(t, "lee", profile.Username)
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := NewContext(context.Background(), &Session{UserID: "u1", Role: models.RoleAdmin})
	s, ok := FromContext(ctx)
	require.True(t, ok)
	assert.True(t, s.IsAdmin())
	assert.False(t, s.IsDoctor())
}
