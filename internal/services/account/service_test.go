package account

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	svcErr "aigyoo-backend/internal/errors"
	"aigyoo-backend/internal/models"
	"aigyoo-backend/internal/session"
	"aigyoo-backend/internal/storage"
	"aigyoo-backend/internal/testutil"
)

type fakeBlobs struct {
	prefixes []string
	err      error
}

func (f *fakeBlobs) Put(context.Context, string, string, []byte) (string, error) { return "", nil }

func (f *fakeBlobs) DeletePrefix(_ context.Context, prefix string) (int, error) {
	f.prefixes = append(f.prefixes, prefix)
	return 1, f.err
}

type fakeSessions struct {
	signedOut []string
}

func (f *fakeSessions) SignOut(_ context.Context, s *session.Session) error {
	f.signedOut = append(f.signedOut, s.UserID)
	return nil
}

func seed(t *testing.T, db *gorm.DB, alice, bob *models.Profile) {
	t.Helper()

	own := models.Post{UserID: alice.ID, Content: "mine"}
	other := models.Post{UserID: bob.ID, Content: "theirs"}
	require.NoError(t, db.Create(&own).Error)
	require.NoError(t, db.Create(&other).Error)

	rows := []interface{}{
		&models.Like{PostID: own.ID, UserID: bob.ID},
		&models.Like{PostID: other.ID, UserID: alice.ID},
		&models.Comment{PostID: own.ID, UserID: bob.ID, Content: "nice"},
		&models.Comment{PostID: other.ID, UserID: alice.ID, Content: "thanks"},
		&models.Message{SenderID: alice.ID, ReceiverID: bob.ID, Content: "hi"},
		&models.Message{SenderID: bob.ID, ReceiverID: alice.ID, Content: "hey"},
		&models.Friendship{RequesterID: bob.ID, ReceiverID: alice.ID, Status: models.FriendshipAccepted},
		&models.DoctorVerification{UserID: alice.ID, Status: models.StatusPending, DoctorIDImageURL: "https://cdn.example.com/id.png"},
		&models.AIChatHistory{UserID: alice.ID, Symptom: "cough"},
	}
	for _, r := range rows {
		require.NoError(t, db.Create(r).Error)
	}
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestDelete_OwnAccount(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice", models.RoleDoctor)
	bob := testutil.CreateUser(t, db, "bob", models.RolePatient)
	seed(t, db, alice, bob)

	blobs := &fakeBlobs{}
	sessions := &fakeSessions{}
	svc := NewService(db, blobs, sessions)
	sess := &session.Session{UserID: alice.ID, Role: models.RoleDoctor}

	require.NoError(t, svc.Delete(context.Background(), sess, alice.ID))

	assert.Equal(t, []string{storage.UserPrefix(alice.ID)}, blobs.prefixes)
	assert.Equal(t, []string{alice.ID}, sessions.signedOut)

	assert.Equal(t, int64(1), count(t, db, &models.User{}))
	assert.Equal(t, int64(1), count(t, db, &models.Profile{}))
	assert.Equal(t, int64(1), count(t, db, &models.Post{}))
	assert.Zero(t, count(t, db, &models.Like{}))
	assert.Zero(t, count(t, db, &models.Comment{}))
	assert.Zero(t, count(t, db, &models.Message{}))
	assert.Zero(t, count(t, db, &models.Friendship{}))
	assert.Zero(t, count(t, db, &models.DoctorVerification{}))
	assert.Zero(t, count(t, db, &models.AIChatHistory{}))
}

func TestDelete_Permissions(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice", models.RolePatient)
	bob := testutil.CreateUser(t, db, "bob", models.RolePatient)
	admin := testutil.CreateUser(t, db, "root", models.RoleAdmin)

	sessions := &fakeSessions{}
	svc := NewService(db, &fakeBlobs{}, sessions)
	ctx := context.Background()

	err := svc.Delete(ctx, nil, alice.ID)
	assert.True(t, svcErr.Is(err, svcErr.KindAuthRequired))

	err = svc.Delete(ctx, &session.Session{UserID: bob.ID}, "")
	assert.True(t, svcErr.Is(err, svcErr.KindValidation))

	err = svc.Delete(ctx, &session.Session{UserID: bob.ID, Role: models.RolePatient}, alice.ID)
	assert.True(t, svcErr.Is(err, svcErr.KindForbidden))

	adminSess := &session.Session{UserID: admin.ID, Role: models.RoleAdmin}
	err = svc.Delete(ctx, adminSess, "6f1c1d8e-3c9b-4b8e-9d8a-2f1e0c7b6a5d")
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))

	require.NoError(t, svc.Delete(ctx, adminSess, alice.ID))
	assert.Empty(t, sessions.signedOut)
	assert.Equal(t, int64(2), count(t, db, &models.User{}))
}

func TestDelete_BlobFailureKeepsRows(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice", models.RolePatient)

	svc := NewService(db, &fakeBlobs{err: errors.New("s3 down")}, &fakeSessions{})
	err := svc.Delete(context.Background(), &session.Session{UserID: alice.ID}, alice.ID)
	require.Error(t, err)
	assert.True(t, svcErr.Is(err, svcErr.KindBackend))
	assert.Equal(t, int64(1), count(t, db, &models.User{}))
}
