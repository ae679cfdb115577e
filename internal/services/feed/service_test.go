package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	svcErr "aigyoo-backend/internal/errors"
	"aigyoo-backend/internal/models"
	"aigyoo-backend/internal/realtime"
	"aigyoo-backend/internal/session"
	"aigyoo-backend/internal/testutil"
)

func setup(t *testing.T) (*Service, *gorm.DB, *realtime.Memory, *session.Session, *session.Session) {
	t.Helper()
	db := testutil.NewDB(t)
	feed := realtime.NewMemory()
	a := testutil.CreateUser(t, db, "alice", models.RolePatient)
	b := testutil.CreateUser(t, db, "bob", models.RoleDoctor)
	return NewService(db, feed), db, feed,
		&session.Session{UserID: a.ID, Role: models.RolePatient},
		&session.Session{UserID: b.ID, Role: models.RoleDoctor}
}

func TestToggleLike_Idempotent(t *testing.T) {
	svc, _, _, alice, bob := setup(t)
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, bob, "Drink water")
	require.NoError(t, err)

	first, err := svc.ToggleLike(ctx, alice, post.ID)
	require.NoError(t, err)
	assert.True(t, first.Liked)
	assert.EqualValues(t, 1, first.LikesCount)

	second, err := svc.ToggleLike(ctx, alice, post.ID)
	require.NoError(t, err)
	assert.False(t, second.Liked)
	assert.EqualValues(t, 0, second.LikesCount)

	posts, err := svc.ListPosts(ctx, alice, ListFilter{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.False(t, posts[0].LikedByMe)
	assert.Zero(t, posts[0].LikesCount)
}

func TestCreatePost_Validation(t *testing.T) {
	svc, _, _, alice, _ := setup(t)

	_, err := svc.CreatePost(context.Background(), alice, "   ")
	assert.True(t, svcErr.Is(err, svcErr.KindValidation))
}

func TestListPosts_DenormalizesAuthor(t *testing.T) {
	svc, db, _, alice, bob := setup(t)
	ctx := context.Background()

	older := models.Post{UserID: alice.UserID, Content: "first", CreatedAt: testutil.At(0)}
	newer := models.Post{UserID: bob.UserID, Content: "second", CreatedAt: testutil.At(time.Minute)}
	require.NoError(t, db.Create(&older).Error)
	require.NoError(t, db.Create(&newer).Error)
	require.NoError(t, db.Create(&models.DoctorVerification{UserID: bob.UserID, Status: models.StatusVerified}).Error)

	_, err := svc.ToggleLike(ctx, alice, newer.ID)
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, alice, newer.ID, "thanks doc")
	require.NoError(t, err)

	posts, err := svc.ListPosts(ctx, alice, ListFilter{})
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, "second", posts[0].Content)
	assert.Equal(t, "bob", posts[0].Author.Username)
	assert.True(t, posts[0].Author.IsVerified)
	assert.Equal(t, "doctor_verified", posts[0].Author.Badge)
	assert.True(t, posts[0].LikedByMe)
	assert.EqualValues(t, 1, posts[0].LikesCount)
	assert.EqualValues(t, 1, posts[0].CommentsCount)
	assert.Equal(t, "patient", posts[1].Author.Badge)

	before := newer.CreatedAt
	page, err := svc.ListPosts(ctx, alice, ListFilter{Before: &before})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "first", page[0].Content)

	mine, err := svc.ListPosts(ctx, alice, ListFilter{UserID: bob.UserID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
}

func TestDeletePost_OwnerOnly(t *testing.T) {
	svc, db, feed, alice, bob := setup(t)
	ctx := context.Background()

	sub, err := feed.Subscribe(ctx, realtime.Topic{Table: realtime.TablePosts, Filter: AllFilter})
	require.NoError(t, err)
	defer sub.Close()

	post, err := svc.CreatePost(ctx, bob, "hello")
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, alice, post.ID, "hi")
	require.NoError(t, err)
	_, err = svc.ToggleLike(ctx, alice, post.ID)
	require.NoError(t, err)

	err = svc.DeletePost(ctx, alice, post.ID)
	assert.True(t, svcErr.Is(err, svcErr.KindForbidden))

	admin := &session.Session{UserID: alice.UserID, Role: models.RoleAdmin}
	err = svc.DeletePost(ctx, admin, post.ID)
	assert.True(t, svcErr.Is(err, svcErr.KindForbidden))

	require.NoError(t, svc.DeletePost(ctx, bob, post.ID))

	var likes, comments int64
	db.Model(&models.Like{}).Count(&likes)
	db.Model(&models.Comment{}).Count(&comments)
	assert.Zero(t, likes)
	assert.Zero(t, comments)

	err = svc.DeletePost(ctx, bob, post.ID)
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))

	types := []realtime.EventType{}
	for len(types) < 2 {
		select {
		case ev := <-sub.C:
			types = append(types, ev.Type)
		case <-time.After(time.Second):
			t.Fatal("missing post events")
		}
	}
	assert.Equal(t, []realtime.EventType{realtime.EventInsert, realtime.EventDelete}, types)
}

func TestListPosts_PagesThroughTiedTimestamps(t *testing.T) {
	svc, db, _, alice, bob := setup(t)
	ctx := context.Background()

	for _, content := range []string{"one", "two", "three"} {
		require.NoError(t, db.Create(&models.Post{UserID: bob.UserID, Content: content, CreatedAt: testutil.At(0)}).Error)
	}
	require.NoError(t, db.Create(&models.Post{UserID: bob.UserID, Content: "older", CreatedAt: testutil.At(-time.Minute)}).Error)

	seen := map[string]bool{}
	f := ListFilter{Limit: 2}
	for page := 0; page < 5; page++ {
		posts, err := svc.ListPosts(ctx, alice, f)
		require.NoError(t, err)
		if len(posts) == 0 {
			break
		}
		for _, p := range posts {
			assert.False(t, seen[p.ID], "post %s returned twice", p.ID)
			seen[p.ID] = true
		}
		last := posts[len(posts)-1]
		before := last.CreatedAt
		f.Before, f.BeforeID = &before, last.ID
	}
	assert.Len(t, seen, 4)
}

func TestComments(t *testing.T) {
	svc, db, _, alice, bob := setup(t)
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, bob, "hello")
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, UserID: alice.UserID, Content: "one", CreatedAt: testutil.At(0)}).Error)
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, UserID: bob.UserID, Content: "two", CreatedAt: testutil.At(time.Second)}).Error)

	comments, err := svc.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "one", comments[0].Content)
	assert.Equal(t, "alice", comments[0].Author.Username)
	assert.Equal(t, "two", comments[1].Content)

	_, err = svc.AddComment(ctx, alice, post.ID, "")
	assert.True(t, svcErr.Is(err, svcErr.KindValidation))

	_, err = svc.ListComments(ctx, "bad-id")
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))
}
