package social

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcErr "aigyoo-backend/internal/errors"
	"aigyoo-backend/internal/models"
	"aigyoo-backend/internal/realtime"
	"aigyoo-backend/internal/session"
	"aigyoo-backend/internal/testutil"
)

type fixture struct {
	svc  *Service
	feed *realtime.Memory
	a, b *session.Session
	c    *session.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	feed := realtime.NewMemory()

	pa := testutil.CreateUser(t, db, "alice", models.RolePatient)
	pb := testutil.CreateUser(t, db, "bob", models.RoleDoctor)
	pc := testutil.CreateUser(t, db, "carol", models.RolePatient)

	return &fixture{
		svc:  NewService(db, feed, nil),
		feed: feed,
		a:    &session.Session{UserID: pa.ID, Role: models.RolePatient},
		b:    &session.Session{UserID: pb.ID, Role: models.RoleDoctor},
		c:    &session.Session{UserID: pc.ID, Role: models.RolePatient},
	}
}

func TestSendThenCancel_LeavesNoEdge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendRequest(ctx, f.a, f.b.UserID)
	require.NoError(t, err)

	pending, err := f.svc.IsPending(ctx, f.b.UserID, f.a.UserID)
	require.NoError(t, err)
	assert.True(t, pending)

	// the receiver cannot cancel
	err = f.svc.CancelRequest(ctx, f.b, f.a.UserID)
	assert.True(t, svcErr.Is(err, svcErr.KindForbidden))

	require.NoError(t, f.svc.CancelRequest(ctx, f.a, f.b.UserID))

	rel, err := f.svc.RelationTo(ctx, f.a, f.b.UserID)
	require.NoError(t, err)
	assert.Equal(t, RelationNone, rel)

	pending, err = f.svc.IsPending(ctx, f.a.UserID, f.b.UserID)
	require.NoError(t, err)
	assert.False(t, pending)

	friend, err := f.svc.IsFriend(ctx, f.a.UserID, f.b.UserID)
	require.NoError(t, err)
	assert.False(t, friend)
}

func TestSendThenAccept_IsSymmetric(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendRequest(ctx, f.a, f.b.UserID)
	require.NoError(t, err)

	// the requester cannot accept its own request
	_, err = f.svc.AcceptRequest(ctx, f.a, f.b.UserID)
	assert.True(t, svcErr.Is(err, svcErr.KindForbidden))

	edge, err := f.svc.AcceptRequest(ctx, f.b, f.a.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.FriendshipAccepted, edge.Status)

	ab, err := f.svc.IsFriend(ctx, f.a.UserID, f.b.UserID)
	require.NoError(t, err)
	ba, err := f.svc.IsFriend(ctx, f.b.UserID, f.a.UserID)
	require.NoError(t, err)
	assert.True(t, ab)
	assert.True(t, ba)

	friendsA, err := f.svc.Friends(ctx, f.a)
	require.NoError(t, err)
	require.Len(t, friendsA, 1)
	assert.Equal(t, "bob", friendsA[0].Username)

	friendsB, err := f.svc.Friends(ctx, f.b)
	require.NoError(t, err)
	require.Len(t, friendsB, 1)
	assert.Equal(t, "alice", friendsB[0].Username)
}

func TestSendRequest_Duplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendRequest(ctx, f.a, f.b.UserID)
	require.NoError(t, err)

	_, err = f.svc.SendRequest(ctx, f.a, f.b.UserID)
	assert.True(t, svcErr.Is(err, svcErr.KindConflict))

	// the reverse direction is the same pair
	_, err = f.svc.SendRequest(ctx, f.b, f.a.UserID)
	assert.True(t, svcErr.Is(err, svcErr.KindConflict))

	_, err = f.svc.SendRequest(ctx, f.a, f.a.UserID)
	assert.True(t, svcErr.Is(err, svcErr.KindValidation))

	_, err = f.svc.SendRequest(ctx, f.a, "nope")
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))
}

func TestRequestsListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendRequest(ctx, f.a, f.b.UserID)
	require.NoError(t, err)
	_, err = f.svc.SendRequest(ctx, f.c, f.b.UserID)
	require.NoError(t, err)

	incoming, err := f.svc.IncomingRequests(ctx, f.b)
	require.NoError(t, err)
	require.Len(t, incoming, 2)
	for _, r := range incoming {
		require.NotNil(t, r.From)
		assert.Contains(t, []string{"alice", "carol"}, r.From.Username)
	}

	sent, err := f.svc.SentRequests(ctx, f.a)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "bob", sent[0].To.Username)
	assert.Equal(t, "doctor_unverified", sent[0].To.Badge)

	rel, err := f.svc.RelationTo(ctx, f.b, f.a.UserID)
	require.NoError(t, err)
	assert.Equal(t, RelationReceived, rel)

	ids, err := f.svc.ConnectedIDs(ctx, f.b.UserID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f.a.UserID, f.c.UserID}, ids)
}

func TestSendRequest_PublishesToBothParties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	subA, err := f.feed.Subscribe(ctx, realtime.Topic{Table: realtime.TableFriendships, Filter: f.a.UserID})
	require.NoError(t, err)
	defer subA.Close()
	subB, err := f.feed.Subscribe(ctx, realtime.Topic{Table: realtime.TableFriendships, Filter: f.b.UserID})
	require.NoError(t, err)
	defer subB.Close()

	edge, err := f.svc.SendRequest(ctx, f.a, f.b.UserID)
	require.NoError(t, err)

	for _, sub := range []*realtime.Subscription{subA, subB} {
		select {
		case ev := <-sub.C:
			assert.Equal(t, edge.ID, ev.ID)
			assert.Equal(t, realtime.EventInsert, ev.Type)
		case <-time.After(time.Second):
			t.Fatal("no friendship event")
		}
	}
}
