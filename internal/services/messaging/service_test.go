package messaging

import (
	"context"
	"sync"
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

func setup(t *testing.T) (*Service, *realtime.Memory, *session.Session, *session.Session) {
	t.Helper()
	db := testutil.NewDB(t)
	feed := realtime.NewMemory()
	a := testutil.CreateUser(t, db, "alice", models.RolePatient)
	b := testutil.CreateUser(t, db, "bob", models.RoleDoctor)

	svc := NewService(db, feed, nil)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return testutil.At(time.Duration(tick) * time.Second)
	}
	return svc, feed,
		&session.Session{UserID: a.ID, Role: models.RolePatient},
		&session.Session{UserID: b.ID, Role: models.RoleDoctor}
}

func TestSend_Validation(t *testing.T) {
	svc, _, alice, bob := setup(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, alice, bob.UserID, "   \n\t")
	require.Error(t, err)
	assert.Equal(t, MsgEmpty, svcErr.Message(err))

	_, err = svc.Send(ctx, alice, "not-a-user", "hi")
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))

	_, err = svc.Send(ctx, alice, "6f1c1d8e-3c9b-4b8e-9d8a-2f1e0c7b6a5d", "hi")
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))
}

func TestConversation_RoundTrip(t *testing.T) {
	svc, _, alice, bob := setup(t)
	ctx := context.Background()

	m1, err := svc.Send(ctx, alice, bob.UserID, "hello")
	require.NoError(t, err)
	m2, err := svc.Send(ctx, bob, alice.UserID, "hi there")
	require.NoError(t, err)
	m3, err := svc.Send(ctx, alice, bob.UserID, "  how are you?  ")
	require.NoError(t, err)
	assert.Equal(t, "how are you?", m3.Content)

	want := []string{m1.ID, m2.ID, m3.ID}
	for _, sess := range []*session.Session{alice, bob} {
		other := bob.UserID
		if sess == bob {
			other = alice.UserID
		}
		conv, err := svc.Conversation(ctx, sess, other)
		require.NoError(t, err)

		ids := make([]string, 0, len(conv))
		for _, m := range conv {
			ids = append(ids, m.ID)
		}
		assert.Equal(t, want, ids)
	}
}

func TestStream_DeduplicatesRedelivery(t *testing.T) {
	svc, feed, alice, bob := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := svc.Send(context.Background(), alice, bob.UserID, "before stream")
	require.NoError(t, err)

	var mu sync.Mutex
	var got []string
	received := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- svc.Stream(ctx, bob, alice.UserID, func(m models.Message) error {
			mu.Lock()
			got = append(got, m.ID)
			mu.Unlock()
			received <- struct{}{}
			return nil
		})
	}()

	// snapshot
	waitFor(t, received)
	require.Eventually(t, func() bool {
		return feed.Subscribers(Topic(alice.UserID, bob.UserID)) == 1
	}, time.Second, 10*time.Millisecond)

	second, err := svc.Send(context.Background(), alice, bob.UserID, "live")
	require.NoError(t, err)
	waitFor(t, received)

	// the transport redelivers both messages
	for _, m := range []*models.Message{first, second} {
		ev, err := realtime.NewEvent(realtime.EventInsert, realtime.TableMessages, m.ID, m)
		require.NoError(t, err)
		require.NoError(t, feed.Publish(context.Background(), Topic(alice.UserID, bob.UserID), ev))
	}

	select {
	case <-received:
		t.Fatal("duplicate delivered")
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{first.ID, second.ID}, got)
}

func TestMarkRead(t *testing.T) {
	svc, _, alice, bob := setup(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, alice, bob.UserID, "one")
	require.NoError(t, err)
	_, err = svc.Send(ctx, alice, bob.UserID, "two")
	require.NoError(t, err)

	n, err := svc.MarkRead(ctx, bob, alice.UserID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = svc.MarkRead(ctx, bob, alice.UserID)
	require.NoError(t, err)
	assert.Zero(t, n)

	conv, err := svc.Conversation(ctx, alice, bob.UserID)
	require.NoError(t, err)
	for _, m := range conv {
		assert.NotNil(t, m.ReadAt)
	}
}

func TestConversation_AppendAndMerge(t *testing.T) {
	m := func(id string, sec int) models.Message {
		return models.Message{ID: id, CreatedAt: testutil.At(time.Duration(sec) * time.Second)}
	}

	conv := NewConversation([]models.Message{m("b", 2), m("a", 1)})
	assert.True(t, conv.Append(m("d", 4)))
	assert.False(t, conv.Append(m("a", 1)))
	assert.True(t, conv.Append(m("c", 3)))
	assert.Equal(t, 1, conv.Merge([]models.Message{m("d", 4), m("e", 5), m("c", 3)}))

	ids := []string{}
	for _, msg := range conv.Messages() {
		ids = append(ids, msg.ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
	assert.Equal(t, 5, conv.Len())
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}
