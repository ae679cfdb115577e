package assistant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcErr "aigyoo-backend/internal/errors"
	"aigyoo-backend/internal/models"
	"aigyoo-backend/internal/session"
	"aigyoo-backend/internal/testutil"
)

func TestHistory_SaveListDelete(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice", models.RolePatient)
	bob := testutil.CreateUser(t, db, "bob", models.RolePatient)
	h := NewHistory(db)
	ctx := context.Background()
	as := &session.Session{UserID: alice.ID, Role: models.RolePatient}
	bs := &session.Session{UserID: bob.ID, Role: models.RolePatient}

	_, err := h.Save(ctx, as, models.SaveChatHistoryInput{Symptom: "  ", Messages: transcript})
	require.Error(t, err)
	assert.Equal(t, MsgSaveIncomplete, svcErr.Message(err))

	_, err = h.Save(ctx, as, models.SaveChatHistoryInput{Symptom: "Headache"})
	assert.Equal(t, MsgSaveIncomplete, svcErr.Message(err))

	_, err = h.Save(ctx, as, models.SaveChatHistoryInput{
		Symptom: "Headache", StartDate: "2024-05-03", EndDate: "2024-05-01", Messages: transcript,
	})
	assert.True(t, svcErr.Is(err, svcErr.KindValidation))

	first, err := h.Save(ctx, as, models.SaveChatHistoryInput{
		Symptom:   "Headache",
		StartDate: "2024-05-01",
		EndDate:   "2024-05-03",
		IsOngoing: true,
		Messages:  transcript,
	})
	require.NoError(t, err)
	assert.Nil(t, first.EndDate)
	require.NoError(t, db.Model(first).Update("created_at", testutil.At(0)).Error)

	second, err := h.Save(ctx, as, models.SaveChatHistoryInput{Symptom: "Cough", Messages: transcript})
	require.NoError(t, err)
	require.NoError(t, db.Model(second).Update("created_at", testutil.At(time.Hour)).Error)

	list, err := h.List(ctx, as)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, "I have a headache", list[1].ChatMessages[0].Content)

	err = h.Delete(ctx, bs, first.ID)
	assert.True(t, svcErr.Is(err, svcErr.KindForbidden))

	require.NoError(t, h.Delete(ctx, as, first.ID))
	list, err = h.List(ctx, as)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	err = h.Delete(ctx, as, first.ID)
	assert.True(t, svcErr.Is(err, svcErr.KindNotFound))
}
