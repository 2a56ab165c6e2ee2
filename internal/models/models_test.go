package models_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskrelay/backend/internal/models"
)

func TestUserDisplayName(t *testing.T) {
	cases := []struct {
		name string
		user models.User
		want string
	}{
		{"full name", models.User{FirstName: "Alex", LastName: "Stone"}, "Alex Stone"},
		{"first only", models.User{FirstName: "Alex"}, "Alex"},
		{"last only", models.User{LastName: "Stone"}, "Stone"},
		{"username fallback", models.User{Username: "alex"}, "@alex"},
		{"nothing", models.User{}, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.user.DisplayName())
		})
	}
}

func TestThreadStateHelpers(t *testing.T) {
	topicID := 100
	thread := models.Thread{Status: models.ThreadActive}

	assert.True(t, thread.Active())
	assert.False(t, thread.Routed())

	thread.TopicID = &topicID
	assert.True(t, thread.Routed())

	thread.Status = models.ThreadClosed
	assert.False(t, thread.Active())
}

func TestThreadWantsTag(t *testing.T) {
	thread := models.Thread{Status: models.ThreadActive}
	assert.False(t, thread.WantsTag(), "no service, no tag")

	thread.Service = "Repairs"
	assert.True(t, thread.WantsTag())

	thread.FirstTagged = true
	assert.False(t, thread.WantsTag(), "tag is one-time")
}

func TestReferralEventBeforeCreate(t *testing.T) {
	ref := &models.ReferralEvent{UserID: 42, ServiceCode: "repairs", ServiceName: "Repairs"}
	require.NoError(t, ref.BeforeCreate(nil))

	_, err := uuid.Parse(ref.ID)
	assert.NoError(t, err)

	// An already-assigned ID is left alone.
	keep := ref.ID
	require.NoError(t, ref.BeforeCreate(nil))
	assert.Equal(t, keep, ref.ID)
}

func TestMessageEvent(t *testing.T) {
	sent := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	msg := models.Message{
		ThreadID:  7,
		UserID:    42,
		Direction: models.DirectionUserToAgent,
		Kind:      models.KindText,
		Text:      "hello",
	}
	msg.ID = 99
	msg.CreatedAt = sent

	ev := msg.Event()
	assert.Equal(t, uint(99), ev.MessageID)
	assert.Equal(t, uint(7), ev.ThreadID)
	assert.Equal(t, int64(42), ev.UserID)
	assert.Equal(t, models.DirectionUserToAgent, ev.Direction)
	assert.Equal(t, "hello", ev.Text)
	assert.Equal(t, sent.Unix(), ev.SentAt)
}
