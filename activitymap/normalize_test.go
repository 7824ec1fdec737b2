package activitymap_test

import (
	"context"
	"testing"
	"time"

	account "github.com/goliatone/go-account"
	"github.com/goliatone/go-account/activitymap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStatusChange(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := account.ActivityEvent{
		EventType:  account.ActivityEventAccountStatusChanged,
		Actor:      account.ActorRef{ID: "acc-100", Type: account.ActorTypeAccount},
		AccountID:  "acc-100",
		FromStatus: account.StatusPending,
		ToStatus:   account.StatusActive,
		Metadata:   map[string]any{"reason": "activation link"},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	assert.Equal(t, "acc-100", out.ActorID)
	assert.Equal(t, string(account.ActivityEventAccountStatusChanged), out.Verb)
	assert.Equal(t, "account", out.ObjectType)
	assert.Equal(t, "acc-100", out.ObjectID)
	assert.Equal(t, "account", out.Channel)
	assert.True(t, out.OccurredAt.Equal(ts))

	assert.Equal(t, "activation link", out.Metadata["reason"])
	assert.Equal(t, account.ActorTypeAccount, out.Metadata[activitymap.MetadataKeyActorType])
	assert.Equal(t, "pending", out.Metadata[activitymap.MetadataKeyFromStatus])
	assert.Equal(t, "active", out.Metadata[activitymap.MetadataKeyToStatus])
}

func TestNormalizeFallbacks(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	out := activitymap.Normalize(account.ActivityEvent{
		EventType: account.ActivityEventLoginFailure,
	}, activitymap.WithClock(func() time.Time { return now }))

	assert.Equal(t, "system", out.ActorID)
	assert.Equal(t, "auth", out.Channel)
	assert.Empty(t, out.ObjectID)
	assert.Nil(t, out.Metadata)
	assert.True(t, out.OccurredAt.Equal(now))

	out = activitymap.Normalize(account.ActivityEvent{
		EventType: account.ActivityEventProfileChanged,
		AccountID: "acc-7",
	}, activitymap.WithObjectType("profile"), activitymap.WithActorFallback("cron"))

	assert.Equal(t, "acc-7", out.ActorID)
	assert.Equal(t, "profile", out.ObjectType)
	assert.Equal(t, "profile", out.Channel)
}

func TestNormalizeRedactsSecrets(t *testing.T) {
	t.Parallel()

	out := activitymap.Normalize(account.ActivityEvent{
		EventType: account.ActivityEventLoginFailure,
		Metadata: map[string]any{
			"email":    "user@example.com",
			"password": "hunter22",
			"Token":    "abc",
		},
	})

	require.NotNil(t, out.Metadata)
	assert.Equal(t, "user@example.com", out.Metadata["email"])
	assert.NotContains(t, out.Metadata, "password")
	assert.NotContains(t, out.Metadata, "Token")
}

func TestNormalizeDoesNotMutateEvent(t *testing.T) {
	t.Parallel()

	meta := map[string]any{"k": "v"}
	event := account.ActivityEvent{
		EventType:  account.ActivityEventAccountStatusChanged,
		Actor:      account.ActorRef{Type: account.ActorTypeSystem},
		FromStatus: account.StatusPending,
		Metadata:   meta,
	}

	_ = activitymap.Normalize(event)

	assert.Len(t, meta, 1)
}

type captureLogger struct {
	account.NopLogger
	lines []string
}

func (c *captureLogger) Info(format string, args ...any) {
	c.lines = append(c.lines, format)
}

func TestSinkLogsEvents(t *testing.T) {
	logger := &captureLogger{}
	sink := activitymap.Sink(logger)

	err := sink.Record(context.Background(), account.ActivityEvent{EventType: account.ActivityEventLogout})
	require.NoError(t, err)
	assert.Len(t, logger.lines, 1)
}
