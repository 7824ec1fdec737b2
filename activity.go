package account

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventAccountRegistered     ActivityEventType = "account.registered"
	ActivityEventAccountStatusChanged  ActivityEventType = "account.status.changed"
	ActivityEventAccountDeleted        ActivityEventType = "account.deleted"
	ActivityEventAccountUpdated        ActivityEventType = "account.updated"
	ActivityEventLoginSuccess          ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure          ActivityEventType = "auth.login.failure"
	ActivityEventLogout                ActivityEventType = "auth.logout"
	ActivityEventPasswordChanged       ActivityEventType = "auth.password.changed"
	ActivityEventPasswordResetRequest  ActivityEventType = "auth.password.reset_requested"
	ActivityEventPasswordResetComplete ActivityEventType = "auth.password.reset"
	ActivityEventProfileChanged        ActivityEventType = "profile.changed"
	ActivityEventProfileDeleted        ActivityEventType = "profile.deleted"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	AccountID  string
	FromStatus AccountStatus
	ToStatus   AccountStatus
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// activityRecorder is embedded by handlers that publish best-effort events
type activityRecorder struct {
	sink   ActivitySink
	logger Logger
	clock  Clock
}

func newActivityRecorder() activityRecorder {
	return activityRecorder{
		sink:   noopActivitySink{},
		logger: defLogger{},
		clock:  time.Now,
	}
}

func (r activityRecorder) record(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = r.clock().UTC()
	}
	if err := r.sink.Record(ctx, event); err != nil {
		r.logger.Warn("activity sink failed for %s: %v", event.EventType, err)
	}
}

func accountActor(acc *Account) ActorRef {
	if acc == nil {
		return ActorRef{Type: ActorTypeSystem}
	}
	return ActorRef{ID: acc.ID.String(), Type: ActorTypeAccount}
}
