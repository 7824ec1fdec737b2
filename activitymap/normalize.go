// Package activitymap flattens account activity events into records
// for audit logs and downstream consumers.
package activitymap

import (
	"context"
	"strings"
	"time"

	account "github.com/goliatone/go-account"
	"github.com/goliatone/go-print"
)

const (
	MetadataKeyActorType  = "actor_type"
	MetadataKeyFromStatus = "from_status"
	MetadataKeyToStatus   = "to_status"
)

const (
	defaultObjectType = "account"
	defaultActorID    = "system"
)

// redactedKeys never leave the process
var redactedKeys = map[string]struct{}{
	"password":      {},
	"password_hash": {},
	"token":         {},
	"new_password":  {},
	"old_password":  {},
}

// Record is the flat shape of an account activity event
type Record struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type Option func(*options)

type options struct {
	objectType    string
	actorFallback string
	clock         func() time.Time
}

// WithObjectType overrides the object type, "account" by default
func WithObjectType(objectType string) Option {
	return func(o *options) {
		o.objectType = strings.TrimSpace(objectType)
	}
}

// WithActorFallback is used when neither actor nor account id is set
func WithActorFallback(actorID string) Option {
	return func(o *options) {
		o.actorFallback = strings.TrimSpace(actorID)
	}
}

// WithClock stamps events that carry no timestamp
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// Normalize converts an account.ActivityEvent into a Record. The
// channel is the event type prefix: account, auth or profile.
func Normalize(event account.ActivityEvent, opts ...Option) Record {
	o := options{
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
		clock:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = o.clock().UTC()
	}

	return Record{
		ActorID: firstNonEmpty(
			strings.TrimSpace(event.Actor.ID),
			strings.TrimSpace(event.AccountID),
			o.actorFallback,
		),
		Verb:       string(event.EventType),
		ObjectType: o.objectType,
		ObjectID:   strings.TrimSpace(event.AccountID),
		Channel:    channelOf(event.EventType),
		Metadata:   metadataOf(event),
		OccurredAt: occurredAt,
	}
}

// Sink returns an account.ActivitySink writing each normalized event
// as JSON to logger
func Sink(logger account.Logger, opts ...Option) account.ActivitySink {
	if logger == nil {
		logger = account.NopLogger{}
	}
	return account.ActivitySinkFunc(func(_ context.Context, event account.ActivityEvent) error {
		logger.Info("activity %s", print.MaybePrettyJSON(Normalize(event, opts...)))
		return nil
	})
}

func channelOf(eventType account.ActivityEventType) string {
	verb := string(eventType)
	if i := strings.Index(verb, "."); i > 0 {
		return verb[:i]
	}
	return verb
}

func metadataOf(event account.ActivityEvent) map[string]any {
	var out map[string]any
	set := func(key string, value any) {
		if out == nil {
			out = map[string]any{}
		}
		out[key] = value
	}

	for key, value := range event.Metadata {
		if _, secret := redactedKeys[strings.ToLower(key)]; secret {
			continue
		}
		set(key, value)
	}

	if actorType := strings.TrimSpace(event.Actor.Type); actorType != "" {
		if _, exists := out[MetadataKeyActorType]; !exists {
			set(MetadataKeyActorType, actorType)
		}
	}

	if event.FromStatus != "" {
		set(MetadataKeyFromStatus, string(event.FromStatus))
	}

	if event.ToStatus != "" {
		set(MetadataKeyToStatus, string(event.ToStatus))
	}

	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
