package account

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const handlerTimeout = time.Second * 10

// Lifecycle holds the collaborators shared by the account command handlers
type Lifecycle struct {
	cfg      Config
	repo     RepositoryManager
	codec    *TokenCodec
	hasher   PasswordHasher
	notifier Notifier
	links    LinkBuilder
	machine  AccountStateMachine
	events   activityRecorder
	logger   Logger
	clock    Clock

	activation []TransitionOption
}

// LifecycleOption configures a Lifecycle
type LifecycleOption func(*Lifecycle)

// WithNotifier sets the channel used for activation and reset links
func WithNotifier(n Notifier) LifecycleOption {
	return func(l *Lifecycle) {
		if n != nil {
			l.notifier = n
		}
	}
}

// WithActivitySink sets the audit sink
func WithActivitySink(sink ActivitySink) LifecycleOption {
	return func(l *Lifecycle) {
		l.events.sink = normalizeActivitySink(sink)
	}
}

// WithLogger sets the logger for every handler
func WithLogger(logger Logger) LifecycleOption {
	return func(l *Lifecycle) {
		l.logger = normalizeLogger(logger)
	}
}

// WithClock injects the time source for tokens and events
func WithClock(c Clock) LifecycleOption {
	return func(l *Lifecycle) {
		l.clock = normalizeClock(c)
	}
}

// WithActivationHooks runs before and after every pending to active
// transition, inside the activation transaction. A hook error aborts it.
func WithActivationHooks(before, after TransitionHook) LifecycleOption {
	return func(l *Lifecycle) {
		l.activation = append(l.activation,
			WithBeforeTransitionHook(before),
			WithAfterTransitionHook(after),
		)
	}
}

// WithPasswordHasher overrides the bcrypt hasher
func WithPasswordHasher(h PasswordHasher) LifecycleOption {
	return func(l *Lifecycle) {
		if h != nil {
			l.hasher = h
		}
	}
}

// NewLifecycle wires the token codec and state machine over repo
func NewLifecycle(cfg Config, repo RepositoryManager, opts ...LifecycleOption) *Lifecycle {
	l := &Lifecycle{
		cfg:    cfg,
		repo:   repo,
		hasher: NewBcryptHasher(cfg.GetPasswordHashCost()),
		links:  NewLinkBuilder(cfg),
		events: newActivityRecorder(),
		logger: defLogger{},
		clock:  time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	if l.notifier == nil {
		l.notifier = LogNotifier{Logger: l.logger}
	}

	l.events.logger = l.logger
	l.events.clock = l.clock

	l.codec = NewTokenCodec(cfg, repo.Accounts(),
		WithTokenClock(l.clock),
		WithTokenLogger(l.logger),
	)

	l.machine = NewAccountStateMachine(repo.Accounts(),
		WithStateMachineClock(l.clock),
		WithStateMachineActivitySink(l.events.sink),
		WithStateMachineLogger(l.logger),
	)

	return l
}

// Codec exposes the token codec
func (l *Lifecycle) Codec() *TokenCodec { return l.codec }

// Hasher exposes the password hasher
func (l *Lifecycle) Hasher() PasswordHasher { return l.hasher }

// Repo exposes the repository manager
func (l *Lifecycle) Repo() RepositoryManager { return l.repo }

// dispatch sends a notification without failing the operation
func (l *Lifecycle) dispatch(ctx context.Context, kind NotificationKind, acc *Account, token string) {
	uid := EncodeUID(acc.ID)

	link := l.links.ActivationLink(uid, token)
	if kind == NotificationPasswordReset {
		link = l.links.ResetLink(uid, token)
	}

	n := Notification{
		Kind:      kind,
		To:        acc.Email,
		AccountID: acc.ID.String(),
		UID:       uid,
		Token:     token,
		Link:      link,
	}

	if err := l.notifier.Send(ctx, n); err != nil {
		l.logger.Error("failed to send %s notification to %s: %v", kind, acc.Email, err)
	}
}

// guard runs fn unless ctx is already done
func guard(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during "+op,
		)
	default:
	}

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	return fn(ctx)
}

// richError keeps rich errors and wraps everything else as internal
func richError(err error, msg string) error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}

	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}
