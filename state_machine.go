package account

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// ActorRef identifies who/what triggered a transition.
type ActorRef struct {
	ID   string
	Type string
}

const (
	ActorTypeAccount = "account"
	ActorTypeSystem  = "system"
)

// TransitionMetadata captures extra context for a transition.
type TransitionMetadata struct {
	Reason   string
	Metadata map[string]any
}

// TransitionContext is passed into hooks for additional processing.
type TransitionContext struct {
	Actor   ActorRef
	Account *Account
	From    AccountStatus
	To      AccountStatus
	Meta    TransitionMetadata
}

// TransitionResult reports what a transition did. Changed is false when
// the account already was in the target state, including when a
// concurrent request got there first.
type TransitionResult struct {
	Account *Account
	From    AccountStatus
	To      AccountStatus
	Changed bool
}

// TransitionHook is executed before or after a transition.
type TransitionHook func(ctx context.Context, tc TransitionContext) error

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

// AccountStateMachine moves accounts between pending and active.
type AccountStateMachine interface {
	Transition(ctx context.Context, tx bun.IDB, actor ActorRef, acc *Account, target AccountStatus, opts ...TransitionOption) (*TransitionResult, error)
	CurrentStatus(acc *Account) AccountStatus
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*accountStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock Clock) StateMachineOption {
	return func(sm *accountStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the ActivitySink used to publish lifecycle events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *accountStateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *accountStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithTransitionReason sets the human-readable reason for the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.metadata.Reason = reason
	}
}

// WithTransitionMetadata merges metadata into the transition context.
func WithTransitionMetadata(metadata map[string]any) TransitionOption {
	return func(opts *transitionOptions) {
		if len(metadata) == 0 {
			return
		}
		if opts.metadata.Metadata == nil {
			opts.metadata.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			opts.metadata.Metadata[k] = v
		}
	}
}

// WithBeforeTransitionHook adds a hook executed before the status update.
func WithBeforeTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.beforeHooks = append(opts.beforeHooks, h)
		}
	}
}

// WithAfterTransitionHook adds a hook executed after the status update succeeds.
func WithAfterTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.afterHooks = append(opts.afterHooks, h)
		}
	}
}

// NewAccountStateMachine returns the default implementation backed by the provided repository.
func NewAccountStateMachine(accounts Accounts, opts ...StateMachineOption) AccountStateMachine {
	sm := &accountStateMachine{
		accounts: accounts,
		transitions: map[AccountStatus]map[AccountStatus]struct{}{
			StatusPending: {
				StatusActive: {},
			},
		},
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type accountStateMachine struct {
	accounts     Accounts
	transitions  map[AccountStatus]map[AccountStatus]struct{}
	now          Clock
	activitySink ActivitySink
	logger       Logger
}

type transitionOptions struct {
	metadata    TransitionMetadata
	beforeHooks []TransitionHook
	afterHooks  []TransitionHook
}

func (sm *accountStateMachine) Transition(ctx context.Context, tx bun.IDB, actor ActorRef, acc *Account, target AccountStatus, opts ...TransitionOption) (*TransitionResult, error) {
	if acc == nil || target == "" {
		return nil, ErrInvalidStateTransition
	}

	from := acc.Status()
	result := &TransitionResult{Account: acc, From: from, To: target}
	if from == target {
		return result, nil
	}

	if !sm.canTransition(from, target) {
		return nil, ErrInvalidStateTransition
	}

	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	tc := TransitionContext{
		Actor:   actor,
		Account: acc,
		From:    from,
		To:      target,
		Meta:    options.metadata,
	}

	if err := runHooks(ctx, options.beforeHooks, tc); err != nil {
		return nil, err
	}

	changed, err := sm.persist(ctx, tx, acc, target)
	if err != nil {
		return nil, err
	}
	result.Changed = changed

	if !changed {
		return result, nil
	}

	if err := runHooks(ctx, options.afterHooks, tc); err != nil {
		return nil, err
	}

	sm.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventAccountStatusChanged,
		Actor:      actor,
		AccountID:  acc.ID.String(),
		FromStatus: from,
		ToStatus:   target,
		Metadata:   transitionMetadata(tc.Meta),
		OccurredAt: sm.now(),
	})

	return result, nil
}

func (sm *accountStateMachine) CurrentStatus(acc *Account) AccountStatus {
	if acc == nil {
		return ""
	}
	return acc.Status()
}

func (sm *accountStateMachine) persist(ctx context.Context, tx bun.IDB, acc *Account, target AccountStatus) (bool, error) {
	switch target {
	case StatusActive:
		return sm.accounts.ActivateTx(ctx, tx, acc)
	default:
		return false, ErrInvalidStateTransition
	}
}

func (sm *accountStateMachine) canTransition(from, to AccountStatus) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (sm *accountStateMachine) recordActivity(ctx context.Context, event ActivityEvent) {
	if err := sm.activitySink.Record(ctx, event); err != nil {
		sm.logger.Warn("activity sink failed for %s: %v", event.EventType, err)
	}
}

func runHooks(ctx context.Context, hooks []TransitionHook, data TransitionContext) error {
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, data); err != nil {
			return err
		}
	}
	return nil
}

func transitionMetadata(meta TransitionMetadata) map[string]any {
	if meta.Reason == "" && len(meta.Metadata) == 0 {
		return nil
	}

	out := make(map[string]any, len(meta.Metadata)+1)
	for k, v := range meta.Metadata {
		out[k] = v
	}
	if meta.Reason != "" {
		out["reason"] = meta.Reason
	}
	return out
}
