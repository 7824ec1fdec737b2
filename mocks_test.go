package account_test

import (
	"context"
	"sync"

	account "github.com/goliatone/go-account"
	"github.com/stretchr/testify/mock"
)

// MockNotifier implements account.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, n account.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockLoginTracker implements account.LoginTracker
type MockLoginTracker struct {
	mock.Mock
}

func (m *MockLoginTracker) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	args := m.Called(ctx, email)
	acc, _ := args.Get(0).(*account.Account)
	return acc, args.Error(1)
}

func (m *MockLoginTracker) TrackAttemptedLogin(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockLoginTracker) TrackSuccessfulLogin(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

// recordingNotifier keeps every notification it was asked to send
type recordingNotifier struct {
	mu    sync.Mutex
	sent  []account.Notification
	fails error
}

func (r *recordingNotifier) Send(_ context.Context, n account.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.fails
}

func (r *recordingNotifier) last() account.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return account.Notification{}
	}
	return r.sent[len(r.sent)-1]
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

// recordingSink keeps every activity event
type recordingSink struct {
	mu     sync.Mutex
	events []account.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, e account.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) types() []account.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]account.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

func (s *recordingSink) find(t account.ActivityEventType) (account.ActivityEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.EventType == t {
			return e, true
		}
	}
	return account.ActivityEvent{}, false
}
