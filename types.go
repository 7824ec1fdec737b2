package account

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds account options
type Config interface {
	GetSecretKey() string
	GetIssuer() string
	GetActivationMaxAge() time.Duration
	GetResetMaxAge() time.Duration
	GetSessionCookieName() string
	GetSessionTTL() time.Duration
	GetSessionSecure() bool
	GetSiteURL() string
	GetRoutePrefix() string
	GetCSRFEnabled() bool
	GetPasswordHashCost() int
	GetDeterministicIDs() bool
}

// Session holds attributes that are part of an account session
type Session interface {
	GetAccountID() string
	GetAccountUUID() (uuid.UUID, error)
	GetRole() string
	GetIssuer() string
	GetIssuedAt() *time.Time
	GetExpiresAt() *time.Time
}

// AccountLookup finds accounts by primary key
type AccountLookup interface {
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*Account, error)
}

// PasswordHasher hashes and compares passwords
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// Clock returns the current time
type Clock func() time.Time

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCT "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACCT "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCT "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCT "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

// NopLogger discards everything
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}

func normalizeClock(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}
