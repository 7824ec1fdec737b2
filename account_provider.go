package account

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// LoginTracker is the slice of the accounts store used to authenticate
type LoginTracker interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	TrackAttemptedLogin(ctx context.Context, acc *Account) error
	TrackSuccessfulLogin(ctx context.Context, acc *Account) error
}

// MaxLoginAttempts is the number of failed attempts allowed
// within CoolDownPeriod
var MaxLoginAttempts = 5

// CoolDownPeriod is the window in which failed attempts are counted
var CoolDownPeriod = "24h"

// AccountProvider verifies credentials against the accounts store
type AccountProvider struct {
	store  LoginTracker
	hasher PasswordHasher
	logger Logger
	clock  Clock
}

// NewAccountProvider builds a provider over store
func NewAccountProvider(store LoginTracker, hasher PasswordHasher) *AccountProvider {
	if hasher == nil {
		hasher = BcryptHasher{Cost: passwordHashCost()}
	}
	return &AccountProvider{
		store:  store,
		hasher: hasher,
		logger: defLogger{},
		clock:  time.Now,
	}
}

func (p *AccountProvider) WithLogger(l Logger) *AccountProvider {
	p.logger = normalizeLogger(l)
	return p
}

func (p *AccountProvider) WithClock(c Clock) *AccountProvider {
	p.clock = normalizeClock(c)
	return p
}

// VerifyIdentity finds the account by email and checks the password.
// Unknown emails and wrong passwords share ErrInvalidCredentials; the
// activation check only runs once the password matched.
func (p *AccountProvider) VerifyIdentity(ctx context.Context, email, password string) (*Account, error) {
	acc, err := p.store.GetByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account during verification")
	}

	if acc.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(p.clock(), *acc.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			acc.LoginAttempts = 0
		}
	}

	if acc.LoginAttempts >= MaxLoginAttempts {
		return nil, ErrTooManyLoginAttempts
	}

	if err := p.hasher.ComparePasswordAndHash(password, acc.PasswordHash); err != nil {
		if err2 := p.store.TrackAttemptedLogin(ctx, acc); err2 != nil {
			return nil, goerrors.Wrap(err2, goerrors.CategoryInternal, "failed to track login attempt")
		}
		return nil, ErrInvalidCredentials
	}

	if !acc.IsActive {
		return nil, ErrNotActivated
	}

	if err := p.store.TrackSuccessfulLogin(ctx, acc); err != nil {
		p.logger.Error("failed to track successful login for %s: %v", acc.ID, err)
	}

	return acc, nil
}
