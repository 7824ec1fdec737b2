package account

import (
	"context"
	"strings"
)

// Authenticator turns credentials into session tokens and back
type Authenticator struct {
	provider *AccountProvider
	accounts AccountLookup
	tokens   *TokenService
	events   activityRecorder
	logger   Logger
}

// NewAuthenticator builds an Authenticator sharing the lifecycle
// store, hasher, clock and activity sink
func NewAuthenticator(lc *Lifecycle) *Authenticator {
	provider := NewAccountProvider(lc.repo.Accounts(), lc.hasher).
		WithLogger(lc.logger).
		WithClock(lc.clock)

	return &Authenticator{
		provider: provider,
		accounts: lc.repo.Accounts(),
		tokens:   NewTokenService(lc.cfg, lc.logger, lc.clock),
		events:   lc.events,
		logger:   lc.logger,
	}
}

// TokenService returns the session token service
func (a *Authenticator) TokenService() *TokenService {
	return a.tokens
}

// Login verifies email and password and returns a signed session token
func (a *Authenticator) Login(ctx context.Context, email, password string) (string, *Account, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		a.recordFailure(ctx, email, ErrInvalidCredentials)
		return "", nil, ErrInvalidCredentials
	}

	acc, err := a.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		a.logger.Debug("login rejected for %s: %v", NormalizeEmail(email), err)
		a.recordFailure(ctx, email, err)
		return "", nil, richError(err, "failed to verify identity")
	}

	token, err := a.tokens.Generate(acc)
	if err != nil {
		return "", nil, err
	}

	a.events.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     accountActor(acc),
		AccountID: acc.ID.String(),
	})

	return token, acc, nil
}

// SessionFromToken decodes a session token without touching the store
func (a *Authenticator) SessionFromToken(token string) (*SessionObject, error) {
	claims, err := a.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	return sessionFromClaims(claims)
}

// AccountFromToken resolves a session token to an active account.
// Any failure is reported as ErrNotAuthenticated.
func (a *Authenticator) AccountFromToken(ctx context.Context, token string) (*Account, error) {
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	session, err := a.SessionFromToken(token)
	if err != nil {
		a.logger.Debug("session rejected: %v", err)
		return nil, ErrNotAuthenticated
	}

	id, err := session.GetAccountUUID()
	if err != nil {
		return nil, ErrNotAuthenticated
	}

	acc, err := a.accounts.GetByID(ctx, id.String())
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotAuthenticated
		}
		return nil, richError(err, "failed to load session account")
	}

	if !acc.IsActive {
		return nil, ErrNotAuthenticated
	}

	return acc, nil
}

// Logout records the end of a session. Session tokens are stateless,
// clearing the cookie is up to the transport.
func (a *Authenticator) Logout(ctx context.Context, acc *Account) {
	if acc == nil {
		return
	}
	a.events.record(ctx, ActivityEvent{
		EventType: ActivityEventLogout,
		Actor:     accountActor(acc),
		AccountID: acc.ID.String(),
	})
}

func (a *Authenticator) recordFailure(ctx context.Context, email string, err error) {
	a.events.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Actor:     ActorRef{Type: ActorTypeSystem},
		Metadata: map[string]any{
			"email": NormalizeEmail(email),
			"error": err.Error(),
		},
	})
}
