package account

import (
	"time"

	"github.com/goliatone/go-router"
)

const accountLocalsKey = "account"

// SessionManager binds the session cookie to router requests
type SessionManager struct {
	auth   *Authenticator
	cfg    Config
	clock  Clock
	Logger Logger
}

// NewSessionManager creates a SessionManager over auth
func NewSessionManager(auth *Authenticator, cfg Config) *SessionManager {
	return &SessionManager{
		auth:   auth,
		cfg:    cfg,
		clock:  time.Now,
		Logger: defLogger{},
	}
}

// WithLogger sets the logger
func (m *SessionManager) WithLogger(l Logger) *SessionManager {
	m.Logger = normalizeLogger(l)
	return m
}

// WithClock sets the clock used for cookie expiry
func (m *SessionManager) WithClock(c Clock) *SessionManager {
	m.clock = normalizeClock(c)
	return m
}

// Login verifies the credentials and sets the session cookie
func (m *SessionManager) Login(c router.Context, email, password string) (*Account, error) {
	token, acc, err := m.auth.Login(c.Context(), email, password)
	if err != nil {
		return nil, err
	}

	m.setCookieToken(c, token, m.auth.TokenService().TTL())
	return acc, nil
}

// Logout clears the session cookie. It never fails.
func (m *SessionManager) Logout(c router.Context) {
	if acc, err := m.accountFromCookie(c); err == nil {
		m.auth.Logout(c.Context(), acc)
	}
	m.cookieDel(c, m.cfg.GetSessionCookieName())
}

// Protected rejects requests without a valid session for an active
// account and stores the account in the request locals
func (m *SessionManager) Protected() router.MiddlewareFunc {
	return m.ProtectedWith(nil)
}

// ProtectedWith is Protected with a custom error handler
func (m *SessionManager) ProtectedWith(errorHandler router.ErrorHandler) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			acc, err := m.accountFromCookie(c)
			if err != nil {
				m.Logger.Debug("protected route %s rejected: %v", c.Path(), err)
				if errorHandler != nil {
					return errorHandler(c, err)
				}
				return err
			}
			c.Locals(accountLocalsKey, acc)
			c.SetContext(WithContext(c.Context(), acc))
			return next(c)
		}
	}
}

// ClearSession removes the session cookie without recording a logout
func (m *SessionManager) ClearSession(c router.Context) {
	m.cookieDel(c, m.cfg.GetSessionCookieName())
}

// IsAuthenticated reports if the request carries a usable session
func (m *SessionManager) IsAuthenticated(c router.Context) bool {
	_, err := m.accountFromCookie(c)
	return err == nil
}

// CurrentAccount returns the account stored by Protected
func CurrentAccount(c router.Context) (*Account, bool) {
	acc, ok := c.Locals(accountLocalsKey).(*Account)
	return acc, ok && acc != nil
}

func (m *SessionManager) accountFromCookie(c router.Context) (*Account, error) {
	token := c.Cookies(m.cfg.GetSessionCookieName())
	return m.auth.AccountFromToken(c.Context(), token)
}

func (m *SessionManager) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     m.cfg.GetSessionCookieName(),
		Value:    val,
		Path:     "/",
		Expires:  m.clock().Add(duration),
		HTTPOnly: true,
		Secure:   m.cfg.GetSessionSecure(),
		SameSite: router.CookieSameSiteLaxMode,
	})
}

func (m *SessionManager) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  m.clock().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   m.cfg.GetSessionSecure(),
		SameSite: router.CookieSameSiteLaxMode,
	})
}
