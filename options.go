package account

import (
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	DefaultIssuer            = "go-account"
	DefaultSessionCookieName = "sessionid"
	DefaultRoutePrefix       = "/auth-api"
	DefaultActivationMaxAge  = 24 * time.Hour
	DefaultResetMaxAge       = time.Hour
	DefaultSessionTTL        = 14 * 24 * time.Hour
)

var _ Config = Options{}

// Options is the concrete Config used by the server and tests.
// SecretKey has no default and must be injected.
type Options struct {
	SecretKey         string
	Issuer            string
	ActivationMaxAge  time.Duration
	ResetMaxAge       time.Duration
	SessionCookieName string
	SessionTTL        time.Duration
	SessionSecure     bool
	SiteURL           string
	RoutePrefix       string
	CSRFEnabled       bool
	PasswordHashCost  int
	DeterministicIDs  bool
}

// DefaultOptions returns options with every field but SecretKey set
func DefaultOptions() Options {
	return Options{
		Issuer:            DefaultIssuer,
		ActivationMaxAge:  DefaultActivationMaxAge,
		ResetMaxAge:       DefaultResetMaxAge,
		SessionCookieName: DefaultSessionCookieName,
		SessionTTL:        DefaultSessionTTL,
		SessionSecure:     true,
		SiteURL:           "http://localhost:8000",
		RoutePrefix:       DefaultRoutePrefix,
		CSRFEnabled:       true,
		PasswordHashCost:  passwordHashCost(),
	}
}

// Validate checks the options can back a running service
func (o Options) Validate() error {
	if strings.TrimSpace(o.SecretKey) == "" {
		return goerrors.New("secret key must be configured", goerrors.CategoryValidation).
			WithTextCode("MISSING_SECRET_KEY")
	}
	if o.ActivationMaxAge <= 0 || o.ResetMaxAge <= 0 {
		return goerrors.New("token max age must be positive", goerrors.CategoryValidation).
			WithTextCode("INVALID_TOKEN_MAX_AGE")
	}
	return nil
}

func (o Options) GetSecretKey() string { return o.SecretKey }

func (o Options) GetIssuer() string {
	if o.Issuer == "" {
		return DefaultIssuer
	}
	return o.Issuer
}

func (o Options) GetActivationMaxAge() time.Duration {
	if o.ActivationMaxAge <= 0 {
		return DefaultActivationMaxAge
	}
	return o.ActivationMaxAge
}

func (o Options) GetResetMaxAge() time.Duration {
	if o.ResetMaxAge <= 0 {
		return DefaultResetMaxAge
	}
	return o.ResetMaxAge
}

func (o Options) GetSessionCookieName() string {
	if o.SessionCookieName == "" {
		return DefaultSessionCookieName
	}
	return o.SessionCookieName
}

func (o Options) GetSessionTTL() time.Duration {
	if o.SessionTTL <= 0 {
		return DefaultSessionTTL
	}
	return o.SessionTTL
}

func (o Options) GetSessionSecure() bool { return o.SessionSecure }

func (o Options) GetSiteURL() string { return strings.TrimRight(o.SiteURL, "/") }

func (o Options) GetRoutePrefix() string {
	p := strings.Trim(o.RoutePrefix, "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

func (o Options) GetCSRFEnabled() bool { return o.CSRFEnabled }

func (o Options) GetPasswordHashCost() int {
	if o.PasswordHashCost == 0 {
		return passwordHashCost()
	}
	return o.PasswordHashCost
}

func (o Options) GetDeterministicIDs() bool { return o.DeterministicIDs }
