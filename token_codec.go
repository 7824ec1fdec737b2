package account

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// TokenPurpose binds a lifecycle token to the endpoint that consumes it
type TokenPurpose string

const (
	PurposeActivation    TokenPurpose = "activation"
	PurposePasswordReset TokenPurpose = "password_reset"
)

// IsValid checks the purpose is one the codec can issue
func (p TokenPurpose) IsValid() bool {
	switch p {
	case PurposeActivation, PurposePasswordReset:
		return true
	}
	return false
}

// LifecycleClaims is the signed payload of activation and reset tokens
type LifecycleClaims struct {
	jwt.RegisteredClaims
	Purpose     TokenPurpose `json:"pur"`
	Fingerprint string       `json:"fp"`
}

// TokenCodec issues and verifies stateless single-use lifecycle tokens.
// A token stays valid only while the account fields folded into its
// fingerprint are unchanged.
type TokenCodec struct {
	secret  []byte
	issuer  string
	maxAges map[TokenPurpose]time.Duration
	lookup  AccountLookup
	clock   Clock
	logger  Logger
}

// TokenCodecOption configures a TokenCodec
type TokenCodecOption func(*TokenCodec)

// WithTokenClock overrides the time source used to issue and verify
func WithTokenClock(c Clock) TokenCodecOption {
	return func(tc *TokenCodec) {
		tc.clock = normalizeClock(c)
	}
}

// WithTokenLogger sets the codec logger
func WithTokenLogger(l Logger) TokenCodecOption {
	return func(tc *TokenCodec) {
		tc.logger = normalizeLogger(l)
	}
}

// NewTokenCodec creates a codec signing with the configured secret key
func NewTokenCodec(cfg Config, lookup AccountLookup, opts ...TokenCodecOption) *TokenCodec {
	tc := &TokenCodec{
		secret: []byte(cfg.GetSecretKey()),
		issuer: cfg.GetIssuer(),
		maxAges: map[TokenPurpose]time.Duration{
			PurposeActivation:    cfg.GetActivationMaxAge(),
			PurposePasswordReset: cfg.GetResetMaxAge(),
		},
		lookup: lookup,
		clock:  time.Now,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(tc)
		}
	}

	return tc
}

// MaxAge returns the lifetime of tokens issued for purpose
func (tc *TokenCodec) MaxAge(purpose TokenPurpose) time.Duration {
	return tc.maxAges[purpose]
}

// Issue signs a token for the account's current state
func (tc *TokenCodec) Issue(acc *Account, purpose TokenPurpose) (string, error) {
	if acc == nil || acc.ID == uuid.Nil {
		return "", goerrors.New("cannot issue token without account", goerrors.CategoryInternal)
	}

	if !purpose.IsValid() {
		return "", goerrors.New("unknown token purpose: "+string(purpose), goerrors.CategoryInternal)
	}

	now := tc.clock()
	claims := &LifecycleClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tc.issuer,
			Subject:   acc.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tc.maxAges[purpose])),
		},
		Purpose:     purpose,
		Fingerprint: tc.Fingerprint(acc, purpose),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tc.secret)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign lifecycle token")
	}

	return signed, nil
}

// Verify checks a token for purpose and returns the subject account id
func (tc *TokenCodec) Verify(ctx context.Context, token string, purpose TokenPurpose) (uuid.UUID, error) {
	acc, err := tc.VerifyAccount(ctx, token, purpose)
	if err != nil {
		return uuid.Nil, err
	}
	return acc.ID, nil
}

// VerifyAccount is Verify returning the loaded account
func (tc *TokenCodec) VerifyAccount(ctx context.Context, token string, purpose TokenPurpose) (*Account, error) {
	claims, err := tc.parse(token, purpose)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrTokenMalformed
	}

	return tc.checkState(ctx, id, claims)
}

// VerifyForUID also requires the token subject to match the link uid
func (tc *TokenCodec) VerifyForUID(ctx context.Context, uid, token string, purpose TokenPurpose) (*Account, error) {
	id, err := DecodeUID(uid)
	if err != nil {
		return nil, ErrTokenMalformed
	}

	claims, err := tc.parse(token, purpose)
	if err != nil {
		return nil, err
	}

	if claims.Subject != id.String() {
		return nil, ErrTokenMalformed
	}

	return tc.checkState(ctx, id, claims)
}

func (tc *TokenCodec) checkState(ctx context.Context, id uuid.UUID, claims *LifecycleClaims) (*Account, error) {
	acc, err := tc.lookup.GetByID(ctx, id.String())
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTokenUnknownSubject
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load token subject")
	}

	expected := tc.Fingerprint(acc, claims.Purpose)
	if !hmac.Equal([]byte(expected), []byte(claims.Fingerprint)) {
		return nil, ErrTokenStateChanged
	}

	return acc, nil
}

func (tc *TokenCodec) parse(token string, purpose TokenPurpose) (*LifecycleClaims, error) {
	if strings.TrimSpace(token) == "" || !purpose.IsValid() {
		return nil, ErrTokenMalformed
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tc.clock),
		jwt.WithExpirationRequired(),
	}
	if tc.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tc.issuer))
	}

	claims := &LifecycleClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return tc.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		tc.logger.Debug("lifecycle token rejected: %v", err)
		return nil, ErrTokenMalformed
	}

	if !parsed.Valid || claims.Purpose != purpose || claims.Subject == "" || claims.Fingerprint == "" {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// Fingerprint folds the mutable account fields a token depends on.
// Changing the password, activating, or logging in invalidates
// outstanding tokens.
func (tc *TokenCodec) Fingerprint(acc *Account, purpose TokenPurpose) string {
	var lastLogin int64
	if acc.LastLoginAt != nil {
		lastLogin = acc.LastLoginAt.UTC().Unix()
	}

	mac := hmac.New(sha256.New, tc.secret)
	mac.Write([]byte(strings.Join([]string{
		acc.ID.String(),
		acc.PasswordHash,
		strconv.FormatBool(acc.IsActive),
		strconv.FormatInt(lastLogin, 10),
		string(purpose),
	}, "|")))

	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// EncodeUID renders an account id as the uid segment of a link
func EncodeUID(id uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id.String()))
}

// DecodeUID reverses EncodeUID
func DecodeUID(uid string) (uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(uid))
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(string(raw))
}

func isNotFound(err error) bool {
	return repository.IsRecordNotFound(err) || goerrors.IsNotFound(err)
}
