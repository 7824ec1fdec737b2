package account

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// sessionAudience keeps session tokens apart from lifecycle tokens
// signed with the same key
const sessionAudience = "session"

// TokenService signs and validates session tokens
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	logger     Logger
	clock      Clock
}

// NewTokenService creates a TokenService from cfg
func NewTokenService(cfg Config, logger Logger, clock Clock) *TokenService {
	return &TokenService{
		signingKey: []byte(cfg.GetSecretKey()),
		ttl:        cfg.GetSessionTTL(),
		issuer:     cfg.GetIssuer(),
		logger:     normalizeLogger(logger),
		clock:      normalizeClock(clock),
	}
}

// TTL is the session lifetime
func (ts *TokenService) TTL() time.Duration {
	return ts.ttl
}

// Generate creates a session token for acc
func (ts *TokenService) Generate(acc *Account) (string, error) {
	if acc == nil {
		return "", goerrors.New("account must not be nil", goerrors.CategoryInternal)
	}

	now := ts.clock()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   acc.ID.String(),
			Audience:  jwt.ClaimStrings{sessionAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
		UID:      acc.ID.String(),
		UserRole: string(acc.Role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// Validate parses and validates a session token
func (ts *TokenService) Validate(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("session token with unexpected signing method %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	},
		jwt.WithIssuer(ts.issuer),
		jwt.WithAudience(sessionAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.clock),
	)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
