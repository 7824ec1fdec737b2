package account_test

import (
	"testing"
	"time"

	account "github.com/goliatone/go-account"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_GenerateAndValidate(t *testing.T) {
	clock := newFakeClock()
	ts := account.NewTokenService(testOptions(), account.NopLogger{}, clock.Now)

	acc := &account.Account{ID: uuid.New(), Role: account.RoleAdmin}

	token, err := ts.Generate(acc)
	require.NoError(t, err)

	claims, err := ts.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, acc.ID.String(), claims.AccountID())
	assert.Equal(t, string(account.RoleAdmin), claims.Role())
	assert.True(t, claims.IsAtLeast(account.RoleUser))
	assert.Equal(t, account.DefaultIssuer, claims.Issuer)
	assert.Equal(t, clock.Now().Unix(), claims.IssuedAt().Unix())
	assert.Equal(t, clock.Now().Add(ts.TTL()).Unix(), claims.Expires().Unix())
	assert.NotEmpty(t, claims.ID)
}

func TestTokenService_Expired(t *testing.T) {
	clock := newFakeClock()
	ts := account.NewTokenService(testOptions(), account.NopLogger{}, clock.Now)

	token, err := ts.Generate(&account.Account{ID: uuid.New(), Role: account.RoleUser})
	require.NoError(t, err)

	clock.Advance(ts.TTL() + time.Second)

	_, err = ts.Validate(token)
	assert.ErrorIs(t, err, account.ErrTokenExpired)
}

func TestTokenService_RejectsLifecycleTokens(t *testing.T) {
	env := newTestEnv(t)
	acc, n := env.register(t, testEmail, testPassword)
	require.NotNil(t, acc)

	ts := account.NewTokenService(env.opts, account.NopLogger{}, env.clock.Now)

	_, err := ts.Validate(n.Token)
	assert.ErrorIs(t, err, account.ErrTokenMalformed)
}

func TestTokenService_RejectsOtherSigningMethods(t *testing.T) {
	ts := account.NewTokenService(testOptions(), account.NopLogger{}, nil)

	claims := &account.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    account.DefaultIssuer,
			Subject:   uuid.NewString(),
			Audience:  jwt.ClaimStrings{"session"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ts.Validate(unsigned)
	assert.ErrorIs(t, err, account.ErrTokenMalformed)

	_, err = ts.Validate("not.a.token")
	assert.ErrorIs(t, err, account.ErrTokenMalformed)
}

func TestTokenService_RejectsForeignIssuer(t *testing.T) {
	opts := testOptions()
	opts.Issuer = "someone-else"
	foreign := account.NewTokenService(opts, account.NopLogger{}, nil)
	ts := account.NewTokenService(testOptions(), account.NopLogger{}, nil)

	token, err := foreign.Generate(&account.Account{ID: uuid.New()})
	require.NoError(t, err)

	_, err = ts.Validate(token)
	assert.ErrorIs(t, err, account.ErrTokenMalformed)
}
