package account_test

import (
	"testing"

	account "github.com/goliatone/go-account"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	hasher := account.NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.HashPassword(testPassword)
	require.NoError(t, err)
	assert.NotEqual(t, testPassword, hash)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	assert.NoError(t, hasher.ComparePasswordAndHash(testPassword, hash))
	assert.ErrorIs(t, hasher.ComparePasswordAndHash(testPassword2, hash), account.ErrMismatchedHashAndPassword)

	again, err := hasher.HashPassword(testPassword)
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "hashes are salted")
}

func TestBcryptHasher_RejectsEmpty(t *testing.T) {
	_, err := account.NewBcryptHasher(bcrypt.MinCost).HashPassword("")
	assert.ErrorIs(t, err, account.ErrNoEmptyString)
}

func TestComparePasswordAndHash_MalformedHash(t *testing.T) {
	err := account.ComparePasswordAndHash(testPassword, "$2a$not-a-hash")
	require.Error(t, err)
	assert.NotErrorIs(t, err, account.ErrMismatchedHashAndPassword)
}

func TestNewBcryptHasher_Cost(t *testing.T) {
	cases := map[string]struct {
		in  int
		min int
		max int
	}{
		"too high": {in: bcrypt.MaxCost + 5, min: bcrypt.MaxCost, max: bcrypt.MaxCost},
		"zero":     {in: 0, min: bcrypt.MinCost, max: bcrypt.MaxCost},
		"explicit": {in: bcrypt.MinCost + 1, min: bcrypt.MinCost + 1, max: bcrypt.MinCost + 1},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cost := account.NewBcryptHasher(tc.in).Cost
			assert.GreaterOrEqual(t, cost, tc.min)
			assert.LessOrEqual(t, cost, tc.max)
		})
	}
}

func TestRandomPasswordHash(t *testing.T) {
	a, b := account.RandomPasswordHash(), account.RandomPasswordHash()
	assert.NotEqual(t, a, b)

	_, err := bcrypt.Cost([]byte(a))
	assert.NoError(t, err)
}
