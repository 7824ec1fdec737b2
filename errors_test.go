package account_test

import (
	"errors"
	"net/http"
	"testing"

	account "github.com/goliatone/go-account"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
)

func TestIsTokenError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "malformed", err: account.ErrTokenMalformed, expected: true},
		{name: "expired", err: account.ErrTokenExpired, expected: true},
		{name: "state changed", err: account.ErrTokenStateChanged, expected: true},
		{name: "unknown subject", err: account.ErrTokenUnknownSubject, expected: true},
		{name: "lifecycle error", err: account.ErrInvalidResetLink, expected: false},
		{name: "plain error", err: errors.New("token is expired"), expected: false},
		{name: "nil", err: nil, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, account.IsTokenError(tt.err))
		})
	}
}

func TestHasTextCode(t *testing.T) {
	assert.True(t, account.HasTextCode(account.ErrInvalidActivationLink, account.TextCodeInvalidLink))
	assert.True(t, account.HasTextCode(account.ErrInvalidResetLink, account.TextCodeInvalidLink))
	assert.False(t, account.HasTextCode(account.ErrProfileExists, account.TextCodeInvalidLink))
	assert.False(t, account.HasTextCode(errors.New("x"), account.TextCodeInvalidLink))
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "invalid link", err: account.ErrInvalidActivationLink, expected: http.StatusBadRequest},
		{name: "credentials", err: account.ErrInvalidCredentials, expected: http.StatusBadRequest},
		{name: "validation", err: account.ErrMissingNewPassword, expected: http.StatusBadRequest},
		{name: "conflict", err: account.ErrProfileExists, expected: http.StatusBadRequest},
		{name: "not found", err: account.ErrProfileNotFound, expected: http.StatusNotFound},
		{name: "not authenticated", err: account.ErrNotAuthenticated, expected: http.StatusForbidden},
		{name: "fiber error", err: fiber.NewError(http.StatusMethodNotAllowed, "nope"), expected: http.StatusMethodNotAllowed},
		{name: "plain error", err: errors.New("boom"), expected: http.StatusInternalServerError},
		{
			name:     "internal",
			err:      goerrors.Wrap(errors.New("db gone"), goerrors.CategoryInternal, "failed"),
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, account.StatusForError(tt.err))
		})
	}
}

func TestNewErrorResponse(t *testing.T) {
	status, body := account.NewErrorResponse(account.ErrInvalidResetLink)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid reset password link.", body.Detail)
	assert.Empty(t, body.Errors)

	status, body = account.NewErrorResponse(goerrors.Wrap(errors.New("password_hash leaked"), goerrors.CategoryInternal, "db"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "An unexpected error occurred.", body.Detail)
	assert.NotContains(t, body.Detail, "password_hash")

	verr := goerrors.NewValidation("invalid registration",
		goerrors.FieldError{Field: "email", Message: "Enter a valid email address."},
	)
	status, body = account.NewErrorResponse(verr)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Enter a valid email address.", body.Errors["email"])
}
