package account

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidLink       = "INVALID_LINK"
	TextCodeNoSuchAccount     = "NO_SUCH_ACCOUNT"
	TextCodeInvalidPassword   = "INVALID_OLD_PASSWORD"
	TextCodeMissingField      = "MISSING_FIELD"
	TextCodeTokenStale        = "TOKEN_STATE_CHANGED"
	TextCodeUnknownSubject    = "TOKEN_UNKNOWN_SUBJECT"
	TextCodeProfileNotFound   = "PROFILE_NOT_FOUND"
	TextCodeProfileExists     = "PROFILE_EXISTS"
	TextCodeAccountNotFound   = "ACCOUNT_NOT_FOUND"
	TextCodeEmailTaken        = "EMAIL_TAKEN"
	TextCodeNotAuthenticated  = "NOT_AUTHENTICATED"
	TextCodeInvalidTransition = "INVALID_STATE_TRANSITION"
	TextCodeTokenMalformed    = "TOKEN_MALFORMED"
	TextCodeTokenExpired      = "TOKEN_EXPIRED"
	TextCodeInvalidCreds      = "INVALID_CREDENTIALS"
	TextCodeAccountPending    = "ACCOUNT_PENDING"
	TextCodeTooManyAttempts   = "TOO_MANY_ATTEMPTS"
	TextCodeEmptyPassword     = "EMPTY_PASSWORD"
)

// Token errors, returned by TokenCodec.Verify
var (
	ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryBadInput).
				WithTextCode(TextCodeTokenMalformed).
				WithCode(goerrors.CodeBadRequest)

	ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryBadInput).
			WithTextCode(TextCodeTokenExpired).
			WithCode(goerrors.CodeBadRequest)

	ErrTokenStateChanged = goerrors.New("token no longer matches account state", goerrors.CategoryBadInput).
				WithTextCode(TextCodeTokenStale).
				WithCode(goerrors.CodeBadRequest)

	ErrTokenUnknownSubject = goerrors.New("token subject does not exist", goerrors.CategoryBadInput).
				WithTextCode(TextCodeUnknownSubject).
				WithCode(goerrors.CodeBadRequest)
)

// Lifecycle errors
var (
	ErrInvalidActivationLink = goerrors.New("Invalid activation link.", goerrors.CategoryBadInput).
					WithTextCode(TextCodeInvalidLink).
					WithCode(goerrors.CodeBadRequest)

	ErrInvalidResetLink = goerrors.New("Invalid reset password link.", goerrors.CategoryBadInput).
				WithTextCode(TextCodeInvalidLink).
				WithCode(goerrors.CodeBadRequest)

	ErrMissingUIDOrToken = goerrors.New("Missing uid or token.", goerrors.CategoryValidation).
				WithTextCode(TextCodeMissingField).
				WithCode(goerrors.CodeBadRequest)

	ErrMissingNewPassword = goerrors.New("New password is required.", goerrors.CategoryValidation).
				WithTextCode(TextCodeMissingField).
				WithCode(goerrors.CodeBadRequest)

	ErrInvalidCredentials = goerrors.New("Email or Password is incorrect.", goerrors.CategoryAuth).
				WithTextCode(TextCodeInvalidCreds).
				WithCode(goerrors.CodeBadRequest)

	ErrNotActivated = goerrors.New("Account is not activated.", goerrors.CategoryAuth).
			WithTextCode(TextCodeAccountPending).
			WithCode(goerrors.CodeBadRequest)

	ErrTooManyLoginAttempts = goerrors.New("Too many login attempts. Try again later.", goerrors.CategoryAuth).
				WithTextCode(TextCodeTooManyAttempts).
				WithCode(goerrors.CodeBadRequest)

	ErrInvalidOldPassword = goerrors.New("Invalid old password.", goerrors.CategoryAuth).
				WithTextCode(TextCodeInvalidPassword).
				WithCode(goerrors.CodeBadRequest)

	ErrNoSuchAccount = goerrors.New("User with this email does not exist.", goerrors.CategoryAuth).
				WithTextCode(TextCodeNoSuchAccount).
				WithCode(goerrors.CodeBadRequest)

	ErrNotAuthenticated = goerrors.New("Authentication credentials were not provided.", goerrors.CategoryAuthz).
				WithTextCode(TextCodeNotAuthenticated).
				WithCode(goerrors.CodeForbidden)

	ErrInvalidStateTransition = goerrors.New("invalid account state transition", goerrors.CategoryValidation).
					WithTextCode(TextCodeInvalidTransition).
					WithCode(goerrors.CodeBadRequest)
)

// Store errors
var (
	ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
				WithTextCode(TextCodeAccountNotFound).
				WithCode(goerrors.CodeNotFound)

	ErrProfileNotFound = goerrors.New("Profile does not exist.", goerrors.CategoryNotFound).
				WithTextCode(TextCodeProfileNotFound).
				WithCode(goerrors.CodeNotFound)

	ErrProfileExists = goerrors.New("Profile already exists.", goerrors.CategoryConflict).
				WithTextCode(TextCodeProfileExists).
				WithCode(goerrors.CodeBadRequest)
)

// Password errors
var (
	ErrNoEmptyString = goerrors.New("password can not be empty", goerrors.CategoryValidation).
				WithTextCode(TextCodeEmptyPassword).
				WithCode(goerrors.CodeBadRequest)

	ErrMismatchedHashAndPassword = goerrors.New("password does not match hash", goerrors.CategoryAuth).
					WithTextCode(TextCodeInvalidCreds).
					WithCode(goerrors.CodeBadRequest)
)

// IsTokenError reports whether err came from token verification
func IsTokenError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}

	switch richErr.TextCode {
	case TextCodeTokenMalformed,
		TextCodeTokenExpired,
		TextCodeTokenStale,
		TextCodeUnknownSubject:
		return true
	}
	return false
}

// HasTextCode reports whether err is a rich error with the given text code
func HasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}
