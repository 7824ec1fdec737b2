package account

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/uptrace/bun"
)

type ConfirmPasswordResetMessage struct {
	UID         string `json:"uid"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (e ConfirmPasswordResetMessage) Type() string { return "account.password_reset.confirm" }

type ConfirmPasswordResetHandler struct {
	lc *Lifecycle
}

func NewConfirmPasswordResetHandler(lc *Lifecycle) *ConfirmPasswordResetHandler {
	return &ConfirmPasswordResetHandler{lc: lc}
}

func (h *ConfirmPasswordResetHandler) Execute(ctx context.Context, event ConfirmPasswordResetMessage) error {
	return guard(ctx, "password reset confirmation", func(ctx context.Context) error {
		return h.execute(ctx, event)
	})
}

func (h *ConfirmPasswordResetHandler) execute(ctx context.Context, event ConfirmPasswordResetMessage) error {
	acc, err := h.verify(ctx, event.UID, event.Token)
	if err != nil {
		return err
	}

	if strings.TrimSpace(event.NewPassword) == "" {
		return ErrMissingNewPassword
	}

	if err := (validation.Errors{
		"new_password": ValidatePassword(event.NewPassword, acc.Email),
	}).Filter(); err != nil {
		return NewValidationError(err, "invalid password reset")
	}

	hash, err := h.lc.hasher.HashPassword(event.NewPassword)
	if err != nil {
		return richError(err, "failed to hash password")
	}

	err = h.lc.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := loadAccountTx(ctx, h.lc.repo.Accounts(), tx, acc.ID)
		if err != nil {
			if isNotFound(err) {
				return ErrInvalidResetLink
			}
			return err
		}

		// a concurrent confirmation already consumed the token
		if current.PasswordHash != acc.PasswordHash {
			return ErrInvalidResetLink
		}

		return h.lc.repo.Accounts().UpdatePasswordTx(ctx, tx, current, hash)
	})

	if err != nil {
		return richError(err, "password reset transaction failed")
	}

	h.lc.events.record(ctx, ActivityEvent{
		EventType: ActivityEventPasswordResetComplete,
		Actor:     accountActor(acc),
		AccountID: acc.ID.String(),
	})

	return nil
}

func (h *ConfirmPasswordResetHandler) verify(ctx context.Context, uid, token string) (*Account, error) {
	return verifyResetLink(ctx, h.lc, uid, token)
}

// verifyResetLink maps every token failure onto the invalid reset link error.
// A missing uid or token is reported as such.
func verifyResetLink(ctx context.Context, lc *Lifecycle, uid, token string) (*Account, error) {
	if strings.TrimSpace(uid) == "" || strings.TrimSpace(token) == "" {
		return nil, ErrMissingUIDOrToken
	}

	acc, err := lc.codec.VerifyForUID(ctx, uid, token, PurposePasswordReset)
	if err != nil {
		if IsTokenError(err) {
			lc.logger.Debug("password reset rejected: %v", err)
			return nil, ErrInvalidResetLink
		}
		return nil, richError(err, "failed to verify password reset token")
	}

	return acc, nil
}

// CheckResetLink validates a reset link without consuming it
func (l *Lifecycle) CheckResetLink(ctx context.Context, uid, token string) (*Account, error) {
	return verifyResetLink(ctx, l, uid, token)
}
