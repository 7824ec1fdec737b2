package account

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ChangePasswordMessage struct {
	AccountID   uuid.UUID `json:"-"`
	OldPassword string    `json:"old_password"`
	NewPassword string    `json:"new_password"`
}

func (e ChangePasswordMessage) Type() string { return "account.change_password" }

type ChangePasswordHandler struct {
	lc *Lifecycle
}

func NewChangePasswordHandler(lc *Lifecycle) *ChangePasswordHandler {
	return &ChangePasswordHandler{lc: lc}
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	return guard(ctx, "password change", func(ctx context.Context) error {
		return h.execute(ctx, event)
	})
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	// an empty old password falls through to the hash comparison
	err := validation.ValidateStruct(&event,
		validation.Field(&event.NewPassword, validation.Required),
	)
	if err != nil {
		return NewValidationError(err, "invalid password change")
	}

	var acc *Account
	err = h.lc.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		acc, err = loadAccountTx(ctx, h.lc.repo.Accounts(), tx, event.AccountID)
		if err != nil {
			return err
		}

		if err := h.lc.hasher.ComparePasswordAndHash(event.OldPassword, acc.PasswordHash); err != nil {
			return ErrInvalidOldPassword
		}

		if err := (validation.Errors{
			"new_password": ValidatePassword(event.NewPassword, acc.Email),
		}).Filter(); err != nil {
			return NewValidationError(err, "invalid password change")
		}

		hash, err := h.lc.hasher.HashPassword(event.NewPassword)
		if err != nil {
			return richError(err, "failed to hash password")
		}

		return h.lc.repo.Accounts().UpdatePasswordTx(ctx, tx, acc, hash)
	})

	if err != nil {
		return richError(err, "password change transaction failed")
	}

	h.lc.events.record(ctx, ActivityEvent{
		EventType: ActivityEventPasswordChanged,
		Actor:     accountActor(acc),
		AccountID: acc.ID.String(),
	})

	return nil
}
