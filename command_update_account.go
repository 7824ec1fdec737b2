package account

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type UpdateAccountMessage struct {
	AccountID  uuid.UUID `json:"-"`
	Email      *string   `json:"email"`
	OnResponse func(acc *Account)
}

func (e UpdateAccountMessage) Type() string { return "account.update" }

func (e UpdateAccountMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.When(e.Email != nil, EmailRules()...)),
	)
}

type UpdateAccountHandler struct {
	lc *Lifecycle
}

func NewUpdateAccountHandler(lc *Lifecycle) *UpdateAccountHandler {
	return &UpdateAccountHandler{lc: lc}
}

func (h *UpdateAccountHandler) Execute(ctx context.Context, event UpdateAccountMessage) error {
	return guard(ctx, "account update", func(ctx context.Context) error {
		return h.execute(ctx, event)
	})
}

func (h *UpdateAccountHandler) execute(ctx context.Context, event UpdateAccountMessage) error {
	if err := event.Validate(); err != nil {
		return NewValidationError(err, "invalid account update")
	}

	var acc *Account
	err := h.lc.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		acc, err = loadAccountTx(ctx, h.lc.repo.Accounts(), tx, event.AccountID)
		if err != nil {
			return err
		}

		if event.Email == nil || NormalizeEmail(*event.Email) == acc.Email {
			return nil
		}

		exists, err := h.lc.repo.Accounts().ExistsByEmailTx(ctx, tx, *event.Email)
		if err != nil {
			return err
		}
		if exists {
			return NewValidationError(validation.Errors{
				"email": errors.New(msgEmailTaken),
			}, "invalid account update")
		}

		return h.lc.repo.Accounts().UpdateEmailTx(ctx, tx, acc, *event.Email)
	})

	if err != nil {
		return richError(err, "account update transaction failed")
	}

	h.lc.events.record(ctx, ActivityEvent{
		EventType: ActivityEventAccountUpdated,
		Actor:     accountActor(acc),
		AccountID: acc.ID.String(),
	})

	if event.OnResponse != nil {
		event.OnResponse(acc)
	}

	return nil
}
