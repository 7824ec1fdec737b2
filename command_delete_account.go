package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type DeleteAccountMessage struct {
	AccountID uuid.UUID
}

func (e DeleteAccountMessage) Type() string { return "account.delete" }

type DeleteAccountHandler struct {
	lc *Lifecycle
}

func NewDeleteAccountHandler(lc *Lifecycle) *DeleteAccountHandler {
	return &DeleteAccountHandler{lc: lc}
}

func (h *DeleteAccountHandler) Execute(ctx context.Context, event DeleteAccountMessage) error {
	return guard(ctx, "account deletion", func(ctx context.Context) error {
		return h.execute(ctx, event)
	})
}

func (h *DeleteAccountHandler) execute(ctx context.Context, event DeleteAccountMessage) error {
	err := h.lc.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.lc.repo.Profiles().DeleteByAccountIDTx(ctx, tx, event.AccountID); err != nil {
			return err
		}
		return h.lc.repo.Accounts().DeleteByIDTx(ctx, tx, event.AccountID)
	})

	if err != nil {
		return richError(err, "account deletion transaction failed")
	}

	h.lc.events.record(ctx, ActivityEvent{
		EventType: ActivityEventAccountDeleted,
		Actor:     ActorRef{ID: event.AccountID.String(), Type: ActorTypeAccount},
		AccountID: event.AccountID.String(),
	})

	return nil
}
