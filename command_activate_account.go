package account

import (
	"context"
	"errors"
	"strings"

	"github.com/uptrace/bun"
)

type ActivateAccountMessage struct {
	UID        string `json:"uid"`
	Token      string `json:"token"`
	OnResponse func(resp *ActivateAccountResponse)
}

func (e ActivateAccountMessage) Type() string { return "account.activate" }

type ActivateAccountResponse struct {
	Account       *Account
	AlreadyActive bool
}

type ActivateAccountHandler struct {
	lc *Lifecycle
}

func NewActivateAccountHandler(lc *Lifecycle) *ActivateAccountHandler {
	return &ActivateAccountHandler{lc: lc}
}

func (h *ActivateAccountHandler) Execute(ctx context.Context, event ActivateAccountMessage) error {
	return guard(ctx, "account activation", func(ctx context.Context) error {
		return h.execute(ctx, event)
	})
}

func (h *ActivateAccountHandler) execute(ctx context.Context, event ActivateAccountMessage) error {
	if strings.TrimSpace(event.UID) == "" || strings.TrimSpace(event.Token) == "" {
		return ErrMissingUIDOrToken
	}

	resp := &ActivateAccountResponse{}

	acc, err := h.lc.codec.VerifyForUID(ctx, event.UID, event.Token, PurposeActivation)
	switch {
	case err == nil:
	case errors.Is(err, ErrTokenStateChanged):
		// the token was consumed by an earlier activation of this same account
		acc, err = h.alreadyActive(ctx, event.UID)
		if err != nil {
			return err
		}
	case IsTokenError(err):
		h.lc.logger.Debug("activation rejected: %v", err)
		return ErrInvalidActivationLink
	default:
		return richError(err, "failed to verify activation token")
	}

	if acc.IsActive {
		resp.Account = acc
		resp.AlreadyActive = true
		if event.OnResponse != nil {
			event.OnResponse(resp)
		}
		return nil
	}

	err = h.lc.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		opts := append([]TransitionOption{
			WithTransitionReason("email activation"),
			WithTransitionMetadata(map[string]any{"via": "email_link"}),
		}, h.lc.activation...)

		res, err := h.lc.machine.Transition(ctx, tx, accountActor(acc), acc, StatusActive, opts...)
		if err != nil {
			return err
		}

		resp.Account = res.Account
		resp.AlreadyActive = !res.Changed
		return nil
	})

	if err != nil {
		return richError(err, "account activation transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *ActivateAccountHandler) alreadyActive(ctx context.Context, uid string) (*Account, error) {
	id, err := DecodeUID(uid)
	if err != nil {
		return nil, ErrInvalidActivationLink
	}

	acc, err := h.lc.repo.Accounts().GetByID(ctx, id.String())
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidActivationLink
		}
		return nil, richError(err, "failed to load account")
	}

	if !acc.IsActive {
		return nil, ErrInvalidActivationLink
	}

	return acc, nil
}
