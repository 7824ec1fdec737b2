package account

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterAccountMessage struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	OnResponse      func(resp *RegisterAccountResponse)
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

// Validate reports every invalid field at once
func (e RegisterAccountMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, EmailRules()...),
		validation.Field(&e.Password, PasswordRules(e.Email)...),
		validation.Field(
			&e.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(e.Password)),
		),
	)
}

type RegisterAccountResponse struct {
	Account *Account
	Profile *Profile
	Token   string
}

type RegisterAccountHandler struct {
	lc *Lifecycle
}

func NewRegisterAccountHandler(lc *Lifecycle) *RegisterAccountHandler {
	return &RegisterAccountHandler{lc: lc}
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	return guard(ctx, "account registration", func(ctx context.Context) error {
		return h.execute(ctx, event)
	})
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	event.Email = NormalizeEmail(event.Email)

	if err := h.validate(ctx, event); err != nil {
		return err
	}

	resp := &RegisterAccountResponse{}

	err := h.lc.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := h.lc.hasher.HashPassword(event.Password)
		if err != nil {
			return richError(err, "failed to hash password")
		}

		acc := &Account{
			Email:        event.Email,
			PasswordHash: hash,
			IsActive:     false,
			Role:         RoleUser,
		}

		if h.lc.cfg.GetDeterministicIDs() {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				acc.ID = id
			}
		}

		if resp.Account, err = h.lc.repo.Accounts().CreateTx(ctx, tx, acc); err != nil {
			return err
		}

		profile := &Profile{AccountID: resp.Account.ID}
		if resp.Profile, err = h.lc.repo.Profiles().CreateTx(ctx, tx, profile); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		return richError(err, "account registration transaction failed")
	}

	token, err := h.lc.codec.Issue(resp.Account, PurposeActivation)
	if err != nil {
		return richError(err, "failed to issue activation token")
	}
	resp.Token = token

	h.lc.dispatch(ctx, NotificationActivation, resp.Account, token)

	h.lc.events.record(ctx, ActivityEvent{
		EventType: ActivityEventAccountRegistered,
		Actor:     accountActor(resp.Account),
		AccountID: resp.Account.ID.String(),
		ToStatus:  StatusPending,
	})

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *RegisterAccountHandler) validate(ctx context.Context, event RegisterAccountMessage) error {
	errs := validation.Errors{}

	if err := event.Validate(); err != nil {
		var verrs validation.Errors
		if !errors.As(err, &verrs) {
			return NewValidationError(err, "invalid registration")
		}
		for k, v := range verrs {
			errs[k] = v
		}
	}

	if _, invalid := errs["email"]; !invalid {
		exists, err := h.lc.repo.Accounts().ExistsByEmail(ctx, event.Email)
		if err != nil {
			return richError(err, "failed to check email")
		}
		if exists {
			errs["email"] = errors.New(msgEmailTaken)
		}
	}

	if len(errs) > 0 {
		return NewValidationError(errs, "invalid registration")
	}

	return nil
}
