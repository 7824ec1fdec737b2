package account

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type RequestPasswordResetMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *RequestPasswordResetResponse)
}

func (e RequestPasswordResetMessage) Type() string { return "account.password_reset.request" }

func (e RequestPasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, EmailRules()...),
	)
}

type RequestPasswordResetResponse struct {
	Account *Account
	Token   string
}

type RequestPasswordResetHandler struct {
	lc *Lifecycle
}

func NewRequestPasswordResetHandler(lc *Lifecycle) *RequestPasswordResetHandler {
	return &RequestPasswordResetHandler{lc: lc}
}

func (h *RequestPasswordResetHandler) Execute(ctx context.Context, event RequestPasswordResetMessage) error {
	return guard(ctx, "password reset request", func(ctx context.Context) error {
		return h.execute(ctx, event)
	})
}

// execute tells the caller when the email is unknown, unlike login.
// The account existence leak is kept on purpose for clients that rely on it.
func (h *RequestPasswordResetHandler) execute(ctx context.Context, event RequestPasswordResetMessage) error {
	if err := event.Validate(); err != nil {
		return NewValidationError(err, "invalid password reset request")
	}

	acc, err := h.lc.repo.Accounts().GetByEmail(ctx, event.Email)
	if err != nil {
		if isNotFound(err) {
			return ErrNoSuchAccount
		}
		return richError(err, "failed to retrieve account for password reset")
	}

	token, err := h.lc.codec.Issue(acc, PurposePasswordReset)
	if err != nil {
		return richError(err, "failed to issue password reset token")
	}

	h.lc.dispatch(ctx, NotificationPasswordReset, acc, token)

	h.lc.events.record(ctx, ActivityEvent{
		EventType: ActivityEventPasswordResetRequest,
		Actor:     ActorRef{Type: ActorTypeSystem},
		AccountID: acc.ID.String(),
	})

	if event.OnResponse != nil {
		event.OnResponse(&RequestPasswordResetResponse{Account: acc, Token: token})
	}

	return nil
}
