package account

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProfileMode selects how SaveProfile treats an existing record
type ProfileMode string

const (
	ProfileCreate  ProfileMode = "create"
	ProfileReplace ProfileMode = "replace"
)

// ProfileFields are the user editable profile attributes
type ProfileFields struct {
	Mobile   string `json:"mobile"`
	Location string `json:"location"`
	DOB      string `json:"dob"`
	Bio      string `json:"bio"`
	Gender   Gender `json:"gender"`
	Avatar   string `json:"avatar"`
}

func (f ProfileFields) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Mobile, MobileRules()...),
		validation.Field(&f.Location, validation.Length(0, 30)),
		validation.Field(&f.DOB, validation.Date("2006-01-02").Error(msgInvalidDOB)),
		validation.Field(&f.Bio, validation.Length(0, 500)),
		validation.Field(&f.Gender, validation.In(GenderMale, GenderFemale).Error(msgInvalidGender)),
		validation.Field(&f.Avatar, validation.Length(0, 255)),
	)
}

func (f ProfileFields) normalize() ProfileFields {
	f.Mobile = strings.TrimSpace(f.Mobile)
	f.Location = strings.TrimSpace(f.Location)
	f.DOB = strings.TrimSpace(f.DOB)
	f.Gender = Gender(strings.ToUpper(strings.TrimSpace(string(f.Gender))))
	f.Avatar = strings.TrimSpace(f.Avatar)
	return f
}

func (f ProfileFields) apply(p *Profile) error {
	e164, err := FormatMobileE164(f.Mobile)
	if err != nil {
		return err
	}

	p.Mobile = f.Mobile
	p.MobileE164 = e164
	p.Location = f.Location
	p.DOB = f.DOB
	p.Bio = f.Bio
	p.Gender = f.Gender
	p.Avatar = f.Avatar
	return nil
}

type SaveProfileMessage struct {
	AccountID  uuid.UUID
	Mode       ProfileMode
	Fields     ProfileFields
	OnResponse func(p *Profile)
}

func (e SaveProfileMessage) Type() string { return "profile.save" }

type SaveProfileHandler struct {
	lc *Lifecycle
}

func NewSaveProfileHandler(lc *Lifecycle) *SaveProfileHandler {
	return &SaveProfileHandler{lc: lc}
}

func (h *SaveProfileHandler) Execute(ctx context.Context, event SaveProfileMessage) error {
	return guard(ctx, "profile save", func(ctx context.Context) error {
		return h.execute(ctx, event)
	})
}

func (h *SaveProfileHandler) execute(ctx context.Context, event SaveProfileMessage) error {
	fields := event.Fields.normalize()
	if err := fields.Validate(); err != nil {
		return NewValidationError(err, "invalid profile")
	}

	var saved *Profile
	err := h.lc.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := h.lc.repo.Profiles().GetByAccountIDTx(ctx, tx, event.AccountID)
		if err != nil && !isNotFound(err) {
			return err
		}

		switch event.Mode {
		case ProfileCreate:
			if existing != nil {
				return ErrProfileExists
			}
			p := &Profile{AccountID: event.AccountID}
			if err := fields.apply(p); err != nil {
				return err
			}
			saved, err = h.lc.repo.Profiles().CreateTx(ctx, tx, p)
			return err
		case ProfileReplace:
			if existing == nil {
				return ErrProfileNotFound
			}
			if err := fields.apply(existing); err != nil {
				return err
			}
			saved, err = h.lc.repo.Profiles().UpdateTx(ctx, tx, existing)
			return err
		default:
			return goerrors.New("unknown profile mode: "+string(event.Mode), goerrors.CategoryBadInput).
				WithCode(goerrors.CodeBadRequest)
		}
	})

	if err != nil {
		return richError(err, "profile save transaction failed")
	}

	h.lc.events.record(ctx, ActivityEvent{
		EventType: ActivityEventProfileChanged,
		Actor:     ActorRef{ID: event.AccountID.String(), Type: ActorTypeAccount},
		AccountID: event.AccountID.String(),
		Metadata:  map[string]any{"mode": string(event.Mode)},
	})

	if event.OnResponse != nil {
		event.OnResponse(saved)
	}

	return nil
}

type DeleteProfileMessage struct {
	AccountID uuid.UUID
}

func (e DeleteProfileMessage) Type() string { return "profile.delete" }

type DeleteProfileHandler struct {
	lc *Lifecycle
}

func NewDeleteProfileHandler(lc *Lifecycle) *DeleteProfileHandler {
	return &DeleteProfileHandler{lc: lc}
}

func (h *DeleteProfileHandler) Execute(ctx context.Context, event DeleteProfileMessage) error {
	return guard(ctx, "profile deletion", func(ctx context.Context) error {
		return h.execute(ctx, event)
	})
}

func (h *DeleteProfileHandler) execute(ctx context.Context, event DeleteProfileMessage) error {
	err := h.lc.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		deleted, err := h.lc.repo.Profiles().DeleteByAccountIDTx(ctx, tx, event.AccountID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrProfileNotFound
		}
		return nil
	})

	if err != nil {
		return richError(err, "profile deletion transaction failed")
	}

	h.lc.events.record(ctx, ActivityEvent{
		EventType: ActivityEventProfileDeleted,
		Actor:     ActorRef{ID: event.AccountID.String(), Type: ActorTypeAccount},
		AccountID: event.AccountID.String(),
	})

	return nil
}

// GetProfile returns the profile of accountID or ErrProfileNotFound
func (l *Lifecycle) GetProfile(ctx context.Context, accountID uuid.UUID) (*Profile, error) {
	p, err := l.repo.Profiles().GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, richError(err, "failed to load profile")
	}
	return p, nil
}
