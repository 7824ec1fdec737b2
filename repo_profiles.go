package account

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Profiles stores the one-to-one profile of each account
type Profiles interface {
	repository.Repository[*Profile]

	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*Profile, error)
	GetByAccountIDTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (*Profile, error)
	DeleteByAccountIDTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (bool, error)
}

// profileColumns are written on every update, empty values included
var profileColumns = []string{
	"mobile",
	"mobile_e164",
	"location",
	"dob",
	"bio",
	"gender",
	"avatar",
	"updated_at",
}

type profiles struct {
	repository.Repository[*Profile]
	db    *bun.DB
	clock Clock
}

var (
	_ Profiles                        = (*profiles)(nil)
	_ repository.Repository[*Profile] = (*profiles)(nil)
)

// NewProfilesRepository creates the bun backed profile store
func NewProfilesRepository(db *bun.DB, clock Clock) Profiles {
	repo := repository.NewRepository[*Profile](db, repository.ModelHandlers[*Profile]{
		NewRecord: func() *Profile { return &Profile{} },
		GetID: func(p *Profile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Profile, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "account_id"
		},
	})

	return &profiles{
		Repository: repo,
		db:         db,
		clock:      normalizeClock(clock),
	}
}

func (r *profiles) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*Profile, error) {
	return r.GetByAccountIDTx(ctx, r.db, accountID)
}

// GetByAccountIDTx selects by column, GetByIdentifier would treat the
// uuid as a primary key.
func (r *profiles) GetByAccountIDTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (*Profile, error) {
	p, err := r.Repository.GetTx(ctx, tx,
		repository.SelectBy("account_id", "=", accountID.String()),
	)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrProfileNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load profile")
	}
	return p, nil
}

func (r *profiles) Create(ctx context.Context, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *profiles) CreateTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error) {
	now := r.clock().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	p, err := r.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrProfileExists
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert profile")
	}
	return p, nil
}

func (r *profiles) Update(ctx context.Context, record *Profile, criteria ...repository.UpdateCriteria) (*Profile, error) {
	return r.UpdateTx(ctx, r.db, record, criteria...)
}

// UpdateTx writes profileColumns by account id. The generic update
// omits zero values, which would make clearing a field impossible.
func (r *profiles) UpdateTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.UpdateCriteria) (*Profile, error) {
	record.UpdatedAt = r.clock().UTC()

	q := tx.NewUpdate().
		Model(record).
		Column(profileColumns...).
		Where("account_id = ?", record.AccountID)

	for _, c := range criteria {
		q.Apply(c)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update profile")
	}

	if err := repository.SQLExpectedCount(res, 1); err != nil {
		if repository.IsSQLExpectedCountViolation(err) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return record, nil
}

func (r *profiles) DeleteByAccountIDTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (bool, error) {
	total, err := r.Repository.CountTx(ctx, tx,
		repository.SelectBy("account_id", "=", accountID.String()),
	)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete profile")
	}
	if total == 0 {
		return false, nil
	}

	err = r.Repository.DeleteWhereTx(ctx, tx,
		repository.DeleteBy("account_id", "=", accountID.String()),
	)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete profile")
	}
	return true, nil
}
