package account

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var TrackAttemptedLoginSQL = `UPDATE "accounts" AS "acc"
SET
	"login_attempts" = "login_attempts" + 1,
	"login_attempt_at" = ?
WHERE
	"acc"."id" = ?
RETURNING *;`

var TrackSuccessfulLoginSQL = `UPDATE "accounts" AS "acc"
SET
	"login_attempts" = 0,
	"login_attempt_at" = NULL,
	"last_login_at" = ?
WHERE
	"acc"."id" = ?
RETURNING *;`

// Accounts is the credential store
type Accounts interface {
	repository.Repository[*Account]
	AccountLookup

	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByEmailTx(ctx context.Context, tx bun.IDB, email string) (bool, error)

	ActivateTx(ctx context.Context, tx bun.IDB, acc *Account) (bool, error)
	UpdatePasswordTx(ctx context.Context, tx bun.IDB, acc *Account, hash string) error
	UpdateEmailTx(ctx context.Context, tx bun.IDB, acc *Account, email string) error
	DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	TrackAttemptedLogin(ctx context.Context, acc *Account) error
	TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, acc *Account) error
	TrackSuccessfulLogin(ctx context.Context, acc *Account) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, acc *Account) error
}

type accounts struct {
	repository.Repository[*Account]
	db    *bun.DB
	clock Clock
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

// NewAccountsRepository creates the bun backed credential store
func NewAccountsRepository(db *bun.DB, clock Clock) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
		clock:      normalizeClock(clock),
	}
}

func (r *accounts) now() time.Time {
	return r.clock().UTC()
}

func (r *accounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return r.GetByEmailTx(ctx, r.db, email)
}

func (r *accounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	acc, err := r.Repository.GetByIdentifierTx(ctx, tx, NormalizeEmail(email))
	if err != nil {
		return nil, mapAccountErr(err, "failed to load account by email")
	}
	return acc, nil
}

func (r *accounts) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.ExistsByEmailTx(ctx, r.db, email)
}

func (r *accounts) ExistsByEmailTx(ctx context.Context, tx bun.IDB, email string) (bool, error) {
	total, err := r.Repository.CountTx(ctx, tx,
		repository.SelectBy("email", "=", NormalizeEmail(email)),
	)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email")
	}
	return total > 0, nil
}

func (r *accounts) Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	r.prepareDefaults(record)

	acc, err := r.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errEmailTaken("invalid registration")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert account")
	}
	return acc, nil
}

func (r *accounts) prepareDefaults(acc *Account) {
	now := r.now()
	if acc.Role == "" {
		acc.Role = RoleUser
	}
	acc.Email = NormalizeEmail(acc.Email)
	acc.CreatedAt = now
	acc.UpdatedAt = now
}

// ActivateTx flips is_active only when it is still false so concurrent
// activations converge. It reports whether this call changed the row.
func (r *accounts) ActivateTx(ctx context.Context, tx bun.IDB, acc *Account) (bool, error) {
	now := r.now()
	update := &Account{ID: acc.ID, IsActive: true, UpdatedAt: now}

	res, err := tx.NewUpdate().
		Model(update).
		Column("is_active", "updated_at").
		WherePK().
		Where("is_active = ?", false).
		Exec(ctx)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate account")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate account")
	}

	acc.IsActive = true
	if n > 0 {
		acc.UpdatedAt = now
	}
	return n > 0, nil
}

func (r *accounts) UpdatePasswordTx(ctx context.Context, tx bun.IDB, acc *Account, hash string) error {
	acc.PasswordHash = hash
	acc.UpdatedAt = r.now()

	return r.updateColumns(ctx, tx, acc, "password_hash", "updated_at")
}

func (r *accounts) UpdateEmailTx(ctx context.Context, tx bun.IDB, acc *Account, email string) error {
	acc.Email = NormalizeEmail(email)
	acc.UpdatedAt = r.now()

	return r.updateColumns(ctx, tx, acc, "email", "updated_at")
}

func (r *accounts) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	acc, err := r.Repository.GetByIDTx(ctx, tx, id.String())
	if err != nil {
		return mapAccountErr(err, "failed to load account")
	}

	if err := r.Repository.DeleteTx(ctx, tx, acc); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete account")
	}
	return nil
}

func (r *accounts) TrackAttemptedLogin(ctx context.Context, acc *Account) error {
	return r.TrackAttemptedLoginTx(ctx, r.db, acc)
}

func (r *accounts) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, acc *Account) error {
	now := r.now()
	if err := r.track(ctx, tx, TrackAttemptedLoginSQL, now, acc.ID); err != nil {
		return err
	}

	acc.LoginAttempts++
	acc.LoginAttemptAt = &now
	return nil
}

func (r *accounts) TrackSuccessfulLogin(ctx context.Context, acc *Account) error {
	return r.TrackSuccessfulLoginTx(ctx, r.db, acc)
}

// TrackSuccessfulLoginTx uses raw SQL, an ORM update skips the zero
// values needed to clear the attempt counter.
func (r *accounts) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, acc *Account) error {
	now := r.now()
	if err := r.track(ctx, tx, TrackSuccessfulLoginSQL, now, acc.ID); err != nil {
		return err
	}

	acc.LoginAttempts = 0
	acc.LoginAttemptAt = nil
	acc.LastLoginAt = &now
	return nil
}

func (r *accounts) track(ctx context.Context, tx bun.IDB, query string, at time.Time, id uuid.UUID) error {
	res, err := r.Repository.RawTx(ctx, tx, query, at, id.String())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to track login")
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}
	return nil
}

func (r *accounts) updateColumns(ctx context.Context, tx bun.IDB, acc *Account, columns ...string) error {
	res, err := tx.NewUpdate().
		Model(acc).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return errEmailTaken("invalid account update")
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update account")
	}

	if err := repository.SQLExpectedCount(res, 1); err != nil {
		if repository.IsSQLExpectedCountViolation(err) {
			return ErrAccountNotFound
		}
		return err
	}
	return nil
}

// loadAccountTx loads id, a missing row is reported as ErrAccountNotFound
func loadAccountTx(ctx context.Context, accounts Accounts, tx bun.IDB, id uuid.UUID) (*Account, error) {
	acc, err := accounts.GetByIDTx(ctx, tx, id.String())
	if err != nil {
		return nil, mapAccountErr(err, "failed to load account")
	}
	return acc, nil
}

func errEmailTaken(message string) error {
	return goerrors.NewValidation(message, goerrors.FieldError{
		Field:   "email",
		Message: msgEmailTaken,
	}).WithTextCode(TextCodeEmailTaken).WithCode(goerrors.CodeBadRequest)
}

func mapAccountErr(err error, msg string) error {
	if repository.IsRecordNotFound(err) {
		return ErrAccountNotFound
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if repository.IsDuplicatedKey(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}
