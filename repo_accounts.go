package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RecordLoginAttemptSQL bumps the attempt counter and applies the lockout
// transition in one statement. The increment, the threshold comparison,
// and the status write all happen inside the database, so two concurrent
// failed logins can never undercount each other.
var RecordLoginAttemptSQL = `UPDATE "accounts" AS "acc"
SET
	"login_attempt" = "login_attempt" + 1,
	"status" = CASE WHEN "login_attempt" + 1 > "max_attempt" THEN 'BLOCKED' ELSE "status" END,
	"updated_at" = ?
WHERE
	"acc"."username" = ?
AND "acc"."status" = 'ACTIVE';`

// ResetLoginAttemptsSQL zeroes the counter after a successful login.
var ResetLoginAttemptsSQL = `UPDATE "accounts" AS "acc"
SET
	"login_attempt" = 0,
	"last_login_at" = ?,
	"updated_at" = ?
WHERE
	"acc"."username" = ?
AND "acc"."status" = 'ACTIVE';`

// Accounts is the account repository. It doubles as the DirectoryStore and
// LockoutTracker implementations consumed by the authentication flows.
type Accounts interface {
	repository.Repository[*Account]

	FindActiveByUsername(ctx context.Context, username string) (*Account, error)
	FindActiveByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*Account, error)
	FindByUsernameOrStatus(ctx context.Context, username string, status AccountStatus) ([]*Account, error)
	Save(ctx context.Context, account *Account) (*Account, error)

	RecordLoginAttempt(ctx context.Context, username string) error
	RecordLoginAttemptTx(ctx context.Context, tx bun.IDB, username string) error
	ResetLoginAttempts(ctx context.Context, username string) error
	ResetLoginAttemptsTx(ctx context.Context, tx bun.IDB, username string) error

	UpdateStatus(ctx context.Context, id uuid.UUID, status AccountStatus) (*Account, error)
}

type accounts struct {
	repository.Repository[*Account]
	db  *bun.DB
	now func() time.Time
}

var (
	_ Accounts       = (*accounts)(nil)
	_ DirectoryStore = (*accounts)(nil)
	_ LockoutTracker = (*accounts)(nil)
)

// AccountsOption customizes the accounts repository.
type AccountsOption func(*accounts)

// WithAccountsClock injects a custom clock (useful for tests).
func WithAccountsClock(clock func() time.Time) AccountsOption {
	return func(a *accounts) {
		if clock != nil {
			a.now = clock
		}
	}
}

func NewAccountsRepository(db *bun.DB, opts ...AccountsOption) Accounts {
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
			return "username"
		},
	})

	repoAccounts := &accounts{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoAccounts)
		}
	}

	return repoAccounts
}

func (a *accounts) FindActiveByUsername(ctx context.Context, username string) (*Account, error) {
	return a.FindActiveByUsernameTx(ctx, a.db, username)
}

func (a *accounts) FindActiveByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*Account, error) {
	record := &Account{}

	err := tx.NewSelect().
		Model(record).
		Where(`?TableAlias."username" = ?`, username).
		Where(`?TableAlias."status" = ?`, AccountStatusActive).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"username": username,
				})
		}
		return nil, err
	}

	record.EnsureDefaults()

	return record, nil
}

func (a *accounts) FindByUsernameOrStatus(ctx context.Context, username string, status AccountStatus) ([]*Account, error) {
	records := []*Account{}

	err := a.db.NewSelect().
		Model(&records).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where(`?TableAlias."username" = ?`, username).
				WhereOr(`?TableAlias."status" = ?`, status)
		}).
		Order("username ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	for _, record := range records {
		record.EnsureDefaults()
	}

	return records, nil
}

func (a *accounts) Save(ctx context.Context, account *Account) (*Account, error) {
	prepareAccountDefaults(account)

	existing, err := a.Repository.GetByIdentifierTx(ctx, a.db, account.ID.String())
	if err == nil && existing != nil {
		return a.Repository.UpdateTx(ctx, a.db, account, repository.UpdateByID(account.ID.String()))
	}

	if err != nil && !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return a.Repository.CreateTx(ctx, a.db, account)
}

func (a *accounts) RecordLoginAttempt(ctx context.Context, username string) error {
	return a.RecordLoginAttemptTx(ctx, a.db, username)
}

func (a *accounts) RecordLoginAttemptTx(ctx context.Context, tx bun.IDB, username string) error {
	// NOTE: kept as raw SQL on purpose, the ORM would read-modify-write
	// across two calls and lose concurrent increments.
	_, err := tx.NewRaw(RecordLoginAttemptSQL, a.now(), username).Exec(ctx)
	return err
}

func (a *accounts) ResetLoginAttempts(ctx context.Context, username string) error {
	return a.ResetLoginAttemptsTx(ctx, a.db, username)
}

func (a *accounts) ResetLoginAttemptsTx(ctx context.Context, tx bun.IDB, username string) error {
	now := a.now()
	_, err := tx.NewRaw(ResetLoginAttemptsSQL, now, now, username).Exec(ctx)
	return err
}

// UpdateStatus is the administrative escape hatch that unblocks an account.
// It also clears the counter so a reinstated account starts clean. The
// column list is explicit so the zeroed counter is actually written.
func (a *accounts) UpdateStatus(ctx context.Context, id uuid.UUID, status AccountStatus) (*Account, error) {
	now := a.now()
	record := &Account{
		ID:           id,
		Status:       status,
		LoginAttempt: 0,
		UpdatedAt:    &now,
	}

	_, err := a.db.NewUpdate().
		Model(record).
		Column("status", "login_attempt", "updated_at").
		Where(`?TableAlias."id" = ?`, id).
		Exec(ctx)

	if err != nil {
		return nil, err
	}

	return record, nil
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	record.EnsureDefaults()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
