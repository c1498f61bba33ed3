package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RefreshTokens persists at most one refresh token per account. The unique
// account_id constraint plus the conflict clause keep that invariant under
// concurrent logins; expired records are purged lazily on verification.
type RefreshTokens interface {
	Upsert(ctx context.Context, accountID uuid.UUID, token string, expiry time.Time) (*RefreshToken, error)
	UpsertTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID, token string, expiry time.Time) (*RefreshToken, error)
	GetByToken(ctx context.Context, token string) (*RefreshToken, error)
	VerifyNotExpired(ctx context.Context, record *RefreshToken) error
	DeleteByToken(ctx context.Context, token string) error
	DeleteAllForAccounts(ctx context.Context, accountIDs []uuid.UUID) error
}

type refreshTokens struct {
	repository.Repository[*RefreshToken]
	db  *bun.DB
	now func() time.Time
}

var _ RefreshTokens = (*refreshTokens)(nil)
var _ RefreshTokenRecorder = (*refreshTokens)(nil)

// RefreshTokensOption customizes the refresh token repository.
type RefreshTokensOption func(*refreshTokens)

// WithRefreshTokensClock injects a custom clock (useful for tests).
func WithRefreshTokensClock(clock func() time.Time) RefreshTokensOption {
	return func(r *refreshTokens) {
		if clock != nil {
			r.now = clock
		}
	}
}

func NewRefreshTokensRepository(db *bun.DB, opts ...RefreshTokensOption) RefreshTokens {
	repo := repository.NewRepository[*RefreshToken](db, repository.ModelHandlers[*RefreshToken]{
		NewRecord: func() *RefreshToken { return &RefreshToken{} },
		GetID: func(t *RefreshToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *RefreshToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	repoTokens := &refreshTokens{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoTokens)
		}
	}

	return repoTokens
}

func (r *refreshTokens) Upsert(ctx context.Context, accountID uuid.UUID, token string, expiry time.Time) (*RefreshToken, error) {
	return r.UpsertTx(ctx, r.db, accountID, token, expiry)
}

// UpsertTx overwrites token and expiry in place when a record exists for
// the account, otherwise it creates one. The conflict target is the unique
// account_id column, so the whole operation is a single statement.
func (r *refreshTokens) UpsertTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID, token string, expiry time.Time) (*RefreshToken, error) {
	now := r.now()
	record := &RefreshToken{
		ID:         uuid.New(),
		AccountID:  accountID,
		Token:      token,
		ExpiryDate: expiry,
		UpdatedAt:  &now,
	}

	_, err := tx.NewInsert().
		Model(record).
		On(`CONFLICT ("account_id") DO UPDATE`).
		Set(`"token" = EXCLUDED."token"`).
		Set(`"expiry_date" = EXCLUDED."expiry_date"`).
		Set(`"updated_at" = EXCLUDED."updated_at"`).
		Exec(ctx)

	if err != nil {
		return nil, err
	}

	return record, nil
}

func (r *refreshTokens) GetByToken(ctx context.Context, token string) (*RefreshToken, error) {
	record := &RefreshToken{}

	err := r.db.NewSelect().
		Model(record).
		Relation("Account").
		Where(`?TableAlias."token" = ?`, token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}

	return record, nil
}

// VerifyNotExpired fails with ErrRefreshTokenExpired when the record is
// past its expiry, deleting it in the same call. Expired tokens are only
// ever purged here, on first verification, not proactively.
func (r *refreshTokens) VerifyNotExpired(ctx context.Context, record *RefreshToken) error {
	if record == nil {
		return ErrTokenInvalid
	}

	if !record.Expired(r.now()) {
		return nil
	}

	if err := r.DeleteByToken(ctx, record.Token); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to purge expired refresh token")
	}

	clone := ErrRefreshTokenExpired.Clone()
	if clone == nil {
		return ErrRefreshTokenExpired
	}
	clone.Source = ErrRefreshTokenExpired
	return clone.WithMetadata(map[string]any{
		"account_id": record.AccountID.String(),
	})
}

func (r *refreshTokens) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.db.NewDelete().
		Model((*RefreshToken)(nil)).
		Where(`?TableAlias."token" = ?`, token).
		Exec(ctx)

	return err
}

// DeleteAllForAccounts bulk revokes refresh tokens, used by account
// deactivation flows.
func (r *refreshTokens) DeleteAllForAccounts(ctx context.Context, accountIDs []uuid.UUID) error {
	if len(accountIDs) == 0 {
		return nil
	}

	_, err := r.db.NewDelete().
		Model((*RefreshToken)(nil)).
		Where(`?TableAlias."account_id" IN (?)`, bun.In(accountIDs)).
		Exec(ctx)

	return err
}
