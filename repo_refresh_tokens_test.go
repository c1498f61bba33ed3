package auth_test

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcwell/go-auth"
)

func TestRefreshTokensUpsert(t *testing.T) {
	db := setupTestDB(t)
	accounts := auth.NewAccountsRepository(db)
	repo := auth.NewRefreshTokensRepository(db)
	ctx := context.Background()

	account := seedAccount(t, accounts, "admin", auth.AccountStatusActive, 0, 3)

	t.Run("creates the first record", func(t *testing.T) {
		record, err := repo.Upsert(ctx, account.ID, "token-one", time.Now().Add(10*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, account.ID, record.AccountID)

		found, err := repo.GetByToken(ctx, "token-one")
		require.NoError(t, err)
		assert.Equal(t, account.ID, found.AccountID)
	})

	t.Run("a second login replaces the record in place", func(t *testing.T) {
		_, err := repo.Upsert(ctx, account.ID, "token-two", time.Now().Add(10*time.Minute))
		require.NoError(t, err)

		// old token is gone, exactly one record remains for the account
		_, err = repo.GetByToken(ctx, "token-one")
		assert.Error(t, err)

		count, err := db.NewSelect().
			Model((*auth.RefreshToken)(nil)).
			Where(`?TableAlias."account_id" = ?`, account.ID).
			Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestRefreshTokensGetByToken(t *testing.T) {
	db := setupTestDB(t)
	accounts := auth.NewAccountsRepository(db)
	repo := auth.NewRefreshTokensRepository(db)
	ctx := context.Background()

	account := seedAccount(t, accounts, "admin", auth.AccountStatusActive, 0, 3)
	_, err := repo.Upsert(ctx, account.ID, "token-one", time.Now().Add(10*time.Minute))
	require.NoError(t, err)

	t.Run("loads the owning account", func(t *testing.T) {
		record, err := repo.GetByToken(ctx, "token-one")
		require.NoError(t, err)
		require.NotNil(t, record.Account)
		assert.Equal(t, "admin", record.Account.Username)
	})

	t.Run("unknown tokens read as not found", func(t *testing.T) {
		record, err := repo.GetByToken(ctx, "never-issued")
		assert.Nil(t, record)
		assert.Error(t, err)
	})
}

func TestRefreshTokensVerifyNotExpired(t *testing.T) {
	db := setupTestDB(t)
	accounts := auth.NewAccountsRepository(db)
	ctx := context.Background()

	account := seedAccount(t, accounts, "admin", auth.AccountStatusActive, 0, 3)

	t.Run("live records pass", func(t *testing.T) {
		repo := auth.NewRefreshTokensRepository(db)
		record, err := repo.Upsert(ctx, account.ID, "token-live", time.Now().Add(10*time.Minute))
		require.NoError(t, err)

		assert.NoError(t, repo.VerifyNotExpired(ctx, record))
	})

	t.Run("expired records fail and are purged", func(t *testing.T) {
		clock := time.Now
		repo := auth.NewRefreshTokensRepository(db, auth.WithRefreshTokensClock(func() time.Time {
			return clock().Add(time.Hour)
		}))

		record, err := repo.Upsert(ctx, account.ID, "token-stale", time.Now().Add(10*time.Minute))
		require.NoError(t, err)

		err = repo.VerifyNotExpired(ctx, record)
		assert.ErrorIs(t, err, auth.ErrRefreshTokenExpired)

		_, err = repo.GetByToken(ctx, "token-stale")
		assert.Error(t, err, "expired record must be deleted on verification")
	})

	t.Run("expiry metadata stays off the shared sentinel", func(t *testing.T) {
		bob := seedAccount(t, accounts, "bob", auth.AccountStatusActive, 0, 3)

		clock := time.Now
		repo := auth.NewRefreshTokensRepository(db, auth.WithRefreshTokensClock(func() time.Time {
			return clock().Add(time.Hour)
		}))

		adminRecord, err := repo.Upsert(ctx, account.ID, "token-admin-stale", time.Now().Add(10*time.Minute))
		require.NoError(t, err)
		bobRecord, err := repo.Upsert(ctx, bob.ID, "token-bob-stale", time.Now().Add(10*time.Minute))
		require.NoError(t, err)

		adminErr := repo.VerifyNotExpired(ctx, adminRecord)
		bobErr := repo.VerifyNotExpired(ctx, bobRecord)

		var rich *goerrors.Error
		require.ErrorAs(t, adminErr, &rich)
		assert.Equal(t, account.ID.String(), rich.Metadata["account_id"])

		require.ErrorAs(t, bobErr, &rich)
		assert.Equal(t, bob.ID.String(), rich.Metadata["account_id"])

		assert.Empty(t, auth.ErrRefreshTokenExpired.Metadata, "sentinel must not accumulate per request metadata")
	})

	t.Run("nil records read as invalid", func(t *testing.T) {
		repo := auth.NewRefreshTokensRepository(db)
		assert.ErrorIs(t, repo.VerifyNotExpired(ctx, nil), auth.ErrTokenInvalid)
	})
}

func TestRefreshTokensDelete(t *testing.T) {
	db := setupTestDB(t)
	accounts := auth.NewAccountsRepository(db)
	repo := auth.NewRefreshTokensRepository(db)
	ctx := context.Background()

	admin := seedAccount(t, accounts, "admin", auth.AccountStatusActive, 0, 3)
	bob := seedAccount(t, accounts, "bob", auth.AccountStatusActive, 0, 3)

	_, err := repo.Upsert(ctx, admin.ID, "token-admin", time.Now().Add(10*time.Minute))
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, bob.ID, "token-bob", time.Now().Add(10*time.Minute))
	require.NoError(t, err)

	t.Run("DeleteByToken removes a single record", func(t *testing.T) {
		require.NoError(t, repo.DeleteByToken(ctx, "token-admin"))

		_, err := repo.GetByToken(ctx, "token-admin")
		assert.Error(t, err)

		_, err = repo.GetByToken(ctx, "token-bob")
		assert.NoError(t, err)

		// idempotent
		assert.NoError(t, repo.DeleteByToken(ctx, "token-admin"))
	})

	t.Run("DeleteAllForAccounts bulk revokes", func(t *testing.T) {
		_, err := repo.Upsert(ctx, admin.ID, "token-admin", time.Now().Add(10*time.Minute))
		require.NoError(t, err)

		require.NoError(t, repo.DeleteAllForAccounts(ctx, []uuid.UUID{admin.ID, bob.ID}))

		count, err := db.NewSelect().Model((*auth.RefreshToken)(nil)).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("DeleteAllForAccounts with no ids is a no-op", func(t *testing.T) {
		assert.NoError(t, repo.DeleteAllForAccounts(ctx, nil))
	})
}
