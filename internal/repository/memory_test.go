package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Gideon-Phiri/secure-auth-service/internal/domain"
	"github.com/Gideon-Phiri/secure-auth-service/internal/repository"
)

func TestMemoryRepoCreateAndLookup(t *testing.T) {
	repo := repository.NewMemoryAccountRepo()
	ctx := context.Background()

	created, err := repo.Create(ctx, domain.Account{ID: 1, Email: "a@example.com", IsActive: true})
	require.NoError(t, err)
	require.Equal(t, int64(1), created.Version)
	require.False(t, created.CreatedAt.IsZero())

	byID, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, created, byID)

	byEmail, err := repo.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.Equal(t, created, byEmail)

	_, err = repo.GetByID(ctx, 2)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.Create(ctx, domain.Account{ID: 2, Email: "a@example.com"})
	require.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestMemoryRepoUpdatePreservesLockoutState(t *testing.T) {
	repo := repository.NewMemoryAccountRepo()
	ctx := context.Background()

	until := time.Now().Add(10 * time.Minute)
	created, err := repo.Create(ctx, domain.Account{
		ID: 1, Email: "a@example.com", FailedAttempts: 3, LockedUntil: &until,
	})
	require.NoError(t, err)

	// Profile updates never touch the lockout columns, even when the caller
	// passes a stale zero value for them.
	created.Email = "b@example.com"
	created.FailedAttempts = 0
	created.LockedUntil = nil
	updated, err := repo.Update(ctx, created)
	require.NoError(t, err)
	require.Equal(t, "b@example.com", updated.Email)
	require.Equal(t, 3, updated.FailedAttempts)
	require.NotNil(t, updated.LockedUntil)
	require.Equal(t, int64(2), updated.Version)
}

func TestMemoryRepoLockoutCAS(t *testing.T) {
	repo := repository.NewMemoryAccountRepo()
	ctx := context.Background()

	created, err := repo.Create(ctx, domain.Account{ID: 1, Email: "a@example.com"})
	require.NoError(t, err)

	until := time.Now().Add(15 * time.Minute)
	require.NoError(t, repo.CompareAndUpdateLockout(ctx, 1, created.Version, 1, &until))

	// The stored version moved on, so a write against the old version loses.
	err = repo.CompareAndUpdateLockout(ctx, 1, created.Version, 2, &until)
	require.ErrorIs(t, err, domain.ErrConflict)

	stored, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, stored.FailedAttempts)

	require.NoError(t, repo.ResetLockout(ctx, 1))
	stored, err = repo.GetByID(ctx, 1)
	require.NoError(t, err)
	require.Zero(t, stored.FailedAttempts)
	require.Nil(t, stored.LockedUntil)
}

func TestMemoryRepoDeleteAndList(t *testing.T) {
	repo := repository.NewMemoryAccountRepo()
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		_, err := repo.Create(ctx, domain.Account{ID: i, Email: string(rune('a'+i)) + "@example.com"})
		require.NoError(t, err)
	}

	accounts, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	require.Equal(t, int64(1), accounts[0].ID)

	accounts, err = repo.List(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	require.NoError(t, repo.Delete(ctx, 2))
	require.ErrorIs(t, repo.Delete(ctx, 2), domain.ErrNotFound)

	_, err = repo.GetByEmail(ctx, string(rune('a'+2))+"@example.com")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
