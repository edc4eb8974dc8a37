package lockout_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Gideon-Phiri/secure-auth-service/internal/domain"
	"github.com/Gideon-Phiri/secure-auth-service/internal/lockout"
	"github.com/Gideon-Phiri/secure-auth-service/internal/repository"
)

const (
	testThreshold = 5
	testDuration  = 15 * time.Minute
)

func seedAccount(t *testing.T, repo *repository.MemoryAccountRepo, account domain.Account) domain.Account {
	t.Helper()
	created, err := repo.Create(context.Background(), account)
	require.NoError(t, err)
	return created
}

func TestRecordFailureBelowThreshold(t *testing.T) {
	repo := repository.NewMemoryAccountRepo()
	policy := lockout.NewPolicy(repo, testThreshold, testDuration)
	ctx := context.Background()

	account := seedAccount(t, repo, domain.Account{ID: 1, Email: "a@example.com"})

	state, err := policy.RecordFailure(ctx, account)
	require.NoError(t, err)
	require.False(t, state.Locked)

	stored, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.FailedAttempts)
	require.Nil(t, stored.LockedUntil)
}

func TestThresholdFailureLocks(t *testing.T) {
	repo := repository.NewMemoryAccountRepo()
	policy := lockout.NewPolicy(repo, testThreshold, testDuration)
	ctx := context.Background()

	account := seedAccount(t, repo, domain.Account{ID: 1, Email: "a@example.com"})

	var state lockout.LockState
	for i := 0; i < testThreshold; i++ {
		current, err := repo.GetByID(ctx, account.ID)
		require.NoError(t, err)

		state, err = policy.RecordFailure(ctx, current)
		require.NoError(t, err)
	}

	require.True(t, state.Locked)
	require.WithinDuration(t, time.Now().Add(testDuration), state.Until, time.Minute)

	stored, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, testThreshold, stored.FailedAttempts)
	require.True(t, policy.CheckLocked(stored).Locked)
}

func TestExpiredLockKeepsCounter(t *testing.T) {
	repo := repository.NewMemoryAccountRepo()
	policy := lockout.NewPolicy(repo, testThreshold, testDuration)
	ctx := context.Background()

	expired := time.Now().Add(-time.Minute)
	account := seedAccount(t, repo, domain.Account{
		ID: 1, Email: "a@example.com",
		FailedAttempts: testThreshold, LockedUntil: &expired,
	})

	// The lock window has passed, so the account reads as unlocked.
	require.False(t, policy.CheckLocked(account).Locked)

	// But the counter survived: one more failure re-locks immediately.
	state, err := policy.RecordFailure(ctx, account)
	require.NoError(t, err)
	require.True(t, state.Locked)

	stored, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, testThreshold+1, stored.FailedAttempts)
	require.True(t, stored.Locked(time.Now()))
}

func TestRecordSuccessResets(t *testing.T) {
	repo := repository.NewMemoryAccountRepo()
	policy := lockout.NewPolicy(repo, testThreshold, testDuration)
	ctx := context.Background()

	until := time.Now().Add(-time.Second)
	account := seedAccount(t, repo, domain.Account{
		ID: 1, Email: "a@example.com",
		FailedAttempts: 3, LockedUntil: &until,
	})

	require.NoError(t, policy.RecordSuccess(ctx, account))

	stored, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	require.Zero(t, stored.FailedAttempts)
	require.Nil(t, stored.LockedUntil)
}

func TestRecordSuccessSkipsCleanAccount(t *testing.T) {
	repo := repository.NewMemoryAccountRepo()
	policy := lockout.NewPolicy(repo, testThreshold, testDuration)
	ctx := context.Background()

	account := seedAccount(t, repo, domain.Account{ID: 1, Email: "a@example.com"})
	before, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)

	require.NoError(t, policy.RecordSuccess(ctx, account))

	after, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, before.Version, after.Version)
}

// Concurrent failures race on the version column; the CAS retry loop must
// count every one of them.
func TestConcurrentFailuresAllCounted(t *testing.T) {
	repo := repository.NewMemoryAccountRepo()
	policy := lockout.NewPolicy(repo, 100, testDuration)
	ctx := context.Background()

	account := seedAccount(t, repo, domain.Account{ID: 1, Email: "a@example.com"})

	const workers = 4
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			current, err := repo.GetByID(ctx, account.ID)
			if err != nil {
				errs[i] = err
				return
			}
			_, errs[i] = policy.RecordFailure(ctx, current)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	stored, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, workers, stored.FailedAttempts)
}
