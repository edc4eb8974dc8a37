package lockout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gideon-Phiri/secure-auth-service/internal/domain"
	"github.com/Gideon-Phiri/secure-auth-service/internal/repository"
)

// maxCASRetries bounds the retry loop when concurrent failures race on the
// same account. Each retry re-reads the row, so every attempt is counted.
const maxCASRetries = 8

// LockState is the outcome of a lockout decision.
type LockState struct {
	Locked bool
	Until  time.Time
}

// Policy tracks consecutive failed logins per account and computes lock
// windows. All state lives in the account row; serialization across service
// instances comes from the repository's versioned update, never from an
// in-process mutex.
type Policy struct {
	repo      repository.AccountRepository
	threshold int
	duration  time.Duration
	now       func() time.Time
}

// NewPolicy constructs a lockout policy. threshold is the number of
// consecutive failures that trigger a lock of the given duration.
func NewPolicy(repo repository.AccountRepository, threshold int, duration time.Duration) *Policy {
	return &Policy{repo: repo, threshold: threshold, duration: duration, now: time.Now}
}

// CheckLocked evaluates the account's lock state. It is called before any
// hashing work so locked accounts never pay credential-verification cost.
// An expired lock reads as unlocked, but the failure counter keeps its value
// until the next successful authentication.
func (p *Policy) CheckLocked(account domain.Account) LockState {
	if account.Locked(p.now()) {
		return LockState{Locked: true, Until: *account.LockedUntil}
	}
	return LockState{}
}

// RecordFailure increments the account's failure counter and, at or beyond
// the threshold, sets a fresh lock window. The counter is never reset here:
// once past the threshold, every further failure re-locks immediately.
func (p *Policy) RecordFailure(ctx context.Context, account domain.Account) (LockState, error) {
	for attempt := 0; attempt < maxCASRetries; attempt++ {
		failures := account.FailedAttempts + 1
		lockedUntil := account.LockedUntil
		state := LockState{}
		if failures >= p.threshold {
			until := p.now().Add(p.duration)
			lockedUntil = &until
			state = LockState{Locked: true, Until: until}
		}

		err := p.repo.CompareAndUpdateLockout(ctx, account.ID, account.Version, failures, lockedUntil)
		if err == nil {
			return state, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return LockState{}, fmt.Errorf("record failure: %w", err)
		}

		account, err = p.repo.GetByID(ctx, account.ID)
		if err != nil {
			return LockState{}, fmt.Errorf("reload account: %w", err)
		}
	}
	return LockState{}, fmt.Errorf("record failure: contention on account %d", account.ID)
}

// RecordSuccess resets the failure counter and clears any lock.
func (p *Policy) RecordSuccess(ctx context.Context, account domain.Account) error {
	if account.FailedAttempts == 0 && account.LockedUntil == nil {
		return nil
	}
	if err := p.repo.ResetLockout(ctx, account.ID); err != nil {
		return fmt.Errorf("record success: %w", err)
	}
	return nil
}
