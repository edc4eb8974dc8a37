package repository

import (
	"context"
	"time"

	"github.com/Gideon-Phiri/secure-auth-service/internal/domain"
)

// AccountRepository exposes persistence for user accounts.
//
// Lockout counters are written only through CompareAndUpdateLockout and
// ResetLockout. The versioned update serializes concurrent lockout writes at
// the storage layer, which keeps counting correct when several service
// instances record failures for the same account at once.
type AccountRepository interface {
	GetByID(ctx context.Context, id int64) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	Create(ctx context.Context, account domain.Account) (domain.Account, error)
	// Update persists profile fields (email, password hash, verification and
	// status flags) and bumps the account version.
	Update(ctx context.Context, account domain.Account) (domain.Account, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, offset, limit int) ([]domain.Account, error)

	// CompareAndUpdateLockout writes failed_attempts and locked_until only if
	// the stored version still matches expectedVersion; otherwise it returns
	// domain.ErrConflict and the caller re-reads and retries.
	CompareAndUpdateLockout(ctx context.Context, id, expectedVersion int64, failedAttempts int, lockedUntil *time.Time) error
	// ResetLockout zeroes failed_attempts and clears any lock unconditionally.
	ResetLockout(ctx context.Context, id int64) error

	// CountSuperusers supports the last-admin guards on deactivate/delete.
	CountSuperusers(ctx context.Context, activeOnly bool) (int, error)
}
