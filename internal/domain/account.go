package domain

import "time"

// Account represents an end user that can authenticate against the service.
// FailedAttempts and LockedUntil carry the lockout state; Version guards
// lockout writes against concurrent updates (optimistic concurrency).
type Account struct {
	ID             int64
	Email          string
	PasswordHash   string
	EmailVerified  bool
	IsActive       bool
	IsSuperuser    bool
	FailedAttempts int
	LockedUntil    *time.Time
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Locked reports whether the account lock is still in force at the given time.
// An expired lock leaves FailedAttempts untouched: the next failure re-locks
// immediately. Only a successful authentication resets the counter.
func (a Account) Locked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}
