package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Gideon-Phiri/secure-auth-service/internal/domain"
)

var _ AccountRepository = (*MemoryAccountRepo)(nil)

// MemoryAccountRepo implements AccountRepository in process memory. It mirrors
// the Postgres implementation's semantics, including the versioned lockout
// update, and backs the service-layer tests.
type MemoryAccountRepo struct {
	mu       sync.Mutex
	accounts map[int64]domain.Account
	byEmail  map[string]int64
}

// NewMemoryAccountRepo constructs an empty repository.
func NewMemoryAccountRepo() *MemoryAccountRepo {
	return &MemoryAccountRepo{
		accounts: make(map[int64]domain.Account),
		byEmail:  make(map[string]int64),
	}
}

func (r *MemoryAccountRepo) GetByID(_ context.Context, id int64) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return account, nil
}

func (r *MemoryAccountRepo) GetByEmail(_ context.Context, email string) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[email]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return r.accounts[id], nil
}

func (r *MemoryAccountRepo) Create(_ context.Context, account domain.Account) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[account.Email]; exists {
		return domain.Account{}, domain.ErrDuplicateEmail
	}
	now := time.Now().UTC()
	account.Version = 1
	account.CreatedAt = now
	account.UpdatedAt = now
	r.accounts[account.ID] = account
	r.byEmail[account.Email] = account.ID
	return account, nil
}

// Update persists profile fields only; lockout state keeps the stored values,
// matching the SQL implementation's column list.
func (r *MemoryAccountRepo) Update(_ context.Context, account domain.Account) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[account.ID]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	if account.Email != stored.Email {
		if _, exists := r.byEmail[account.Email]; exists {
			return domain.Account{}, domain.ErrDuplicateEmail
		}
		delete(r.byEmail, stored.Email)
		r.byEmail[account.Email] = account.ID
	}
	stored.Email = account.Email
	stored.PasswordHash = account.PasswordHash
	stored.EmailVerified = account.EmailVerified
	stored.IsActive = account.IsActive
	stored.IsSuperuser = account.IsSuperuser
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	r.accounts[account.ID] = stored
	return stored, nil
}

func (r *MemoryAccountRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(r.byEmail, stored.Email)
	delete(r.accounts, id)
	return nil
}

func (r *MemoryAccountRepo) List(_ context.Context, offset, limit int) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]domain.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		all = append(all, account)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryAccountRepo) CompareAndUpdateLockout(_ context.Context, id, expectedVersion int64, failedAttempts int, lockedUntil *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[id]
	if !ok || stored.Version != expectedVersion {
		return domain.ErrConflict
	}
	stored.FailedAttempts = failedAttempts
	stored.LockedUntil = lockedUntil
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	r.accounts[id] = stored
	return nil
}

func (r *MemoryAccountRepo) ResetLockout(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[id]
	if !ok {
		return nil
	}
	stored.FailedAttempts = 0
	stored.LockedUntil = nil
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	r.accounts[id] = stored
	return nil
}

func (r *MemoryAccountRepo) CountSuperusers(_ context.Context, activeOnly bool) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, account := range r.accounts {
		if account.IsSuperuser && (!activeOnly || account.IsActive) {
			count++
		}
	}
	return count, nil
}
