package token

import (
	"context"
	"sync"
	"time"
)

// MemoryRevocationList is an in-process RevocationList for single-instance
// deployments and tests. Entries expire lazily on lookup.
type MemoryRevocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

var _ RevocationList = (*MemoryRevocationList)(nil)

// NewMemoryRevocationList constructs an empty list.
func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{entries: make(map[string]time.Time), now: time.Now}
}

// Revoke records the token ID until its natural expiry.
func (l *MemoryRevocationList) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[tokenID] = l.now().Add(ttl)
	return nil
}

// IsRevoked reports whether the token ID is on the list, dropping any
// entries that outlived their TTL.
func (l *MemoryRevocationList) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	expiry, ok := l.entries[tokenID]
	if !ok {
		return false, nil
	}
	if !expiry.After(now) {
		delete(l.entries, tokenID)
		return false, nil
	}
	return true, nil
}
