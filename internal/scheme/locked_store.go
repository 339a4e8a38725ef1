package scheme

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/triarb/internal/domain"
)

// DefaultLockTTL bounds how long a crashed writer can block others.
const DefaultLockTTL = 30 * time.Second

// LockedStore serializes writes to an underlying store through a distributed
// lock. Reads are not locked since every backend replaces the document
// atomically.
type LockedStore struct {
	inner domain.SchemeStore
	locks domain.LockManager
	key   string
	ttl   time.Duration
}

// NewLockedStore wraps inner. Writers hold the lock named key for at most ttl.
func NewLockedStore(inner domain.SchemeStore, locks domain.LockManager, key string, ttl time.Duration) *LockedStore {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &LockedStore{inner: inner, locks: locks, key: key, ttl: ttl}
}

// LockKey returns the lock name used for exchange's scheme document.
func LockKey(exchange domain.Exchange) string {
	return "scheme:" + exchange.String()
}

// Save acquires the lock, saves, and releases. It fails with
// domain.ErrLockHeld when another writer holds the lock.
func (s *LockedStore) Save(ctx context.Context, schemes []domain.Scheme) error {
	unlock, err := s.locks.Acquire(ctx, s.key, s.ttl)
	if err != nil {
		return fmt.Errorf("scheme: lock %s: %w", s.key, err)
	}
	defer unlock()
	return s.inner.Save(ctx, schemes)
}

func (s *LockedStore) Load(ctx context.Context) ([]domain.Scheme, error) {
	return s.inner.Load(ctx)
}

var _ domain.SchemeStore = (*LockedStore)(nil)
