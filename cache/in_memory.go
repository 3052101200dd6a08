package cache

import (
	"context"
	"sync"
	"time"
)

// InMemoryStoreOptions configure an InMemoryStore.
type InMemoryStoreOptions struct {
	// TTL expires entries this long after CachedAt; zero keeps entries
	// until invalidated.
	TTL time.Duration
	// Now overrides the clock for expiry checks, mainly for tests.
	Now func() time.Time
}

// InMemoryStore is a volatile Store with optional TTL expiry. Expired
// entries are dropped lazily on lookup.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	opts    InMemoryStoreOptions
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore(optFns ...func(o *InMemoryStoreOptions)) *InMemoryStore {
	opts := InMemoryStoreOptions{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemoryStore{entries: make(map[string]Entry), opts: opts}
}

// Lookup implements Store.
func (s *InMemoryStore) Lookup(ctx context.Context, fingerprint string) (Entry, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[fingerprint]
	s.mu.RUnlock()
	if !ok {
		return Entry{}, false, nil
	}
	if s.expired(entry) {
		s.mu.Lock()
		// Re-check under the write lock; a fresh Store may have replaced it.
		if cur, ok := s.entries[fingerprint]; ok && s.expired(cur) {
			delete(s.entries, fingerprint)
		}
		s.mu.Unlock()
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// Store implements Store.
func (s *InMemoryStore) Store(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	s.entries[entry.Fingerprint] = entry
	s.mu.Unlock()
	return nil
}

// Invalidate implements Store.
func (s *InMemoryStore) Invalidate(ctx context.Context, fingerprint string) error {
	s.mu.Lock()
	delete(s.entries, fingerprint)
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) expired(entry Entry) bool {
	return s.opts.TTL > 0 && s.opts.Now().Sub(entry.CachedAt) > s.opts.TTL
}
