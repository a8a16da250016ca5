package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/clawcraft/gatekeeper/core"
	"github.com/clawcraft/gatekeeper/ports"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// MemoryStore is an in-memory implementation of the Store interface
type MemoryStore struct {
	clock ports.Clock
	data  map[string]memoryEntry
	mu    sync.RWMutex
}

// NewMemoryStore creates a new in-memory store. Expired keys are dropped lazily.
func NewMemoryStore(clock ports.Clock) *MemoryStore {
	return &MemoryStore{
		clock: clock,
		data:  make(map[string]memoryEntry),
	}
}

// Put stores a copy of value under key
func (s *MemoryStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = s.clock.Now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = entry
	return nil
}

// Get retrieves a value by key
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	entry, ok := s.data[key]
	s.mu.RUnlock()

	if !ok || s.expired(entry) {
		return nil, core.ErrNotFound
	}
	return append([]byte(nil), entry.value...), nil
}

// Take retrieves and removes a value under a single lock
func (s *MemoryStore) Take(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[key]
	if !ok {
		return nil, core.ErrNotFound
	}
	delete(s.data, key)

	if s.expired(entry) {
		return nil, core.ErrNotFound
	}
	return entry.value, nil
}

// Delete removes key; deleting a missing key is not an error
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// Scan visits a snapshot of the keys under prefix in lexical order.
// fn runs without the lock held, so it may modify the store.
func (s *MemoryStore) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	type kv struct {
		key   string
		value []byte
	}

	s.mu.RLock()
	snapshot := make([]kv, 0, len(s.data))
	for key, entry := range s.data {
		if strings.HasPrefix(key, prefix) && !s.expired(entry) {
			snapshot = append(snapshot, kv{key: key, value: entry.value})
		}
	}
	s.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].key < snapshot[j].key })

	for _, item := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(item.key, append([]byte(nil), item.value...)); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored keys, including expired ones not yet dropped
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Clear removes all data from the store
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]memoryEntry)
}

func (s *MemoryStore) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && !s.clock.Now().Before(entry.expiresAt)
}

var _ ports.Store = (*MemoryStore)(nil)
