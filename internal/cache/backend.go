package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrUnavailable reports that a cache backend cannot be reached. Callers
// treat it as a miss, never as a request failure.
var ErrUnavailable = errors.New("cache backend unavailable")

// DefaultMaxEntries bounds the in-process backend when no capacity is
// configured.
const DefaultMaxEntries = 1000

// Backend is the storage half of the cache: a key-value store with
// per-entry expiry. Implementations must be safe for concurrent use.
type Backend interface {
	// Get returns the value for key, or ok=false when the key is absent
	// or expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key for the given duration. Setting an
	// existing key replaces its value and restarts its TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Len returns the number of live entries.
	Len(ctx context.Context) (int, error)

	// Name identifies the backend variant ("memory" or "redis").
	Name() string
}

// memoryEntry is one stored value with its expiry and LRU bookkeeping.
type memoryEntry struct {
	value      []byte
	expiresAt  time.Time
	lastAccess time.Time
}

// MemoryBackend is a bounded in-process Backend. Reads and writes are O(1);
// only an eviction at capacity scans for the least-recently-used entry.
type MemoryBackend struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	maxEntries int
}

// NewMemoryBackend creates an in-process backend holding at most maxEntries
// values. maxEntries <= 0 takes the package default.
func NewMemoryBackend(maxEntries int) *MemoryBackend {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryBackend{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
	}
}

func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		return nil, false, nil
	}

	// Expired entries are purged lazily, on the read that finds them.
	if !time.Now().Before(e.expiresAt) {
		delete(b.entries, key)
		return nil, false, nil
	}

	e.lastAccess = time.Now()
	return e.value, true, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()

	if e, ok := b.entries[key]; ok {
		e.value = value
		e.expiresAt = now.Add(ttl)
		e.lastAccess = now
		return nil
	}

	if len(b.entries) >= b.maxEntries {
		b.evictOldest()
	}

	b.entries[key] = &memoryEntry{
		value:      value,
		expiresAt:  now.Add(ttl),
		lastAccess: now,
	}
	return nil
}

// evictOldest removes the entry with the oldest last-access time. Called
// with the lock held, only when an insert would exceed capacity.
func (b *MemoryBackend) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, e := range b.entries {
		if oldestKey == "" || e.lastAccess.Before(oldest) {
			oldestKey = k
			oldest = e.lastAccess
		}
	}
	if oldestKey != "" {
		delete(b.entries, oldestKey)
	}
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, key)
	return nil
}

func (b *MemoryBackend) Clear(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make(map[string]*memoryEntry)
	return nil
}

func (b *MemoryBackend) Len(_ context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	now := time.Now()
	for _, e := range b.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n, nil
}
