package rate

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const memoryShardCount = 32

type memoryEntry struct {
	count   int
	resetAt time.Time
}

type memoryShard struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// MemoryStore is an in-process [Store]. Limits are only advisory: they do not
// survive a restart and are not shared between instances.
type MemoryStore struct {
	shards [memoryShardCount]memoryShard
	now    func() time.Time
}

// MemoryOption configures a [MemoryStore].
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{now: time.Now}
	for i := range s.shards {
		s.shards[i].entries = make(map[string]memoryEntry)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Take(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 || window <= 0 {
		return Decision{}, ErrInvalidLimit
	}

	sh := s.shard(key)
	now := s.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[key]
	if !ok || now.After(e.resetAt) {
		e = memoryEntry{count: 1, resetAt: now.Add(window)}
		sh.entries[key] = e
		return Decision{Allowed: true, Count: e.count, ResetAt: e.resetAt}, nil
	}

	if e.count >= limit {
		return Decision{Allowed: false, Count: e.count, ResetAt: e.resetAt}, nil
	}

	e.count++
	sh.entries[key] = e
	return Decision{Allowed: true, Count: e.count, ResetAt: e.resetAt}, nil
}

// Sweep removes entries whose window ended before now and returns how many were
// removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	removed := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for key, e := range sh.entries {
			if now.After(e.resetAt) {
				delete(sh.entries, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Len returns the number of tracked keys, expired or not.
func (s *MemoryStore) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}

// Reset drops every entry.
func (s *MemoryStore) Reset() {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		sh.entries = make(map[string]memoryEntry)
		sh.mu.Unlock()
	}
}

func (s *MemoryStore) shard(key string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.shards[h.Sum32()%memoryShardCount]
}
