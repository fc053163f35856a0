package guard

import (
	"context"
	"sync"
	"time"
)

// claimMarker holds an idempotency key while its message is being stored.
const claimMarker = "\x00claimed"

type idempotencyEntry struct {
	messageID string
	expiresAt time.Time
}

// MemoryStore is the single-instance guard store: sliding windows and
// idempotency keys in process memory, pruned by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	keys    map[string]idempotencyEntry
	maxAge  time.Duration
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string][]time.Time),
		keys:    make(map[string]idempotencyEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Allow(_ context.Context, key string, limit int, window time.Duration, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if window > s.maxAge {
		s.maxAge = window
	}
	hits := pruneBefore(s.windows[key], now.Add(-window))
	if len(hits) >= limit {
		s.windows[key] = hits
		return false, nil
	}
	s.windows[key] = append(hits, now)
	return true, nil
}

func (s *MemoryStore) GetIdempotent(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.keys[key]
	if !ok || !s.now().Before(e.expiresAt) || e.messageID == claimMarker {
		return "", false, nil
	}
	return e.messageID, true, nil
}

func (s *MemoryStore) ClaimIdempotent(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.keys[key]; ok && now.Before(e.expiresAt) {
		return false, nil
	}
	s.keys[key] = idempotencyEntry{messageID: claimMarker, expiresAt: now.Add(ttl)}
	return true, nil
}

func (s *MemoryStore) ReleaseIdempotent(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.keys[key]; ok && e.messageID == claimMarker {
		delete(s.keys, key)
	}
	return nil
}

func (s *MemoryStore) PutIdempotent(_ context.Context, key, messageID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = idempotencyEntry{messageID: messageID, expiresAt: s.now().Add(ttl)}
	return nil
}

// Sweep drops expired idempotency keys and empty rate windows.
func (s *MemoryStore) Sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.keys {
		if !now.Before(e.expiresAt) {
			delete(s.keys, k)
		}
	}
	for k, hits := range s.windows {
		hits = pruneBefore(hits, now.Add(-s.maxAge))
		if len(hits) == 0 {
			delete(s.windows, k)
			continue
		}
		s.windows[k] = hits
	}
}

func pruneBefore(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}
