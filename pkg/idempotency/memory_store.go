package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory. Expired records are dropped
// lazily on Claim.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

func memoryKey(scope, key string) string {
	return scope + "\x00" + key
}

// Claim implements Store
func (s *MemoryStore) Claim(_ context.Context, rec *Record, lockTimeout time.Duration) (*Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	id := memoryKey(rec.Scope, rec.Key)

	existing, ok := s.records[id]
	if ok && now.After(existing.ExpiresAt) {
		delete(s.records, id)
		ok = false
	}

	if ok && (existing.Completed() || existing.Locked(now, lockTimeout)) {
		copied := *existing
		return &copied, false, nil
	}

	stored := *rec
	stored.LockedAt = &now
	stored.CompletedAt = nil
	s.records[id] = &stored

	copied := stored
	return &copied, true, nil
}

// Complete implements Store
func (s *MemoryStore) Complete(_ context.Context, scope, key string, resp *Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[memoryKey(scope, key)]
	if !ok {
		return ErrNotFound
	}

	now := s.now().UTC()
	rec.LockedAt = nil
	rec.CompletedAt = &now
	rec.StatusCode = resp.StatusCode
	rec.ContentType = resp.ContentType
	rec.Body = append([]byte(nil), resp.Body...)
	rec.Headers = resp.Headers
	return nil
}

// Release implements Store
func (s *MemoryStore) Release(_ context.Context, scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := memoryKey(scope, key)
	if rec, ok := s.records[id]; ok && !rec.Completed() {
		delete(s.records, id)
	}
	return nil
}
