package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store persists game records keyed by id.
type Store interface {
	// Create stores a new record; ErrGameExists if the id is taken.
	Create(ctx context.Context, rec *Record) error
	// Load returns a copy of the record or ErrGameNotFound.
	Load(ctx context.Context, id string) (*Record, error)
	// Update runs fn on a copy of the record and stores the result atomically.
	// An error from fn aborts the write and is returned unchanged.
	Update(ctx context.Context, id string, fn func(*Record) error) (*Record, error)
	Close() error
}

// Lister is implemented by stores that can enumerate their games.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	records map[string]memEntry
}

type memEntry struct {
	rec       *Record
	expiresAt time.Time
}

// NewMemoryStore returns an empty store. ttl <= 0 disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, records: make(map[string]memEntry)}
}

func (s *MemoryStore) Create(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(rec.ID); ok {
		return ErrGameExists
	}
	s.put(rec)
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.live(id)
	if !ok {
		return nil, ErrGameNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*Record) error) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.live(id)
	if !ok {
		return nil, ErrGameNotFound
	}
	cur := rec.Clone()
	if err := fn(cur); err != nil {
		return nil, err
	}
	s.put(cur)
	return cur.Clone(), nil
}

func (s *MemoryStore) Close() error { return nil }

// List returns live ids in lexical order.
func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		if _, ok := s.live(id); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Len reports the number of live records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id := range s.records {
		if _, ok := s.live(id); ok {
			n++
		}
	}
	return n
}

func (s *MemoryStore) live(id string) (*Record, bool) {
	e, ok := s.records[id]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.records, id)
		return nil, false
	}
	return e.rec, true
}

func (s *MemoryStore) put(rec *Record) {
	e := memEntry{rec: rec.Clone()}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	s.records[rec.ID] = e
}
