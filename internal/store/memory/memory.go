// Package memory is an in-process catalog store keyed by slug. It backs dry
// runs and tests.
package memory

import (
	"context"
	"sync"

	"catalogloader/internal/catalog"
)

// Store keeps inserted records in insertion order.
type Store struct {
	mu     sync.Mutex
	bySlug map[string]struct{}
	recs   []catalog.Record
	closed bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{bySlug: make(map[string]struct{})}
}

// InsertSkipDuplicates stores every record whose slug is new, including
// repeats within recs, and returns how many were stored.
func (s *Store) InsertSkipDuplicates(_ context.Context, recs []catalog.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, r := range recs {
		if _, ok := s.bySlug[r.Slug]; ok {
			continue
		}
		s.bySlug[r.Slug] = struct{}{}
		s.recs = append(s.recs, r)
		n++
	}
	return n, nil
}

// EnsureSchema is a no-op.
func (s *Store) EnsureSchema(context.Context) error { return nil }

// Count returns the number of stored records.
func (s *Store) Count(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.recs)), nil
}

// Close marks the store closed. Records stay readable.
func (s *Store) Close(context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Records returns a copy of the stored records in insertion order.
func (s *Store) Records() []catalog.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]catalog.Record, len(s.recs))
	copy(out, s.recs)
	return out
}

// Closed reports whether Close was called.
func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
