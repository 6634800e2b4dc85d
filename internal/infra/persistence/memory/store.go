// Package memory holds catalog snapshots in process memory only, for tests
// and ephemeral runs.
package memory

import (
	"context"
	"sync"

	"neocore/pkg/domain"
)

// Store keeps at most one snapshot in memory.
type Store struct {
	mu    sync.RWMutex
	snap  domain.Snapshot
	found bool
}

// NewStore constructs an empty in-memory snapshot store.
func NewStore() *Store { return &Store{} }

// Persist replaces the held snapshot.
func (s *Store) Persist(_ context.Context, snap domain.Snapshot) error {
	s.mu.Lock()
	s.snap = snap
	s.found = true
	s.mu.Unlock()
	return nil
}

// Load returns the held snapshot, if any.
func (s *Store) Load(_ context.Context) (domain.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.found, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
