package graph

import "sync/atomic"

// Store hands out the current snapshot. Readers call Current and work
// against the value they got; the indexer is the only writer and publishes
// a fully built snapshot with one atomic swap, so readers never observe a
// half-updated generation.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore returns a Store holding an empty generation-zero snapshot.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(EmptySnapshot())
	return s
}

// Current returns the latest published snapshot. Never nil.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Publish swaps in a new snapshot.
func (s *Store) Publish(snap *Snapshot) {
	s.current.Store(snap)
}

// Generation returns the current snapshot's generation number.
func (s *Store) Generation() uint64 {
	return s.Current().Generation
}
