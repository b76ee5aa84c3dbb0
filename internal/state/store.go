package state

import "sync"

// Store holds the committed canonical state. The poll loop is its only
// writer; HTTP handlers read snapshots concurrently.
type Store struct {
	mu      sync.RWMutex
	current Observatory
	subs    []func(Observatory)
}

func NewStore(initial Observatory) *Store {
	return &Store{current: initial}
}

// Snapshot returns a copy of the committed state.
func (s *Store) Snapshot() Observatory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current
}

// Commit replaces the state unless next was produced by a batch older than
// the one already committed. It reports whether next was accepted.
func (s *Store) Commit(next Observatory) bool {
	s.mu.Lock()
	if s.current.Seq != 0 && next.Seq <= s.current.Seq {
		s.mu.Unlock()
		return false
	}
	s.current = next
	subs := append([]func(Observatory){}, s.subs...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return true
}

// Subscribe registers fn to be called after every accepted commit.
func (s *Store) Subscribe(fn func(Observatory)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subs = append(s.subs, fn)
}
