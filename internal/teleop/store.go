// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package teleop

import (
	"log"
	"sync"
	"sync/atomic"
)

// ParamSource hands the engine one consistent snapshot per sample.
type ParamSource interface {
	Snapshot() *Params
}

// Store holds the live teleop parameters. Readers load the current
// snapshot without locking; writers are serialized and publish a complete
// new snapshot, so a reader never observes half of an update batch.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Params]
}

// NewStore creates a store seeded with initial.
func NewStore(initial Params) *Store {
	s := &Store{}
	s.current.Store(&initial)
	return s
}

// Snapshot returns the current parameters. The result must not be modified.
func (s *Store) Snapshot() *Params {
	return s.current.Load()
}

// SetParameters type-checks and applies an update batch. On rejection the
// previous snapshot stays in place and the reason names the offending
// parameter.
func (s *Store) SetParameters(updates []Parameter) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, res := s.current.Load().With(updates)
	if !res.Successful {
		log.Printf("teleop: parameter update rejected: %s", res.Reason)
		return res
	}
	s.current.Store(&next)
	for _, u := range updates {
		log.Printf("teleop: set %s = %s (version %d)", u.Name, u.Value, next.Version)
	}
	return res
}
