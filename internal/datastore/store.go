package datastore

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/weft/internal/ir"
)

// Store is the process-wide initial data store. Pass a *Store handle to the
// components that need it rather than reaching for a global.
//
// Thread-safety: all methods are safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	defined bool
	data    map[string][]ir.Record
}

// New creates an undefined store. Seed on an undefined store returns empty
// collections.
func New() *Store {
	return &Store{}
}

// Define sets the initial state. The input is deep-copied so later changes
// by the caller do not leak in.
func (s *Store) Define(initial map[string][]ir.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.defined {
		slog.Warn("data store redefinition rejected", "collections", len(initial))
		return &StoreError{
			Code:    ErrCodeAlreadyInitialized,
			Message: "data store is already defined",
		}
	}

	s.data = make(map[string][]ir.Record, len(initial))
	for name, records := range initial {
		s.data[name] = cloneRecords(records)
	}
	s.defined = true

	slog.Debug("data store defined", "collections", len(s.data))
	return nil
}

// Defined reports whether Define has succeeded.
func (s *Store) Defined() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defined
}

// Seed returns a deep copy of the named collection, or an empty slice when
// the name is unknown or the store is undefined. Never nil.
func (s *Store) Seed(name string) []ir.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.data[name]
	if !ok {
		return []ir.Record{}
	}
	return cloneRecords(records)
}

// Names returns the defined collection names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func cloneRecords(records []ir.Record) []ir.Record {
	out := make([]ir.Record, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
	}
	return out
}
