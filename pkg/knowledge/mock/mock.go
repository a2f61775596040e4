// Package mock provides an in-memory test double for the knowledge.Store
// interface.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sonant-dev/sonant/pkg/knowledge"
	"github.com/sonant-dev/sonant/pkg/types"
)

// Store is a mock implementation of knowledge.Store backed by a slice.
type Store struct {
	mu sync.Mutex

	// Entries is the backing data returned by FetchActive (after filtering and
	// sorting). Set it directly in tests.
	Entries []types.KnowledgeEntry

	// FetchErr, if non-nil, is returned from FetchActive.
	FetchErr error

	// FetchCalls records the limit passed to each FetchActive call.
	FetchCalls []int
}

// FetchActive filters Entries to active ones, sorts by priority descending
// then UpdatedAt descending, and applies limit.
func (s *Store) FetchActive(ctx context.Context, limit int) ([]types.KnowledgeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FetchCalls = append(s.FetchCalls, limit)
	if s.FetchErr != nil {
		return nil, s.FetchErr
	}

	var active []types.KnowledgeEntry
	for _, e := range s.Entries {
		if e.Active {
			active = append(active, e)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Priority != active[j].Priority {
			return active[i].Priority > active[j].Priority
		}
		return active[i].UpdatedAt.After(active[j].UpdatedAt)
	})
	if limit > 0 && len(active) > limit {
		active = active[:limit]
	}
	return active, nil
}

// Upsert inserts or replaces the entry with the same ID.
func (s *Store) Upsert(ctx context.Context, entry types.KnowledgeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.UpdatedAt = time.Now()
	for i, e := range s.Entries {
		if e.ID == entry.ID {
			s.Entries[i] = entry
			return nil
		}
	}
	s.Entries = append(s.Entries, entry)
	return nil
}

// Deactivate marks the entry with the given ID inactive.
func (s *Store) Deactivate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.Entries {
		if e.ID == id {
			s.Entries[i].Active = false
			s.Entries[i].UpdatedAt = time.Now()
		}
	}
	return nil
}

var _ knowledge.Store = (*Store)(nil)
