// Package knowledge defines the Store interface for the assistant's knowledge
// base.
//
// The knowledge base holds curated reference entries (facts, procedures, notes)
// that the responder injects into the LLM system prompt to ground answers in
// local context. Entries are ranked by priority first and recency second, so
// high-priority material keeps its slot even as newer low-priority entries are
// added.
//
// Implementations must be safe for concurrent use.
package knowledge

import (
	"context"

	"github.com/sonant-dev/sonant/pkg/types"
)

// Store is the abstraction over any knowledge base backend.
type Store interface {
	// FetchActive returns up to limit active entries ordered by priority
	// descending, then most recently updated first. A limit of 0 or less
	// applies the implementation default.
	//
	// Returns an empty slice (not an error) when no entries exist.
	FetchActive(ctx context.Context, limit int) ([]types.KnowledgeEntry, error)

	// Upsert inserts entry or updates the existing entry with the same ID.
	// The entry's UpdatedAt is set by the store.
	Upsert(ctx context.Context, entry types.KnowledgeEntry) error

	// Deactivate marks the entry with the given ID inactive so FetchActive no
	// longer returns it. Deactivating an unknown ID is not an error.
	Deactivate(ctx context.Context, id string) error
}
