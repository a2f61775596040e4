package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sonant-dev/sonant/pkg/knowledge"
	"github.com/sonant-dev/sonant/pkg/types"
)

// Compile-time interface check.
var _ knowledge.Store = (*Store)(nil)

// defaultFetchLimit caps FetchActive when the caller passes a non-positive
// limit.
const defaultFetchLimit = 20

// Store is the PostgreSQL-backed knowledge base. It holds a single
// [pgxpool.Pool] and is safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store, establishes a connection pool to the
// PostgreSQL database at dsn, and runs [Migrate] to ensure the schema exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("knowledge store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("knowledge store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("knowledge store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("knowledge store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// FetchActive implements knowledge.Store.
func (s *Store) FetchActive(ctx context.Context, limit int) ([]types.KnowledgeEntry, error) {
	if limit <= 0 {
		limit = defaultFetchLimit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, title, content, category, priority, active, updated_at
		FROM knowledge_entries
		WHERE active
		ORDER BY priority DESC, updated_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("knowledge store: fetch active: %w", err)
	}
	defer rows.Close()

	var entries []types.KnowledgeEntry
	for rows.Next() {
		var e types.KnowledgeEntry
		if err := rows.Scan(&e.ID, &e.Title, &e.Content, &e.Category, &e.Priority, &e.Active, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("knowledge store: scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("knowledge store: iterate entries: %w", err)
	}
	return entries, nil
}

// Upsert implements knowledge.Store.
func (s *Store) Upsert(ctx context.Context, entry types.KnowledgeEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("knowledge store: entry ID must not be empty")
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO knowledge_entries (id, title, content, category, priority, active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (id) DO UPDATE SET
			title      = EXCLUDED.title,
			content    = EXCLUDED.content,
			category   = EXCLUDED.category,
			priority   = EXCLUDED.priority,
			active     = EXCLUDED.active,
			updated_at = now()`,
		entry.ID, entry.Title, entry.Content, entry.Category, entry.Priority, entry.Active)
	if err != nil {
		return fmt.Errorf("knowledge store: upsert %q: %w", entry.ID, err)
	}
	return nil
}

// Deactivate implements knowledge.Store.
func (s *Store) Deactivate(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE knowledge_entries SET active = FALSE, updated_at = now()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("knowledge store: deactivate %q: %w", id, err)
	}
	return nil
}

// Close releases all connections held by the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
