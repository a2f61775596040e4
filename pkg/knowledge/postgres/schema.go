// Package postgres provides a PostgreSQL-backed implementation of the
// knowledge base.
//
// All operations share a single [pgxpool.Pool] connection pool. [Migrate]
// creates the schema on first use via CREATE TABLE IF NOT EXISTS, so no
// external migration tooling is required.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//
//	entries, _ := store.FetchActive(ctx, 20)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlKnowledgeEntries = `
CREATE TABLE IF NOT EXISTS knowledge_entries (
    id          TEXT         PRIMARY KEY,
    title       TEXT         NOT NULL,
    content     TEXT         NOT NULL,
    category    TEXT         NOT NULL DEFAULT '',
    priority    INT          NOT NULL DEFAULT 0,
    active      BOOLEAN      NOT NULL DEFAULT TRUE,
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_knowledge_entries_active
    ON knowledge_entries (active);

CREATE INDEX IF NOT EXISTS idx_knowledge_entries_ranking
    ON knowledge_entries (active, priority DESC, updated_at DESC);
`

// Migrate ensures the knowledge_entries table and its indexes exist.
// It is idempotent and safe to run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlKnowledgeEntries); err != nil {
		return fmt.Errorf("migrate knowledge_entries: %w", err)
	}
	return nil
}
