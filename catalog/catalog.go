// Package catalog caches the schema metadata of the connected database:
// tables, columns and foreign-key relations. The cache is read by many
// sessions concurrently and refreshed occasionally; a refresh builds a
// complete new snapshot and swaps it in atomically.
package catalog

import (
	"context"
	"iter"
	"sync/atomic"

	"github.com/marcinkonwiak/projekt-technologie-obiektowe/logger"
)

// Source produces schema snapshots. The pgx-backed implementation lives in
// introspect.go; tests substitute their own.
type Source interface {
	Introspect(ctx context.Context) (*Snapshot, error)
}

// Catalog holds the current schema snapshot. All read methods are pure reads
// over the snapshot current at call time; only Refresh touches the database.
type Catalog struct {
	source   Source
	snapshot atomic.Pointer[Snapshot]
}

// New creates a catalog with an empty snapshot. Call Refresh to populate it.
func New(source Source) *Catalog {
	c := &Catalog{source: source}
	c.snapshot.Store(NewSnapshot(nil))
	return c
}

// Refresh re-queries database metadata and replaces the cached catalog.
// Concurrent readers keep seeing the previous snapshot until the new one is
// complete; on failure the previous snapshot stays in place.
func (c *Catalog) Refresh(ctx context.Context) error {
	snap, err := c.source.Introspect(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "catalog refresh failed", "error", err)
		return err
	}
	c.snapshot.Store(snap)
	logger.InfoContext(ctx, "catalog refreshed", "tables", snap.Len())
	return nil
}

// Current returns the snapshot in effect at call time
func (c *Catalog) Current() *Snapshot {
	return c.snapshot.Load()
}

// ListTables returns a lazy, restartable sequence of table names from the
// snapshot current at call time
func (c *Catalog) ListTables() iter.Seq[string] {
	return c.Current().Tables()
}

// Describe returns the column definitions of a table, or ErrUnknownTable
func (c *Catalog) Describe(table string) ([]Column, error) {
	return c.Current().Describe(table)
}

// ForeignKeysOf returns the foreign-key relations of a table. Used by join
// resolution only.
func (c *Catalog) ForeignKeysOf(table string) ([]ForeignKey, error) {
	return c.Current().ForeignKeysOf(table)
}
