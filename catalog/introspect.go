package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/marcinkonwiak/projekt-technologie-obiektowe/types"
)

// Queryer is the subset of a pgx connection the introspector needs.
// *pgx.Conn and *pgxpool.Pool both satisfy it.
type Queryer interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

const (
	tablesQuery = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	columnsQuery = `
		SELECT table_name, column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public'
		ORDER BY table_name, ordinal_position`

	foreignKeysQuery = `
		SELECT
			tc.table_name,
			kcu.column_name,
			ccu.table_name AS referenced_table,
			ccu.column_name AS referenced_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
			AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = 'public'
		ORDER BY tc.table_name, kcu.column_name`
)

// Introspector reads schema metadata from a live PostgreSQL database.
// The three metadata queries are batched so a refresh costs one round trip.
type Introspector struct {
	conn Queryer
}

// NewIntrospector creates a Source backed by a pgx connection or pool
func NewIntrospector(conn Queryer) *Introspector {
	return &Introspector{conn: conn}
}

// Introspect builds a complete snapshot of the public schema
func (in *Introspector) Introspect(ctx context.Context) (*Snapshot, error) {
	batch := &pgx.Batch{}
	batch.Queue(tablesQuery)
	batch.Queue(columnsQuery)
	batch.Queue(foreignKeysQuery)

	results := in.conn.SendBatch(ctx, batch)
	defer results.Close()

	byName := make(map[string]*Table)
	var ordered []*Table

	rows, err := results.Query()
	if err != nil {
		return nil, fmt.Errorf("introspect tables: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		t := &Table{Name: name}
		byName[name] = t
		ordered = append(ordered, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("introspect tables: %w", err)
	}

	rows, err = results.Query()
	if err != nil {
		return nil, fmt.Errorf("introspect columns: %w", err)
	}
	for rows.Next() {
		var table, column, dataType, nullable string
		if err := rows.Scan(&table, &column, &dataType, &nullable); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan column: %w", err)
		}
		t, ok := byName[table]
		if !ok {
			continue // views and other non-base relations
		}
		t.Columns = append(t.Columns, Column{
			Name:     column,
			Type:     types.ParseDataType(dataType),
			Nullable: nullable == "YES",
		})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("introspect columns: %w", err)
	}

	rows, err = results.Query()
	if err != nil {
		return nil, fmt.Errorf("introspect foreign keys: %w", err)
	}
	for rows.Next() {
		var table, column, refTable, refColumn string
		if err := rows.Scan(&table, &column, &refTable, &refColumn); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		t, ok := byName[table]
		if !ok {
			continue
		}
		t.ForeignKeys = append(t.ForeignKeys, ForeignKey{
			Column:           column,
			ReferencedTable:  refTable,
			ReferencedColumn: refColumn,
		})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("introspect foreign keys: %w", err)
	}

	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })
	return NewSnapshot(ordered), nil
}
