package catalog

import (
	"iter"

	qerrors "github.com/marcinkonwiak/projekt-technologie-obiektowe/query/errors"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/types"
)

// Column describes one column of a catalog table
type Column struct {
	Name     string           `json:"name"`
	Type     types.ColumnType `json:"type"`
	Nullable bool             `json:"nullable"`
}

// ForeignKey describes an outgoing foreign-key relation of a table.
// Read-only reference metadata for join inference, never a source of rows.
type ForeignKey struct {
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
}

// Table is one table of a snapshot with its columns and outgoing foreign keys
type Table struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
}

// Column returns the named column and whether it exists
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Snapshot is an immutable view of the database schema. A snapshot is built
// in full before it becomes visible; readers never see a partial one.
type Snapshot struct {
	names  []string // sorted table names
	tables map[string]*Table
}

// NewSnapshot builds a snapshot from introspected tables. Tables are indexed
// by name; the input order is kept for listing, so introspection should hand
// them over sorted.
func NewSnapshot(tables []*Table) *Snapshot {
	s := &Snapshot{
		names:  make([]string, 0, len(tables)),
		tables: make(map[string]*Table, len(tables)),
	}
	for _, t := range tables {
		if _, dup := s.tables[t.Name]; dup {
			continue
		}
		s.names = append(s.names, t.Name)
		s.tables[t.Name] = t
	}
	return s
}

// Tables returns a lazy, restartable sequence of table names
func (s *Snapshot) Tables() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, name := range s.names {
			if !yield(name) {
				return
			}
		}
	}
}

// Describe returns the column definitions of a table
func (s *Snapshot) Describe(table string) ([]Column, error) {
	t, ok := s.tables[table]
	if !ok {
		return nil, qerrors.Wrap(qerrors.ErrUnknownTable, "table %q not in catalog", table)
	}
	return t.Columns, nil
}

// ForeignKeysOf returns the outgoing foreign-key relations of a table
func (s *Snapshot) ForeignKeysOf(table string) ([]ForeignKey, error) {
	t, ok := s.tables[table]
	if !ok {
		return nil, qerrors.Wrap(qerrors.ErrUnknownTable, "table %q not in catalog", table)
	}
	return t.ForeignKeys, nil
}

// Table returns the named table and whether it exists
func (s *Snapshot) Table(name string) (*Table, bool) {
	t, ok := s.tables[name]
	return t, ok
}

// Len returns the number of tables in the snapshot
func (s *Snapshot) Len() int {
	return len(s.names)
}
