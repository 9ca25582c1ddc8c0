// Package query holds the in-memory representation of a visually-assembled
// query: the tables, columns, joins, filters, grouping, ordering and limit
// the user has picked. Every mutation is validated; a failed mutation leaves
// the model untouched.
package query

import (
	"fmt"

	"github.com/marcinkonwiak/projekt-technologie-obiektowe/catalog"
	qerrors "github.com/marcinkonwiak/projekt-technologie-obiektowe/query/errors"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/types"
)

// TableRef is a catalog table bound into the query under a unique alias.
// The alias equals the table name unless the table was added more than once.
type TableRef struct {
	Table string `json:"table"`
	Alias string `json:"alias"`
}

// ColumnRef names a column of a bound table, optionally wrapped in an
// aggregate function. Table is the alias of a TableRef in the same model.
type ColumnRef struct {
	Table     string              `json:"table"`
	Column    string              `json:"column"`
	Aggregate types.AggregateFunc `json:"aggregate,omitempty"`
}

func (c ColumnRef) String() string {
	if c.Aggregate != "" {
		return fmt.Sprintf("%s(%s.%s)", c.Aggregate, c.Table, c.Column)
	}
	return fmt.Sprintf("%s.%s", c.Table, c.Column)
}

// bare strips the aggregate so the ref can be compared against GROUP BY keys
func (c ColumnRef) bare() ColumnRef {
	c.Aggregate = ""
	return c
}

// JoinKind is the kind of a join edge
type JoinKind string

const (
	JoinInner JoinKind = "INNER"
	JoinLeft  JoinKind = "LEFT"
)

// JoinCondition is one equality condition of a join edge. LeftColumn belongs
// to the edge's left table, RightColumn to the right one.
type JoinCondition struct {
	LeftColumn  string `json:"left_column"`
	RightColumn string `json:"right_column"`
}

// JoinEdge connects two bound tables with an ordered list of equality
// conditions. Left and Right are aliases of TableRefs in the same model.
type JoinEdge struct {
	Left       string          `json:"left"`
	Right      string          `json:"right"`
	Kind       JoinKind        `json:"kind"`
	Conditions []JoinCondition `json:"conditions"`
}

// FilterOperator is a comparison operator of a filter predicate
type FilterOperator string

const (
	OpEq        FilterOperator = "="
	OpNotEq     FilterOperator = "<>"
	OpLess      FilterOperator = "<"
	OpLessEq    FilterOperator = "<="
	OpGreater   FilterOperator = ">"
	OpGreaterEq FilterOperator = ">="
	OpLike      FilterOperator = "LIKE"
	OpILike     FilterOperator = "ILIKE"
	OpIn        FilterOperator = "IN"
	OpIsNull    FilterOperator = "IS NULL"
	OpIsNotNull FilterOperator = "IS NOT NULL"
)

// IsValidOperator checks if op is a known filter operator
func IsValidOperator(op FilterOperator) bool {
	switch op {
	case OpEq, OpNotEq, OpLess, OpLessEq, OpGreater, OpGreaterEq,
		OpLike, OpILike, OpIn, OpIsNull, OpIsNotNull:
		return true
	default:
		return false
	}
}

// Conjunction combines a filter predicate with its predecessors
type Conjunction string

const (
	ConjAnd Conjunction = "AND"
	ConjOr  Conjunction = "OR"
)

// FilterPredicate is one WHERE condition. Values holds the example values
// the user typed; they are bound as parameters, never rendered into SQL.
// Conj combines this predicate with the ones before it (ignored on the
// first predicate).
type FilterPredicate struct {
	Column   ColumnRef      `json:"column"`
	Operator FilterOperator `json:"operator"`
	Values   []string       `json:"values,omitempty"`
	Conj     Conjunction    `json:"conj,omitempty"`
}

// Direction is an ORDER BY direction
type Direction string

const (
	Ascending  Direction = "ASC"
	Descending Direction = "DESC"
)

// OrderEntry sorts the result by a bound column or by a 1-based SELECT-list
// ordinal. Exactly one of Column and Ordinal is set.
type OrderEntry struct {
	Column    *ColumnRef `json:"column,omitempty"`
	Ordinal   int        `json:"ordinal,omitempty"`
	Direction Direction  `json:"direction"`
}

// Model is the mutable query being built. It owns all of its parts; the
// visual layer only ever holds aliases and indices. Mutations are not safe
// for concurrent use; one session drives one model sequentially.
type Model struct {
	snapshot *catalog.Snapshot

	tables  []TableRef
	columns []ColumnRef
	joins   []JoinEdge
	filters []FilterPredicate
	groupBy []ColumnRef
	orderBy []OrderEntry
	limit   *int
}

// NewModel creates an empty model validated against the given schema snapshot
func NewModel(snapshot *catalog.Snapshot) *Model {
	return &Model{snapshot: snapshot}
}

// Snapshot returns the schema snapshot the model validates against
func (m *Model) Snapshot() *catalog.Snapshot {
	return m.snapshot
}

// Tables returns the bound tables in the order they were added
func (m *Model) Tables() []TableRef { return m.tables }

// Columns returns the selected columns in user-selection order
func (m *Model) Columns() []ColumnRef { return m.columns }

// Joins returns the authored join edges in authoring order
func (m *Model) Joins() []JoinEdge { return m.joins }

// Filters returns the filter predicates in authoring order
func (m *Model) Filters() []FilterPredicate { return m.filters }

// GroupBy returns the GROUP BY keys in order
func (m *Model) GroupBy() []ColumnRef { return m.groupBy }

// OrderBy returns the ORDER BY entries in order
func (m *Model) OrderBy() []OrderEntry { return m.orderBy }

// Limit returns the row limit, or nil when unbounded
func (m *Model) Limit() *int {
	if m.limit == nil {
		return nil
	}
	n := *m.limit
	return &n
}

// clone deep-copies the model so a mutation can be staged and discarded
func (m *Model) clone() *Model {
	next := &Model{snapshot: m.snapshot}
	next.tables = append([]TableRef(nil), m.tables...)
	next.columns = append([]ColumnRef(nil), m.columns...)
	next.filters = append([]FilterPredicate(nil), m.filters...)
	next.groupBy = append([]ColumnRef(nil), m.groupBy...)
	next.joins = make([]JoinEdge, len(m.joins))
	for i, j := range m.joins {
		j.Conditions = append([]JoinCondition(nil), j.Conditions...)
		next.joins[i] = j
	}
	next.orderBy = make([]OrderEntry, len(m.orderBy))
	for i, o := range m.orderBy {
		if o.Column != nil {
			col := *o.Column
			o.Column = &col
		}
		next.orderBy[i] = o
	}
	if m.limit != nil {
		n := *m.limit
		next.limit = &n
	}
	return next
}

// mutate stages apply on a copy, validates the result and commits it.
// The receiver is untouched when either step fails.
func (m *Model) mutate(apply func(*Model) error) error {
	next := m.clone()
	if err := apply(next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*m = *next
	return nil
}

// AddTable binds a catalog table into the query and returns its alias.
// Adding the same table again yields numbered aliases (orders, orders_2).
func (m *Model) AddTable(table string) (string, error) {
	if _, ok := m.snapshot.Table(table); !ok {
		return "", qerrors.Wrap(qerrors.ErrUnknownTable, "table %q not in catalog", table)
	}
	alias := m.nextAlias(table)
	err := m.mutate(func(next *Model) error {
		next.tables = append(next.tables, TableRef{Table: table, Alias: alias})
		return nil
	})
	if err != nil {
		return "", err
	}
	return alias, nil
}

func (m *Model) nextAlias(table string) string {
	taken := make(map[string]bool, len(m.tables))
	for _, t := range m.tables {
		taken[t.Alias] = true
	}
	if !taken[table] {
		return table
	}
	for n := 2; ; n++ {
		alias := fmt.Sprintf("%s_%d", table, n)
		if !taken[alias] {
			return alias
		}
	}
}

// RemoveTable unbinds a table and cascades: joins, filters, GROUP BY keys,
// ORDER BY entries and selected columns referencing it go with it. ORDER BY
// ordinals pointing at removed SELECT positions are dropped and the
// remaining ordinals renumbered.
func (m *Model) RemoveTable(alias string) error {
	return m.mutate(func(next *Model) error {
		idx := -1
		for i, t := range next.tables {
			if t.Alias == alias {
				idx = i
				break
			}
		}
		if idx < 0 {
			return qerrors.Wrap(qerrors.ErrDanglingReference, "table %q not in query", alias)
		}
		next.tables = append(next.tables[:idx], next.tables[idx+1:]...)

		removedPos := make(map[int]bool) // old 1-based SELECT positions
		kept := next.columns[:0]
		for i, c := range next.columns {
			if c.Table == alias {
				removedPos[i+1] = true
				continue
			}
			kept = append(kept, c)
		}
		next.columns = kept

		keptJoins := next.joins[:0]
		for _, j := range next.joins {
			if j.Left == alias || j.Right == alias {
				continue
			}
			keptJoins = append(keptJoins, j)
		}
		next.joins = keptJoins

		keptFilters := next.filters[:0]
		for _, f := range next.filters {
			if f.Column.Table == alias {
				continue
			}
			keptFilters = append(keptFilters, f)
		}
		next.filters = keptFilters

		keptGroup := next.groupBy[:0]
		for _, g := range next.groupBy {
			if g.Table == alias {
				continue
			}
			keptGroup = append(keptGroup, g)
		}
		next.groupBy = keptGroup

		keptOrder := next.orderBy[:0]
		for _, o := range next.orderBy {
			if o.Column != nil {
				if o.Column.Table == alias {
					continue
				}
				keptOrder = append(keptOrder, o)
				continue
			}
			if removedPos[o.Ordinal] {
				continue
			}
			shift := 0
			for pos := range removedPos {
				if pos < o.Ordinal {
					shift++
				}
			}
			o.Ordinal -= shift
			keptOrder = append(keptOrder, o)
		}
		next.orderBy = keptOrder
		return nil
	})
}

// AddColumn appends a column (optionally aggregated) to the SELECT list
func (m *Model) AddColumn(col ColumnRef) error {
	return m.mutate(func(next *Model) error {
		next.columns = append(next.columns, col)
		return nil
	})
}

// RemoveColumn removes the first SELECT-list entry equal to col
func (m *Model) RemoveColumn(col ColumnRef) error {
	return m.mutate(func(next *Model) error {
		for i, c := range next.columns {
			if c == col {
				removed := i + 1
				next.columns = append(next.columns[:i], next.columns[i+1:]...)
				keptOrder := next.orderBy[:0]
				for _, o := range next.orderBy {
					if o.Column == nil {
						if o.Ordinal == removed {
							continue
						}
						if o.Ordinal > removed {
							o.Ordinal--
						}
					}
					keptOrder = append(keptOrder, o)
				}
				next.orderBy = keptOrder
				return nil
			}
		}
		return qerrors.Wrap(qerrors.ErrDanglingReference, "column %s not selected", col)
	})
}

// AddJoin authors an explicit join edge between two bound tables
func (m *Model) AddJoin(edge JoinEdge) error {
	return m.mutate(func(next *Model) error {
		next.joins = append(next.joins, edge)
		return nil
	})
}

// RemoveJoin removes the authored join between two aliases, either orientation
func (m *Model) RemoveJoin(left, right string) error {
	return m.mutate(func(next *Model) error {
		for i, j := range next.joins {
			if (j.Left == left && j.Right == right) || (j.Left == right && j.Right == left) {
				next.joins = append(next.joins[:i], next.joins[i+1:]...)
				return nil
			}
		}
		return qerrors.Wrap(qerrors.ErrDanglingReference, "no join between %q and %q", left, right)
	})
}

// AddFilter appends a filter predicate
func (m *Model) AddFilter(f FilterPredicate) error {
	return m.mutate(func(next *Model) error {
		if f.Conj == "" {
			f.Conj = ConjAnd
		}
		next.filters = append(next.filters, f)
		return nil
	})
}

// RemoveFilter removes the predicate at index i
func (m *Model) RemoveFilter(i int) error {
	return m.mutate(func(next *Model) error {
		if i < 0 || i >= len(next.filters) {
			return qerrors.Wrap(qerrors.ErrDanglingReference, "no filter at index %d", i)
		}
		next.filters = append(next.filters[:i], next.filters[i+1:]...)
		return nil
	})
}

// SetGroup replaces the GROUP BY keys
func (m *Model) SetGroup(cols []ColumnRef) error {
	return m.mutate(func(next *Model) error {
		next.groupBy = append([]ColumnRef(nil), cols...)
		return nil
	})
}

// SetOrder replaces the ORDER BY entries
func (m *Model) SetOrder(entries []OrderEntry) error {
	return m.mutate(func(next *Model) error {
		next.orderBy = make([]OrderEntry, len(entries))
		for i, o := range entries {
			if o.Direction == "" {
				o.Direction = Ascending
			}
			if o.Column != nil {
				col := *o.Column
				o.Column = &col
			}
			next.orderBy[i] = o
		}
		return nil
	})
}

// SetLimit caps the number of result rows
func (m *Model) SetLimit(n int) error {
	return m.mutate(func(next *Model) error {
		if n < 0 {
			return qerrors.Wrap(qerrors.ErrBadLimit, "limit %d is negative", n)
		}
		next.limit = &n
		return nil
	})
}

// ClearLimit makes the query unbounded again
func (m *Model) ClearLimit() error {
	return m.mutate(func(next *Model) error {
		next.limit = nil
		return nil
	})
}

// tableRef resolves an alias to its TableRef
func (m *Model) tableRef(alias string) (TableRef, bool) {
	for _, t := range m.tables {
		if t.Alias == alias {
			return t, true
		}
	}
	return TableRef{}, false
}
