package query

import (
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/catalog"
	qerrors "github.com/marcinkonwiak/projekt-technologie-obiektowe/query/errors"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/types"
)

// Validate checks the whole model against the cross-cutting invariants.
// It runs after every staged mutation; mutations that would break an
// invariant are rejected before they become visible.
func (m *Model) Validate() error {
	if err := m.validateTables(); err != nil {
		return err
	}
	if err := m.validateColumns(); err != nil {
		return err
	}
	if err := m.validateJoins(); err != nil {
		return err
	}
	if err := m.validateFilters(); err != nil {
		return err
	}
	if err := m.validateGrouping(); err != nil {
		return err
	}
	if err := m.validateOrdering(); err != nil {
		return err
	}
	if m.limit != nil && *m.limit < 0 {
		return qerrors.Wrap(qerrors.ErrBadLimit, "limit %d is negative", *m.limit)
	}
	return nil
}

func (m *Model) validateTables() error {
	seen := make(map[string]bool, len(m.tables))
	for _, t := range m.tables {
		if seen[t.Alias] {
			return qerrors.Wrap(qerrors.ErrAliasConflict, "alias %q bound twice", t.Alias)
		}
		seen[t.Alias] = true
		if _, ok := m.snapshot.Table(t.Table); !ok {
			return qerrors.Wrap(qerrors.ErrUnknownTable, "table %q not in catalog", t.Table)
		}
	}
	return nil
}

// column resolves a ColumnRef against the model and the catalog snapshot
func (m *Model) column(ref ColumnRef) (catalog.Column, error) {
	tref, ok := m.tableRef(ref.Table)
	if !ok {
		return catalog.Column{}, qerrors.Wrap(qerrors.ErrDanglingReference, "%s references table not in query", ref)
	}
	table, ok := m.snapshot.Table(tref.Table)
	if !ok {
		return catalog.Column{}, qerrors.Wrap(qerrors.ErrUnknownTable, "table %q not in catalog", tref.Table)
	}
	col, ok := table.Column(ref.Column)
	if !ok {
		return catalog.Column{}, qerrors.Wrap(qerrors.ErrUnknownColumn, "column %q not in table %q", ref.Column, tref.Table)
	}
	return col, nil
}

func (m *Model) validateColumns() error {
	for _, ref := range m.columns {
		col, err := m.column(ref)
		if err != nil {
			return err
		}
		if ref.Aggregate == "" {
			continue
		}
		if !types.IsValidAggregateFunc(ref.Aggregate) {
			return qerrors.Wrap(qerrors.ErrBadAggregate, "unknown aggregate %q", ref.Aggregate)
		}
		if !col.Type.SupportsAggregate(ref.Aggregate) {
			return qerrors.Wrap(qerrors.ErrBadAggregate, "%s not applicable to %s column %s", ref.Aggregate, col.Type, ref.bare())
		}
	}
	return nil
}

func (m *Model) validateJoins() error {
	for _, j := range m.joins {
		if _, ok := m.tableRef(j.Left); !ok {
			return qerrors.Wrap(qerrors.ErrDanglingReference, "join references table %q not in query", j.Left)
		}
		if _, ok := m.tableRef(j.Right); !ok {
			return qerrors.Wrap(qerrors.ErrDanglingReference, "join references table %q not in query", j.Right)
		}
		if j.Kind != JoinInner && j.Kind != JoinLeft {
			return qerrors.Wrap(qerrors.ErrIncompatibleJoin, "unknown join kind %q", j.Kind)
		}
		if len(j.Conditions) == 0 {
			return qerrors.Wrap(qerrors.ErrIncompatibleJoin, "join %s-%s has no conditions", j.Left, j.Right)
		}
		for _, cond := range j.Conditions {
			left, err := m.column(ColumnRef{Table: j.Left, Column: cond.LeftColumn})
			if err != nil {
				return err
			}
			right, err := m.column(ColumnRef{Table: j.Right, Column: cond.RightColumn})
			if err != nil {
				return err
			}
			if !types.Comparable(left.Type, right.Type) {
				return qerrors.Wrap(qerrors.ErrIncompatibleJoin,
					"%s.%s (%s) and %s.%s (%s) are not comparable",
					j.Left, cond.LeftColumn, left.Type, j.Right, cond.RightColumn, right.Type)
			}
		}
	}
	return nil
}

func (m *Model) validateFilters() error {
	for _, f := range m.filters {
		if f.Column.Aggregate != "" {
			return qerrors.Wrap(qerrors.ErrTypeMismatch, "filter on aggregated column %s", f.Column)
		}
		col, err := m.column(f.Column)
		if err != nil {
			return err
		}
		if !IsValidOperator(f.Operator) {
			return qerrors.Wrap(qerrors.ErrTypeMismatch, "unknown operator %q", f.Operator)
		}
		switch f.Operator {
		case OpIsNull, OpIsNotNull:
			if len(f.Values) != 0 {
				return qerrors.Wrap(qerrors.ErrBadOperatorArity, "%s takes no value, got %d", f.Operator, len(f.Values))
			}
		case OpIn:
			if len(f.Values) < 1 {
				return qerrors.Wrap(qerrors.ErrBadOperatorArity, "IN needs at least one value")
			}
		default:
			if len(f.Values) != 1 {
				return qerrors.Wrap(qerrors.ErrBadOperatorArity, "%s needs exactly one value, got %d", f.Operator, len(f.Values))
			}
		}
		if (f.Operator == OpLike || f.Operator == OpILike) && !col.Type.IsText() {
			return qerrors.Wrap(qerrors.ErrTypeMismatch, "%s requires a text column, %s is %s", f.Operator, f.Column, col.Type)
		}
		if f.Conj != "" && f.Conj != ConjAnd && f.Conj != ConjOr {
			return qerrors.Wrap(qerrors.ErrTypeMismatch, "unknown conjunction %q", f.Conj)
		}
	}
	return nil
}

func (m *Model) validateGrouping() error {
	grouped := make(map[ColumnRef]bool, len(m.groupBy))
	for _, g := range m.groupBy {
		if g.Aggregate != "" {
			return qerrors.Wrap(qerrors.ErrGroupedAggregate, "GROUP BY key %s carries an aggregate", g)
		}
		if _, err := m.column(g); err != nil {
			return err
		}
		grouped[g] = true
	}

	hasAggregate := false
	for _, c := range m.columns {
		if c.Aggregate != "" {
			hasAggregate = true
			break
		}
	}
	if !hasAggregate {
		return nil
	}
	// GROUP BY completeness: with an aggregate present, every plain selected
	// column must be a grouping key.
	for _, c := range m.columns {
		if c.Aggregate != "" {
			continue
		}
		if !grouped[c.bare()] {
			return qerrors.Wrap(qerrors.ErrUngroupedColumn, "%s selected next to an aggregate but not grouped", c)
		}
	}
	return nil
}

func (m *Model) validateOrdering() error {
	for _, o := range m.orderBy {
		if o.Direction != Ascending && o.Direction != Descending {
			return qerrors.Wrap(qerrors.ErrBadOrdinal, "unknown direction %q", o.Direction)
		}
		if o.Column != nil {
			if _, err := m.column(o.Column.bare()); err != nil {
				return err
			}
			continue
		}
		if o.Ordinal < 1 || o.Ordinal > len(m.columns) {
			return qerrors.Wrap(qerrors.ErrBadOrdinal, "ordinal %d outside SELECT list of %d", o.Ordinal, len(m.columns))
		}
	}
	return nil
}
