package query

import (
	"encoding/json"
	"fmt"

	"github.com/marcinkonwiak/projekt-technologie-obiektowe/catalog"
)

// Template is a serializable snapshot of a Model, sufficient to reconstruct
// it exactly. Saved templates survive sessions; loading replays the state
// against a fresh catalog snapshot so stale schemas are caught.
type Template struct {
	Tables  []TableRef        `json:"tables,omitempty"`
	Columns []ColumnRef       `json:"columns,omitempty"`
	Joins   []JoinEdge        `json:"joins,omitempty"`
	Filters []FilterPredicate `json:"filters,omitempty"`
	GroupBy []ColumnRef       `json:"group_by,omitempty"`
	OrderBy []OrderEntry      `json:"order_by,omitempty"`
	Limit   *int              `json:"limit,omitempty"`
}

// Template captures the model's current state
func (m *Model) Template() *Template {
	t := &Template{
		Tables:  append([]TableRef(nil), m.tables...),
		Columns: append([]ColumnRef(nil), m.columns...),
		Filters: append([]FilterPredicate(nil), m.filters...),
		GroupBy: append([]ColumnRef(nil), m.groupBy...),
		Limit:   m.Limit(),
	}
	t.Joins = make([]JoinEdge, len(m.joins))
	for i, j := range m.joins {
		j.Conditions = append([]JoinCondition(nil), j.Conditions...)
		t.Joins[i] = j
	}
	t.OrderBy = make([]OrderEntry, len(m.orderBy))
	for i, o := range m.orderBy {
		if o.Column != nil {
			col := *o.Column
			o.Column = &col
		}
		t.OrderBy[i] = o
	}
	return t
}

// FromTemplate rebuilds a model from a saved template. The rebuilt state is
// validated as a whole; a template that no longer matches the schema fails
// with the usual validation errors.
func FromTemplate(snapshot *catalog.Snapshot, t *Template) (*Model, error) {
	m := NewModel(snapshot)
	err := m.mutate(func(next *Model) error {
		next.tables = append([]TableRef(nil), t.Tables...)
		next.columns = append([]ColumnRef(nil), t.Columns...)
		next.filters = append([]FilterPredicate(nil), t.Filters...)
		next.groupBy = append([]ColumnRef(nil), t.GroupBy...)
		next.joins = make([]JoinEdge, len(t.Joins))
		for i, j := range t.Joins {
			j.Conditions = append([]JoinCondition(nil), j.Conditions...)
			next.joins[i] = j
		}
		next.orderBy = make([]OrderEntry, len(t.OrderBy))
		for i, o := range t.OrderBy {
			if o.Column != nil {
				col := *o.Column
				o.Column = &col
			}
			next.orderBy[i] = o
		}
		if t.Limit != nil {
			n := *t.Limit
			next.limit = &n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Marshal serializes the template
func (t *Template) Marshal() ([]byte, error) {
	return json.Marshal(t)
}

// UnmarshalTemplate parses a serialized template
func UnmarshalTemplate(data []byte) (*Template, error) {
	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return &t, nil
}
