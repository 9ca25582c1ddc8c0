// Package compiler renders a validated query model into parameterized
// PostgreSQL text. Compilation is pure: no I/O, no catalog round trips, and
// structurally equal models always produce byte-identical output.
package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/marcinkonwiak/projekt-technologie-obiektowe/query"
	qerrors "github.com/marcinkonwiak/projekt-technologie-obiektowe/query/errors"
)

// CompiledQuery is the immutable compiler output: SQL text with positional
// placeholders and the values to bind, in placeholder order. No user value
// ever appears in the text.
type CompiledQuery struct {
	SQL    string
	Params []any
}

// Compile renders the model into a single SELECT statement. The model must
// already satisfy the validation rules; Compile re-checks them and fails
// with InvalidModel instead of emitting malformed SQL when they do not hold.
func Compile(m *query.Model) (*CompiledQuery, error) {
	if err := m.Validate(); err != nil {
		return nil, qerrors.Wrap(qerrors.ErrInvalidModel, "model failed validation: %v", err)
	}
	res, err := m.Resolve()
	if err != nil {
		if qerrors.IsResolution(err) {
			return nil, err
		}
		return nil, qerrors.Wrap(qerrors.ErrInvalidModel, "model failed resolution: %v", err)
	}

	var sb strings.Builder
	var params []any

	selects := selectList(m)
	sb.WriteString("SELECT ")
	for i, item := range selects {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(item.expr)
		sb.WriteString(" AS ")
		sb.WriteString(quoteIdent(item.alias))
	}

	sb.WriteString(" FROM ")
	sb.WriteString(renderTable(res.Root))

	for _, j := range res.Joins {
		switch j.Kind {
		case query.JoinLeft:
			sb.WriteString(" LEFT JOIN ")
		default:
			sb.WriteString(" INNER JOIN ")
		}
		sb.WriteString(renderTable(j.Table))
		sb.WriteString(" ON ")
		for i, cond := range j.Conditions {
			if i > 0 {
				sb.WriteString(" AND ")
			}
			sb.WriteString(qualified(cond.Left))
			sb.WriteString(" = ")
			sb.WriteString(qualified(cond.Right))
		}
	}

	if filters := m.Filters(); len(filters) > 0 {
		sb.WriteString(" WHERE ")
		expr, filterParams := renderFilters(filters, len(params)+1)
		sb.WriteString(expr)
		params = append(params, filterParams...)
	}

	if groupBy := m.GroupBy(); len(groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		for i, g := range groupBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(qualified(g))
		}
	}

	if orderBy := m.OrderBy(); len(orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, o := range orderBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			if o.Column != nil {
				sb.WriteString(renderColumn(*o.Column))
			} else {
				sb.WriteString(strconv.Itoa(o.Ordinal))
			}
			sb.WriteString(" ")
			sb.WriteString(string(o.Direction))
		}
	}

	if limit := m.Limit(); limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(*limit))
	}

	return &CompiledQuery{SQL: sb.String(), Params: params}, nil
}

type selectItem struct {
	expr  string
	alias string
}

// selectList renders the SELECT expressions in user-selection order. An
// empty selection expands to every column of every bound table, the way the
// visual layer shows a freshly picked table.
func selectList(m *query.Model) []selectItem {
	cols := m.Columns()
	if len(cols) == 0 {
		for _, t := range m.Tables() {
			table, ok := m.Snapshot().Table(t.Table)
			if !ok {
				continue
			}
			for _, c := range table.Columns {
				cols = append(cols, query.ColumnRef{Table: t.Alias, Column: c.Name})
			}
		}
	}

	items := make([]selectItem, len(cols))
	used := make(map[string]int, len(cols))
	for i, c := range cols {
		alias := outputAlias(c)
		if n := used[alias]; n > 0 {
			used[alias] = n + 1
			alias = fmt.Sprintf("%s_%d", alias, n+1)
		} else {
			used[alias] = 1
		}
		items[i] = selectItem{expr: renderColumn(c), alias: alias}
	}
	return items
}

// outputAlias derives the stable output name of a SELECT item
func outputAlias(c query.ColumnRef) string {
	base := strings.ToLower(c.Table) + "_" + strings.ToLower(c.Column)
	if c.Aggregate != "" {
		return strings.ToLower(string(c.Aggregate)) + "_" + base
	}
	return base
}

// renderFilters combines the predicates left to right. A uniform chain joins
// flat; as soon as AND and OR mix, the accumulated left side is wrapped in
// parentheses so the rendered SQL keeps strict left-to-right evaluation
// instead of SQL operator precedence.
func renderFilters(filters []query.FilterPredicate, nextParam int) (string, []any) {
	var params []any

	mixed := false
	for i := 1; i < len(filters); i++ {
		if filters[i].Conj != filters[1].Conj {
			mixed = true
			break
		}
	}

	expr := ""
	for i, f := range filters {
		rendered, values := renderPredicate(f, nextParam+len(params))
		params = append(params, values...)
		if i == 0 {
			expr = rendered
			continue
		}
		conj := string(f.Conj)
		if conj == "" {
			conj = string(query.ConjAnd)
		}
		if mixed {
			expr = "(" + expr + ") " + conj + " " + rendered
		} else {
			expr = expr + " " + conj + " " + rendered
		}
	}
	return expr, params
}

func renderPredicate(f query.FilterPredicate, nextParam int) (string, []any) {
	col := qualified(f.Column)
	switch f.Operator {
	case query.OpIsNull:
		return col + " IS NULL", nil
	case query.OpIsNotNull:
		return col + " IS NOT NULL", nil
	case query.OpIn:
		placeholders := make([]string, len(f.Values))
		params := make([]any, len(f.Values))
		for i, v := range f.Values {
			placeholders[i] = "$" + strconv.Itoa(nextParam+i)
			params[i] = v
		}
		return col + " IN (" + strings.Join(placeholders, ", ") + ")", params
	default:
		return col + " " + string(f.Operator) + " $" + strconv.Itoa(nextParam), []any{f.Values[0]}
	}
}

// renderColumn renders a column expression, wrapping the aggregate when set
func renderColumn(c query.ColumnRef) string {
	if c.Aggregate != "" {
		return string(c.Aggregate) + "(" + qualified(c) + ")"
	}
	return qualified(c)
}

// qualified renders alias.column with both identifiers quoted
func qualified(c query.ColumnRef) string {
	return quoteIdent(c.Table) + "." + quoteIdent(c.Column)
}

// renderTable renders a FROM/JOIN table, aliased when the alias differs from
// the table name (self-joins)
func renderTable(t query.TableRef) string {
	if t.Alias != t.Table {
		return quoteIdent(t.Table) + " AS " + quoteIdent(t.Alias)
	}
	return quoteIdent(t.Table)
}

// quoteIdent renders a double-quoted identifier, doubling embedded quotes.
// Quoting every identifier keeps statements immune to keyword collisions and
// case folding.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
