package compiler

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcinkonwiak/projekt-technologie-obiektowe/catalog"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/query"
	qerrors "github.com/marcinkonwiak/projekt-technologie-obiektowe/query/errors"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/types"
)

func testSnapshot() *catalog.Snapshot {
	return catalog.NewSnapshot([]*catalog.Table{
		{
			Name: "Customers",
			Columns: []catalog.Column{
				{Name: "id", Type: types.ColumnTypeInteger},
				{Name: "name", Type: types.ColumnTypeVarchar},
				{Name: "city", Type: types.ColumnTypeVarchar, Nullable: true},
			},
		},
		{
			Name: "Orders",
			Columns: []catalog.Column{
				{Name: "id", Type: types.ColumnTypeInteger},
				{Name: "customer_id", Type: types.ColumnTypeInteger},
				{Name: "total", Type: types.ColumnTypeNumeric},
			},
			ForeignKeys: []catalog.ForeignKey{
				{Column: "customer_id", ReferencedTable: "Customers", ReferencedColumn: "id"},
			},
		},
	})
}

func golden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
}

func TestCompileSimpleFilter(t *testing.T) {
	m := query.NewModel(testSnapshot())
	_, err := m.AddTable("Customers")
	require.NoError(t, err)
	require.NoError(t, m.AddColumn(query.ColumnRef{Table: "Customers", Column: "id"}))
	require.NoError(t, m.AddFilter(query.FilterPredicate{
		Column:   query.ColumnRef{Table: "Customers", Column: "city"},
		Operator: query.OpEq,
		Values:   []string{"Kielce"},
	}))

	cq, err := Compile(m)
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT "Customers"."id" AS "customers_id" FROM "Customers" WHERE "Customers"."city" = $1`,
		cq.SQL)
	assert.Equal(t, []any{"Kielce"}, cq.Params)
	assert.NoError(t, Verify(cq.SQL))
}

func TestCompileAggregateQuery(t *testing.T) {
	m := query.NewModel(testSnapshot())
	_, err := m.AddTable("Orders")
	require.NoError(t, err)
	_, err = m.AddTable("Customers")
	require.NoError(t, err)
	require.NoError(t, m.AddJoin(query.JoinEdge{
		Left: "Orders", Right: "Customers", Kind: query.JoinLeft,
		Conditions: []query.JoinCondition{{LeftColumn: "customer_id", RightColumn: "id"}},
	}))
	require.NoError(t, m.AddColumn(query.ColumnRef{Table: "Customers", Column: "city"}))
	require.NoError(t, m.AddColumn(query.ColumnRef{Table: "Orders", Column: "id", Aggregate: types.AggCount}))
	require.NoError(t, m.SetGroup([]query.ColumnRef{{Table: "Customers", Column: "city"}}))
	require.NoError(t, m.SetOrder([]query.OrderEntry{{Ordinal: 2, Direction: query.Descending}}))
	require.NoError(t, m.SetLimit(10))

	cq, err := Compile(m)
	require.NoError(t, err)
	assert.Empty(t, cq.Params)
	assert.NoError(t, Verify(cq.SQL))
	golden(t).Assert(t, "aggregate_query", []byte(cq.SQL))
}

func TestCompileClauseOrder(t *testing.T) {
	m := query.NewModel(testSnapshot())
	_, err := m.AddTable("Orders")
	require.NoError(t, err)
	_, err = m.AddTable("Customers")
	require.NoError(t, err)
	require.NoError(t, m.AddColumn(query.ColumnRef{Table: "Customers", Column: "city"}))
	require.NoError(t, m.AddColumn(query.ColumnRef{Table: "Orders", Column: "total", Aggregate: types.AggSum}))
	require.NoError(t, m.AddFilter(query.FilterPredicate{
		Column:   query.ColumnRef{Table: "Customers", Column: "city"},
		Operator: query.OpIsNotNull,
	}))
	require.NoError(t, m.SetGroup([]query.ColumnRef{{Table: "Customers", Column: "city"}}))
	require.NoError(t, m.SetOrder([]query.OrderEntry{{Ordinal: 1, Direction: query.Ascending}}))
	require.NoError(t, m.SetLimit(5))

	cq, err := Compile(m)
	require.NoError(t, err)

	sql := cq.SQL
	order := []string{"SELECT ", " FROM ", " INNER JOIN ", " WHERE ", " GROUP BY ", " ORDER BY ", " LIMIT "}
	last := -1
	for _, clause := range order {
		idx := indexAfter(sql, clause, last)
		require.Greaterf(t, idx, last, "clause %q out of order in %q", clause, sql)
		last = idx
	}
	assert.NoError(t, Verify(sql))
}

func indexAfter(s, sub string, after int) int {
	for i := after + 1; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestCompileDeterministic(t *testing.T) {
	build := func() *CompiledQuery {
		m := query.NewModel(testSnapshot())
		_, err := m.AddTable("Customers")
		require.NoError(t, err)
		_, err = m.AddTable("Orders")
		require.NoError(t, err)
		require.NoError(t, m.AddColumn(query.ColumnRef{Table: "Customers", Column: "name"}))
		require.NoError(t, m.AddFilter(query.FilterPredicate{
			Column:   query.ColumnRef{Table: "Orders", Column: "total"},
			Operator: query.OpGreater,
			Values:   []string{"100"},
		}))
		cq, err := Compile(m)
		require.NoError(t, err)
		return cq
	}

	first := build()
	for range 10 {
		next := build()
		assert.Equal(t, first.SQL, next.SQL)
		assert.Equal(t, first.Params, next.Params)
	}
}

func TestCompileEmptySelectionExpands(t *testing.T) {
	m := query.NewModel(testSnapshot())
	_, err := m.AddTable("Customers")
	require.NoError(t, err)

	cq, err := Compile(m)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "Customers"."id" AS "customers_id", "Customers"."name" AS "customers_name", "Customers"."city" AS "customers_city" FROM "Customers"`,
		cq.SQL)
	assert.NoError(t, Verify(cq.SQL))
}

func TestCompileSelfJoinAliases(t *testing.T) {
	m := query.NewModel(testSnapshot())
	_, err := m.AddTable("Customers")
	require.NoError(t, err)
	alias, err := m.AddTable("Customers")
	require.NoError(t, err)
	require.Equal(t, "Customers_2", alias)
	require.NoError(t, m.AddJoin(query.JoinEdge{
		Left: "Customers", Right: "Customers_2", Kind: query.JoinInner,
		Conditions: []query.JoinCondition{{LeftColumn: "city", RightColumn: "city"}},
	}))
	require.NoError(t, m.AddColumn(query.ColumnRef{Table: "Customers", Column: "name"}))
	require.NoError(t, m.AddColumn(query.ColumnRef{Table: "Customers_2", Column: "name"}))

	cq, err := Compile(m)
	require.NoError(t, err)
	assert.Contains(t, cq.SQL, `"Customers" AS "Customers_2"`)
	assert.Contains(t, cq.SQL, `AS "customers_2_name"`)
	assert.NoError(t, Verify(cq.SQL))
}

func TestCompileMixedConjunctions(t *testing.T) {
	m := query.NewModel(testSnapshot())
	_, err := m.AddTable("Customers")
	require.NoError(t, err)
	require.NoError(t, m.AddColumn(query.ColumnRef{Table: "Customers", Column: "id"}))

	add := func(column, value string, op query.FilterOperator, conj query.Conjunction) {
		require.NoError(t, m.AddFilter(query.FilterPredicate{
			Column:   query.ColumnRef{Table: "Customers", Column: column},
			Operator: op,
			Values:   []string{value},
			Conj:     conj,
		}))
	}
	add("city", "Kielce", query.OpEq, query.ConjAnd)
	add("city", "Radom", query.OpEq, query.ConjOr)
	add("name", "A%", query.OpLike, query.ConjAnd)

	cq, err := Compile(m)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "Customers"."id" AS "customers_id" FROM "Customers" WHERE (("Customers"."city" = $1) OR "Customers"."city" = $2) AND "Customers"."name" LIKE $3`,
		cq.SQL)
	assert.Equal(t, []any{"Kielce", "Radom", "A%"}, cq.Params)
	assert.NoError(t, Verify(cq.SQL))
}

func TestCompileUniformConjunctionsStayFlat(t *testing.T) {
	m := query.NewModel(testSnapshot())
	_, err := m.AddTable("Customers")
	require.NoError(t, err)
	require.NoError(t, m.AddColumn(query.ColumnRef{Table: "Customers", Column: "id"}))

	for _, city := range []string{"Kielce", "Radom"} {
		require.NoError(t, m.AddFilter(query.FilterPredicate{
			Column:   query.ColumnRef{Table: "Customers", Column: "city"},
			Operator: query.OpNotEq,
			Values:   []string{city},
		}))
	}

	cq, err := Compile(m)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "Customers"."id" AS "customers_id" FROM "Customers" WHERE "Customers"."city" <> $1 AND "Customers"."city" <> $2`,
		cq.SQL)
}

func TestCompileInAndNullOperators(t *testing.T) {
	m := query.NewModel(testSnapshot())
	_, err := m.AddTable("Customers")
	require.NoError(t, err)
	require.NoError(t, m.AddColumn(query.ColumnRef{Table: "Customers", Column: "name"}))
	require.NoError(t, m.AddFilter(query.FilterPredicate{
		Column:   query.ColumnRef{Table: "Customers", Column: "city"},
		Operator: query.OpIn,
		Values:   []string{"Kielce", "Radom", "Lublin"},
	}))
	require.NoError(t, m.AddFilter(query.FilterPredicate{
		Column:   query.ColumnRef{Table: "Customers", Column: "city"},
		Operator: query.OpIsNull,
	}))

	cq, err := Compile(m)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "Customers"."name" AS "customers_name" FROM "Customers" WHERE "Customers"."city" IN ($1, $2, $3) AND "Customers"."city" IS NULL`,
		cq.SQL)
	assert.Equal(t, []any{"Kielce", "Radom", "Lublin"}, cq.Params)
	assert.NoError(t, Verify(cq.SQL))
}

func TestCompileNeverInlinesValues(t *testing.T) {
	hostile := `Kielce'; DROP TABLE "Customers"; --`

	m := query.NewModel(testSnapshot())
	_, err := m.AddTable("Customers")
	require.NoError(t, err)
	require.NoError(t, m.AddColumn(query.ColumnRef{Table: "Customers", Column: "id"}))
	require.NoError(t, m.AddFilter(query.FilterPredicate{
		Column:   query.ColumnRef{Table: "Customers", Column: "city"},
		Operator: query.OpEq,
		Values:   []string{hostile},
	}))

	cq, err := Compile(m)
	require.NoError(t, err)
	assert.NotContains(t, cq.SQL, "Kielce")
	assert.NotContains(t, cq.SQL, "DROP")
	assert.Equal(t, []any{hostile}, cq.Params)
	assert.NoError(t, Verify(cq.SQL))
}

func TestCompileDuplicateOutputAliases(t *testing.T) {
	m := query.NewModel(testSnapshot())
	_, err := m.AddTable("Customers")
	require.NoError(t, err)
	require.NoError(t, m.AddColumn(query.ColumnRef{Table: "Customers", Column: "name"}))
	require.NoError(t, m.AddColumn(query.ColumnRef{Table: "Customers", Column: "name"}))

	cq, err := Compile(m)
	require.NoError(t, err)
	assert.Contains(t, cq.SQL, `AS "customers_name",`)
	assert.Contains(t, cq.SQL, `AS "customers_name_2"`)
	assert.NoError(t, Verify(cq.SQL))
}

func TestCompileOrderByColumnAndAggregate(t *testing.T) {
	m := query.NewModel(testSnapshot())
	_, err := m.AddTable("Orders")
	require.NoError(t, err)
	_, err = m.AddTable("Customers")
	require.NoError(t, err)
	require.NoError(t, m.AddColumn(query.ColumnRef{Table: "Customers", Column: "city"}))
	require.NoError(t, m.AddColumn(query.ColumnRef{Table: "Orders", Column: "total", Aggregate: types.AggSum}))
	require.NoError(t, m.SetGroup([]query.ColumnRef{{Table: "Customers", Column: "city"}}))
	require.NoError(t, m.SetOrder([]query.OrderEntry{
		{Column: &query.ColumnRef{Table: "Orders", Column: "total", Aggregate: types.AggSum}, Direction: query.Descending},
		{Column: &query.ColumnRef{Table: "Customers", Column: "city"}, Direction: query.Ascending},
	}))

	cq, err := Compile(m)
	require.NoError(t, err)
	assert.Contains(t, cq.SQL, `ORDER BY SUM("Orders"."total") DESC, "Customers"."city" ASC`)
	assert.NoError(t, Verify(cq.SQL))
}

func TestCompileRejectsInvalidModel(t *testing.T) {
	m := query.NewModel(testSnapshot())

	_, err := m.Resolve()
	require.Error(t, err)

	_, err = Compile(m)
	require.Error(t, err)
	assert.ErrorIs(t, err, qerrors.ErrInvalidModel)
}

func TestCompileDisconnectedTables(t *testing.T) {
	snapshot := catalog.NewSnapshot([]*catalog.Table{
		{Name: "A", Columns: []catalog.Column{{Name: "id", Type: types.ColumnTypeInteger}}},
		{Name: "B", Columns: []catalog.Column{{Name: "id", Type: types.ColumnTypeInteger}}},
	})
	m := query.NewModel(snapshot)
	_, err := m.AddTable("A")
	require.NoError(t, err)
	_, err = m.AddTable("B")
	require.NoError(t, err)

	_, err = Compile(m)
	require.Error(t, err)
	assert.ErrorIs(t, err, qerrors.ErrDisconnectedTables)
}

func TestCompileQuotedIdentifierEscaping(t *testing.T) {
	snapshot := catalog.NewSnapshot([]*catalog.Table{
		{Name: `we"ird`, Columns: []catalog.Column{{Name: "id", Type: types.ColumnTypeInteger}}},
	})
	m := query.NewModel(snapshot)
	_, err := m.AddTable(`we"ird`)
	require.NoError(t, err)

	cq, err := Compile(m)
	require.NoError(t, err)
	assert.Contains(t, cq.SQL, `FROM "we""ird"`)
	assert.NoError(t, Verify(cq.SQL))
}
