package session

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcinkonwiak/projekt-technologie-obiektowe/catalog"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/query"
	qerrors "github.com/marcinkonwiak/projekt-technologie-obiektowe/query/errors"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/types"
)

type fixedSource struct {
	snapshot *catalog.Snapshot
}

func (s *fixedSource) Introspect(ctx context.Context) (*catalog.Snapshot, error) {
	return s.snapshot, nil
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	snapshot := catalog.NewSnapshot([]*catalog.Table{
		{
			Name: "Customers",
			Columns: []catalog.Column{
				{Name: "id", Type: types.ColumnTypeInteger},
				{Name: "city", Type: types.ColumnTypeVarchar, Nullable: true},
			},
		},
	})
	cat := catalog.New(&fixedSource{snapshot: snapshot})
	require.NoError(t, cat.Refresh(context.Background()))
	return cat
}

func TestNewSessionHasUniqueID(t *testing.T) {
	cat := testCatalog(t)

	a := New(cat, nil)
	b := New(cat, nil)

	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotNil(t, a.Model)
}

func TestSessionCompile(t *testing.T) {
	s := New(testCatalog(t), nil)

	_, err := s.Model.AddTable("Customers")
	require.NoError(t, err)
	require.NoError(t, s.Model.AddColumn(query.ColumnRef{Table: "Customers", Column: "id"}))

	cq, err := s.Compile()
	require.NoError(t, err)
	assert.Equal(t, `SELECT "Customers"."id" AS "customers_id" FROM "Customers"`, cq.SQL)
}

func TestSessionExecuteFailsFastOnBadModel(t *testing.T) {
	s := New(testCatalog(t), nil)

	// empty model cannot resolve; the executor must never be reached
	_, err := s.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, qerrors.ErrInvalidModel)
}

func TestSessionReset(t *testing.T) {
	s := New(testCatalog(t), nil)
	_, err := s.Model.AddTable("Customers")
	require.NoError(t, err)

	s.Reset()
	assert.Empty(t, s.Model.Tables())
}

func TestSessionTemplateRoundTrip(t *testing.T) {
	s := New(testCatalog(t), nil)
	_, err := s.Model.AddTable("Customers")
	require.NoError(t, err)
	require.NoError(t, s.Model.AddColumn(query.ColumnRef{Table: "Customers", Column: "city"}))

	tpl := s.Template()

	s.Reset()
	require.Empty(t, s.Model.Tables())

	require.NoError(t, s.LoadTemplate(tpl))
	assert.Len(t, s.Model.Tables(), 1)
	assert.Len(t, s.Model.Columns(), 1)
}

func TestSessionLoadTemplateKeepsModelOnFailure(t *testing.T) {
	s := New(testCatalog(t), nil)
	_, err := s.Model.AddTable("Customers")
	require.NoError(t, err)

	bad := &query.Template{Tables: []query.TableRef{{Table: "Invoices", Alias: "Invoices"}}}
	err = s.LoadTemplate(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, qerrors.ErrUnknownTable)
	assert.Len(t, s.Model.Tables(), 1)
}

func TestRegistryLifecycle(t *testing.T) {
	reg := NewRegistry(testCatalog(t), nil)

	s := reg.Create()
	assert.Equal(t, 1, reg.Len())

	got, ok := reg.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = reg.Get(uuid.New())
	assert.False(t, ok)

	reg.Remove(s.ID)
	assert.Equal(t, 0, reg.Len())
	_, ok = reg.Get(s.ID)
	assert.False(t, ok)
}
