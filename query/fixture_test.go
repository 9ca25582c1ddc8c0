package query

import (
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/catalog"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/types"
)

// testSnapshot builds the schema used across the package tests: a small shop
// database plus one deliberately unrelated table.
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
			Name: "OrderItems",
			Columns: []catalog.Column{
				{Name: "id", Type: types.ColumnTypeInteger},
				{Name: "order_id", Type: types.ColumnTypeInteger},
				{Name: "product_id", Type: types.ColumnTypeInteger},
				{Name: "quantity", Type: types.ColumnTypeInteger},
			},
			ForeignKeys: []catalog.ForeignKey{
				{Column: "order_id", ReferencedTable: "Orders", ReferencedColumn: "id"},
				{Column: "product_id", ReferencedTable: "Products", ReferencedColumn: "id"},
			},
		},
		{
			Name: "Orders",
			Columns: []catalog.Column{
				{Name: "id", Type: types.ColumnTypeInteger},
				{Name: "customer_id", Type: types.ColumnTypeInteger},
				{Name: "total", Type: types.ColumnTypeNumeric},
				{Name: "created_at", Type: types.ColumnTypeTimestamp},
			},
			ForeignKeys: []catalog.ForeignKey{
				{Column: "customer_id", ReferencedTable: "Customers", ReferencedColumn: "id"},
			},
		},
		{
			Name: "Products",
			Columns: []catalog.Column{
				{Name: "id", Type: types.ColumnTypeInteger},
				{Name: "name", Type: types.ColumnTypeVarchar},
				{Name: "price", Type: types.ColumnTypeNumeric},
				{Name: "metadata", Type: types.ColumnTypeJSONB, Nullable: true},
			},
		},
		{
			Name: "Tags",
			Columns: []catalog.Column{
				{Name: "id", Type: types.ColumnTypeInteger},
				{Name: "label", Type: types.ColumnTypeVarchar},
			},
		},
	})
}
