package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcinkonwiak/projekt-technologie-obiektowe/catalog"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/executor"
)

func newTablesCommand() *cobra.Command {
	var connection string

	cmd := &cobra.Command{
		Use:   "tables [table]",
		Short: "Introspect a database and print its tables",
		Long: `Introspect a database and print its tables.

Without arguments prints all table names. With a table name prints the
table's columns and foreign keys.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, ok := cfg.Connection(connection)
			if !ok {
				return fmt.Errorf("connection %q is not configured", connection)
			}

			ctx := cmd.Context()
			pool, err := executor.Connect(ctx, conn.DSN())
			if err != nil {
				return err
			}
			defer pool.Close()

			snapshot, err := catalog.NewIntrospector(pool.Pgx()).Introspect(ctx)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				for name := range snapshot.Tables() {
					cmd.Println(name)
				}
				return nil
			}

			columns, err := snapshot.Describe(args[0])
			if err != nil {
				return err
			}
			for _, col := range columns {
				nullable := "NOT NULL"
				if col.Nullable {
					nullable = "NULL"
				}
				cmd.Printf("%s\t%s\t%s\n", col.Name, col.Type, nullable)
			}

			fks, err := snapshot.ForeignKeysOf(args[0])
			if err != nil {
				return err
			}
			for _, fk := range fks {
				cmd.Printf("%s -> %s.%s\n", fk.Column, fk.ReferencedTable, fk.ReferencedColumn)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&connection, "connection", "c", "", "named connection from the config file (required)")
	_ = cmd.MarkFlagRequired("connection")

	return cmd
}
