package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/marcinkonwiak/projekt-technologie-obiektowe/config"
)

func newConnectionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connections",
		Short: "Manage named database connections",
	}

	cmd.AddCommand(newConnectionsListCommand())
	cmd.AddCommand(newConnectionsAddCommand())
	cmd.AddCommand(newConnectionsRemoveCommand())

	return cmd
}

func newConnectionsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(cfg.Connections) == 0 {
				cmd.Println("no connections configured")
				return nil
			}
			names := make([]string, 0, len(cfg.Connections))
			for name := range cfg.Connections {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				conn := cfg.Connections[name]
				cmd.Printf("%s\t%s@%s:%d/%s\n", name, conn.User, conn.Host, conn.Port, conn.Database)
			}
			return nil
		},
	}
}

func newConnectionsAddCommand() *cobra.Command {
	conn := config.Connection{}

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add or replace a named connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.AddConnection(args[0], conn); err != nil {
				return err
			}
			cmd.Printf("connection %q saved\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&conn.Host, "host", "localhost", "database host")
	cmd.Flags().IntVar(&conn.Port, "port", 5432, "database port")
	cmd.Flags().StringVar(&conn.User, "user", "postgres", "database user")
	cmd.Flags().StringVar(&conn.Password, "password", "", "database password")
	cmd.Flags().StringVar(&conn.Database, "database", "", "database name (required)")
	_ = cmd.MarkFlagRequired("database")

	return cmd
}

func newConnectionsRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a named connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := cfg.RemoveConnection(args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("connection %q is not configured", args[0])
			}
			cmd.Printf("connection %q removed\n", args[0])
			return nil
		},
	}
}
