package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/marcinkonwiak/projekt-technologie-obiektowe/config"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/logger"
)

var (
	// Global state set during PersistentPreRunE
	cfg *config.Config

	// Persistent flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "dbexplorer",
	Short: "Visual query builder for PostgreSQL",
	Long: `dbexplorer - build PostgreSQL queries by example

Pick tables, columns, filters, grouping and ordering; dbexplorer resolves
joins from foreign keys and compiles a deterministic, parameterized SELECT.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		if verbose {
			logger.SetLogLevel(slog.LevelDebug)
		}
		var err error
		cfg, err = config.Load(cfgFile)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newConnectionsCommand())
	rootCmd.AddCommand(newTablesCommand())
}
