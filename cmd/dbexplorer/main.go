// Package main provides the dbexplorer CLI.
//
// The CLI supports:
//   - serve: run the query-builder HTTP API against a configured connection
//   - connections: manage named database connections in the config file
//   - tables: introspect a database and print its tables
//
// Connection settings live in a JSON config file under the user's config
// directory; see the config package.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
