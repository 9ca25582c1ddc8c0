package compiler

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Verify parses the SQL text with the PostgreSQL grammar and returns the
// parse error, if any. Used as a safety net in tests and by callers that
// want to reject a statement before handing it to the execution collaborator.
func Verify(sql string) error {
	_, err := pg_query.Parse(sql)
	return err
}
