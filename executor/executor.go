// Package executor runs compiled queries against a live PostgreSQL database.
// It owns nothing about query construction; it is handed a CompiledQuery and
// streams rows back. Execution is the only blocking operation in the system
// and is cancellable through its context; a cancelled execution is never
// retried here.
package executor

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/marcinkonwiak/projekt-technologie-obiektowe/compiler"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/logger"
	qerrors "github.com/marcinkonwiak/projekt-technologie-obiektowe/query/errors"
)

// Rows is a finite row sequence. Restartable only by re-executing the query.
type Rows interface {
	// Columns returns the output column names, in SELECT-list order
	Columns() []string
	// Next advances to the next row, reporting false at the end
	Next() bool
	// Values returns the current row
	Values() ([]any, error)
	// Err returns the error that stopped iteration, if any
	Err() error
	// Close releases the underlying result set
	Close()
}

// Querier is the subset of a pgx connection the executor needs.
// *pgx.Conn and *pgxpool.Pool both satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Executor is the execution collaborator over a pgx connection or pool
type Executor struct {
	conn Querier
}

// New creates an executor on top of a pgx connection or pool
func New(conn Querier) *Executor {
	return &Executor{conn: conn}
}

// Execute runs a compiled query and streams its rows. Errors from the
// database are wrapped as ExecutionError and otherwise surfaced verbatim;
// the executor cannot diagnose them further.
func (e *Executor) Execute(ctx context.Context, cq *compiler.CompiledQuery) (Rows, error) {
	logger.DebugContext(ctx, "executing query", "sql", cq.SQL, "params", len(cq.Params))
	rows, err := e.conn.Query(ctx, cq.SQL, cq.Params...)
	if err != nil {
		logger.ErrorContext(ctx, "query execution failed", "error", err)
		return nil, qerrors.WrapErr(qerrors.ErrExecution, err)
	}
	return &pgxRows{rows: rows}, nil
}

// pgxRows adapts pgx.Rows to the Rows interface
type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Columns() []string {
	fields := r.rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func (r *pgxRows) Next() bool {
	return r.rows.Next()
}

func (r *pgxRows) Values() ([]any, error) {
	values, err := r.rows.Values()
	if err != nil {
		return nil, qerrors.WrapErr(qerrors.ErrExecution, err)
	}
	return values, nil
}

func (r *pgxRows) Err() error {
	if err := r.rows.Err(); err != nil {
		return qerrors.WrapErr(qerrors.ErrExecution, err)
	}
	return nil
}

func (r *pgxRows) Close() {
	r.rows.Close()
}
