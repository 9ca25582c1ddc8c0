package executor

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marcinkonwiak/projekt-technologie-obiektowe/logger"
	qerrors "github.com/marcinkonwiak/projekt-technologie-obiektowe/query/errors"
)

// Pool owns the connection lifecycle to one configured database. It wraps
// pgxpool so the rest of the system only sees the Querier and batch
// interfaces.
type Pool struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for the given DSN and verifies it with a ping
func Connect(ctx context.Context, dsn string) (*Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, qerrors.WrapErr(qerrors.ErrExecution, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.ErrorContext(ctx, "database ping failed", "error", err)
		return nil, qerrors.WrapErr(qerrors.ErrExecution, err)
	}
	return &Pool{pool: pool}, nil
}

// Ping checks that the database is still reachable
func (p *Pool) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return qerrors.WrapErr(qerrors.ErrExecution, err)
	}
	return nil
}

// Pgx exposes the underlying pool for the catalog introspector and executor
func (p *Pool) Pgx() *pgxpool.Pool {
	return p.pool
}

// Close releases all connections
func (p *Pool) Close() {
	p.pool.Close()
}
