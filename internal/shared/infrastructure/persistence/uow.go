package persistence

import "context"

// UnitOfWork spans multiple repository writes in one transaction.
// Begin returns a context carrying the transaction; repositories that
// find one there join it instead of opening their own.
type UnitOfWork interface {
	Begin(ctx context.Context) (context.Context, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

var (
	_ UnitOfWork = (*PostgresUnitOfWork)(nil)
	_ UnitOfWork = (*SQLiteUnitOfWork)(nil)
)
