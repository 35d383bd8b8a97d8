package postgres

import "context"

// Row is a fetched row keyed by column name.
type Row = map[string]any

// Executor runs parameterized statements against a single database session or pool.
type Executor interface {
	// Execute runs a statement and returns the number of affected rows.
	Execute(ctx context.Context, statement string, params ...any) (int64, error)
	// Query runs a statement and returns every fetched row.
	Query(ctx context.Context, statement string, params ...any) ([]Row, error)
}

// Transactor runs fn inside one transaction, committing when fn returns nil.
type Transactor interface {
	Executor
	InTx(ctx context.Context, fn func(Executor) error) error
}
