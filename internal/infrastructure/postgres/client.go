package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/lucagalbu/task-manager/domain"
	"github.com/lucagalbu/task-manager/internal/config"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Manager owns the pgx pool connected to the task database.
type Manager struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Connect creates and validates the pool. Any failure is reported as a CONNECTION error.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pgxCfg, err := pgxpool.ParseConfig(cfg.URL())
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeConnection, "invalid postgres configuration", err)
	}

	if cfg.MaxOpenConns > 0 {
		pgxCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pgxCfg.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.MaxConnLifetime > 0 {
		pgxCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	m, err := open(ctx, pgxCfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to postgres", zap.String("host", cfg.Host), zap.String("db", cfg.Name))
	return m, nil
}

// ConnectURL opens a Manager from a connection string with pgx pool defaults.
func ConnectURL(ctx context.Context, connString string, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeConnection, "invalid postgres configuration", err)
	}
	return open(ctx, pgxCfg, logger)
}

func open(ctx context.Context, pgxCfg *pgxpool.Config, logger *zap.Logger) (*Manager, error) {
	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeConnection, "unable to connect to postgres", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, domain.WrapError(domain.ErrCodeConnection, "unable to connect to postgres", err)
	}
	return &Manager{pool: pool, logger: logger}, nil
}

func (m *Manager) Execute(ctx context.Context, statement string, params ...any) (int64, error) {
	return execute(ctx, m.pool, statement, params...)
}

func (m *Manager) Query(ctx context.Context, statement string, params ...any) ([]Row, error) {
	return query(ctx, m.pool, statement, params...)
}

// InTx runs fn in a transaction; it is rolled back when fn or the commit fails.
func (m *Manager) InTx(ctx context.Context, fn func(Executor) error) error {
	return pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
		return fn(txExecutor{tx: tx})
	})
}

func (m *Manager) Ping(ctx context.Context) error {
	if m == nil || m.pool == nil {
		return domain.NewError(domain.ErrCodeConnection, "postgres pool not initialized")
	}
	return m.pool.Ping(ctx)
}

// Close releases the pool and logs the result.
func (m *Manager) Close() {
	if m == nil || m.pool == nil {
		return
	}
	m.pool.Close()
	m.logger.Info("postgres pool closed")
}

type txExecutor struct {
	tx pgx.Tx
}

func (t txExecutor) Execute(ctx context.Context, statement string, params ...any) (int64, error) {
	return execute(ctx, t.tx, statement, params...)
}

func (t txExecutor) Query(ctx context.Context, statement string, params ...any) ([]Row, error) {
	return query(ctx, t.tx, statement, params...)
}

func execute(ctx context.Context, q pgxQuerier, statement string, params ...any) (int64, error) {
	tag, err := q.Exec(ctx, statement, params...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func query(ctx context.Context, q pgxQuerier, statement string, params ...any) ([]Row, error) {
	rows, err := q.Query(ctx, statement, params...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToMap)
}

var (
	_ Transactor = (*Manager)(nil)
	_ Executor   = txExecutor{}
)
