package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/lucagalbu/task-manager/domain"
	"github.com/lucagalbu/task-manager/internal/config"
)

// AdminConn is a single session on the maintenance database. Postgres cannot switch
// databases inside a session, so database creation happens here before Connect.
type AdminConn struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenAdmin connects to cfg.AdminName using lib/pq.
func OpenAdmin(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*AdminConn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("postgres", cfg.AdminURL())
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeConnection, "invalid postgres configuration", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, domain.WrapError(domain.ErrCodeConnection, "unable to connect to postgres", err)
	}

	logger.Info("connected to postgres maintenance database", zap.String("host", cfg.Host), zap.String("db", cfg.AdminName))
	return &AdminConn{db: db, logger: logger}, nil
}

func (a *AdminConn) Execute(ctx context.Context, statement string, params ...any) (int64, error) {
	res, err := a.db.ExecContext(ctx, statement, params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (a *AdminConn) Query(ctx context.Context, statement string, params ...any) ([]Row, error) {
	rows, err := a.db.QueryContext(ctx, statement, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make(Row, len(columns))
		for i, name := range columns {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
				continue
			}
			row[name] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (a *AdminConn) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	a.logger.Debug("closing postgres maintenance connection")
	return a.db.Close()
}

var _ Executor = (*AdminConn)(nil)
