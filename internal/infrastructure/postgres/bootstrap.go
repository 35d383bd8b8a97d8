package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/lucagalbu/task-manager/domain"
)

// Column is one column of the task table.
type Column struct {
	Name       string
	Definition string
}

// TaskSchema is the fixed column set of the task table. Status is stored as its label.
var TaskSchema = []Column{
	{Name: "id", Definition: "BIGSERIAL PRIMARY KEY"},
	{Name: "title", Definition: "VARCHAR(255) NOT NULL"},
	{Name: "description", Definition: "TEXT"},
	{Name: "date", Definition: "DATE"},
	{Name: "start_time", Definition: "TIME"},
	{Name: "end_time", Definition: "TIME"},
	{Name: "goal", Definition: "VARCHAR(255)"},
	{Name: "status", Definition: "VARCHAR(50) NOT NULL"},
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateIdentifier rejects database and table names that are not plain identifiers.
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return domain.NewError(domain.ErrCodeInvalid, fmt.Sprintf("invalid identifier %q", name))
	}
	return nil
}

// Bootstrapper makes sure the task database and table exist. Every step is
// check, create, verify; a failed verification is fatal.
type Bootstrapper struct {
	logger *zap.Logger
}

func NewBootstrapper(logger *zap.Logger) *Bootstrapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bootstrapper{logger: logger}
}

// EnsureDatabase creates the database through a session on the maintenance database.
func (b *Bootstrapper) EnsureDatabase(ctx context.Context, admin Executor, name string) error {
	if err := ValidateIdentifier(name); err != nil {
		return domain.WrapError(domain.ErrCodeBootstrap, "unable to create database", err)
	}

	b.logger.Info("checking existence of tasks database", zap.String("database", name))
	exists, err := b.databaseExists(ctx, admin, name)
	if err != nil {
		return domain.WrapError(domain.ErrCodeBootstrap, "unable to list databases", err)
	}
	if exists {
		b.logger.Info("database already existing", zap.String("database", name))
		return nil
	}

	b.logger.Info("database not found, creating it", zap.String("database", name))
	if _, err := admin.Execute(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
		return domain.WrapError(domain.ErrCodeBootstrap, "unable to create database", err)
	}

	exists, err = b.databaseExists(ctx, admin, name)
	if err != nil {
		return domain.WrapError(domain.ErrCodeBootstrap, "unable to list databases", err)
	}
	if !exists {
		return domain.NewError(domain.ErrCodeBootstrap, "unable to create database")
	}
	return nil
}

// EnsureTable creates the task table in the current schema and checks its columns.
func (b *Bootstrapper) EnsureTable(ctx context.Context, db Executor, name string) error {
	if err := ValidateIdentifier(name); err != nil {
		return domain.WrapError(domain.ErrCodeBootstrap, "unable to create table", err)
	}

	b.logger.Info("checking existence of tasks table", zap.String("table", name))
	exists, err := b.tableExists(ctx, db, name)
	if err != nil {
		return domain.WrapError(domain.ErrCodeBootstrap, "unable to list tables", err)
	}

	if exists {
		b.logger.Info("table already existing", zap.String("table", name))
	} else {
		b.logger.Info("table not found, creating it", zap.String("table", name))
		if _, err := db.Execute(ctx, createTableStatement(name)); err != nil {
			return domain.WrapError(domain.ErrCodeBootstrap, "unable to create table", err)
		}
		exists, err = b.tableExists(ctx, db, name)
		if err != nil {
			return domain.WrapError(domain.ErrCodeBootstrap, "unable to list tables", err)
		}
		if !exists {
			return domain.NewError(domain.ErrCodeBootstrap, "unable to create table")
		}
	}

	return b.verifyColumns(ctx, db, name)
}

func (b *Bootstrapper) databaseExists(ctx context.Context, admin Executor, name string) (bool, error) {
	rows, err := admin.Query(ctx, "SELECT datname::text AS datname FROM pg_database WHERE NOT datistemplate")
	if err != nil {
		return false, err
	}
	return containsName(rows, "datname", name), nil
}

func (b *Bootstrapper) tableExists(ctx context.Context, db Executor, name string) (bool, error) {
	rows, err := db.Query(ctx, `
	SELECT table_name::text AS table_name
	FROM information_schema.tables
	WHERE table_schema = current_schema()
	`)
	if err != nil {
		return false, err
	}
	return containsName(rows, "table_name", name), nil
}

func (b *Bootstrapper) verifyColumns(ctx context.Context, db Executor, table string) error {
	rows, err := db.Query(ctx, `
	SELECT column_name::text AS column_name
	FROM information_schema.columns
	WHERE table_schema = current_schema() AND table_name = $1
	`, table)
	if err != nil {
		return domain.WrapError(domain.ErrCodeBootstrap, "unable to list columns", err)
	}

	var missing []string
	for _, col := range TaskSchema {
		if !containsName(rows, "column_name", col.Name) {
			missing = append(missing, col.Name)
		}
	}
	if len(missing) > 0 {
		return domain.NewError(domain.ErrCodeBootstrap,
			fmt.Sprintf("table %s is missing columns: %s", table, strings.Join(missing, ", ")))
	}
	return nil
}

func createTableStatement(table string) string {
	defs := make([]string, 0, len(TaskSchema))
	for _, col := range TaskSchema {
		defs = append(defs, pgx.Identifier{col.Name}.Sanitize()+" "+col.Definition)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", pgx.Identifier{table}.Sanitize(), strings.Join(defs, ", "))
}

func containsName(rows []Row, column, name string) bool {
	for _, row := range rows {
		if v, ok := row[column].(string); ok && v == name {
			return true
		}
	}
	return false
}
