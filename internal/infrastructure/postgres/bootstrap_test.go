package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lucagalbu/task-manager/domain"
)

// catalogExecutor emulates the catalog queries issued during bootstrap.
type catalogExecutor struct {
	databases []string
	tables    []string
	columns   []string

	// createWorks controls whether CREATE statements take effect.
	createWorks bool
	executed    []string
}

func (c *catalogExecutor) Execute(_ context.Context, statement string, _ ...any) (int64, error) {
	c.executed = append(c.executed, statement)
	if !c.createWorks {
		return 0, nil
	}
	switch {
	case strings.HasPrefix(statement, "CREATE DATABASE "):
		c.databases = append(c.databases, strings.Trim(strings.TrimPrefix(statement, "CREATE DATABASE "), `"`))
	case strings.HasPrefix(statement, "CREATE TABLE "):
		name := strings.Fields(statement)[2]
		c.tables = append(c.tables, strings.Trim(name, `"`))
		for _, col := range TaskSchema {
			c.columns = append(c.columns, col.Name)
		}
	}
	return 0, nil
}

func (c *catalogExecutor) Query(_ context.Context, statement string, _ ...any) ([]Row, error) {
	var key string
	var values []string
	switch {
	case strings.Contains(statement, "pg_database"):
		key, values = "datname", c.databases
	case strings.Contains(statement, "information_schema.tables"):
		key, values = "table_name", c.tables
	case strings.Contains(statement, "information_schema.columns"):
		key, values = "column_name", c.columns
	default:
		return nil, errors.New("unexpected statement: " + statement)
	}
	rows := make([]Row, 0, len(values))
	for _, v := range values {
		rows = append(rows, Row{key: v})
	}
	return rows, nil
}

func TestEnsureDatabaseCreatesMissing(t *testing.T) {
	exec := &catalogExecutor{databases: []string{"postgres"}, createWorks: true}
	b := NewBootstrapper(nil)

	if err := b.EnsureDatabase(context.Background(), exec, "tasks"); err != nil {
		t.Fatalf("EnsureDatabase failed: %v", err)
	}
	if len(exec.executed) != 1 || exec.executed[0] != `CREATE DATABASE "tasks"` {
		t.Errorf("Unexpected statements %v", exec.executed)
	}

	// Second run is a no-op.
	exec.executed = nil
	if err := b.EnsureDatabase(context.Background(), exec, "tasks"); err != nil {
		t.Fatalf("EnsureDatabase failed on rerun: %v", err)
	}
	if len(exec.executed) != 0 {
		t.Errorf("Expected no statements on rerun, got %v", exec.executed)
	}
}

func TestEnsureDatabaseFailsWhenCreateHasNoEffect(t *testing.T) {
	exec := &catalogExecutor{databases: []string{"postgres"}}
	err := NewBootstrapper(nil).EnsureDatabase(context.Background(), exec, "tasks")
	if !domain.IsDomainError(err, domain.ErrCodeBootstrap) {
		t.Fatalf("Expected BOOTSTRAP error, got %v", err)
	}
	if !strings.Contains(err.Error(), "unable to create database") {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestEnsureDatabaseRejectsBadName(t *testing.T) {
	exec := &catalogExecutor{createWorks: true}
	err := NewBootstrapper(nil).EnsureDatabase(context.Background(), exec, `tasks"; DROP DATABASE x; --`)
	if !domain.IsDomainError(err, domain.ErrCodeBootstrap) {
		t.Fatalf("Expected BOOTSTRAP error, got %v", err)
	}
	if len(exec.executed) != 0 {
		t.Errorf("No statement should run for an invalid name, got %v", exec.executed)
	}
}

func TestEnsureTable(t *testing.T) {
	tests := []struct {
		name    string
		exec    *catalogExecutor
		wantErr bool
		creates bool
	}{
		{
			name:    "creates missing table",
			exec:    &catalogExecutor{createWorks: true},
			creates: true,
		},
		{
			name: "existing table with full column set",
			exec: &catalogExecutor{
				tables:  []string{"tasks"},
				columns: []string{"id", "title", "description", "date", "start_time", "end_time", "goal", "status"},
			},
		},
		{
			name:    "create has no effect",
			exec:    &catalogExecutor{},
			wantErr: true,
			creates: true,
		},
		{
			name: "existing table missing columns",
			exec: &catalogExecutor{
				tables:  []string{"tasks"},
				columns: []string{"id", "title", "status"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewBootstrapper(nil).EnsureTable(context.Background(), tt.exec, "tasks")
			if tt.wantErr && !domain.IsDomainError(err, domain.ErrCodeBootstrap) {
				t.Fatalf("Expected BOOTSTRAP error, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("EnsureTable failed: %v", err)
			}
			created := len(tt.exec.executed) == 1 && strings.HasPrefix(tt.exec.executed[0], `CREATE TABLE "tasks"`)
			if created != tt.creates {
				t.Errorf("Expected create=%v, statements %v", tt.creates, tt.exec.executed)
			}
		})
	}
}

func TestCreateTableStatement(t *testing.T) {
	got := createTableStatement("tasks")
	want := `CREATE TABLE "tasks" ("id" BIGSERIAL PRIMARY KEY, "title" VARCHAR(255) NOT NULL, "description" TEXT, ` +
		`"date" DATE, "start_time" TIME, "end_time" TIME, "goal" VARCHAR(255), "status" VARCHAR(50) NOT NULL)`
	if got != want {
		t.Errorf("Expected\n%s\ngot\n%s", want, got)
	}
}

func TestValidateIdentifier(t *testing.T) {
	for _, name := range []string{"tasks", "_t1", "Tasks_2024"} {
		if err := ValidateIdentifier(name); err != nil {
			t.Errorf("ValidateIdentifier(%q) returned %v", name, err)
		}
	}
	for _, name := range []string{"", "1tasks", "tasks;", "my-tasks", strings.Repeat("a", 64)} {
		if err := ValidateIdentifier(name); err == nil {
			t.Errorf("ValidateIdentifier(%q) should fail", name)
		}
	}
}
