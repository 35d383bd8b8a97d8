package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/lucagalbu/task-manager/domain"
	pgInfra "github.com/lucagalbu/task-manager/internal/infrastructure/postgres"
	"github.com/lucagalbu/task-manager/repository"
)

type taskRepository struct {
	db     pgInfra.Transactor
	codec  FieldCodec
	logger *zap.Logger

	table      string
	selectStmt string
}

// NewTaskRepository returns a Postgres-backed TaskRepository over table.
// The table must already exist; see pgInfra.Bootstrapper.
func NewTaskRepository(db pgInfra.Transactor, table string, logger *zap.Logger) (repository.TaskRepository, error) {
	if err := pgInfra.ValidateIdentifier(table); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cols := make([]string, 0, len(pgInfra.TaskSchema))
	for _, col := range pgInfra.TaskSchema {
		cols = append(cols, pgx.Identifier{col.Name}.Sanitize())
	}
	quoted := pgx.Identifier{table}.Sanitize()

	return &taskRepository{
		db:         db,
		logger:     logger,
		table:      quoted,
		selectStmt: fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), quoted),
	}, nil
}

func (r *taskRepository) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	return r.getByID(ctx, r.db, id, "")
}

func (r *taskRepository) List(ctx context.Context) ([]domain.Task, error) {
	rows, err := r.db.Query(ctx, r.selectStmt+" ORDER BY id ASC")
	if err != nil {
		return nil, err
	}

	tasks := make([]domain.Task, 0, len(rows))
	for _, row := range rows {
		task, err := r.codec.DecodeRow(row)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, nil
}

func (r *taskRepository) Add(ctx context.Context, input domain.TaskInput) (*domain.Task, error) {
	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}

	cols, args, err := r.codec.InsertColumns(input)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		r.table, quoteColumns(cols), placeholders(1, len(args)))

	var added *domain.Task
	err = r.db.InTx(ctx, func(tx pgInfra.Executor) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		if len(rows) != 1 {
			return domain.WrapError(domain.ErrCodeWrite, "unable to add task",
				fmt.Errorf("insert returned %d rows", len(rows)))
		}
		id, ok := rows[0]["id"].(int64)
		if !ok {
			return domain.ErrNoGeneratedID
		}

		added, err = r.getByID(ctx, tx, id, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// Remove locks the row, deletes it and returns the snapshot taken before the delete.
func (r *taskRepository) Remove(ctx context.Context, id int64) (*domain.Task, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.table)

	var removed *domain.Task
	err := r.db.InTx(ctx, func(tx pgInfra.Executor) error {
		task, err := r.getByID(ctx, tx, id, " FOR UPDATE")
		if err != nil {
			return err
		}

		affected, err := tx.Execute(ctx, query, id)
		if err != nil {
			return err
		}
		if affected != 1 {
			return domain.WrapError(domain.ErrCodeWrite, "unable to remove task",
				fmt.Errorf("delete affected %d rows", affected))
		}
		removed = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *taskRepository) Update(ctx context.Context, id int64, patch domain.TaskUpdate) (*domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	cols, args, err := r.codec.Assignments(patch)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return r.GetByID(ctx, id)
	}

	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{col}.Sanitize(), i+1)
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", r.table, strings.Join(sets, ", "), len(args)+1)
	args = append(args, id)

	var updated *domain.Task
	err = r.db.InTx(ctx, func(tx pgInfra.Executor) error {
		affected, err := tx.Execute(ctx, query, args...)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrTaskNotFound
		}

		updated, err = r.getByID(ctx, tx, id, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *taskRepository) getByID(ctx context.Context, exec pgInfra.Executor, id int64, suffix string) (*domain.Task, error) {
	rows, err := exec.Query(ctx, r.selectStmt+" WHERE id = $1 ORDER BY id"+suffix, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrTaskNotFound
	}
	if len(rows) > 1 {
		r.logger.Warn("multiple tasks with the same id found, using the first one",
			zap.Int64("task_id", id),
			zap.Int("rows", len(rows)),
			zap.Error(domain.ErrDuplicateID))
	}
	return r.codec.DecodeRow(rows[0])
}

func quoteColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = pgx.Identifier{col}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

func placeholders(from, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ph, ", ")
}
