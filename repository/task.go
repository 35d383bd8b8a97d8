package repository

import (
	"context"

	"github.com/lucagalbu/task-manager/domain"
)

// TaskRepository is the persistence contract for tasks. Implementations return
// domain.ErrTaskNotFound when no row matches an id.
type TaskRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Task, error)
	// List returns every task ordered by id.
	List(ctx context.Context) ([]domain.Task, error)
	Add(ctx context.Context, input domain.TaskInput) (*domain.Task, error)
	// Remove deletes the task and returns its last persisted state.
	Remove(ctx context.Context, id int64) (*domain.Task, error)
	// Update writes only the fields supplied in the patch and returns the stored result.
	Update(ctx context.Context, id int64, patch domain.TaskUpdate) (*domain.Task, error)
}
