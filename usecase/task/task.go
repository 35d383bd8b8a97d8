package task

import (
	"context"

	"go.uber.org/zap"

	"github.com/lucagalbu/task-manager/domain"
	"github.com/lucagalbu/task-manager/pkg/logger"
	"github.com/lucagalbu/task-manager/repository"
	"github.com/lucagalbu/task-manager/usecase"
)

type UseCase struct {
	tasks  repository.TaskRepository
	cache  usecase.TaskCache
	logger *zap.Logger
}

// New builds the task use case. cache may be nil.
func New(tasks repository.TaskRepository, cache usecase.TaskCache, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:  tasks,
		cache:  cache,
		logger: logger,
	}
}

func (uc *UseCase) ListTasks(ctx context.Context) ([]domain.Task, error) {
	var ticket usecase.CacheTicket
	cacheUsable := uc.cache != nil
	if cacheUsable {
		tasks, ok, t, err := uc.cache.GetList(ctx)
		if err != nil {
			uc.cacheFailed(ctx, "list", err)
			cacheUsable = false
		} else if ok {
			return tasks, nil
		}
		ticket = t
	}

	tasks, err := uc.tasks.List(ctx)
	if err != nil {
		return nil, err
	}
	if cacheUsable {
		if err := uc.cache.SetList(ctx, ticket, tasks); err != nil {
			uc.cacheFailed(ctx, "store list", err)
		}
	}
	return tasks, nil
}

func (uc *UseCase) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	var ticket usecase.CacheTicket
	cacheUsable := uc.cache != nil
	if cacheUsable {
		task, ok, t, err := uc.cache.GetTask(ctx, id)
		if err != nil {
			uc.cacheFailed(ctx, "get", err)
			cacheUsable = false
		} else if ok {
			return task, nil
		}
		ticket = t
	}

	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cacheUsable {
		if err := uc.cache.SetTask(ctx, ticket, task); err != nil {
			uc.cacheFailed(ctx, "store task", err)
		}
	}
	return task, nil
}

// QueryTasks returns the single task with the given id, or every task when id is nil.
func (uc *UseCase) QueryTasks(ctx context.Context, id *int64) ([]domain.Task, error) {
	if id == nil {
		return uc.ListTasks(ctx)
	}
	task, err := uc.GetTask(ctx, *id)
	if err != nil {
		return nil, err
	}
	return []domain.Task{*task}, nil
}

func (uc *UseCase) AddTask(ctx context.Context, input domain.TaskInput) (*domain.Task, error) {
	added, err := uc.tasks.Add(ctx, input)
	if err != nil {
		return nil, err
	}
	uc.invalidate(ctx, added.ID)
	logger.WithRequestID(ctx, uc.logger).Info("task added", zap.Int64("task_id", added.ID))
	return added, nil
}

func (uc *UseCase) RemoveTask(ctx context.Context, id int64) (*domain.Task, error) {
	removed, err := uc.tasks.Remove(ctx, id)
	if err != nil {
		return nil, err
	}
	uc.invalidate(ctx, id)
	logger.WithRequestID(ctx, uc.logger).Info("task removed", zap.Int64("task_id", id))
	return removed, nil
}

func (uc *UseCase) UpdateTask(ctx context.Context, id int64, patch domain.TaskUpdate) (*domain.Task, error) {
	updated, err := uc.tasks.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if !patch.IsEmpty() {
		uc.invalidate(ctx, id)
		logger.WithRequestID(ctx, uc.logger).Info("task updated", zap.Int64("task_id", id))
	}
	return updated, nil
}

func (uc *UseCase) invalidate(ctx context.Context, id int64) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Invalidate(ctx, id); err != nil {
		uc.cacheFailed(ctx, "invalidate", err)
	}
}

func (uc *UseCase) cacheFailed(ctx context.Context, operation string, err error) {
	logger.WithRequestID(ctx, uc.logger).Warn("task cache unavailable", zap.String("operation", operation), zap.Error(err))
}
