package usecase

import (
	"context"

	"github.com/lucagalbu/task-manager/domain"
)

// CacheTicket is the snapshot generation observed on a miss. A fill presented
// with a ticket that an invalidation has since superseded is dropped.
type CacheTicket int64

// TaskCache abstracts the snapshot cache so use cases stay storage-agnostic.
// A miss is reported as ok == false with a nil error and a ticket for the fill.
type TaskCache interface {
	GetTask(ctx context.Context, id int64) (task *domain.Task, ok bool, ticket CacheTicket, err error)
	SetTask(ctx context.Context, ticket CacheTicket, task *domain.Task) error
	GetList(ctx context.Context) (tasks []domain.Task, ok bool, ticket CacheTicket, err error)
	SetList(ctx context.Context, ticket CacheTicket, tasks []domain.Task) error
	Invalidate(ctx context.Context, id int64) error
}
