package task

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lucagalbu/task-manager/domain"
	"github.com/lucagalbu/task-manager/usecase"
)

type memoryRepo struct {
	tasks  map[int64]domain.Task
	nextID int64
	calls  map[string]int
	err    error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{tasks: map[int64]domain.Task{}, calls: map[string]int{}}
}

func (r *memoryRepo) GetByID(_ context.Context, id int64) (*domain.Task, error) {
	r.calls["get"]++
	if r.err != nil {
		return nil, r.err
	}
	task, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return &task, nil
}

func (r *memoryRepo) List(_ context.Context) ([]domain.Task, error) {
	r.calls["list"]++
	if r.err != nil {
		return nil, r.err
	}
	out := []domain.Task{}
	for _, task := range r.tasks {
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepo) Add(_ context.Context, input domain.TaskInput) (*domain.Task, error) {
	r.calls["add"]++
	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}
	r.nextID++
	task := domain.Task{
		ID: r.nextID, Title: input.Title, Status: input.Status,
		Description: input.Description, Date: input.Date,
		StartTime: input.StartTime, EndTime: input.EndTime, Goal: input.Goal,
	}
	r.tasks[task.ID] = task
	return &task, nil
}

func (r *memoryRepo) Remove(_ context.Context, id int64) (*domain.Task, error) {
	r.calls["remove"]++
	task, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return &task, nil
}

func (r *memoryRepo) Update(_ context.Context, id int64, patch domain.TaskUpdate) (*domain.Task, error) {
	r.calls["update"]++
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	task, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	patch.Apply(&task)
	r.tasks[id] = task
	return &task, nil
}

type memoryCache struct {
	tasks       map[int64]domain.Task
	gens        map[int64]usecase.CacheTicket
	list        []domain.Task
	listGen     usecase.CacheTicket
	invalidated []int64
	err         error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{tasks: map[int64]domain.Task{}, gens: map[int64]usecase.CacheTicket{}}
}

func (c *memoryCache) GetTask(_ context.Context, id int64) (*domain.Task, bool, usecase.CacheTicket, error) {
	if c.err != nil {
		return nil, false, 0, c.err
	}
	task, ok := c.tasks[id]
	if !ok {
		return nil, false, c.gens[id], nil
	}
	return &task, true, c.gens[id], nil
}

func (c *memoryCache) SetTask(_ context.Context, ticket usecase.CacheTicket, task *domain.Task) error {
	if c.err != nil {
		return c.err
	}
	if c.gens[task.ID] != ticket {
		return nil
	}
	c.tasks[task.ID] = *task
	return nil
}

func (c *memoryCache) GetList(_ context.Context) ([]domain.Task, bool, usecase.CacheTicket, error) {
	if c.err != nil {
		return nil, false, 0, c.err
	}
	return c.list, c.list != nil, c.listGen, nil
}

func (c *memoryCache) SetList(_ context.Context, ticket usecase.CacheTicket, tasks []domain.Task) error {
	if c.err != nil {
		return c.err
	}
	if c.listGen != ticket {
		return nil
	}
	c.list = tasks
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, id int64) error {
	c.invalidated = append(c.invalidated, id)
	if c.err != nil {
		return c.err
	}
	c.gens[id]++
	c.listGen++
	delete(c.tasks, id)
	c.list = nil
	return nil
}

var _ usecase.TaskCache = (*memoryCache)(nil)

func TestReadThroughCache(t *testing.T) {
	repo := newMemoryRepo()
	cache := newMemoryCache()
	uc := New(repo, cache, nil)
	ctx := context.Background()

	added, err := uc.AddTask(ctx, domain.TaskInput{Title: "Write report"})
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if added.Status != domain.StatusOpen {
		t.Errorf("Expected default status OPEN, got %q", added.Status)
	}

	for i := 0; i < 3; i++ {
		if _, err := uc.GetTask(ctx, added.ID); err != nil {
			t.Fatalf("GetTask failed: %v", err)
		}
		if _, err := uc.ListTasks(ctx); err != nil {
			t.Fatalf("ListTasks failed: %v", err)
		}
	}
	if repo.calls["get"] != 1 || repo.calls["list"] != 1 {
		t.Errorf("Expected one store read per snapshot, got %v", repo.calls)
	}

	if _, err := uc.UpdateTask(ctx, added.ID, domain.TaskUpdate{Status: domain.Some(domain.StatusDone)}); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	got, err := uc.GetTask(ctx, added.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Status != domain.StatusDone {
		t.Errorf("Stale snapshot served after update: %+v", got)
	}

	if _, err := uc.RemoveTask(ctx, added.ID); err != nil {
		t.Fatalf("RemoveTask failed: %v", err)
	}
	if _, err := uc.GetTask(ctx, added.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound after remove, got %v", err)
	}
	if diff := cmp.Diff([]int64{added.ID, added.ID, added.ID}, cache.invalidated); diff != "" {
		t.Errorf("invalidations mismatch (-want +got):\n%s", diff)
	}
}

// mutatingRepo runs a mutation through the use case between the store read
// and the cache fill of the first GetByID or List call.
type mutatingRepo struct {
	*memoryRepo
	mutate func()
}

func (r *mutatingRepo) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := r.memoryRepo.GetByID(ctx, id)
	r.runMutation()
	return task, err
}

func (r *mutatingRepo) List(ctx context.Context) ([]domain.Task, error) {
	tasks, err := r.memoryRepo.List(ctx)
	r.runMutation()
	return tasks, err
}

func (r *mutatingRepo) runMutation() {
	if m := r.mutate; m != nil {
		r.mutate = nil
		m()
	}
}

func TestConcurrentMutationDoesNotLeaveStaleSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("remove during get", func(t *testing.T) {
		repo := &mutatingRepo{memoryRepo: newMemoryRepo()}
		uc := New(repo, newMemoryCache(), nil)
		added, err := uc.AddTask(ctx, domain.TaskInput{Title: "Write report"})
		if err != nil {
			t.Fatalf("AddTask failed: %v", err)
		}
		repo.mutate = func() {
			if _, err := uc.RemoveTask(ctx, added.ID); err != nil {
				t.Errorf("RemoveTask failed: %v", err)
			}
		}

		if _, err := uc.GetTask(ctx, added.ID); err != nil {
			t.Fatalf("GetTask failed: %v", err)
		}
		if task, err := uc.GetTask(ctx, added.ID); !errors.Is(err, domain.ErrTaskNotFound) {
			t.Errorf("Removed task still served: %+v, %v", task, err)
		}
	})

	t.Run("update during get", func(t *testing.T) {
		repo := &mutatingRepo{memoryRepo: newMemoryRepo()}
		uc := New(repo, newMemoryCache(), nil)
		added, err := uc.AddTask(ctx, domain.TaskInput{Title: "Write report"})
		if err != nil {
			t.Fatalf("AddTask failed: %v", err)
		}
		repo.mutate = func() {
			if _, err := uc.UpdateTask(ctx, added.ID, domain.TaskUpdate{Status: domain.Some(domain.StatusDone)}); err != nil {
				t.Errorf("UpdateTask failed: %v", err)
			}
		}

		if _, err := uc.GetTask(ctx, added.ID); err != nil {
			t.Fatalf("GetTask failed: %v", err)
		}
		got, err := uc.GetTask(ctx, added.ID)
		if err != nil {
			t.Fatalf("GetTask failed: %v", err)
		}
		if got.Status != domain.StatusDone {
			t.Errorf("Stale snapshot served after update: %+v", got)
		}
	})

	t.Run("add during list", func(t *testing.T) {
		repo := &mutatingRepo{memoryRepo: newMemoryRepo()}
		uc := New(repo, newMemoryCache(), nil)
		repo.mutate = func() {
			if _, err := uc.AddTask(ctx, domain.TaskInput{Title: "Write report"}); err != nil {
				t.Errorf("AddTask failed: %v", err)
			}
		}

		if _, err := uc.ListTasks(ctx); err != nil {
			t.Fatalf("ListTasks failed: %v", err)
		}
		tasks, err := uc.ListTasks(ctx)
		if err != nil {
			t.Fatalf("ListTasks failed: %v", err)
		}
		if len(tasks) != 1 {
			t.Errorf("Stale list served: %+v", tasks)
		}
	})
}

func TestCacheFailuresAreLoggedOnly(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	repo := newMemoryRepo()
	cache := newMemoryCache()
	cache.err = errors.New("connection refused")
	uc := New(repo, cache, zap.New(core))
	ctx := context.Background()

	added, err := uc.AddTask(ctx, domain.TaskInput{Title: "Write report"})
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if _, err := uc.GetTask(ctx, added.ID); err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	tasks, err := uc.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("Expected one task, got %d", len(tasks))
	}
	if logs.FilterMessage("task cache unavailable").Len() == 0 {
		t.Errorf("Expected cache failures to be logged")
	}
}

func TestQueryTasks(t *testing.T) {
	repo := newMemoryRepo()
	uc := New(repo, nil, nil)
	ctx := context.Background()

	all, err := uc.QueryTasks(ctx, nil)
	if err != nil {
		t.Fatalf("QueryTasks failed: %v", err)
	}
	if all == nil || len(all) != 0 {
		t.Errorf("Expected empty non-nil list, got %#v", all)
	}

	first, _ := uc.AddTask(ctx, domain.TaskInput{Title: "a"})
	_, _ = uc.AddTask(ctx, domain.TaskInput{Title: "b"})

	one, err := uc.QueryTasks(ctx, &first.ID)
	if err != nil {
		t.Fatalf("QueryTasks failed: %v", err)
	}
	if diff := cmp.Diff([]domain.Task{*first}, one); diff != "" {
		t.Errorf("QueryTasks mismatch (-want +got):\n%s", diff)
	}

	missing := int64(42)
	if _, err := uc.QueryTasks(ctx, &missing); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound, got %v", err)
	}
}

func TestStoreErrorsPropagate(t *testing.T) {
	repo := newMemoryRepo()
	repo.err = domain.NewError(domain.ErrCodeDataIntegrity, "unknown stored status")
	uc := New(repo, newMemoryCache(), nil)

	if _, err := uc.ListTasks(context.Background()); !domain.IsDomainError(err, domain.ErrCodeDataIntegrity) {
		t.Errorf("Expected DATA_INTEGRITY, got %v", err)
	}
}

func TestRegisteredOperations(t *testing.T) {
	repo := newMemoryRepo()
	uc := New(repo, nil, nil)
	d := usecase.NewDispatcher()
	uc.Register(d)
	ctx := context.Background()

	out, err := d.Execute(ctx, OperationAddTask, json.RawMessage(`{"title":"Run","date":"2024-05-02","start_time":"07:15","goal":"health"}`))
	if err != nil {
		t.Fatalf("addTask failed: %v", err)
	}
	added := out.(*domain.Task)
	if added.Status != domain.StatusOpen || added.StartTime == nil || *added.StartTime != domain.NewTimeOfDay(7, 15, 0) {
		t.Errorf("Unexpected added task %+v", added)
	}

	out, err = d.Execute(ctx, OperationUpdateTask, json.RawMessage(`{"id":1,"goal":null,"status":"PROGRESS"}`))
	if err != nil {
		t.Fatalf("updateTask failed: %v", err)
	}
	updated := out.(*domain.Task)
	if updated.Goal != nil || updated.Status != domain.StatusProgress || updated.Title != "Run" {
		t.Errorf("Unexpected updated task %+v", updated)
	}

	out, err = d.Execute(ctx, OperationQueryTask, nil)
	if err != nil {
		t.Fatalf("queryTask failed: %v", err)
	}
	if tasks := out.([]domain.Task); len(tasks) != 1 {
		t.Errorf("Expected one task, got %d", len(tasks))
	}

	if _, err := d.Execute(ctx, OperationRemoveTask, json.RawMessage(`{"id":1}`)); err != nil {
		t.Fatalf("rmTask failed: %v", err)
	}

	tests := []struct {
		name      string
		operation string
		variables string
		code      domain.ErrorCode
	}{
		{name: "remove missing", operation: OperationRemoveTask, variables: `{"id":1}`, code: domain.ErrCodeNotFound},
		{name: "remove without id", operation: OperationRemoveTask, variables: `{}`, code: domain.ErrCodeInvalid},
		{name: "update without id", operation: OperationUpdateTask, variables: `{"title":"x"}`, code: domain.ErrCodeInvalid},
		{name: "unknown status", operation: OperationAddTask, variables: `{"title":"x","status":"LATER"}`, code: domain.ErrCodeInvalid},
		{name: "missing title", operation: OperationAddTask, variables: `{"status":"OPEN"}`, code: domain.ErrCodeInvalid},
		{name: "malformed", operation: OperationQueryTask, variables: `{"id":`, code: domain.ErrCodeInvalid},
		{name: "null title", operation: OperationUpdateTask, variables: `{"id":1,"title":null}`, code: domain.ErrCodeInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Execute(ctx, tt.operation, json.RawMessage(tt.variables))
			if !domain.IsDomainError(err, tt.code) {
				t.Errorf("Expected %s, got %v", tt.code, err)
			}
		})
	}
}
