package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/lucagalbu/task-manager/domain"
	"github.com/lucagalbu/task-manager/usecase"
)

const listKey = "list"

// maxFillRetries bounds WATCH retries when a generation key changes mid fill.
const maxFillRetries = 3

type taskCache struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewTaskCache creates a Redis-backed snapshot cache for tasks.
// Each snapshot key has a generation key that Invalidate bumps; fills are
// written only while the generation seen at miss time is still current.
func NewTaskCache(client *redislib.Client, ttl time.Duration) usecase.TaskCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &taskCache{
		client: client,
		prefix: "task:",
		ttl:    ttl,
	}
}

func (c *taskCache) GetTask(ctx context.Context, id int64) (*domain.Task, bool, usecase.CacheTicket, error) {
	var task domain.Task
	ok, ticket, err := c.get(ctx, strconv.FormatInt(id, 10), &task)
	if !ok || err != nil {
		return nil, false, ticket, err
	}
	return &task, true, ticket, nil
}

func (c *taskCache) SetTask(ctx context.Context, ticket usecase.CacheTicket, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}
	return c.set(ctx, strconv.FormatInt(task.ID, 10), ticket, task)
}

func (c *taskCache) GetList(ctx context.Context) ([]domain.Task, bool, usecase.CacheTicket, error) {
	var tasks []domain.Task
	ok, ticket, err := c.get(ctx, listKey, &tasks)
	if !ok || err != nil {
		return nil, false, ticket, err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, true, ticket, nil
}

func (c *taskCache) SetList(ctx context.Context, ticket usecase.CacheTicket, tasks []domain.Task) error {
	return c.set(ctx, listKey, ticket, tasks)
}

// Invalidate drops the snapshot of the given task together with the list
// snapshot and supersedes any fill still in flight for either.
func (c *taskCache) Invalidate(ctx context.Context, id int64) error {
	name := strconv.FormatInt(id, 10)
	_, err := c.client.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
		for _, n := range []string{name, listKey} {
			pipe.Incr(ctx, c.genKey(n))
			pipe.Expire(ctx, c.genKey(n), c.genTTL())
			pipe.Del(ctx, c.key(n))
		}
		return nil
	})
	return err
}

func (c *taskCache) get(ctx context.Context, name string, out any) (bool, usecase.CacheTicket, error) {
	values, err := c.client.MGet(ctx, c.key(name), c.genKey(name)).Result()
	if err != nil {
		return false, 0, err
	}
	ticket, err := parseGeneration(values[1])
	if err != nil {
		return false, 0, err
	}
	payload, ok := values[0].(string)
	if !ok {
		return false, ticket, nil
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return false, ticket, err
	}
	return true, ticket, nil
}

func (c *taskCache) set(ctx context.Context, name string, ticket usecase.CacheTicket, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	fill := func(tx *redislib.Tx) error {
		raw, err := tx.Get(ctx, c.genKey(name)).Result()
		if err != nil && !errors.Is(err, redislib.Nil) {
			return err
		}
		current, err := parseGeneration(raw)
		if err != nil {
			return err
		}
		if current != ticket {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
			pipe.Set(ctx, c.key(name), payload, c.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxFillRetries; i++ {
		err = c.client.Watch(ctx, fill, c.genKey(name))
		if !errors.Is(err, redislib.TxFailedErr) {
			return err
		}
	}
	// Generation kept moving; the snapshot is stale.
	return nil
}

// genTTL outlives snapshots so a generation cannot reset while a fill is in flight.
func (c *taskCache) genTTL() time.Duration {
	return 10 * c.ttl
}

func (c *taskCache) key(name string) string {
	return fmt.Sprintf("%s%s", c.prefix, name)
}

func (c *taskCache) genKey(name string) string {
	return fmt.Sprintf("%sgen:%s", c.prefix, name)
}

func parseGeneration(v any) (usecase.CacheTicket, error) {
	switch g := v.(type) {
	case nil:
		return 0, nil
	case string:
		if g == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(g, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("corrupt cache generation %q: %w", g, err)
		}
		return usecase.CacheTicket(n), nil
	default:
		return 0, fmt.Errorf("unexpected cache generation type %T", v)
	}
}
