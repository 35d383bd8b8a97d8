package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/lucagalbu/task-manager/domain"
	"github.com/lucagalbu/task-manager/repository"
)

// TaskRepository persists tasks in a single BoltDB bucket keyed by big-endian id.
type TaskRepository struct {
	db     *bolt.DB
	bucket []byte
	logger *zap.Logger
}

// Open initializes the BoltDB file and ensures the bucket exists.
func Open(path string, bucket string, logger *zap.Logger) (*TaskRepository, error) {
	if bucket == "" {
		bucket = "tasks"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, domain.WrapError(domain.ErrCodeConnection, "unable to prepare bolt directory", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeConnection, "unable to open bolt database", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		db.Close()
		return nil, domain.WrapError(domain.ErrCodeBootstrap, "unable to create bucket", err)
	}

	logger.Info("opened bolt task store", zap.String("path", path), zap.String("bucket", bucket))
	return &TaskRepository{
		db:     db,
		bucket: []byte(bucket),
		logger: logger,
	}, nil
}

func (r *TaskRepository) GetByID(_ context.Context, id int64) (*domain.Task, error) {
	var task *domain.Task
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		task, err = r.get(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *TaskRepository) List(_ context.Context) ([]domain.Task, error) {
	tasks := []domain.Task{}
	err := r.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(r.bucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			task, err := decode(v)
			if err != nil {
				return err
			}
			tasks = append(tasks, *task)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) Add(_ context.Context, input domain.TaskInput) (*domain.Task, error) {
	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var added *domain.Task
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(r.bucket)
		seq, err := b.NextSequence()
		if err != nil {
			return domain.WrapError(domain.ErrCodeWrite, domain.ErrNoGeneratedID.Message, err)
		}

		task := &domain.Task{
			ID:          int64(seq),
			Title:       input.Title,
			Status:      input.Status,
			Description: input.Description,
			Date:        input.Date,
			StartTime:   input.StartTime,
			EndTime:     input.EndTime,
			Goal:        input.Goal,
		}
		if err := r.put(b, task); err != nil {
			return err
		}
		added, err = r.get(tx, task.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

func (r *TaskRepository) Remove(_ context.Context, id int64) (*domain.Task, error) {
	var removed *domain.Task
	err := r.db.Update(func(tx *bolt.Tx) error {
		task, err := r.get(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Bucket(r.bucket).Delete(key(id)); err != nil {
			return domain.WrapError(domain.ErrCodeWrite, "unable to remove task", err)
		}
		removed = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *TaskRepository) Update(_ context.Context, id int64, patch domain.TaskUpdate) (*domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.Task
	err := r.db.Update(func(tx *bolt.Tx) error {
		task, err := r.get(tx, id)
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			updated = task
			return nil
		}
		patch.Apply(task)
		if err := r.put(tx.Bucket(r.bucket), task); err != nil {
			return err
		}
		updated, err = r.get(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Close closes the Bolt database.
func (r *TaskRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Ping reports whether the database file is still open.
func (r *TaskRepository) Ping(_ context.Context) error {
	if r == nil || r.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return r.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(r.bucket) == nil {
			return bolt.ErrBucketNotFound
		}
		return nil
	})
}

func (r *TaskRepository) get(tx *bolt.Tx, id int64) (*domain.Task, error) {
	if id <= 0 {
		return nil, domain.ErrTaskNotFound
	}
	v := tx.Bucket(r.bucket).Get(key(id))
	if v == nil {
		return nil, domain.ErrTaskNotFound
	}
	task, err := decode(v)
	if err != nil {
		return nil, err
	}
	if task.ID != id {
		r.logger.Warn("stored task id does not match its key, using the key",
			zap.Int64("task_id", id),
			zap.Int64("stored_id", task.ID),
			zap.Error(domain.ErrDuplicateID))
		task.ID = id
	}
	return task, nil
}

func (r *TaskRepository) put(b *bolt.Bucket, task *domain.Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return domain.WrapError(domain.ErrCodeWrite, "unable to encode task", err)
	}
	// Never commit a row that later reads could not decode.
	if _, err := decode(payload); err != nil {
		return domain.WrapError(domain.ErrCodeInvalid, "task cannot be stored", err)
	}
	if err := b.Put(key(task.ID), payload); err != nil {
		return domain.WrapError(domain.ErrCodeWrite, "unable to store task", err)
	}
	return nil
}

func decode(v []byte) (*domain.Task, error) {
	var task domain.Task
	if err := json.Unmarshal(v, &task); err != nil {
		return nil, domain.WrapError(domain.ErrCodeDataIntegrity, "unable to decode stored task", err)
	}
	if !task.Status.Valid() {
		return nil, domain.WrapError(domain.ErrCodeDataIntegrity, domain.ErrUnknownStatus.Message, fmt.Errorf("%q", task.Status))
	}
	return &task, nil
}

func key(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

var _ repository.TaskRepository = (*TaskRepository)(nil)
