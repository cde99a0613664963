package queue_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/taskqueue/pkg/queue"
)

func newStoredTask(name string, status queue.TaskStatus, createdAt time.Time) *queue.Task {
	return &queue.Task{
		ID:          uuid.New(),
		Name:        name,
		Status:      status,
		Priority:    queue.PriorityDefault,
		MaxAttempts: 3,
		CreatedAt:   createdAt,
	}
}

func TestMemoryStorage_Create(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	task := newStoredTask("job", queue.TaskStatusPending, time.Now())

	require.NoError(t, storage.Create(task))
	assert.Error(t, storage.Create(task), "duplicate id must be rejected")
	assert.Error(t, storage.Create(nil))

	// The store keeps its own copy
	task.Name = "mutated"
	got, ok := storage.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, "job", got.Name)
	assert.Equal(t, 1, storage.Len())
}

func TestMemoryStorage_Update(t *testing.T) {
	t.Parallel()

	t.Run("applies change and reindexes", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		task := newStoredTask("job", queue.TaskStatusPending, time.Now())
		require.NoError(t, storage.Create(task))

		updated, err := storage.Update(task.ID, func(t *queue.Task) error {
			t.Status = queue.TaskStatusRunning
			t.Attempts++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, queue.TaskStatusRunning, updated.Status)
		assert.Equal(t, 1, updated.Attempts)

		assert.Equal(t, 0, storage.Count(queue.TaskStatusPending))
		assert.Equal(t, 1, storage.Count(queue.TaskStatusRunning))
	})

	t.Run("failed update leaves record untouched", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		task := newStoredTask("job", queue.TaskStatusPending, time.Now())
		require.NoError(t, storage.Create(task))

		errRefused := errors.New("refused")
		got, err := storage.Update(task.ID, func(t *queue.Task) error {
			t.Status = queue.TaskStatusFailed
			t.Error = "half applied"
			return errRefused
		})
		require.ErrorIs(t, err, errRefused)
		assert.Equal(t, queue.TaskStatusPending, got.Status)
		assert.Empty(t, got.Error)

		stored, _ := storage.Get(task.ID)
		assert.Equal(t, queue.TaskStatusPending, stored.Status)
		assert.Equal(t, 1, storage.Count(queue.TaskStatusPending))
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		_, err := storage.Update(uuid.New(), func(*queue.Task) error { return nil })
		assert.ErrorIs(t, err, queue.ErrTaskNotFound)
	})
}

func TestMemoryStorage_List(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	oldest := newStoredTask("a", queue.TaskStatusCompleted, base)
	middle := newStoredTask("b", queue.TaskStatusPending, base.Add(time.Minute))
	newest := newStoredTask("a", queue.TaskStatusPending, base.Add(2*time.Minute))
	for _, task := range []*queue.Task{middle, oldest, newest} {
		require.NoError(t, storage.Create(task))
	}

	all := storage.List(queue.Filter{})
	require.Len(t, all, 3)
	assert.Equal(t, []uuid.UUID{newest.ID, middle.ID, oldest.ID}, []uuid.UUID{all[0].ID, all[1].ID, all[2].ID})

	pending := storage.List(queue.Filter{Status: queue.TaskStatusPending})
	require.Len(t, pending, 2)
	assert.Equal(t, newest.ID, pending[0].ID)

	named := storage.List(queue.Filter{Name: "a", Status: queue.TaskStatusCompleted})
	require.Len(t, named, 1)
	assert.Equal(t, oldest.ID, named[0].ID)

	limited := storage.List(queue.Filter{Limit: 1})
	require.Len(t, limited, 1)
	assert.Equal(t, newest.ID, limited[0].ID)

	assert.Empty(t, storage.List(queue.Filter{Name: "missing"}))
}

func TestMemoryStorage_CountsAndReset(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	now := time.Now()
	require.NoError(t, storage.Create(newStoredTask("a", queue.TaskStatusPending, now)))
	require.NoError(t, storage.Create(newStoredTask("b", queue.TaskStatusPending, now)))
	require.NoError(t, storage.Create(newStoredTask("c", queue.TaskStatusFailed, now)))

	assert.Equal(t, map[queue.TaskStatus]int{
		queue.TaskStatusPending: 2,
		queue.TaskStatusFailed:  1,
	}, storage.Counts())

	storage.Reset()
	assert.Equal(t, 0, storage.Len())
	assert.Empty(t, storage.Counts())
	assert.Equal(t, 0, storage.Count(queue.TaskStatusPending))
}
