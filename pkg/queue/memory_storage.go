package queue

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// MemoryStorage is the authoritative in-memory task store.
// It hands out copies only, so records can be mutated exclusively through Update.
type MemoryStorage struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*Task

	// Index for status counts and filtered queries
	byStatus map[TaskStatus]map[uuid.UUID]struct{}
}

// NewMemoryStorage creates a new in-memory task store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		tasks:    make(map[uuid.UUID]*Task),
		byStatus: make(map[TaskStatus]map[uuid.UUID]struct{}),
	}
}

// Create stores a copy of task.
func (ms *MemoryStorage) Create(task *Task) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.tasks[task.ID]; exists {
		return fmt.Errorf("task with ID %s already exists", task.ID)
	}

	ms.tasks[task.ID] = task.clone()
	ms.index(task.ID, task.Status)

	return nil
}

// Get returns a copy of the task with the given id.
func (ms *MemoryStorage) Get(id uuid.UUID) (*Task, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	task, ok := ms.tasks[id]
	if !ok {
		return nil, false
	}
	return task.clone(), true
}

// Update applies fn to the stored record under the store lock and keeps the status index in sync.
// If fn returns an error the record is left untouched and a copy of it is returned with the error.
func (ms *MemoryStorage) Update(id uuid.UUID, fn func(t *Task) error) (*Task, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	current, ok := ms.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	// Work on a copy so a failing fn cannot leave a half-applied change behind.
	next := current.clone()
	if err := fn(next); err != nil {
		return current.clone(), err
	}

	if next.Status != current.Status {
		ms.unindex(id, current.Status)
		ms.index(id, next.Status)
	}
	ms.tasks[id] = next

	return next.clone(), nil
}

// List returns copies of the tasks matching f, newest first.
func (ms *MemoryStorage) List(f Filter) []*Task {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []*Task
	collect := func(t *Task) {
		if f.Name != "" && t.Name != f.Name {
			return
		}
		out = append(out, t)
	}

	if f.Status != "" {
		for id := range ms.byStatus[f.Status] {
			collect(ms.tasks[id])
		}
	} else {
		for _, t := range ms.tasks {
			collect(t)
		}
	}

	slices.SortFunc(out, func(a, b *Task) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.seq > b.seq:
			return -1
		case a.seq < b.seq:
			return 1
		}
		return 0
	})

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}

	for i, t := range out {
		out[i] = t.clone()
	}
	return out
}

// Count returns the number of tasks with the given status.
func (ms *MemoryStorage) Count(status TaskStatus) int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.byStatus[status])
}

// Counts returns the number of tasks per status. Statuses with no tasks are omitted.
func (ms *MemoryStorage) Counts() map[TaskStatus]int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	counts := make(map[TaskStatus]int, len(ms.byStatus))
	for status, ids := range ms.byStatus {
		if len(ids) > 0 {
			counts[status] = len(ids)
		}
	}
	return counts
}

// Len returns the total number of stored tasks.
func (ms *MemoryStorage) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.tasks)
}

// Reset drops every record.
func (ms *MemoryStorage) Reset() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	clear(ms.tasks)
	clear(ms.byStatus)
}

// Helper methods

func (ms *MemoryStorage) index(id uuid.UUID, status TaskStatus) {
	ids, ok := ms.byStatus[status]
	if !ok {
		ids = make(map[uuid.UUID]struct{})
		ms.byStatus[status] = ids
	}
	ids[id] = struct{}{}
}

func (ms *MemoryStorage) unindex(id uuid.UUID, status TaskStatus) {
	delete(ms.byStatus[status], id)
}
