package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Queue is the operation surface over the priority scheduler and the task store.
//
// Every mutation (Enqueue, Dequeue, Complete, Fail, Cancel, Reset) is serialised behind one
// mutex that is held only for the structural update, never while a handler runs. Reads go
// straight to the store and never wait for mutations of other tasks to finish dispatching.
type Queue struct {
	mu       sync.Mutex
	store    *MemoryStorage
	sched    *Scheduler
	registry *Registry
	events   *notifier
	logger   *slog.Logger
	now      func() time.Time

	maxSize            int
	defaultMaxAttempts int
	defaultPriority    Priority
	backoff            RetryBackoff

	seq uint64

	// Lifetime counters
	enqueued  uint64
	completed uint64
	failed    uint64
	cancelled uint64
}

// NewQueue creates a new in-memory task queue
func NewQueue(opts ...QueueOption) *Queue {
	options := &queueOptions{
		maxSize:            10000,
		defaultMaxAttempts: 3,
		defaultPriority:    PriorityDefault,
		backoff:            NoBackoff{},
		eventBuffer:        64,
		logger:             slog.Default(),
		clock:              time.Now,
	}

	for _, opt := range opts {
		opt(options)
	}

	registry := options.registry
	if registry == nil {
		registry = NewRegistry()
	}

	return &Queue{
		store:              NewMemoryStorage(),
		sched:              NewScheduler(),
		registry:           registry,
		events:             newNotifier(options.eventBuffer),
		logger:             options.logger,
		now:                options.clock,
		maxSize:            options.maxSize,
		defaultMaxAttempts: options.defaultMaxAttempts,
		defaultPriority:    options.defaultPriority,
		backoff:            options.backoff,
	}
}

// RegisterHandler associates handler with a task name. A later registration for the same
// name replaces the earlier one. Tasks may be enqueued before their handler exists.
func (q *Queue) RegisterHandler(name string, handler Handler) error {
	if err := q.registry.Register(name, handler); err != nil {
		return fmt.Errorf("failed to register handler %q: %w", name, err)
	}
	q.logger.Debug("registered task handler", slog.String("task_name", name))
	return nil
}

// Lookup returns the handler registered for name.
func (q *Queue) Lookup(name string) (Handler, bool) {
	return q.registry.Lookup(name)
}

// Registry returns the handler registry used by the queue.
func (q *Queue) Registry() *Registry {
	return q.registry
}

// Enqueue creates a pending task and makes it available for dispatch.
// It never blocks and fails with ErrQueueFull when the capacity bound is reached.
func (q *Queue) Enqueue(name string, payload any, opts ...EnqueueOption) (*Task, error) {
	if name == "" {
		return nil, ErrEmptyTaskName
	}

	options := &enqueueOptions{maxAttempts: q.defaultMaxAttempts}
	for _, opt := range opts {
		opt(options)
	}

	raw, err := marshalPayload(payload)
	if err != nil {
		return nil, err
	}

	priority := q.defaultPriority
	if options.priority != nil {
		priority = *options.priority
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if waiting := q.waiting(); waiting >= q.maxSize {
		return nil, fmt.Errorf("%w: capacity %d reached", ErrQueueFull, q.maxSize)
	}

	now := q.now()
	scheduledAt := options.scheduledAt
	if scheduledAt == nil && options.delay > 0 {
		at := now.Add(options.delay)
		scheduledAt = &at
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate task id: %w", err)
	}

	q.seq++
	task := &Task{
		ID:          id,
		Name:        name,
		Status:      TaskStatusPending,
		Priority:    priority,
		Payload:     raw,
		MaxAttempts: options.maxAttempts,
		CreatedAt:   now,
		ScheduledAt: scheduledAt,
		seq:         q.seq,
		gen:         1,
	}

	if err := q.store.Create(task); err != nil {
		return nil, fmt.Errorf("failed to store task %q: %w", name, err)
	}
	q.sched.Push(newEntry(task), now)
	q.enqueued++

	q.events.publish(Event{Type: EventEnqueued, Task: *task, At: now})

	q.logger.Debug("task enqueued",
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", name),
		slog.Int("priority", int(priority)),
		slog.Int("max_attempts", task.MaxAttempts))

	return task.clone(), nil
}

// errStaleEntry marks a scheduler entry whose task was cancelled, cleared or re-queued since.
var errStaleEntry = errors.New("stale scheduler entry")

// Dequeue claims the best eligible task, moving it to running and counting the attempt.
// It returns false when nothing is eligible; it never blocks or waits for work.
func (q *Queue) Dequeue() (*Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	for {
		entry, ok := q.sched.Pop(now)
		if !ok {
			return nil, false
		}

		task, err := q.store.Update(entry.TaskID, func(t *Task) error {
			if t.gen != entry.Gen || !t.Status.waiting() {
				return errStaleEntry
			}
			next, err := nextStatus(t, eventDispatch)
			if err != nil {
				return err
			}
			t.Status = next
			t.StartedAt = &now
			t.Attempts++
			return nil
		})
		if err != nil {
			// Lazy deletion: the store is the source of truth.
			continue
		}

		q.events.publish(Event{Type: EventDispatched, Task: *task, At: now})
		return task, true
	}
}

// Complete records a successful attempt. It is only valid for running tasks; calling it
// again on a finished task returns the unchanged snapshot and an ErrInvalidTransition.
// A non-empty result must be valid JSON, otherwise ErrInvalidResult is returned and the task stays running.
func (q *Queue) Complete(id uuid.UUID, result json.RawMessage) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	task, err := q.store.Update(id, func(t *Task) error {
		next, err := nextStatus(t, eventComplete)
		if err != nil {
			return err
		}
		if len(result) > 0 && !json.Valid(result) {
			return ErrInvalidResult
		}
		t.Status = next
		t.Result = result
		t.Error = ""
		t.CompletedAt = &now
		return nil
	})
	if err != nil {
		return task, err
	}

	q.completed++
	q.events.publish(Event{Type: EventCompleted, Task: *task, At: now})

	return task, nil
}

// Fail records a failed attempt. While attempts remain the task moves to retrying and is
// re-queued after the configured backoff (immediately by default); otherwise it fails for good.
func (q *Queue) Fail(id uuid.UUID, errMsg string) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var eligibleAt time.Time

	task, err := q.store.Update(id, func(t *Task) error {
		next, err := nextStatus(t, eventFail)
		if err != nil {
			return err
		}
		t.Status = next
		t.Error = errMsg
		t.Result = nil

		if next == TaskStatusRetrying {
			eligibleAt = now
			if delay := q.backoff.NextInterval(t.Attempts); delay > 0 {
				eligibleAt = now.Add(delay)
				t.ScheduledAt = &eligibleAt
			}
			t.gen++
			return nil
		}

		t.CompletedAt = &now
		return nil
	})
	if err != nil {
		return task, err
	}

	if task.Status == TaskStatusRetrying {
		q.sched.Push(Entry{
			TaskID:     task.ID,
			Priority:   task.Priority,
			EligibleAt: eligibleAt,
			Seq:        task.seq,
			Gen:        task.gen,
		}, now)
	} else {
		q.failed++
	}

	q.events.publish(Event{Type: eventFor(task.Status), Task: *task, At: now})

	return task, nil
}

// Cancel cancels a pending task. Running or finished tasks are never interrupted: the
// unchanged snapshot is returned together with ErrNotCancellable.
func (q *Queue) Cancel(id uuid.UUID) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	task, err := q.store.Update(id, func(t *Task) error {
		next, err := nextStatus(t, eventCancel)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrNotCancellable, err)
		}
		t.Status = next
		t.CompletedAt = &now
		return nil
	})
	if err != nil {
		return task, err
	}

	// The scheduler entry stays behind and is dropped when popped.
	q.cancelled++
	q.events.publish(Event{Type: EventCancelled, Task: *task, At: now})

	return task, nil
}

// GetTask returns a snapshot of the task with the given id.
func (q *Queue) GetTask(id uuid.UUID) (*Task, error) {
	task, ok := q.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return task, nil
}

// Query returns tasks matching f, newest first, at most f.Limit (DefaultQueryLimit when unset).
func (q *Queue) Query(f Filter) []*Task {
	return q.store.List(f)
}

// Size returns the number of pending tasks.
func (q *Queue) Size() int {
	return q.store.Count(TaskStatusPending)
}

// Stats returns lifetime counters and the current status breakdown.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return Stats{
		QueueSize:          q.store.Count(TaskStatusPending),
		TotalTasks:         q.store.Len(),
		HandlersRegistered: q.registry.Len(),
		Enqueued:           q.enqueued,
		Completed:          q.completed,
		Failed:             q.failed,
		Cancelled:          q.cancelled,
		StatusCounts:       q.store.Counts(),
	}
}

// Subscribe returns a subscription to lifecycle events. It is closed when ctx is done
// or when Close is called. Slow subscribers lose events instead of slowing the queue.
func (q *Queue) Subscribe(ctx context.Context) *Subscription {
	return q.events.subscribe(ctx)
}

// Reset drops every task and scheduler entry. Lifetime counters are kept.
// Operations on cleared ids report ErrTaskNotFound afterwards.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.sched.Reset()
	q.store.Reset()

	q.logger.Info("task queue reset")
}

// waiting counts tasks the capacity bound applies to. Must be called with q.mu held.
func (q *Queue) waiting() int {
	return q.store.Count(TaskStatusPending) + q.store.Count(TaskStatusRetrying)
}

func marshalPayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return json.RawMessage(`{}`), nil
	case json.RawMessage:
		if len(p) == 0 {
			return json.RawMessage(`{}`), nil
		}
		if !json.Valid(p) {
			return nil, fmt.Errorf("%w: invalid raw JSON", ErrPayloadMarshal)
		}
		return p, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: payload of type %T: %w", ErrPayloadMarshal, payload, err)
	}
	return raw, nil
}
