package queue

import (
	"context"
	"fmt"
)

// TaskDef is a typed task registered with Define. It remembers the enqueue defaults
// chosen at definition time.
type TaskDef[T any] struct {
	name     string
	queue    *Queue
	defaults []EnqueueOption
}

// Define registers fn as the handler for name and returns a typed definition for enqueueing it.
// An empty name falls back to the qualified payload type name, e.g. "billing.InvoicePayload".
// opts become per-definition defaults; options passed to Enqueue are applied after them.
func Define[T, R any](q *Queue, name string, fn func(ctx context.Context, payload T) (R, error), opts ...EnqueueOption) (*TaskDef[T], error) {
	if q == nil {
		return nil, ErrQueueNil
	}
	if fn == nil {
		return nil, ErrHandlerNil
	}
	if name == "" {
		var zero T
		name = qualifiedStructName(zero)
		if name == "<nil>" {
			return nil, ErrEmptyTaskName
		}
	}

	if err := q.RegisterHandler(name, NewTaskHandler(TaskHandlerFunc[T, R](fn))); err != nil {
		return nil, fmt.Errorf("failed to define task: %w", err)
	}

	return &TaskDef[T]{
		name:     name,
		queue:    q,
		defaults: opts,
	}, nil
}

// Name returns the task name the definition is registered under
func (d *TaskDef[T]) Name() string {
	return d.name
}

// Enqueue enqueues one run of the task with the definition defaults overridden by opts
func (d *TaskDef[T]) Enqueue(payload T, opts ...EnqueueOption) (*Task, error) {
	all := make([]EnqueueOption, 0, len(d.defaults)+len(opts))
	all = append(all, d.defaults...)
	all = append(all, opts...)
	return d.queue.Enqueue(d.name, payload, all...)
}
