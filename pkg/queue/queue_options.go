package queue

import (
	"log/slog"
	"time"
)

// QueueOption is a functional option for configuring a Queue
type QueueOption func(*queueOptions)

type queueOptions struct {
	maxSize            int
	defaultMaxAttempts int
	defaultPriority    Priority
	backoff            RetryBackoff
	registry           *Registry
	eventBuffer        int
	logger             *slog.Logger
	clock              func() time.Time
}

// WithMaxSize bounds the number of tasks waiting for dispatch
func WithMaxSize(n int) QueueOption {
	return func(o *queueOptions) {
		if n > 0 {
			o.maxSize = n
		}
	}
}

// WithDefaultMaxAttempts sets the attempt ceiling used when Enqueue gets none
func WithDefaultMaxAttempts(n int) QueueOption {
	return func(o *queueOptions) {
		if n > 0 {
			o.defaultMaxAttempts = n
		}
	}
}

// WithDefaultPriority sets the priority used when Enqueue gets none
func WithDefaultPriority(p Priority) QueueOption {
	return func(o *queueOptions) {
		o.defaultPriority = p
	}
}

// WithRetryBackoff sets the delay policy applied before a failed task is retried
func WithRetryBackoff(b RetryBackoff) QueueOption {
	return func(o *queueOptions) {
		if b != nil {
			o.backoff = b
		}
	}
}

// WithRegistry shares an existing handler registry with the queue
func WithRegistry(r *Registry) QueueOption {
	return func(o *queueOptions) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithEventBuffer sets the per-subscription event buffer size
func WithEventBuffer(n int) QueueOption {
	return func(o *queueOptions) {
		if n > 0 {
			o.eventBuffer = n
		}
	}
}

// WithQueueLogger sets the logger for the queue
func WithQueueLogger(logger *slog.Logger) QueueOption {
	return func(o *queueOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) QueueOption {
	return func(o *queueOptions) {
		if now != nil {
			o.clock = now
		}
	}
}

// EnqueueOption is a functional option for the Enqueue method
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	priority    *Priority
	maxAttempts int
	delay       time.Duration
	scheduledAt *time.Time
}

// WithPriority sets the priority for the task
func WithPriority(priority Priority) EnqueueOption {
	return func(o *enqueueOptions) {
		o.priority = &priority
	}
}

// WithMaxAttempts sets the attempt ceiling for the task; values below 1 are ignored
func WithMaxAttempts(n int) EnqueueOption {
	return func(o *enqueueOptions) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithDelay makes the task eligible only after d has passed
func WithDelay(d time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if d > 0 {
			o.delay = d
		}
	}
}

// WithScheduledAt sets the earliest time the task may run. It takes precedence over WithDelay.
func WithScheduledAt(at time.Time) EnqueueOption {
	return func(o *enqueueOptions) {
		if !at.IsZero() {
			o.scheduledAt = &at
		}
	}
}
