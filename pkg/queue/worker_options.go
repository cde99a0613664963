package queue

import (
	"log/slog"
	"time"
)

// WorkerOption is a functional option for configuring a worker
type WorkerOption func(*workerOptions)

type workerOptions struct {
	pollInterval    time.Duration
	maxConcurrent   int
	shutdownTimeout time.Duration
	taskTimeout     time.Duration
	resultHook      ResultHook
	logger          *slog.Logger
}

// WithPollInterval sets how long the worker sleeps when no task is eligible
func WithPollInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithMaxConcurrent sets the maximum number of concurrently running handlers
func WithMaxConcurrent(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.maxConcurrent = n
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for in-flight handlers
func WithShutdownTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}

// WithTaskTimeout sets a deadline on the handler context. Zero means no deadline.
func WithTaskTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d >= 0 {
			o.taskTimeout = d
		}
	}
}

// WithResultHook registers a callback invoked after every recorded attempt
func WithResultHook(hook ResultHook) WorkerOption {
	return func(o *workerOptions) {
		o.resultHook = hook
	}
}

// WithWorkerLogger sets the logger for the worker
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
