package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// WorkerQueue is the part of the queue a Worker drives
type WorkerQueue interface {
	// Dequeue claims the next eligible task without blocking
	Dequeue() (*Task, bool)

	// Complete marks a running task as completed
	Complete(id uuid.UUID, result json.RawMessage) (*Task, error)

	// Fail records a failed attempt; the queue decides between retrying and failed
	Fail(id uuid.UUID, errMsg string) (*Task, error)

	// Lookup returns the handler registered for a task name
	Lookup(name string) (Handler, bool)
}

// ResultHook receives the outcome of every dispatch attempt
type ResultHook func(ctx context.Context, res TaskResult)

// WorkerStats is a point-in-time view of worker activity
type WorkerStats struct {
	WorkerID            string        `json:"worker_id"`
	Hostname            string        `json:"hostname,omitempty"`
	PID                 int           `json:"pid"`
	Running             bool          `json:"running"`
	ActiveTasks         int           `json:"active_tasks"`
	MaxConcurrent       int           `json:"max_concurrent"`
	TasksProcessed      uint64        `json:"tasks_processed"`
	TasksSucceeded      uint64        `json:"tasks_succeeded"`
	TasksFailed         uint64        `json:"tasks_failed"`
	TotalProcessingTime time.Duration `json:"total_processing_time"`
	AvgProcessingTime   time.Duration `json:"avg_processing_time"`
}

// Worker polls the queue and runs handlers, at most maxConcurrent at a time
type Worker struct {
	queue    WorkerQueue
	workerID uuid.UUID
	hostname string
	pid      int
	sem      chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex

	// Configuration
	pollInterval    time.Duration
	shutdownTimeout time.Duration
	taskTimeout     time.Duration
	resultHook      ResultHook
	logger          *slog.Logger

	// State management
	cancel   context.CancelFunc
	stopping atomic.Bool

	statsMu   sync.Mutex
	active    int
	processed uint64
	succeeded uint64
	failed    uint64
	totalTime time.Duration
}

// NewWorker creates a new task worker
func NewWorker(q WorkerQueue, opts ...WorkerOption) (*Worker, error) {
	if q == nil {
		return nil, ErrQueueNil
	}

	// Default options
	options := &workerOptions{
		pollInterval:    time.Second,
		maxConcurrent:   5,
		shutdownTimeout: 5 * time.Second,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		opt(options)
	}

	hostname, _ := os.Hostname()

	return &Worker{
		queue:           q,
		workerID:        uuid.New(),
		hostname:        hostname,
		pid:             os.Getpid(),
		sem:             make(chan struct{}, options.maxConcurrent),
		pollInterval:    options.pollInterval,
		shutdownTimeout: options.shutdownTimeout,
		taskTimeout:     options.taskTimeout,
		resultHook:      options.resultHook,
		logger:          options.logger,
	}, nil
}

// Start begins processing tasks in the background. Calling it on a running worker is a no-op.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.stopping.Store(false)

	w.wg.Add(1)
	go w.run(runCtx)

	id, hostname, pid := w.WorkerInfo()
	w.logger.Info("worker started",
		slog.String("worker_id", id),
		slog.String("hostname", hostname),
		slog.Int("pid", pid),
		slog.Int("max_concurrent", cap(w.sem)),
		slog.Duration("poll_interval", w.pollInterval))

	return nil
}

// Stop signals the loop to exit and waits up to the shutdown timeout for in-flight
// handlers. Handlers are never interrupted; ErrShutdownTimeout reports that some are still running.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return nil
	}

	w.stopping.Store(true)
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()

	w.logger.Info("worker stopping, waiting for active tasks to complete",
		slog.String("worker_id", w.workerID.String()))

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(w.shutdownTimeout)
	defer timer.Stop()

	select {
	case <-done:
		w.logger.Info("worker stopped",
			slog.String("worker_id", w.workerID.String()))
		return nil
	case <-timer.C:
		w.logger.Warn("worker shutdown timed out with tasks still running",
			slog.String("worker_id", w.workerID.String()),
			slog.Int("active_tasks", w.Stats().ActiveTasks))
		return ErrShutdownTimeout
	}
}

// Run starts the worker and returns a function suitable for errgroup
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return w.Stop()
	}
}

// ID returns the worker identifier used in logs
func (w *Worker) ID() uuid.UUID {
	return w.workerID
}

// WorkerInfo identifies the worker process: its id, host and pid
func (w *Worker) WorkerInfo() (id string, hostname string, pid int) {
	return w.workerID.String(), w.hostname, w.pid
}

// Stats returns a snapshot of worker counters
func (w *Worker) Stats() WorkerStats {
	w.mu.Lock()
	running := w.cancel != nil
	w.mu.Unlock()

	w.statsMu.Lock()
	defer w.statsMu.Unlock()

	id, hostname, pid := w.WorkerInfo()
	stats := WorkerStats{
		WorkerID:            id,
		Hostname:            hostname,
		PID:                 pid,
		Running:             running,
		ActiveTasks:         w.active,
		MaxConcurrent:       cap(w.sem),
		TasksProcessed:      w.processed,
		TasksSucceeded:      w.succeeded,
		TasksFailed:         w.failed,
		TotalProcessingTime: w.totalTime,
	}
	if w.processed > 0 {
		stats.AvgProcessingTime = w.totalTime / time.Duration(w.processed)
	}
	return stats
}

// run is the main processing loop
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		// Backpressure: wait for a free slot
		select {
		case <-ctx.Done():
			return
		case w.sem <- struct{}{}:
		}

		// Never claim a task once shutdown began; it would be stranded in running
		if ctx.Err() != nil || w.stopping.Load() {
			<-w.sem
			return
		}

		task, ok := w.queue.Dequeue()
		if !ok {
			<-w.sem
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.pollInterval):
			}
			continue
		}

		// The loop holds its own WaitGroup slot, so this Add never races Wait
		w.wg.Add(1)
		w.beginTask()

		go func() {
			defer w.wg.Done()
			defer func() { <-w.sem }() // Release slot

			w.processTask(ctx, task)
		}()
	}
}

// processTask executes one claimed task and reports the outcome to the queue
func (w *Worker) processTask(ctx context.Context, task *Task) {
	start := time.Now()

	w.logger.Debug("processing task",
		slog.String("worker_id", w.workerID.String()),
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.Name),
		slog.Int("attempt", task.Attempts))

	// Handlers outlive the worker context so Stop lets them finish
	handlerCtx := WithTaskInfo(context.WithoutCancel(ctx), TaskInfo{
		ID:      task.ID,
		Name:    task.Name,
		Attempt: task.Attempts,
	})
	if w.taskTimeout > 0 {
		var cancel context.CancelFunc
		handlerCtx, cancel = context.WithTimeout(handlerCtx, w.taskTimeout)
		defer cancel()
	}

	result, execErr := w.execute(handlerCtx, task)
	duration := time.Since(start)

	w.endTask(execErr == nil, duration)

	var (
		updated   *Task
		reportErr error
	)
	if execErr == nil {
		updated, reportErr = w.queue.Complete(task.ID, result)
	} else {
		updated, reportErr = w.queue.Fail(task.ID, execErr.Error())
	}

	if reportErr != nil {
		w.logger.Warn("failed to record task outcome",
			slog.String("worker_id", w.workerID.String()),
			slog.String("task_id", task.ID.String()),
			slog.String("task_name", task.Name),
			slog.String("error", reportErr.Error()))
		return
	}

	res := TaskResult{
		TaskID:   task.ID,
		Name:     task.Name,
		Status:   updated.Status,
		Attempt:  task.Attempts,
		Result:   updated.Result,
		Duration: duration,
	}

	switch updated.Status {
	case TaskStatusCompleted:
		w.logger.Info("task completed successfully",
			slog.String("worker_id", w.workerID.String()),
			slog.String("task_id", task.ID.String()),
			slog.String("task_name", task.Name),
			slog.Duration("duration", duration))
	case TaskStatusRetrying:
		res.Error = updated.Error
		w.logger.Warn("task failed, will retry",
			slog.String("worker_id", w.workerID.String()),
			slog.String("task_id", task.ID.String()),
			slog.String("task_name", task.Name),
			slog.Int("attempt", updated.Attempts),
			slog.Int("max_attempts", updated.MaxAttempts),
			slog.Duration("duration", duration),
			slog.String("error", updated.Error))
	default:
		res.Error = updated.Error
		w.logger.Error("task failed",
			slog.String("worker_id", w.workerID.String()),
			slog.String("task_id", task.ID.String()),
			slog.String("task_name", task.Name),
			slog.Int("attempt", updated.Attempts),
			slog.Duration("duration", duration),
			slog.String("error", updated.Error))
	}

	if w.resultHook != nil {
		w.resultHook(handlerCtx, res)
	}
}

// execute runs the handler, turning a missing handler or a panic into an error
func (w *Worker) execute(ctx context.Context, task *Task) (result json.RawMessage, retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
			w.logger.Error("handler panicked",
				slog.String("worker_id", w.workerID.String()),
				slog.String("task_id", task.ID.String()),
				slog.String("task_name", task.Name),
				slog.Any("panic", r))
		}
	}()

	handler, ok := w.queue.Lookup(task.Name)
	if !ok {
		w.logger.Error("no handler registered for task",
			slog.String("worker_id", w.workerID.String()),
			slog.String("task_id", task.ID.String()),
			slog.String("task_name", task.Name))
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, task.Name)
	}

	result, err := handler.Handle(ctx, task.Payload)
	if err != nil {
		return nil, err
	}
	if len(result) > 0 && !json.Valid(result) {
		return nil, fmt.Errorf("%w: handler for %q returned %d bytes", ErrInvalidResult, task.Name, len(result))
	}
	return result, nil
}

func (w *Worker) beginTask() {
	w.statsMu.Lock()
	w.active++
	w.statsMu.Unlock()
}

func (w *Worker) endTask(ok bool, duration time.Duration) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()

	w.active--
	w.processed++
	w.totalTime += duration
	if ok {
		w.succeeded++
	} else {
		w.failed++
	}
}
