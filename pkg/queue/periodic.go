package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// PeriodicQueue is the part of the queue the periodic scheduler needs
type PeriodicQueue interface {
	Enqueue(name string, payload any, opts ...EnqueueOption) (*Task, error)
	Query(f Filter) []*Task
}

// Periodic enqueues tasks on recurring schedules. At most one waiting
// (pending or retrying) instance of each periodic task exists at a time.
type Periodic struct {
	queue    PeriodicQueue
	jobs     map[string]*periodicJob
	mu       sync.RWMutex
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

type periodicJob struct {
	name     string
	schedule Schedule
	payload  any
	opts     []EnqueueOption
	lastRun  *time.Time // run time of the most recently enqueued instance
}

// NewPeriodic creates a periodic task scheduler on top of q
func NewPeriodic(q PeriodicQueue, opts ...PeriodicOption) (*Periodic, error) {
	if q == nil {
		return nil, ErrQueueNil
	}

	options := &periodicOptions{
		checkInterval: 30 * time.Second,
		clock:         time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Periodic{
		queue:    q,
		jobs:     make(map[string]*periodicJob),
		interval: options.checkInterval,
		now:      options.clock,
		logger:   options.logger,
	}, nil
}

// AddTask registers a periodic task. payload may be nil. Enqueue options such as
// WithPriority and WithMaxAttempts apply to every instance; the run time is set by the schedule.
func (p *Periodic) AddTask(name string, schedule Schedule, payload any, opts ...EnqueueOption) error {
	if name == "" {
		return ErrEmptyTaskName
	}
	if err := validateSchedule(schedule); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrTaskAlreadyRegistered, name)
	}

	p.jobs[name] = &periodicJob{
		name:     name,
		schedule: schedule,
		payload:  payload,
		opts:     opts,
	}

	p.logger.Info("registered periodic task",
		slog.String("task_name", name),
		slog.String("schedule", schedule.String()))

	return nil
}

// RemoveTask unregisters a periodic task. Already enqueued instances are left alone.
func (p *Periodic) RemoveTask(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.jobs, name)

	p.logger.Info("removed periodic task", slog.String("task_name", name))
}

// ListTasks returns the names of registered periodic tasks, sorted
func (p *Periodic) ListTasks() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.jobs))
	for name := range p.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start checks the registered tasks immediately and then on every tick until ctx is done.
// It returns ctx.Err() on shutdown.
func (p *Periodic) Start(ctx context.Context) error {
	p.mu.RLock()
	count := len(p.jobs)
	p.mu.RUnlock()

	if count == 0 {
		return ErrSchedulerNotConfigured
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("periodic scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}

// Run returns a function suitable for errgroup. Context cancellation is a clean exit.
func (p *Periodic) Run(ctx context.Context) func() error {
	return func() error {
		if err := p.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}

// Check runs one scheduling pass over all registered tasks
func (p *Periodic) Check(ctx context.Context) {
	p.mu.RLock()
	jobs := make([]*periodicJob, 0, len(p.jobs))
	for _, job := range p.jobs {
		jobs = append(jobs, job)
	}
	p.mu.RUnlock()

	now := p.now()
	for _, job := range jobs {
		if ctx.Err() != nil {
			return
		}
		if err := p.scheduleIfNeeded(job, now); err != nil {
			p.logger.Error("failed to schedule periodic task",
				slog.String("task_name", job.name),
				slog.String("error", err.Error()))
		}
	}
}

func (p *Periodic) scheduleIfNeeded(job *periodicJob, now time.Time) error {
	if p.hasWaitingInstance(job.name) {
		p.logger.Debug("periodic task already waiting", slog.String("task_name", job.name))
		return nil
	}

	p.mu.RLock()
	last := job.lastRun
	p.mu.RUnlock()

	runAt, due := nextPeriodicRun(job.schedule, last, now)
	if !due {
		return nil
	}

	opts := append(append([]EnqueueOption{}, job.opts...), WithScheduledAt(runAt))
	task, err := p.queue.Enqueue(job.name, job.payload, opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue periodic task: %w", err)
	}

	p.mu.Lock()
	job.lastRun = &runAt
	p.mu.Unlock()

	p.logger.Info("enqueued periodic task",
		slog.String("task_name", job.name),
		slog.String("task_id", task.ID.String()),
		slog.Time("scheduled_for", runAt),
		slog.Bool("first_run", last == nil))

	return nil
}

func (p *Periodic) hasWaitingInstance(name string) bool {
	for _, status := range []TaskStatus{TaskStatusPending, TaskStatusRetrying} {
		if len(p.queue.Query(Filter{Status: status, Name: name, Limit: 1})) > 0 {
			return true
		}
	}
	return false
}

// nextPeriodicRun picks the run time of the next instance. The first instance runs at the
// schedule's next slot; later ones follow the previous run. Missed runs collapse into one
// immediate run.
func nextPeriodicRun(s Schedule, last *time.Time, now time.Time) (time.Time, bool) {
	if last == nil {
		return s.Next(now), true
	}
	if last.After(now) {
		return time.Time{}, false
	}

	next := s.Next(*last)
	if !next.After(now) {
		return now, true
	}
	return next, true
}
