package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
	TaskStatusRetrying  TaskStatus = "retrying"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted,
		TaskStatusFailed, TaskStatusCancelled, TaskStatusRetrying:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusCancelled
}

// waiting reports whether a task in this status is waiting in the scheduler for dispatch.
func (s TaskStatus) waiting() bool {
	return s == TaskStatusPending || s == TaskStatusRetrying
}

// Priority represents task priority. Higher values are served first.
// Any integer is accepted; the constants below are the canonical levels.
type Priority int

const (
	PriorityLow      Priority = 1
	PriorityNormal   Priority = 5
	PriorityHigh     Priority = 10
	PriorityCritical Priority = 20
	PriorityDefault  Priority = PriorityNormal
)

// Task is a snapshot of a task record.
// Values returned by Queue are copies; mutating them has no effect on the queue.
type Task struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Status      TaskStatus      `json:"status"`
	Priority    Priority        `json:"priority"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	ScheduledAt *time.Time      `json:"scheduled_at,omitempty"`

	// seq is the creation order within the owning queue; it breaks ordering ties.
	seq uint64
	// gen is bumped every time the task is (re)inserted into the scheduler so that
	// stale positional entries can be recognised at extraction time.
	gen uint64
}

// EligibleAt returns the earliest instant the task may be dispatched.
func (t *Task) EligibleAt() time.Time {
	if t.ScheduledAt != nil {
		return *t.ScheduledAt
	}
	return t.CreatedAt
}

// clone returns a deep enough copy for handing out of the store.
// Payload and Result are treated as immutable once set and are shared.
func (t *Task) clone() *Task {
	c := *t
	c.StartedAt = cloneTime(t.StartedAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	c.ScheduledAt = cloneTime(t.ScheduledAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// TaskResult describes the outcome of one dispatch attempt.
type TaskResult struct {
	TaskID   uuid.UUID       `json:"task_id"`
	Name     string          `json:"name"`
	Status   TaskStatus      `json:"status"`
	Attempt  int             `json:"attempt"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
	Duration time.Duration   `json:"duration"`
}

// Filter narrows Query results. Zero values match everything.
type Filter struct {
	Status TaskStatus
	Name   string
	Limit  int
}

// DefaultQueryLimit is applied when Filter.Limit is not positive.
const DefaultQueryLimit = 100

// Stats is a point-in-time view of the queue.
// Enqueued, Completed, Failed and Cancelled are lifetime counters that survive Reset.
type Stats struct {
	QueueSize          int                `json:"queue_size"`
	TotalTasks         int                `json:"total_tasks"`
	HandlersRegistered int                `json:"handlers_registered"`
	Enqueued           uint64             `json:"enqueued"`
	Completed          uint64             `json:"completed"`
	Failed             uint64             `json:"failed"`
	Cancelled          uint64             `json:"cancelled"`
	StatusCounts       map[TaskStatus]int `json:"status_counts"`
}
