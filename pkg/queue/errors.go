package queue

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrQueueFull is returned by Enqueue when the number of tasks waiting for dispatch reached the capacity bound
	ErrQueueFull = errors.New("task queue is full")

	// ErrEmptyTaskName is returned when a task or handler is registered without a name
	ErrEmptyTaskName = errors.New("task name cannot be empty")

	// ErrPayloadMarshal is returned when payload marshaling fails
	ErrPayloadMarshal = errors.New("failed to marshal payload to JSON")

	// ErrTaskNotFound is returned when an operation references an unknown task id.
	// Tasks disappear after Reset, so callers should treat it as a soft condition.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidTransition is returned when an operation is not allowed from the task's current status
	ErrInvalidTransition = errors.New("invalid task status transition")

	// ErrNotCancellable is returned when Cancel targets a task that is no longer pending
	ErrNotCancellable = fmt.Errorf("%w: only pending tasks can be cancelled", ErrInvalidTransition)

	// ErrHandlerNotFound is returned when no handler is registered for a task
	ErrHandlerNotFound = errors.New("no handler registered for task")

	// ErrInvalidResult is returned when a handler result is not valid JSON
	ErrInvalidResult = errors.New("task result is not valid JSON")

	// ErrHandlerNil is returned when registering a nil handler
	ErrHandlerNil = errors.New("handler cannot be nil")

	// ErrHandlerPanic wraps a value recovered from a panicking handler
	ErrHandlerPanic = errors.New("panic in handler")

	// ErrQueueNil is returned when a nil queue is provided
	ErrQueueNil = errors.New("queue cannot be nil")

	// ErrShutdownTimeout is returned by Worker.Stop when in-flight tasks did not settle in time
	ErrShutdownTimeout = errors.New("timed out waiting for in-flight tasks")

	// ErrInvalidSchedule is returned when schedule format is invalid
	ErrInvalidSchedule = errors.New("invalid schedule format")

	// ErrTaskAlreadyRegistered is returned when trying to register a duplicate periodic task
	ErrTaskAlreadyRegistered = errors.New("task already registered")

	// ErrSchedulerNotConfigured is returned when the periodic scheduler has no tasks
	ErrSchedulerNotConfigured = errors.New("scheduler has no registered tasks")

	// ErrNoScheduleSpecified is returned when no schedule is provided for periodic task
	ErrNoScheduleSpecified = errors.New("no schedule specified for periodic task")
)

// TransitionError reports an operation that the task lifecycle does not allow from its current status.
type TransitionError struct {
	From  TaskStatus
	Event string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("no transition available from status '%s' for event '%s'", e.From, e.Event)
}

// Unwrap lets errors.Is match ErrInvalidTransition.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// IsTransitionError reports whether err carries a *TransitionError.
func IsTransitionError(err error) bool {
	var e *TransitionError
	return errors.As(err, &e)
}
