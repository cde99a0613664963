package queue

// taskEvent triggers a status transition.
type taskEvent string

const (
	eventDispatch taskEvent = "dispatch"
	eventComplete taskEvent = "complete"
	eventFail     taskEvent = "fail"
	eventCancel   taskEvent = "cancel"
)

// guard decides whether a transition applies to the task.
type guard func(t *Task) bool

type transition struct {
	from   TaskStatus
	to     TaskStatus
	event  taskEvent
	guards []guard
}

func attemptsLeft(t *Task) bool { return t.Attempts < t.MaxAttempts }
func attemptsSpent(t *Task) bool { return t.Attempts >= t.MaxAttempts }

// lifecycle is the complete task state machine:
//
//	pending  --dispatch--> running
//	retrying --dispatch--> running
//	running  --complete--> completed
//	running  --fail------> retrying  (attempts < max_attempts)
//	running  --fail------> failed    (attempts >= max_attempts)
//	pending  --cancel----> cancelled
var lifecycle = buildLifecycle([]transition{
	{from: TaskStatusPending, to: TaskStatusRunning, event: eventDispatch},
	{from: TaskStatusRetrying, to: TaskStatusRunning, event: eventDispatch},
	{from: TaskStatusRunning, to: TaskStatusCompleted, event: eventComplete},
	{from: TaskStatusRunning, to: TaskStatusRetrying, event: eventFail, guards: []guard{attemptsLeft}},
	{from: TaskStatusRunning, to: TaskStatusFailed, event: eventFail, guards: []guard{attemptsSpent}},
	{from: TaskStatusPending, to: TaskStatusCancelled, event: eventCancel},
})

// buildLifecycle indexes transitions as [from][event][]transition.
// Several transitions may share a from/event pair; guards pick between them in order.
func buildLifecycle(ts []transition) map[TaskStatus]map[taskEvent][]transition {
	m := make(map[TaskStatus]map[taskEvent][]transition)
	for _, t := range ts {
		if _, ok := m[t.from]; !ok {
			m[t.from] = make(map[taskEvent][]transition)
		}
		m[t.from][t.event] = append(m[t.from][t.event], t)
	}
	return m
}

// nextStatus resolves the status the task moves to on ev without mutating it.
func nextStatus(t *Task, ev taskEvent) (TaskStatus, error) {
	for _, tr := range lifecycle[t.Status][ev] {
		passed := true
		for _, g := range tr.guards {
			if !g(t) {
				passed = false
				break
			}
		}
		if passed {
			return tr.to, nil
		}
	}
	return t.Status, &TransitionError{From: t.Status, Event: string(ev)}
}
