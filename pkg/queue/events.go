package queue

import (
	"context"
	"sync"
	"time"
)

// EventType names a task lifecycle change.
type EventType string

const (
	EventEnqueued   EventType = "task.enqueued"
	EventDispatched EventType = "task.dispatched"
	EventCompleted  EventType = "task.completed"
	EventRetrying   EventType = "task.retrying"
	EventFailed     EventType = "task.failed"
	EventCancelled  EventType = "task.cancelled"
)

// Event is published after every successful lifecycle transition.
type Event struct {
	Type EventType `json:"type"`
	Task Task      `json:"task"`
	At   time.Time `json:"at"`
}

func eventFor(status TaskStatus) EventType {
	switch status {
	case TaskStatusRunning:
		return EventDispatched
	case TaskStatusCompleted:
		return EventCompleted
	case TaskStatusRetrying:
		return EventRetrying
	case TaskStatusFailed:
		return EventFailed
	case TaskStatusCancelled:
		return EventCancelled
	}
	return EventEnqueued
}

// Subscription receives lifecycle events until it is closed.
// Events are dropped, never queued without bound, when the subscriber falls behind.
type Subscription struct {
	ch     chan Event
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
	owner  *notifier
}

// C returns the channel events are delivered on. It is closed by Close.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Close stops delivery and closes the channel. It is safe to call more than once.
func (s *Subscription) Close() error {
	if s.owner != nil {
		s.owner.remove(s)
	}
	s.shut()
	return nil
}

func (s *Subscription) shut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		close(s.ch)
		close(s.done)
		s.closed = true
	}
}

func (s *Subscription) send(ev Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

// notifier fans events out to subscriptions without ever blocking the publisher.
type notifier struct {
	mu         sync.RWMutex
	subs       map[*Subscription]struct{}
	bufferSize int
}

func newNotifier(bufferSize int) *notifier {
	return &notifier{
		subs:       make(map[*Subscription]struct{}),
		bufferSize: max(bufferSize, 1),
	}
}

func (n *notifier) subscribe(ctx context.Context) *Subscription {
	sub := &Subscription{
		ch:    make(chan Event, n.bufferSize),
		done:  make(chan struct{}),
		owner: n,
	}

	n.mu.Lock()
	n.subs[sub] = struct{}{}
	n.mu.Unlock()

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				_ = sub.Close()
			case <-sub.done:
			}
		}()
	}
	return sub
}

func (n *notifier) publish(ev Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for sub := range n.subs {
		sub.send(ev)
	}
}

func (n *notifier) remove(sub *Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subs, sub)
}
