package queue

import (
	"container/heap"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is the ordering key the Scheduler keeps for a task.
// It never carries mutable task state; the Task Store stays the source of truth.
type Entry struct {
	TaskID     uuid.UUID
	Priority   Priority
	EligibleAt time.Time
	Seq        uint64
	Gen        uint64
}

func newEntry(t *Task) Entry {
	return Entry{
		TaskID:     t.ID,
		Priority:   t.Priority,
		EligibleAt: t.EligibleAt(),
		Seq:        t.seq,
		Gen:        t.gen,
	}
}

// before orders entries by (-priority, eligible time, creation sequence).
func (e Entry) before(o Entry) bool {
	if e.Priority != o.Priority {
		return e.Priority > o.Priority
	}
	if !e.EligibleAt.Equal(o.EligibleAt) {
		return e.EligibleAt.Before(o.EligibleAt)
	}
	return e.Seq < o.Seq
}

// Scheduler is a thread-safe priority structure over task entries.
//
// Entries whose eligible time is still in the future wait in a delayed heap ordered by time;
// they are promoted into the ready heap as soon as they become due. Pop therefore only ever
// returns eligible entries and a future high-priority task never hides eligible work.
//
// Removal is lazy: cancelled or vanished tasks are skipped by the caller when popped.
type Scheduler struct {
	mu      sync.Mutex
	ready   readyHeap
	delayed delayedHeap
}

// NewScheduler creates an empty scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Push inserts an entry in O(log n).
func (s *Scheduler) Push(e Entry, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.EligibleAt.After(now) {
		heap.Push(&s.delayed, e)
		return
	}
	heap.Push(&s.ready, e)
}

// Pop removes and returns the best eligible entry at now.
// It returns false when nothing is eligible yet.
func (s *Scheduler) Pop(now time.Time) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.promote(now)

	if s.ready.Len() == 0 {
		return Entry{}, false
	}

	return heap.Pop(&s.ready).(Entry), true
}

// promote moves every due delayed entry into the ready heap.
// Readiness is decided only here and in Push: a ready entry stays ready even if the
// wall clock later steps backwards.
func (s *Scheduler) promote(now time.Time) {
	for s.delayed.Len() > 0 && !s.delayed[0].EligibleAt.After(now) {
		heap.Push(&s.ready, heap.Pop(&s.delayed))
	}
}

// NextEligibleAt reports the earliest eligible time among all entries.
func (s *Scheduler) NextEligibleAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.ready.Len() > 0:
		return s.ready[0].EligibleAt, true
	case s.delayed.Len() > 0:
		return s.delayed[0].EligibleAt, true
	}
	return time.Time{}, false
}

// Len returns the number of entries, including stale ones not yet discarded.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready.Len() + s.delayed.Len()
}

// Reset drops all entries.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = nil
	s.delayed = nil
}

type readyHeap []Entry

func (h readyHeap) Len() int           { return len(h) }
func (h readyHeap) Less(i, j int) bool { return h[i].before(h[j]) }
func (h readyHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *readyHeap) Push(x any)        { *h = append(*h, x.(Entry)) }
func (h *readyHeap) Pop() any          { return popLast((*[]Entry)(h)) }

type delayedHeap []Entry

func (h delayedHeap) Len() int { return len(h) }
func (h delayedHeap) Less(i, j int) bool {
	if !h[i].EligibleAt.Equal(h[j].EligibleAt) {
		return h[i].EligibleAt.Before(h[j].EligibleAt)
	}
	return h[i].Seq < h[j].Seq
}
func (h delayedHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *delayedHeap) Push(x any)   { *h = append(*h, x.(Entry)) }
func (h *delayedHeap) Pop() any     { return popLast((*[]Entry)(h)) }

func popLast(s *[]Entry) Entry {
	old := *s
	n := len(old)
	if n == 0 {
		panic("queue: scheduler corrupted: pop from empty heap")
	}
	e := old[n-1]
	old[n-1] = Entry{}
	*s = old[:n-1]
	return e
}
