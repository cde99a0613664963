package queue_test

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/taskqueue/pkg/queue"
)

func TestScheduler_PopOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := queue.NewScheduler()

	entries := []queue.Entry{
		{TaskID: uuid.New(), Priority: 5, EligibleAt: now, Seq: 1},
		{TaskID: uuid.New(), Priority: 10, EligibleAt: now, Seq: 2},
		{TaskID: uuid.New(), Priority: 5, EligibleAt: now.Add(-time.Second), Seq: 3},
		{TaskID: uuid.New(), Priority: 5, EligibleAt: now, Seq: 0},
		{TaskID: uuid.New(), Priority: 1, EligibleAt: now.Add(-time.Hour), Seq: 4},
	}
	for _, e := range entries {
		s.Push(e, now)
	}
	require.Equal(t, len(entries), s.Len())

	want := []uuid.UUID{entries[1].TaskID, entries[2].TaskID, entries[3].TaskID, entries[0].TaskID, entries[4].TaskID}
	for i, id := range want {
		e, ok := s.Pop(now)
		require.True(t, ok, "pop %d", i)
		assert.Equal(t, id, e.TaskID, "pop %d", i)
	}

	_, ok := s.Pop(now)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestScheduler_DelayedEntries(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := queue.NewScheduler()

	future := queue.Entry{TaskID: uuid.New(), Priority: 100, EligibleAt: now.Add(time.Minute), Seq: 1}
	ready := queue.Entry{TaskID: uuid.New(), Priority: 1, EligibleAt: now, Seq: 2}
	s.Push(future, now)

	_, ok := s.Pop(now)
	assert.False(t, ok, "future entry must not be returned")

	next, ok := s.NextEligibleAt()
	require.True(t, ok)
	assert.Equal(t, future.EligibleAt, next)

	s.Push(ready, now)
	e, ok := s.Pop(now)
	require.True(t, ok)
	assert.Equal(t, ready.TaskID, e.TaskID)

	e, ok = s.Pop(now.Add(time.Minute))
	require.True(t, ok)
	assert.Equal(t, future.TaskID, e.TaskID)
}

func TestScheduler_PromotedEntriesCompeteByPriority(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := queue.NewScheduler()

	low := queue.Entry{TaskID: uuid.New(), Priority: 1, EligibleAt: now, Seq: 1}
	high := queue.Entry{TaskID: uuid.New(), Priority: 10, EligibleAt: now.Add(time.Second), Seq: 2}
	s.Push(low, now)
	s.Push(high, now)

	later := now.Add(2 * time.Second)
	e, ok := s.Pop(later)
	require.True(t, ok)
	assert.Equal(t, high.TaskID, e.TaskID)

	e, ok = s.Pop(later)
	require.True(t, ok)
	assert.Equal(t, low.TaskID, e.TaskID)
}

func TestScheduler_RandomisedOrdering(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base.Add(30 * time.Second)
	s := queue.NewScheduler()

	for i := 0; i < 300; i++ {
		s.Push(queue.Entry{
			TaskID:     uuid.New(),
			Priority:   queue.Priority(rand.IntN(5)),
			EligibleAt: base.Add(time.Duration(rand.IntN(60)) * time.Second),
			Seq:        uint64(i),
		}, base)
	}

	var popped []queue.Entry
	for {
		e, ok := s.Pop(now)
		if !ok {
			break
		}
		assert.False(t, e.EligibleAt.After(now), "returned an ineligible entry")
		popped = append(popped, e)
	}

	for i := 1; i < len(popped); i++ {
		prev, cur := popped[i-1], popped[i]
		if prev.Priority != cur.Priority {
			assert.Greater(t, prev.Priority, cur.Priority)
			continue
		}
		if !prev.EligibleAt.Equal(cur.EligibleAt) {
			assert.True(t, prev.EligibleAt.Before(cur.EligibleAt))
			continue
		}
		assert.Less(t, prev.Seq, cur.Seq)
	}

	// Whatever is left is still in the future
	next, ok := s.NextEligibleAt()
	if ok {
		assert.True(t, next.After(now))
	}
}

func TestScheduler_Reset(t *testing.T) {
	t.Parallel()

	now := time.Now()
	s := queue.NewScheduler()
	s.Push(queue.Entry{TaskID: uuid.New(), EligibleAt: now}, now)
	s.Push(queue.Entry{TaskID: uuid.New(), EligibleAt: now.Add(time.Hour)}, now)
	require.Equal(t, 2, s.Len())

	s.Reset()
	assert.Equal(t, 0, s.Len())
	_, ok := s.NextEligibleAt()
	assert.False(t, ok)
	_, ok = s.Pop(now.Add(2 * time.Hour))
	assert.False(t, ok)
}

func TestScheduler_ReadyEntrySurvivesClockStepBack(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := queue.NewScheduler()
	e := queue.Entry{TaskID: uuid.New(), Priority: 5, EligibleAt: now.Add(-time.Second), Seq: 1}
	s.Push(e, now)

	var got queue.Entry
	var ok bool
	require.NotPanics(t, func() { got, ok = s.Pop(now.Add(-5 * time.Second)) })
	require.True(t, ok)
	assert.Equal(t, e.TaskID, got.TaskID)
}
