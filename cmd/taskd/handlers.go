package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/taskqueue/pkg/logger"
	"github.com/dmitrymomot/taskqueue/pkg/queue"
)

const (
	taskEcho      = "echo"
	taskSleep     = "sleep"
	taskHeartbeat = "heartbeat"
)

type sleepPayload struct {
	Duration string `json:"duration"`
	Fail     bool   `json:"fail,omitempty"`
}

type sleepResult struct {
	Slept string `json:"slept"`
}

type heartbeatResult struct {
	At time.Time `json:"at"`
}

// registerHandlers installs the built-in task handlers.
func registerHandlers(q *queue.Queue, log *slog.Logger) error {
	if err := q.RegisterHandler(taskEcho, queue.NewTaskHandler(
		func(_ context.Context, payload map[string]any) (map[string]any, error) {
			return payload, nil
		},
	)); err != nil {
		return err
	}

	if _, err := queue.Define(q, taskSleep, func(ctx context.Context, p sleepPayload) (sleepResult, error) {
		d, err := time.ParseDuration(p.Duration)
		if err != nil {
			return sleepResult{}, fmt.Errorf("invalid duration %q: %w", p.Duration, err)
		}

		select {
		case <-ctx.Done():
			return sleepResult{}, ctx.Err()
		case <-time.After(d):
		}

		if p.Fail {
			return sleepResult{}, fmt.Errorf("sleep %s finished with requested failure", d)
		}
		return sleepResult{Slept: d.String()}, nil
	}); err != nil {
		return err
	}

	if _, err := queue.Define(q, taskHeartbeat, func(ctx context.Context, _ struct{}) (heartbeatResult, error) {
		stats := q.Stats()
		log.InfoContext(ctx, "heartbeat",
			slog.Int("queue_size", stats.QueueSize),
			slog.Int("total_tasks", stats.TotalTasks),
			logger.Component("taskd"))
		return heartbeatResult{At: time.Now()}, nil
	}, queue.WithPriority(queue.PriorityLow), queue.WithMaxAttempts(1)); err != nil {
		return err
	}

	return nil
}
