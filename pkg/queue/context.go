package queue

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// TaskInfo identifies the task a handler is running for.
type TaskInfo struct {
	ID      uuid.UUID
	Name    string
	Attempt int
}

type taskInfoKey struct{}

// WithTaskInfo returns a copy of ctx carrying info.
func WithTaskInfo(ctx context.Context, info TaskInfo) context.Context {
	return context.WithValue(ctx, taskInfoKey{}, info)
}

// TaskInfoFromContext returns the task identity stored by the worker, if any.
func TaskInfoFromContext(ctx context.Context) (TaskInfo, bool) {
	if ctx == nil {
		return TaskInfo{}, false
	}
	info, ok := ctx.Value(taskInfoKey{}).(TaskInfo)
	return info, ok
}

// LoggerExtractor returns a logger context extractor that groups the running task's
// identity under the "task" key.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		info, ok := TaskInfoFromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return slog.Group("task",
			slog.String("id", info.ID.String()),
			slog.String("name", info.Name),
			slog.Int("attempt", info.Attempt),
		), true
	}
}
