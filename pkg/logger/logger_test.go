package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/taskqueue/pkg/environment"
	"github.com/dmitrymomot/taskqueue/pkg/logger"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew(t *testing.T) {
	t.Run("creates JSON logger", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf))
		log.Info("hello")

		entry := decode(t, buf)
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "hello", entry["msg"])
	})

	t.Run("text formatter option", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithTextFormatter())
		log.Info("hello")

		assert.Contains(t, buf.String(), "level=INFO")
		assert.Contains(t, buf.String(), "msg=hello")
	})

	t.Run("invalid format panics", func(t *testing.T) {
		assert.Panics(t, func() {
			logger.New(logger.WithFormat("xml"))
		})
	})

	t.Run("level filtering", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithLevel(slog.LevelWarn))
		log.Info("dropped")
		assert.Empty(t, buf.String())

		log.Warn("kept")
		assert.Equal(t, "kept", decode(t, buf)["msg"])
	})

	t.Run("level from name", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithLevelName("debug"))
		log.Debug("visible")
		assert.Equal(t, "visible", decode(t, buf)["msg"])

		buf.Reset()
		log = logger.New(logger.WithOutput(buf), logger.WithLevelName("nonsense"))
		log.Debug("hidden")
		assert.Empty(t, buf.String())
	})

	t.Run("static attributes", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithAttr(slog.String("svc", "taskd")))
		log.Info("hello")
		assert.Equal(t, "taskd", decode(t, buf)["svc"])
	})

	t.Run("context extractors", func(t *testing.T) {
		type key struct{}

		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithContextValue("request_id", key{}),
			logger.WithContextExtractors(nil, environment.LoggerExtractor()),
		)

		ctx := context.WithValue(context.Background(), key{}, "req-1")
		ctx = environment.WithContext(ctx, environment.Staging)
		log.With(slog.String("scope", "api")).InfoContext(ctx, "hello")

		entry := decode(t, buf)
		assert.Equal(t, "req-1", entry["request_id"])
		assert.Equal(t, "staging", entry["env"])
		assert.Equal(t, "api", entry["scope"])
	})
}

func TestWithEnvironment(t *testing.T) {
	t.Run("production logs JSON at info", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithEnvironment(environment.Production, "taskd"), logger.WithOutput(buf))
		log.Debug("hidden")
		assert.Empty(t, buf.String())

		log.Info("shown")
		entry := decode(t, buf)
		assert.Equal(t, "taskd", entry["service"])
		assert.Equal(t, "production", entry["env"])
	})

	t.Run("development logs text at debug", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithEnvironment("", "taskd"), logger.WithOutput(buf))
		log.Debug("shown")
		assert.Contains(t, buf.String(), "level=DEBUG")
		assert.Contains(t, buf.String(), "env=development")
	})

	t.Run("context environment wins", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithEnvironment(environment.Production, ""), logger.WithOutput(buf))
		log.InfoContext(environment.WithContext(context.Background(), environment.Staging), "shown")

		entry := decode(t, buf)
		assert.Equal(t, "staging", entry["env"])
		assert.NotContains(t, entry, "service")
	})
}

func TestWrapHandler(t *testing.T) {
	base := slog.NewJSONHandler(&bytes.Buffer{}, nil)
	assert.Same(t, base, logger.WrapHandler(base), "no extractors returns the handler as is")
	assert.Same(t, base, logger.WrapHandler(base, nil))

	buf := &bytes.Buffer{}
	h := logger.WrapHandler(slog.NewJSONHandler(buf, nil), func(context.Context) (slog.Attr, bool) {
		return slog.String("worker_id", "w1"), true
	})
	slog.New(h).With("component", "worker").WithGroup("task").Info("done", "id", "t1")

	entry := decode(t, buf)
	assert.Equal(t, "worker", entry["component"])
	task, ok := entry["task"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "t1", task["id"])
	assert.Equal(t, "w1", task["worker_id"], "extracted attributes follow the open group")
}

func TestAttrs(t *testing.T) {
	t.Run("group", func(t *testing.T) {
		attr := logger.Group("task", slog.String("id", "1"), slog.Int("attempt", 2))
		require.Equal(t, slog.KindGroup, attr.Value.Kind())
		assert.Len(t, attr.Value.Group(), 2)
	})

	t.Run("errors", func(t *testing.T) {
		err1 := errors.New("first")
		attr := logger.Errors(err1, nil)
		require.Equal(t, "errors", attr.Key)
		require.Len(t, attr.Value.Group(), 1)
		assert.Equal(t, err1, attr.Value.Group()[0].Value.Any())

		assert.True(t, logger.Errors(nil).Equal(slog.Attr{}))
		assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
		assert.Equal(t, "error", logger.Error(err1).Key)
	})

	t.Run("domain attributes", func(t *testing.T) {
		assert.Equal(t, "task_id", logger.TaskID("abc").Key)
		assert.True(t, logger.TaskID(nil).Equal(slog.Attr{}))
		assert.Equal(t, "task_name", logger.TaskName("job").Key)
		assert.Equal(t, "completed", logger.Status("completed").Value.String())
		assert.Equal(t, int64(10), logger.Priority(10).Value.Int64())
		assert.Equal(t, int64(2), logger.Attempt(2).Value.Int64())
		assert.Equal(t, "worker_id", logger.WorkerID("w1").Key)
		assert.True(t, logger.WorkerID(nil).Equal(slog.Attr{}))
		assert.Equal(t, "queue", logger.Queue("tasks").Key)
		assert.Equal(t, time.Second, logger.Duration(time.Second).Value.Duration())
		assert.Equal(t, "component", logger.Component("worker").Key)
		assert.Equal(t, "event", logger.Event("task.completed").Key)
	})

	t.Run("discard", func(t *testing.T) {
		log := logger.Discard()
		assert.False(t, log.Enabled(context.Background(), slog.LevelError))
	})
}
