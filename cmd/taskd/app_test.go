package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/taskqueue/pkg/config"
	"github.com/dmitrymomot/taskqueue/pkg/environment"
	"github.com/dmitrymomot/taskqueue/pkg/logger"
	"github.com/dmitrymomot/taskqueue/pkg/queue"
)

func testConfig(t *testing.T) appConfig {
	t.Helper()
	t.Setenv("QUEUE_POLL_INTERVAL", "10ms")
	t.Setenv("HTTP_ADDR", "127.0.0.1:0")
	t.Setenv("HEARTBEAT_INTERVAL", "0s")

	var cfg appConfig
	require.NoError(t, config.Load(&cfg, config.WithoutDefaultEnvFile()))
	return cfg
}

func TestConfigDefaults(t *testing.T) {
	cfg := testConfig(t)

	assert.Equal(t, "taskd", cfg.AppName)
	assert.Equal(t, 10000, cfg.Queue.MaxSize)
	assert.Equal(t, 5, cfg.Queue.MaxConcurrent)
	assert.Equal(t, "none", cfg.Notify.Backend)
	assert.Equal(t, "taskqueue", cfg.Notify.Channel)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Notify.Redis.ConnectionURL)
}

func TestApp_ProcessesTasksSubmittedOverHTTP(t *testing.T) {
	cfg := testConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg, environment.Development, logger.Discard())
	require.NoError(t, err)
	defer a.close()

	require.NoError(t, a.worker.Start(ctx))
	defer func() { _ = a.worker.Stop() }()

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tasks",
		strings.NewReader(`{"name":"echo","payload":{"hello":"world"}}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created queue.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	require.Eventually(t, func() bool {
		task, err := a.queue.GetTask(created.ID)
		return err == nil && task.Status == queue.TaskStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	task, err := a.queue.GetTask(created.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hello":"world"}`, string(task.Result))

	rec = httptest.NewRecorder()
	a.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "taskd_tasks_completed_total 1")
}

func TestHandlers(t *testing.T) {
	t.Parallel()

	q := queue.NewQueue(queue.WithQueueLogger(logger.Discard()))
	require.NoError(t, registerHandlers(q, logger.Discard()))

	for _, name := range []string{taskEcho, taskSleep, taskHeartbeat} {
		_, ok := q.Lookup(name)
		assert.True(t, ok, name)
	}

	run := func(name string, payload string) (json.RawMessage, error) {
		h, _ := q.Lookup(name)
		return h.Handle(context.Background(), json.RawMessage(payload))
	}

	res, err := run(taskSleep, `{"duration":"1ms"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"slept":"1ms"}`, string(res))

	_, err = run(taskSleep, `{"duration":"1ms","fail":true}`)
	assert.Error(t, err)

	_, err = run(taskSleep, `{"duration":"later"}`)
	assert.Error(t, err)

	res, err = run(taskHeartbeat, `{}`)
	require.NoError(t, err)
	assert.Contains(t, string(res), `"at"`)
}

func TestApp_Run_StopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.HeartbeatInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	a, err := newApp(ctx, cfg, environment.Development, logger.Discard())
	require.NoError(t, err)
	defer a.close()

	done := make(chan error, 1)
	go func() { done <- a.run(ctx) }()

	require.Eventually(t, func() bool {
		return len(a.queue.Query(queue.Filter{Name: taskHeartbeat})) == 1
	}, 2*time.Second, 10*time.Millisecond, "heartbeat scheduled on start")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.Fail(t, "app did not stop")
	}

	_, err = a.queue.GetTask(uuid.New())
	assert.ErrorIs(t, err, queue.ErrTaskNotFound)
}
