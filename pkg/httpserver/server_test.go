package httpserver_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/taskqueue/pkg/httpserver"
)

// startServer runs srv on an ephemeral port and waits for the start hook.
func startServer(t *testing.T, ctx context.Context, handler http.Handler, opts ...httpserver.Option) (*httpserver.Server, <-chan error) {
	t.Helper()

	started := make(chan struct{})
	opts = append([]httpserver.Option{
		httpserver.WithAddr("127.0.0.1:0"),
		httpserver.WithShutdownTimeout(100 * time.Millisecond),
		httpserver.WithStartHook(func(_ *slog.Logger) { close(started) }),
	}, opts...)
	srv := httpserver.New(opts...)

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, handler) }()

	select {
	case <-started:
	case err := <-done:
		require.FailNow(t, "server exited early", "%v", err)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "server did not start")
	}
	return srv, done
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err, "run")
	case <-time.After(2 * time.Second):
		require.Fail(t, "run did not finish")
	}
}

func TestRun_ServesUntilContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, done := startServer(t, ctx, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	addr := srv.Addr()
	require.NotEmpty(t, addr)
	assert.NotContains(t, addr, ":0", "ephemeral port should be resolved")

	resp, err := http.Get("http://" + addr)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	cancel()
	waitDone(t, done)
	require.NoError(t, srv.Shutdown(context.Background()), "shutdown after run is a no-op")
}

func TestRun_HandlerSeesDetachedBaseContext(t *testing.T) {
	t.Parallel()

	type ctxKey struct{}
	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "taskd"))
	defer cancel()

	var got atomic.Value
	srv, done := startServer(t, ctx, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Context().Value(ctxKey{}))
	}))

	resp, err := http.Get("http://" + srv.Addr())
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, "taskd", got.Load())

	cancel()
	waitDone(t, done)
}

func TestShutdown(t *testing.T) {
	t.Parallel()

	t.Run("manual", func(t *testing.T) {
		t.Parallel()
		srv, done := startServer(t, context.Background(), http.NewServeMux())
		require.NoError(t, srv.Shutdown(context.Background()))
		require.NoError(t, srv.Shutdown(context.Background()), "second shutdown")
		waitDone(t, done)
	})

	t.Run("before run", func(t *testing.T) {
		t.Parallel()
		srv := httpserver.New()
		assert.NoError(t, srv.Shutdown(context.Background()))
		assert.Empty(t, srv.Addr())
	})
}

func TestRun_Errors(t *testing.T) {
	t.Parallel()

	t.Run("invalid address", func(t *testing.T) {
		t.Parallel()
		srv := httpserver.New(httpserver.WithAddr(":invalid"))
		err := srv.Run(context.Background(), nil)
		assert.ErrorIs(t, err, httpserver.ErrStart)
	})

	t.Run("already running", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		srv, done := startServer(t, ctx, nil)

		err := srv.Run(context.Background(), nil)
		assert.ErrorIs(t, err, httpserver.ErrStart)
		assert.ErrorIs(t, err, httpserver.ErrAlreadyRunning)

		cancel()
		waitDone(t, done)
	})
}

func TestHooks(t *testing.T) {
	t.Parallel()

	var stopped atomic.Bool
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	var hookLogger atomic.Pointer[slog.Logger]

	ctx, cancel := context.WithCancel(context.Background())
	_, done := startServer(t, ctx, nil,
		httpserver.WithLogger(l),
		httpserver.WithStartHook(func(lg *slog.Logger) { hookLogger.Store(lg) }),
		httpserver.WithStopHook(func(_ *slog.Logger) { stopped.Store(true) }),
	)
	cancel()
	waitDone(t, done)

	assert.True(t, stopped.Load(), "stop hook not executed")
	assert.Same(t, l, hookLogger.Load(), "hooks receive the configured logger")
}

func TestOptionsApply(t *testing.T) {
	t.Parallel()

	hs := &http.Server{IdleTimeout: 7 * time.Second}
	srv, done := startServer(t, context.Background(), nil,
		httpserver.WithServer(hs),
		httpserver.WithReadTimeout(time.Second),
		httpserver.WithReadHeaderTimeout(500*time.Millisecond),
		httpserver.WithWriteTimeout(2*time.Second),
		httpserver.WithIdleTimeout(3*time.Second),
	)

	assert.Equal(t, time.Second, hs.ReadTimeout)
	assert.Equal(t, 500*time.Millisecond, hs.ReadHeaderTimeout)
	assert.Equal(t, 2*time.Second, hs.WriteTimeout)
	assert.Equal(t, 7*time.Second, hs.IdleTimeout, "preset server values win")
	assert.NotNil(t, hs.Handler)

	require.NoError(t, srv.Shutdown(context.Background()))
	waitDone(t, done)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	hs := &http.Server{}
	srv := httpserver.NewFromConfig(httpserver.Config{
		Addr:         "127.0.0.1:0",
		ReadTimeout:  4 * time.Second,
		WriteTimeout: 5 * time.Second,
	}, httpserver.WithServer(hs), httpserver.WithShutdownTimeout(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, nil) }()

	require.Eventually(t, func() bool { return srv.Addr() != "" }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 4*time.Second, hs.ReadTimeout)
	assert.Equal(t, 5*time.Second, hs.WriteTimeout)
	assert.Equal(t, 10*time.Second, hs.ReadHeaderTimeout, "default header timeout")

	cancel()
	waitDone(t, done)
}

func TestOptionPanics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   func()
	}{
		{"addr", func() { httpserver.WithAddr("") }},
		{"read", func() { httpserver.WithReadTimeout(-time.Second) }},
		{"read header", func() { httpserver.WithReadHeaderTimeout(0) }},
		{"write", func() { httpserver.WithWriteTimeout(-time.Second) }},
		{"idle", func() { httpserver.WithIdleTimeout(-time.Second) }},
		{"shutdown", func() { httpserver.WithShutdownTimeout(-time.Second) }},
		{"server", func() { httpserver.WithServer(nil) }},
		{"start hook", func() { httpserver.WithStartHook(nil) }},
		{"stop hook", func() { httpserver.WithStopHook(nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Panics(t, tt.fn)
		})
	}

	assert.NotPanics(t, func() { httpserver.WithLogger(nil) })
}

func TestProbes(t *testing.T) {
	t.Parallel()

	t.Run("liveness", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		httpserver.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ALIVE", rec.Body.String())
	})

	t.Run("ready", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		h := httpserver.ReadinessHandler(nil, time.Second,
			httpserver.Check{Name: "a", Fn: func(context.Context) error { calls.Add(1); return nil }},
			httpserver.Check{Name: "b", Fn: func(ctx context.Context) error {
				calls.Add(1)
				_, ok := ctx.Deadline()
				assert.True(t, ok, "check context carries the timeout")
				return nil
			}},
		)
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "READY", rec.Body.String())
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("not ready", func(t *testing.T) {
		t.Parallel()
		h := httpserver.ReadinessHandler(nil, 0,
			httpserver.Check{Name: "redis", Fn: func(context.Context) error { return errors.New("connection refused") }},
			httpserver.Check{Name: "never", Fn: func(context.Context) error {
				t.Error("checks after a failure must not run")
				return nil
			}},
		)
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "NOT_READY", rec.Body.String())
	})
}
