package taskapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/taskqueue/pkg/httpserver"
	"github.com/dmitrymomot/taskqueue/pkg/logger"
	"github.com/dmitrymomot/taskqueue/pkg/queue"
)

// Option configures the router.
type Option func(*options)

type options struct {
	workerStats  func() queue.WorkerStats
	checks       []httpserver.Check
	checkTimeout time.Duration
	metrics      http.Handler
	middlewares  []func(http.Handler) http.Handler
	logger       *slog.Logger
	maxBodyBytes int64
	listMaxLimit int
}

// WithWorkerStats includes worker statistics in GET /stats.
func WithWorkerStats(fn func() queue.WorkerStats) Option {
	return func(o *options) { o.workerStats = fn }
}

// WithReadinessChecks adds dependency checks to GET /readyz.
func WithReadinessChecks(timeout time.Duration, checks ...httpserver.Check) Option {
	return func(o *options) {
		o.checkTimeout = timeout
		o.checks = append(o.checks, checks...)
	}
}

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(o *options) { o.metrics = h }
}

// WithMiddleware appends middlewares applied to every route.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(o *options) { o.middlewares = append(o.middlewares, mw...) }
}

// WithLogger sets the logger used for request and error logs.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxBodyBytes limits the size of request bodies. Defaults to 1 MiB.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBodyBytes = n
		}
	}
}

// Router builds the HTTP API over q.
//
//	r := taskapi.Router(q,
//		taskapi.WithWorkerStats(w.Stats),
//		taskapi.WithMetricsHandler(metrics.Handler(reg)),
//	)
//	srv.Run(ctx, r)
func Router(q TaskQueue, opts ...Option) chi.Router {
	o := &options{
		logger:       logger.Discard(),
		maxBodyBytes: 1 << 20,
		listMaxLimit: 1000,
	}
	for _, opt := range opts {
		opt(o)
	}

	h := &handler{queue: q, opts: o}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(o.middlewares...)
	r.Use(requestLogger(o.logger))

	r.Get("/healthz", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(o.logger, o.checkTimeout, o.checks...))
	if o.metrics != nil {
		r.Method(http.MethodGet, "/metrics", o.metrics)
	}

	r.Get("/stats", h.stats)
	r.Route("/tasks", func(r chi.Router) {
		r.Post("/", h.enqueue)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Post("/{id}/cancel", h.cancel)
	})

	return r
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.DebugContext(r.Context(), "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				logger.Duration(time.Since(start)))
		})
	}
}
