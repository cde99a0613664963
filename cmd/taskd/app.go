package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/taskqueue/pkg/environment"
	"github.com/dmitrymomot/taskqueue/pkg/httpserver"
	"github.com/dmitrymomot/taskqueue/pkg/logger"
	"github.com/dmitrymomot/taskqueue/pkg/metrics"
	"github.com/dmitrymomot/taskqueue/pkg/notify"
	"github.com/dmitrymomot/taskqueue/pkg/queue"
	"github.com/dmitrymomot/taskqueue/pkg/taskapi"
)

// app holds the wired components of a taskd process.
type app struct {
	log       *slog.Logger
	queue     *queue.Queue
	worker    *queue.Worker
	periodic  *queue.Periodic
	publisher notify.Publisher
	forwarder *notify.Forwarder
	server    *httpserver.Server
	router    http.Handler
}

func newApp(ctx context.Context, cfg appConfig, env environment.Environment, log *slog.Logger) (*app, error) {
	a := &app{log: log}

	a.queue = queue.NewQueueFromConfig(cfg.Queue, queue.WithQueueLogger(log))
	if err := registerHandlers(a.queue, log); err != nil {
		return nil, err
	}

	collector := metrics.NewCollector(cfg.MetricsNamespace, a.queue.Stats,
		func() queue.WorkerStats { return a.worker.Stats() },
		metrics.WithKnownTasks(func(name string) bool {
			_, ok := a.queue.Lookup(name)
			return ok
		}))
	reg, err := metrics.NewRegistry(collector)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	a.worker, err = queue.NewWorkerFromConfig(a.queue, cfg.Queue,
		queue.WithWorkerLogger(log),
		queue.WithResultHook(collector.ObserveResult))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker: %w", err)
	}

	a.periodic, err = queue.NewPeriodic(a.queue, queue.WithSchedulerLogger(log))
	if err != nil {
		return nil, fmt.Errorf("failed to create periodic scheduler: %w", err)
	}
	if cfg.HeartbeatInterval > 0 {
		if err := a.periodic.AddTask(taskHeartbeat, queue.EveryInterval(cfg.HeartbeatInterval), nil,
			queue.WithPriority(queue.PriorityLow), queue.WithMaxAttempts(1)); err != nil {
			return nil, err
		}
	}

	a.publisher, err = notify.NewPublisherFromConfig(ctx, cfg.Notify, log)
	if err != nil {
		return nil, err
	}
	a.forwarder = notify.NewForwarderFromConfig(a.publisher, cfg.Notify, notify.WithForwarderLogger(log))

	var checks []httpserver.Check
	if p, ok := a.publisher.(notify.Pinger); ok {
		checks = append(checks, httpserver.Check{Name: "notify", Fn: p.Ping})
	}

	a.router = taskapi.Router(a.queue,
		taskapi.WithWorkerStats(a.worker.Stats),
		taskapi.WithReadinessChecks(cfg.ReadinessTimeout, checks...),
		taskapi.WithMetricsHandler(metrics.Handler(reg)),
		taskapi.WithMiddleware(environment.Middleware(env)),
		taskapi.WithLogger(log))
	a.server = httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))

	return a, nil
}

// run supervises every component until ctx is done or one of them fails.
func (a *app) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(a.worker.Run(ctx))
	if len(a.periodic.ListTasks()) > 0 {
		g.Go(a.periodic.Run(ctx))
	}
	g.Go(a.forwarder.Run(ctx, a.queue))
	g.Go(func() error { return a.server.Run(ctx, a.router) })

	return g.Wait()
}

func (a *app) close() {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.Close(); err != nil {
		a.log.Warn("failed to close event publisher", logger.Error(err))
	}
}
