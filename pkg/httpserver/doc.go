// Package httpserver runs the taskd HTTP surface: a net/http server with
// context-driven graceful shutdown, configurable timeouts and probe handlers.
//
// Run binds the listener, serves until the context is cancelled (or Shutdown is
// called) and then drains in-flight requests within the shutdown timeout. It does
// not install signal handlers; taskd cancels the shared errgroup context on
// SIGINT/SIGTERM and every component, this server included, stops together.
//
// # Usage
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//
//	r := chi.NewRouter()
//	r.Get("/healthz", httpserver.LivenessHandler())
//	r.Get("/readyz", httpserver.ReadinessHandler(log, 2*time.Second,
//		httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)},
//	))
//
//	g.Go(func() error { return srv.Run(ctx, r) })
//
// # Errors
//
// Run wraps listen and serve errors with ErrStart, while Shutdown wraps the
// underlying shutdown error with ErrShutdown. Use errors.Is to distinguish them.
package httpserver
