// Command taskd runs an in-process task queue with its worker, periodic scheduler,
// event forwarder and HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/taskqueue/pkg/config"
	"github.com/dmitrymomot/taskqueue/pkg/environment"
	"github.com/dmitrymomot/taskqueue/pkg/logger"
	"github.com/dmitrymomot/taskqueue/pkg/queue"
)

func main() {
	envFile := flag.String("env-file", "", "path to a .env file to load before reading the environment")
	flag.Parse()

	if err := run(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, "taskd:", err)
		os.Exit(1)
	}
}

func run(envFile string) error {
	var cfg appConfig
	var loadOpts []config.Option
	if envFile != "" {
		loadOpts = append(loadOpts, config.WithEnvFiles(envFile))
	}
	if err := config.Load(&cfg, loadOpts...); err != nil {
		return err
	}

	env := environment.Parse(cfg.AppEnv)
	logOpts := []logger.Option{
		logger.WithEnvironment(env, cfg.AppName),
		logger.WithContextExtractors(queue.LoggerExtractor()),
	}
	if cfg.LogLevel != "" {
		logOpts = append(logOpts, logger.WithLevelName(cfg.LogLevel))
	}
	log := logger.New(logOpts...)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(environment.WithContext(context.Background(), env), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, env, log)
	if err != nil {
		return err
	}
	defer app.close()

	log.InfoContext(ctx, "taskd starting",
		slog.String("http_addr", cfg.HTTP.Addr),
		slog.String("notify_backend", cfg.Notify.Backend),
		slog.Int("max_concurrent", cfg.Queue.MaxConcurrent))

	err = app.run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("taskd stopped with error", logger.Error(err))
		return err
	}

	log.Info("taskd stopped")
	return nil
}
