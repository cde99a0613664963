// Package logger builds the structured logger used by the task daemon on top of log/slog.
//
// New creates a *slog.Logger configured by Option functions: output format
// (json or text), level, static attributes, and ContextExtractor callbacks
// that add attributes from the context passed to the *Context logging methods.
// The worker stores the running task in the handler context, so registering
// queue.LoggerExtractor makes every handler log line carry the task id, name
// and attempt.
//
// Helper constructors in attr.go (TaskID, TaskName, Status, Attempt, WorkerID,
// Duration, Error, ...) keep attribute keys consistent across packages.
//
// # Usage
//
//	log := logger.New(
//		logger.WithEnvironment(environment.Parse(cfg.Env), "taskd"),
//		logger.WithContextExtractors(queue.LoggerExtractor(), environment.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "task done", logger.TaskName("send_email"), logger.Duration(d))
//
// Error and Errors return an empty attribute for nil errors, so they can be
// passed without a nil check.
package logger
