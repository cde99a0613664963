// Package environment carries the deployment environment of the task daemon
// (development, staging or production) through context.Context, HTTP requests
// and structured logs.
//
// Parse turns a configuration value such as APP_ENV into an Environment.
// WithContext and FromContext attach and read it; Middleware sets it on every
// request handled by the task API; LoggerExtractor exposes it to logger.New so
// every record logged with a request context carries an "env" attribute.
//
// # Usage
//
//	env := environment.Parse(cfg.Env)
//	ctx := environment.WithContext(context.Background(), env)
//
//	if environment.IsProduction(ctx) {
//		// production only behaviour
//	}
package environment
