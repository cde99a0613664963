package environment

import (
	"context"
	"log/slog"
)

// LoggerExtractor tags log records with the environment stored in their context.
// Records without one are left untouched.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		env := FromContext(ctx)
		if env == "" {
			return slog.Attr{}, false
		}
		return slog.String("env", env.String()), true
	}
}
