package queue

import (
	"log/slog"
	"time"
)

// PeriodicOption is a functional option for configuring the periodic scheduler
type PeriodicOption func(*periodicOptions)

type periodicOptions struct {
	checkInterval time.Duration
	clock         func() time.Time
	logger        *slog.Logger
}

// WithCheckInterval sets how often the scheduler checks for due tasks
func WithCheckInterval(d time.Duration) PeriodicOption {
	return func(o *periodicOptions) {
		if d > 0 {
			o.checkInterval = d
		}
	}
}

// WithSchedulerClock replaces time.Now for the periodic scheduler
func WithSchedulerClock(now func() time.Time) PeriodicOption {
	return func(o *periodicOptions) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithSchedulerLogger sets the logger for the periodic scheduler
func WithSchedulerLogger(logger *slog.Logger) PeriodicOption {
	return func(o *periodicOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
