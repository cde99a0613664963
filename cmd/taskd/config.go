package main

import (
	"time"

	"github.com/dmitrymomot/taskqueue/pkg/httpserver"
	"github.com/dmitrymomot/taskqueue/pkg/notify"
	"github.com/dmitrymomot/taskqueue/pkg/queue"
)

type appConfig struct {
	AppName           string        `env:"APP_NAME" envDefault:"taskd"`
	AppEnv            string        `env:"APP_ENV" envDefault:"development"`
	LogLevel          string        `env:"LOG_LEVEL"` // overrides the environment default
	MetricsNamespace  string        `env:"METRICS_NAMESPACE" envDefault:"taskd"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"1m"` // 0 disables the heartbeat task
	ReadinessTimeout  time.Duration `env:"READINESS_TIMEOUT" envDefault:"2s"`

	Queue  queue.Config
	HTTP   httpserver.Config
	Notify notify.Config
}
