package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/taskqueue/pkg/redis"
)

// Backend names accepted by NOTIFY_BACKEND.
const (
	BackendNone    = "none"
	BackendRedis   = "redis"
	BackendNATS    = "nats"
	BackendWebhook = "webhook"
)

// Config selects where task lifecycle events are published.
type Config struct {
	Backend        string        `env:"NOTIFY_BACKEND" envDefault:"none"` // none | redis | nats | webhook
	Channel        string        `env:"NOTIFY_CHANNEL" envDefault:"taskqueue"`
	PublishTimeout time.Duration `env:"NOTIFY_PUBLISH_TIMEOUT" envDefault:"10s"`
	NATSURL        string        `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	ClientName     string        `env:"NOTIFY_CLIENT_NAME" envDefault:"taskd"`
	WebhookURL     string        `env:"NOTIFY_WEBHOOK_URL"`
	WebhookSecret  string        `env:"NOTIFY_WEBHOOK_SECRET"`
	WebhookRetries int           `env:"NOTIFY_WEBHOOK_RETRIES" envDefault:"2"`
	Redis          redis.Config
}

// NewPublisherFromConfig connects the configured backend. The returned publisher owns
// its connection; Close releases it.
func NewPublisherFromConfig(ctx context.Context, cfg Config, log *slog.Logger) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendNone:
		return NoopPublisher{}, nil

	case BackendRedis:
		client, err := redis.Connect(ctx, cfg.Redis, redis.WithLogger(log))
		if err != nil {
			return nil, fmt.Errorf("notify: %w", err)
		}
		pub := NewRedisPublisher(client)
		pub.owned = true
		return pub, nil

	case BackendNATS:
		nc, err := ConnectNATS(cfg.NATSURL, cfg.ClientName, log)
		if err != nil {
			return nil, fmt.Errorf("notify: %w", err)
		}
		return NewNATSPublisher(nc), nil

	case BackendWebhook:
		pub, err := NewWebhookPublisher(cfg.WebhookURL,
			WithWebhookSecret(cfg.WebhookSecret),
			WithWebhookRetries(cfg.WebhookRetries, nil))
		if err != nil {
			return nil, err
		}
		return pub, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}

// NewForwarderFromConfig applies cfg to a forwarder publishing through pub.
func NewForwarderFromConfig(pub Publisher, cfg Config, opts ...ForwarderOption) *Forwarder {
	configOpts := []ForwarderOption{
		WithChannel(cfg.Channel),
		WithPublishTimeout(cfg.PublishTimeout),
	}
	return NewForwarder(pub, append(configOpts, opts...)...)
}
