package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/taskqueue/pkg/logger"
	"github.com/dmitrymomot/taskqueue/pkg/queue"
)

// Forwarder drains a queue subscription and publishes each event as JSON on
// "<channel>.<event type>", e.g. "taskqueue.task.completed".
// Publish failures are logged and counted; they never reach the queue.
type Forwarder struct {
	pub     Publisher
	channel string
	timeout time.Duration
	logger  *slog.Logger

	published atomic.Uint64
	failed    atomic.Uint64
}

// ForwarderOption configures a Forwarder.
type ForwarderOption func(*Forwarder)

// WithChannel sets the subject prefix. Defaults to "taskqueue".
func WithChannel(channel string) ForwarderOption {
	return func(f *Forwarder) {
		if channel != "" {
			f.channel = channel
		}
	}
}

// WithPublishTimeout bounds every single publish call.
func WithPublishTimeout(d time.Duration) ForwarderOption {
	return func(f *Forwarder) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithForwarderLogger sets the logger for the Forwarder.
func WithForwarderLogger(l *slog.Logger) ForwarderOption {
	return func(f *Forwarder) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewForwarder creates a forwarder publishing through pub.
func NewForwarder(pub Publisher, opts ...ForwarderOption) *Forwarder {
	if pub == nil {
		pub = NoopPublisher{}
	}
	f := &Forwarder{
		pub:     pub,
		channel: "taskqueue",
		timeout: 2 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Subject returns the subject an event of type t is published on.
func (f *Forwarder) Subject(t queue.EventType) string {
	return f.channel + "." + string(t)
}

// Forward publishes events from sub until the subscription is closed or ctx is done.
// It closes sub before returning and only returns ctx.Err() or nil.
func (f *Forwarder) Forward(ctx context.Context, sub *queue.Subscription) error {
	defer func() { _ = sub.Close() }()

	f.logger.InfoContext(ctx, "event forwarder started", slog.String("channel", f.channel))
	defer f.logger.InfoContext(ctx, "event forwarder stopped",
		slog.Uint64("published", f.published.Load()),
		slog.Uint64("failed", f.failed.Load()))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			f.publish(ctx, ev)
		}
	}
}

// Run returns a function suitable for errgroup.Group.Go. It subscribes to q and
// treats context cancellation as a clean stop.
func (f *Forwarder) Run(ctx context.Context, q *queue.Queue) func() error {
	return func() error {
		err := f.Forward(ctx, q.Subscribe(ctx))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}

func (f *Forwarder) publish(ctx context.Context, ev queue.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		f.failed.Add(1)
		f.logger.ErrorContext(ctx, "failed to encode task event",
			logger.Event(string(ev.Type)),
			logger.TaskID(ev.Task.ID.String()),
			logger.Error(err))
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := f.pub.Publish(pubCtx, f.Subject(ev.Type), data); err != nil {
		f.failed.Add(1)
		f.logger.WarnContext(ctx, "failed to publish task event",
			logger.Event(string(ev.Type)),
			logger.TaskID(ev.Task.ID.String()),
			logger.Error(err))
		return
	}
	f.published.Add(1)
}

// Published returns the number of events delivered to the publisher.
func (f *Forwarder) Published() uint64 { return f.published.Load() }

// Failed returns the number of events that could not be encoded or published.
func (f *Forwarder) Failed() uint64 { return f.failed.Load() }
