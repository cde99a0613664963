// Package notify publishes task lifecycle events to external observers.
//
// A Forwarder drains a queue.Subscription and publishes every event as JSON
// through a Publisher: RedisPublisher (PUBLISH, github.com/redis/go-redis/v9),
// NATSPublisher (core NATS, github.com/nats-io/nats.go), WebhookPublisher
// (signed HTTP POST with retries and a circuit breaker), MemoryPublisher for
// tests, or NoopPublisher when notifications are disabled.
//
// Webhook receivers can authenticate deliveries with VerifySignature.
//
// Subjects are "<channel>.<event type>", for example "taskqueue.task.retrying".
// Delivery is best effort: the queue drops events for a slow forwarder and the
// forwarder logs and counts publish failures instead of propagating them. Nothing
// here feeds back into task state.
//
//	pub, err := notify.NewPublisherFromConfig(ctx, cfg.Notify, log)
//	if err != nil {
//		return err
//	}
//	defer pub.Close()
//
//	fwd := notify.NewForwarderFromConfig(pub, cfg.Notify, notify.WithForwarderLogger(log))
//	g.Go(fwd.Run(ctx, q))
package notify
