// Package redis connects taskd to a redis server for publishing task lifecycle events.
//
// Connect parses a redis:// URL, pings with bounded retries and returns a ready
// *redis.Client from github.com/redis/go-redis/v9. Healthcheck adapts a client to the
// readiness probe signature used by httpserver.ReadinessHandler.
//
//	client, err := redis.Connect(ctx, cfg, redis.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
// Redis carries notifications only; task state never leaves the process.
package redis
