package notify

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/taskqueue/pkg/redis"
)

// RedisPublisher sends events with PUBLISH. Subjects map to redis channels one to one.
type RedisPublisher struct {
	client goredis.UniversalClient
	owned  bool
}

// NewRedisPublisher publishes through client. The caller keeps ownership of the client.
func NewRedisPublisher(client goredis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := p.client.Publish(ctx, subject, data).Err(); err != nil {
		return errors.Join(ErrPublishFailed, err)
	}
	return nil
}

func (p *RedisPublisher) Ping(ctx context.Context) error {
	return redis.Healthcheck(p.client)(ctx)
}

// Close releases the client only when the publisher created it.
func (p *RedisPublisher) Close() error {
	if p.owned {
		return p.client.Close()
	}
	return nil
}
