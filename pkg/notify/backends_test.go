package notify_test

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/taskqueue/pkg/logger"
	"github.com/dmitrymomot/taskqueue/pkg/notify"
)

func TestRedisPublisher_Unreachable(t *testing.T) {
	t.Parallel()

	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	pub := notify.NewRedisPublisher(client)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := pub.Publish(ctx, "taskqueue.task.enqueued", []byte(`{}`))
	assert.ErrorIs(t, err, notify.ErrPublishFailed)
	assert.Error(t, pub.Ping(ctx))

	require.NoError(t, pub.Close())
	assert.NoError(t, client.Close(), "a caller-owned client stays open after the publisher closes")
}

func runNATSServer(t *testing.T) string {
	t.Helper()

	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	srv := natsserver.RunServer(&opts)
	t.Cleanup(srv.Shutdown)
	return srv.ClientURL()
}

func TestNATSPublisher(t *testing.T) {
	t.Parallel()

	url := runNATSServer(t)

	t.Run("publish and ping", func(t *testing.T) {
		t.Parallel()

		sub, err := nats.Connect(url)
		require.NoError(t, err)
		defer sub.Close()
		msgs := make(chan *nats.Msg, 1)
		_, err = sub.ChanSubscribe("taskqueue.>", msgs)
		require.NoError(t, err)
		require.NoError(t, sub.Flush())

		nc, err := notify.ConnectNATS(url, "taskd-test", logger.Discard())
		require.NoError(t, err)
		pub := notify.NewNATSPublisher(nc)
		defer pub.Close()

		require.NoError(t, pub.Ping(context.Background()))
		require.NoError(t, pub.Publish(context.Background(), "taskqueue.task.completed", []byte(`{"type":"task.completed"}`)))

		select {
		case msg := <-msgs:
			assert.Equal(t, "taskqueue.task.completed", msg.Subject)
			assert.JSONEq(t, `{"type":"task.completed"}`, string(msg.Data))
		case <-time.After(2 * time.Second):
			t.Fatal("message not delivered")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		nc, err := notify.ConnectNATS(url, "taskd-test", nil)
		require.NoError(t, err)
		pub := notify.NewNATSPublisher(nc)
		defer pub.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, pub.Publish(ctx, "taskqueue.task.failed", nil), context.Canceled)
	})

	t.Run("closed connection", func(t *testing.T) {
		t.Parallel()

		nc, err := notify.ConnectNATS(url, "taskd-test", nil)
		require.NoError(t, err)
		pub := notify.NewNATSPublisher(nc)
		nc.Close()

		assert.ErrorIs(t, pub.Ping(context.Background()), notify.ErrNotConnected)
		err = pub.Publish(context.Background(), "taskqueue.task.failed", nil)
		assert.ErrorIs(t, err, notify.ErrPublishFailed)
		assert.ErrorIs(t, err, nats.ErrConnectionClosed)
		assert.NoError(t, pub.Close(), "closing an already closed connection is a no-op")
	})

	t.Run("unreachable server", func(t *testing.T) {
		t.Parallel()

		_, err := notify.ConnectNATS("nats://127.0.0.1:1", "taskd-test", nil)
		assert.ErrorIs(t, err, notify.ErrNotConnected)
	})
}
