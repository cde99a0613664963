package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dmitrymomot/taskqueue/pkg/logger"
)

// NATSPublisher sends events as core NATS messages.
type NATSPublisher struct {
	nc *nats.Conn
}

// NewNATSPublisher publishes through an established connection and drains it on Close.
func NewNATSPublisher(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: nc}
}

// ConnectNATS dials url and keeps reconnecting in the background, logging connection changes.
func ConnectNATS(url, name string, log *slog.Logger) (*nats.Conn, error) {
	if log == nil {
		log = logger.Discard()
	}

	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", logger.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", slog.String("url", c.ConnectedUrlRedacted()))
		}),
	)
	if err != nil {
		return nil, errors.Join(ErrNotConnected, err)
	}
	return nc, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return errors.Join(ErrPublishFailed, err)
	}
	return nil
}

func (p *NATSPublisher) Ping(context.Context) error {
	if !p.nc.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.nc.IsClosed() {
		return nil
	}
	return p.nc.Drain()
}
