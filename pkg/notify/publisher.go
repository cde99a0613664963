package notify

import (
	"context"
	"sync"
)

// Publisher delivers an encoded event to an external subject or channel.
// Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Close() error
}

// Pinger is implemented by publishers that can report connection health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NoopPublisher drops every event. It backs NOTIFY_BACKEND=none.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, []byte) error { return nil }
func (NoopPublisher) Close() error                                  { return nil }

// Published is a single message captured by MemoryPublisher.
type Published struct {
	Subject string
	Data    []byte
}

// MemoryPublisher records messages in memory. Useful for tests and local debugging.
type MemoryPublisher struct {
	mu       sync.Mutex
	messages []Published
	closed   bool
}

func (m *MemoryPublisher) Publish(_ context.Context, subject string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrPublisherClosed
	}
	m.messages = append(m.messages, Published{Subject: subject, Data: append([]byte(nil), data...)})
	return nil
}

func (m *MemoryPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Messages returns a copy of everything published so far.
func (m *MemoryPublisher) Messages() []Published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Published(nil), m.messages...)
}
