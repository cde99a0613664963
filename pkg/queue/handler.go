package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
)

type (
	// Handler performs the work for one task name.
	// The returned message becomes the task result; a returned error fails the attempt.
	// Handlers are invoked synchronously on a worker goroutine and need not manage concurrency.
	Handler interface {
		Handle(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
	}

	// HandlerFunc adapts an ordinary function to Handler.
	HandlerFunc func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)

	// TaskHandlerFunc is a typed handler working on a decoded payload.
	TaskHandlerFunc[T, R any] func(ctx context.Context, payload T) (R, error)
)

func (f HandlerFunc) Handle(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return f(ctx, payload)
}

// NewTaskHandler wraps a typed function into a Handler that decodes the JSON payload into T
// and encodes the returned R as the result.
func NewTaskHandler[T, R any](handler TaskHandlerFunc[T, R]) Handler {
	return &typedTaskHandler[T, R]{handler: handler}
}

type typedTaskHandler[T, R any] struct {
	handler TaskHandlerFunc[T, R]
}

func (h *typedTaskHandler[T, R]) Handle(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	var in T
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &in); err != nil {
			return nil, fmt.Errorf("failed to decode payload into %T: %w", in, err)
		}
	}

	out, err := h.handler(ctx, in)
	if err != nil {
		return nil, err
	}

	res, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result of type %T: %w", out, err)
	}
	return res, nil
}

// Registry maps task names to handlers. It is safe for concurrent use.
// Registering a name twice replaces the earlier handler.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty handler registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register associates handler with name, replacing any previous handler for that name.
func (r *Registry) Register(name string, handler Handler) error {
	if name == "" {
		return ErrEmptyTaskName
	}
	if handler == nil {
		return ErrHandlerNil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[name] = handler
	return nil
}

// Lookup returns the handler registered for name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[name]
	return h, ok
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Names returns the registered task names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
