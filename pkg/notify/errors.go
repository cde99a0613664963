package notify

import "errors"

var (
	ErrPublisherClosed = errors.New("publisher is closed")
	ErrNotConnected    = errors.New("notification backend not connected")
	ErrUnknownBackend  = errors.New("unknown notification backend")
	ErrPublishFailed   = errors.New("failed to publish event")
)
