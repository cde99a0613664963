package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/taskqueue/pkg/queue"
)

// Headers set on every webhook delivery.
const (
	HeaderSubject   = "X-Webhook-Subject"
	HeaderSignature = "X-Webhook-Signature"
	HeaderTimestamp = "X-Webhook-Timestamp"
	HeaderID        = "X-Webhook-ID"
)

var (
	ErrCircuitOpen      = errors.New("webhook circuit breaker is open")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	errPermanent        = errors.New("permanent webhook failure")
)

// WebhookPublisher POSTs events to an HTTP endpoint. Bodies are signed with
// HMAC-SHA256 over "<timestamp>.<body>" when a secret is configured. Server errors
// and transport failures are retried with backoff; 4xx responses are not.
type WebhookPublisher struct {
	url        string
	secret     string
	client     *http.Client
	maxRetries int
	backoff    queue.RetryBackoff
	breaker    *circuitBreaker
	now        func() time.Time
}

// WebhookOption configures a WebhookPublisher.
type WebhookOption func(*WebhookPublisher)

// WithWebhookSecret enables request signing.
func WithWebhookSecret(secret string) WebhookOption {
	return func(p *WebhookPublisher) { p.secret = secret }
}

// WithWebhookClient replaces the default HTTP client.
func WithWebhookClient(c *http.Client) WebhookOption {
	return func(p *WebhookPublisher) {
		if c != nil {
			p.client = c
		}
	}
}

// WithWebhookRetries sets how many times a failed delivery is retried and the delay policy.
func WithWebhookRetries(n int, backoff queue.RetryBackoff) WebhookOption {
	return func(p *WebhookPublisher) {
		p.maxRetries = max(n, 0)
		if backoff != nil {
			p.backoff = backoff
		}
	}
}

// WithCircuitBreaker opens the circuit after threshold consecutive failed deliveries
// and probes again after recovery.
func WithCircuitBreaker(threshold int, recovery time.Duration) WebhookOption {
	return func(p *WebhookPublisher) { p.breaker = newCircuitBreaker(threshold, recovery) }
}

// NewWebhookPublisher creates a publisher delivering to endpoint.
func NewWebhookPublisher(endpoint string, opts ...WebhookOption) (*WebhookPublisher, error) {
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("notify: invalid webhook url %q", endpoint)
	}

	p := &WebhookPublisher{
		url:        endpoint,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxRetries: 2,
		backoff: queue.ExponentialBackoff{
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2,
			JitterFactor:    0.1,
		},
		breaker: newCircuitBreaker(5, 30*time.Second),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *WebhookPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if !p.breaker.allow() {
		return ErrCircuitOpen
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(p.backoff.NextInterval(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				p.breaker.failure()
				return ctx.Err()
			case <-timer.C:
			}
		}

		lastErr = p.deliver(ctx, subject, data)
		if lastErr == nil {
			p.breaker.success()
			return nil
		}
		if errors.Is(lastErr, errPermanent) {
			break
		}
	}

	p.breaker.failure()
	return errors.Join(ErrPublishFailed, lastErr)
}

func (p *WebhookPublisher) deliver(ctx context.Context, subject string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", errPermanent, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSubject, subject)
	req.Header.Set(HeaderID, uuid.NewString())

	if p.secret != "" {
		ts := p.now().Unix()
		req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
		req.Header.Set(HeaderSignature, Sign(p.secret, ts, data))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusRequestTimeout:
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: webhook responded %d", errPermanent, resp.StatusCode)
	}
	return fmt.Errorf("webhook responded %d", resp.StatusCode)
}

func (p *WebhookPublisher) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// Sign returns the hex HMAC-SHA256 of "<timestamp>.<body>" keyed by secret.
func Sign(secret string, timestamp int64, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%d.", timestamp)
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature checks the signature headers of a delivery. Signatures older than
// maxAge are rejected when maxAge is positive.
func VerifySignature(secret string, header http.Header, body []byte, maxAge time.Duration) error {
	ts, err := strconv.ParseInt(header.Get(HeaderTimestamp), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}
	if maxAge > 0 && time.Since(time.Unix(ts, 0)) > maxAge {
		return fmt.Errorf("%w: timestamp too old", ErrInvalidSignature)
	}

	want := Sign(secret, ts, body)
	if !hmac.Equal([]byte(want), []byte(header.Get(HeaderSignature))) {
		return ErrInvalidSignature
	}
	return nil
}
