package queue

import (
	"math"
	"math/rand/v2"
	"time"
)

// RetryBackoff computes how long a failed task waits before it becomes eligible again.
// Implementations must be safe for concurrent use.
type RetryBackoff interface {
	// NextInterval returns the delay after the given failed attempt (1 for the first failure).
	NextInterval(attempt int) time.Duration
}

// NoBackoff makes retries eligible immediately.
type NoBackoff struct{}

func (NoBackoff) NextInterval(int) time.Duration { return 0 }

// FixedBackoff waits the same interval after every failure.
type FixedBackoff struct {
	Interval time.Duration
}

func (f FixedBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f.Interval
}

// LinearBackoff grows the delay by Interval per failed attempt, capped at MaxInterval.
type LinearBackoff struct {
	Interval    time.Duration
	MaxInterval time.Duration
}

func (l LinearBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 || l.Interval <= 0 {
		return 0
	}

	delay := l.Interval * time.Duration(attempt)
	if l.MaxInterval > 0 && delay > l.MaxInterval {
		delay = l.MaxInterval
	}
	return delay
}

// ExponentialBackoff multiplies the delay on every failed attempt, with optional jitter.
// Formula: min(InitialInterval * Multiplier^(attempt-1) * (1 ± JitterFactor), MaxInterval)
type ExponentialBackoff struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	JitterFactor    float64
}

func (e ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 || e.InitialInterval <= 0 {
		return 0
	}

	multiplier := e.Multiplier
	if multiplier <= 0 {
		multiplier = 2
	}

	interval := float64(e.InitialInterval) * math.Pow(multiplier, float64(attempt-1))

	if e.JitterFactor > 0 {
		interval *= 1 + (rand.Float64()*2-1)*e.JitterFactor
	}

	if e.MaxInterval > 0 && interval > float64(e.MaxInterval) {
		interval = float64(e.MaxInterval)
	}

	return time.Duration(interval)
}
