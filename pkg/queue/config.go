package queue

import "time"

// Config holds the configuration for the task queue and its worker
type Config struct {
	MaxSize            int           `env:"QUEUE_MAX_SIZE" envDefault:"10000"`
	PollInterval       time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"1s"`
	MaxConcurrent      int           `env:"QUEUE_MAX_CONCURRENT" envDefault:"5"`
	DefaultMaxAttempts int           `env:"QUEUE_DEFAULT_MAX_ATTEMPTS" envDefault:"3"`
	ShutdownTimeout    time.Duration `env:"QUEUE_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	TaskTimeout        time.Duration `env:"QUEUE_TASK_TIMEOUT" envDefault:"0s"`     // 0 disables the per-task deadline
	RetryBaseDelay     time.Duration `env:"QUEUE_RETRY_BASE_DELAY" envDefault:"0s"` // 0 retries immediately
	RetryMaxDelay      time.Duration `env:"QUEUE_RETRY_MAX_DELAY" envDefault:"5m"`
}

// NewQueueFromConfig creates a Queue from cfg. Only non-zero values are applied;
// explicit options are applied after the config and win.
func NewQueueFromConfig(cfg Config, opts ...QueueOption) *Queue {
	configOpts := make([]QueueOption, 0, 3+len(opts))

	if cfg.MaxSize > 0 {
		configOpts = append(configOpts, WithMaxSize(cfg.MaxSize))
	}
	if cfg.DefaultMaxAttempts > 0 {
		configOpts = append(configOpts, WithDefaultMaxAttempts(cfg.DefaultMaxAttempts))
	}
	if cfg.RetryBaseDelay > 0 {
		configOpts = append(configOpts, WithRetryBackoff(ExponentialBackoff{
			InitialInterval: cfg.RetryBaseDelay,
			MaxInterval:     cfg.RetryMaxDelay,
			Multiplier:      2,
			JitterFactor:    0.1,
		}))
	}

	return NewQueue(append(configOpts, opts...)...)
}

// NewWorkerFromConfig creates a Worker for q from cfg.
func NewWorkerFromConfig(q WorkerQueue, cfg Config, opts ...WorkerOption) (*Worker, error) {
	configOpts := make([]WorkerOption, 0, 4+len(opts))

	if cfg.PollInterval > 0 {
		configOpts = append(configOpts, WithPollInterval(cfg.PollInterval))
	}
	if cfg.MaxConcurrent > 0 {
		configOpts = append(configOpts, WithMaxConcurrent(cfg.MaxConcurrent))
	}
	if cfg.ShutdownTimeout > 0 {
		configOpts = append(configOpts, WithShutdownTimeout(cfg.ShutdownTimeout))
	}
	if cfg.TaskTimeout > 0 {
		configOpts = append(configOpts, WithTaskTimeout(cfg.TaskTimeout))
	}

	return NewWorker(q, append(configOpts, opts...)...)
}
