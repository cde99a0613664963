package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Option configures a single Load call.
type Option func(*options)

type options struct {
	prefix          string
	envFiles        []string
	requiredNoDef   bool
	skipDefaultFile bool
}

// WithPrefix prepends prefix to every variable name looked up, e.g. "TASKD_".
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithEnvFiles loads the given .env files before parsing. Unlike the default .env
// in the working directory, a listed file that cannot be read is an error.
// Variables already present in the process environment are never overridden.
func WithEnvFiles(files ...string) Option {
	return func(o *options) {
		o.envFiles = append(o.envFiles, files...)
	}
}

// WithRequiredIfNoDefault treats every field without an envDefault tag as required.
func WithRequiredIfNoDefault() Option {
	return func(o *options) {
		o.requiredNoDef = true
	}
}

// WithoutDefaultEnvFile skips loading .env from the working directory.
func WithoutDefaultEnvFile() Option {
	return func(o *options) {
		o.skipDefaultFile = true
	}
}

// Load populates v from environment variables according to its `env` tags.
//
// Example:
//
//	type QueueConfig struct {
//		MaxSize      int           `env:"QUEUE_MAX_SIZE" envDefault:"10000"`
//		PollInterval time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"1s"`
//	}
//
//	var cfg QueueConfig
//	if err := config.Load(&cfg); err != nil {
//		// Handle error
//	}
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if len(o.envFiles) > 0 {
		if err := godotenv.Load(o.envFiles...); err != nil {
			return errors.Join(ErrLoadingEnvFile, err)
		}
	}
	if !o.skipDefaultFile {
		// The default .env is optional
		_ = godotenv.Load()
	}

	if err := env.ParseWithOptions(v, env.Options{
		Prefix:          o.prefix,
		RequiredIfNoDef: o.requiredNoDef,
	}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
// Use it for configuration the process cannot start without.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}
