// Package retry runs operations with exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ShouldRetryFunc reports whether an error is transient. Nil retries every error.
type ShouldRetryFunc func(error) bool

// Config tunes the exponential backoff.
type Config struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	Randomization   float64
	Multiplier      float64
	// MaxRetries caps attempts after the first one; zero means bounded only by MaxElapsedTime.
	MaxRetries uint64

	ShouldRetry ShouldRetryFunc
}

// DefaultConfig suits in-request side calls: a handful of quick attempts.
func DefaultConfig() Config {
	return Config{
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
		MaxElapsedTime:  5 * time.Second,
		Randomization:   0.5,
		Multiplier:      2,
		MaxRetries:      3,
	}
}

// Retrier executes operations under a retry policy.
type Retrier struct {
	config Config
}

func New(config Config) *Retrier {
	return &Retrier{config: config}
}

// ExecuteWithContext runs fn until it succeeds, a permanent error occurs, or the policy gives up.
func (r *Retrier) ExecuteWithContext(ctx context.Context, fn func(context.Context) error) error {
	var b backoff.BackOff = backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(r.config.InitialInterval),
		backoff.WithMaxInterval(r.config.MaxInterval),
		backoff.WithMaxElapsedTime(r.config.MaxElapsedTime),
		backoff.WithRandomizationFactor(r.config.Randomization),
		backoff.WithMultiplier(r.config.Multiplier),
	)
	if r.config.MaxRetries > 0 {
		b = backoff.WithMaxRetries(b, r.config.MaxRetries)
	}

	operation := func() error {
		err := fn(ctx)
		if err != nil && r.config.ShouldRetry != nil && !r.config.ShouldRetry(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}
