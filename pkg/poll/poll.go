// Package poll runs fixed-interval polling loops with an attempt budget.
package poll

import (
	"context"
	"errors"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

const (
	DefaultMaxAttempts = 60
	DefaultInterval    = 30 * time.Second
)

// ErrExhausted is returned by Until when every attempt reported not done.
var ErrExhausted = errors.New("polling attempts exhausted")

// Options bounds a polling loop. Zero fields take the defaults.
type Options struct {
	MaxAttempts int
	Interval    time.Duration
}

// Defaults returns 60 attempts at 30 second intervals.
func Defaults() Options {
	return Options{MaxAttempts: DefaultMaxAttempts, Interval: DefaultInterval}
}

// WithDefaults fills zero fields from Defaults.
func (o Options) WithDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	return o
}

// CheckFunc is called once per attempt, starting at 1. It reports done, or
// an error that ends the loop immediately.
type CheckFunc func(ctx context.Context, attempt int) (bool, error)

// Until calls check every Interval until it reports done or fails, at most
// MaxAttempts times. There is no wait before the first attempt nor after the
// last one. It returns the check's error unchanged, ctx.Err() when the
// context ends, or ErrExhausted.
func Until(ctx context.Context, opts Options, check CheckFunc) error {
	opts = opts.WithDefaults()

	backoff := wait.Backoff{
		Duration: opts.Interval,
		Factor:   0,
		Steps:    opts.MaxAttempts,
	}

	var (
		attempt  int
		checkErr error
	)
	err := wait.ExponentialBackoffWithContext(ctx, backoff, func(ctx context.Context) (bool, error) {
		attempt++
		done, err := check(ctx, attempt)
		if err != nil {
			checkErr = err
		}
		return done, err
	})

	switch {
	case err == nil:
		return nil
	case checkErr != nil:
		return checkErr
	case ctx.Err() != nil:
		return ctx.Err()
	case wait.Interrupted(err):
		return ErrExhausted
	default:
		return err
	}
}
