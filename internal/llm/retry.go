package llm

import (
	"context"
	"errors"
	"time"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// sleepContext is the production SleepFunc.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do calls fn, retrying only on rate-limit errors. fn runs at most
// cfg.MaxRetries+1 times; the k-th retry waits cfg.BaseDelay × 2^(k-1).
// Any other error, or the last rate-limit error once retries run out, is
// returned as is.
func Do[T any](ctx context.Context, cfg RetryConfig, sleep SleepFunc, fn func(context.Context) (T, error)) (T, error) {
	if sleep == nil {
		sleep = sleepContext
	}
	delay := cfg.BaseDelay

	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}

		var rl *ErrRateLimit
		if !errors.As(err, &rl) || attempt >= cfg.MaxRetries {
			return v, err
		}

		if serr := sleep(ctx, delay); serr != nil {
			return v, serr
		}
		delay *= 2
	}
}

// RetryProvider is a decorator that retries rate-limited requests with
// exponential backoff.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
	sleep  SleepFunc
}

// RetryOption customizes a RetryProvider.
type RetryOption func(*RetryProvider)

// WithSleep replaces the backoff sleep. Tests use it to record delays.
func WithSleep(fn SleepFunc) RetryOption {
	return func(r *RetryProvider) { r.sleep = fn }
}

// WithRetry wraps a Provider with retry logic.
func WithRetry(p Provider, cfg RetryConfig, opts ...RetryOption) Provider {
	r := &RetryProvider{inner: p, config: cfg, sleep: sleepContext}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	return Do(ctx, r.config, r.sleep, func(ctx context.Context) (*Response, error) {
		return r.inner.Generate(ctx, req)
	})
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}
