package provider

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"pixie/config"
	"pixie/model"
)

// RetryingProvider bounds each attempt with a timeout and retries failed
// attempts with exponential backoff. Request errors that cannot succeed on a
// second try (ErrNoMessages, a cancelled caller) are not retried.
type RetryingProvider struct {
	inner      model.Provider
	timeout    time.Duration
	maxRetries int
	initial    time.Duration
	maxDelay   time.Duration
	log        *slog.Logger
}

// NewRetryingProvider wraps inner. A zero timeout leaves attempts bounded only
// by the caller's context.
func NewRetryingProvider(inner model.Provider, timeout time.Duration, maxRetries int) *RetryingProvider {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryingProvider{
		inner:      inner,
		timeout:    timeout,
		maxRetries: maxRetries,
		initial:    time.Second,
		maxDelay:   10 * time.Second,
		log:        config.Logger("llm"),
	}
}

// WithDelays overrides the backoff bounds.
func (r *RetryingProvider) WithDelays(initial, max time.Duration) *RetryingProvider {
	r.initial = initial
	r.maxDelay = max
	return r
}

func (r *RetryingProvider) Generate(ctx context.Context, req model.GenerateRequest) (string, model.Usage, error) {
	var (
		text  string
		usage model.Usage
	)

	operation := func() error {
		attemptCtx := ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}

		var err error
		text, usage, err = r.inner.Generate(attemptCtx, req)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrNoMessages), ctx.Err() != nil:
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial
	b.MaxInterval = r.maxDelay
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.maxRetries)), ctx)
	notify := func(err error, wait time.Duration) {
		r.log.Warn("LLM request failed, retrying",
			"provider", r.inner.Name(),
			"model", r.inner.GetModel(),
			"wait", wait,
			"error", err,
		)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return "", model.Usage{}, err
	}
	return text, usage, nil
}

func (r *RetryingProvider) GetModel() string {
	return r.inner.GetModel()
}

func (r *RetryingProvider) Name() string {
	return r.inner.Name()
}

func (r *RetryingProvider) Ping(ctx context.Context) error {
	return r.inner.Ping(ctx)
}
