package provider

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/hexborne/vulndetective/api/schemas"
	"github.com/hexborne/vulndetective/internal/config"
	"github.com/hexborne/vulndetective/internal/observability"
)

// Policy is the explicit retry policy applied per provider call. Transient
// failures (rate limiting, timeouts) are retried with exponential backoff up
// to MaxAttempts; everything else fails immediately.
type Policy struct {
	maxAttempts     int
	initialInterval time.Duration
	maxInterval     time.Duration
	multiplier      float64
	logger          *zap.Logger
}

// NewPolicy builds a Policy from configuration, falling back to sane bounds
// for zero values.
func NewPolicy(cfg config.RetryConfig) *Policy {
	p := &Policy{
		maxAttempts:     cfg.MaxAttempts,
		initialInterval: cfg.InitialInterval,
		maxInterval:     cfg.MaxInterval,
		multiplier:      cfg.Multiplier,
		logger:          observability.GetLogger().Named("provider.retry"),
	}
	if p.maxAttempts < 1 {
		p.maxAttempts = 1
	}
	if p.initialInterval <= 0 {
		p.initialInterval = 500 * time.Millisecond
	}
	if p.maxInterval <= 0 {
		p.maxInterval = 15 * time.Second
	}
	if p.multiplier < 1 {
		p.multiplier = 2.0
	}
	return p
}

// Execute runs fn under the policy and returns its result. The returned
// error is the last attempt's error; transient exhaustion surfaces it
// unchanged so callers can still inspect the ProviderError kind.
func (p *Policy) Execute(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initialInterval
	b.MaxInterval = p.maxInterval
	b.Multiplier = p.multiplier
	b.MaxElapsedTime = 0 // Attempt count is the only budget.

	attempt := 0
	var result string

	operation := func() error {
		attempt++
		out, err := fn(ctx)
		if err == nil {
			result = out
			return nil
		}

		if !isTransient(err) {
			return backoff.Permanent(err)
		}
		if attempt >= p.maxAttempts {
			return backoff.Permanent(err)
		}
		p.logger.Debug("transient provider failure, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.maxAttempts),
			zap.Error(err))
		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	return result, nil
}

// isTransient reports whether the error is worth another attempt. Context
// cancellation is never retried.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if pe, ok := schemas.AsProviderError(err); ok {
		return pe.Transient()
	}
	return false
}
