package provider

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/hexborne/vulndetective/api/schemas"
)

// Throttled wraps a ModelProvider with a shared token-bucket budget so
// concurrent analyses cannot exceed the configured request rate. All units
// in a batch share one Throttled instance.
type Throttled struct {
	inner   schemas.ModelProvider
	limiter *rate.Limiter
}

// NewThrottled builds the decorator. A non-positive rate disables
// throttling.
func NewThrottled(inner schemas.ModelProvider, requestsPerSecond float64, burst int) *Throttled {
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
	return &Throttled{inner: inner, limiter: limiter}
}

// Generate waits for budget, then delegates.
func (t *Throttled) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	return t.inner.Generate(ctx, req)
}
