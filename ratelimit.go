package nbtlai

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the rate limiter.
type RateLimitConfig struct {
	RequestsPerMinute int // Maximum requests per minute (default: backend limit, else 60)
	BurstSize         int // Maximum burst size (default: 1)
}

// RateLimitedBackend wraps a Backend with a token bucket.
type RateLimitedBackend struct {
	backend Backend
	limiter *rate.Limiter
}

// NewRateLimitedBackend creates a new rate-limited backend.
func NewRateLimitedBackend(backend Backend, cfg RateLimitConfig) *RateLimitedBackend {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = backend.Limits().RequestsPerMinute
	}
	if rpm <= 0 {
		rpm = 60
	}

	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}

	return &RateLimitedBackend{
		backend: backend,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
	}
}

// Name implements Backend.
func (b *RateLimitedBackend) Name() string {
	return b.backend.Name()
}

// Languages implements Backend.
func (b *RateLimitedBackend) Languages() map[string]string {
	return b.backend.Languages()
}

// Limits implements Backend.
func (b *RateLimitedBackend) Limits() Limits {
	return b.backend.Limits()
}

// Translate waits for a token and forwards the request.
func (b *RateLimitedBackend) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, &ProviderError{
			Backend:   b.backend.Name(),
			Message:   "rate limit wait cancelled",
			Cause:     err,
			Retryable: false,
		}
	}

	return b.backend.Translate(ctx, req)
}

// Limiter returns the underlying rate limiter for inspection.
func (b *RateLimitedBackend) Limiter() *rate.Limiter {
	return b.limiter
}

var _ Backend = (*RateLimitedBackend)(nil)
