package transport

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	jerrors "github.com/C3rb/Josser/pkg/errors"
)

var errRateLimitExceeded = errors.New("rate limit exceeded")

// RateLimitMiddleware throttles outgoing payloads with a token bucket.
type RateLimitMiddleware struct {
	limiter *rate.Limiter
	wait    bool
}

// NewRateLimitMiddleware creates a rate-limit middleware. All transports it
// wraps share one bucket.
func NewRateLimitMiddleware(config RateLimitConfig) Middleware {
	burst := config.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitMiddleware{
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst),
		wait:    config.Wait,
	}
}

// Wrap implements the Middleware interface
func (rm *RateLimitMiddleware) Wrap(transport Transport) Transport {
	return &rateLimitTransport{Base: Base{Next: transport}, middleware: rm}
}

func (rm *RateLimitMiddleware) acquire(ctx context.Context, endpoint string) error {
	if rm.wait {
		if err := rm.limiter.Wait(ctx); err != nil {
			return jerrors.RateLimited(endpoint, err)
		}
		return nil
	}
	if !rm.limiter.Allow() {
		return jerrors.RateLimited(endpoint, errRateLimitExceeded)
	}
	return nil
}

type rateLimitTransport struct {
	Base
	middleware *RateLimitMiddleware
}

func (rt *rateLimitTransport) Send(ctx context.Context, payload []byte) ([]byte, error) {
	if err := rt.middleware.acquire(ctx, rt.Endpoint()); err != nil {
		return nil, err
	}
	return rt.Base.Send(ctx, payload)
}

func (rt *rateLimitTransport) Notify(ctx context.Context, payload []byte) error {
	if err := rt.middleware.acquire(ctx, rt.Endpoint()); err != nil {
		return err
	}
	return rt.Base.Notify(ctx, payload)
}
