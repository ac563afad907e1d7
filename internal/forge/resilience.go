package forge

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/relicta-tech/convoy/internal/errors"
)

// ResilienceConfig configures the resilience wrapper around provider calls.
type ResilienceConfig struct {
	// Rate limiting
	RateLimitRPM int // requests per minute (0 = disabled)

	// Retry configuration
	RetryAttempts    int
	RetryInitialWait time.Duration
	RetryMaxWait     time.Duration

	// Circuit breaker
	CircuitBreakerEnabled     bool
	CircuitBreakerThreshold   int           // failures before opening
	CircuitBreakerTimeout     time.Duration // how long to stay open
	CircuitBreakerMaxRequests int           // requests allowed in half-open
}

// DefaultResilienceConfig returns the defaults used for provider APIs.
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		RateLimitRPM:              120,
		RetryAttempts:             3,
		RetryInitialWait:          500 * time.Millisecond,
		RetryMaxWait:              10 * time.Second,
		CircuitBreakerEnabled:     true,
		CircuitBreakerThreshold:   5,
		CircuitBreakerTimeout:     30 * time.Second,
		CircuitBreakerMaxRequests: 3,
	}
}

// Resilience wraps provider calls with rate limiting, a circuit breaker and
// bounded exponential retry. Retry only re-runs transient failures; conflicts
// and auth errors return immediately so the caller can re-read remote state.
type Resilience struct {
	rateLimiter    ratelimit.RateLimiter
	circuitBreaker circuitbreaker.CircuitBreaker[any]
	config         ResilienceConfig
}

// NewResilience creates the resilience wrapper for the given configuration.
func NewResilience(cfg ResilienceConfig) *Resilience {
	r := &Resilience{config: cfg}

	if cfg.RateLimitRPM > 0 {
		r.rateLimiter = ratelimit.New(&ratelimit.Config{
			Rate:     cfg.RateLimitRPM,
			Burst:    cfg.RateLimitRPM * 2,
			Interval: time.Minute,
		})
	}

	if cfg.CircuitBreakerEnabled {
		threshold := cfg.CircuitBreakerThreshold
		r.circuitBreaker = circuitbreaker.New[any](circuitbreaker.Config{
			MaxRequests: uint32(cfg.CircuitBreakerMaxRequests), // #nosec G115 -- bounded config value
			Interval:    cfg.CircuitBreakerTimeout,
			Timeout:     cfg.CircuitBreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- bounded config value
			},
		})
	}

	return r
}

// Do runs one provider call with all configured resilience patterns.
// Order: rate limit, circuit breaker, retry, operation.
func Do[T any](ctx context.Context, r *Resilience, operation func(context.Context) (T, error)) (T, error) {
	if r == nil {
		return operation(ctx)
	}

	if r.rateLimiter != nil {
		if err := r.rateLimiter.Wait(ctx, "forge"); err != nil {
			var zero T
			return zero, errors.NetworkWrap(err, "forge.Do", "rate limiter wait failed")
		}
	}

	if r.circuitBreaker != nil {
		out, err := r.circuitBreaker.Execute(ctx, func(ctx context.Context) (any, error) {
			return doWithRetry(ctx, r, operation)
		})
		if err != nil {
			var zero T
			return zero, err
		}
		return out.(T), nil
	}

	return doWithRetry(ctx, r, operation)
}

func doWithRetry[T any](ctx context.Context, r *Resilience, operation func(context.Context) (T, error)) (T, error) {
	if r.config.RetryAttempts <= 0 {
		return operation(ctx)
	}
	retrier := retry.New[T](retry.Config{
		MaxAttempts:   r.config.RetryAttempts,
		InitialDelay:  r.config.RetryInitialWait,
		MaxDelay:      r.config.RetryMaxWait,
		BackoffPolicy: retry.BackoffExponential,
		Multiplier:    2.0,
		Jitter:        true,
		IsRetryable:   isRetryableError,
	})
	return retrier.Do(ctx, operation)
}

// isRetryableError admits transient failures only. A conflict means remote
// state moved underneath us; retrying the same mutation cannot succeed, the
// caller has to re-read and re-diff first.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch errors.GetKind(err) {
	case errors.KindNetwork, errors.KindTimeout:
		return true
	case errors.KindConflict, errors.KindValidation, errors.KindNotFound, errors.KindConfig:
		return false
	}
	return false
}

// CircuitBreakerState returns "closed", "half-open", "open" or "disabled".
func (r *Resilience) CircuitBreakerState() string {
	if r == nil || r.circuitBreaker == nil {
		return "disabled"
	}
	return r.circuitBreaker.State().String()
}

// Close releases resources held by the rate limiter.
func (r *Resilience) Close() error {
	if r == nil {
		return nil
	}
	if r.rateLimiter != nil {
		return r.rateLimiter.Close()
	}
	return nil
}
