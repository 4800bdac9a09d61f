// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import (
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// ResilienceConfig holds optional failsafe-go policies layered on top of the
// classification-driven retry engine in retry.go. Both fields are nil by
// default; resilience is opt-in.
type ResilienceConfig struct {
	// RetryPolicy, if set, additionally governs retry timing/limits via
	// failsafe-go rather than the built-in RetryConfig.
	RetryPolicy retrypolicy.RetryPolicy[*http.Response]

	// CircuitBreaker, if set, trips after repeated failures and short-circuits
	// further attempts until it half-opens.
	CircuitBreaker circuitbreaker.CircuitBreaker[*http.Response]
}

// RetryPolicyBuilder returns a failsafe-go retry policy builder pre-configured
// to retry on transport errors or 5xx status codes, up to 3 retries, 100ms-10s
// exponential backoff. Callers customize further before calling Build().
func RetryPolicyBuilder() retrypolicy.Builder[*http.Response] {
	return retrypolicy.NewBuilder[*http.Response]().
		HandleIf(func(r *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && r.StatusCode >= 500
		}).
		WithMaxRetries(3).
		WithBackoff(100*time.Millisecond, 10*time.Second)
}

// CircuitBreakerBuilder returns a failsafe-go circuit breaker builder
// pre-configured with a 5-failure threshold, 2-success half-open threshold,
// and 60s open-state delay. Callers customize further before calling Build().
func CircuitBreakerBuilder() circuitbreaker.Builder[*http.Response] {
	return circuitbreaker.NewBuilder[*http.Response]().
		HandleIf(func(r *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && r.StatusCode >= 500
		}).
		WithFailureThreshold(5).
		WithSuccessThreshold(2).
		WithDelay(60 * time.Second)
}

// executeWithResilience runs fn directly, or through the client's configured
// failsafe-go policies (retry outermost, circuit breaker innermost, since
// failsafe.With treats its first policy as the outermost) when a
// ResilienceConfig is set.
func (c *Client) executeWithResilience(fn func() (*http.Response, error)) (*http.Response, error) {
	if c.resilience == nil {
		return fn()
	}

	var policies []failsafe.Policy[*http.Response]
	if c.resilience.RetryPolicy != nil {
		policies = append(policies, c.resilience.RetryPolicy)
	}
	if c.resilience.CircuitBreaker != nil {
		policies = append(policies, c.resilience.CircuitBreaker)
	}
	if len(policies) == 0 {
		return fn()
	}

	return failsafe.With(policies...).Get(fn)
}
