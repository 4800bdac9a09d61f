// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"time"
)

// RetryConfig controls the exponential backoff retry engine. MaxRetries == 0
// disables retry entirely.
type RetryConfig struct {
	MaxRetries int
	Factor     float64       // backoff multiplier per attempt, default 2
	MinTimeout time.Duration // default 100ms
	MaxTimeout time.Duration // default 10s
	Randomize  bool          // add jitter in [0, delay)
}

func (r *RetryConfig) withDefaults() RetryConfig {
	cfg := RetryConfig{MaxRetries: 0}
	if r != nil {
		cfg = *r
	}
	if cfg.Factor <= 0 {
		cfg.Factor = 2
	}
	if cfg.MinTimeout <= 0 {
		cfg.MinTimeout = 100 * time.Millisecond
	}
	if cfg.MaxTimeout <= 0 {
		cfg.MaxTimeout = 10 * time.Second
	}
	return cfg
}

// backoffDelay returns the delay before attempt n (1-based retry count, i.e.
// n==1 is the delay before the first retry), bounded by MaxTimeout.
func (r RetryConfig) backoffDelay(n int) time.Duration {
	delay := float64(r.MinTimeout) * math.Pow(r.Factor, float64(n-1))
	d := time.Duration(delay)
	if d > r.MaxTimeout {
		d = r.MaxTimeout
	}
	if r.Randomize {
		return time.Duration(rand.Float64() * float64(d))
	}
	return d
}

// retriableStatus reports whether status is one the retry engine should
// reissue the request for: request-timeout/enhance-your-calm/too-many-requests,
// or any 5xx.
func retriableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, 420, http.StatusTooManyRequests:
		return true
	}
	return status >= 500
}

// retriableError classifies a transport error as transient (connection
// reset/refused, address in use, timed out) versus terminal (DNS failure,
// anything else).
func retriableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrRequestTimeout) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.EADDRINUSE, syscall.ETIMEDOUT:
			return true
		}
	}

	return false
}

// canRetryRequest reports whether req may be replayed: GET, HEAD, PUT,
// DELETE and OPTIONS qualify when they carry no body or a rewindable one
// (GetBody set). Every other method, POST included, is never retried even
// with a rewindable body, since a non-idempotent method retried blindly
// risks duplicate side effects.
func canRetryRequest(req *http.Request) bool {
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		if req.Body == nil || req.Body == http.NoBody {
			return true
		}
		return req.GetBody != nil
	default:
		return false
	}
}

// doWithRetry executes attempt repeatedly per cfg, classifying failures via
// retriableStatus/retriableError, until success, a non-retriable outcome, or
// MaxRetries is exhausted. Every attempt's response gets X-Fetch-Attempts set
// to its 1-based attempt number. A final failure whose response carries status >= 400
// is returned as a response, not an error — only a transport error on the
// last attempt is returned as an error.
func doWithRetry(ctx context.Context, req *http.Request, cfg *RetryConfig, attempt func(*http.Request) (*http.Response, error)) (*http.Response, error) {
	rc := cfg.withDefaults()
	retryable := cfg != nil && rc.MaxRetries > 0 && canRetryRequest(req)

	var lastResp *http.Response
	var lastErr error

	for n := 1; ; n++ {
		attemptReq := req
		if n > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, ErrBodyNotRewindable
			}
			attemptReq = req.Clone(req.Context())
			attemptReq.Body = body
		}
		resp, err := attempt(attemptReq)
		if resp != nil && resp.Header != nil {
			resp.Header.Set(XFetchAttempts, strconv.Itoa(n))
		}
		if err == nil && (resp == nil || !retriableStatus(resp.StatusCode)) {
			return resp, nil
		}
		if err != nil && !retriableError(err) {
			return resp, err
		}

		lastResp, lastErr = resp, err

		if !retryable || n > rc.MaxRetries {
			return lastResp, lastErr
		}

		delay := rc.backoffDelay(n)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
