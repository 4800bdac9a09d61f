// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import (
	"net/http"
	"strings"
	"time"
)

// timer is an interface for time-related operations, allowing for testing.
type timer interface {
	since(d time.Time) time.Duration
}

type realClock struct{}

func (c *realClock) since(d time.Time) time.Duration {
	return time.Since(d)
}

var clock timer = &realClock{}

// getFreshness returns one of fresh/stale/transparent/staleWhileRevalidate
// based on the Cache-Control values of the request and the response.
//
// fresh indicates the response can be returned as-is.
// stale indicates the response needs validating before it is returned.
// transparent indicates the response must not be used to fulfil the request.
// staleWhileRevalidate indicates the response can be served immediately
// while a revalidation happens in the background.
//
// This is a private-cache implementation: Cache-Control: public is ignored
// and s-maxage only applies when IsPublicCache is set. A response carrying
// immutable is always fresh; one carrying must-revalidate is always stale.
// The second return value reports whether the lifetime was computed via the
// RFC 9111 §4.2.2 heuristic (no explicit max-age/s-maxage/Expires), which
// callers serving a fresh result must flag with Warning: 113.
func getFreshness(respHeaders, reqHeaders http.Header, isPublicCache bool) (freshnessState, bool) {
	respCC := parseCacheControl(respHeaders)
	reqCC := parseCacheControl(reqHeaders)

	if result, done := checkCacheControl(respCC, reqCC, reqHeaders); done {
		return result, false
	}

	if _, ok := respCC[cacheControlImmutable]; ok {
		return fresh, false
	}

	if _, ok := respCC[cacheControlMustRevalidate]; ok {
		return stale, false
	}

	date, err := Date(respHeaders)
	if err != nil {
		return stale, false
	}
	currentAge := clock.since(date)

	lifetime, heuristic := calculateLifetime(respCC, respHeaders, date, isPublicCache)

	var returnFresh bool
	currentAge, lifetime, returnFresh = adjustAgeForRequestControls(respCC, reqCC, currentAge, lifetime)
	if returnFresh {
		return fresh, heuristic
	}

	if lifetime > currentAge {
		return fresh, heuristic
	}

	if swr, ok := respCC[cacheControlStaleWhileRevalidate]; ok {
		if d, err := time.ParseDuration(swr + "s"); err == nil {
			if lifetime+d > currentAge {
				return staleWhileRevalidate, heuristic
			}
		}
	}

	return stale, heuristic
}

// checkCacheControl checks for no-cache directives, Pragma: no-cache, and
// only-if-cached. RFC 9111 §5.4: Pragma: no-cache is treated as
// Cache-Control: no-cache when the request carries no Cache-Control header,
// for HTTP/1.0 compatibility.
func checkCacheControl(respCC, reqCC cacheControl, reqHeaders http.Header) (freshnessState, bool) {
	if _, ok := reqCC[cacheControlNoCache]; ok {
		return transparent, true
	}
	if len(reqCC) == 0 && strings.EqualFold(reqHeaders.Get(headerPragma), pragmaNoCache) {
		return transparent, true
	}
	if _, ok := respCC[cacheControlNoCache]; ok {
		return stale, true
	}
	if _, ok := reqCC[cacheControlOnlyIfCached]; ok {
		return fresh, true
	}
	return 0, false
}

// calculateLifetime computes the response lifetime from max-age/s-maxage,
// the Expires header, or a heuristic fallback based on Last-Modified. The
// second return value reports whether the heuristic fallback was used.
func calculateLifetime(respCC cacheControl, respHeaders http.Header, date time.Time, isPublicCache bool) (time.Duration, bool) {
	if isPublicCache {
		if sMaxAge, ok := respCC[cacheControlSMaxAge]; ok {
			if d, err := time.ParseDuration(sMaxAge + "s"); err == nil {
				return d, false
			}
		}
	}

	if maxAge, ok := respCC[cacheControlMaxAge]; ok {
		if d, err := time.ParseDuration(maxAge + "s"); err == nil {
			return d, false
		}
		return 0, false
	}

	if expiresHeader := respHeaders.Get("Expires"); expiresHeader != "" {
		expires, err := time.Parse(time.RFC1123, expiresHeader)
		if err != nil {
			return 0, false
		}
		return expires.Sub(date), false
	}

	return heuristicLifetime(respHeaders, date), true
}

// heuristicLifetime implements the RFC 9111 §4.2.2 heuristic: when no
// explicit expiration is given, use 10% of the time since Last-Modified,
// capped at 5 minutes. Absent a usable Last-Modified, fall back to the flat
// 5 minute cap rather than treating the response as immediately stale.
// Callers must flag the result with Warning: 113 (see addHeuristicExpirationWarning).
func heuristicLifetime(respHeaders http.Header, date time.Time) time.Duration {
	const cap = 300 * time.Second
	lastModifiedHeader := respHeaders.Get(headerLastModified)
	if lastModifiedHeader == "" {
		return cap
	}
	lastModified, err := time.Parse(time.RFC1123, lastModifiedHeader)
	if err != nil {
		return 0
	}
	if !date.After(lastModified) {
		return 0
	}
	heuristic := date.Sub(lastModified) / 10
	if heuristic > cap {
		return cap
	}
	return heuristic
}

// adjustAgeForRequestControls applies the request's max-age/min-fresh/
// max-stale directives and enforces the response's must-revalidate, which
// overrides max-stale.
func adjustAgeForRequestControls(respCC, reqCC cacheControl, currentAge, lifetime time.Duration) (time.Duration, time.Duration, bool) {
	if maxAge, ok := reqCC[cacheControlMaxAge]; ok {
		if d, err := time.ParseDuration(maxAge + "s"); err == nil {
			lifetime = d
		} else {
			lifetime = 0
		}
	}

	if minFresh, ok := reqCC[cacheControlMinFresh]; ok {
		if d, err := time.ParseDuration(minFresh + "s"); err == nil {
			currentAge += d
		}
	}

	if _, mustRevalidate := respCC[cacheControlMustRevalidate]; mustRevalidate {
		return currentAge, lifetime, false
	}

	if maxStale, ok := reqCC[cacheControlMaxStale]; ok {
		if maxStale == "" {
			return currentAge, lifetime, true
		}
		if d, err := time.ParseDuration(maxStale + "s"); err == nil {
			currentAge -= d
		}
	}

	return currentAge, lifetime, false
}

// isActuallyStale reports whether respHeaders describe a response that has
// exceeded its lifetime, ignoring the caller's max-stale tolerance.
func isActuallyStale(respHeaders http.Header) bool {
	respCC := parseCacheControl(respHeaders)

	if _, ok := respCC[cacheControlImmutable]; ok {
		return false
	}

	date, err := Date(respHeaders)
	if err != nil {
		return true
	}

	currentAge := clock.since(date)
	lifetime, _ := calculateLifetime(respCC, respHeaders, date, false)

	if swr, ok := respCC[cacheControlStaleWhileRevalidate]; ok {
		if d, err := time.ParseDuration(swr + "s"); err == nil {
			if lifetime+d > currentAge {
				return false
			}
		}
	}

	return lifetime <= currentAge
}

// freshnessString converts a freshnessState to its wire/log representation.
func freshnessString(f freshnessState) string {
	switch f {
	case fresh:
		return freshnessStringFresh
	case stale:
		return freshnessStringStale
	case staleWhileRevalidate:
		return freshnessStringStaleWhileRevalidate
	case transparent:
		return freshnessStringTransparent
	default:
		return freshnessStringUnknown
	}
}

// parseStaleIfError parses the stale-if-error directive (RFC 5861).
func parseStaleIfError(cc cacheControl) (lifetime time.Duration, acceptAny, found bool) {
	value, ok := cc[cacheControlStaleIfError]
	if !ok {
		return 0, false, false
	}
	if value == "" {
		return 0, true, true
	}
	d, err := time.ParseDuration(value + "s")
	if err != nil {
		return 0, false, true
	}
	return d, false, true
}

// checkStaleIfErrorLifetime reports whether respHeaders are still within
// the given stale-if-error lifetime.
func checkStaleIfErrorLifetime(respHeaders http.Header, lifetime time.Duration) bool {
	date, err := Date(respHeaders)
	if err != nil {
		return false
	}
	return lifetime > clock.since(date)
}

// canStaleOnError determines whether a stale response may be returned in
// place of an origin or transport error. must-revalidate always forbids it.
// Otherwise it is allowed, unless a stale-if-error directive (RFC 5861) on
// the response or request gives a lifetime that has already run out.
func canStaleOnError(respHeaders, reqHeaders http.Header) bool {
	respCC := parseCacheControl(respHeaders)
	if _, mustRevalidate := respCC[cacheControlMustRevalidate]; mustRevalidate {
		return false
	}
	reqCC := parseCacheControl(reqHeaders)

	lifetime := time.Duration(-1)

	if respLifetime, acceptAny, found := parseStaleIfError(respCC); found {
		if acceptAny {
			return true
		}
		lifetime = respLifetime
	}

	if reqLifetime, acceptAny, found := parseStaleIfError(reqCC); found {
		if acceptAny {
			return true
		}
		lifetime = reqLifetime
	}

	if lifetime >= 0 {
		return checkStaleIfErrorLifetime(respHeaders, lifetime)
	}

	return true
}
