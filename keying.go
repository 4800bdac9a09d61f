// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import "net/http"

// ComputeKey returns the canonical cache key for req (see cacheKey), exported
// for use by out-of-tree Store implementations such as those under store/.
func ComputeKey(req *http.Request) string {
	return cacheKey(req)
}

// ComputeKeyWithHeaders is ComputeKey augmented with the canonicalized
// values of extraHeaders, for Store implementations honoring Options.CacheKeyHeaders.
func ComputeKeyWithHeaders(req *http.Request, extraHeaders []string) string {
	return cacheKeyWithHeaders(req, extraHeaders)
}

// MatchesVary reports whether storedReqHeader satisfies the Vary
// requirements declared by storedRespHeader against req, exported for use by
// out-of-tree Store implementations.
func MatchesVary(storedRespHeader, storedReqHeader http.Header, req *http.Request) bool {
	return varyMatches(storedRespHeader, storedReqHeader, req)
}

// IsFresh reports whether storedRespHeader still satisfies req's freshness
// requirements, per RFC 9111 (see getFreshness for the full state machine).
// Store implementations that want to short-circuit obviously-fresh entries
// without round-tripping through the orchestrator can use this directly.
func IsFresh(storedRespHeader, reqHeader http.Header, isPublicCache bool) bool {
	state, _ := getFreshness(storedRespHeader, reqHeader, isPublicCache)
	return state == fresh
}
