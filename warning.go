// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import "net/http"

// addWarningHeader appends a Warning header to resp. Warning headers stack,
// so Add is used rather than Set. RFC 9111 has obsoleted the Warning header
// field, but it remains useful for local diagnostics of cache behavior.
func addWarningHeader(resp *http.Response, warningCode string) {
	resp.Header.Add(headerWarning, warningCode)
}

// addStaleWarning adds "110 Response is Stale".
func addStaleWarning(resp *http.Response) {
	addWarningHeader(resp, warningResponseIsStale)
}

// addRevalidationFailedWarning adds "111 Revalidation Failed".
func addRevalidationFailedWarning(resp *http.Response) {
	addWarningHeader(resp, warningRevalidationFailed)
}

// addHeuristicExpirationWarning adds "113 Heuristic Expiration", set when a
// response's freshness lifetime was computed without an explicit max-age or
// Expires header.
func addHeuristicExpirationWarning(resp *http.Response) {
	addWarningHeader(resp, warningHeuristicExpiration)
}

// stripWarning1xxHeaders removes any 1xx Warning values from header,
// per RFC 9111 §5.5: a served cache hit must not carry over a prior
// warn-code in the 1xx range produced by a different cache.
func stripWarning1xxHeaders(header http.Header) {
	values := header.Values(headerWarning)
	if len(values) == 0 {
		return
	}
	kept := values[:0]
	for _, v := range values {
		if len(v) >= 3 && v[0] == '1' {
			continue
		}
		kept = append(kept, v)
	}
	header.Del(headerWarning)
	for _, v := range kept {
		header.Add(headerWarning, v)
	}
}
