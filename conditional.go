// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import (
	"net/http"
	"strings"
)

// addValidatorsToRequest clones req and attaches conditional headers derived
// from a stored entry's metadata. GET/HEAD use If-None-Match/If-Modified-Since;
// any other method (used on revalidation of an invalidation target) uses
// If-Match/If-Unmodified-Since instead, per RFC 9111 §13.1/§13.2.
func addValidatorsToRequest(req *http.Request, meta Metadata) *http.Request {
	clone := req.Clone(req.Context())

	etag := meta.ResponseHeader.Get(headerETag)
	lastModified := meta.ResponseHeader.Get(headerLastModified)

	if req.Method == http.MethodGet || req.Method == http.MethodHead {
		if etag != "" {
			clone.Header.Set("If-None-Match", etag)
		}
		if lastModified != "" {
			clone.Header.Set("If-Modified-Since", lastModified)
		}
	} else {
		if etag != "" {
			clone.Header.Set("If-Match", etag)
		}
		if lastModified != "" {
			clone.Header.Set("If-Unmodified-Since", lastModified)
		}
	}

	return clone
}

// hasConditionalHeaders reports whether req already carries a validator the
// caller set themselves, which promotes ModeDefault to ModeNoStore (§4.8).
func hasConditionalHeaders(req *http.Request) bool {
	for _, name := range []string{"If-Modified-Since", "If-None-Match", "If-Unmodified-Since", "If-Match", "If-Range"} {
		if req.Header.Get(name) != "" {
			return true
		}
	}
	return false
}

// endToEndHeaders lists the response headers that RFC 9111 §3.2 requires a
// cache to update from a 304 response, instead of hop-by-hop or
// connection-specific fields that a 304 cannot meaningfully carry.
var endToEndHeaders = []string{
	headerETag,
	headerLastModified,
	"Cache-Control",
	"Expires",
	"Vary",
	"Content-Location",
	"Date",
}

// mergeNotModified folds a 304 response's end-to-end headers into stored,
// returning the updated metadata. Per RFC 9111 §3.2, the stored
// representation's body is untouched; only metadata is refreshed.
func mergeNotModified(stored Metadata, notModified *http.Response) Metadata {
	merged := stored
	merged.ResponseHeader = stored.ResponseHeader.Clone()
	for _, name := range endToEndHeaders {
		if v := notModified.Header.Get(name); v != "" {
			merged.ResponseHeader.Set(name, v)
		}
	}
	return merged
}

// isNotModified reports whether resp is a 304 response.
func isNotModified(resp *http.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotModified
}

// unsafeMethod reports whether method is anything other than GET or HEAD
// (an empty method means GET). Such a request never reads the cache and
// invalidates any cached representation of its target.
func unsafeMethod(method string) bool {
	switch strings.ToUpper(method) {
	case "", http.MethodGet, http.MethodHead:
		return false
	default:
		return true
	}
}
