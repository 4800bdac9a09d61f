// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import (
	"net/http"
	"sort"
	"strings"
)

// cacheKey canonicalizes a request to a stable string: upper-cased method,
// scheme, host and path, with the query string and fragment excluded. HEAD
// and GET share a key so a HEAD response can refresh a GET entry's metadata;
// the store's Match step re-validates the query against the stored metadata
// separately.
func cacheKey(req *http.Request) string {
	if req == nil || req.URL == nil {
		return ""
	}
	method := strings.ToUpper(req.Method)
	if method == "" || method == http.MethodHead {
		method = http.MethodGet
	}

	scheme := req.URL.Scheme
	if scheme == "" {
		scheme = "http"
	}
	path := req.URL.Path
	if path == "" {
		path = "/"
	}
	return method + " " + scheme + "://" + req.URL.Host + path
}

// cacheKeyWithHeaders appends the canonicalized values of extraHeaders,
// sorted by header name, to the base cache key. Used when Options.CacheKeyHeaders
// is set so that e.g. an Accept-Language-specific representation gets its own
// key rather than relying solely on Vary-based secondary matching.
func cacheKeyWithHeaders(req *http.Request, extraHeaders []string) string {
	key := cacheKey(req)
	if len(extraHeaders) == 0 {
		return key
	}

	var headerParts []string
	for _, header := range extraHeaders {
		canonicalHeader := http.CanonicalHeaderKey(header)
		value := req.Header.Get(canonicalHeader)
		if value != "" {
			headerParts = append(headerParts, canonicalHeader+":"+value)
		}
	}
	if len(headerParts) == 0 {
		return key
	}
	sort.Strings(headerParts)
	return key + "|" + strings.Join(headerParts, "|")
}
