// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import (
	"net/http"
	"sort"
	"strings"
)

// headerAllCommaSepValues returns all comma-separated values across every
// occurrence of the named header, trimmed of surrounding whitespace.
func headerAllCommaSepValues(headers http.Header, name string) []string {
	var out []string
	for _, line := range headers.Values(name) {
		for _, part := range strings.Split(line, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// varyMatches reports whether storedReqHeader (the request headers captured
// alongside a stored entry) matches req for every header name listed in the
// stored response's Vary header. RFC 9111 §4.1: "Vary: *" never matches.
func varyMatches(storedRespHeader, storedReqHeader http.Header, req *http.Request) bool {
	varyHeaders := headerAllCommaSepValues(storedRespHeader, headerVary)

	for _, name := range varyHeaders {
		if name == "*" {
			return false
		}
	}

	for _, name := range varyHeaders {
		canon := http.CanonicalHeaderKey(name)
		if canon == "" {
			continue
		}
		reqValue := req.Header.Get(canon)
		storedValue := storedReqHeader.Get(canon)
		if !normalizedHeaderValuesMatch(reqValue, storedValue) {
			return false
		}
	}
	return true
}

// normalizedHeaderValuesMatch implements RFC 9111 §4.1 header field
// matching: two values match if they are identical once whitespace is
// normalized and comma-separated lists are reformatted consistently.
func normalizedHeaderValuesMatch(value1, value2 string) bool {
	if value1 == value2 {
		return true
	}
	return normalizeHeaderValue(value1) == normalizeHeaderValue(value2)
}

// normalizeHeaderValue collapses whitespace runs to a single space and
// removes the space after commas in comma-separated lists, so "en, fr" and
// "en,fr" compare equal.
func normalizeHeaderValue(value string) string {
	value = strings.TrimSpace(value)

	var normalized strings.Builder
	prevSpace := false
	for _, r := range value {
		switch r {
		case ' ', '\t', '\n', '\r':
			if !prevSpace {
				normalized.WriteRune(' ')
				prevSpace = true
			}
		default:
			normalized.WriteRune(r)
			prevSpace = false
		}
	}

	return strings.ReplaceAll(normalized.String(), ", ", ",")
}

// cacheKeyWithVary returns the cache key for req augmented with the
// normalized values of the headers named in varyHeaders, implementing
// RFC 9111 vary-separated storage: a distinct cache entry per variant.
func cacheKeyWithVary(req *http.Request, varyHeaders []string) string {
	key := cacheKey(req)
	if len(varyHeaders) == 0 {
		return key
	}

	var varyParts []string
	for _, name := range varyHeaders {
		canon := http.CanonicalHeaderKey(strings.TrimSpace(name))
		if canon == "" || canon == "*" {
			continue
		}
		value := normalizeHeaderValue(req.Header.Get(canon))
		varyParts = append(varyParts, canon+":"+value)
	}

	if len(varyParts) == 0 {
		return key
	}
	sort.Strings(varyParts)
	return key + "|vary:" + strings.Join(varyParts, "|")
}
