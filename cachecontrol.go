// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// cacheControl is a map of Cache-Control directive names to their values.
type cacheControl map[string]string

// parseCacheControl parses the Cache-Control header and returns a map of directives.
// Implements RFC 9111 Section 4.2.1 validation:
//   - Duplicate directives: uses the first occurrence, logs a warning.
//   - Conflicting directives: applies the most restrictive, logs a warning.
//   - Invalid values: logs a warning but continues processing.
func parseCacheControl(headers http.Header) cacheControl {
	cc := cacheControl{}
	seen := make(map[string]bool)
	ccHeader := headers.Get("Cache-Control")
	log := GetLogger()

	for _, part := range strings.Split(ccHeader, ",") {
		part = strings.Trim(part, " ")
		if part == "" {
			continue
		}

		var directive, value string
		if idx := strings.IndexByte(part, '='); idx >= 0 {
			directive = strings.Trim(part[:idx], " ")
			value = strings.Trim(part[idx+1:], " \"")
		} else {
			directive = part
		}
		directive = strings.ToLower(directive)

		if seen[directive] {
			log.Warn("duplicate Cache-Control directive detected, using first value",
				"directive", directive, "ignored_value", value)
			continue
		}
		seen[directive] = true
		cc[directive] = value
	}

	detectConflictingDirectives(cc, log)
	return cc
}

// detectConflictingDirectives checks for conflicting Cache-Control directives
// and applies the most restrictive, per RFC 9111 Section 4.2.1.
func detectConflictingDirectives(cc cacheControl, log *slog.Logger) {
	if _, hasNoCache := cc[cacheControlNoCache]; hasNoCache {
		if maxAge, hasMaxAge := cc[cacheControlMaxAge]; hasMaxAge && maxAge != "" {
			log.Warn(logConflictingDirectives,
				"conflict", "no-cache + max-age",
				"resolution", "no-cache takes precedence (requires revalidation)")
		}
	}

	if _, hasPrivate := cc[cacheControlPrivate]; hasPrivate {
		if _, hasPublic := cc[cacheControlPublic]; hasPublic {
			log.Warn(logConflictingDirectives,
				"conflict", "public + private",
				"resolution", "private takes precedence (more restrictive)")
			delete(cc, cacheControlPublic)
		}
	}

	if _, hasNoStore := cc[cacheControlNoStore]; hasNoStore {
		if maxAge, hasMaxAge := cc[cacheControlMaxAge]; hasMaxAge && maxAge != "" {
			log.Warn(logConflictingDirectives,
				"conflict", "no-store + max-age",
				"resolution", "no-store takes precedence (prevents caching)")
		}
		if _, hasMustRevalidate := cc[cacheControlMustRevalidate]; hasMustRevalidate {
			log.Warn(logConflictingDirectives,
				"conflict", "no-store + must-revalidate",
				"resolution", "no-store takes precedence (prevents caching)")
		}
	}

	validateMaxAgeDirective(cc, cacheControlMaxAge, "max-age", log)
	validateMaxAgeDirective(cc, cacheControlSMaxAge, "s-maxage", log)
}

// validateMaxAgeDirective validates a max-age or s-maxage directive value.
func validateMaxAgeDirective(cc cacheControl, directiveKey, directiveName string, log *slog.Logger) {
	value, hasDirective := cc[directiveKey]
	if !hasDirective || value == "" {
		return
	}

	if strings.Contains(value, ".") {
		log.Warn("invalid Cache-Control value (float not allowed)",
			"directive", directiveName, "value", value, "resolution", "ignoring directive")
		delete(cc, directiveKey)
		return
	}

	duration, err := time.ParseDuration(value + "s")
	if err != nil {
		log.Warn("invalid Cache-Control value (non-numeric)",
			"directive", directiveName, "value", value, "resolution", "ignoring directive")
		delete(cc, directiveKey)
		return
	}
	if duration < 0 {
		log.Warn("invalid Cache-Control value (negative)",
			"directive", directiveName, "value", value, "resolution", "treating as 0")
		cc[directiveKey] = "0"
	}
}

// canStore determines whether a response may be stored, per RFC 9111
// Section 3 (storing responses), Section 5.2.2.3 (must-understand), and
// Section 3.5 (storing responses to authenticated requests).
func canStore(req *http.Request, reqCC, respCC cacheControl, isPublicCache bool, statusCode int) bool {
	log := GetLogger()

	if _, hasMustUnderstand := respCC[cacheControlMustUnderstand]; hasMustUnderstand {
		if !understoodStatusCodes[statusCode] {
			return false
		}
		// Understood status code: must-understand overrides no-store.
	} else {
		if _, ok := respCC[cacheControlNoStore]; ok {
			return false
		}
		if _, ok := reqCC[cacheControlNoStore]; ok {
			return false
		}
	}

	if isPublicCache && req.Header.Get("Authorization") != "" {
		_, hasPublic := respCC[cacheControlPublic]
		_, hasMustRevalidate := respCC[cacheControlMustRevalidate]
		_, hasSMaxAge := respCC[cacheControlSMaxAge]
		if !hasPublic && !hasMustRevalidate && !hasSMaxAge {
			log.Debug("refusing to cache Authorization request in shared cache",
				"url", req.URL.String(), "reason", "no public/must-revalidate/s-maxage directive")
			return false
		}
	}

	if _, hasPrivate := respCC[cacheControlPrivate]; hasPrivate && isPublicCache {
		return false
	}

	return true
}
