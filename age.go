// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrNoDateHeader indicates that the HTTP headers contained no Date header.
var ErrNoDateHeader = errors.New("no Date header")

// Date parses and returns the value of the Date header.
func Date(respHeaders http.Header) (date time.Time, err error) {
	dateHeader := respHeaders.Get("date")
	if dateHeader == "" {
		err = ErrNoDateHeader
		return
	}
	return time.Parse(time.RFC1123, dateHeader)
}

// parseAgeHeader parses the Age header per RFC 9111 Section 5.1: if multiple
// Age headers exist the first value is used and the rest discarded; an
// invalid value (negative, non-numeric) is ignored entirely.
func parseAgeHeader(headers http.Header) (age time.Duration, valid bool) {
	ageValues := headers.Values(headerAge)
	if len(ageValues) == 0 {
		return 0, false
	}

	log := GetLogger()
	ageStr := strings.TrimSpace(ageValues[0])
	if len(ageValues) > 1 {
		log.Warn("multiple Age headers detected, using first value",
			"count", len(ageValues), "first", ageStr, "all", ageValues)
	}

	ageInt, err := strconv.ParseInt(ageStr, 10, 64)
	if err != nil {
		log.Warn("invalid Age header value, ignoring", "value", ageStr, "error", err)
		return 0, false
	}
	if ageInt < 0 {
		log.Warn("negative Age header value, ignoring", "value", ageInt)
		return 0, false
	}

	return time.Duration(ageInt) * time.Second, true
}

// calculateAge implements the Age calculation algorithm from RFC 9111 Section 4.2.3:
//
//	apparent_age = max(0, response_time - date_value)
//	response_delay = response_time - request_time
//	corrected_age_value = age_value + response_delay
//	corrected_initial_age = max(apparent_age, corrected_age_value)
//	resident_time = now - response_time
//	current_age = corrected_initial_age + resident_time
//
// request_time/response_time are recovered from the X-Request-Time and
// X-Response-Time headers when a stored entry carries them (falling back to
// X-Cached-Time). Nothing in this package writes those headers; without
// them the age is the time since Date plus any Age header value.
func calculateAge(respHeaders http.Header) (age time.Duration, err error) {
	dateValue, err := Date(respHeaders)
	if err != nil {
		return 0, err
	}

	log := GetLogger()
	responseTimeStr := respHeaders.Get(XResponseTime)
	if responseTimeStr == "" {
		responseTimeStr = respHeaders.Get(XCachedTime)
	}
	if responseTimeStr == "" {
		age = clock.since(dateValue)
		if ageValue, valid := parseAgeHeader(respHeaders); valid {
			age += ageValue
		}
		return age, nil
	}

	responseTime, parseErr := time.Parse(time.RFC3339, responseTimeStr)
	if parseErr != nil {
		log.Warn("failed to parse response time header", "header", responseTimeStr, "error", parseErr)
		age = clock.since(dateValue)
		if ageValue, valid := parseAgeHeader(respHeaders); valid {
			age += ageValue
		}
		return age, nil
	}

	apparentAge := time.Duration(0)
	if responseTime.After(dateValue) {
		apparentAge = responseTime.Sub(dateValue)
	}

	ageValue, _ := parseAgeHeader(respHeaders)

	requestTimeStr := respHeaders.Get(XRequestTime)
	responseDelay := time.Duration(0)
	if requestTimeStr != "" {
		requestTime, parseErr := time.Parse(time.RFC3339, requestTimeStr)
		if parseErr == nil && responseTime.After(requestTime) {
			responseDelay = responseTime.Sub(requestTime)
		} else if parseErr != nil {
			log.Warn("failed to parse request time header", "header", requestTimeStr, "error", parseErr)
		}
	}

	correctedAgeValue := ageValue + responseDelay
	correctedInitialAge := apparentAge
	if correctedAgeValue > correctedInitialAge {
		correctedInitialAge = correctedAgeValue
	}

	residentTime := clock.since(responseTime)
	return correctedInitialAge + residentTime, nil
}

// formatAge formats a duration as an Age header value (whole seconds).
func formatAge(age time.Duration) string {
	seconds := int64(age.Seconds())
	if seconds < 0 {
		seconds = 0
	}
	return strconv.FormatInt(seconds, 10)
}
