package httpcache

import "errors"

// Sentinel errors returned by Fetch and the Store implementations. Callers
// should use errors.Is rather than comparing values directly, since they may
// be wrapped with additional context.
var (
	// ErrNotCached is returned when Options.Mode is ModeOnlyIfCached and no
	// usable entry exists for the request.
	ErrNotCached = errors.New("httpcache: ENOTCACHED: no cached entry for only-if-cached request")

	// ErrBadChecksum is returned when a response body's computed digest does
	// not match Options.Integrity.
	ErrBadChecksum = errors.New("httpcache: EBADCHECKSUM: response integrity check failed")

	// ErrRequestTimeout is returned when a single attempt exceeds Options.Timeout
	// and no further retries remain.
	ErrRequestTimeout = errors.New("httpcache: request timeout")

	// ErrInvalidCacheMode reports a Mode that does not name one of the six
	// defined cache modes. No function in this package returns it; Fetch
	// treats an unknown Mode like ModeDefault.
	ErrInvalidCacheMode = errors.New("httpcache: invalid cache mode")

	// ErrBodyNotRewindable is returned by the retry engine when a request body
	// needs to be replayed and req.GetBody fails to produce a fresh copy.
	ErrBodyNotRewindable = errors.New("httpcache: request body is not rewindable")

	// ErrKeyNotComputable reports a request that cannot be turned into a
	// cache key (e.g. a nil URL). No function in this package returns it;
	// cacheKey returns an empty key for such a request.
	ErrKeyNotComputable = errors.New("httpcache: cannot compute cache key for request")
)
