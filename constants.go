package httpcache

// Freshness states returned by getFreshness.
const (
	stale freshnessState = iota
	fresh
	transparent
	staleWhileRevalidate
)

// freshnessState is the result of evaluating a stored entry's freshness.
type freshnessState int

const (
	// XFromCache is set on responses served out of the cache.
	XFromCache = "X-From-Cache"
	// XRevalidated is set on responses that were revalidated against the origin.
	XRevalidated = "X-Revalidated"
	// XStale is set on responses served stale (stale-while-revalidate or stale-on-error).
	XStale = "X-Stale"
	// XFreshness names a header for the freshness state a response was served
	// with; no code path in this package sets it.
	XFreshness = "X-Cache-Freshness"
	// XCachedTime records when a response was written to the store.
	XCachedTime = "X-Cached-Time"
	// XRequestTime records when the request that produced a stored response began.
	XRequestTime = "X-Request-Time"
	// XResponseTime records when the response headers that produced a stored entry arrived.
	XResponseTime = "X-Response-Time"
	// XLocalCache identifies the backing store.
	XLocalCache = "X-Local-Cache"
	// XLocalCacheKey carries the URL-encoded cache key.
	XLocalCacheKey = "X-Local-Cache-Key"
	// XLocalCacheHash carries the stored integrity digest.
	XLocalCacheHash = "X-Local-Cache-Hash"
	// XLocalCacheTime carries the RFC3339 write timestamp.
	XLocalCacheTime = "X-Local-Cache-Time"
	// XFetchAttempts reports the 1-based attempt count of the retry engine.
	XFetchAttempts = "X-Fetch-Attempts"

	headerLastModified    = "Last-Modified"
	headerETag            = "ETag"
	headerAge             = "Age"
	headerWarning         = "Warning"
	headerLocation        = "Location"
	headerContentLocation = "Content-Location"
	headerVary            = "Vary"
	headerPragma          = "Pragma"
	pragmaNoCache         = "no-cache"

	cacheControlOnlyIfCached         = "only-if-cached"
	cacheControlNoCache              = "no-cache"
	cacheControlStaleWhileRevalidate = "stale-while-revalidate"
	cacheControlStaleIfError         = "stale-if-error"
	cacheControlMaxAge               = "max-age"
	cacheControlSMaxAge              = "s-maxage"
	cacheControlMinFresh             = "min-fresh"
	cacheControlMaxStale             = "max-stale"
	cacheControlNoStore              = "no-store"
	cacheControlPrivate              = "private"
	cacheControlPublic               = "public"
	cacheControlMustUnderstand       = "must-understand"
	cacheControlMustRevalidate       = "must-revalidate"
	cacheControlImmutable            = "immutable"

	logConflictingDirectives = "conflicting Cache-Control directives detected"

	// RFC 9111 Section 5.5: Warning header codes.
	warningResponseIsStale     = `110 - "Response is Stale"`
	warningRevalidationFailed  = `111 - "Revalidation Failed"`
	warningHeuristicExpiration = `113 - "Heuristic Expiration"`

	freshnessStringFresh                = "fresh"
	freshnessStringStale                = "stale"
	freshnessStringStaleWhileRevalidate = "stale-while-revalidate"
	freshnessStringTransparent          = "transparent"
	freshnessStringUnknown              = "unknown"
)

// understoodStatusCodes lists the status codes this cache comprehends for
// the purposes of the must-understand directive (RFC 9111 §5.2.2.3): when
// must-understand is present, a response may only be stored if its status
// code is in this set, overriding no-store.
var understoodStatusCodes = map[int]bool{
	200: true,
	203: true,
	204: true,
	206: true,
	300: true,
	301: true,
	404: true,
	405: true,
	410: true,
	414: true,
	501: true,
}
