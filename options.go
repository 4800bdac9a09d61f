// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import (
	"io"
	"net/http"
	"time"
)

// Options configures a single Fetch call. Any zero-valued field falls back
// to the Client's bound defaults (see Client.Defaults); Store == nil
// disables caching entirely for that call.
type Options struct {
	// Store is consulted for a cached entry. Nil disables caching.
	Store Store
	// Mode selects the cache-mode state machine behavior. Zero value
	// ModeDefault is promoted automatically when Store != nil.
	Mode CacheMode
	// Integrity, if set, constrains acceptable response bodies to a known digest.
	Integrity *Integrity
	// Retry configures the retry engine. Nil uses the Client's default;
	// a non-nil value with MaxRetries == 0 disables retry for this call.
	Retry *RetryConfig
	// Timeout bounds each individual attempt (not the whole Fetch call).
	Timeout time.Duration
	// Proxy overrides the agent pool's proxy resolution for this call.
	Proxy string
	// Agent selects the connection pooling strategy: nil for the shared
	// pool, NoAgent for a one-shot unpooled transport, or an explicit
	// *http.Transport to bypass the pool entirely.
	Agent any
	// CA, Cert, Key are PEM-encoded TLS material forwarded to the agent
	// pool when it must build a non-default *tls.Config.
	CA, Cert, Key []byte
	// MaxSockets bounds MaxIdleConnsPerHost on a pooled transport.
	MaxSockets int
	// CacheKeyHeaders names additional request headers meant for the cache
	// key. It is carried through mergeOptions only: Store.Match/Put/Delete
	// receive no Options, and the bundled stores key on ComputeKey, so these
	// headers do not change any key unless a Store applies
	// ComputeKeyWithHeaders itself.
	CacheKeyHeaders []string

	// Method overrides the HTTP method; defaults to GET.
	Method string
	// Header is merged onto the outgoing request.
	Header http.Header
	// Body supplies the outgoing request body, if any.
	Body io.Reader
	// GetBody makes Body rewindable for retries on non-GET/HEAD methods;
	// required for the retry engine to reissue a request with a body.
	GetBody func() (io.ReadCloser, error)
}

// mergeOptions overlays non-zero fields of override onto a copy of base,
// field-by-field, per Client.Defaults' merge contract.
func mergeOptions(base, override Options) Options {
	out := base
	if override.Store != nil {
		out.Store = override.Store
	}
	if override.Mode != ModeDefault {
		out.Mode = override.Mode
	}
	if override.Integrity != nil {
		out.Integrity = override.Integrity
	}
	if override.Retry != nil {
		out.Retry = override.Retry
	}
	if override.Timeout != 0 {
		out.Timeout = override.Timeout
	}
	if override.Proxy != "" {
		out.Proxy = override.Proxy
	}
	if override.Agent != nil {
		out.Agent = override.Agent
	}
	if len(override.CA) > 0 {
		out.CA = override.CA
	}
	if len(override.Cert) > 0 {
		out.Cert = override.Cert
	}
	if len(override.Key) > 0 {
		out.Key = override.Key
	}
	if override.MaxSockets != 0 {
		out.MaxSockets = override.MaxSockets
	}
	if len(override.CacheKeyHeaders) > 0 {
		out.CacheKeyHeaders = override.CacheKeyHeaders
	}
	if override.Method != "" {
		out.Method = override.Method
	}
	if override.Header != nil {
		out.Header = override.Header
	}
	if override.Body != nil {
		out.Body = override.Body
	}
	if override.GetBody != nil {
		out.GetBody = override.GetBody
	}
	return out
}

// ClientOption configures a Client at construction time via NewClient.
type ClientOption func(*Client)

// WithCache sets the Client's default Store.
func WithCache(store Store) ClientOption {
	return func(c *Client) { c.base.Store = store }
}

// WithTransport sets the underlying http.RoundTripper used to make
// requests. If nil (the default), the agent pool builds transports
// per destination.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) { c.transport = rt }
}

// WithAgentPoolSize overrides the LRU capacity of the connection pool.
// Default 50.
func WithAgentPoolSize(size int) ClientOption {
	return func(c *Client) { c.pool = newAgentPool(size) }
}

// WithResilience layers a failsafe-go retry/circuit-breaker policy on top
// of the built-in retry engine.
func WithResilience(cfg ResilienceConfig) ClientOption {
	return func(c *Client) { c.resilience = &cfg }
}

// WithPublicCache enables shared/public cache semantics (s-maxage takes
// priority over max-age, private responses are never stored). Default
// false (private cache).
func WithPublicCache(isPublic bool) ClientOption {
	return func(c *Client) { c.isPublicCache = isPublic }
}

// WithVarySeparation sets the Client's Vary-separation flag. Default false.
// No code path reads the flag: each key holds one entry, and Vary is
// handled only by the Store's Match comparison, whatever its value.
func WithVarySeparation(enable bool) ClientOption {
	return func(c *Client) { c.enableVarySeparation = enable }
}

// WithCacheKeyHeaders sets the Client's default extra cache-key headers.
func WithCacheKeyHeaders(headers ...string) ClientOption {
	return func(c *Client) { c.base.CacheKeyHeaders = headers }
}

// WithDisableWarningHeader disables the deprecated RFC 7234 Warning
// header on served responses. Default false.
func WithDisableWarningHeader(disable bool) ClientOption {
	return func(c *Client) { c.disableWarningHeader = disable }
}

// WithAsyncRevalidateTimeout bounds the background request issued for
// stale-while-revalidate. Zero (the default) applies no timeout.
func WithAsyncRevalidateTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.asyncRevalidateTimeout = timeout }
}

// WithMarkCachedResponses controls whether cache-hit responses get the
// X-From-Cache/X-Local-Cache* header set. Default true.
func WithMarkCachedResponses(mark bool) ClientOption {
	return func(c *Client) { c.markCachedResponses = mark }
}

// WithShouldCache installs a hook that can approve caching of responses
// whose status is not 200 OK; without it only 200 responses are stored.
func WithShouldCache(fn func(*http.Response) bool) ClientOption {
	return func(c *Client) { c.shouldCache = fn }
}

// WithDefaultRetry sets the Client's default retry configuration.
func WithDefaultRetry(cfg RetryConfig) ClientOption {
	return func(c *Client) { c.base.Retry = &cfg }
}
