// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client drives the cache-mode state machine end-to-end: it resolves a
// Store lookup, decides between serving, revalidating, or fetching fresh,
// and writes the result back to the Store. A zero Client is not usable;
// construct one with NewClient.
type Client struct {
	base    Options
	baseURL string

	transport http.RoundTripper
	pool      *agentPool

	resilience *ResilienceConfig

	isPublicCache          bool
	enableVarySeparation   bool
	disableWarningHeader   bool
	markCachedResponses    bool
	asyncRevalidateTimeout time.Duration
	shouldCache            func(*http.Response) bool
}

// NewClient builds a Client from functional options, defaulting to a
// private cache with a 50-entry connection pool and no Store (caching
// disabled until WithCache or a per-call Options.Store is supplied).
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		base:                Options{Mode: ModeDefault},
		pool:                newAgentPool(defaultAgentPoolSize),
		markCachedResponses: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Defaults returns a new Client that resolves relative Fetch URLs against
// baseURL and merges base onto the receiver's own bound Options,
// field-by-field (see mergeOptions). Calling Defaults again on the result
// composes rather than clobbers: fields left zero in the new base keep
// whatever the receiver already had bound.
func (c *Client) Defaults(baseURL string, base *Options) *Client {
	clone := *c
	if baseURL != "" {
		clone.baseURL = baseURL
	}
	if base != nil {
		clone.base = mergeOptions(c.base, *base)
	}
	return &clone
}

// Fetch issues a single cache-aware request. url is resolved against any
// base URL bound via Defaults when relative or empty. opts overrides the
// Client's bound defaults field-by-field; a nil opts uses the defaults as-is.
func (c *Client) Fetch(ctx context.Context, target string, opts *Options) (*http.Response, error) {
	var override Options
	if opts != nil {
		override = *opts
	}
	merged := mergeOptions(c.base, override)

	resolved, err := c.resolveURL(target)
	if err != nil {
		return nil, fmt.Errorf("httpcache: resolve url %q: %w", target, err)
	}

	method := merged.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, resolved, merged.Body)
	if err != nil {
		return nil, fmt.Errorf("httpcache: build request: %w", err)
	}
	for name, values := range merged.Header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if merged.GetBody != nil {
		req.GetBody = merged.GetBody
	}

	return c.do(req, merged)
}

// resolveURL resolves target against the Client's bound base URL. An empty
// target requires a bound base URL; an absolute target is used as-is.
func (c *Client) resolveURL(target string) (string, error) {
	if target == "" {
		if c.baseURL == "" {
			return "", errors.New("no URL given and no base URL bound via Defaults")
		}
		return c.baseURL, nil
	}
	if c.baseURL == "" {
		return target, nil
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		return target, nil
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(u).String(), nil
}

// RoundTrip implements http.RoundTripper, driving req through the same
// cache-mode state machine as Fetch using the Client's bound defaults.
// Per-request overrides are not available through this entry point; use
// Fetch when a call needs Options different from the Client's defaults.
func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	return c.do(req, c.base)
}

// do implements the cache-mode state machine (mode.go's decide) end to end.
func (c *Client) do(req *http.Request, opts Options) (*http.Response, error) {
	log := GetLogger()

	mode := opts.Mode
	if mode == ModeDefault && hasConditionalHeaders(req) {
		mode = ModeNoStore
	}

	store := opts.Store
	safeMethod := req.Method == http.MethodGet || req.Method == http.MethodHead
	lookupEligible := store != nil && mode != ModeNoStore && safeMethod && req.Header.Get("Range") == ""

	var entry *Entry
	var hasEntry bool
	if lookupEligible {
		var matchErr error
		entry, hasEntry, matchErr = store.Match(req.Context(), req)
		if matchErr != nil {
			log.Warn("httpcache: store match failed", "url", req.URL.String(), "error", matchErr)
			hasEntry = false
		}
	}

	stale, swr, heuristic := false, false, false
	if hasEntry {
		var fr freshnessState
		fr, heuristic = getFreshness(entry.Metadata.ResponseHeader, req.Header, c.isPublicCache)
		switch fr {
		case fresh:
		case staleWhileRevalidate:
			swr = true
		default:
			stale = true
		}
	}

	switch decide(mode, hasEntry, stale) {
	case actionError:
		return nil, ErrNotCached

	case actionServeCached:
		resp := c.respondFromEntry(entry, 0, opts.Integrity)
		if heuristic && !c.disableWarningHeader {
			addHeuristicExpirationWarning(resp)
		}
		if swr {
			c.triggerAsyncRevalidate(req, opts, store, entry)
		}
		return resp, nil

	case actionRevalidate:
		return c.revalidate(req, opts, store, entry)

	default: // actionFetch
		resp, err := c.fetchFresh(req, opts)
		if err != nil {
			if hasEntry && canStaleOnError(entry.Metadata.ResponseHeader, req.Header) {
				log.Warn("httpcache: origin request failed, serving stale", "url", req.URL.String(), "error", err)
				staleResp := c.respondFromEntry(entry, 0, opts.Integrity)
				if !c.disableWarningHeader {
					addRevalidationFailedWarning(staleResp)
				}
				staleResp.Header.Set(XStale, "1")
				return staleResp, nil
			}
			return nil, err
		}
		return c.finishFresh(req, opts, store, resp, lookupEligible)
	}
}

// revalidate issues a conditional request built from entry's validators. A
// 304 merges into the stored metadata and is persisted back to store; a
// transport error or 5xx serves the stale entry when canStaleOnError allows;
// any other status is treated as a normal fresh response via finishFresh.
func (c *Client) revalidate(req *http.Request, opts Options, store Store, entry *Entry) (*http.Response, error) {
	log := GetLogger()
	condReq := addValidatorsToRequest(req, entry.Metadata)

	resp, err := c.fetchFresh(condReq, opts)
	if err != nil {
		if canStaleOnError(entry.Metadata.ResponseHeader, req.Header) {
			log.Warn("httpcache: revalidation failed, serving stale", "url", req.URL.String(), "error", err)
			staleResp := c.respondFromEntry(entry, 0, opts.Integrity)
			if !c.disableWarningHeader {
				addRevalidationFailedWarning(staleResp)
			}
			staleResp.Header.Set(XStale, "1")
			return staleResp, nil
		}
		return nil, err
	}

	if resp.StatusCode >= 500 && canStaleOnError(entry.Metadata.ResponseHeader, req.Header) {
		log.Warn("httpcache: revalidation returned a server error, serving stale", "url", req.URL.String(), "status", resp.StatusCode)
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		resp.Body.Close()
		staleResp := c.respondFromEntry(entry, 0, opts.Integrity)
		if !c.disableWarningHeader {
			addRevalidationFailedWarning(staleResp)
		}
		staleResp.Header.Set(XStale, "1")
		return staleResp, nil
	}

	if !isNotModified(resp) {
		return c.finishFresh(req, opts, store, resp, true)
	}

	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()

	merged := mergeNotModified(entry.Metadata, resp)
	updated := &Entry{Key: entry.Key, Integrity: entry.Integrity, Metadata: merged, Size: entry.Size, Open: entry.Open}

	if store != nil {
		if body, openErr := updated.Open(req.Context()); openErr == nil {
			reconstructed := &http.Response{
				StatusCode: merged.StatusCode,
				Header:     merged.ResponseHeader.Clone(),
				Body:       body,
				Request:    req,
			}
			if stored, putErr := store.Put(req.Context(), req, reconstructed); putErr != nil {
				log.Warn("httpcache: failed to persist revalidated metadata", "url", req.URL.String(), "error", putErr)
			} else if stored.Body != nil {
				stored.Body.Close()
			}
		} else {
			log.Warn("httpcache: failed to reopen body for revalidated metadata", "url", req.URL.String(), "error", openErr)
		}
	}

	// A successful 304 still surfaces to this caller as a revalidated-from-cache
	// response: status 304, the cached body, and Warning: 110.
	served := c.respondFromEntry(updated, http.StatusNotModified, opts.Integrity)
	if !c.disableWarningHeader {
		addStaleWarning(served)
	}
	served.Header.Set(XRevalidated, "true")
	return served, nil
}

// finishFresh applies integrity verification, storage, and invalidation to
// a just-fetched response before returning it to the caller.
func (c *Client) finishFresh(req *http.Request, opts Options, store Store, resp *http.Response, storeEligible bool) (*http.Response, error) {
	log := GetLogger()

	if opts.Integrity != nil && resp.Body != nil {
		resp.Body = wrapIntegrity(resp.Body, opts.Integrity)
	}

	if storeEligible && resp.Body != nil {
		reqCC := parseCacheControl(req.Header)
		respCC := parseCacheControl(resp.Header)
		if canStore(req, reqCC, respCC, c.isPublicCache, resp.StatusCode) && (resp.StatusCode == http.StatusOK || (c.shouldCache != nil && c.shouldCache(resp))) {
			if stored, err := store.Put(req.Context(), req, resp); err != nil {
				log.Warn("httpcache: store put failed, serving unstored response", "url", req.URL.String(), "error", err)
			} else {
				resp = stored
			}
		}
	}

	if unsafeMethod(req.Method) {
		c.invalidateCache(req.Context(), store, req, resp)
	}

	return resp, nil
}

// fetchFresh sends req through resilience policies, the retry engine, and
// the agent pool, in that order (resilience outermost, retry innermost).
func (c *Client) fetchFresh(req *http.Request, opts Options) (*http.Response, error) {
	rt := c.roundTripperFor(req, opts)
	return c.executeWithResilience(func() (*http.Response, error) {
		return doWithRetry(req.Context(), req, opts.Retry, func(attempt *http.Request) (*http.Response, error) {
			return c.sendOnce(rt, attempt, opts.Timeout)
		})
	})
}

// roundTripperFor picks the transport for req: an explicit Client-wide
// WithTransport override takes precedence over the agent pool.
func (c *Client) roundTripperFor(req *http.Request, opts Options) http.RoundTripper {
	if c.transport != nil {
		return c.transport
	}
	return c.pool.get(req, &opts)
}

// sendOnce performs a single attempt, bounding it by timeout when set.
func (c *Client) sendOnce(rt http.RoundTripper, req *http.Request, timeout time.Duration) (*http.Response, error) {
	if timeout <= 0 {
		return rt.RoundTrip(req)
	}

	ctx, cancel := context.WithTimeout(req.Context(), timeout)
	attempt := req.Clone(ctx)

	resp, err := rt.RoundTrip(attempt)
	if err != nil {
		cancel()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrRequestTimeout
		}
		return nil, err
	}
	resp.Body = &cancelOnCloseBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnCloseBody releases a per-attempt timeout context once the
// response body is closed, rather than leaking it until the deadline fires.
type cancelOnCloseBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnCloseBody) Close() error {
	defer b.cancel()
	return b.ReadCloser.Close()
}

// triggerAsyncRevalidate issues a background conditional request for a
// stale-while-revalidate hit, so the caller already has its response in
// hand while the Store gets refreshed for next time.
func (c *Client) triggerAsyncRevalidate(req *http.Request, opts Options, store Store, entry *Entry) {
	if store == nil {
		return
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Cache-Control", "no-cache")

	go func() {
		ctx := context.Background()
		var cancel context.CancelFunc
		if c.asyncRevalidateTimeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, c.asyncRevalidateTimeout)
			defer cancel()
		}
		asyncReq := clone.Clone(ctx)

		resp, err := c.revalidate(asyncReq, opts, store, entry)
		if err != nil {
			GetLogger().Warn("httpcache: async revalidate failed", "url", req.URL.String(), "error", err)
			return
		}
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		resp.Body.Close()
	}()
}

// respondFromEntry builds a servable *http.Response from a stored Entry,
// recomputing Age, stripping stale 1xx Warning values (RFC 9111 §5.5), and
// stamping the X-From-Cache/X-Local-Cache* headers when enabled. statusOverride,
// if non-zero, replaces the entry's stored status (used for the 304-merge
// response). Callers are responsible for adding any Warning header the
// situation calls for (addStaleWarning/addRevalidationFailedWarning/
// addHeuristicExpirationWarning); integrity, if non-nil, gates the served
// bytes against Options.Integrity the same way a fresh fetch is gated.
func (c *Client) respondFromEntry(entry *Entry, statusOverride int, integrity *Integrity) *http.Response {
	header := entry.Metadata.ResponseHeader.Clone()
	stripWarning1xxHeaders(header)

	if age, err := calculateAge(header); err == nil {
		header.Set(headerAge, formatAge(age))
	}

	if c.markCachedResponses {
		header.Set(XFromCache, "1")
		header.Set(XLocalCache, entry.Key)
		header.Set(XLocalCacheKey, url.QueryEscape(entry.Key))
		if entry.Integrity != "" {
			header.Set(XLocalCacheHash, entry.Integrity)
		}
		if !entry.Metadata.WrittenAt.IsZero() {
			header.Set(XLocalCacheTime, entry.Metadata.WrittenAt.Format(time.RFC3339))
		}
	}

	body, err := entry.Open(context.Background())
	if err != nil {
		GetLogger().Warn("httpcache: failed to open cached body, serving empty", "key", entry.Key, "error", err)
		body = io.NopCloser(bytes.NewReader(nil))
	}
	if integrity != nil {
		body = wrapIntegrity(body, integrity)
	}

	status := entry.Metadata.StatusCode
	if statusOverride != 0 {
		status = statusOverride
	}

	return &http.Response{
		Status:        http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          body,
		ContentLength: entry.Size,
	}
}

// wrapIntegrity tees body through a running hash of want's algorithm,
// converting an EOF that does not match any of want's accepted digests
// into ErrBadChecksum instead of silently delivering an unverified body.
func wrapIntegrity(body io.ReadCloser, want *Integrity) io.ReadCloser {
	hasher, err := newHasher(want.Algorithm)
	if err != nil {
		GetLogger().Warn("httpcache: unsupported integrity algorithm, skipping verification", "algorithm", want.Algorithm, "error", err)
		return body
	}
	algo := want.Algorithm
	if algo == "" {
		algo = "sha256"
	}

	t := newTee(body, io.Discard, hasher, nil)
	t.verify = func(sum []byte) error {
		if !verifyIntegrity(want, formatDigest(algo, sum)) {
			return ErrBadChecksum
		}
		return nil
	}
	return t
}
