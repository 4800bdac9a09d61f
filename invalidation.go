// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import (
	"context"
	"net/http"
	"net/url"
)

// invalidateCache implements RFC 9111 §4.4: on a non-error response to an
// unsafe method, invalidate the effective Request-URI plus any same-origin
// URI named in the Location or Content-Location response headers. store is
// the Store in effect for the call (Options.Store, already resolved by the
// caller), not a fixed Client field, since a per-call Options can override
// the Client's default Store.
func (c *Client) invalidateCache(ctx context.Context, store Store, req *http.Request, resp *http.Response) {
	if store == nil {
		return
	}
	log := GetLogger()

	if resp.StatusCode >= 400 {
		log.Debug("skipping cache invalidation for error response", "status", resp.StatusCode, "url", req.URL.String())
		return
	}

	c.invalidateURI(ctx, store, req.URL, "request-uri")

	if location := resp.Header.Get(headerLocation); location != "" {
		c.invalidateHeaderURI(ctx, store, req.URL, location, "Location")
	}
	if contentLocation := resp.Header.Get(headerContentLocation); contentLocation != "" {
		c.invalidateHeaderURI(ctx, store, req.URL, contentLocation, "Content-Location")
	}
}

// invalidateHeaderURI resolves headerValue against requestURL and, if the
// result is same-origin, invalidates it.
func (c *Client) invalidateHeaderURI(ctx context.Context, store Store, requestURL *url.URL, headerValue, headerName string) {
	log := GetLogger()
	targetURL, err := requestURL.Parse(headerValue)
	if err != nil {
		log.Debug("failed to parse invalidation target URI", "header", headerName, "value", headerValue, "error", err)
		return
	}

	if !isSameOrigin(requestURL, targetURL) {
		log.Debug("skipping cross-origin invalidation",
			"header", headerName, "request-origin", getOrigin(requestURL), "target-origin", getOrigin(targetURL))
		return
	}

	c.invalidateURI(ctx, store, targetURL, headerName)
}

// invalidateURI removes any stored entry for targetURL. cacheKey already
// shares one key between GET and HEAD, so a single Delete covers both.
func (c *Client) invalidateURI(ctx context.Context, store Store, targetURL *url.URL, source string) {
	req := &http.Request{Method: http.MethodGet, URL: targetURL, Header: http.Header{}}
	existed, err := store.Delete(ctx, req)
	log := GetLogger()
	if err != nil {
		log.Warn("failed to invalidate cache entry", "url", targetURL.String(), "source", source, "error", err)
		return
	}
	if existed {
		log.Debug("invalidated cache entry", "url", targetURL.String(), "source", source)
	}
}

// isSameOrigin reports whether two URLs share scheme and host (RFC 9111's
// definition of origin for invalidation purposes).
func isSameOrigin(url1, url2 *url.URL) bool {
	return url1.Scheme == url2.Scheme && url1.Host == url2.Host
}

// getOrigin renders a URL's origin as "scheme://host", for logging.
func getOrigin(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}
