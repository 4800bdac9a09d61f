package httpcache

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultAgentPoolSize   = 50
	defaultMaxSockets      = 15
	defaultDialTimeout     = 30 * time.Second
	defaultTLSTimeout      = 10 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// NoAgent, when set as Options.Agent, disables connection pooling for that
// single request: a fresh, unmemoized *http.Transport is used and the
// connection is closed after use.
var NoAgent = &noAgentMarker{}

type noAgentMarker struct{}

// agentKey identifies the dimensions a pooled *http.Transport is keyed on:
// two requests sharing a key are safe to share one underlying connection
// pool and TLS configuration.
type agentKey struct {
	isHTTPS bool
	proxy   string
	caHash  string
	certHash string
	keyHash  string
}

// agentPool memoizes *http.Transport instances per destination so that
// repeated requests to the same scheme/proxy/TLS combination reuse
// connections instead of paying a fresh dial+handshake every time.
type agentPool struct {
	mu         sync.Mutex
	cache      *lru.Cache[agentKey, *http.Transport]
	maxSockets int
}

// newAgentPool creates a pool with the given LRU capacity.
func newAgentPool(size int) *agentPool {
	if size <= 0 {
		size = defaultAgentPoolSize
	}
	c, _ := lru.New[agentKey, *http.Transport](size)
	return &agentPool{cache: c, maxSockets: defaultMaxSockets}
}

func hashBytes(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// get returns a (possibly shared) *http.Transport for req and opts,
// honoring Options.Agent overrides, per the precedence documented on
// Options.Agent.
func (p *agentPool) get(req *http.Request, opts *Options) http.RoundTripper {
	if opts != nil {
		switch agent := opts.Agent.(type) {
		case *http.Transport:
			return agent
		case *noAgentMarker:
			t := p.buildTransport(opts)
			t.DisableKeepAlives = true
			return t
		}
	}

	isHTTPS := req.URL.Scheme == "https"
	proxy := resolveProxy(req, opts)

	var ca, cert, key []byte
	maxSockets := defaultMaxSockets
	if opts != nil {
		ca, cert, key = opts.CA, opts.Cert, opts.Key
		if opts.MaxSockets > 0 {
			maxSockets = opts.MaxSockets
		}
	}

	key2 := agentKey{
		isHTTPS:  isHTTPS,
		proxy:    proxy,
		caHash:   hashBytes(ca),
		certHash: hashBytes(cert),
		keyHash:  hashBytes(key),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.cache.Get(key2); ok {
		return t
	}

	localOpts := &Options{CA: ca, Cert: cert, Key: key, MaxSockets: maxSockets, Proxy: proxy}
	t := p.buildTransport(localOpts)
	p.cache.Add(key2, t)
	return t
}

func (p *agentPool) buildTransport(opts *Options) *http.Transport {
	t := &http.Transport{
		MaxIdleConnsPerHost: defaultMaxSockets,
		IdleConnTimeout:     defaultIdleConnTimeout,
		TLSHandshakeTimeout: defaultTLSTimeout,
		DialContext: (&net.Dialer{
			Timeout: defaultDialTimeout,
		}).DialContext,
	}
	if opts != nil && opts.MaxSockets > 0 {
		t.MaxIdleConnsPerHost = opts.MaxSockets
	}
	if opts != nil && opts.Proxy != "" {
		if proxyURL, err := url.Parse(opts.Proxy); err == nil {
			t.Proxy = http.ProxyURL(proxyURL)
		}
	}
	if opts != nil && (len(opts.CA) > 0 || len(opts.Cert) > 0 || len(opts.Key) > 0) {
		if tlsConfig, err := buildTLSConfig(opts.CA, opts.Cert, opts.Key); err == nil {
			t.TLSClientConfig = tlsConfig
		} else {
			GetLogger().Warn("agentpool: failed to build TLS config, using defaults", "error", err)
		}
	}
	return t
}

// resolveProxy picks the proxy for req: explicit Options.Proxy, then
// HTTPS_PROXY/https_proxy for any scheme, then HTTP_PROXY/http_proxy and
// PROXY/proxy for non-https requests only.
func resolveProxy(req *http.Request, opts *Options) string {
	if opts != nil && opts.Proxy != "" {
		return opts.Proxy
	}
	if v := lookupEnvAnyCase("HTTPS_PROXY"); v != "" {
		return v
	}
	if req.URL.Scheme != "https" {
		for _, name := range []string{"HTTP_PROXY", "PROXY"} {
			if v := lookupEnvAnyCase(name); v != "" {
				return v
			}
		}
	}
	return ""
}

// buildTLSConfig assembles a *tls.Config from PEM-encoded CA/cert/key
// material, for requests that need a non-default TLS identity (mTLS, a
// private CA).
func buildTLSConfig(ca, cert, key []byte) (*tls.Config, error) {
	cfg := &tls.Config{}

	if len(ca) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(ca) {
			return nil, fmt.Errorf("no valid certificates found in CA bundle")
		}
		cfg.RootCAs = pool
	}

	if len(cert) > 0 && len(key) > 0 {
		pair, err := tls.X509KeyPair(cert, key)
		if err != nil {
			return nil, fmt.Errorf("parse client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{pair}
	}

	return cfg, nil
}

func lookupEnvAnyCase(name string) string {
	for _, candidate := range []string{name, strings.ToUpper(name), strings.ToLower(name)} {
		if v := os.Getenv(candidate); v != "" {
			return v
		}
	}
	return ""
}
