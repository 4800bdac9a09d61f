package httpcache

import (
	"net/http"
	"os"
	"testing"
)

func TestResolveProxy_ExplicitOptionWins(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)
	got := resolveProxy(req, &Options{Proxy: "http://explicit-proxy"})
	if got != "http://explicit-proxy" {
		t.Fatalf("resolveProxy = %q, want explicit override", got)
	}
}

func TestResolveProxy_EnvFallbackByScheme(t *testing.T) {
	t.Setenv("HTTPS_PROXY", "http://https-proxy")
	t.Setenv("HTTP_PROXY", "http://http-proxy")

	httpsReq, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)
	if got := resolveProxy(httpsReq, nil); got != "http://https-proxy" {
		t.Fatalf("https request resolveProxy = %q, want HTTPS_PROXY value", got)
	}

	httpReq, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	if got := resolveProxy(httpReq, nil); got != "http://https-proxy" {
		t.Fatalf("http request resolveProxy = %q, want HTTPS_PROXY value, which outranks HTTP_PROXY for every scheme", got)
	}
}

func TestLookupEnvAnyCase(t *testing.T) {
	os.Unsetenv("HTTP_PROXY")
	os.Unsetenv("http_proxy")
	os.Unsetenv("Http_Proxy")
	t.Setenv("http_proxy", "http://lowercase-proxy")

	if got := lookupEnvAnyCase("HTTP_PROXY"); got != "http://lowercase-proxy" {
		t.Fatalf("lookupEnvAnyCase should fall back to the lowercase variant, got %q", got)
	}
}

func TestAgentPool_ReusesTransportForSameKey(t *testing.T) {
	pool := newAgentPool(4)
	req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)

	t1 := pool.get(req, nil)
	t2 := pool.get(req, nil)
	if t1 != t2 {
		t.Fatal("expected the same destination to reuse a pooled transport")
	}
}

func TestAgentPool_DistinctProxySeparatesTransports(t *testing.T) {
	pool := newAgentPool(4)
	req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)

	t1 := pool.get(req, &Options{Proxy: "http://proxy-a"})
	t2 := pool.get(req, &Options{Proxy: "http://proxy-b"})
	if t1 == t2 {
		t.Fatal("expected different proxies to produce distinct pooled transports")
	}
}

func TestAgentPool_NoAgentBypassesPool(t *testing.T) {
	pool := newAgentPool(4)
	req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)

	rt := pool.get(req, &Options{Agent: NoAgent})
	transport, ok := rt.(*http.Transport)
	if !ok {
		t.Fatal("expected a *http.Transport from the NoAgent path")
	}
	if !transport.DisableKeepAlives {
		t.Fatal("NoAgent transport should disable keep-alives")
	}
}

func TestAgentPool_ExplicitTransportOverride(t *testing.T) {
	pool := newAgentPool(4)
	req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)

	custom := &http.Transport{MaxIdleConnsPerHost: 1}
	rt := pool.get(req, &Options{Agent: custom})
	if rt != custom {
		t.Fatal("explicit *http.Transport in Options.Agent should bypass the pool entirely")
	}
}

func TestHashBytes_EmptyIsEmpty(t *testing.T) {
	if got := hashBytes(nil); got != "" {
		t.Fatalf("hashBytes(nil) = %q, want empty string", got)
	}
	if hashBytes([]byte("x")) == "" {
		t.Fatal("hashBytes of non-empty input should not be empty")
	}
}
