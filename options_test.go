package httpcache

import (
	"net/http"
	"testing"
	"time"
)

func TestMergeOptions_OverrideWinsFieldByField(t *testing.T) {
	base := Options{
		Mode:       ModeDefault,
		Timeout:    5 * time.Second,
		Proxy:      "http://base-proxy",
		MaxSockets: 10,
		Method:     "GET",
	}
	override := Options{
		Mode:    ModeNoCache,
		Timeout: 30 * time.Second,
		Method:  "POST",
	}

	merged := mergeOptions(base, override)

	if merged.Mode != ModeNoCache {
		t.Errorf("Mode = %v, want ModeNoCache overriding base", merged.Mode)
	}
	if merged.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want override value", merged.Timeout)
	}
	if merged.Method != "POST" {
		t.Errorf("Method = %q, want override value", merged.Method)
	}
	// Fields left zero on override must fall back to base.
	if merged.Proxy != "http://base-proxy" {
		t.Errorf("Proxy = %q, want base value to survive untouched override field", merged.Proxy)
	}
	if merged.MaxSockets != 10 {
		t.Errorf("MaxSockets = %d, want base value to survive untouched override field", merged.MaxSockets)
	}
}

func TestMergeOptions_ZeroOverrideLeavesBaseUntouched(t *testing.T) {
	base := Options{Method: "GET", Timeout: time.Second}
	merged := mergeOptions(base, Options{})

	if merged.Method != "GET" || merged.Timeout != time.Second {
		t.Fatalf("zero-valued override should not clobber base fields, got %+v", merged)
	}
}

func TestClientOptions_WiringOnNewClient(t *testing.T) {
	store := newMockStore()
	called := false
	shouldCache := func(*http.Response) bool { called = true; return true }

	c := NewClient(
		WithCache(store),
		WithPublicCache(true),
		WithVarySeparation(true),
		WithDisableWarningHeader(true),
		WithMarkCachedResponses(false),
		WithShouldCache(shouldCache),
		WithAgentPoolSize(4),
		WithCacheKeyHeaders("Accept-Language"),
	)

	if c.base.Store != store {
		t.Error("WithCache did not bind the store")
	}
	if !c.isPublicCache {
		t.Error("WithPublicCache(true) not applied")
	}
	if !c.enableVarySeparation {
		t.Error("WithVarySeparation(true) not applied")
	}
	if !c.disableWarningHeader {
		t.Error("WithDisableWarningHeader(true) not applied")
	}
	if c.markCachedResponses {
		t.Error("WithMarkCachedResponses(false) not applied")
	}
	if c.shouldCache == nil {
		t.Fatal("WithShouldCache did not install a hook")
	}
	c.shouldCache(&http.Response{})
	if !called {
		t.Error("installed shouldCache hook was not the one provided")
	}
	if len(c.base.CacheKeyHeaders) != 1 || c.base.CacheKeyHeaders[0] != "Accept-Language" {
		t.Errorf("WithCacheKeyHeaders not applied, got %v", c.base.CacheKeyHeaders)
	}
}

func TestClient_DefaultsComposesRecursively(t *testing.T) {
	c := NewClient()
	c2 := c.Defaults("https://api.example.com", &Options{Method: "POST", Timeout: time.Second})
	c3 := c2.Defaults("", &Options{MaxSockets: 8})

	if c3.baseURL != "https://api.example.com" {
		t.Errorf("baseURL should survive a later Defaults call with an empty URL, got %q", c3.baseURL)
	}
	if c3.base.Method != "POST" {
		t.Errorf("Method from the first Defaults call should survive merge, got %q", c3.base.Method)
	}
	if c3.base.MaxSockets != 8 {
		t.Errorf("MaxSockets from the second Defaults call should be applied, got %d", c3.base.MaxSockets)
	}
}
