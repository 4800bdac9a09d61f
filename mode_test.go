package httpcache

import "testing"

func TestDecide(t *testing.T) {
	cases := []struct {
		name     string
		mode     CacheMode
		hasEntry bool
		stale    bool
		want     action
	}{
		{"no-store always fetches", ModeNoStore, true, false, actionFetch},
		{"reload always fetches even when fresh", ModeReload, true, false, actionFetch},
		{"no-cache with entry revalidates", ModeNoCache, true, false, actionRevalidate},
		{"no-cache without entry fetches", ModeNoCache, false, false, actionFetch},
		{"force-cache with entry serves regardless of staleness", ModeForceCache, true, true, actionServeCached},
		{"force-cache without entry fetches", ModeForceCache, false, false, actionFetch},
		{"only-if-cached with entry serves", ModeOnlyIfCached, true, true, actionServeCached},
		{"only-if-cached without entry errors", ModeOnlyIfCached, false, false, actionError},
		{"default without entry fetches", ModeDefault, false, false, actionFetch},
		{"default fresh entry serves", ModeDefault, true, false, actionServeCached},
		{"default stale entry revalidates", ModeDefault, true, true, actionRevalidate},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := decide(tc.mode, tc.hasEntry, tc.stale); got != tc.want {
				t.Errorf("decide(%v, %v, %v) = %v, want %v", tc.mode, tc.hasEntry, tc.stale, got, tc.want)
			}
		})
	}
}

func TestCacheModeString(t *testing.T) {
	cases := map[CacheMode]string{
		ModeDefault:      "default",
		ModeNoStore:      "no-store",
		ModeReload:       "reload",
		ModeNoCache:      "no-cache",
		ModeForceCache:   "force-cache",
		ModeOnlyIfCached: "only-if-cached",
		CacheMode(99):    "unknown",
	}
	for mode, want := range cases {
		if got := mode.String(); got != want {
			t.Errorf("CacheMode(%d).String() = %q, want %q", mode, got, want)
		}
	}
}

func TestCacheModeValid(t *testing.T) {
	if !ModeOnlyIfCached.valid() {
		t.Error("ModeOnlyIfCached should be valid")
	}
	if CacheMode(99).valid() {
		t.Error("CacheMode(99) should not be valid")
	}
}
