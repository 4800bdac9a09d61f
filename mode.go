package httpcache

// CacheMode controls how a Fetch call interacts with the Store, mirroring
// the cache modes of a browser fetch() request.
type CacheMode int

const (
	// ModeDefault inspects the store and either serves a fresh entry,
	// revalidates a stale one, or performs a normal request and stores the
	// result.
	ModeDefault CacheMode = iota

	// ModeNoStore bypasses the store entirely: no lookup, no write.
	ModeNoStore

	// ModeReload ignores any cached entry, always issuing a fresh request,
	// but still stores the result for next time.
	ModeReload

	// ModeNoCache always revalidates with the origin before serving, even
	// when the cached entry is still fresh.
	ModeNoCache

	// ModeForceCache serves any cached entry regardless of staleness,
	// falling back to a normal request only when nothing is cached.
	ModeForceCache

	// ModeOnlyIfCached never touches the network; a cache miss returns
	// ErrNotCached.
	ModeOnlyIfCached
)

func (m CacheMode) String() string {
	switch m {
	case ModeDefault:
		return "default"
	case ModeNoStore:
		return "no-store"
	case ModeReload:
		return "reload"
	case ModeNoCache:
		return "no-cache"
	case ModeForceCache:
		return "force-cache"
	case ModeOnlyIfCached:
		return "only-if-cached"
	default:
		return "unknown"
	}
}

func (m CacheMode) valid() bool {
	return m >= ModeDefault && m <= ModeOnlyIfCached
}

// action is the concrete outcome the orchestrator takes after consulting
// the cache mode and the state of any existing entry.
type action int

const (
	actionFetch       action = iota // no usable entry; go to the network, maybe store
	actionServeCached                // serve the stored entry as-is
	actionRevalidate                 // issue a conditional request, merge or replace
	actionError                      // ModeOnlyIfCached with nothing cached
)

// decide implements the cache-mode state machine: given the requested mode
// and whether a (possibly stale) entry exists, it returns the action to take.
func decide(mode CacheMode, hasEntry, stale bool) action {
	switch mode {
	case ModeNoStore:
		return actionFetch
	case ModeReload:
		return actionFetch
	case ModeNoCache:
		if hasEntry {
			return actionRevalidate
		}
		return actionFetch
	case ModeForceCache:
		if hasEntry {
			return actionServeCached
		}
		return actionFetch
	case ModeOnlyIfCached:
		if hasEntry {
			return actionServeCached
		}
		return actionError
	default: // ModeDefault
		if !hasEntry {
			return actionFetch
		}
		if stale {
			return actionRevalidate
		}
		return actionServeCached
	}
}
