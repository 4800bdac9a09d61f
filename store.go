package httpcache

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Metadata is the non-body portion of a stored entry: everything needed to
// evaluate freshness, Vary matching, and conditional revalidation without
// opening the body.
type Metadata struct {
	URL            string
	RequestHeader  http.Header
	ResponseHeader http.Header
	StatusCode     int
	WrittenAt      time.Time
}

// Entry is a cached representation of one response. Body access is lazy:
// Open does not run until the caller actually wants the bytes, so a Match
// that is only checking freshness never touches the backing blob store.
type Entry struct {
	Key       string
	Integrity string // "<algo>-<base64 digest>", empty if integrity tracking is off
	Metadata  Metadata
	Size      int64

	Open func(ctx context.Context) (io.ReadCloser, error)
}

// Store is the cache backend contract. Implementations must be safe for
// concurrent use. Match/Put/Delete operate on the logical request, not a
// pre-computed key, so a Store is free to apply its own Vary-aware
// secondary matching on top of the primary cache key.
type Store interface {
	// Match returns the best stored entry for req, or ok == false if none
	// applies (including when Vary comparison fails).
	Match(ctx context.Context, req *http.Request) (entry *Entry, ok bool, err error)

	// Put stores resp as the representation for req and returns the
	// (possibly re-wrapped) response the caller should consume. Callers
	// must always use the returned response instead of resp after Put.
	Put(ctx context.Context, req *http.Request, resp *http.Response) (*http.Response, error)

	// Delete invalidates any entry for req, returning whether one existed.
	Delete(ctx context.Context, req *http.Request) (existed bool, err error)

	// Name identifies the store for the X-Local-Cache response header.
	Name() string
}
