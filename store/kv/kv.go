// Package kv defines the minimal key/value contract shared by every
// non-disk cache backend adapter (redis, memcached, freecache, leveldb,
// nats, mongo, postgres, hazelcast, blob). store/kvstore adapts any Backend
// into the richer httpcache.Store contract.
package kv

import "context"

// Backend is a flat byte-string key/value store.
type Backend interface {
	// Get returns the stored value and true if key exists, false if not
	// found. A non-nil error indicates a backend failure, not a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key, replacing any existing value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. It is not an error to delete a missing key.
	Delete(ctx context.Context, key string) error
}
