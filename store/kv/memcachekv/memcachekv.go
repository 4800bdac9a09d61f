// Package memcachekv provides a kv.Backend backed by Memcached, via
// github.com/bradfitz/gomemcache.
package memcachekv

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// Config holds the configuration for creating a Memcached-backed Backend.
type Config struct {
	// Servers is the list of memcached server addresses ("host:port").
	// Required, at least one.
	Servers []string
	// Timeout bounds each memcached operation. Defaults to 100ms, matching
	// memcache.DefaultTimeout.
	Timeout time.Duration
	// Expiration is the TTL applied to stored items, in seconds. 0 means
	// the item never expires.
	Expiration int32
}

// Backend is a kv.Backend implementation backed by Memcached.
type Backend struct {
	client     *memcache.Client
	expiration int32
}

// New returns a Backend connected to the servers named in cfg.
func New(cfg Config) (*Backend, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("memcachekv: Servers is required")
	}
	client := memcache.New(cfg.Servers...)
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}
	return &Backend{client: client, expiration: cfg.Expiration}, nil
}

// NewWithClient wraps an already-configured *memcache.Client.
func NewWithClient(client *memcache.Client, expiration int32) *Backend {
	return &Backend{client: client, expiration: expiration}
}

// memcacheKey hashes key into memcached's constrained key alphabet: no
// spaces or control characters, max 250 bytes. httpcache cache keys
// ("GET http://host/path") violate both, so every key is rewritten to a
// fixed-length hex digest before touching the wire.
func memcacheKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "httpcache:" + hex.EncodeToString(sum[:])
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	item, err := b.client.Get(memcacheKey(key))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("memcachekv: get %q: %w", key, err)
	}
	return item.Value, true, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	err := b.client.Set(&memcache.Item{
		Key:        memcacheKey(key),
		Value:      value,
		Expiration: b.expiration,
	})
	if err != nil {
		return fmt.Errorf("memcachekv: set %q: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	err := b.client.Delete(memcacheKey(key))
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return fmt.Errorf("memcachekv: delete %q: %w", key, err)
	}
	return nil
}
