// Package natskv provides a kv.Backend backed by a NATS JetStream Key/Value
// bucket.
package natskv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Config holds the configuration for creating a NATS K/V-backed Backend.
type Config struct {
	// NATSUrl is the URL of the NATS server. Defaults to nats.DefaultURL.
	NATSUrl string
	// Bucket names the K/V bucket to use. Required.
	Bucket string
	// Description is an optional description for the bucket.
	Description string
	// TTL is applied to created buckets; zero means entries never expire.
	TTL time.Duration
	// NATSOptions are passed through to nats.Connect.
	NATSOptions []nats.Option
}

// Backend is a kv.Backend implementation backed by a NATS JetStream K/V bucket.
type Backend struct {
	kv jetstream.KeyValue
	nc *nats.Conn
}

// cacheKey prefixes the key; NATS K/V keys disallow some characters (':',
// spaces) that httpcache cache keys can contain, so the raw key is never
// used verbatim.
func cacheKey(key string) string {
	return "httpcache_" + natsSafe(key)
}

func natsSafe(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '/', r == '=':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// New connects to NATS, opens (creating if necessary) the configured
// bucket, and returns a ready Backend. Close should be called when done.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("natskv: Bucket is required")
	}

	url := cfg.NATSUrl
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url, cfg.NATSOptions...)
	if err != nil {
		return nil, fmt.Errorf("natskv: connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("natskv: jetstream context: %w", err)
	}

	kvStore, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: cfg.Description,
		TTL:         cfg.TTL,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("natskv: open bucket %q: %w", cfg.Bucket, err)
	}

	return &Backend{kv: kvStore, nc: nc}, nil
}

// NewWithKeyValue wraps an already-configured jetstream.KeyValue. Close is a
// no-op in this case; the caller owns the NATS connection.
func NewWithKeyValue(kvStore jetstream.KeyValue) *Backend {
	return &Backend{kv: kvStore}
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := b.kv.Get(ctx, cacheKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("natskv: get %q: %w", key, err)
	}
	return entry.Value(), true, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	if _, err := b.kv.Put(ctx, cacheKey(key), value); err != nil {
		return fmt.Errorf("natskv: set %q: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	err := b.kv.Delete(ctx, cacheKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("natskv: delete %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying NATS connection, if New created it.
func (b *Backend) Close() error {
	if b.nc != nil {
		b.nc.Close()
	}
	return nil
}
