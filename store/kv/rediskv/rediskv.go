// Package rediskv provides a kv.Backend backed by Redis, for use with
// store/kvstore.
package rediskv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the configuration for creating a Redis-backed Backend.
type Config struct {
	// Addr is the Redis server address (e.g. "localhost:6379"). Required.
	Addr string
	// Password authenticates against Redis. Optional.
	Password string
	// DB selects the Redis logical database. Optional, defaults to 0.
	DB int
	// KeyPrefix is prepended to every key to avoid collisions with other
	// data stored in the same Redis instance. Defaults to "httpcache:".
	KeyPrefix string
	// DialTimeout bounds the initial connection. Defaults to 5s.
	DialTimeout time.Duration
	// ReadTimeout/WriteTimeout bound per-command I/O. Default to 3s.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "httpcache:"
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 3 * time.Second
	}
	return c
}

// Backend is a kv.Backend implementation backed by Redis.
type Backend struct {
	client *redis.Client
	prefix string
}

// New connects to Redis per cfg and verifies the connection with a PING.
func New(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, errors.New("rediskv: Addr is required")
	}
	cfg = cfg.withDefaults()

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("rediskv: connect: %w", err)
	}

	return &Backend{client: client, prefix: cfg.KeyPrefix}, nil
}

// NewWithClient wraps an already-configured *redis.Client.
func NewWithClient(client *redis.Client, keyPrefix string) *Backend {
	if keyPrefix == "" {
		keyPrefix = "httpcache:"
	}
	return &Backend{client: client, prefix: keyPrefix}
}

func (b *Backend) key(key string) string { return b.prefix + key }

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := b.client.Get(ctx, b.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("rediskv: get %q: %w", key, err)
	}
	return value, true, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	if err := b.client.Set(ctx, b.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("rediskv: set %q: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.key(key)).Err(); err != nil {
		return fmt.Errorf("rediskv: delete %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (b *Backend) Close() error { return b.client.Close() }
