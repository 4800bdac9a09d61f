// Package hazelcastkv provides a kv.Backend backed by a Hazelcast
// distributed map, via github.com/hazelcast/hazelcast-go-client.
package hazelcastkv

import (
	"context"
	"fmt"

	"github.com/hazelcast/hazelcast-go-client"
)

// Backend is a kv.Backend implementation backed by a Hazelcast map.
type Backend struct {
	client *hazelcast.Client
	m      *hazelcast.Map
}

// New connects to a Hazelcast cluster per config and opens mapName.
func New(ctx context.Context, config hazelcast.Config, mapName string) (*Backend, error) {
	client, err := hazelcast.StartNewClientWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("hazelcastkv: connect: %w", err)
	}
	m, err := client.GetMap(ctx, mapName)
	if err != nil {
		client.Shutdown(ctx)
		return nil, fmt.Errorf("hazelcastkv: open map %q: %w", mapName, err)
	}
	return &Backend{client: client, m: m}, nil
}

// NewWithMap wraps an already-opened *hazelcast.Map.
func NewWithMap(m *hazelcast.Map) *Backend {
	return &Backend{m: m}
}

func (b *Backend) cacheKey(key string) string { return "httpcache:" + key }

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := b.m.Get(ctx, b.cacheKey(key))
	if err != nil {
		return nil, false, fmt.Errorf("hazelcastkv: get %q: %w", key, err)
	}
	if val == nil {
		return nil, false, nil
	}
	data, ok := val.([]byte)
	if !ok {
		return nil, false, nil
	}
	return data, true, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	if err := b.m.Set(ctx, b.cacheKey(key), value); err != nil {
		return fmt.Errorf("hazelcastkv: set %q: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if _, err := b.m.Remove(ctx, b.cacheKey(key)); err != nil {
		return fmt.Errorf("hazelcastkv: delete %q: %w", key, err)
	}
	return nil
}

// Close shuts down the underlying client, if New created it.
func (b *Backend) Close(ctx context.Context) error {
	if b.client != nil {
		return b.client.Shutdown(ctx)
	}
	return nil
}
