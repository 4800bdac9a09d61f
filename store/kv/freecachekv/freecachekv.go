// Package freecachekv is a zero-GC-overhead, in-process kv.Backend backed
// by github.com/coocood/freecache. Unlike memkv, the cache has a fixed
// byte budget and evicts with LRU once full, making it suitable for
// processes that want bounded memory use without external dependencies.
package freecachekv

import (
	"context"
	"errors"
	"fmt"

	"github.com/coocood/freecache"
)

// Backend is a kv.Backend implementation backed by freecache.
type Backend struct {
	cache      *freecache.Cache
	expireSecs int
}

// New creates a Backend with the given byte budget (minimum 512KB, per
// freecache). expireSeconds is applied to every Set; 0 means no expiry.
func New(sizeBytes int, expireSeconds int) *Backend {
	return &Backend{
		cache:      freecache.NewCache(sizeBytes),
		expireSecs: expireSeconds,
	}
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := b.cache.Get([]byte(key))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("freecachekv: get %q: %w", key, err)
	}
	return value, true, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	if err := b.cache.Set([]byte(key), value, b.expireSecs); err != nil {
		return fmt.Errorf("freecachekv: set %q: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	b.cache.Del([]byte(key))
	return nil
}
