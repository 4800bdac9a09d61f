// Package leveldbkv provides a kv.Backend backed by an embedded LevelDB
// database, via github.com/syndtr/goleveldb.
package leveldbkv

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
)

// Backend is a kv.Backend implementation backed by LevelDB.
type Backend struct {
	db *leveldb.DB
}

// New opens (or creates) a LevelDB database rooted at path.
func New(path string) (*Backend, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("leveldbkv: open %q: %w", path, err)
	}
	return &Backend{db: db}, nil
}

// NewWithDB wraps an already-open *leveldb.DB.
func NewWithDB(db *leveldb.DB) *Backend {
	return &Backend{db: db}
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := b.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("leveldbkv: get %q: %w", key, err)
	}
	return value, true, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	if err := b.db.Put([]byte(key), value, nil); err != nil {
		return fmt.Errorf("leveldbkv: set %q: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.db.Delete([]byte(key), nil); err != nil {
		return fmt.Errorf("leveldbkv: delete %q: %w", key, err)
	}
	return nil
}

// Close releases the database handle.
func (b *Backend) Close() error { return b.db.Close() }
