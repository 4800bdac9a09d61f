// Package postgreskv provides a kv.Backend backed by a PostgreSQL table,
// via github.com/jackc/pgx/v5.
package postgreskv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// DefaultTableName is the table cache entries are stored in.
	DefaultTableName = "httpcache"
	// DefaultKeyPrefix is prepended to every key.
	DefaultKeyPrefix = "cache:"
)

// Config holds the configuration for creating a PostgreSQL-backed Backend.
type Config struct {
	// TableName is the table to store entries in. Defaults to "httpcache".
	// The table must already exist with columns (key text primary key,
	// data bytea, updated_at timestamptz).
	TableName string
	// KeyPrefix is prepended to every key. Defaults to "cache:".
	KeyPrefix string
	// Timeout bounds each operation when ctx carries no deadline. Defaults
	// to 5s.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.TableName == "" {
		c.TableName = DefaultTableName
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	return c
}

// Backend is a kv.Backend implementation backed by PostgreSQL.
type Backend struct {
	pool      *pgxpool.Pool
	tableName string
	keyPrefix string
	timeout   time.Duration
}

// New connects to PostgreSQL via connString and returns a ready Backend.
func New(ctx context.Context, connString string, cfg Config) (*Backend, error) {
	cfg = cfg.withDefaults()
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("postgreskv: connect: %w", err)
	}
	return &Backend{pool: pool, tableName: cfg.TableName, keyPrefix: cfg.KeyPrefix, timeout: cfg.Timeout}, nil
}

// NewWithPool wraps an already-configured *pgxpool.Pool.
func NewWithPool(pool *pgxpool.Pool, cfg Config) *Backend {
	cfg = cfg.withDefaults()
	return &Backend{pool: pool, tableName: cfg.TableName, keyPrefix: cfg.KeyPrefix, timeout: cfg.Timeout}
}

func (b *Backend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, b.timeout)
}

func (b *Backend) cacheKey(key string) string { return b.keyPrefix + key }

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	var data []byte
	query := `SELECT data FROM ` + b.tableName + ` WHERE key = $1`
	err := b.pool.QueryRow(ctx, query, b.cacheKey(key)).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("postgreskv: get %q: %w", key, err)
	}
	return data, true, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	query := `INSERT INTO ` + b.tableName + ` (key, data, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`
	_, err := b.pool.Exec(ctx, query, b.cacheKey(key), value, time.Now())
	if err != nil {
		return fmt.Errorf("postgreskv: set %q: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	query := `DELETE FROM ` + b.tableName + ` WHERE key = $1`
	_, err := b.pool.Exec(ctx, query, b.cacheKey(key))
	if err != nil {
		return fmt.Errorf("postgreskv: delete %q: %w", key, err)
	}
	return nil
}

// Close releases the connection pool.
func (b *Backend) Close() { b.pool.Close() }
