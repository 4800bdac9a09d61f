// Package blobkv provides a kv.Backend backed by a Go Cloud Development Kit
// blob bucket, so the same adapter works against S3, GCS, Azure Blob
// Storage, or local filesystem/in-memory buckets depending on which
// gocloud.dev driver is imported for its side effects.
package blobkv

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// Config holds the configuration for creating a blob-backed Backend.
type Config struct {
	// BucketURL is the Go Cloud blob URL (e.g. "s3://bucket?region=us-west-2").
	// Ignored if Bucket is set.
	BucketURL string
	// KeyPrefix is prepended to every (hashed) key. Defaults to "cache/".
	KeyPrefix string
	// Timeout bounds each blob operation when ctx carries no deadline.
	// Defaults to 30s.
	Timeout time.Duration
	// Bucket is an optional pre-opened bucket; if set, BucketURL is unused
	// and the Backend does not own (close) it.
	Bucket *blob.Bucket
}

func (c Config) withDefaults() Config {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "cache/"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

// Backend is a kv.Backend implementation backed by a Go Cloud blob bucket.
type Backend struct {
	bucket     *blob.Bucket
	keyPrefix  string
	timeout    time.Duration
	ownsBucket bool
}

// New opens (or reuses) a bucket per cfg. Call Close when done.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.BucketURL == "" && cfg.Bucket == nil {
		return nil, errors.New("blobkv: either BucketURL or Bucket must be set")
	}
	cfg = cfg.withDefaults()

	bucket := cfg.Bucket
	ownsBucket := false
	if bucket == nil {
		var err error
		bucket, err = blob.OpenBucket(ctx, cfg.BucketURL)
		if err != nil {
			return nil, fmt.Errorf("blobkv: open bucket: %w", err)
		}
		ownsBucket = true
	}

	return &Backend{bucket: bucket, keyPrefix: cfg.KeyPrefix, timeout: cfg.Timeout, ownsBucket: ownsBucket}, nil
}

// blobKey hashes key into a flat, provider-safe object name. Cloud object
// stores constrain characters and length differently per provider; hashing
// sidesteps all of it.
func (b *Backend) blobKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return b.keyPrefix + hex.EncodeToString(sum[:])
}

func (b *Backend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, b.timeout)
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	reader, err := b.bucket.NewReader(ctx, b.blobKey(key), nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("blobkv: get %q: %w", key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, false, fmt.Errorf("blobkv: read %q: %w", key, err)
	}
	return data, true, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	writer, err := b.bucket.NewWriter(ctx, b.blobKey(key), nil)
	if err != nil {
		return fmt.Errorf("blobkv: open writer for %q: %w", key, err)
	}
	_, writeErr := writer.Write(value)
	closeErr := writer.Close()
	if writeErr != nil {
		return fmt.Errorf("blobkv: write %q: %w", key, writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("blobkv: close writer for %q: %w", key, closeErr)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	err := b.bucket.Delete(ctx, b.blobKey(key))
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("blobkv: delete %q: %w", key, err)
	}
	return nil
}

// Close closes the bucket, if New opened it.
func (b *Backend) Close() error {
	if b.ownsBucket {
		return b.bucket.Close()
	}
	return nil
}
