// Package compresscache decorates a store/kv.Backend with transparent
// compression, trading CPU for less storage and network traffic on whatever
// backend it wraps. Three algorithms are supported: gzip, brotli and
// snappy, selected per Backend instance.
package compresscache

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/fetchstore/httpcache/store/kv"
)

// Algorithm identifies a supported compression codec.
type Algorithm int

const (
	// Gzip trades compression ratio for wide compatibility and moderate speed.
	Gzip Algorithm = iota
	// Brotli gives the best compression ratio at the cost of CPU time.
	Brotli
	// Snappy is the fastest codec, at a lower compression ratio.
	Snappy
)

func (a Algorithm) String() string {
	switch a {
	case Gzip:
		return "gzip"
	case Brotli:
		return "brotli"
	case Snappy:
		return "snappy"
	default:
		return "unknown"
	}
}

// Stats holds running compression statistics for a Backend.
type Stats struct {
	CompressedBytes   int64
	UncompressedBytes int64
	CompressedCount   int64
	UncompressedCount int64
}

// Ratio returns CompressedBytes/UncompressedBytes, or 0 if nothing has been
// compressed yet.
func (s Stats) Ratio() float64 {
	if s.UncompressedBytes == 0 {
		return 0
	}
	return float64(s.CompressedBytes) / float64(s.UncompressedBytes)
}

type codec interface {
	compress([]byte) ([]byte, error)
	decompress([]byte) ([]byte, error)
}

// Backend wraps a kv.Backend, compressing values on Set and decompressing
// them on Get. Every stored value is prefixed with a one-byte marker
// (algorithm+1, or 0 for a value that fell back to uncompressed storage) so
// Get can decode entries written by a Backend configured with a different
// algorithm.
type Backend struct {
	backend   kv.Backend
	algorithm Algorithm
	codec     codec

	compressedBytes   atomic.Int64
	uncompressedBytes atomic.Int64
	compressedCount   atomic.Int64
	uncompressedCount atomic.Int64
}

func newBackend(backend kv.Backend, algorithm Algorithm, c codec) *Backend {
	return &Backend{backend: backend, algorithm: algorithm, codec: c}
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, ok, err := b.backend.Get(ctx, key)
	if err != nil || !ok {
		return raw, ok, err
	}
	if len(raw) == 0 {
		return raw, true, nil
	}

	marker := raw[0]
	if marker == 0 {
		return raw[1:], true, nil
	}

	storedAlgo := Algorithm(marker - 1)
	dec, err := codecFor(storedAlgo)
	if err != nil {
		return nil, false, fmt.Errorf("compresscache: get %q: %w", key, err)
	}
	decompressed, err := dec.decompress(raw[1:])
	if err != nil {
		return nil, false, fmt.Errorf("compresscache: decompress %q: %w", key, err)
	}
	return decompressed, true, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	compressed, err := b.codec.compress(value)
	if err != nil {
		data := make([]byte, len(value)+1)
		copy(data[1:], value)
		b.uncompressedCount.Add(1)
		b.uncompressedBytes.Add(int64(len(value)))
		return b.backend.Set(ctx, key, data)
	}

	data := make([]byte, len(compressed)+1)
	data[0] = byte(b.algorithm + 1)
	copy(data[1:], compressed)

	b.compressedCount.Add(1)
	b.compressedBytes.Add(int64(len(compressed)))
	b.uncompressedBytes.Add(int64(len(value)))
	return b.backend.Set(ctx, key, data)
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	return b.backend.Delete(ctx, key)
}

// Stats returns compression statistics accumulated since creation.
func (b *Backend) Stats() Stats {
	return Stats{
		CompressedBytes:   b.compressedBytes.Load(),
		UncompressedBytes: b.uncompressedBytes.Load(),
		CompressedCount:   b.compressedCount.Load(),
		UncompressedCount: b.uncompressedCount.Load(),
	}
}

func codecFor(algorithm Algorithm) (codec, error) {
	switch algorithm {
	case Gzip:
		return gzipCodec{}, nil
	case Brotli:
		return brotliCodec{level: defaultBrotliLevel}, nil
	case Snappy:
		return snappyCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm %d", algorithm)
	}
}
