package compresscache

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/fetchstore/httpcache/store/kv"
)

type gzipCodec struct {
	level int
}

func (c gzipCodec) compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	level := c.level
	if level == 0 {
		level = gzip.DefaultCompression
	}
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("gzip writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

func (c gzipCodec) decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// NewGzip wraps backend with gzip compression at the given level (use
// gzip.DefaultCompression for 0).
func NewGzip(backend kv.Backend, level int) *Backend {
	return newBackend(backend, Gzip, gzipCodec{level: level})
}
