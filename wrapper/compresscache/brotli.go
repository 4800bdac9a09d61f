package compresscache

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"

	"github.com/fetchstore/httpcache/store/kv"
)

const defaultBrotliLevel = 6

type brotliCodec struct {
	level int
}

func (c brotliCodec) compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, c.level)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("brotli write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("brotli close: %w", err)
	}
	return buf.Bytes(), nil
}

func (c brotliCodec) decompress(data []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(data))
	return io.ReadAll(r)
}

// NewBrotli wraps backend with brotli compression at the given level
// (0-11; 0 selects the default of 6).
func NewBrotli(backend kv.Backend, level int) (*Backend, error) {
	if level == 0 {
		level = defaultBrotliLevel
	}
	if level < 0 || level > 11 {
		return nil, fmt.Errorf("compresscache: invalid brotli level %d", level)
	}
	return newBackend(backend, Brotli, brotliCodec{level: level}), nil
}
