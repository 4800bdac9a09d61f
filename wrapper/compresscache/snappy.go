package compresscache

import (
	"fmt"

	"github.com/golang/snappy"

	"github.com/fetchstore/httpcache/store/kv"
)

type snappyCodec struct{}

func (c snappyCodec) compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (c snappyCodec) decompress(data []byte) ([]byte, error) {
	decompressed, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decode: %w", err)
	}
	return decompressed, nil
}

// NewSnappy wraps backend with snappy compression.
func NewSnappy(backend kv.Backend) *Backend {
	return newBackend(backend, Snappy, snappyCodec{})
}
