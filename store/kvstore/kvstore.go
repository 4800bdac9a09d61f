// Package kvstore adapts any store/kv.Backend into the full httpcache.Store
// contract by JSON-enveloping metadata and body together under the cache
// key. Because kv.Backend only deals in flat []byte values, bodies are
// buffered in memory rather than streamed — this is the one limitation
// non-disk backends carry relative to store/diskstore, documented in
// DESIGN.md.
package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fetchstore/httpcache"
	"github.com/fetchstore/httpcache/store/kv"
)

// DefaultMaxMemSize is the largest body this adapter will buffer before
// refusing to store it, matching the library-wide 5 MiB default.
const DefaultMaxMemSize = 5 << 20

// Store adapts a kv.Backend to httpcache.Store.
type Store struct {
	name       string
	backend    kv.Backend
	maxMemSize int64
}

// New wraps backend, identified as name in the X-Local-Cache header.
func New(name string, backend kv.Backend) *Store {
	return &Store{name: name, backend: backend, maxMemSize: DefaultMaxMemSize}
}

// WithMaxMemSize overrides the buffering limit.
func (s *Store) WithMaxMemSize(n int64) *Store {
	s.maxMemSize = n
	return s
}

func (s *Store) Name() string { return s.name }

type envelope struct {
	Integrity string            `json:"integrity"`
	Metadata  httpcache.Metadata `json:"metadata"`
	Body      []byte            `json:"body"`
}

func (s *Store) Match(ctx context.Context, req *http.Request) (*httpcache.Entry, bool, error) {
	key := httpcache.ComputeKey(req)
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("kvstore: get %q: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false, fmt.Errorf("kvstore: decode entry %q: %w", key, err)
	}

	if !httpcache.MatchesVary(env.Metadata.ResponseHeader, env.Metadata.RequestHeader, req) {
		return nil, false, nil
	}

	if storedURL, err := url.Parse(env.Metadata.URL); err == nil && storedURL.RawQuery != req.URL.RawQuery {
		return nil, false, nil
	}

	body := env.Body
	entry := &httpcache.Entry{
		Key:       key,
		Integrity: env.Integrity,
		Metadata:  env.Metadata,
		Size:      int64(len(body)),
		Open: func(context.Context) (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		},
	}
	return entry, true, nil
}

func (s *Store) Put(ctx context.Context, req *http.Request, resp *http.Response) (*http.Response, error) {
	key := httpcache.ComputeKey(req)

	var body []byte
	if resp.Body != nil && resp.Body != http.NoBody {
		limited := io.LimitReader(resp.Body, s.maxMemSize+1)
		buf, err := io.ReadAll(limited)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("kvstore: read body: %w", err)
		}
		if int64(len(buf)) > s.maxMemSize {
			return nil, fmt.Errorf("kvstore: response body exceeds %d byte in-memory limit", s.maxMemSize)
		}
		body = buf
	}

	stored := body
	if body == nil {
		// Bodyless write (HEAD, 304): refresh metadata, keep the stored body.
		if prior, ok, err := s.backend.Get(ctx, key); err == nil && ok {
			var old envelope
			if json.Unmarshal(prior, &old) == nil {
				stored = old.Body
			}
		}
	}

	digest := httpcache.FormatSHA256Digest(stored)

	env := envelope{
		Integrity: digest,
		Metadata: httpcache.Metadata{
			URL:            req.URL.String(),
			RequestHeader:  req.Header.Clone(),
			ResponseHeader: resp.Header.Clone(),
			StatusCode:     resp.StatusCode,
			WrittenAt:      time.Now(),
		},
		Body: stored,
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("kvstore: encode entry: %w", err)
	}
	if err := s.backend.Set(ctx, key, raw); err != nil {
		return nil, fmt.Errorf("kvstore: set %q: %w", key, err)
	}

	out := *resp
	out.Body = io.NopCloser(bytes.NewReader(body))
	out.ContentLength = int64(len(body))
	return &out, nil
}

func (s *Store) Delete(ctx context.Context, req *http.Request) (bool, error) {
	key := httpcache.ComputeKey(req)
	_, existed, err := s.backend.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("kvstore: get %q: %w", key, err)
	}
	if !existed {
		return false, nil
	}
	if err := s.backend.Delete(ctx, key); err != nil {
		return false, fmt.Errorf("kvstore: delete %q: %w", key, err)
	}
	return true, nil
}
