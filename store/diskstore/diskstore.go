// Package diskstore is the default on-disk content-addressed httpcache.Store,
// backed by github.com/peterbourgon/diskv. Response bodies are named by
// their SHA-256 digest so two entries with identical content share one file
// on disk; metadata is kept in a separate sidecar keyed by the cache key.
package diskstore

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/peterbourgon/diskv"

	"github.com/fetchstore/httpcache"
)

const (
	metaPrefix    = "meta_"
	contentPrefix = "content_"
	tempPrefix    = "tmp_"
)

// Store is an httpcache.Store that persists metadata and bodies under basePath.
type Store struct {
	d *diskv.Diskv
}

// New returns a Store rooted at basePath, with a 100MB in-memory LRU cache
// of recently touched files (diskv's own caching layer).
func New(basePath string) *Store {
	return &Store{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			CacheSizeMax: 100 * 1024 * 1024,
		}),
	}
}

// NewWithDiskv wraps an already-configured *diskv.Diskv.
func NewWithDiskv(d *diskv.Diskv) *Store {
	return &Store{d: d}
}

func (s *Store) Name() string { return "diskstore:" + s.d.BasePath }

type entryMeta struct {
	Integrity string             `json:"integrity"`
	Digest    string             `json:"digest"`
	Metadata  httpcache.Metadata `json:"metadata"`
}

func hashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func (s *Store) Match(ctx context.Context, req *http.Request) (*httpcache.Entry, bool, error) {
	key := httpcache.ComputeKey(req)
	metaKey := metaPrefix + hashHex(key)

	raw, err := s.d.Read(metaKey)
	if err != nil {
		return nil, false, nil
	}

	var meta entryMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, false, fmt.Errorf("diskstore: decode metadata for %q: %w", key, err)
	}

	if !httpcache.MatchesVary(meta.Metadata.ResponseHeader, meta.Metadata.RequestHeader, req) {
		return nil, false, nil
	}

	if storedURL, err := url.Parse(meta.Metadata.URL); err == nil && storedURL.RawQuery != req.URL.RawQuery {
		return nil, false, nil
	}

	digest := meta.Digest
	contentKey := contentPrefix + digest

	entry := &httpcache.Entry{
		Key:       key,
		Integrity: meta.Integrity,
		Metadata:  meta.Metadata,
		Open: func(context.Context) (io.ReadCloser, error) {
			return s.d.ReadStream(contentKey, false)
		},
	}
	return entry, true, nil
}

func (s *Store) Put(ctx context.Context, req *http.Request, resp *http.Response) (*http.Response, error) {
	if resp.Body == nil || resp.Body == http.NoBody {
		return s.putMetadataOnly(req, resp, "", nil)
	}

	tmp := make([]byte, 16)
	if _, err := rand.Read(tmp); err != nil {
		return nil, fmt.Errorf("diskstore: generate temp name: %w", err)
	}
	tempKey := tempPrefix + hex.EncodeToString(tmp)

	hasher := sha256.New()
	tee := io.TeeReader(resp.Body, hasher)
	if err := s.d.WriteStream(tempKey, tee, true); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("diskstore: write body: %w", err)
	}
	resp.Body.Close()

	sum := hasher.Sum(nil)
	digest := hex.EncodeToString(sum)
	contentKey := contentPrefix + digest

	if !s.d.Has(contentKey) {
		contentReader, err := s.d.ReadStream(tempKey, false)
		if err != nil {
			return nil, fmt.Errorf("diskstore: reread temp body: %w", err)
		}
		err = s.d.WriteStream(contentKey, contentReader, true)
		contentReader.Close()
		if err != nil {
			return nil, fmt.Errorf("diskstore: promote body to content store: %w", err)
		}
	}
	_ = s.d.Erase(tempKey)

	integrity := httpcache.FormatDigestBytes("sha256", sum)

	out, err := s.putMetadataOnly(req, resp, integrity, &digest)
	if err != nil {
		return nil, err
	}

	out.Body, err = s.d.ReadStream(contentKey, false)
	if err != nil {
		return nil, fmt.Errorf("diskstore: open stored body: %w", err)
	}
	return out, nil
}

func (s *Store) putMetadataOnly(req *http.Request, resp *http.Response, integrity string, digest *string) (*http.Response, error) {
	key := httpcache.ComputeKey(req)
	metaKey := metaPrefix + hashHex(key)

	meta := entryMeta{
		Integrity: integrity,
		Metadata: httpcache.Metadata{
			URL:            req.URL.String(),
			RequestHeader:  req.Header.Clone(),
			ResponseHeader: resp.Header.Clone(),
			StatusCode:     resp.StatusCode,
			WrittenAt:      time.Now(),
		},
	}
	if digest != nil {
		meta.Digest = *digest
	} else if prior, err := s.d.Read(metaKey); err == nil {
		// Bodyless write (HEAD, 304): refresh metadata, keep the stored body.
		var old entryMeta
		if json.Unmarshal(prior, &old) == nil {
			meta.Digest = old.Digest
			meta.Integrity = old.Integrity
		}
	}

	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("diskstore: encode metadata: %w", err)
	}
	if err := s.d.WriteStream(metaKey, bytes.NewReader(raw), true); err != nil {
		return nil, fmt.Errorf("diskstore: write metadata: %w", err)
	}

	out := *resp
	return &out, nil
}

func (s *Store) Delete(ctx context.Context, req *http.Request) (bool, error) {
	key := httpcache.ComputeKey(req)
	metaKey := metaPrefix + hashHex(key)

	if !s.d.Has(metaKey) {
		return false, nil
	}

	if raw, err := s.d.Read(metaKey); err == nil {
		var meta entryMeta
		if json.Unmarshal(raw, &meta) == nil && meta.Digest != "" {
			_ = s.d.Erase(contentPrefix + meta.Digest)
		}
	}

	if err := s.d.Erase(metaKey); err != nil {
		return false, fmt.Errorf("diskstore: erase metadata for %q: %w", key, err)
	}
	return true, nil
}
