// Package multistore composes multiple httpcache.Store tiers ordered from
// fastest/smallest to slowest/largest. Match searches each tier in order
// and promotes a hit found in a slower tier up into every faster tier; Put
// and Delete apply to every tier, keeping them consistent.
package multistore

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fetchstore/httpcache"
)

// Store is a tiered httpcache.Store.
type Store struct {
	tiers []httpcache.Store
}

// New builds a Store over tiers, ordered fastest-first. At least one tier
// is required.
func New(tiers ...httpcache.Store) (*Store, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("multistore: at least one tier is required")
	}
	for _, t := range tiers {
		if t == nil {
			return nil, fmt.Errorf("multistore: nil tier")
		}
	}
	return &Store{tiers: tiers}, nil
}

func (s *Store) Name() string { return "multistore" }

// Match searches tiers in order. A hit in tier i is promoted into every
// tier before it (best-effort; promotion failures do not fail the Match).
func (s *Store) Match(ctx context.Context, req *http.Request) (*httpcache.Entry, bool, error) {
	for i, tier := range s.tiers {
		entry, ok, err := tier.Match(ctx, req)
		if err != nil {
			return nil, false, fmt.Errorf("multistore: tier %d match: %w", i, err)
		}
		if !ok {
			continue
		}
		if i > 0 {
			s.promote(ctx, req, entry, i)
		}
		return entry, true, nil
	}
	return nil, false, nil
}

// promote re-synthesizes a response from entry and writes it into every
// tier faster than foundAt. Body re-read failures are logged and skipped;
// the original Match result is unaffected.
func (s *Store) promote(ctx context.Context, req *http.Request, entry *httpcache.Entry, foundAt int) {
	body, err := entry.Open(ctx)
	if err != nil {
		httpcache.GetLogger().Warn("multistore: promotion skipped, cannot reopen body", "key", entry.Key, "error", err)
		return
	}
	defer body.Close()

	resp := &http.Response{
		StatusCode: entry.Metadata.StatusCode,
		Header:     entry.Metadata.ResponseHeader.Clone(),
		Body:       body,
		Request:    req,
	}

	for i := 0; i < foundAt; i++ {
		out, err := s.tiers[i].Put(ctx, req, resp)
		if err != nil {
			httpcache.GetLogger().Warn("multistore: promotion to faster tier failed", "tier", i, "key", entry.Key, "error", err)
			continue
		}
		// Put consumes resp.Body; the next tier reads the body this tier returned.
		resp = out
	}
	if resp.Body != nil && resp.Body != body {
		resp.Body.Close()
	}
}

// Put writes resp to every tier. The response returned by the last
// (slowest) tier is what the caller continues to read from, matching the
// contract of a single Store.Put.
func (s *Store) Put(ctx context.Context, req *http.Request, resp *http.Response) (*http.Response, error) {
	var out *http.Response
	for i, tier := range s.tiers {
		var err error
		out, err = tier.Put(ctx, req, resp)
		if err != nil {
			return nil, fmt.Errorf("multistore: tier %d put: %w", i, err)
		}
		resp = out
	}
	return out, nil
}

// Delete removes the entry from every tier, returning true if any tier had it.
func (s *Store) Delete(ctx context.Context, req *http.Request) (bool, error) {
	var deletedAny bool
	for i, tier := range s.tiers {
		deleted, err := tier.Delete(ctx, req)
		if err != nil {
			return deletedAny, fmt.Errorf("multistore: tier %d delete: %w", i, err)
		}
		deletedAny = deletedAny || deleted
	}
	return deletedAny, nil
}
