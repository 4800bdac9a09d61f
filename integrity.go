// Package httpcache provides a http.RoundTripper implementation that works as a
// mostly RFC 9111 compliant cache for HTTP responses.
package httpcache

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"hash"
	"strings"
)

// Integrity names a digest algorithm and the set of base64 digests a
// response body is acceptable under, in the style of Subresource Integrity.
type Integrity struct {
	Algorithm string   // currently only "sha256" is supported
	Digests   []string // base64-encoded digests; any match is accepted
}

// newHasher returns a running hash.Hash for the given algorithm name.
func newHasher(algorithm string) (hash.Hash, error) {
	switch strings.ToLower(algorithm) {
	case "", "sha256":
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("httpcache: unsupported integrity algorithm %q", algorithm)
	}
}

// formatDigest renders a digest's raw bytes as "<algo>-<base64>", the form
// stored on Entry.Integrity.
func formatDigest(algorithm string, sum []byte) string {
	if algorithm == "" {
		algorithm = "sha256"
	}
	return algorithm + "-" + base64.StdEncoding.EncodeToString(sum)
}

// FormatSHA256Digest returns the "sha256-<base64>" digest of body, the form
// stored on Entry.Integrity. Exported for use by out-of-tree Store
// implementations that compute their own digest at write time.
func FormatSHA256Digest(body []byte) string {
	sum := sha256.Sum256(body)
	return formatDigest("sha256", sum[:])
}

// FormatDigestBytes renders an already-computed digest's raw bytes as
// "<algo>-<base64>". Use this when the digest was computed incrementally
// (e.g. via a streaming hash.Hash) rather than from a single in-memory body.
func FormatDigestBytes(algorithm string, sum []byte) string {
	return formatDigest(algorithm, sum)
}

// verifyIntegrity reports whether computed matches any digest accepted by want.
func verifyIntegrity(want *Integrity, computed string) bool {
	if want == nil {
		return true
	}
	algo := want.Algorithm
	if algo == "" {
		algo = "sha256"
	}
	for _, digest := range want.Digests {
		if formatDigest(algo, mustDecodeBase64(digest)) == computed {
			return true
		}
		// Also accept a bare base64 digest without the "<algo>-" prefix.
		if digest == strings.TrimPrefix(computed, algo+"-") {
			return true
		}
	}
	return false
}

func mustDecodeBase64(s string) []byte {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}
