// Package securestore decorates a store/kv.Backend with SHA-256 key hashing
// (always on) and optional AES-256-GCM encryption of values at rest,
// keyed from a passphrase via scrypt.
package securestore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"

	"github.com/fetchstore/httpcache/store/kv"
)

const (
	scryptN   = 32768
	scryptR   = 8
	scryptP   = 1
	keyLength = 32
	nonceSize = 12
)

// Backend wraps a kv.Backend, hashing every key and, when a passphrase is
// configured, encrypting every value.
type Backend struct {
	backend kv.Backend
	gcm     cipher.AEAD
}

// Config holds the configuration for creating a Backend.
type Config struct {
	// Backend is the underlying store to wrap. Required.
	Backend kv.Backend
	// Passphrase derives the AES-256-GCM key via scrypt. If empty, only
	// key hashing is performed and values are stored in the clear.
	Passphrase string
}

// New wraps cfg.Backend, deriving an encryption key from cfg.Passphrase if set.
func New(cfg Config) (*Backend, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("securestore: Backend is required")
	}

	b := &Backend{backend: cfg.Backend}
	if cfg.Passphrase != "" {
		gcm, err := newGCM(cfg.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("securestore: init encryption: %w", err)
		}
		b.gcm = gcm
	}
	return b, nil
}

func newGCM(passphrase string) (cipher.AEAD, error) {
	salt := sha256.Sum256([]byte("httpcache-securestore-salt-v1"))
	key, err := scrypt.Key([]byte(passphrase), salt[:], scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

func (b *Backend) hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (b *Backend) encrypt(data []byte) ([]byte, error) {
	if b.gcm == nil {
		return data, nil
	}
	nonce := make([]byte, b.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return b.gcm.Seal(nonce, nonce, data, nil), nil
}

func (b *Backend) decrypt(data []byte) ([]byte, error) {
	if b.gcm == nil {
		return data, nil
	}
	if len(data) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	return b.gcm.Open(nil, nonce, ciphertext, nil)
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	hashedKey := b.hashKey(key)
	data, ok, err := b.backend.Get(ctx, hashedKey)
	if err != nil || !ok {
		return nil, ok, err
	}
	plaintext, err := b.decrypt(data)
	if err != nil {
		return nil, false, fmt.Errorf("securestore: decrypt %q: %w", hashedKey, err)
	}
	return plaintext, true, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	hashedKey := b.hashKey(key)
	toStore, err := b.encrypt(value)
	if err != nil {
		return fmt.Errorf("securestore: encrypt %q: %w", hashedKey, err)
	}
	return b.backend.Set(ctx, hashedKey, toStore)
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	return b.backend.Delete(ctx, b.hashKey(key))
}

// IsEncrypted reports whether this Backend was configured with a passphrase.
func (b *Backend) IsEncrypted() bool { return b.gcm != nil }
