// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-cryptchain.
//
// go-cryptchain is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package chacha20poly1305

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-cryptchain/pkg/transform"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	// ErrInvalidKeySize is returned for keys that are not 32 bytes.
	ErrInvalidKeySize = errors.New("chacha20poly1305: invalid key size")

	// ErrCiphertextTooShort is returned when the input cannot hold a nonce and tag.
	ErrCiphertextTooShort = errors.New("chacha20poly1305: ciphertext too short")
)

// Cipher is a ChaCha20-Poly1305 transform.
//
// Output layout: nonce || ciphertext || tag (16 bytes). The nonce is 12 bytes
// for ChaCha20-Poly1305 and 24 bytes for XChaCha20-Poly1305.
//
// Use the X variant when a single key encrypts a very large number of
// messages, since random 96-bit nonces start to collide long before random
// 192-bit ones.
type Cipher struct {
	aead      cipher.AEAD
	aad       []byte
	algorithm string
}

// New creates a ChaCha20-Poly1305 transform with a 32-byte key.
//
// Example:
//
//	c, err := chacha20poly1305.New(key)
//	if err != nil {
//	    return err
//	}
//	ciphertext, err := c.Encrypt(plaintext)
func New(key []byte) (*Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("%w: %d bytes (must be 32 bytes)", ErrInvalidKeySize, len(key))
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create ChaCha20-Poly1305 cipher: %w", err)
	}

	return &Cipher{aead: aead, algorithm: "chacha20-poly1305"}, nil
}

// NewX creates an XChaCha20-Poly1305 transform with a 32-byte key.
func NewX(key []byte) (*Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("%w: %d bytes (must be 32 bytes)", ErrInvalidKeySize, len(key))
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create XChaCha20-Poly1305 cipher: %w", err)
	}

	return &Cipher{aead: aead, algorithm: "xchacha20-poly1305"}, nil
}

// WithAdditionalData returns a copy of c that binds aad to every message.
func (c *Cipher) WithAdditionalData(aad []byte) *Cipher {
	return &Cipher{aead: c.aead, aad: append([]byte(nil), aad...), algorithm: c.algorithm}
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	nonce := make([]byte, nonceSize, nonceSize+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends ciphertext and tag after the nonce
	return c.aead.Seal(nonce, nonce, plaintext, c.aad), nil
}

// Decrypt verifies the tag and returns the plaintext. Any tampering with the
// nonce, ciphertext, tag or additional data is reported as an error.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(ciphertext) < nonceSize+c.aead.Overhead() {
		return nil, fmt.Errorf("%w: %d bytes", ErrCiphertextTooShort, len(ciphertext))
	}

	plaintext, err := c.aead.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], c.aad)
	if err != nil {
		return nil, fmt.Errorf("decryption failed (authentication error): %w", err)
	}

	return plaintext, nil
}

// NonceSize returns the nonce size (12 or 24 bytes).
func (c *Cipher) NonceSize() int {
	return c.aead.NonceSize()
}

// Overhead returns the number of bytes Encrypt adds to a plaintext.
func (c *Cipher) Overhead() int {
	return c.aead.NonceSize() + c.aead.Overhead()
}

// Name implements transform.Named.
func (c *Cipher) Name() string {
	return c.algorithm
}

var _ transform.Transform[[]byte] = (*Cipher)(nil)
