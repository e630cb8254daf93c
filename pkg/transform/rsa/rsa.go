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

// Package rsa provides RSA transforms for byte chains.
//
// OAEP encrypts the payload directly and is limited to
// k - 2*hLen - 2 bytes, where k is the modulus size and hLen the hash size.
// Hybrid lifts the limit by wrapping a fresh AES-256 content key with
// RSA-OAEP-SHA256 for every message.
//
// Either key may be nil. A transform holding only the public key can only
// encrypt; one holding only the private key can only decrypt.
package rsa

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-cryptchain/pkg/transform"
)

var (
	// ErrMissingPublicKey is returned by Encrypt when no public key was supplied.
	ErrMissingPublicKey = errors.New("rsa: public key required to encrypt")

	// ErrMissingPrivateKey is returned by Decrypt when no private key was supplied.
	ErrMissingPrivateKey = errors.New("rsa: private key required to decrypt")

	// ErrUnsupportedHash is returned for OAEP hashes that are not available.
	ErrUnsupportedHash = errors.New("rsa: unsupported OAEP hash")

	// ErrMalformedCiphertext is returned when a hybrid message cannot be split.
	ErrMalformedCiphertext = errors.New("rsa: malformed hybrid ciphertext")
)

// OAEP is an RSA-OAEP transform.
type OAEP struct {
	pub   *rsa.PublicKey
	priv  *rsa.PrivateKey
	hash  crypto.Hash
	label []byte
}

// NewOAEP returns an RSA-OAEP transform. Supported hashes are SHA-1,
// SHA-256, SHA-384 and SHA-512. When pub is nil and priv is not, the public
// half of priv is used for encryption.
func NewOAEP(pub *rsa.PublicKey, priv *rsa.PrivateKey, hash crypto.Hash) (*OAEP, error) {
	switch hash {
	case crypto.SHA1, crypto.SHA256, crypto.SHA384, crypto.SHA512:
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedHash, hash)
	}
	if !hash.Available() {
		return nil, fmt.Errorf("%w: %v is not linked into the binary", ErrUnsupportedHash, hash)
	}
	if pub == nil && priv != nil {
		pub = &priv.PublicKey
	}
	if pub == nil && priv == nil {
		return nil, fmt.Errorf("%w: no key supplied", ErrMissingPublicKey)
	}
	return &OAEP{pub: pub, priv: priv, hash: hash}, nil
}

// WithLabel returns a copy of o that binds label to every message.
func (o *OAEP) WithLabel(label []byte) *OAEP {
	return &OAEP{pub: o.pub, priv: o.priv, hash: o.hash, label: append([]byte(nil), label...)}
}

// Encrypt encrypts plaintext with the public key.
func (o *OAEP) Encrypt(plaintext []byte) ([]byte, error) {
	if o.pub == nil {
		return nil, ErrMissingPublicKey
	}
	ciphertext, err := rsa.EncryptOAEP(o.hash.New(), rand.Reader, o.pub, plaintext, o.label)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt with RSA-OAEP: %w", err)
	}
	return ciphertext, nil
}

// Decrypt decrypts ciphertext with the private key.
func (o *OAEP) Decrypt(ciphertext []byte) ([]byte, error) {
	if o.priv == nil {
		return nil, ErrMissingPrivateKey
	}
	plaintext, err := rsa.DecryptOAEP(o.hash.New(), rand.Reader, o.priv, ciphertext, o.label)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt with RSA-OAEP: %w", err)
	}
	return plaintext, nil
}

// Name implements transform.Named.
func (o *OAEP) Name() string {
	return "rsa-oaep-" + hashName(o.hash)
}

// MaxPlaintextSize returns the largest payload Encrypt accepts.
func (o *OAEP) MaxPlaintextSize() int {
	return o.pub.Size() - 2*o.hash.Size() - 2
}

const contentKeySize = 32

// Hybrid is an RSA-OAEP-SHA256 + AES-256-GCM transform.
//
// Output layout:
//
//	uint16 wrapped key length || wrapped content key || nonce (12) || ciphertext || tag (16)
type Hybrid struct {
	wrap *OAEP
}

// NewHybrid returns a hybrid transform over the given key pair.
func NewHybrid(pub *rsa.PublicKey, priv *rsa.PrivateKey) (*Hybrid, error) {
	wrap, err := NewOAEP(pub, priv, crypto.SHA256)
	if err != nil {
		return nil, err
	}
	return &Hybrid{wrap: wrap}, nil
}

// Encrypt generates a content key, seals plaintext with it and wraps the key
// with the RSA public key.
func (h *Hybrid) Encrypt(plaintext []byte) ([]byte, error) {
	contentKey := make([]byte, contentKeySize)
	if _, err := io.ReadFull(rand.Reader, contentKey); err != nil {
		return nil, fmt.Errorf("failed to generate content key: %w", err)
	}
	defer clear(contentKey)

	wrapped, err := h.wrap.Encrypt(contentKey)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(contentKey)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 2, 2+len(wrapped)+len(nonce)+len(plaintext)+gcm.Overhead())
	binary.BigEndian.PutUint16(out, uint16(len(wrapped)))
	out = append(out, wrapped...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, nil), nil
}

// Decrypt unwraps the content key with the RSA private key and opens the payload.
func (h *Hybrid) Decrypt(ciphertext []byte) ([]byte, error) {
	if h.wrap.priv == nil {
		return nil, ErrMissingPrivateKey
	}
	if len(ciphertext) < 2 {
		return nil, ErrMalformedCiphertext
	}
	wrappedLen := int(binary.BigEndian.Uint16(ciphertext))
	rest := ciphertext[2:]
	if len(rest) < wrappedLen {
		return nil, fmt.Errorf("%w: wrapped key truncated", ErrMalformedCiphertext)
	}

	contentKey, err := h.wrap.Decrypt(rest[:wrappedLen])
	if err != nil {
		return nil, err
	}
	defer clear(contentKey)

	gcm, err := newGCM(contentKey)
	if err != nil {
		return nil, err
	}
	body := rest[wrappedLen:]
	if len(body) < gcm.NonceSize()+gcm.Overhead() {
		return nil, fmt.Errorf("%w: payload truncated", ErrMalformedCiphertext)
	}
	plaintext, err := gcm.Open(nil, body[:gcm.NonceSize()], body[gcm.NonceSize():], nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed (authentication error): %w", err)
	}
	return plaintext, nil
}

// Name implements transform.Named.
func (h *Hybrid) Name() string { return "rsa-oaep-sha256+aes-256-gcm" }

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

func hashName(h crypto.Hash) string {
	switch h {
	case crypto.SHA1:
		return "sha1"
	case crypto.SHA256:
		return "sha256"
	case crypto.SHA384:
		return "sha384"
	case crypto.SHA512:
		return "sha512"
	default:
		return h.String()
	}
}

var (
	_ transform.Transform[[]byte] = (*OAEP)(nil)
	_ transform.Transform[[]byte] = (*Hybrid)(nil)
)
