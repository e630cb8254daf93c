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

// Package ecies provides an Elliptic Curve Integrated Encryption Scheme
// transform for byte chains.
//
// ECIES combines:
//  1. ECDH for key agreement (ephemeral-static)
//  2. HKDF-SHA256 for key derivation
//  3. AES-256-GCM for authenticated encryption
//
// The output format is:
//
//	[ephemeral_public_key || nonce || tag || ciphertext]
//
// Where:
//   - ephemeral_public_key: 32 bytes for X25519, or an uncompressed point
//     (65/97/133 bytes for P-256/P-384/P-521)
//   - nonce: 12 bytes
//   - tag: 16 bytes
//   - ciphertext: same length as the plaintext
package ecies

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-cryptchain/pkg/transform"
	"golang.org/x/crypto/hkdf"
)

const (
	aesKeySize = 32
	nonceSize  = 12
	tagSize    = 16
)

var hkdfInfo = []byte("ecies-encryption")

var (
	// ErrMissingPublicKey is returned by Encrypt when no public key was supplied.
	ErrMissingPublicKey = errors.New("ecies: public key required to encrypt")

	// ErrMissingPrivateKey is returned by Decrypt when no private key was supplied.
	ErrMissingPrivateKey = errors.New("ecies: private key required to decrypt")

	// ErrCurveMismatch is returned when the two keys are on different curves.
	ErrCurveMismatch = errors.New("ecies: public and private key curves differ")

	// ErrCiphertextTooShort is returned when the input cannot hold the header.
	ErrCiphertextTooShort = errors.New("ecies: ciphertext too short")
)

// Transform is an ECIES transform.
type Transform struct {
	pub    *ecdh.PublicKey
	priv   *ecdh.PrivateKey
	curve  ecdh.Curve
	aad    []byte
	random io.Reader
}

// Option configures a Transform.
type Option func(*Transform)

// WithAdditionalData binds aad to every message.
func WithAdditionalData(aad []byte) Option {
	return func(t *Transform) {
		t.aad = append([]byte(nil), aad...)
	}
}

// WithRandom replaces crypto/rand as the source for ephemeral keys and nonces.
func WithRandom(r io.Reader) Option {
	return func(t *Transform) {
		t.random = r
	}
}

// New returns an ECIES transform for an ECDH key pair. Either key may be nil;
// when pub is nil the public half of priv is used.
func New(pub *ecdh.PublicKey, priv *ecdh.PrivateKey, opts ...Option) (*Transform, error) {
	if pub == nil && priv == nil {
		return nil, fmt.Errorf("%w: no key supplied", ErrMissingPublicKey)
	}
	if pub == nil {
		pub = priv.PublicKey()
	}
	if priv != nil && priv.Curve() != pub.Curve() {
		return nil, ErrCurveMismatch
	}
	t := &Transform{pub: pub, priv: priv, curve: pub.Curve(), random: rand.Reader}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// NewFromECDSA returns an ECIES transform for an ECDSA key pair on a NIST curve.
func NewFromECDSA(pub *ecdsa.PublicKey, priv *ecdsa.PrivateKey, opts ...Option) (*Transform, error) {
	var (
		epub  *ecdh.PublicKey
		epriv *ecdh.PrivateKey
		err   error
	)
	if pub != nil {
		if epub, err = pub.ECDH(); err != nil {
			return nil, fmt.Errorf("ecies: unsupported public key: %w", err)
		}
	}
	if priv != nil {
		if epriv, err = priv.ECDH(); err != nil {
			return nil, fmt.Errorf("ecies: unsupported private key: %w", err)
		}
	}
	return New(epub, epriv, opts...)
}

// Encrypt encrypts plaintext to the recipient public key.
//
// The encryption process:
//  1. Generate an ephemeral key pair on the recipient's curve
//  2. ECDH between the ephemeral private key and the recipient public key
//  3. Derive an AES-256 key from the shared secret with HKDF
//  4. Seal the plaintext with AES-256-GCM
func (t *Transform) Encrypt(plaintext []byte) ([]byte, error) {
	if t.pub == nil {
		return nil, ErrMissingPublicKey
	}

	ephemeral, err := t.curve.GenerateKey(t.random)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	shared, err := ephemeral.ECDH(t.pub)
	if err != nil {
		return nil, fmt.Errorf("ECDH failed: %w", err)
	}

	gcm, err := deriveGCM(shared)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(t.random, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := gcm.Seal(nil, nonce, plaintext, t.aad)
	body, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	ephemeralPub := ephemeral.PublicKey().Bytes()
	out := make([]byte, 0, len(ephemeralPub)+nonceSize+tagSize+len(body))
	out = append(out, ephemeralPub...)
	out = append(out, nonce...)
	out = append(out, tag...)
	return append(out, body...), nil
}

// Decrypt decrypts a message produced by Encrypt with the private key.
func (t *Transform) Decrypt(ciphertext []byte) ([]byte, error) {
	if t.priv == nil {
		return nil, ErrMissingPrivateKey
	}

	pubLen := len(t.pub.Bytes())
	if len(ciphertext) < pubLen+nonceSize+tagSize {
		return nil, fmt.Errorf("%w: got %d bytes, need at least %d",
			ErrCiphertextTooShort, len(ciphertext), pubLen+nonceSize+tagSize)
	}

	ephemeralPub, err := t.curve.NewPublicKey(ciphertext[:pubLen])
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal ephemeral public key: %w", err)
	}
	nonce := ciphertext[pubLen : pubLen+nonceSize]
	tag := ciphertext[pubLen+nonceSize : pubLen+nonceSize+tagSize]
	body := ciphertext[pubLen+nonceSize+tagSize:]

	shared, err := t.priv.ECDH(ephemeralPub)
	if err != nil {
		return nil, fmt.Errorf("ECDH failed: %w", err)
	}
	gcm, err := deriveGCM(shared)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(body)+tagSize)
	sealed = append(append(sealed, body...), tag...)
	plaintext, err := gcm.Open(nil, nonce, sealed, t.aad)
	if err != nil {
		return nil, fmt.Errorf("decryption failed (authentication error): %w", err)
	}
	return plaintext, nil
}

// Name implements transform.Named.
func (t *Transform) Name() string {
	return fmt.Sprintf("ecies-%v", t.curve)
}

func deriveGCM(shared []byte) (cipher.AEAD, error) {
	key := make([]byte, aesKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}
	defer clear(key)

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

var _ transform.Transform[[]byte] = (*Transform)(nil)
