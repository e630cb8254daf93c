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

// Package aes provides AES transforms for byte chains.
//
// Every transform generates a fresh IV or nonce per call and prepends it to
// the ciphertext:
//
//	GCM: nonce (12 bytes) || ciphertext || tag (16 bytes)
//	CBC: IV (16 bytes) || PKCS#7 padded ciphertext
//	CTR: IV (16 bytes) || ciphertext
//
// GCM authenticates the payload; CBC only detects bad padding; CTR detects
// nothing and returns corrupted output when decrypted with the wrong key.
package aes

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-cryptchain/pkg/transform"
)

var (
	// ErrInvalidKeySize is returned for keys that are not 16, 24 or 32 bytes.
	ErrInvalidKeySize = errors.New("aes: invalid key size")

	// ErrCiphertextTooShort is returned when the input cannot hold the IV or nonce.
	ErrCiphertextTooShort = errors.New("aes: ciphertext too short")

	// ErrInvalidPadding is returned when CBC padding does not verify.
	ErrInvalidPadding = errors.New("aes: invalid PKCS#7 padding")

	// ErrAuthentication is returned when a GCM tag does not verify.
	ErrAuthentication = errors.New("aes: message authentication failed")
)

// Option configures a GCM transform.
type Option func(*GCM)

// WithAdditionalData binds additional authenticated data to every message.
// The same data must be supplied to the decrypting transform.
func WithAdditionalData(aad []byte) Option {
	return func(g *GCM) {
		g.aad = append([]byte(nil), aad...)
	}
}

// WithRandom replaces crypto/rand as the nonce source.
func WithRandom(r io.Reader) Option {
	return func(g *GCM) {
		g.random = r
	}
}

func newBlock(key []byte) (cipher.Block, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d bytes (must be 16, 24 or 32 bytes)", ErrInvalidKeySize, len(key))
	}
	return aes.NewCipher(key)
}

// GCM is an AES-GCM transform.
type GCM struct {
	aead   cipher.AEAD
	aad    []byte
	random io.Reader
	name   string
}

// NewGCM returns an AES-GCM transform keyed with key.
func NewGCM(key []byte, opts ...Option) (*GCM, error) {
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	g := &GCM{
		aead:   aead,
		random: rand.Reader,
		name:   fmt.Sprintf("aes-%d-gcm", len(key)*8),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (g *GCM) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, g.aead.NonceSize(), g.aead.NonceSize()+len(plaintext)+g.aead.Overhead())
	if _, err := io.ReadFull(g.random, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return g.aead.Seal(nonce, nonce, plaintext, g.aad), nil
}

// Decrypt verifies and opens a message produced by Encrypt.
func (g *GCM) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := g.aead.NonceSize()
	if len(ciphertext) < nonceSize+g.aead.Overhead() {
		return nil, fmt.Errorf("%w: %d bytes", ErrCiphertextTooShort, len(ciphertext))
	}
	plaintext, err := g.aead.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], g.aad)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	return plaintext, nil
}

// Name implements transform.Named.
func (g *GCM) Name() string { return g.name }

// CBC is an AES-CBC transform with PKCS#7 padding.
type CBC struct {
	block  cipher.Block
	random io.Reader
	name   string
}

// NewCBC returns an AES-CBC transform keyed with key.
func NewCBC(key []byte) (*CBC, error) {
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}
	return &CBC{block: block, random: rand.Reader, name: fmt.Sprintf("aes-%d-cbc", len(key)*8)}, nil
}

// Encrypt pads plaintext and encrypts it under a fresh random IV.
func (c *CBC) Encrypt(plaintext []byte) ([]byte, error) {
	padded := pkcs7Pad(plaintext)
	out := make([]byte, aes.BlockSize+len(padded))
	iv := out[:aes.BlockSize]
	if _, err := io.ReadFull(c.random, iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out[aes.BlockSize:], padded)
	return out, nil
}

// Decrypt decrypts and unpads a message produced by Encrypt.
func (c *CBC) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 2*aes.BlockSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCiphertextTooShort, len(ciphertext))
	}
	body := ciphertext[aes.BlockSize:]
	if len(body)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("aes: ciphertext is not a multiple of the block size")
	}
	plaintext := make([]byte, len(body))
	cipher.NewCBCDecrypter(c.block, ciphertext[:aes.BlockSize]).CryptBlocks(plaintext, body)
	return pkcs7Unpad(plaintext)
}

// Name implements transform.Named.
func (c *CBC) Name() string { return c.name }

// CTR is an unauthenticated AES-CTR transform.
type CTR struct {
	block  cipher.Block
	random io.Reader
	name   string
}

// NewCTR returns an AES-CTR transform keyed with key.
func NewCTR(key []byte) (*CTR, error) {
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}
	return &CTR{block: block, random: rand.Reader, name: fmt.Sprintf("aes-%d-ctr", len(key)*8)}, nil
}

// Encrypt XORs plaintext with the key stream for a fresh random IV.
func (c *CTR) Encrypt(plaintext []byte) ([]byte, error) {
	out := make([]byte, aes.BlockSize+len(plaintext))
	iv := out[:aes.BlockSize]
	if _, err := io.ReadFull(c.random, iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}
	cipher.NewCTR(c.block, iv).XORKeyStream(out[aes.BlockSize:], plaintext)
	return out, nil
}

// Decrypt reverses Encrypt. A wrong key yields garbage, not an error.
func (c *CTR) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < aes.BlockSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCiphertextTooShort, len(ciphertext))
	}
	plaintext := make([]byte, len(ciphertext)-aes.BlockSize)
	cipher.NewCTR(c.block, ciphertext[:aes.BlockSize]).XORKeyStream(plaintext, ciphertext[aes.BlockSize:])
	return plaintext, nil
}

// Name implements transform.Named.
func (c *CTR) Name() string { return c.name }

func pkcs7Pad(src []byte) []byte {
	padding := aes.BlockSize - len(src)%aes.BlockSize
	return append(append(make([]byte, 0, len(src)+padding), src...), bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(src []byte) ([]byte, error) {
	n := len(src)
	if n == 0 {
		return nil, ErrInvalidPadding
	}
	padding := int(src[n-1])
	if padding == 0 || padding > aes.BlockSize || padding > n {
		return nil, ErrInvalidPadding
	}
	for _, b := range src[n-padding:] {
		if int(b) != padding {
			return nil, ErrInvalidPadding
		}
	}
	return src[:n-padding], nil
}

var (
	_ transform.Transform[[]byte] = (*GCM)(nil)
	_ transform.Transform[[]byte] = (*CBC)(nil)
	_ transform.Transform[[]byte] = (*CTR)(nil)
)
