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

// Package jwe provides JSON Web Encryption (RFC 7516) as a text transform.
//
// Encrypt turns a string into a JWE compact serialization and Decrypt
// reverses it. The go-jose library performs all of the cryptography; this
// package only binds keys and algorithms so the result can sit in a
// transform.Chain[string].
//
// Supported modes:
//   - dir with A128GCM, A192GCM, A256GCM or A256CBC-HS512, selected by key length
//   - RSA-OAEP-256 key management with A256GCM content encryption
package jwe

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v4"
	"github.com/jeremyhahn/go-cryptchain/pkg/transform"
)

var (
	// ErrInvalidKeySize is returned for direct keys of unsupported length.
	ErrInvalidKeySize = errors.New("jwe: invalid direct key size")

	// ErrMissingPublicKey is returned by Encrypt when no public key was supplied.
	ErrMissingPublicKey = errors.New("jwe: public key required to encrypt")

	// ErrMissingPrivateKey is returned by Decrypt when no private key was supplied.
	ErrMissingPrivateKey = errors.New("jwe: private key required to decrypt")
)

// Transform is a JWE compact serialization transform.
type Transform struct {
	encrypter  jose.Encrypter
	decryptKey any
	keyAlg     jose.KeyAlgorithm
	contentAlg jose.ContentEncryption
}

// NewDirect returns a transform that uses key directly as the content
// encryption key ("alg":"dir"). The key length selects the algorithm:
// 16, 24 and 32 bytes select AES-GCM; 64 bytes select A256CBC-HS512.
func NewDirect(key []byte) (*Transform, error) {
	var enc jose.ContentEncryption
	switch len(key) {
	case 16:
		enc = jose.A128GCM
	case 24:
		enc = jose.A192GCM
	case 32:
		enc = jose.A256GCM
	case 64:
		enc = jose.A256CBC_HS512
	default:
		return nil, fmt.Errorf("%w: %d bytes (must be 16, 24, 32 or 64 bytes)", ErrInvalidKeySize, len(key))
	}

	k := append([]byte(nil), key...)
	encrypter, err := newEncrypter(jose.DIRECT, enc, k)
	if err != nil {
		return nil, err
	}
	return &Transform{encrypter: encrypter, decryptKey: k, keyAlg: jose.DIRECT, contentAlg: enc}, nil
}

// NewRSA returns a transform that wraps a per-message content key with
// RSA-OAEP-256. Either key may be nil; when pub is nil the public half of
// priv is used.
func NewRSA(pub *rsa.PublicKey, priv *rsa.PrivateKey) (*Transform, error) {
	if pub == nil && priv != nil {
		pub = &priv.PublicKey
	}
	t := &Transform{keyAlg: jose.RSA_OAEP_256, contentAlg: jose.A256GCM}
	if pub != nil {
		encrypter, err := newEncrypter(jose.RSA_OAEP_256, jose.A256GCM, pub)
		if err != nil {
			return nil, err
		}
		t.encrypter = encrypter
	}
	if priv != nil {
		t.decryptKey = priv
	}
	return t, nil
}

func newEncrypter(alg jose.KeyAlgorithm, enc jose.ContentEncryption, key any) (jose.Encrypter, error) {
	encrypter, err := jose.NewEncrypter(enc, jose.Recipient{
		Algorithm: alg,
		Key:       key,
	}, &jose.EncrypterOptions{Compression: jose.NONE})
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypter: %w", err)
	}
	return encrypter, nil
}

// Encrypt returns the JWE compact serialization of plaintext.
func (t *Transform) Encrypt(plaintext string) (string, error) {
	if t.encrypter == nil {
		return "", ErrMissingPublicKey
	}
	obj, err := t.encrypter.Encrypt([]byte(plaintext))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt: %w", err)
	}
	serialized, err := obj.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("failed to serialize JWE: %w", err)
	}
	return serialized, nil
}

// Decrypt parses a compact serialization and returns its plaintext. Only the
// algorithms this transform was built with are accepted.
func (t *Transform) Decrypt(serialized string) (string, error) {
	if t.decryptKey == nil {
		return "", ErrMissingPrivateKey
	}
	obj, err := jose.ParseEncrypted(serialized,
		[]jose.KeyAlgorithm{t.keyAlg},
		[]jose.ContentEncryption{t.contentAlg})
	if err != nil {
		return "", fmt.Errorf("failed to parse JWE: %w", err)
	}
	plaintext, err := obj.Decrypt(t.decryptKey)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}

// Name implements transform.Named.
func (t *Transform) Name() string {
	return fmt.Sprintf("jwe-%s-%s", t.keyAlg, t.contentAlg)
}

var _ transform.Transform[string] = (*Transform)(nil)
