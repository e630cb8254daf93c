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

package ecies

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	curves := []struct {
		name   string
		curve  ecdh.Curve
		pubLen int
	}{
		{"X25519", ecdh.X25519(), 32},
		{"P-256", ecdh.P256(), 65},
		{"P-384", ecdh.P384(), 97},
		{"P-521", ecdh.P521(), 133},
	}

	for _, tc := range curves {
		t.Run(tc.name, func(t *testing.T) {
			priv, err := tc.curve.GenerateKey(rand.Reader)
			require.NoError(t, err)

			tr, err := New(priv.PublicKey(), priv)
			require.NoError(t, err)
			assert.Equal(t, "ecies-"+tc.name, tr.Name())

			plaintext := []byte("Secret message for Bob")
			ciphertext, err := tr.Encrypt(plaintext)
			require.NoError(t, err)
			assert.Len(t, ciphertext, tc.pubLen+nonceSize+tagSize+len(plaintext))

			decrypted, err := tr.Decrypt(ciphertext)
			require.NoError(t, err)
			assert.Equal(t, plaintext, decrypted)
		})
	}
}

func TestNewFromECDSA(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	sender, err := NewFromECDSA(&priv.PublicKey, nil)
	require.NoError(t, err)
	recipient, err := NewFromECDSA(nil, priv)
	require.NoError(t, err)

	ciphertext, err := sender.Encrypt([]byte("hello"))
	require.NoError(t, err)

	_, err = sender.Decrypt(ciphertext)
	assert.ErrorIs(t, err, ErrMissingPrivateKey)

	plaintext, err := recipient.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), plaintext)
}

func TestNewErrors(t *testing.T) {
	_, err := New(nil, nil)
	assert.ErrorIs(t, err, ErrMissingPublicKey)

	p256, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	x25519, err := ecdh.X25519().GenerateKey(rand.Reader)
	require.NoError(t, err)

	_, err = New(x25519.PublicKey(), p256)
	assert.ErrorIs(t, err, ErrCurveMismatch)
}

func TestDecryptFailures(t *testing.T) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	tr, err := New(nil, priv)
	require.NoError(t, err)

	t.Run("too short", func(t *testing.T) {
		_, err := tr.Decrypt(make([]byte, 65+12+15))
		assert.ErrorIs(t, err, ErrCiphertextTooShort)
	})

	t.Run("invalid ephemeral key", func(t *testing.T) {
		_, err := tr.Decrypt(make([]byte, 65+12+16+4))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "ephemeral public key")
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		ciphertext, err := tr.Encrypt([]byte("hello"))
		require.NoError(t, err)
		ciphertext[len(ciphertext)-1] ^= 0xFF

		_, err = tr.Decrypt(ciphertext)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "authentication error")
	})

	t.Run("wrong recipient", func(t *testing.T) {
		other, err := ecdh.P256().GenerateKey(rand.Reader)
		require.NoError(t, err)
		otherTr, err := New(nil, other)
		require.NoError(t, err)

		ciphertext, err := tr.Encrypt([]byte("hello"))
		require.NoError(t, err)
		_, err = otherTr.Decrypt(ciphertext)
		assert.Error(t, err)
	})
}

func TestAdditionalData(t *testing.T) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	require.NoError(t, err)

	bound, err := New(nil, priv, WithAdditionalData([]byte("transaction-id-12345")))
	require.NoError(t, err)
	unbound, err := New(nil, priv)
	require.NoError(t, err)

	ciphertext, err := bound.Encrypt([]byte("Confidential data"))
	require.NoError(t, err)

	plaintext, err := bound.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, []byte("Confidential data"), plaintext)

	_, err = unbound.Decrypt(ciphertext)
	assert.Error(t, err)
}
