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
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestNew(t *testing.T) {
	t.Run("valid 32-byte key", func(t *testing.T) {
		cipher, err := New(generateKey(t))
		require.NoError(t, err)
		require.NotNil(t, cipher)

		assert.Equal(t, 12, cipher.NonceSize())
		assert.Equal(t, 28, cipher.Overhead())
		assert.Equal(t, "chacha20-poly1305", cipher.Name())
	})

	t.Run("invalid key size - too short", func(t *testing.T) {
		_, err := New(make([]byte, 16))
		assert.ErrorIs(t, err, ErrInvalidKeySize)
	})

	t.Run("invalid key size - too long", func(t *testing.T) {
		_, err := New(make([]byte, 64))
		assert.ErrorIs(t, err, ErrInvalidKeySize)
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := New([]byte{})
		assert.ErrorIs(t, err, ErrInvalidKeySize)
	})
}

func TestNewX(t *testing.T) {
	t.Run("valid 32-byte key", func(t *testing.T) {
		cipher, err := NewX(generateKey(t))
		require.NoError(t, err)

		// XChaCha20-Poly1305 uses 24-byte nonces
		assert.Equal(t, 24, cipher.NonceSize())
		assert.Equal(t, 40, cipher.Overhead())
		assert.Equal(t, "xchacha20-poly1305", cipher.Name())
	})

	t.Run("invalid key size", func(t *testing.T) {
		_, err := NewX(make([]byte, 16))
		assert.ErrorIs(t, err, ErrInvalidKeySize)
	})
}

func TestEncrypt(t *testing.T) {
	cipher, err := New(generateKey(t))
	require.NoError(t, err)

	t.Run("output layout", func(t *testing.T) {
		plaintext := []byte("Hello, ChaCha20-Poly1305!")

		ciphertext, err := cipher.Encrypt(plaintext)
		require.NoError(t, err)
		assert.Len(t, ciphertext, len(plaintext)+cipher.Overhead())
		assert.False(t, bytes.Contains(ciphertext, plaintext))
	})

	t.Run("empty plaintext", func(t *testing.T) {
		ciphertext, err := cipher.Encrypt([]byte{})
		require.NoError(t, err)
		assert.Len(t, ciphertext, cipher.Overhead())
	})

	t.Run("multiple encryptions produce different nonces", func(t *testing.T) {
		plaintext := []byte("Same message")

		c1, err := cipher.Encrypt(plaintext)
		require.NoError(t, err)
		c2, err := cipher.Encrypt(plaintext)
		require.NoError(t, err)

		assert.NotEqual(t, c1[:12], c2[:12])
		assert.NotEqual(t, c1, c2)
	})
}

func TestDecrypt(t *testing.T) {
	cipher, err := New(generateKey(t))
	require.NoError(t, err)

	t.Run("successful decryption", func(t *testing.T) {
		plaintext := []byte("Hello, ChaCha20-Poly1305!")

		ciphertext, err := cipher.Encrypt(plaintext)
		require.NoError(t, err)

		decrypted, err := cipher.Decrypt(ciphertext)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	})

	t.Run("decryption with additional data", func(t *testing.T) {
		withAAD := cipher.WithAdditionalData([]byte("context-info"))

		ciphertext, err := withAAD.Encrypt([]byte("Secret message"))
		require.NoError(t, err)

		decrypted, err := withAAD.Decrypt(ciphertext)
		require.NoError(t, err)
		assert.Equal(t, []byte("Secret message"), decrypted)
	})

	t.Run("wrong additional data fails", func(t *testing.T) {
		ciphertext, err := cipher.WithAdditionalData([]byte("context-info")).Encrypt([]byte("Secret message"))
		require.NoError(t, err)

		_, err = cipher.WithAdditionalData([]byte("wrong-context")).Decrypt(ciphertext)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "authentication error")

		_, err = cipher.Decrypt(ciphertext)
		assert.Error(t, err)
	})

	tamper := map[string]func(ct []byte){
		"tampered nonce fails":      func(ct []byte) { ct[0] ^= 0xFF },
		"tampered ciphertext fails": func(ct []byte) { ct[12] ^= 0xFF },
		"tampered tag fails":        func(ct []byte) { ct[len(ct)-1] ^= 0xFF },
	}
	for name, mutate := range tamper {
		t.Run(name, func(t *testing.T) {
			ciphertext, err := cipher.Encrypt([]byte("Important message"))
			require.NoError(t, err)

			mutate(ciphertext)

			_, err = cipher.Decrypt(ciphertext)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "authentication error")
		})
	}

	t.Run("ciphertext too short", func(t *testing.T) {
		_, err := cipher.Decrypt(make([]byte, 27))
		assert.ErrorIs(t, err, ErrCiphertextTooShort)
	})

	t.Run("wrong key fails", func(t *testing.T) {
		other, err := New(generateKey(t))
		require.NoError(t, err)

		ciphertext, err := cipher.Encrypt([]byte("Important message"))
		require.NoError(t, err)

		_, err = other.Decrypt(ciphertext)
		assert.Error(t, err)
	})
}

func TestXChaCha20Poly1305(t *testing.T) {
	cipher, err := NewX(generateKey(t))
	require.NoError(t, err)

	plaintext := []byte("Hello, XChaCha20-Poly1305!")

	ciphertext, err := cipher.Encrypt(plaintext)
	require.NoError(t, err)
	assert.Len(t, ciphertext, 24+len(plaintext)+16)

	decrypted, err := cipher.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestRoundTrip(t *testing.T) {
	testCases := []struct {
		name           string
		plaintext      string
		additionalData string
	}{
		{name: "simple message", plaintext: "Hello, World!"},
		{name: "with additional data", plaintext: "Secret message", additionalData: "context-info"},
		{name: "short message", plaintext: "x"},
		{name: "large message", plaintext: string(bytes.Repeat([]byte("A"), 10000))},
	}

	key := generateKey(t)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cipher, err := New(key)
			require.NoError(t, err)
			if tc.additionalData != "" {
				cipher = cipher.WithAdditionalData([]byte(tc.additionalData))
			}

			ciphertext, err := cipher.Encrypt([]byte(tc.plaintext))
			require.NoError(t, err)

			decrypted, err := cipher.Decrypt(ciphertext)
			require.NoError(t, err)
			assert.Equal(t, tc.plaintext, string(decrypted))
		})
	}
}
