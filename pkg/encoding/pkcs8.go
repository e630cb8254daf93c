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

package encoding

import (
	"crypto"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"strings"

	"github.com/youmark/pkcs8"
)

// EncodePKCS8 encodes a private key as PKCS#8 DER, encrypted when password
// is non-empty.
//
// Supported key types: *rsa.PrivateKey, *ecdsa.PrivateKey,
// ed25519.PrivateKey and *ecdh.PrivateKey
func EncodePKCS8(privateKey crypto.PrivateKey, password []byte) ([]byte, error) {
	if privateKey == nil {
		return nil, ErrInvalidPrivateKey
	}

	var (
		der []byte
		err error
	)
	if len(password) == 0 {
		der, err = x509.MarshalPKCS8PrivateKey(privateKey)
	} else {
		der, err = pkcs8.MarshalPrivateKey(privateKey, password, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal PKCS#8: %w", ErrInvalidPrivateKey, err)
	}
	return der, nil
}

// DecodePKCS8 decodes PKCS#8 DER, encrypted or not. Encrypted input without
// a password fails with ErrPasswordRequired; a wrong password fails with
// ErrInvalidPassword.
func DecodePKCS8(data []byte, password []byte) (crypto.PrivateKey, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}

	if len(password) == 0 {
		key, err := x509.ParsePKCS8PrivateKey(data)
		if err == nil {
			return key, nil
		}
		if isEncryptedPKCS8(data) {
			return nil, ErrPasswordRequired
		}
		return nil, fmt.Errorf("%w: failed to parse PKCS#8: %w", ErrInvalidPrivateKey, err)
	}

	key, err := pkcs8.ParsePKCS8PrivateKey(data, password)
	if err != nil {
		if isPasswordError(err) {
			return nil, ErrInvalidPassword
		}
		return nil, fmt.Errorf("%w: failed to parse PKCS#8: %w", ErrInvalidPrivateKey, err)
	}
	return key, nil
}

// encryptedPrivateKeyInfo is the RFC 5208 wrapper around an encrypted key.
type encryptedPrivateKeyInfo struct {
	Algorithm     pkix.AlgorithmIdentifier
	EncryptedData []byte
}

func isEncryptedPKCS8(data []byte) bool {
	var info encryptedPrivateKeyInfo
	rest, err := asn1.Unmarshal(data, &info)
	return err == nil && len(rest) == 0 && len(info.EncryptedData) > 0
}

// isPasswordError reports whether err comes from decrypting with the wrong
// password. A wrong password usually fails the padding check but can also
// yield garbage that fails to parse as ASN.1.
func isPasswordError(err error) bool {
	msg := err.Error()
	for _, s := range []string{"incorrect password", "asn1: structure error", "asn1: syntax error", "tags don't match"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// EncodePublicKeyPKIX encodes a public key as SubjectPublicKeyInfo DER.
func EncodePublicKeyPKIX(publicKey crypto.PublicKey) ([]byte, error) {
	if publicKey == nil {
		return nil, ErrInvalidPublicKey
	}
	der, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal PKIX public key: %w", ErrInvalidPublicKey, err)
	}
	return der, nil
}

// DecodePublicKeyPKIX decodes SubjectPublicKeyInfo DER.
func DecodePublicKeyPKIX(data []byte) (crypto.PublicKey, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}
	pub, err := x509.ParsePKIXPublicKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse PKIX public key: %w", ErrInvalidPublicKey, err)
	}
	return pub, nil
}
