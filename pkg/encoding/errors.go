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

import "errors"

var (
	// ErrInvalidPrivateKey is returned when a private key is nil, malformed
	// or of an unsupported type
	ErrInvalidPrivateKey = errors.New("encoding: invalid private key")

	// ErrInvalidPublicKey is returned when a public key is nil, malformed
	// or of an unsupported type
	ErrInvalidPublicKey = errors.New("encoding: invalid public key")

	// ErrInvalidCertificate is returned when a certificate is nil
	ErrInvalidCertificate = errors.New("encoding: invalid certificate")

	// ErrInvalidData is returned when input is empty
	ErrInvalidData = errors.New("encoding: invalid data")

	// ErrInvalidPassword is returned when an encrypted key does not decrypt
	// with the supplied password
	ErrInvalidPassword = errors.New("encoding: invalid password")

	// ErrPasswordRequired is returned for encrypted keys when no password
	// is supplied
	ErrPasswordRequired = errors.New("encoding: password required")

	// ErrInvalidPEMEncoding is returned when no usable PEM block is found
	ErrInvalidPEMEncoding = errors.New("encoding: invalid PEM encoding")

	// ErrNotASigner is returned when a private key cannot produce
	// signatures, for example an X25519 key
	ErrNotASigner = errors.New("encoding: private key is not a signer")
)
