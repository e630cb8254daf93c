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

package certfactory

import "errors"

// Parse errors
var (
	// ErrCertificateFormat is returned when encoded bytes are not a valid
	// certificate of the requested type, or when the type is unsupported.
	ErrCertificateFormat = errors.New("certfactory: invalid certificate encoding")

	// ErrUnsupportedCertificateType is returned alongside ErrCertificateFormat
	// when no provider understands the requested type name.
	ErrUnsupportedCertificateType = errors.New("certfactory: unsupported certificate type")
)

// Build errors
var (
	// ErrCertificateBuild is returned when a certificate cannot be assembled
	// or signed. Every build failure matches it.
	ErrCertificateBuild = errors.New("certfactory: certificate build failed")

	// ErrUnknownSignatureAlgorithm is returned alongside ErrCertificateBuild
	// for signature algorithm names that are not recognized.
	ErrUnknownSignatureAlgorithm = errors.New("certfactory: unknown signature algorithm")

	// ErrInvalidName is returned for subject or issuer strings that are not
	// valid distinguished names.
	ErrInvalidName = errors.New("certfactory: invalid distinguished name")

	// ErrInvalidSigner is returned when the private key cannot sign or does
	// not fit the signature algorithm.
	ErrInvalidSigner = errors.New("certfactory: invalid signer")

	// ErrSerialRequired is returned when no serial number is supplied.
	ErrSerialRequired = errors.New("certfactory: serial number required")
)
