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

// Package encoding reads and writes the PEM key and certificate files used
// by cryptchain pipelines and certificate commands. Encrypted PKCS#8 keys
// are handled with github.com/youmark/pkcs8.
package encoding

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// PEM block types
const (
	PEMTypeRSAPrivateKey       = "RSA PRIVATE KEY"
	PEMTypeECPrivateKey        = "EC PRIVATE KEY"
	PEMTypePrivateKey          = "PRIVATE KEY"
	PEMTypeEncryptedPrivateKey = "ENCRYPTED PRIVATE KEY"
	PEMTypePublicKey           = "PUBLIC KEY"
	PEMTypeRSAPublicKey        = "RSA PUBLIC KEY"
	PEMTypeCertificate         = "CERTIFICATE"
	PEMTypePKCS7               = "PKCS7"
)

// EncodePrivateKeyPEM encodes a private key as PKCS#8 PEM. With a password
// the block is "ENCRYPTED PRIVATE KEY", otherwise "PRIVATE KEY".
//
// Example:
//
//	pemData, err := encoding.EncodePrivateKeyPEM(privateKey, []byte("password"))
func EncodePrivateKeyPEM(privateKey crypto.PrivateKey, password []byte) ([]byte, error) {
	der, err := EncodePKCS8(privateKey, password)
	if err != nil {
		return nil, err
	}
	blockType := PEMTypePrivateKey
	if len(password) > 0 {
		blockType = PEMTypeEncryptedPrivateKey
	}
	return encodeBlocks(blockType, der)
}

// DecodePrivateKeyPEM decodes the first private key block in data. PKCS#8
// (plain or encrypted), PKCS#1 RSA and SEC 1 EC blocks are accepted. Other
// blocks, such as "EC PARAMETERS" written by openssl, are skipped.
//
// Example:
//
//	key, err := encoding.DecodePrivateKeyPEM(pemData, nil)
//	rsaKey := key.(*rsa.PrivateKey)
func DecodePrivateKeyPEM(data []byte, password []byte) (crypto.PrivateKey, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}

	for rest := data; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, fmt.Errorf("%w: no private key block", ErrInvalidPEMEncoding)
		}

		switch block.Type {
		case PEMTypePrivateKey, PEMTypeEncryptedPrivateKey:
			return DecodePKCS8(block.Bytes, password)
		case PEMTypeRSAPrivateKey:
			key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidPrivateKey, err)
			}
			return key, nil
		case PEMTypeECPrivateKey:
			key, err := x509.ParseECPrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidPrivateKey, err)
			}
			return key, nil
		}
	}
}

// DecodeSignerPEM decodes a private key that can sign, as certificate
// issuance requires.
func DecodeSignerPEM(data []byte, password []byte) (crypto.Signer, error) {
	key, err := DecodePrivateKeyPEM(data, password)
	if err != nil {
		return nil, err
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotASigner, key)
	}
	return signer, nil
}

// EncodePublicKeyPEM encodes a public key as a "PUBLIC KEY" block.
func EncodePublicKeyPEM(publicKey crypto.PublicKey) ([]byte, error) {
	der, err := EncodePublicKeyPKIX(publicKey)
	if err != nil {
		return nil, err
	}
	return encodeBlocks(PEMTypePublicKey, der)
}

// DecodePublicKeyPEM decodes the first public key found in data. Besides
// "PUBLIC KEY" and "RSA PUBLIC KEY" blocks, the key of a "CERTIFICATE" block
// or the public half of a private key block is returned, so a pipeline can
// point its public_key_file at whichever file is at hand.
func DecodePublicKeyPEM(data []byte) (crypto.PublicKey, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}

	for rest := data; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, fmt.Errorf("%w: no public key block", ErrInvalidPEMEncoding)
		}

		switch block.Type {
		case PEMTypePublicKey:
			return DecodePublicKeyPKIX(block.Bytes)
		case PEMTypeRSAPublicKey:
			pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
			}
			return pub, nil
		case PEMTypeCertificate:
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
			}
			return cert.PublicKey, nil
		case PEMTypePrivateKey, PEMTypeRSAPrivateKey, PEMTypeECPrivateKey:
			key, err := DecodePrivateKeyPEM(pem.EncodeToMemory(block), nil)
			if err != nil {
				return nil, err
			}
			pub, ok := key.(interface{ Public() crypto.PublicKey })
			if !ok {
				return nil, fmt.Errorf("%w: %T has no public half", ErrInvalidPublicKey, key)
			}
			return pub.Public(), nil
		}
	}
}

// EncodeCertificatePEM encodes one or more certificates as consecutive
// "CERTIFICATE" blocks, in the order given.
func EncodeCertificatePEM(certs ...*x509.Certificate) ([]byte, error) {
	if len(certs) == 0 {
		return nil, ErrInvalidCertificate
	}
	ders := make([][]byte, 0, len(certs))
	for _, cert := range certs {
		if cert == nil {
			return nil, ErrInvalidCertificate
		}
		ders = append(ders, cert.Raw)
	}
	return encodeBlocks(PEMTypeCertificate, ders...)
}

// DecodeCertificatesPEM returns every certificate in data, in order.
func DecodeCertificatesPEM(data []byte) ([]*x509.Certificate, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}

	var certs []*x509.Certificate
	for rest := data; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != PEMTypeCertificate {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCertificate, err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("%w: no certificate block", ErrInvalidPEMEncoding)
	}
	return certs, nil
}

// EncodePEM wraps DER bytes in a single block of the given type.
func EncodePEM(blockType string, der []byte) ([]byte, error) {
	return encodeBlocks(blockType, der)
}

func encodeBlocks(blockType string, ders ...[]byte) ([]byte, error) {
	var buf bytes.Buffer
	for _, der := range ders {
		if err := pem.Encode(&buf, &pem.Block{Type: blockType, Bytes: der}); err != nil {
			return nil, fmt.Errorf("failed to encode PEM: %w", err)
		}
	}
	return buf.Bytes(), nil
}
