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

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// createV1 encodes a TBSCertificate without the version field or any
// extensions, signs it and parses the result back.
//
//	TBSCertificate ::= SEQUENCE {
//	    serialNumber         INTEGER,
//	    signature            AlgorithmIdentifier,
//	    issuer               Name,
//	    validity             Validity,
//	    subject              Name,
//	    subjectPublicKeyInfo SubjectPublicKeyInfo }
func (p *X509Provider) createV1(tmpl *Template, signer crypto.Signer) (*x509.Certificate, error) {
	info, ok := v1Algorithms[tmpl.SignatureAlgorithm]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not available for v1 certificates", ErrUnknownSignatureAlgorithm, tmpl.SignatureAlgorithm)
	}
	if tmpl.SerialNumber == nil {
		return nil, ErrSerialRequired
	}

	pub := tmpl.PublicKey
	if pub == nil {
		pub = signer.Public()
	}
	spki, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to encode public key: %w", err)
	}
	issuer, err := asn1.Marshal(tmpl.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to encode issuer: %w", err)
	}
	subject, err := asn1.Marshal(tmpl.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to encode subject: %w", err)
	}

	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(tbs *cryptobyte.Builder) {
		tbs.AddASN1BigInt(tmpl.SerialNumber)
		addAlgorithmIdentifier(tbs, info)
		tbs.AddBytes(issuer)
		tbs.AddASN1(cbasn1.SEQUENCE, func(validity *cryptobyte.Builder) {
			addTime(validity, tmpl.NotBefore)
			addTime(validity, tmpl.NotAfter)
		})
		tbs.AddBytes(subject)
		tbs.AddBytes(spki)
	})
	tbs, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode TBS certificate: %w", err)
	}

	digest := tbs
	if info.hash != 0 {
		h := info.hash.New()
		h.Write(tbs)
		digest = h.Sum(nil)
	}
	signature, err := signer.Sign(p.random(), digest, info.hash)
	if err != nil {
		return nil, fmt.Errorf("failed to sign certificate: %w", err)
	}
	if err := verifySignature(signer.Public(), info.hash, digest, signature); err != nil {
		return nil, err
	}

	b = cryptobyte.Builder{}
	b.AddASN1(cbasn1.SEQUENCE, func(cert *cryptobyte.Builder) {
		cert.AddBytes(tbs)
		addAlgorithmIdentifier(cert, info)
		cert.AddASN1BitString(signature)
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created certificate: %w", err)
	}
	return cert, nil
}

func addAlgorithmIdentifier(b *cryptobyte.Builder, info algorithmInfo) {
	b.AddASN1(cbasn1.SEQUENCE, func(alg *cryptobyte.Builder) {
		alg.AddASN1ObjectIdentifier(info.oid)
		if info.nullParams {
			alg.AddASN1NULL()
		}
	})
}

// addTime writes t as UTCTime for years 1950 through 2049 and as
// GeneralizedTime otherwise, always in UTC.
func addTime(b *cryptobyte.Builder, t time.Time) {
	t = t.UTC().Truncate(time.Second)
	if y := t.Year(); y >= 1950 && y < 2050 {
		b.AddASN1UTCTime(t)
		return
	}
	b.AddASN1GeneralizedTime(t)
}

// verifySignature checks the signature against the signer's public key so a
// misbehaving signer never yields a certificate.
func verifySignature(pub crypto.PublicKey, hash crypto.Hash, digest, signature []byte) error {
	var ok bool
	switch key := pub.(type) {
	case *rsa.PublicKey:
		ok = rsa.VerifyPKCS1v15(key, hash, digest, signature) == nil
	case *ecdsa.PublicKey:
		ok = ecdsa.VerifyASN1(key, digest, signature)
	case ed25519.PublicKey:
		ok = ed25519.Verify(key, digest, signature)
	default:
		return fmt.Errorf("%w: unsupported public key type %T", ErrInvalidSigner, pub)
	}
	if !ok {
		return errors.New("signature produced by signer does not verify")
	}
	return nil
}
