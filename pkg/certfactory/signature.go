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
	"fmt"
	"sort"
	"strings"
)

// signatureAlgorithms maps normalized names to algorithms. Names are
// normalized by upper-casing and removing spaces, dashes and underscores, so
// "SHA256withRSA", "SHA256-RSA" and "sha256_rsa" are all accepted.
var signatureAlgorithms = map[string]x509.SignatureAlgorithm{
	// JCA spellings
	"SHA1WITHRSA":            x509.SHA1WithRSA,
	"SHA256WITHRSA":          x509.SHA256WithRSA,
	"SHA384WITHRSA":          x509.SHA384WithRSA,
	"SHA512WITHRSA":          x509.SHA512WithRSA,
	"SHA256WITHRSAANDMGF1":   x509.SHA256WithRSAPSS,
	"SHA384WITHRSAANDMGF1":   x509.SHA384WithRSAPSS,
	"SHA512WITHRSAANDMGF1":   x509.SHA512WithRSAPSS,
	"SHA256WITHRSA/PSS":      x509.SHA256WithRSAPSS,
	"SHA384WITHRSA/PSS":      x509.SHA384WithRSAPSS,
	"SHA512WITHRSA/PSS":      x509.SHA512WithRSAPSS,
	"SHA1WITHECDSA":          x509.ECDSAWithSHA1,
	"SHA256WITHECDSA":        x509.ECDSAWithSHA256,
	"SHA384WITHECDSA":        x509.ECDSAWithSHA384,
	"SHA512WITHECDSA":        x509.ECDSAWithSHA512,
	"ED25519":                x509.PureEd25519,
	"PUREED25519":            x509.PureEd25519,

	// crypto/x509 spellings
	"SHA1RSA":      x509.SHA1WithRSA,
	"SHA256RSA":    x509.SHA256WithRSA,
	"SHA384RSA":    x509.SHA384WithRSA,
	"SHA512RSA":    x509.SHA512WithRSA,
	"SHA256RSAPSS": x509.SHA256WithRSAPSS,
	"SHA384RSAPSS": x509.SHA384WithRSAPSS,
	"SHA512RSAPSS": x509.SHA512WithRSAPSS,
	"ECDSASHA1":    x509.ECDSAWithSHA1,
	"ECDSASHA256":  x509.ECDSAWithSHA256,
	"ECDSASHA384":  x509.ECDSAWithSHA384,
	"ECDSASHA512":  x509.ECDSAWithSHA512,
}

// ParseSignatureAlgorithm resolves a signature algorithm name. Unknown names
// fail with ErrUnknownSignatureAlgorithm; no default is ever substituted.
func ParseSignatureAlgorithm(name string) (x509.SignatureAlgorithm, error) {
	normalized := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToUpper(strings.TrimSpace(name)))
	if alg, ok := signatureAlgorithms[normalized]; ok {
		return alg, nil
	}
	return x509.UnknownSignatureAlgorithm, fmt.Errorf("%w: %q", ErrUnknownSignatureAlgorithm, name)
}

// SignatureAlgorithmNames returns the accepted JCA style names, sorted.
func SignatureAlgorithmNames() []string {
	names := []string{
		"SHA1withRSA", "SHA256withRSA", "SHA384withRSA", "SHA512withRSA",
		"SHA256withRSAandMGF1", "SHA384withRSAandMGF1", "SHA512withRSAandMGF1",
		"SHA1withECDSA", "SHA256withECDSA", "SHA384withECDSA", "SHA512withECDSA",
		"Ed25519",
	}
	sort.Strings(names)
	return names
}

// algorithmInfo describes how a v1 certificate is signed with an algorithm.
type algorithmInfo struct {
	oid        asn1.ObjectIdentifier
	hash       crypto.Hash
	nullParams bool
}

var (
	oidSHA1WithRSA     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 5}
	oidSHA256WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}
	oidSHA384WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 12}
	oidSHA512WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 13}
	oidECDSAWithSHA1   = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 1}
	oidECDSAWithSHA256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}
	oidECDSAWithSHA384 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 3}
	oidECDSAWithSHA512 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 4}
	oidEd25519         = asn1.ObjectIdentifier{1, 3, 101, 112}
)

const (
	keyRSA     = "RSA"
	keyECDSA   = "ECDSA"
	keyEd25519 = "Ed25519"
)

// v1Algorithms lists the algorithms a v1 certificate can be signed with.
// RSA-PSS needs parameters that only make sense alongside v3 extensions and
// is left out.
var v1Algorithms = map[x509.SignatureAlgorithm]algorithmInfo{
	x509.SHA1WithRSA:     {oidSHA1WithRSA, crypto.SHA1, true},
	x509.SHA256WithRSA:   {oidSHA256WithRSA, crypto.SHA256, true},
	x509.SHA384WithRSA:   {oidSHA384WithRSA, crypto.SHA384, true},
	x509.SHA512WithRSA:   {oidSHA512WithRSA, crypto.SHA512, true},
	x509.ECDSAWithSHA1:   {oidECDSAWithSHA1, crypto.SHA1, false},
	x509.ECDSAWithSHA256: {oidECDSAWithSHA256, crypto.SHA256, false},
	x509.ECDSAWithSHA384: {oidECDSAWithSHA384, crypto.SHA384, false},
	x509.ECDSAWithSHA512: {oidECDSAWithSHA512, crypto.SHA512, false},
	x509.PureEd25519:     {oidEd25519, 0, false},
}

// keyTypeOf names the algorithm family of a public key.
func keyTypeOf(pub crypto.PublicKey) string {
	switch pub.(type) {
	case *rsa.PublicKey:
		return keyRSA
	case *ecdsa.PublicKey:
		return keyECDSA
	case ed25519.PublicKey:
		return keyEd25519
	default:
		return fmt.Sprintf("%T", pub)
	}
}

// algorithmKeyType names the key family an algorithm signs with.
func algorithmKeyType(alg x509.SignatureAlgorithm) string {
	switch alg {
	case x509.SHA1WithRSA, x509.SHA256WithRSA, x509.SHA384WithRSA, x509.SHA512WithRSA,
		x509.SHA256WithRSAPSS, x509.SHA384WithRSAPSS, x509.SHA512WithRSAPSS:
		return keyRSA
	case x509.ECDSAWithSHA1, x509.ECDSAWithSHA256, x509.ECDSAWithSHA384, x509.ECDSAWithSHA512:
		return keyECDSA
	case x509.PureEd25519:
		return keyEd25519
	default:
		return ""
	}
}

// checkSigner verifies that signer can produce signatures for alg.
func checkSigner(signer crypto.Signer, alg x509.SignatureAlgorithm) error {
	want := algorithmKeyType(alg)
	got := keyTypeOf(signer.Public())
	if want == "" || want != got {
		return fmt.Errorf("%w: %s key cannot sign %s", ErrInvalidSigner, got, alg)
	}
	return nil
}
