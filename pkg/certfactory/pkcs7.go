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
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var (
	oidPKCS7Data       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}
	oidPKCS7SignedData = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 2}
)

// MarshalPKCS7 encodes certs as a degenerate PKCS#7 SignedData bundle with
// no content and no signers, the same shape as a .p7b/.p7c file. The result
// parses with ParseCertificate(TypePKCS7, ...).
func MarshalPKCS7(certs ...*x509.Certificate) ([]byte, error) {
	if len(certs) == 0 {
		return nil, errors.New("certfactory: no certificates to encode")
	}

	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(ci *cryptobyte.Builder) {
		ci.AddASN1ObjectIdentifier(oidPKCS7SignedData)
		ci.AddASN1(cbasn1.Tag(0).Constructed().ContextSpecific(), func(content *cryptobyte.Builder) {
			content.AddASN1(cbasn1.SEQUENCE, func(sd *cryptobyte.Builder) {
				sd.AddASN1Int64(1)
				sd.AddASN1(cbasn1.SET, func(*cryptobyte.Builder) {})
				sd.AddASN1(cbasn1.SEQUENCE, func(inner *cryptobyte.Builder) {
					inner.AddASN1ObjectIdentifier(oidPKCS7Data)
				})
				sd.AddASN1(cbasn1.Tag(0).Constructed().ContextSpecific(), func(set *cryptobyte.Builder) {
					for _, cert := range certs {
						set.AddBytes(cert.Raw)
					}
				})
				sd.AddASN1(cbasn1.Tag(1).Constructed().ContextSpecific(), func(*cryptobyte.Builder) {})
				sd.AddASN1(cbasn1.SET, func(*cryptobyte.Builder) {})
			})
		})
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("certfactory: failed to encode PKCS#7 bundle: %w", err)
	}
	return der, nil
}
