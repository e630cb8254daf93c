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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignatureAlgorithm(t *testing.T) {
	tests := []struct {
		name string
		want x509.SignatureAlgorithm
	}{
		{"SHA256withRSA", x509.SHA256WithRSA},
		{"sha256withrsa", x509.SHA256WithRSA},
		{"SHA256-RSA", x509.SHA256WithRSA},
		{"sha256_rsa", x509.SHA256WithRSA},
		{" SHA256 with RSA ", x509.SHA256WithRSA},
		{"SHA1withRSA", x509.SHA1WithRSA},
		{"SHA512withRSA", x509.SHA512WithRSA},
		{"SHA384withRSAandMGF1", x509.SHA384WithRSAPSS},
		{"SHA256withRSA/PSS", x509.SHA256WithRSAPSS},
		{"SHA512-RSAPSS", x509.SHA512WithRSAPSS},
		{"SHA256withECDSA", x509.ECDSAWithSHA256},
		{"ECDSA-SHA512", x509.ECDSAWithSHA512},
		{"SHA1withECDSA", x509.ECDSAWithSHA1},
		{"Ed25519", x509.PureEd25519},
		{"PureEd25519", x509.PureEd25519},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSignatureAlgorithm(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSignatureAlgorithmUnknown(t *testing.T) {
	for _, name := range []string{"", "MD5withRSA", "SHA256", "RSA", "SHA256withDSA", "Ed448"} {
		got, err := ParseSignatureAlgorithm(name)
		assert.ErrorIs(t, err, ErrUnknownSignatureAlgorithm, name)
		assert.Equal(t, x509.UnknownSignatureAlgorithm, got, name)
	}
}

func TestSignatureAlgorithmNames(t *testing.T) {
	names := SignatureAlgorithmNames()
	assert.IsNonDecreasing(t, names)
	for _, name := range names {
		_, err := ParseSignatureAlgorithm(name)
		assert.NoError(t, err, name)
	}
}

func TestV1AlgorithmsExcludePSS(t *testing.T) {
	for alg := range v1Algorithms {
		assert.NotContains(t, []x509.SignatureAlgorithm{
			x509.SHA256WithRSAPSS, x509.SHA384WithRSAPSS, x509.SHA512WithRSAPSS,
		}, alg)
	}
}

func TestCheckSigner(t *testing.T) {
	rsaKey := testRSAKey(t)
	ecKey := testECDSAKey(t)
	edKey := testEd25519Key(t)

	assert.NoError(t, checkSigner(rsaKey, x509.SHA256WithRSA))
	assert.NoError(t, checkSigner(rsaKey, x509.SHA256WithRSAPSS))
	assert.NoError(t, checkSigner(ecKey, x509.ECDSAWithSHA256))
	assert.NoError(t, checkSigner(edKey, x509.PureEd25519))

	assert.ErrorIs(t, checkSigner(rsaKey, x509.ECDSAWithSHA256), ErrInvalidSigner)
	assert.ErrorIs(t, checkSigner(ecKey, x509.PureEd25519), ErrInvalidSigner)
	assert.ErrorIs(t, checkSigner(edKey, x509.SHA256WithRSA), ErrInvalidSigner)
	assert.ErrorIs(t, checkSigner(ecKey, x509.UnknownSignatureAlgorithm), ErrInvalidSigner)
}
