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
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"
	"net"
	"strings"
	"time"

	"github.com/cloudflare/cfssl/crypto/pkcs7"
)

// Certificate type names understood by X509Provider. Matching is
// case-insensitive.
const (
	TypeX509  = "X.509"
	TypePKCS7 = "PKCS7"
)

// Template carries everything a provider needs to assemble and sign a
// certificate. Names are already parsed; the provider only encodes.
type Template struct {
	// Version is 1 or 3. Zero means 3.
	Version int

	SerialNumber       *big.Int
	Subject            pkix.RDNSequence
	Issuer             pkix.RDNSequence
	NotBefore          time.Time
	NotAfter           time.Time
	PublicKey          crypto.PublicKey
	SignatureAlgorithm x509.SignatureAlgorithm

	// v3 only
	KeyUsage       x509.KeyUsage
	ExtKeyUsage    []x509.ExtKeyUsage
	DNSNames       []string
	EmailAddresses []string
	IPAddresses    []net.IP

	// BasicConstraintsValid emits the basicConstraints extension carrying
	// IsCA and the path length. Without it the certificate has none.
	BasicConstraintsValid bool
	IsCA                  bool
	MaxPathLen            int
	MaxPathLenZero        bool
}

// Provider is the crypto boundary of the factory. Implementations decode
// certificates and sign templates; the factory handles name parsing,
// algorithm lookup, logging and metrics around them.
type Provider interface {
	// ParseCertificate decodes data as a certificate of the named type.
	ParseCertificate(certType string, data []byte) (*x509.Certificate, error)

	// CreateCertificate assembles tmpl, signs it with signer and returns
	// the parsed result.
	CreateCertificate(tmpl *Template, signer crypto.Signer) (*x509.Certificate, error)
}

// X509Provider implements Provider with crypto/x509, cryptobyte and the
// cfssl PKCS#7 parser.
type X509Provider struct {
	// Random is the entropy source for signing. Nil means crypto/rand.
	Random io.Reader
}

// NewX509Provider returns the default provider.
func NewX509Provider() *X509Provider {
	return &X509Provider{}
}

func (p *X509Provider) random() io.Reader {
	if p.Random != nil {
		return p.Random
	}
	return rand.Reader
}

// ParseCertificate accepts "X.509" (or "X509") with DER or PEM input, and
// "PKCS7" (or "PKCS#7") with a DER or PEM SignedData bundle, from which the
// first certificate is returned.
func (p *X509Provider) ParseCertificate(certType string, data []byte) (*x509.Certificate, error) {
	switch strings.ToUpper(strings.TrimSpace(certType)) {
	case "X.509", "X509":
		return parseX509(data)
	case "PKCS7", "PKCS#7":
		return parsePKCS7(data)
	default:
		return nil, fmt.Errorf("%w: %w: %q", ErrCertificateFormat, ErrUnsupportedCertificateType, certType)
	}
}

func parseX509(data []byte) (*x509.Certificate, error) {
	if block, _ := pem.Decode(data); block != nil {
		if block.Type != "CERTIFICATE" {
			return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrCertificateFormat, block.Type)
		}
		data = block.Bytes
	}
	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCertificateFormat, err)
	}
	return cert, nil
}

func parsePKCS7(data []byte) (*x509.Certificate, error) {
	if block, _ := pem.Decode(data); block != nil {
		data = block.Bytes
	}
	p7, err := pkcs7.ParsePKCS7(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCertificateFormat, err)
	}
	if len(p7.Content.SignedData.Certificates) == 0 {
		return nil, fmt.Errorf("%w: no certificates in PKCS#7 data", ErrCertificateFormat)
	}
	return p7.Content.SignedData.Certificates[0], nil
}

// CreateCertificate signs tmpl. Version 3 certificates go through
// x509.CreateCertificate; version 1 certificates are encoded directly since
// crypto/x509 always emits v3.
func (p *X509Provider) CreateCertificate(tmpl *Template, signer crypto.Signer) (*x509.Certificate, error) {
	switch tmpl.Version {
	case 0, 3:
		return p.createV3(tmpl, signer)
	case 1:
		return p.createV1(tmpl, signer)
	default:
		return nil, fmt.Errorf("unsupported certificate version %d", tmpl.Version)
	}
}

func (p *X509Provider) createV3(tmpl *Template, signer crypto.Signer) (*x509.Certificate, error) {
	subject, err := asn1.Marshal(tmpl.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to encode subject: %w", err)
	}
	issuer, err := asn1.Marshal(tmpl.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to encode issuer: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber:          tmpl.SerialNumber,
		RawSubject:            subject,
		NotBefore:             tmpl.NotBefore,
		NotAfter:              tmpl.NotAfter,
		SignatureAlgorithm:    tmpl.SignatureAlgorithm,
		KeyUsage:              tmpl.KeyUsage,
		ExtKeyUsage:           tmpl.ExtKeyUsage,
		BasicConstraintsValid: tmpl.BasicConstraintsValid,
		IsCA:                  tmpl.IsCA,
		MaxPathLen:            tmpl.MaxPathLen,
		MaxPathLenZero:        tmpl.MaxPathLenZero,
		DNSNames:              tmpl.DNSNames,
		EmailAddresses:        tmpl.EmailAddresses,
		IPAddresses:           tmpl.IPAddresses,
	}

	// Only the issuer name is taken from the parent. Its public key stays
	// nil so the signer is not compared against an issuer certificate.
	parent := &x509.Certificate{RawSubject: issuer}

	der, err := x509.CreateCertificate(p.random(), template, parent, tmpl.PublicKey, signer)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created certificate: %w", err)
	}
	return cert, nil
}
