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

// Package certfactory parses encoded certificates and builds signed X.509
// certificates from distinguished name strings and a signature algorithm
// name.
//
// Every parse failure matches ErrCertificateFormat and every build failure
// matches ErrCertificateBuild, so callers can branch with errors.Is without
// caring which step failed:
//
//	cert, err := certfactory.NewCertificate(&key.PublicKey, key, big.NewInt(1),
//		"CN=Example,O=Example Corp,C=US", "CN=Example,O=Example Corp,C=US",
//		"SHA256withECDSA", time.Now(), time.Now().AddDate(1, 0, 0))
//	if errors.Is(err, certfactory.ErrCertificateBuild) {
//		...
//	}
//
// The crypto work is delegated to a Provider. The default X509Provider uses
// crypto/x509 for v3 certificates and encodes v1 certificates directly.
package certfactory

import (
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jeremyhahn/go-cryptchain/pkg/logging"
	"github.com/jeremyhahn/go-cryptchain/pkg/metrics"
	"github.com/jeremyhahn/go-cryptchain/pkg/validation"
)

const component = "certfactory"

// Factory parses and builds certificates through a Provider. A Factory has
// no mutable state and is safe for concurrent use.
type Factory struct {
	provider Provider
	logger   *logging.Logger
	metrics  *metrics.Collector
}

// New returns a Factory using the X509Provider and a discarding logger
// unless options say otherwise.
func New(opts ...Option) *Factory {
	f := &Factory{
		provider: NewX509Provider(),
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var defaultFactory = New()

// ParseCertificate decodes data with the default factory.
func ParseCertificate(certType string, data []byte) (*x509.Certificate, error) {
	return defaultFactory.ParseCertificate(certType, data)
}

// NewCertificate builds a v3 certificate with the default factory.
func NewCertificate(
	publicKey crypto.PublicKey,
	privateKey crypto.PrivateKey,
	serial *big.Int,
	subject, issuer, signatureAlgorithm string,
	notBefore, notAfter time.Time,
	opts ...CertificateOption) (*x509.Certificate, error) {

	return defaultFactory.NewCertificate(publicKey, privateKey, serial, subject, issuer,
		signatureAlgorithm, notBefore, notAfter, opts...)
}

// NewCertificateV1 builds a v1 certificate with the default factory.
func NewCertificateV1(
	signer crypto.Signer,
	issuer string,
	serial *big.Int,
	notBefore, notAfter time.Time,
	subject, signatureAlgorithm string) (*x509.Certificate, error) {

	return defaultFactory.NewCertificateV1(signer, issuer, serial, notBefore, notAfter, subject, signatureAlgorithm)
}

// ParseCertificate decodes data as a certificate of type certType, such as
// "X.509" or "PKCS7". Failures match ErrCertificateFormat.
func (f *Factory) ParseCertificate(certType string, data []byte) (*x509.Certificate, error) {
	start := time.Now()
	cert, err := f.provider.ParseCertificate(certType, data)
	if err != nil && !errors.Is(err, ErrCertificateFormat) {
		err = fmt.Errorf("%w: %w", ErrCertificateFormat, err)
	}
	f.record(metrics.OpParse, err, time.Since(start))

	if err != nil {
		f.logger.Debug("certificate parse failed", "type", certType, "error", err)
		return nil, err
	}
	f.logger.Debug("certificate parsed",
		"type", certType,
		"subject", validation.SanitizeForLog(cert.Subject.String()),
		"serial", cert.SerialNumber.String())
	return cert, nil
}

// NewCertificate builds a v3 certificate for publicKey, signed by
// privateKey with the named signature algorithm. Subject and issuer are
// RFC 4514 distinguished names. The validity window and serial uniqueness
// are taken as given. Failures match ErrCertificateBuild.
func (f *Factory) NewCertificate(
	publicKey crypto.PublicKey,
	privateKey crypto.PrivateKey,
	serial *big.Int,
	subject, issuer, signatureAlgorithm string,
	notBefore, notAfter time.Time,
	opts ...CertificateOption) (*x509.Certificate, error) {

	start := time.Now()
	cert, err := f.newCertificate(publicKey, privateKey, serial, subject, issuer,
		signatureAlgorithm, notBefore, notAfter, opts)
	return f.finishBuild(metrics.OpCreateCert, 3, cert, err, time.Since(start))
}

func (f *Factory) newCertificate(
	publicKey crypto.PublicKey,
	privateKey crypto.PrivateKey,
	serial *big.Int,
	subject, issuer, signatureAlgorithm string,
	notBefore, notAfter time.Time,
	opts []CertificateOption) (*x509.Certificate, error) {

	if publicKey == nil {
		return nil, fmt.Errorf("%w: public key required", ErrInvalidSigner)
	}
	signer, ok := privateKey.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: %T does not implement crypto.Signer", ErrInvalidSigner, privateKey)
	}
	tmpl, err := newTemplate(3, signer, serial, subject, issuer, signatureAlgorithm, notBefore, notAfter)
	if err != nil {
		return nil, err
	}
	tmpl.PublicKey = publicKey
	for _, opt := range opts {
		opt(tmpl)
	}
	return f.provider.CreateCertificate(tmpl, signer)
}

// NewCertificateV1 builds a version 1 certificate, which carries no
// extensions. The signer supplies both the embedded public key and the
// signature. RSA-PSS algorithms are rejected. Failures match
// ErrCertificateBuild.
func (f *Factory) NewCertificateV1(
	signer crypto.Signer,
	issuer string,
	serial *big.Int,
	notBefore, notAfter time.Time,
	subject, signatureAlgorithm string) (*x509.Certificate, error) {

	start := time.Now()
	cert, err := f.newCertificateV1(signer, issuer, serial, notBefore, notAfter, subject, signatureAlgorithm)
	return f.finishBuild(metrics.OpCreateCertV1, 1, cert, err, time.Since(start))
}

func (f *Factory) newCertificateV1(
	signer crypto.Signer,
	issuer string,
	serial *big.Int,
	notBefore, notAfter time.Time,
	subject, signatureAlgorithm string) (*x509.Certificate, error) {

	if signer == nil {
		return nil, fmt.Errorf("%w: signer required", ErrInvalidSigner)
	}
	tmpl, err := newTemplate(1, signer, serial, subject, issuer, signatureAlgorithm, notBefore, notAfter)
	if err != nil {
		return nil, err
	}
	if _, ok := v1Algorithms[tmpl.SignatureAlgorithm]; !ok {
		return nil, fmt.Errorf("%w: %s is not available for v1 certificates", ErrUnknownSignatureAlgorithm, signatureAlgorithm)
	}
	tmpl.PublicKey = signer.Public()
	return f.provider.CreateCertificate(tmpl, signer)
}

// newTemplate performs the checks shared by both versions.
func newTemplate(
	version int,
	signer crypto.Signer,
	serial *big.Int,
	subject, issuer, signatureAlgorithm string,
	notBefore, notAfter time.Time) (*Template, error) {

	alg, err := ParseSignatureAlgorithm(signatureAlgorithm)
	if err != nil {
		return nil, err
	}
	if serial == nil {
		return nil, ErrSerialRequired
	}
	if err := checkSigner(signer, alg); err != nil {
		return nil, err
	}
	subjectRDNs, err := ParseName(subject)
	if err != nil {
		return nil, err
	}
	issuerRDNs, err := ParseName(issuer)
	if err != nil {
		return nil, err
	}
	return &Template{
		Version:            version,
		SerialNumber:       serial,
		Subject:            subjectRDNs,
		Issuer:             issuerRDNs,
		NotBefore:          notBefore,
		NotAfter:           notAfter,
		SignatureAlgorithm: alg,
	}, nil
}

func (f *Factory) finishBuild(op string, version int, cert *x509.Certificate, err error, d time.Duration) (*x509.Certificate, error) {
	if err != nil && !errors.Is(err, ErrCertificateBuild) {
		err = fmt.Errorf("%w: %w", ErrCertificateBuild, err)
	}
	f.record(op, err, d)

	if err != nil {
		f.logger.Debug("certificate build failed", "version", version, "error", err)
		return nil, err
	}
	f.logger.Info("certificate created",
		"version", version,
		"subject", validation.SanitizeForLog(cert.Subject.String()),
		"issuer", validation.SanitizeForLog(cert.Issuer.String()),
		"serial", cert.SerialNumber.String(),
		"signature_algorithm", cert.SignatureAlgorithm.String())
	return cert, nil
}

func (f *Factory) record(op string, err error, d time.Duration) {
	f.metrics.RecordOperation(op, component, metrics.Status(err), d)
	if err != nil {
		f.metrics.RecordError(op, component, errorType(err))
	}
}

// errorType classifies factory errors for metrics labels.
func errorType(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedCertificateType):
		return "unsupported_type"
	case errors.Is(err, ErrCertificateFormat):
		return "format"
	case errors.Is(err, ErrUnknownSignatureAlgorithm):
		return "unknown_algorithm"
	case errors.Is(err, ErrInvalidName):
		return "invalid_name"
	case errors.Is(err, ErrInvalidSigner):
		return "invalid_signer"
	case errors.Is(err, ErrSerialRequired):
		return "serial_required"
	default:
		return "build"
	}
}
