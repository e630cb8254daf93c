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
	"net"

	"github.com/jeremyhahn/go-cryptchain/pkg/logging"
	"github.com/jeremyhahn/go-cryptchain/pkg/metrics"
)

// Option configures a Factory.
type Option func(*Factory)

// WithProvider replaces the default X509Provider.
func WithProvider(p Provider) Option {
	return func(f *Factory) {
		if p != nil {
			f.provider = p
		}
	}
}

// WithLogger sets the logger. Certificate contents and keys are never logged.
func WithLogger(l *logging.Logger) Option {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithMetrics records every operation on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(f *Factory) {
		f.metrics = c
	}
}

// CertificateOption adds v3 attributes to a certificate built by
// NewCertificate.
type CertificateOption func(*Template)

// WithKeyUsage sets the key usage bits.
func WithKeyUsage(usage x509.KeyUsage) CertificateOption {
	return func(t *Template) {
		t.KeyUsage = usage
	}
}

// WithExtKeyUsage sets the extended key usages.
func WithExtKeyUsage(usage ...x509.ExtKeyUsage) CertificateOption {
	return func(t *Template) {
		t.ExtKeyUsage = append(t.ExtKeyUsage, usage...)
	}
}

// WithCA marks the certificate as a CA. A negative maxPathLen leaves the
// path length unconstrained; zero means no intermediate CAs may follow.
func WithCA(maxPathLen int) CertificateOption {
	return func(t *Template) {
		t.BasicConstraintsValid = true
		t.IsCA = true
		t.KeyUsage |= x509.KeyUsageCertSign | x509.KeyUsageCRLSign
		t.MaxPathLen = maxPathLen
		t.MaxPathLenZero = maxPathLen == 0
	}
}

// WithDNSNames adds DNS subject alternative names.
func WithDNSNames(names ...string) CertificateOption {
	return func(t *Template) {
		t.DNSNames = append(t.DNSNames, names...)
	}
}

// WithEmailAddresses adds email subject alternative names.
func WithEmailAddresses(addresses ...string) CertificateOption {
	return func(t *Template) {
		t.EmailAddresses = append(t.EmailAddresses, addresses...)
	}
}

// WithIPAddresses adds IP subject alternative names.
func WithIPAddresses(ips ...net.IP) CertificateOption {
	return func(t *Template) {
		t.IPAddresses = append(t.IPAddresses, ips...)
	}
}
