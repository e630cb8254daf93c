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

package cli

import (
	"crypto"
	"crypto/x509"
	"fmt"
	"math/big"
	"net"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jeremyhahn/go-cryptchain/pkg/certfactory"
	"github.com/jeremyhahn/go-cryptchain/pkg/encoding"
	"github.com/spf13/cobra"
)

// Certificate output encodings
const (
	certFormatPEM   = "pem"
	certFormatDER   = "der"
	certFormatPKCS7 = "pkcs7"
)

var extKeyUsages = map[string]x509.ExtKeyUsage{
	"server":           x509.ExtKeyUsageServerAuth,
	"client":           x509.ExtKeyUsageClientAuth,
	"code-signing":     x509.ExtKeyUsageCodeSigning,
	"email-protection": x509.ExtKeyUsageEmailProtection,
	"timestamping":     x509.ExtKeyUsageTimeStamping,
	"ocsp-signing":     x509.ExtKeyUsageOCSPSigning,
}

func newCertCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cert",
		Short: "Create and inspect X.509 certificates",
	}
	cmd.AddCommand(newCertCreateCommand(a))
	cmd.AddCommand(newCertInspectCommand(a))
	cmd.AddCommand(&cobra.Command{
		Use:   "algorithms",
		Short: "List accepted signature algorithm names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printer(cmd.OutOrStdout()).PrintList(
				"Signature Algorithms", "algorithms", certfactory.SignatureAlgorithmNames())
		},
	})
	return cmd
}

type certCreateOptions struct {
	keyFile        string
	passwordEnv    string
	publicKeyFile  string
	subject        string
	issuer         string
	serial         string
	notBefore      string
	days           int
	algorithm      string
	v1             bool
	ca             bool
	maxPathLen     int
	dnsNames       []string
	emailAddresses []string
	ipAddresses    []string
	extKeyUsage    []string
	format         string
	outFile        string
}

func newCertCreateCommand(a *app) *cobra.Command {
	var o certCreateOptions

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a certificate signed by a PEM private key",
		Long: `Create a version 3 certificate, or a version 1 certificate with --v1.

Subject and issuer are RFC 4514 distinguished names such as
"CN=example.com,O=Example Corp,C=US". Without --issuer the certificate is
self-issued. The signing key must match the signature algorithm.`,
		Example: `  cryptchain cert create --key ca.pem --subject "CN=Example Root" --ca --days 3650
  cryptchain cert create --key ca.pem --public-key leaf.pub --issuer "CN=Example Root" \
    --subject "CN=www.example.com" --dns www.example.com --ext-key-usage server
  cryptchain cert create --v1 --key legacy.pem --subject "CN=Legacy" --algorithm SHA1withRSA`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cert, err := a.createCertificate(&o)
			if err != nil {
				return err
			}
			return a.writeCertificate(cmd, cert, o.format, o.outFile)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.keyFile, "key", "", "PEM private key that signs the certificate")
	flags.StringVar(&o.passwordEnv, "key-password-env", "", "environment variable holding the key password")
	flags.StringVar(&o.publicKeyFile, "public-key", "", "PEM public key to certify (default: the signing key's)")
	flags.StringVar(&o.subject, "subject", "", "subject distinguished name")
	flags.StringVar(&o.issuer, "issuer", "", "issuer distinguished name (default: the subject)")
	flags.StringVar(&o.serial, "serial", "", "serial number, decimal or 0x-prefixed hex (default: random)")
	flags.StringVar(&o.notBefore, "not-before", "", "start of validity, RFC 3339 (default: now)")
	flags.IntVar(&o.days, "days", 0, "validity period in days (default: from config)")
	flags.StringVar(&o.algorithm, "algorithm", "", "signature algorithm, e.g. SHA256withECDSA (default: from config)")
	flags.BoolVar(&o.v1, "v1", false, "create a version 1 certificate without extensions")
	flags.BoolVar(&o.ca, "ca", false, "mark the certificate as a CA")
	flags.IntVar(&o.maxPathLen, "max-path-len", -1, "CA path length constraint, -1 for none")
	flags.StringSliceVar(&o.dnsNames, "dns", nil, "DNS subject alternative names")
	flags.StringSliceVar(&o.emailAddresses, "email", nil, "email subject alternative names")
	flags.StringSliceVar(&o.ipAddresses, "ip", nil, "IP subject alternative names")
	flags.StringSliceVar(&o.extKeyUsage, "ext-key-usage", nil,
		"extended key usages (server, client, code-signing, email-protection, timestamping, ocsp-signing)")
	flags.StringVar(&o.format, "format", certFormatPEM, "certificate encoding (pem, der, pkcs7)")
	flags.StringVar(&o.outFile, "out", "-", "output file, - for stdout")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func (a *app) createCertificate(o *certCreateOptions) (*x509.Certificate, error) {
	// #nosec G304 - Key path is provided by the user
	keyPEM, err := os.ReadFile(o.keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	var password []byte
	if o.passwordEnv != "" {
		password = []byte(a.getenv(o.passwordEnv))
	}
	signer, err := encoding.DecodeSignerPEM(keyPEM, password)
	if err != nil {
		return nil, fmt.Errorf("signing key: %w", err)
	}

	serial, err := parseSerial(o.serial)
	if err != nil {
		return nil, err
	}
	notBefore := time.Now()
	if o.notBefore != "" {
		if notBefore, err = time.Parse(time.RFC3339, o.notBefore); err != nil {
			return nil, fmt.Errorf("invalid --not-before: %w", err)
		}
	}
	days := o.days
	if days == 0 {
		days = a.cfg.Certificate.ValidityDays
	}
	if days < 0 {
		return nil, fmt.Errorf("--days must be positive")
	}
	notAfter := notBefore.AddDate(0, 0, days)

	algorithm := o.algorithm
	if algorithm == "" {
		algorithm = a.cfg.Certificate.SignatureAlgorithm
	}
	issuer := o.issuer
	if issuer == "" {
		issuer = o.subject
	}

	if o.v1 {
		if o.publicKeyFile != "" || o.ca || len(o.dnsNames)+len(o.emailAddresses)+len(o.ipAddresses)+len(o.extKeyUsage) > 0 {
			return nil, fmt.Errorf("version 1 certificates carry no extensions and certify the signing key")
		}
		return a.factory.NewCertificateV1(signer, issuer, serial, notBefore, notAfter, o.subject, algorithm)
	}

	var pub crypto.PublicKey = signer.Public()
	if o.publicKeyFile != "" {
		// #nosec G304 - Key path is provided by the user
		pubPEM, err := os.ReadFile(o.publicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read public key file: %w", err)
		}
		if pub, err = encoding.DecodePublicKeyPEM(pubPEM); err != nil {
			return nil, fmt.Errorf("public key: %w", err)
		}
	}

	opts, err := o.certificateOptions()
	if err != nil {
		return nil, err
	}
	return a.factory.NewCertificate(pub, signer, serial, o.subject, issuer, algorithm, notBefore, notAfter, opts...)
}

func (o *certCreateOptions) certificateOptions() ([]certfactory.CertificateOption, error) {
	var opts []certfactory.CertificateOption
	if o.ca {
		opts = append(opts, certfactory.WithCA(o.maxPathLen))
	} else {
		opts = append(opts, certfactory.WithKeyUsage(x509.KeyUsageDigitalSignature|x509.KeyUsageKeyEncipherment))
	}
	if len(o.dnsNames) > 0 {
		opts = append(opts, certfactory.WithDNSNames(o.dnsNames...))
	}
	if len(o.emailAddresses) > 0 {
		opts = append(opts, certfactory.WithEmailAddresses(o.emailAddresses...))
	}
	if len(o.ipAddresses) > 0 {
		ips := make([]net.IP, 0, len(o.ipAddresses))
		for _, s := range o.ipAddresses {
			ip := net.ParseIP(s)
			if ip == nil {
				return nil, fmt.Errorf("invalid IP address %q", s)
			}
			ips = append(ips, ip)
		}
		opts = append(opts, certfactory.WithIPAddresses(ips...))
	}
	for _, name := range o.extKeyUsage {
		usage, ok := extKeyUsages[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown extended key usage %q", name)
		}
		opts = append(opts, certfactory.WithExtKeyUsage(usage))
	}
	return opts, nil
}

// parseSerial parses a decimal or 0x-prefixed hex serial. An empty string
// yields a random serial taken from a version 4 UUID.
func parseSerial(s string) (*big.Int, error) {
	if s == "" {
		id := uuid.New()
		return new(big.Int).SetBytes(id[:]), nil
	}
	serial, ok := new(big.Int).SetString(s, 0)
	if !ok || serial.Sign() < 0 {
		return nil, fmt.Errorf("invalid serial number %q", s)
	}
	return serial, nil
}

func (a *app) writeCertificate(cmd *cobra.Command, cert *x509.Certificate, format, outFile string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(format) {
	case certFormatPEM:
		data, err = encoding.EncodeCertificatePEM(cert)
	case certFormatDER:
		data = cert.Raw
	case certFormatPKCS7:
		var der []byte
		if der, err = certfactory.MarshalPKCS7(cert); err == nil {
			data, err = encoding.EncodePEM(encoding.PEMTypePKCS7, der)
		}
	default:
		return fmt.Errorf("unknown certificate format %q (must be pem, der, or pkcs7)", format)
	}
	if err != nil {
		return err
	}

	toStdout := outFile == "" || outFile == "-"
	if !toStdout {
		if err := writeOutput(nil, outFile, data); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	switch {
	case a.cfg.Output == string(OutputFormatJSON):
		info := newCertificateInfo(cert)
		if toStdout {
			pemData, err := encoding.EncodeCertificatePEM(cert)
			if err != nil {
				return err
			}
			info.PEM = string(pemData)
		}
		return a.printer(out).PrintCertificateInfo(info)
	case toStdout:
		_, err := out.Write(data)
		return err
	default:
		return a.printer(out).PrintSuccess(fmt.Sprintf("Certificate %s written to %s", cert.SerialNumber, outFile))
	}
}

func newCertInspectCommand(a *app) *cobra.Command {
	var (
		certType     string
		all          bool
		publicKeyOut string
	)

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Parse a certificate and print its fields",
		Long: `Parse a certificate and print its fields.

X.509 input may be DER or PEM. PKCS7 input may be DER or PEM; the first
certificate in the bundle is shown. With --all every certificate of a PEM
bundle is shown.

--public-key-out writes the certificate's public key as PEM, ready for the
public_key_file of an rsa-oaep, rsa-hybrid, ecies or jwe-rsa stage.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			var certs []*x509.Certificate
			if all {
				if certs, err = encoding.DecodeCertificatesPEM(data); err != nil {
					return fmt.Errorf("--all requires a PEM certificate bundle: %w", err)
				}
			} else {
				cert, err := a.factory.ParseCertificate(certType, data)
				if err != nil {
					return err
				}
				certs = []*x509.Certificate{cert}
			}

			if publicKeyOut != "" {
				pemData, err := encoding.EncodePublicKeyPEM(certs[0].PublicKey)
				if err != nil {
					return err
				}
				if err := writeOutput(cmd.OutOrStdout(), publicKeyOut, pemData); err != nil {
					return err
				}
			}

			printer := a.printer(cmd.OutOrStdout())
			if !all {
				return printer.PrintCertificateInfo(newCertificateInfo(certs[0]))
			}
			infos := make([]certificateInfo, 0, len(certs))
			for _, cert := range certs {
				infos = append(infos, newCertificateInfo(cert))
			}
			return printer.PrintCertificates(infos)
		},
	}
	cmd.Flags().StringVarP(&certType, "type", "t", certfactory.TypeX509, "certificate type (X.509, PKCS7)")
	cmd.Flags().BoolVar(&all, "all", false, "show every certificate of a PEM bundle")
	cmd.Flags().StringVar(&publicKeyOut, "public-key-out", "", "write the (first) certificate's public key to this PEM file")
	return cmd
}
