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
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jeremyhahn/go-cryptchain/internal/config"
	"github.com/olekukonko/tablewriter"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText  OutputFormat = config.OutputText
	OutputFormatJSON  OutputFormat = config.OutputJSON
	OutputFormatTable OutputFormat = config.OutputTable
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

// pipelineInfo summarizes a configured pipeline
type pipelineInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Stages      []string `json:"stages"`
}

// certificateInfo is the printable view of a certificate
type certificateInfo struct {
	Version            int       `json:"version"`
	SerialNumber       string    `json:"serial_number"`
	Subject            string    `json:"subject"`
	Issuer             string    `json:"issuer"`
	NotBefore          time.Time `json:"not_before"`
	NotAfter           time.Time `json:"not_after"`
	SignatureAlgorithm string    `json:"signature_algorithm"`
	PublicKeyAlgorithm string    `json:"public_key_algorithm"`
	IsCA               bool      `json:"is_ca"`
	DNSNames           []string  `json:"dns_names,omitempty"`
	EmailAddresses     []string  `json:"email_addresses,omitempty"`
	IPAddresses        []string  `json:"ip_addresses,omitempty"`
	PEM                string    `json:"pem,omitempty"`
}

func newCertificateInfo(cert *x509.Certificate) certificateInfo {
	info := certificateInfo{
		Version:            cert.Version,
		SerialNumber:       cert.SerialNumber.String(),
		Subject:            cert.Subject.String(),
		Issuer:             cert.Issuer.String(),
		NotBefore:          cert.NotBefore.UTC(),
		NotAfter:           cert.NotAfter.UTC(),
		SignatureAlgorithm: cert.SignatureAlgorithm.String(),
		PublicKeyAlgorithm: cert.PublicKeyAlgorithm.String(),
		IsCA:               cert.IsCA,
		DNSNames:           cert.DNSNames,
		EmailAddresses:     cert.EmailAddresses,
	}
	for _, ip := range cert.IPAddresses {
		info.IPAddresses = append(info.IPAddresses, ip.String())
	}
	return info
}

// PrintPipelines prints the configured pipelines
func (p *Printer) PrintPipelines(pipelines []pipelineInfo) error {
	switch p.format {
	case OutputFormatJSON:
		if pipelines == nil {
			pipelines = []pipelineInfo{}
		}
		return p.printJSON(map[string]interface{}{
			"pipelines": pipelines,
		})
	case OutputFormatTable:
		if len(pipelines) == 0 {
			fmt.Fprintln(p.writer, "No pipelines configured")
			return nil
		}
		rows := make([][]string, 0, len(pipelines))
		for _, pl := range pipelines {
			rows = append(rows, []string{pl.Name, strings.Join(pl.Stages, " -> "), pl.Description})
		}
		return p.printTable([]string{"Name", "Stages", "Description"}, rows)
	case OutputFormatText:
		if len(pipelines) == 0 {
			fmt.Fprintln(p.writer, "No pipelines configured")
			return nil
		}
		fmt.Fprintln(p.writer, "Pipelines:")
		for _, pl := range pipelines {
			fmt.Fprintf(p.writer, "  - %s: %s\n", pl.Name, strings.Join(pl.Stages, " -> "))
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintCertificateInfo prints the fields of a certificate
func (p *Printer) PrintCertificateInfo(info certificateInfo) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(info)
	case OutputFormatTable:
		return p.printTable([]string{"Field", "Value"}, info.rows())
	case OutputFormatText:
		fmt.Fprintln(p.writer, "Certificate:")
		for _, row := range info.rows() {
			fmt.Fprintf(p.writer, "  %-21s %s\n", row[0]+":", row[1])
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintCertificates prints the fields of each certificate of a bundle
func (p *Printer) PrintCertificates(infos []certificateInfo) error {
	if p.format == OutputFormatJSON {
		return p.printJSON(map[string]any{"certificates": infos})
	}
	for _, info := range infos {
		if err := p.PrintCertificateInfo(info); err != nil {
			return err
		}
	}
	return nil
}

func (info certificateInfo) rows() [][]string {
	rows := [][]string{
		{"Version", strconv.Itoa(info.Version)},
		{"Serial Number", info.SerialNumber},
		{"Subject", info.Subject},
		{"Issuer", info.Issuer},
		{"Not Before", info.NotBefore.Format(time.RFC3339)},
		{"Not After", info.NotAfter.Format(time.RFC3339)},
		{"Signature Algorithm", info.SignatureAlgorithm},
		{"Public Key Algorithm", info.PublicKeyAlgorithm},
		{"CA", strconv.FormatBool(info.IsCA)},
	}
	if len(info.DNSNames) > 0 {
		rows = append(rows, []string{"DNS Names", strings.Join(info.DNSNames, ", ")})
	}
	if len(info.EmailAddresses) > 0 {
		rows = append(rows, []string{"Email Addresses", strings.Join(info.EmailAddresses, ", ")})
	}
	if len(info.IPAddresses) > 0 {
		rows = append(rows, []string{"IP Addresses", strings.Join(info.IPAddresses, ", ")})
	}
	return rows
}

// PrintList prints a titled list of names
func (p *Printer) PrintList(title, key string, items []string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			key: items,
		})
	case OutputFormatTable:
		rows := make([][]string, 0, len(items))
		for _, item := range items {
			rows = append(rows, []string{item})
		}
		return p.printTable([]string{title}, rows)
	case OutputFormatText:
		fmt.Fprintf(p.writer, "%s:\n", title)
		for _, item := range items {
			fmt.Fprintf(p.writer, "  - %s\n", item)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(message string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status":  "success",
			"message": message,
		})
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintln(p.writer, message)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintError prints an error message
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
	default:
		fmt.Fprintf(p.writer, "Error: %v\n", err)
		return nil
	}
}

func (p *Printer) printJSON(v interface{}) error {
	enc := json.NewEncoder(p.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *Printer) printTable(headers []string, rows [][]string) error {
	table := tablewriter.NewTable(p.writer)
	table.Header(headers)
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("failed to build table: %w", err)
	}
	return table.Render()
}
