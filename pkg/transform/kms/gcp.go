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

package kms

import (
	"context"
	"fmt"
	"hash/crc32"

	"cloud.google.com/go/kms/apiv1/kmspb"
	"github.com/googleapis/gax-go/v2"
	"github.com/jeremyhahn/go-cryptchain/pkg/transform"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// GCPClient is the subset of *kms.KeyManagementClient used by GCP.
type GCPClient interface {
	Encrypt(ctx context.Context, req *kmspb.EncryptRequest, opts ...gax.CallOption) (*kmspb.EncryptResponse, error)
	Decrypt(ctx context.Context, req *kmspb.DecryptRequest, opts ...gax.CallOption) (*kmspb.DecryptResponse, error)
}

// GCP encrypts with a symmetric Cloud KMS CryptoKey. Requests and responses
// carry CRC32C checksums which are verified on both sides.
type GCP struct {
	client GCPClient
	name   string
	opts   options
}

// NewGCP returns a transform for the CryptoKey resource name, in the form
// projects/P/locations/L/keyRings/R/cryptoKeys/K.
func NewGCP(client GCPClient, keyName string, opts ...Option) (*GCP, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if keyName == "" {
		return nil, ErrKeyRequired
	}
	return &GCP{client: client, name: keyName, opts: newOptions(opts)}, nil
}

// Encrypt sends plaintext to Cloud KMS and returns the ciphertext.
func (g *GCP) Encrypt(plaintext []byte) ([]byte, error) {
	req := &kmspb.EncryptRequest{
		Name:            g.name,
		Plaintext:       plaintext,
		PlaintextCrc32C: wrapperspb.Int64(int64(crc32c(plaintext))),
	}
	if len(g.opts.aad) > 0 {
		req.AdditionalAuthenticatedData = g.opts.aad
		req.AdditionalAuthenticatedDataCrc32C = wrapperspb.Int64(int64(crc32c(g.opts.aad)))
	}

	var out []byte
	err := g.opts.call(func(ctx context.Context) error {
		resp, err := g.client.Encrypt(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to encrypt with Cloud KMS: %w", err)
		}
		if !resp.VerifiedPlaintextCrc32C {
			return fmt.Errorf("%w: plaintext checksum not verified by service", ErrIntegrity)
		}
		if len(g.opts.aad) > 0 && !resp.VerifiedAdditionalAuthenticatedDataCrc32C {
			return fmt.Errorf("%w: additional data checksum not verified by service", ErrIntegrity)
		}
		if resp.CiphertextCrc32C != nil && resp.CiphertextCrc32C.Value != int64(crc32c(resp.Ciphertext)) {
			return fmt.Errorf("%w: ciphertext checksum mismatch", ErrIntegrity)
		}
		out = resp.Ciphertext
		return nil
	})
	return out, err
}

// Decrypt sends ciphertext to Cloud KMS and returns the plaintext.
func (g *GCP) Decrypt(ciphertext []byte) ([]byte, error) {
	req := &kmspb.DecryptRequest{
		Name:             g.name,
		Ciphertext:       ciphertext,
		CiphertextCrc32C: wrapperspb.Int64(int64(crc32c(ciphertext))),
	}
	if len(g.opts.aad) > 0 {
		req.AdditionalAuthenticatedData = g.opts.aad
		req.AdditionalAuthenticatedDataCrc32C = wrapperspb.Int64(int64(crc32c(g.opts.aad)))
	}

	var out []byte
	err := g.opts.call(func(ctx context.Context) error {
		resp, err := g.client.Decrypt(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to decrypt with Cloud KMS: %w", err)
		}
		if resp.PlaintextCrc32C != nil && resp.PlaintextCrc32C.Value != int64(crc32c(resp.Plaintext)) {
			return fmt.Errorf("%w: plaintext checksum mismatch", ErrIntegrity)
		}
		out = resp.Plaintext
		return nil
	})
	return out, err
}

// Name implements transform.Named.
func (g *GCP) Name() string { return "gcp-kms" }

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// crc32c computes the CRC32C checksum Cloud KMS uses for data integrity.
func crc32c(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

var _ transform.Transform[[]byte] = (*GCP)(nil)
