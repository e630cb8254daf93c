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
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azkeys"
	"github.com/jeremyhahn/go-cryptchain/pkg/transform"
)

// ErrAdditionalDataUnsupported is returned when additional data is
// configured for a service or key type that cannot authenticate it.
var ErrAdditionalDataUnsupported = errors.New("kms: additional data not supported")

// AzureClient is the subset of *azkeys.Client used by Azure.
type AzureClient interface {
	Encrypt(ctx context.Context, name, version string, parameters azkeys.KeyOperationParameters, options *azkeys.EncryptOptions) (azkeys.EncryptResponse, error)
	Decrypt(ctx context.Context, name, version string, parameters azkeys.KeyOperationParameters, options *azkeys.DecryptOptions) (azkeys.DecryptResponse, error)
}

// Azure encrypts with an RSA key held in Azure Key Vault using RSA-OAEP-256.
// The payload limit follows from the key size, 190 bytes for RSA-2048.
type Azure struct {
	client  AzureClient
	name    string
	version string
	opts    options
}

// NewAzure returns a transform for the named key. An empty version selects
// the latest key version for encryption; decryption then relies on the
// service to locate the version from the ciphertext, so pin the version for
// long-lived data.
func NewAzure(client AzureClient, keyName, keyVersion string, opts ...Option) (*Azure, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if keyName == "" {
		return nil, ErrKeyRequired
	}
	o := newOptions(opts)
	if len(o.aad) > 0 {
		return nil, fmt.Errorf("%w: Azure RSA-OAEP-256", ErrAdditionalDataUnsupported)
	}
	return &Azure{client: client, name: keyName, version: keyVersion, opts: o}, nil
}

// Encrypt sends plaintext to Key Vault and returns the ciphertext.
func (a *Azure) Encrypt(plaintext []byte) ([]byte, error) {
	var out []byte
	err := a.opts.call(func(ctx context.Context) error {
		resp, err := a.client.Encrypt(ctx, a.name, a.version, azkeys.KeyOperationParameters{
			Algorithm: to.Ptr(azkeys.EncryptionAlgorithmRSAOAEP256),
			Value:     plaintext,
		}, nil)
		if err != nil {
			return fmt.Errorf("failed to encrypt with Azure Key Vault: %w", err)
		}
		if len(resp.Result) == 0 {
			return fmt.Errorf("%w: empty ciphertext", ErrInvalidResponse)
		}
		out = resp.Result
		return nil
	})
	return out, err
}

// Decrypt sends ciphertext to Key Vault and returns the plaintext.
func (a *Azure) Decrypt(ciphertext []byte) ([]byte, error) {
	var out []byte
	err := a.opts.call(func(ctx context.Context) error {
		resp, err := a.client.Decrypt(ctx, a.name, a.version, azkeys.KeyOperationParameters{
			Algorithm: to.Ptr(azkeys.EncryptionAlgorithmRSAOAEP256),
			Value:     ciphertext,
		}, nil)
		if err != nil {
			return fmt.Errorf("failed to decrypt with Azure Key Vault: %w", err)
		}
		out = resp.Result
		return nil
	})
	return out, err
}

// Name implements transform.Named.
func (a *Azure) Name() string { return "azure-keyvault" }

var _ transform.Transform[[]byte] = (*Azure)(nil)
