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
	"encoding/base64"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"
	"github.com/jeremyhahn/go-cryptchain/pkg/transform"
)

// DefaultTransitMount is the mount path of the Transit secrets engine.
const DefaultTransitMount = "transit"

// TransitClient is the subset of *api.Logical used by VaultTransit.
type TransitClient interface {
	WriteWithContext(ctx context.Context, path string, data map[string]interface{}) (*vault.Secret, error)
}

// VaultTransit encrypts with a key held by the Vault Transit engine. The
// ciphertext is Vault's own "vault:vN:..." string, carried as bytes.
type VaultTransit struct {
	client  TransitClient
	mount   string
	keyName string
	opts    options
}

// NewVaultTransit returns a transform for keyName under mount. An empty
// mount selects DefaultTransitMount.
func NewVaultTransit(client TransitClient, mount, keyName string, opts ...Option) (*VaultTransit, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if keyName == "" {
		return nil, ErrKeyRequired
	}
	mount = strings.Trim(mount, "/")
	if mount == "" {
		mount = DefaultTransitMount
	}
	return &VaultTransit{client: client, mount: mount, keyName: keyName, opts: newOptions(opts)}, nil
}

func (v *VaultTransit) request(field string, value string) map[string]interface{} {
	data := map[string]interface{}{field: value}
	if len(v.opts.aad) > 0 {
		data["associated_data"] = base64.StdEncoding.EncodeToString(v.opts.aad)
	}
	return data
}

// Encrypt sends plaintext to Vault and returns the Transit ciphertext.
func (v *VaultTransit) Encrypt(plaintext []byte) ([]byte, error) {
	path := fmt.Sprintf("%s/encrypt/%s", v.mount, v.keyName)
	data := v.request("plaintext", base64.StdEncoding.EncodeToString(plaintext))

	var out []byte
	err := v.opts.call(func(ctx context.Context) error {
		secret, err := v.client.WriteWithContext(ctx, path, data)
		if err != nil {
			return fmt.Errorf("failed to encrypt with vault: %w", err)
		}
		ciphertext, err := stringField(secret, "ciphertext")
		if err != nil {
			return err
		}
		if !strings.HasPrefix(ciphertext, "vault:") {
			return fmt.Errorf("%w: invalid ciphertext format", ErrInvalidResponse)
		}
		out = []byte(ciphertext)
		return nil
	})
	return out, err
}

// Decrypt sends a Transit ciphertext to Vault and returns the plaintext.
func (v *VaultTransit) Decrypt(ciphertext []byte) ([]byte, error) {
	path := fmt.Sprintf("%s/decrypt/%s", v.mount, v.keyName)
	data := v.request("ciphertext", string(ciphertext))

	var out []byte
	err := v.opts.call(func(ctx context.Context) error {
		secret, err := v.client.WriteWithContext(ctx, path, data)
		if err != nil {
			return fmt.Errorf("failed to decrypt with vault: %w", err)
		}
		encoded, err := stringField(secret, "plaintext")
		if err != nil {
			return err
		}
		plaintext, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("%w: plaintext is not base64: %w", ErrInvalidResponse, err)
		}
		out = plaintext
		return nil
	})
	return out, err
}

// Name implements transform.Named.
func (v *VaultTransit) Name() string { return "vault-transit" }

func stringField(secret *vault.Secret, field string) (string, error) {
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("%w: no data returned", ErrInvalidResponse)
	}
	raw, ok := secret.Data[field]
	if !ok {
		return "", fmt.Errorf("%w: no %s in response", ErrInvalidResponse, field)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: invalid %s format", ErrInvalidResponse, field)
	}
	return s, nil
}

var _ transform.Transform[[]byte] = (*VaultTransit)(nil)
