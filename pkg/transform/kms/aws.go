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

	"github.com/aws/aws-sdk-go-v2/aws"
	awskms "github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/jeremyhahn/go-cryptchain/pkg/transform"
)

// AWSClient is the subset of *kms.Client used by AWS.
type AWSClient interface {
	Encrypt(ctx context.Context, params *awskms.EncryptInput, optFns ...func(*awskms.Options)) (*awskms.EncryptOutput, error)
	Decrypt(ctx context.Context, params *awskms.DecryptInput, optFns ...func(*awskms.Options)) (*awskms.DecryptOutput, error)
}

// AWS encrypts with a symmetric AWS KMS key. Payloads are limited to 4 KiB.
type AWS struct {
	client AWSClient
	keyID  string
	opts   options
}

// NewAWS returns a transform for the KMS key identified by keyID, which may
// be a key ID, key ARN, alias name or alias ARN.
func NewAWS(client AWSClient, keyID string, opts ...Option) (*AWS, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if keyID == "" {
		return nil, ErrKeyRequired
	}
	return &AWS{client: client, keyID: keyID, opts: newOptions(opts)}, nil
}

// encryptionContext renders additional data as a KMS encryption context.
func (a *AWS) encryptionContext() map[string]string {
	if len(a.opts.aad) == 0 {
		return nil
	}
	return map[string]string{"aad": base64.StdEncoding.EncodeToString(a.opts.aad)}
}

// Encrypt sends plaintext to AWS KMS and returns the ciphertext blob.
func (a *AWS) Encrypt(plaintext []byte) ([]byte, error) {
	var out []byte
	err := a.opts.call(func(ctx context.Context) error {
		resp, err := a.client.Encrypt(ctx, &awskms.EncryptInput{
			KeyId:               aws.String(a.keyID),
			Plaintext:           plaintext,
			EncryptionAlgorithm: types.EncryptionAlgorithmSpecSymmetricDefault,
			EncryptionContext:   a.encryptionContext(),
		})
		if err != nil {
			return fmt.Errorf("failed to encrypt with AWS KMS: %w", err)
		}
		if len(resp.CiphertextBlob) == 0 {
			return fmt.Errorf("%w: empty ciphertext", ErrInvalidResponse)
		}
		out = resp.CiphertextBlob
		return nil
	})
	return out, err
}

// Decrypt sends a ciphertext blob to AWS KMS and returns the plaintext.
func (a *AWS) Decrypt(ciphertext []byte) ([]byte, error) {
	var out []byte
	err := a.opts.call(func(ctx context.Context) error {
		resp, err := a.client.Decrypt(ctx, &awskms.DecryptInput{
			KeyId:               aws.String(a.keyID),
			CiphertextBlob:      ciphertext,
			EncryptionAlgorithm: types.EncryptionAlgorithmSpecSymmetricDefault,
			EncryptionContext:   a.encryptionContext(),
		})
		if err != nil {
			return fmt.Errorf("failed to decrypt with AWS KMS: %w", err)
		}
		out = resp.Plaintext
		return nil
	})
	return out, err
}

// Name implements transform.Named.
func (a *AWS) Name() string { return "aws-kms" }

var _ transform.Transform[[]byte] = (*AWS)(nil)
