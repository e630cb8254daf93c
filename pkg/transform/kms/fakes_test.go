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
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"cloud.google.com/go/kms/apiv1/kmspb"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azkeys"
	awskms "github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/googleapis/gax-go/v2"
	vault "github.com/hashicorp/vault/api"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// seal is the reversible "encryption" every fake uses: a prefix plus the
// bytes reversed.
func seal(prefix string, in []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(in))
	out = append(out, prefix...)
	for i := len(in) - 1; i >= 0; i-- {
		out = append(out, in[i])
	}
	return out
}

func unseal(prefix string, in []byte) ([]byte, error) {
	if !bytes.HasPrefix(in, []byte(prefix)) {
		return nil, errors.New("fake: ciphertext not produced by this key")
	}
	return seal("", in[len(prefix):]), nil
}

type fakeAWS struct {
	lastEncrypt *awskms.EncryptInput
	lastDecrypt *awskms.DecryptInput
	err         error
	deadline    bool
}

func (f *fakeAWS) Encrypt(ctx context.Context, in *awskms.EncryptInput, _ ...func(*awskms.Options)) (*awskms.EncryptOutput, error) {
	f.lastEncrypt = in
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return &awskms.EncryptOutput{CiphertextBlob: seal(*in.KeyId+":", in.Plaintext), KeyId: in.KeyId}, nil
}

func (f *fakeAWS) Decrypt(_ context.Context, in *awskms.DecryptInput, _ ...func(*awskms.Options)) (*awskms.DecryptOutput, error) {
	f.lastDecrypt = in
	if f.err != nil {
		return nil, f.err
	}
	pt, err := unseal(*in.KeyId+":", in.CiphertextBlob)
	if err != nil {
		return nil, err
	}
	return &awskms.DecryptOutput{Plaintext: pt, KeyId: in.KeyId}, nil
}

type fakeGCP struct {
	lastEncrypt *kmspb.EncryptRequest
	lastDecrypt *kmspb.DecryptRequest
	corrupt     bool
	unverified  bool
}

func (f *fakeGCP) Encrypt(_ context.Context, req *kmspb.EncryptRequest, _ ...gax.CallOption) (*kmspb.EncryptResponse, error) {
	f.lastEncrypt = req
	verified := req.PlaintextCrc32C != nil && req.PlaintextCrc32C.Value == int64(crc32c(req.Plaintext))
	ct := seal(req.Name+":"+string(req.AdditionalAuthenticatedData)+":", req.Plaintext)
	sum := int64(crc32c(ct))
	if f.corrupt {
		sum++
	}
	return &kmspb.EncryptResponse{
		Name:                    req.Name,
		Ciphertext:              ct,
		CiphertextCrc32C:        wrapperspb.Int64(sum),
		VerifiedPlaintextCrc32C: verified && !f.unverified,
		VerifiedAdditionalAuthenticatedDataCrc32C: req.AdditionalAuthenticatedDataCrc32C != nil &&
			req.AdditionalAuthenticatedDataCrc32C.Value == int64(crc32c(req.AdditionalAuthenticatedData)),
	}, nil
}

func (f *fakeGCP) Decrypt(_ context.Context, req *kmspb.DecryptRequest, _ ...gax.CallOption) (*kmspb.DecryptResponse, error) {
	f.lastDecrypt = req
	if req.CiphertextCrc32C == nil || req.CiphertextCrc32C.Value != int64(crc32c(req.Ciphertext)) {
		return nil, errors.New("fake: ciphertext checksum mismatch")
	}
	pt, err := unseal(req.Name+":"+string(req.AdditionalAuthenticatedData)+":", req.Ciphertext)
	if err != nil {
		return nil, err
	}
	sum := int64(crc32c(pt))
	if f.corrupt {
		sum++
	}
	return &kmspb.DecryptResponse{Plaintext: pt, PlaintextCrc32C: wrapperspb.Int64(sum)}, nil
}

type fakeAzure struct {
	lastName, lastVersion string
	lastAlgorithm         azkeys.EncryptionAlgorithm
	empty                 bool
}

func (f *fakeAzure) Encrypt(_ context.Context, name, version string, p azkeys.KeyOperationParameters, _ *azkeys.EncryptOptions) (azkeys.EncryptResponse, error) {
	f.lastName, f.lastVersion, f.lastAlgorithm = name, version, *p.Algorithm
	if f.empty {
		return azkeys.EncryptResponse{}, nil
	}
	return azkeys.EncryptResponse{KeyOperationResult: azkeys.KeyOperationResult{Result: seal(name+"/"+version+":", p.Value)}}, nil
}

func (f *fakeAzure) Decrypt(_ context.Context, name, version string, p azkeys.KeyOperationParameters, _ *azkeys.DecryptOptions) (azkeys.DecryptResponse, error) {
	f.lastName, f.lastVersion, f.lastAlgorithm = name, version, *p.Algorithm
	pt, err := unseal(name+"/"+version+":", p.Value)
	if err != nil {
		return azkeys.DecryptResponse{}, err
	}
	return azkeys.DecryptResponse{KeyOperationResult: azkeys.KeyOperationResult{Result: pt}}, nil
}

type fakeTransit struct {
	paths []string
	data  []map[string]interface{}
	reply *vault.Secret
}

func (f *fakeTransit) WriteWithContext(_ context.Context, path string, data map[string]interface{}) (*vault.Secret, error) {
	f.paths = append(f.paths, path)
	f.data = append(f.data, data)
	if f.reply != nil {
		return f.reply, nil
	}

	switch {
	case strings.Contains(path, "/encrypt/"):
		pt, err := base64.StdEncoding.DecodeString(data["plaintext"].(string))
		if err != nil {
			return nil, err
		}
		return &vault.Secret{Data: map[string]interface{}{
			"ciphertext": "vault:v1:" + base64.StdEncoding.EncodeToString(seal("", pt)),
		}}, nil
	case strings.Contains(path, "/decrypt/"):
		ct := strings.TrimPrefix(data["ciphertext"].(string), "vault:v1:")
		raw, err := base64.StdEncoding.DecodeString(ct)
		if err != nil {
			return nil, err
		}
		return &vault.Secret{Data: map[string]interface{}{
			"plaintext": base64.StdEncoding.EncodeToString(seal("", raw)),
		}}, nil
	}
	return nil, errors.New("fake: unknown path " + path)
}
