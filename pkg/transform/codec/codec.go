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

// Package codec provides binary-to-text encodings as chain stages.
// Encrypt encodes and Decrypt decodes, so an encoding placed after a cipher
// makes the chain's output printable.
package codec

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/jeremyhahn/go-cryptchain/pkg/transform"
)

// Stage is an encoding step over byte payloads.
type Stage struct {
	name   string
	encode func([]byte) []byte
	decode func([]byte) ([]byte, error)
}

// Base64 returns a standard, padded base64 stage.
func Base64() *Stage { return base64Stage("base64", base64.StdEncoding) }

// Base64URL returns a URL-safe, padded base64 stage.
func Base64URL() *Stage { return base64Stage("base64url", base64.URLEncoding) }

// RawBase64URL returns a URL-safe, unpadded base64 stage.
func RawBase64URL() *Stage { return base64Stage("base64url-raw", base64.RawURLEncoding) }

// Hex returns a lower-case hexadecimal stage.
func Hex() *Stage {
	return &Stage{
		name: "hex",
		encode: func(src []byte) []byte {
			dst := make([]byte, hex.EncodedLen(len(src)))
			hex.Encode(dst, src)
			return dst
		},
		decode: func(src []byte) ([]byte, error) {
			dst := make([]byte, hex.DecodedLen(len(src)))
			n, err := hex.Decode(dst, src)
			if err != nil {
				return nil, fmt.Errorf("codec: invalid hex input: %w", err)
			}
			return dst[:n], nil
		},
	}
}

func base64Stage(name string, enc *base64.Encoding) *Stage {
	return &Stage{
		name: name,
		encode: func(src []byte) []byte {
			dst := make([]byte, enc.EncodedLen(len(src)))
			enc.Encode(dst, src)
			return dst
		},
		decode: func(src []byte) ([]byte, error) {
			dst := make([]byte, enc.DecodedLen(len(src)))
			n, err := enc.Decode(dst, src)
			if err != nil {
				return nil, fmt.Errorf("codec: invalid %s input: %w", name, err)
			}
			return dst[:n], nil
		},
	}
}

// Encrypt encodes in.
func (s *Stage) Encrypt(in []byte) ([]byte, error) { return s.encode(in), nil }

// Decrypt decodes in.
func (s *Stage) Decrypt(in []byte) ([]byte, error) { return s.decode(in) }

// Name implements transform.Named.
func (s *Stage) Name() string { return s.name }

var _ transform.Transform[[]byte] = (*Stage)(nil)
