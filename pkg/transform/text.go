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

package transform

import "encoding/hex"

// Codec renders binary ciphertext as text and back. *base64.Encoding
// satisfies Codec, as does HexCodec.
type Codec interface {
	EncodeToString(src []byte) string
	DecodeString(s string) ([]byte, error)
}

// HexCodec is a lower-case hexadecimal Codec.
var HexCodec Codec = hexCodec{}

type hexCodec struct{}

func (hexCodec) EncodeToString(src []byte) string      { return hex.EncodeToString(src) }
func (hexCodec) DecodeString(s string) ([]byte, error) { return hex.DecodeString(s) }

// Text adapts a byte transform to text payloads. Encrypt feeds the UTF-8
// bytes of its input to t and renders the ciphertext with codec; Decrypt
// reverses both steps.
func Text(t Transform[[]byte], codec Codec) Transform[string] {
	return &textTransform{inner: t, codec: codec}
}

type textTransform struct {
	inner Transform[[]byte]
	codec Codec
}

func (t *textTransform) Encrypt(in string) (string, error) {
	ct, err := t.inner.Encrypt([]byte(in))
	if err != nil {
		return "", err
	}
	return t.codec.EncodeToString(ct), nil
}

func (t *textTransform) Decrypt(in string) (string, error) {
	ct, err := t.codec.DecodeString(in)
	if err != nil {
		return "", err
	}
	pt, err := t.inner.Decrypt(ct)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}

func (t *textTransform) Name() string { return "text(" + stageName(t.inner) + ")" }

// Bytes adapts a text transform to byte payloads. The conversion between
// []byte and string is lossless for arbitrary bytes.
func Bytes(t Transform[string]) Transform[[]byte] {
	return &bytesTransform{inner: t}
}

type bytesTransform struct {
	inner Transform[string]
}

func (t *bytesTransform) Encrypt(in []byte) ([]byte, error) {
	out, err := t.inner.Encrypt(string(in))
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func (t *bytesTransform) Decrypt(in []byte) ([]byte, error) {
	out, err := t.inner.Decrypt(string(in))
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func (t *bytesTransform) Name() string { return "bytes(" + stageName(t.inner) + ")" }
