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

// Package transform composes reversible cryptographic transforms into chains.
//
// A Transform is a single reversible step such as a cipher or an encoding.
// Transforms are combined with NewChain, or with NewChainedEncryptor and
// NewChainedDecryptor when the two directions are assembled separately:
//
//	gcm, _ := aes.NewGCM(key)
//	chain := transform.NewChain[[]byte](gcm, codec.Base64())
//	ciphertext, err := chain.Encrypt([]byte("hello-world"))
//	plaintext, err := chain.Decrypt(ciphertext)
//
// The ciphertext carries no record of which transforms produced it. A decrypt
// sequence must be the exact reverse of the encrypt sequence with the same
// keys at every stage; a mismatched sequence is not detected and results in
// either an error from the underlying primitive or corrupted output.
package transform

import "fmt"

// Encryptor encrypts a payload of type T.
type Encryptor[T any] interface {
	Encrypt(in T) (T, error)
}

// Decryptor decrypts a payload of type T.
type Decryptor[T any] interface {
	Decrypt(in T) (T, error)
}

// Transform is a reversible operation over payloads of type T, usually
// []byte or string. Key material is bound when the transform is constructed
// and any IV or nonce the transform needs is carried inside its output.
type Transform[T any] interface {
	Encryptor[T]
	Decryptor[T]
}

// Named is implemented by transforms that report a stable, human readable
// name. The name labels chain stages in errors, logs and metrics.
type Named interface {
	Name() string
}

// EncryptorFunc adapts an ordinary function to the Encryptor interface.
type EncryptorFunc[T any] func(in T) (T, error)

// Encrypt calls f(in).
func (f EncryptorFunc[T]) Encrypt(in T) (T, error) { return f(in) }

// DecryptorFunc adapts an ordinary function to the Decryptor interface.
type DecryptorFunc[T any] func(in T) (T, error)

// Decrypt calls f(in).
func (f DecryptorFunc[T]) Decrypt(in T) (T, error) { return f(in) }

type funcTransform[T any] struct {
	name string
	enc  EncryptorFunc[T]
	dec  DecryptorFunc[T]
}

// Funcs builds a Transform from a pair of functions. The name is optional
// and is reported through the Named interface.
func Funcs[T any](name string, enc func(T) (T, error), dec func(T) (T, error)) Transform[T] {
	return &funcTransform[T]{name: name, enc: enc, dec: dec}
}

func (t *funcTransform[T]) Encrypt(in T) (T, error) { return t.enc(in) }
func (t *funcTransform[T]) Decrypt(in T) (T, error) { return t.dec(in) }
func (t *funcTransform[T]) Name() string            { return t.name }

// Identity returns a transform that passes payloads through unchanged.
func Identity[T any]() Transform[T] {
	return identity[T]{}
}

type identity[T any] struct{}

func (identity[T]) Encrypt(in T) (T, error) { return in, nil }
func (identity[T]) Decrypt(in T) (T, error) { return in, nil }
func (identity[T]) Name() string            { return "identity" }

// Reverse returns a reversed copy of transforms. It is the usual way to
// derive the decrypt order from an encrypt order.
func Reverse[T any](transforms []Transform[T]) []Transform[T] {
	reversed := make([]Transform[T], len(transforms))
	for i, t := range transforms {
		reversed[len(transforms)-1-i] = t
	}
	return reversed
}

// stageName returns the label used for a stage.
func stageName(stage any) string {
	if n, ok := stage.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	return fmt.Sprintf("%T", stage)
}

// StageName reports the label a chain would use for t.
func StageName(t any) string {
	return stageName(t)
}
