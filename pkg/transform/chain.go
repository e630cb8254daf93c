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

import "fmt"

// ChainedEncryptor applies a sequence of encryptors in construction order,
// feeding the output of each stage into the next.
type ChainedEncryptor[T any] struct {
	stages []Encryptor[T]
}

// NewChainedEncryptor returns an encryptor that applies encryptors in the
// given order. With no encryptors it is the identity. It panics if an
// encryptor is nil.
func NewChainedEncryptor[T any](encryptors ...Encryptor[T]) *ChainedEncryptor[T] {
	for i, e := range encryptors {
		if e == nil {
			panic(nilStage(i))
		}
	}
	stages := make([]Encryptor[T], len(encryptors))
	copy(stages, encryptors)
	return &ChainedEncryptor[T]{stages: stages}
}

// Encrypt runs every stage in order and returns the last output. The first
// failing stage aborts the chain with a *StageError and the zero value of T.
func (c *ChainedEncryptor[T]) Encrypt(in T) (T, error) {
	out := in
	for i, stage := range c.stages {
		next, err := stage.Encrypt(out)
		if err != nil {
			var zero T
			return zero, &StageError{Op: OpEncrypt, Stage: i, Name: stageName(stage), Err: err}
		}
		out = next
	}
	return out, nil
}

// Len returns the number of stages.
func (c *ChainedEncryptor[T]) Len() int { return len(c.stages) }

// ChainedDecryptor applies a sequence of decryptors in construction order.
// The sequence must be the reverse of the one used to encrypt the payload;
// the decryptor has no way to check this.
type ChainedDecryptor[T any] struct {
	stages []Decryptor[T]
}

// NewChainedDecryptor returns a decryptor that applies decryptors in the
// given order. With no decryptors it is the identity. It panics if a
// decryptor is nil.
func NewChainedDecryptor[T any](decryptors ...Decryptor[T]) *ChainedDecryptor[T] {
	for i, d := range decryptors {
		if d == nil {
			panic(nilStage(i))
		}
	}
	stages := make([]Decryptor[T], len(decryptors))
	copy(stages, decryptors)
	return &ChainedDecryptor[T]{stages: stages}
}

// Decrypt runs every stage in order and returns the last output. The first
// failing stage aborts the chain with a *StageError and the zero value of T.
func (c *ChainedDecryptor[T]) Decrypt(in T) (T, error) {
	out := in
	for i, stage := range c.stages {
		next, err := stage.Decrypt(out)
		if err != nil {
			var zero T
			return zero, &StageError{Op: OpDecrypt, Stage: i, Name: stageName(stage), Err: err}
		}
		out = next
	}
	return out, nil
}

// Len returns the number of stages.
func (c *ChainedDecryptor[T]) Len() int { return len(c.stages) }

// Chain is a Transform built from an ordered list of transforms. Encrypt
// walks the list front to back and Decrypt walks it back to front, so a
// payload encrypted by a Chain is always decrypted in the matching order.
// A Chain is itself a Transform and may be nested inside another chain.
type Chain[T any] struct {
	enc *ChainedEncryptor[T]
	dec *ChainedDecryptor[T]
}

// NewChain returns a chain over transforms in encrypt order. It panics if a
// transform is nil.
func NewChain[T any](transforms ...Transform[T]) *Chain[T] {
	for i, t := range transforms {
		if t == nil {
			panic(nilStage(i))
		}
	}
	encryptors := make([]Encryptor[T], len(transforms))
	decryptors := make([]Decryptor[T], len(transforms))
	for i, t := range transforms {
		encryptors[i] = t
		decryptors[len(transforms)-1-i] = t
	}
	return &Chain[T]{
		enc: NewChainedEncryptor(encryptors...),
		dec: NewChainedDecryptor(decryptors...),
	}
}

// Encrypt applies the transforms in construction order.
func (c *Chain[T]) Encrypt(in T) (T, error) { return c.enc.Encrypt(in) }

// Decrypt applies the transforms in reverse construction order. Stage
// indexes in a returned *StageError refer to the reversed sequence.
func (c *Chain[T]) Decrypt(in T) (T, error) { return c.dec.Decrypt(in) }

// Encryptor returns the encrypting half of the chain.
func (c *Chain[T]) Encryptor() *ChainedEncryptor[T] { return c.enc }

// Decryptor returns the decrypting half of the chain, already reversed.
func (c *Chain[T]) Decryptor() *ChainedDecryptor[T] { return c.dec }

// Len returns the number of transforms in the chain.
func (c *Chain[T]) Len() int { return c.enc.Len() }

// Name implements Named.
func (c *Chain[T]) Name() string { return "chain" }

func nilStage(i int) string {
	return fmt.Sprintf("transform: nil stage at index %d", i)
}
