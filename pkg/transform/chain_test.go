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

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tag appends a marker on encrypt and strips it on decrypt, failing when the
// marker is not the last one on the payload.
func tag(marker string) Transform[string] {
	return Funcs(marker,
		func(in string) (string, error) { return in + "|" + marker, nil },
		func(in string) (string, error) {
			suffix := "|" + marker
			if !strings.HasSuffix(in, suffix) {
				return "", errors.New("missing marker " + marker)
			}
			return strings.TrimSuffix(in, suffix), nil
		})
}

// xor is a byte transform that flips bits with a single-byte key.
func xor(key byte) Transform[[]byte] {
	f := func(in []byte) ([]byte, error) {
		out := make([]byte, len(in))
		for i, b := range in {
			out[i] = b ^ key
		}
		return out, nil
	}
	return Funcs("xor", f, f)
}

type recorder struct {
	calls *[]string
	name  string
	fail  bool
}

func (r recorder) Encrypt(in string) (string, error) {
	*r.calls = append(*r.calls, "enc:"+r.name)
	if r.fail {
		return "partial", errors.New("boom")
	}
	return in + r.name, nil
}

func (r recorder) Decrypt(in string) (string, error) {
	*r.calls = append(*r.calls, "dec:"+r.name)
	if r.fail {
		return "partial", errors.New("boom")
	}
	return strings.TrimSuffix(in, r.name), nil
}

func TestChainedEncryptor(t *testing.T) {
	t.Run("applies stages in construction order", func(t *testing.T) {
		enc := NewChainedEncryptor[string](tag("a"), tag("b"), tag("c"))
		out, err := enc.Encrypt("x")
		require.NoError(t, err)
		assert.Equal(t, "x|a|b|c", out)
		assert.Equal(t, 3, enc.Len())
	})

	t.Run("zero stages is the identity", func(t *testing.T) {
		enc := NewChainedEncryptor[string]()
		out, err := enc.Encrypt("unchanged")
		require.NoError(t, err)
		assert.Equal(t, "unchanged", out)
		assert.Equal(t, 0, enc.Len())
	})

	t.Run("first failure aborts without partial output", func(t *testing.T) {
		var calls []string
		enc := NewChainedEncryptor[string](
			recorder{calls: &calls, name: "a"},
			recorder{calls: &calls, name: "b", fail: true},
			recorder{calls: &calls, name: "c"},
		)

		out, err := enc.Encrypt("x")
		require.Error(t, err)
		assert.Empty(t, out)
		assert.Equal(t, []string{"enc:a", "enc:b"}, calls)

		assert.ErrorIs(t, err, ErrCryptographicOperation)
		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, OpEncrypt, stageErr.Op)
		assert.Equal(t, 1, stageErr.Stage)
		assert.EqualError(t, stageErr.Err, "boom")
	})

	t.Run("caller slice changes do not affect the chain", func(t *testing.T) {
		stages := []Encryptor[string]{tag("a"), tag("b")}
		enc := NewChainedEncryptor(stages...)
		stages[0] = tag("z")

		out, err := enc.Encrypt("x")
		require.NoError(t, err)
		assert.Equal(t, "x|a|b", out)
	})

	t.Run("accepts plain functions", func(t *testing.T) {
		upper := EncryptorFunc[string](func(in string) (string, error) { return strings.ToUpper(in), nil })
		out, err := NewChainedEncryptor[string](upper).Encrypt("abc")
		require.NoError(t, err)
		assert.Equal(t, "ABC", out)
	})
}

func TestChainedDecryptor(t *testing.T) {
	t.Run("applies stages in construction order", func(t *testing.T) {
		dec := NewChainedDecryptor[string](tag("c"), tag("b"), tag("a"))
		out, err := dec.Decrypt("x|a|b|c")
		require.NoError(t, err)
		assert.Equal(t, "x", out)
	})

	t.Run("does not reverse the caller's order", func(t *testing.T) {
		dec := NewChainedDecryptor[string](tag("a"), tag("b"), tag("c"))
		_, err := dec.Decrypt("x|a|b|c")
		require.Error(t, err)

		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, OpDecrypt, stageErr.Op)
		assert.Equal(t, 0, stageErr.Stage)
		assert.Equal(t, "a", stageErr.Name)
	})

	t.Run("zero stages is the identity", func(t *testing.T) {
		out, err := NewChainedDecryptor[[]byte]().Decrypt([]byte("raw"))
		require.NoError(t, err)
		assert.Equal(t, []byte("raw"), out)
	})

	t.Run("first failure aborts", func(t *testing.T) {
		var calls []string
		dec := NewChainedDecryptor[string](
			recorder{calls: &calls, name: "a", fail: true},
			recorder{calls: &calls, name: "b"},
		)
		out, err := dec.Decrypt("x")
		require.Error(t, err)
		assert.Empty(t, out)
		assert.Equal(t, []string{"dec:a"}, calls)
		assert.ErrorIs(t, err, ErrCryptographicOperation)
	})
}

func TestChain(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		chain := NewChain(tag("a"), tag("b"), tag("c"))

		ct, err := chain.Encrypt("payload")
		require.NoError(t, err)
		assert.Equal(t, "payload|a|b|c", ct)

		pt, err := chain.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, "payload", pt)
		assert.Equal(t, 3, chain.Len())
	})

	t.Run("halves are usable on their own", func(t *testing.T) {
		chain := NewChain(tag("a"), tag("b"))

		ct, err := chain.Encryptor().Encrypt("p")
		require.NoError(t, err)
		pt, err := chain.Decryptor().Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, "p", pt)
		assert.Equal(t, 2, chain.Decryptor().Len())
	})

	t.Run("empty chain is the identity", func(t *testing.T) {
		chain := NewChain[[]byte]()
		out, err := chain.Encrypt([]byte{1, 2, 3})
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, out)
	})

	t.Run("chains nest", func(t *testing.T) {
		inner := NewChain(tag("b"), tag("c"))
		outer := NewChain[string](tag("a"), inner, tag("d"))

		ct, err := outer.Encrypt("x")
		require.NoError(t, err)
		assert.Equal(t, "x|a|b|c|d", ct)

		pt, err := outer.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, "x", pt)
	})

	t.Run("decrypt failure names the reversed stage", func(t *testing.T) {
		chain := NewChain(tag("a"), tag("b"))
		_, err := chain.Decrypt("x|b|a")

		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, 0, stageErr.Stage)
		assert.Equal(t, "b", stageErr.Name)
		assert.Contains(t, err.Error(), "decrypt stage 0 (b)")
	})

	t.Run("byte chain with an encoding stage", func(t *testing.T) {
		encode := Funcs("base64",
			func(in []byte) ([]byte, error) { return []byte(base64.StdEncoding.EncodeToString(in)), nil },
			func(in []byte) ([]byte, error) { return base64.StdEncoding.DecodeString(string(in)) })
		chain := NewChain(xor(0x5a), encode)

		ct, err := chain.Encrypt([]byte("hello-world"))
		require.NoError(t, err)
		pt, err := chain.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello-world"), pt)

		// Applying the decrypt stages in encrypt order does not recover the input.
		wrong := NewChainedDecryptor[[]byte](xor(0x5a), encode)
		out, err := wrong.Decrypt(ct)
		if err == nil {
			assert.NotEqual(t, []byte("hello-world"), out)
		}
	})
}

func TestNilStage(t *testing.T) {
	assert.PanicsWithValue(t, "transform: nil stage at index 1", func() {
		NewChain(tag("a"), nil, tag("c"))
	})
	assert.PanicsWithValue(t, "transform: nil stage at index 0", func() {
		NewChainedEncryptor[string](nil, tag("b"))
	})
	assert.PanicsWithValue(t, "transform: nil stage at index 1", func() {
		NewChainedDecryptor[string](tag("a"), nil)
	})
	assert.NotPanics(t, func() { NewChain[string]() })
}

func TestIdentityAndReverse(t *testing.T) {
	id := Identity[string]()
	out, err := id.Encrypt("same")
	require.NoError(t, err)
	assert.Equal(t, "same", out)
	out, err = id.Decrypt("same")
	require.NoError(t, err)
	assert.Equal(t, "same", out)
	assert.Equal(t, "identity", StageName(id))

	a, b, c := tag("a"), tag("b"), tag("c")
	in := []Transform[string]{a, b, c}
	rev := Reverse(in)
	assert.Equal(t, []string{"c", "b", "a"}, []string{StageName(rev[0]), StageName(rev[1]), StageName(rev[2])})
	assert.Equal(t, "a", StageName(in[0]), "input slice must not be modified")
}

func TestStageName(t *testing.T) {
	assert.Equal(t, "a", StageName(tag("a")))
	assert.Equal(t, "chain", StageName(NewChain[string]()))
	assert.Equal(t, "transform.recorder", StageName(recorder{}))
	assert.Contains(t, StageName(Funcs[string]("", nil, nil)), "funcTransform")
}

func TestStageError(t *testing.T) {
	cause := errors.New("bad tag")
	err := &StageError{Op: OpDecrypt, Stage: 2, Name: "aes-256-gcm", Err: cause}

	assert.Equal(t, "transform: decrypt stage 2 (aes-256-gcm) failed: bad tag", err.Error())
	assert.ErrorIs(t, err, ErrCryptographicOperation)
	assert.ErrorIs(t, err, cause)
}
