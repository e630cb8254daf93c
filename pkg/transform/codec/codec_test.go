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

package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStages(t *testing.T) {
	input := []byte{0xfb, 0xff, 0x00, 'h', 'i'}

	tests := []struct {
		name    string
		stage   *Stage
		encoded string
	}{
		{"base64", Base64(), "+/8AaGk="},
		{"base64url", Base64URL(), "-_8AaGk="},
		{"base64url-raw", RawBase64URL(), "-_8AaGk"},
		{"hex", Hex(), "fbff006869"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.stage.Name())

			out, err := tt.stage.Encrypt(input)
			require.NoError(t, err)
			assert.Equal(t, tt.encoded, string(out))

			back, err := tt.stage.Decrypt(out)
			require.NoError(t, err)
			assert.Equal(t, input, back)
		})
	}
}

func TestEmptyInput(t *testing.T) {
	for _, stage := range []*Stage{Base64(), Base64URL(), RawBase64URL(), Hex()} {
		out, err := stage.Encrypt(nil)
		require.NoError(t, err)
		assert.Empty(t, out)

		back, err := stage.Decrypt(out)
		require.NoError(t, err)
		assert.Empty(t, back)
	}
}

func TestInvalidInput(t *testing.T) {
	_, err := Base64().Decrypt([]byte("not base64!"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "codec: invalid base64 input")

	_, err = Hex().Decrypt([]byte("xyz"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "codec: invalid hex input")

	_, err = RawBase64URL().Decrypt([]byte("AA=="))
	assert.Error(t, err)
}
