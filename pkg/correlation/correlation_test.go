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

package correlation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestWithID(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		id   string
	}{
		{"background", context.Background(), "run-1"},
		{"nil context", nil, "run-2"},
		{"empty id", context.Background(), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := WithID(tt.ctx, tt.id)
			assert.NotNil(t, ctx)
			assert.Equal(t, tt.id, ID(ctx))
		})
	}
}

func TestIDMissing(t *testing.T) {
	assert.Empty(t, ID(context.Background()))
	assert.Empty(t, ID(nil)) //nolint:staticcheck // nil context is handled
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b)
	parsed, err := uuid.Parse(a)
	assert.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
}

func TestEnsure(t *testing.T) {
	ctx, id := Ensure(context.Background(), "")
	assert.NotEmpty(t, id)
	assert.Equal(t, id, ID(ctx))

	ctx, id = Ensure(context.Background(), "job-7")
	assert.Equal(t, "job-7", id)
	assert.Equal(t, "job-7", ID(ctx))

	// an existing ID wins over the preferred one
	_, id = Ensure(ctx, "job-8")
	assert.Equal(t, "job-7", id)
}
