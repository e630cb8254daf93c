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

// Package correlation tags a command run with an ID that is carried in its
// context and attached to every log line the run emits.
package correlation

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	// IDKey is the context key for run IDs
	IDKey contextKey = "correlation-id"

	// LogKey is the attribute name used when logging run IDs
	LogKey = "correlation_id"

	// EnvVar lets a caller supply the ID, e.g. from a surrounding job
	EnvVar = "CRYPTCHAIN_CORRELATION_ID"
)

// WithID returns a copy of ctx carrying id.
func WithID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, IDKey, id)
}

// ID returns the ID carried by ctx, or an empty string.
func ID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(IDKey).(string); ok {
		return id
	}
	return ""
}

// NewID generates a UUID v4 run ID.
func NewID() string {
	return uuid.New().String()
}

// Ensure returns ctx and its ID, attaching preferred (or a fresh ID when
// preferred is empty) if ctx carries none.
func Ensure(ctx context.Context, preferred string) (context.Context, string) {
	if id := ID(ctx); id != "" {
		return ctx, id
	}
	if preferred == "" {
		preferred = NewID()
	}
	return WithID(ctx, preferred), preferred
}
