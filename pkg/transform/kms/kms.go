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

// Package kms provides byte transforms backed by remote key management
// services: AWS KMS, Google Cloud KMS, Azure Key Vault and HashiCorp Vault
// Transit.
//
// The key never leaves the service. Each Encrypt or Decrypt call is a single
// request bounded by a per-call timeout and, optionally, a shared rate
// limiter. Every transform takes a narrow client interface that the SDK
// client satisfies, so tests can substitute a fake.
package kms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a single remote call when WithTimeout is not given.
const DefaultTimeout = 30 * time.Second

var (
	// ErrNilClient is returned by constructors given a nil client.
	ErrNilClient = errors.New("kms: client cannot be nil")

	// ErrKeyRequired is returned by constructors given an empty key identifier.
	ErrKeyRequired = errors.New("kms: key identifier required")

	// ErrInvalidResponse is returned when a service reply is missing data.
	ErrInvalidResponse = errors.New("kms: invalid response from service")

	// ErrIntegrity is returned when a checksum reported by the service does
	// not match the data received.
	ErrIntegrity = errors.New("kms: data integrity check failed")
)

// Option configures a remote transform.
type Option func(*options)

type options struct {
	timeout time.Duration
	limiter *rate.Limiter
	aad     []byte
}

func newOptions(opts []Option) options {
	o := options{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithTimeout bounds each remote call. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLimiter throttles remote calls through l. A limiter may be shared by
// several transforms that talk to the same service.
func WithLimiter(l *rate.Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

// WithAdditionalData binds aad to every message. How it is sent depends on
// the service: an encryption context for AWS, AAD for Google Cloud and
// associated data for Vault. Azure RSA keys do not support it.
func WithAdditionalData(aad []byte) Option {
	return func(o *options) {
		o.aad = append([]byte(nil), aad...)
	}
}

// call runs fn under the configured timeout after waiting for the limiter.
func (o *options) call(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("kms: rate limit wait: %w", err)
		}
	}
	return fn(ctx)
}
