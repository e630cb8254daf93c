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
	"errors"
	"fmt"
)

// ErrCryptographicOperation is matched by every error a chain returns when
// one of its stages fails.
var ErrCryptographicOperation = errors.New("transform: cryptographic operation failed")

// Operation names reported by StageError.
const (
	OpEncrypt = "encrypt"
	OpDecrypt = "decrypt"
)

// StageError reports the chain stage that failed. It matches
// ErrCryptographicOperation and unwraps to the stage's own error.
type StageError struct {
	// Op is OpEncrypt or OpDecrypt.
	Op string
	// Stage is the zero-based position of the failing stage in the sequence
	// that was being walked.
	Stage int
	// Name labels the failing stage.
	Name string
	// Err is the error returned by the stage.
	Err error
}

// Error implements error.
func (e *StageError) Error() string {
	return fmt.Sprintf("transform: %s stage %d (%s) failed: %v", e.Op, e.Stage, e.Name, e.Err)
}

// Unwrap exposes both the sentinel and the stage's error to errors.Is/As.
func (e *StageError) Unwrap() []error {
	return []error{ErrCryptographicOperation, e.Err}
}
