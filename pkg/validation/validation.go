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

// Package validation checks user-supplied identifiers from configuration
// files and command lines before they reach logs or the environment.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// pipelineNamePattern matches safe pipeline names
	pipelineNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_\-\.]*$`)

	// envNamePattern matches POSIX environment variable names
	envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ValidatePipelineName validates a pipeline name.
// Names start with a letter or digit and may contain -, _ and .
func ValidatePipelineName(name string) error {
	if name == "" {
		return fmt.Errorf("pipeline name cannot be empty")
	}

	// Check length before matching
	if len(name) > 128 {
		return fmt.Errorf("pipeline name too long (max 128 characters)")
	}

	if hasControl(name) {
		return fmt.Errorf("pipeline name contains control characters")
	}

	if !pipelineNamePattern.MatchString(name) {
		return fmt.Errorf("pipeline name contains invalid characters (allowed: a-z, A-Z, 0-9, -, _, .)")
	}
	return nil
}

// ValidateEnvName validates the name of an environment variable that holds
// key material or credentials.
func ValidateEnvName(name string) error {
	if name == "" {
		return fmt.Errorf("environment variable name cannot be empty")
	}
	if len(name) > 255 {
		return fmt.Errorf("environment variable name too long (max 255 characters)")
	}
	if !envNamePattern.MatchString(name) {
		return fmt.Errorf("invalid environment variable name %q", SanitizeForLog(name))
	}
	return nil
}

// SanitizeForLog sanitizes a string for safe logging (prevents log injection).
func SanitizeForLog(s string) string {
	// Remove control characters and null bytes
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)

	// Limit length to prevent log flooding
	if len(s) > 1000 {
		s = s[:1000] + "...[truncated]"
	}

	return s
}

func hasControl(s string) bool {
	for _, r := range s {
		if r < 32 || r == 127 {
			return true
		}
	}
	return false
}
