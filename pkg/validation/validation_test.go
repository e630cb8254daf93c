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

package validation

import (
	"strings"
	"testing"
)

func TestValidatePipelineName(t *testing.T) {
	tests := []struct {
		name     string
		pipeline string
		wantErr  bool
	}{
		{"valid alphanumeric", "payments1", false},
		{"valid with dash", "secure-text", false},
		{"valid with underscore", "secure_text", false},
		{"valid with dot", "app.production", false},
		{"valid single char", "a", false},
		{"valid numbers only", "12345", false},

		{"empty string", "", true},
		{"leading dash", "-flag", true},
		{"leading dot", ".hidden", true},
		{"null byte", "pipe\x00line", true},
		{"newline", "pipe\nline", true},
		{"del character", "pipe\x7fline", true},
		{"space", "my pipeline", true},
		{"slash", "a/b", true},
		{"colon", "a:b", true},
		{"dollar", "a$b", true},
		{"too long", strings.Repeat("a", 129), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePipelineName(tt.pipeline)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePipelineName(%q) error = %v, wantErr %v", tt.pipeline, err, tt.wantErr)
			}
		})
	}
}

func TestValidateEnvName(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		wantErr bool
	}{
		{"upper case", "AES_KEY", false},
		{"leading underscore", "_KEY", false},
		{"mixed case", "VaultToken2", false},

		{"empty", "", true},
		{"leading digit", "1KEY", true},
		{"dash", "AES-KEY", true},
		{"dollar", "$AES_KEY", true},
		{"space", "AES KEY", true},
		{"equals", "A=B", true},
		{"too long", strings.Repeat("A", 256), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEnvName(tt.env)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEnvName(%q) error = %v, wantErr %v", tt.env, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean", "CN=Example", "CN=Example"},
		{"newline injection", "CN=a\nlevel=error msg=forged", "CN=alevel=error msg=forged"},
		{"null byte", "a\x00b", "ab"},
		{"del", "a\x7fb", "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeForLog(tt.input); got != tt.want {
				t.Errorf("SanitizeForLog(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	long := SanitizeForLog(strings.Repeat("x", 2000))
	if !strings.HasSuffix(long, "...[truncated]") || len(long) != 1000+len("...[truncated]") {
		t.Errorf("SanitizeForLog did not truncate: len=%d", len(long))
	}
}
