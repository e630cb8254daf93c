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

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jeremyhahn/go-cryptchain/pkg/certfactory"
	"github.com/jeremyhahn/go-cryptchain/pkg/validation"
	"gopkg.in/yaml.v3"
)

// File formats accepted by Parse
const (
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// Output formats for CLI results
const (
	OutputText  = "text"
	OutputJSON  = "json"
	OutputTable = "table"
)

// Stage types
const (
	StageAESGCM            = "aes-gcm"
	StageAESCBC            = "aes-cbc"
	StageAESCTR            = "aes-ctr"
	StageChaCha20Poly1305  = "chacha20-poly1305"
	StageXChaCha20Poly1305 = "xchacha20-poly1305"
	StageRSAOAEP           = "rsa-oaep"
	StageRSAHybrid         = "rsa-hybrid"
	StageECIES             = "ecies"
	StageJWEDirect         = "jwe-dir"
	StageJWERSA            = "jwe-rsa"
	StageBase64            = "base64"
	StageBase64URL         = "base64url"
	StageRawBase64URL      = "base64url-raw"
	StageHex               = "hex"
	StageAWSKMS            = "aws-kms"
	StageGCPKMS            = "gcp-kms"
	StageAzureKeyVault     = "azure-keyvault"
	StageVaultTransit      = "vault-transit"
)

// Key encodings for symmetric key material
const (
	KeyEncodingRaw    = "raw"
	KeyEncodingHex    = "hex"
	KeyEncodingBase64 = "base64"
)

// Config represents the complete cryptchain configuration
type Config struct {
	Logging     LoggingConfig             `yaml:"logging" toml:"logging"`
	Output      string                    `yaml:"output" toml:"output"`
	Metrics     MetricsConfig             `yaml:"metrics" toml:"metrics"`
	Certificate CertificateConfig         `yaml:"certificate" toml:"certificate"`
	Pipelines   map[string]PipelineConfig `yaml:"pipelines" toml:"pipelines"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig controls where metrics are written after a command runs
type MetricsConfig struct {
	// TextFile is a node-exporter textfile collector path. Empty disables
	// metrics output.
	TextFile string `yaml:"textfile" toml:"textfile"`
}

// CertificateConfig holds defaults for certificate commands
type CertificateConfig struct {
	SignatureAlgorithm string `yaml:"signature_algorithm" toml:"signature_algorithm"`
	ValidityDays       int    `yaml:"validity_days" toml:"validity_days"`
}

// PipelineConfig is a named, ordered list of stages. Encryption runs the
// stages in order; decryption runs them in reverse.
type PipelineConfig struct {
	Description string        `yaml:"description" toml:"description"`
	Stages      []StageConfig `yaml:"stages" toml:"stages"`
}

// StageConfig configures one transform. Which fields apply depends on Type.
type StageConfig struct {
	Type string `yaml:"type" toml:"type"`

	// Symmetric key material, read from a file or an environment variable
	KeyFile     string `yaml:"key_file" toml:"key_file"`
	KeyEnv      string `yaml:"key_env" toml:"key_env"`
	KeyEncoding string `yaml:"key_encoding" toml:"key_encoding"` // raw, hex, base64

	// Asymmetric keys in PEM files
	PublicKeyFile  string `yaml:"public_key_file" toml:"public_key_file"`
	PrivateKeyFile string `yaml:"private_key_file" toml:"private_key_file"`
	PasswordEnv    string `yaml:"password_env" toml:"password_env"`
	Hash           string `yaml:"hash" toml:"hash"` // sha1, sha256, sha384, sha512

	AdditionalData string `yaml:"additional_data" toml:"additional_data"`

	// Remote key services
	KeyID           string        `yaml:"key_id" toml:"key_id"`
	Region          string        `yaml:"region" toml:"region"`
	Endpoint        string        `yaml:"endpoint" toml:"endpoint"`
	KeyName         string        `yaml:"key_name" toml:"key_name"`
	KeyVersion      string        `yaml:"key_version" toml:"key_version"`
	VaultURL        string        `yaml:"vault_url" toml:"vault_url"`
	Address         string        `yaml:"address" toml:"address"`
	TokenEnv        string        `yaml:"token_env" toml:"token_env"`
	Mount           string        `yaml:"mount" toml:"mount"`
	CredentialsFile string        `yaml:"credentials_file" toml:"credentials_file"`
	AccessKeyEnv    string        `yaml:"access_key_env" toml:"access_key_env"`
	SecretKeyEnv    string        `yaml:"secret_key_env" toml:"secret_key_env"`
	TenantID        string        `yaml:"tenant_id" toml:"tenant_id"`
	ClientID        string        `yaml:"client_id" toml:"client_id"`
	ClientSecretEnv string        `yaml:"client_secret_env" toml:"client_secret_env"`
	Namespace       string        `yaml:"namespace" toml:"namespace"`
	Timeout         time.Duration `yaml:"timeout" toml:"timeout"`
	RateLimit       float64       `yaml:"rate_limit" toml:"rate_limit"` // calls per second, 0 is unlimited
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Output: OutputText,
		Certificate: CertificateConfig{
			SignatureAlgorithm: "SHA256withECDSA",
			ValidityDays:       365,
		},
		Pipelines: map[string]PipelineConfig{},
	}
}

// Load reads configuration from a YAML or TOML file (chosen by extension),
// applies environment variable overrides and validates the result
func Load(path string) (*Config, error) {
	// #nosec G304 - Config file path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = FormatTOML
	}

	cfg, err := Parse(data, format)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Parse decodes data over the defaults without applying overrides or
// validating
func Parse(data []byte, format string) (*Config, error) {
	cfg := Default()
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
	if cfg.Pipelines == nil {
		cfg.Pipelines = map[string]PipelineConfig{}
	}
	return cfg, nil
}

// LoadOrDefault loads path when it is non-empty and otherwise returns the
// defaults with environment overrides applied
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	cfg := Default()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	if level := os.Getenv("CRYPTCHAIN_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("CRYPTCHAIN_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
	if output := os.Getenv("CRYPTCHAIN_OUTPUT"); output != "" {
		cfg.Output = output
	}
	if textfile := os.Getenv("CRYPTCHAIN_METRICS_FILE"); textfile != "" {
		cfg.Metrics.TextFile = textfile
	}
	if alg := os.Getenv("CRYPTCHAIN_SIGNATURE_ALGORITHM"); alg != "" {
		cfg.Certificate.SignatureAlgorithm = alg
	}
	if days := os.Getenv("CRYPTCHAIN_VALIDITY_DAYS"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n < 1 {
			log.Printf("Warning: invalid CRYPTCHAIN_VALIDITY_DAYS value %q, using %d",
				days, cfg.Certificate.ValidityDays)
		} else {
			cfg.Certificate.ValidityDays = n
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	switch c.Output {
	case OutputText, OutputJSON, OutputTable:
	default:
		return fmt.Errorf("invalid output: %s (must be text, json, or table)", c.Output)
	}

	if _, err := certfactory.ParseSignatureAlgorithm(c.Certificate.SignatureAlgorithm); err != nil {
		return fmt.Errorf("certificate: %w", err)
	}
	if c.Certificate.ValidityDays < 1 {
		return fmt.Errorf("certificate validity_days must be positive, got %d", c.Certificate.ValidityDays)
	}

	for _, name := range c.PipelineNames() {
		if err := validation.ValidatePipelineName(name); err != nil {
			return err
		}
		if err := c.Pipelines[name].Validate(); err != nil {
			return fmt.Errorf("pipeline %q: %w", name, err)
		}
	}
	return nil
}

// PipelineNames returns the configured pipeline names, sorted
func (c *Config) PipelineNames() []string {
	names := make([]string, 0, len(c.Pipelines))
	for name := range c.Pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pipeline returns the named pipeline
func (c *Config) Pipeline(name string) (PipelineConfig, error) {
	p, ok := c.Pipelines[name]
	if !ok {
		return PipelineConfig{}, fmt.Errorf("unknown pipeline %q", name)
	}
	return p, nil
}

// Validate checks every stage of the pipeline
func (p PipelineConfig) Validate() error {
	if len(p.Stages) == 0 {
		return fmt.Errorf("at least one stage is required")
	}
	for i, stage := range p.Stages {
		if err := stage.Validate(); err != nil {
			return fmt.Errorf("stage %d (%s): %w", i, stage.Type, err)
		}
	}
	return nil
}

// StageTypes lists every supported stage type
func StageTypes() []string {
	return []string{
		StageAESGCM, StageAESCBC, StageAESCTR,
		StageChaCha20Poly1305, StageXChaCha20Poly1305,
		StageRSAOAEP, StageRSAHybrid, StageECIES,
		StageJWEDirect, StageJWERSA,
		StageBase64, StageBase64URL, StageRawBase64URL, StageHex,
		StageAWSKMS, StageGCPKMS, StageAzureKeyVault, StageVaultTransit,
	}
}

// Validate checks that the fields the stage type needs are present
func (s StageConfig) Validate() error {
	switch s.KeyEncoding {
	case "", KeyEncodingRaw, KeyEncodingHex, KeyEncodingBase64:
	default:
		return fmt.Errorf("invalid key_encoding: %s (must be raw, hex, or base64)", s.KeyEncoding)
	}
	switch strings.ToLower(s.Hash) {
	case "", "sha1", "sha256", "sha384", "sha512":
	default:
		return fmt.Errorf("invalid hash: %s (must be sha1, sha256, sha384, or sha512)", s.Hash)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if s.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	for field, name := range map[string]string{
		"key_env":           s.KeyEnv,
		"password_env":      s.PasswordEnv,
		"token_env":         s.TokenEnv,
		"access_key_env":    s.AccessKeyEnv,
		"secret_key_env":    s.SecretKeyEnv,
		"client_secret_env": s.ClientSecretEnv,
	} {
		if name == "" {
			continue
		}
		if err := validation.ValidateEnvName(name); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}

	switch s.Type {
	case StageAESGCM, StageAESCBC, StageAESCTR,
		StageChaCha20Poly1305, StageXChaCha20Poly1305, StageJWEDirect:
		if s.KeyFile == "" && s.KeyEnv == "" {
			return fmt.Errorf("key_file or key_env is required")
		}
	case StageRSAOAEP, StageRSAHybrid, StageECIES, StageJWERSA:
		if s.PublicKeyFile == "" && s.PrivateKeyFile == "" {
			return fmt.Errorf("public_key_file or private_key_file is required")
		}
	case StageBase64, StageBase64URL, StageRawBase64URL, StageHex:
	case StageAWSKMS:
		if s.KeyID == "" {
			return fmt.Errorf("key_id is required")
		}
	case StageGCPKMS:
		if s.KeyName == "" {
			return fmt.Errorf("key_name is required")
		}
	case StageAzureKeyVault:
		if s.VaultURL == "" || s.KeyName == "" {
			return fmt.Errorf("vault_url and key_name are required")
		}
	case StageVaultTransit:
		if s.KeyName == "" {
			return fmt.Errorf("key_name is required")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown stage type %q", s.Type)
	}

	if s.AdditionalData != "" && !s.SupportsAdditionalData() {
		return fmt.Errorf("additional_data is not supported by %s", s.Type)
	}
	return nil
}

// SupportsAdditionalData reports whether the stage type authenticates
// additional_data alongside the payload
func (s StageConfig) SupportsAdditionalData() bool {
	switch s.Type {
	case StageAESGCM, StageChaCha20Poly1305, StageXChaCha20Poly1305,
		StageRSAOAEP, StageECIES, StageAWSKMS, StageGCPKMS, StageVaultTransit:
		return true
	}
	return false
}
