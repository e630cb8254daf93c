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

// Package pipeline turns configured stage lists into transform chains.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/jeremyhahn/go-cryptchain/internal/config"
	"github.com/jeremyhahn/go-cryptchain/pkg/logging"
	"github.com/jeremyhahn/go-cryptchain/pkg/metrics"
	"github.com/jeremyhahn/go-cryptchain/pkg/transform"
	"github.com/jeremyhahn/go-cryptchain/pkg/transform/aes"
	"github.com/jeremyhahn/go-cryptchain/pkg/transform/chacha20poly1305"
	"github.com/jeremyhahn/go-cryptchain/pkg/transform/codec"
	"github.com/jeremyhahn/go-cryptchain/pkg/transform/ecies"
	"github.com/jeremyhahn/go-cryptchain/pkg/transform/jwe"
	"github.com/jeremyhahn/go-cryptchain/pkg/transform/kms"
	"github.com/jeremyhahn/go-cryptchain/pkg/transform/rsa"
	"golang.org/x/time/rate"
)

// Pipeline is a built chain together with the resources its stages hold.
type Pipeline struct {
	Name   string
	Stages []string

	chain   *transform.Chain[[]byte]
	closers []io.Closer
}

// Encrypt runs every stage in configured order.
func (p *Pipeline) Encrypt(in []byte) ([]byte, error) { return p.chain.Encrypt(in) }

// Decrypt runs every stage in reverse order.
func (p *Pipeline) Decrypt(in []byte) ([]byte, error) { return p.chain.Decrypt(in) }

// Chain returns the underlying transform chain.
func (p *Pipeline) Chain() *transform.Chain[[]byte] { return p.chain }

// Close releases remote clients opened for the pipeline.
func (p *Pipeline) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}

// Builder creates pipelines from configuration.
type Builder struct {
	clients  Clients
	logger   *logging.Logger
	metrics  *metrics.Collector
	getenv   func(string) string
	readFile func(string) ([]byte, error)
}

// Option configures a Builder.
type Option func(*Builder)

// WithClients sets the factory for remote key service clients.
func WithClients(c Clients) Option {
	return func(b *Builder) {
		if c != nil {
			b.clients = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMetrics instruments every stage with c.
func WithMetrics(c *metrics.Collector) Option {
	return func(b *Builder) {
		b.metrics = c
	}
}

// WithEnv replaces os.Getenv for key, password and token lookups.
func WithEnv(getenv func(string) string) Option {
	return func(b *Builder) {
		if getenv != nil {
			b.getenv = getenv
		}
	}
}

// NewBuilder returns a Builder. Without WithClients, remote stages use the
// cloud SDK clients.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		logger:   logging.Discard(),
		getenv:   os.Getenv,
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.clients == nil {
		b.clients = NewSDKClients(b.getenv)
	}
	return b
}

// Build validates cfg and constructs its stages in order. Remote clients
// are created with ctx.
func (b *Builder) Build(ctx context.Context, name string, cfg config.PipelineConfig) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", name, err)
	}

	p := &Pipeline{Name: name}
	stages := make([]transform.Transform[[]byte], 0, len(cfg.Stages))
	for i, sc := range cfg.Stages {
		t, closer, err := b.stage(ctx, sc)
		if closer != nil {
			p.closers = append(p.closers, closer)
		}
		if err != nil {
			b.logger.MaybeError("failed to close pipeline clients", p.Close())
			return nil, fmt.Errorf("pipeline %q: stage %d (%s): %w", name, i, sc.Type, err)
		}
		if b.metrics != nil {
			t = metrics.Instrument(b.metrics, t)
		}
		stages = append(stages, t)
		p.Stages = append(p.Stages, transform.StageName(t))
	}
	p.chain = transform.NewChain(stages...)

	b.logger.Debug("pipeline built", "pipeline", name, "stages", p.Stages)
	return p, nil
}

func (b *Builder) stage(ctx context.Context, sc config.StageConfig) (transform.Transform[[]byte], io.Closer, error) {
	var aad []byte
	if sc.AdditionalData != "" {
		aad = []byte(sc.AdditionalData)
	}

	switch sc.Type {
	case config.StageBase64:
		return codec.Base64(), nil, nil
	case config.StageBase64URL:
		return codec.Base64URL(), nil, nil
	case config.StageRawBase64URL:
		return codec.RawBase64URL(), nil, nil
	case config.StageHex:
		return codec.Hex(), nil, nil

	case config.StageAESGCM, config.StageAESCBC, config.StageAESCTR,
		config.StageChaCha20Poly1305, config.StageXChaCha20Poly1305, config.StageJWEDirect:
		key, err := b.symmetricKey(sc)
		if err != nil {
			return nil, nil, err
		}
		t, err := symmetricStage(sc.Type, key, aad)
		return t, nil, err

	case config.StageRSAOAEP, config.StageRSAHybrid, config.StageJWERSA:
		pub, priv, err := b.rsaKeys(sc)
		if err != nil {
			return nil, nil, err
		}
		switch sc.Type {
		case config.StageRSAOAEP:
			hash, err := parseHash(sc.Hash)
			if err != nil {
				return nil, nil, err
			}
			t, err := rsa.NewOAEP(pub, priv, hash)
			if err != nil {
				return nil, nil, err
			}
			return t.WithLabel(aad), nil, nil
		case config.StageRSAHybrid:
			t, err := rsa.NewHybrid(pub, priv)
			return t, nil, err
		default:
			t, err := jwe.NewRSA(pub, priv)
			if err != nil {
				return nil, nil, err
			}
			return transform.Bytes(t), nil, nil
		}

	case config.StageECIES:
		pub, priv, err := b.ecdhKeys(sc)
		if err != nil {
			return nil, nil, err
		}
		var opts []ecies.Option
		if aad != nil {
			opts = append(opts, ecies.WithAdditionalData(aad))
		}
		t, err := ecies.New(pub, priv, opts...)
		return t, nil, err

	case config.StageAWSKMS:
		client, err := b.clients.AWS(ctx, sc)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create AWS KMS client: %w", err)
		}
		t, err := kms.NewAWS(client, sc.KeyID, remoteOptions(sc, aad)...)
		return t, nil, err

	case config.StageGCPKMS:
		client, closer, err := b.clients.GCP(ctx, sc)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Cloud KMS client: %w", err)
		}
		t, err := kms.NewGCP(client, sc.KeyName, remoteOptions(sc, aad)...)
		return t, closer, err

	case config.StageAzureKeyVault:
		client, err := b.clients.Azure(ctx, sc)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Key Vault client: %w", err)
		}
		t, err := kms.NewAzure(client, sc.KeyName, sc.KeyVersion, remoteOptions(sc, aad)...)
		return t, nil, err

	case config.StageVaultTransit:
		client, err := b.clients.Vault(ctx, sc)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Vault client: %w", err)
		}
		t, err := kms.NewVaultTransit(client, sc.Mount, sc.KeyName, remoteOptions(sc, aad)...)
		return t, nil, err
	}
	return nil, nil, fmt.Errorf("unknown stage type %q", sc.Type)
}

func symmetricStage(typ string, key, aad []byte) (transform.Transform[[]byte], error) {
	switch typ {
	case config.StageAESGCM:
		var opts []aes.Option
		if aad != nil {
			opts = append(opts, aes.WithAdditionalData(aad))
		}
		return aes.NewGCM(key, opts...)
	case config.StageAESCBC:
		return aes.NewCBC(key)
	case config.StageAESCTR:
		return aes.NewCTR(key)
	case config.StageChaCha20Poly1305, config.StageXChaCha20Poly1305:
		newCipher := chacha20poly1305.New
		if typ == config.StageXChaCha20Poly1305 {
			newCipher = chacha20poly1305.NewX
		}
		c, err := newCipher(key)
		if err != nil {
			return nil, err
		}
		if aad != nil {
			c = c.WithAdditionalData(aad)
		}
		return c, nil
	default:
		t, err := jwe.NewDirect(key)
		if err != nil {
			return nil, err
		}
		return transform.Bytes(t), nil
	}
}

// remoteOptions maps timeout, rate_limit and additional_data onto the
// remote transform options. Each stage gets its own limiter.
func remoteOptions(sc config.StageConfig, aad []byte) []kms.Option {
	opts := []kms.Option{kms.WithTimeout(sc.Timeout)}
	if sc.RateLimit > 0 {
		burst := int(math.Max(1, math.Ceil(sc.RateLimit)))
		opts = append(opts, kms.WithLimiter(rate.NewLimiter(rate.Limit(sc.RateLimit), burst)))
	}
	if aad != nil {
		opts = append(opts, kms.WithAdditionalData(aad))
	}
	return opts
}
