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

package pipeline

import (
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	gorsa "crypto/rsa"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-cryptchain/internal/config"
	"github.com/jeremyhahn/go-cryptchain/pkg/encoding"
)

var (
	// ErrKeyNotFound is returned when key_env names an unset variable.
	ErrKeyNotFound = errors.New("pipeline: key not found")

	// ErrKeyType is returned when a key file holds the wrong kind of key.
	ErrKeyType = errors.New("pipeline: unexpected key type")
)

// symmetricKey loads key material from key_file or key_env. Without an
// explicit key_encoding, files are read as raw bytes and environment
// variables as standard base64.
func (b *Builder) symmetricKey(sc config.StageConfig) ([]byte, error) {
	var (
		data []byte
		enc  = sc.KeyEncoding
	)
	if sc.KeyFile != "" {
		raw, err := b.readFile(sc.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read key file: %w", err)
		}
		data = raw
		if enc == "" {
			enc = config.KeyEncodingRaw
		}
	} else {
		value := b.getenv(sc.KeyEnv)
		if value == "" {
			return nil, fmt.Errorf("%w: %s is not set", ErrKeyNotFound, sc.KeyEnv)
		}
		data = []byte(value)
		if enc == "" {
			enc = config.KeyEncodingBase64
		}
	}

	switch enc {
	case config.KeyEncodingHex:
		key, err := hex.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("failed to decode hex key: %w", err)
		}
		return key, nil
	case config.KeyEncodingBase64:
		key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 key: %w", err)
		}
		return key, nil
	default:
		return data, nil
	}
}

func (b *Builder) password(sc config.StageConfig) []byte {
	if sc.PasswordEnv == "" {
		return nil
	}
	if p := b.getenv(sc.PasswordEnv); p != "" {
		return []byte(p)
	}
	return nil
}

// keyPair loads whichever of public_key_file and private_key_file are set.
func (b *Builder) keyPair(sc config.StageConfig) (crypto.PublicKey, crypto.PrivateKey, error) {
	var (
		pub  crypto.PublicKey
		priv crypto.PrivateKey
	)
	if sc.PublicKeyFile != "" {
		data, err := b.readFile(sc.PublicKeyFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read public key file: %w", err)
		}
		if pub, err = encoding.DecodePublicKeyPEM(data); err != nil {
			return nil, nil, fmt.Errorf("public key %s: %w", sc.PublicKeyFile, err)
		}
	}
	if sc.PrivateKeyFile != "" {
		data, err := b.readFile(sc.PrivateKeyFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read private key file: %w", err)
		}
		if priv, err = encoding.DecodePrivateKeyPEM(data, b.password(sc)); err != nil {
			return nil, nil, fmt.Errorf("private key %s: %w", sc.PrivateKeyFile, err)
		}
	}
	return pub, priv, nil
}

func (b *Builder) rsaKeys(sc config.StageConfig) (*gorsa.PublicKey, *gorsa.PrivateKey, error) {
	pub, priv, err := b.keyPair(sc)
	if err != nil {
		return nil, nil, err
	}
	var (
		rsaPub  *gorsa.PublicKey
		rsaPriv *gorsa.PrivateKey
		ok      bool
	)
	if pub != nil {
		if rsaPub, ok = pub.(*gorsa.PublicKey); !ok {
			return nil, nil, fmt.Errorf("%w: %T is not an RSA public key", ErrKeyType, pub)
		}
	}
	if priv != nil {
		if rsaPriv, ok = priv.(*gorsa.PrivateKey); !ok {
			return nil, nil, fmt.Errorf("%w: %T is not an RSA private key", ErrKeyType, priv)
		}
	}
	return rsaPub, rsaPriv, nil
}

// ecdhKeys accepts ECDSA keys on NIST curves as well as ECDH keys, which
// includes X25519.
func (b *Builder) ecdhKeys(sc config.StageConfig) (*ecdh.PublicKey, *ecdh.PrivateKey, error) {
	pub, priv, err := b.keyPair(sc)
	if err != nil {
		return nil, nil, err
	}

	var (
		ePub  *ecdh.PublicKey
		ePriv *ecdh.PrivateKey
	)
	switch k := pub.(type) {
	case nil:
	case *ecdh.PublicKey:
		ePub = k
	case *ecdsa.PublicKey:
		if ePub, err = k.ECDH(); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrKeyType, err)
		}
	default:
		return nil, nil, fmt.Errorf("%w: %T is not an EC public key", ErrKeyType, pub)
	}
	switch k := priv.(type) {
	case nil:
	case *ecdh.PrivateKey:
		ePriv = k
	case *ecdsa.PrivateKey:
		if ePriv, err = k.ECDH(); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrKeyType, err)
		}
	default:
		return nil, nil, fmt.Errorf("%w: %T is not an EC private key", ErrKeyType, priv)
	}
	return ePub, ePriv, nil
}

func parseHash(name string) (crypto.Hash, error) {
	switch strings.ToLower(name) {
	case "", "sha256":
		return crypto.SHA256, nil
	case "sha1":
		return crypto.SHA1, nil
	case "sha384":
		return crypto.SHA384, nil
	case "sha512":
		return crypto.SHA512, nil
	}
	return 0, fmt.Errorf("unsupported hash %q", name)
}
