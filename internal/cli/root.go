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

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeremyhahn/go-cryptchain/internal/config"
	"github.com/jeremyhahn/go-cryptchain/internal/pipeline"
	"github.com/jeremyhahn/go-cryptchain/pkg/certfactory"
	"github.com/jeremyhahn/go-cryptchain/pkg/correlation"
	"github.com/jeremyhahn/go-cryptchain/pkg/logging"
	"github.com/jeremyhahn/go-cryptchain/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables that override global flags,
// e.g. CRYPTCHAIN_OUTPUT or CRYPTCHAIN_LOG_LEVEL
const EnvPrefix = "CRYPTCHAIN"

// app carries the state shared by every command. It is populated by the
// root command's PersistentPreRunE once flags are parsed.
type app struct {
	v      *viper.Viper
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	// clients overrides the cloud SDK clients used by KMS stages
	clients pipeline.Clients

	cfg      *config.Config
	logger   *logging.Logger
	registry *prometheus.Registry
	metrics  *metrics.Collector
	factory  *certfactory.Factory
	builder  *pipeline.Builder
}

func newApp() *app {
	return &app{
		v:      viper.New(),
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		getenv: os.Getenv,
	}
}

// Execute runs the cryptchain command line
func Execute() error {
	a := newApp()
	root := newRootCommand(a)
	if err := a.execute(root); err != nil {
		_ = a.printer(a.stderr).PrintError(err) // best-effort
		return err
	}
	return nil
}

// NewRootCommand returns the cryptchain command tree wired to the process
// environment
func NewRootCommand() *cobra.Command {
	return newRootCommand(newApp())
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "cryptchain",
		Short: "Chained encryption pipelines and X.509 certificate tooling",
		Long: `cryptchain runs configured encryption pipelines and builds or inspects
X.509 certificates.

A pipeline is an ordered list of transforms. Encryption runs the stages in
order and decryption runs them in reverse, so the output of one stage is the
input of the next. Stages include:
  - aes-gcm, aes-cbc, aes-ctr, chacha20-poly1305, xchacha20-poly1305
  - rsa-oaep, rsa-hybrid, ecies, jwe-dir, jwe-rsa
  - base64, base64url, base64url-raw, hex
  - aws-kms, gcp-kms, azure-keyvault, vault-transit`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx, id := correlation.Ensure(cmd.Context(), a.getenv(correlation.EnvVar))
			cmd.SetContext(ctx)
			return a.init(id)
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (YAML, or TOML with a .toml extension)")
	flags.StringP("output", "o", config.OutputText, "output format (text, json, table)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("metrics-file", "", "write Prometheus metrics to this textfile after the command")

	a.v.SetEnvPrefix(EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	_ = a.v.BindPFlags(flags) // only fails for a nil flag set

	root.AddCommand(newVersionCommand(a))
	root.AddCommand(newPipelinesCommand(a))
	root.AddCommand(newCryptCommand(a, true))
	root.AddCommand(newCryptCommand(a, false))
	root.AddCommand(newCertCommand(a))
	return root
}

// init loads configuration and builds the logger, metrics, certificate
// factory and pipeline builder. Flags and CRYPTCHAIN_* variables take
// precedence over the config file. Every log line carries runID.
func (a *app) init(runID string) error {
	cfg, err := config.LoadOrDefault(a.v.GetString("config"))
	if err != nil {
		return err
	}
	if a.v.IsSet("output") {
		cfg.Output = a.v.GetString("output")
	}
	if a.v.IsSet("log-level") {
		cfg.Logging.Level = a.v.GetString("log-level")
	}
	if a.v.IsSet("log-format") {
		cfg.Logging.Format = a.v.GetString("log-format")
	}
	if a.v.IsSet("metrics-file") {
		cfg.Metrics.TextFile = a.v.GetString("metrics-file")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	logger, err := logging.NewLogger(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: a.stderr,
	})
	if err != nil {
		return err
	}
	logger = logger.With(correlation.LogKey, runID)
	a.logger = logger

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector())
	a.metrics = metrics.NewCollector(a.registry)

	a.factory = certfactory.New(
		certfactory.WithLogger(logger.With("component", "certfactory")),
		certfactory.WithMetrics(a.metrics),
	)
	a.builder = pipeline.NewBuilder(
		pipeline.WithLogger(logger.With("component", "pipeline")),
		pipeline.WithMetrics(a.metrics),
		pipeline.WithEnv(a.getenv),
		pipeline.WithClients(a.clients),
	)
	return nil
}

// execute runs root and then writes metrics, including for failed
// commands, whose error counters are the ones worth keeping
func (a *app) execute(root *cobra.Command) error {
	err := root.Execute()
	if merr := a.writeMetrics(); merr != nil {
		return errors.Join(err, merr)
	}
	return err
}

// writeMetrics writes the registry to the configured textfile, if any
func (a *app) writeMetrics() error {
	if a.cfg == nil || a.registry == nil || a.cfg.Metrics.TextFile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.cfg.Metrics.TextFile, a.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	a.logger.Debug("metrics written", "path", a.cfg.Metrics.TextFile)
	return nil
}

// printer returns a Printer for the configured output format. Before
// configuration is loaded it falls back to the output flag.
func (a *app) printer(w io.Writer) *Printer {
	format := a.v.GetString("output")
	if a.cfg != nil {
		format = a.cfg.Output
	}
	return NewPrinter(format, w)
}
