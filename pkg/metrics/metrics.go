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

// Package metrics provides Prometheus instrumentation for go-cryptchain operations.
// A Collector registers its metrics with a caller-supplied registry, so there is
// no package-level state and several collectors can coexist in one process.
package metrics

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jeremyhahn/go-cryptchain/pkg/transform"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all cryptchain metrics
	Namespace = "cryptchain"

	// Label names
	LabelOperation = "operation"
	LabelComponent = "component"
	LabelStatus    = "status"
	LabelErrorType = "error_type"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Operation names
	OpEncrypt      = "encrypt"
	OpDecrypt      = "decrypt"
	OpParse        = "parse"
	OpCreateCert   = "create_certificate"
	OpCreateCertV1 = "create_certificate_v1"
)

// Collector holds the cryptchain metrics registered with one registry.
type Collector struct {
	// OperationsTotal counts operations by name, component and status.
	OperationsTotal *prometheus.CounterVec

	// OperationDuration observes operation latency in seconds. Buckets cover
	// both local ciphers and remote key services.
	OperationDuration *prometheus.HistogramVec

	// ErrorsTotal counts failures by operation, component and error type.
	ErrorsTotal *prometheus.CounterVec

	// BytesTotal counts payload bytes consumed by transforms.
	BytesTotal *prometheus.CounterVec

	enabled atomic.Bool
}

// NewCollector creates the cryptchain metrics and registers them with reg.
// Registering two collectors with the same registry panics, as promauto does.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	c := &Collector{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "operations_total",
				Help:      "Total number of cryptchain operations by type, component, and status",
			},
			[]string{LabelOperation, LabelComponent, LabelStatus},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of cryptchain operations in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{LabelOperation, LabelComponent},
		),
		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "errors_total",
				Help:      "Total number of errors by operation, component, and error type",
			},
			[]string{LabelOperation, LabelComponent, LabelErrorType},
		),
		BytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "payload_bytes_total",
				Help:      "Total payload bytes consumed by transforms",
			},
			[]string{LabelOperation, LabelComponent},
		),
	}
	c.enabled.Store(true)
	return c
}

// RecordOperation records an operation with its duration and status.
// A nil collector records nothing.
//
// Example:
//
//	start := time.Now()
//	_, err := chain.Encrypt(payload)
//	c.RecordOperation(metrics.OpEncrypt, "chain", metrics.Status(err), time.Since(start))
func (c *Collector) RecordOperation(operation, component, status string, duration time.Duration) {
	if !c.IsEnabled() {
		return
	}
	c.OperationsTotal.WithLabelValues(operation, component, status).Inc()
	c.OperationDuration.WithLabelValues(operation, component).Observe(duration.Seconds())
}

// RecordError records an error event. errorType should be a short, stable
// identifier such as "authentication" or "unknown_algorithm".
func (c *Collector) RecordError(operation, component, errorType string) {
	if !c.IsEnabled() {
		return
	}
	c.ErrorsTotal.WithLabelValues(operation, component, errorType).Inc()
}

// RecordBytes adds n payload bytes for an operation.
func (c *Collector) RecordBytes(operation, component string, n int) {
	if !c.IsEnabled() {
		return
	}
	c.BytesTotal.WithLabelValues(operation, component).Add(float64(n))
}

// Enable enables metrics collection.
func (c *Collector) Enable() {
	c.enabled.Store(true)
}

// Disable disables metrics collection.
func (c *Collector) Disable() {
	c.enabled.Store(false)
}

// IsEnabled returns whether c is non-nil and collecting.
func (c *Collector) IsEnabled() bool {
	return c != nil && c.enabled.Load()
}

// Status maps an error to StatusSuccess or StatusError.
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// ErrorType classifies err for the error_type label. Deadline and
// cancellation errors from remote stages are reported separately from
// ordinary transform failures.
func ErrorType(err error) string {
	var stageErr *transform.StageError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &stageErr):
		return "stage_" + stageErr.Op
	default:
		return "transform"
	}
}

// Instrument wraps t so that every Encrypt and Decrypt is recorded under the
// transform's stage name. The wrapper reports the same name, so chain errors
// keep their labels.
func Instrument[T any](c *Collector, t transform.Transform[T]) transform.Transform[T] {
	return &instrumented[T]{inner: t, collector: c, name: transform.StageName(t)}
}

type instrumented[T any] struct {
	inner     transform.Transform[T]
	collector *Collector
	name      string
}

func (i *instrumented[T]) Encrypt(in T) (T, error) {
	start := time.Now()
	out, err := i.inner.Encrypt(in)
	i.record(OpEncrypt, in, err, time.Since(start))
	return out, err
}

func (i *instrumented[T]) Decrypt(in T) (T, error) {
	start := time.Now()
	out, err := i.inner.Decrypt(in)
	i.record(OpDecrypt, in, err, time.Since(start))
	return out, err
}

func (i *instrumented[T]) Name() string { return i.name }

func (i *instrumented[T]) record(op string, in T, err error, d time.Duration) {
	i.collector.RecordOperation(op, i.name, Status(err), d)
	if err != nil {
		i.collector.RecordError(op, i.name, ErrorType(err))
		return
	}
	switch v := any(in).(type) {
	case []byte:
		i.collector.RecordBytes(op, i.name, len(v))
	case string:
		i.collector.RecordBytes(op, i.name, len(v))
	}
}
