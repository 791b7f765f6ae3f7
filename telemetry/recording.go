// Copyright 2025 The Strata Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package telemetry

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"strata.dev/router"
)

// metricNameRegex enforces OpenTelemetry naming: a leading letter, then
// alphanumerics, underscores, dots, and hyphens.
var metricNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.-]*$`)

// maxMetricNameLength is the longest accepted custom metric name.
const maxMetricNameLength = 255

// reservedPrefixes may not start custom metric names. "__" belongs to
// Prometheus internals, "http_" to this package's request instruments.
var reservedPrefixes = []string{"__", "http_"}

// limitError is returned when the custom metric cap is reached.
type limitError struct {
	metricName string
	limit      int
	current    int
}

func (e *limitError) Error() string {
	return fmt.Sprintf("metrics limit reached: cannot create %q (current: %d, limit: %d)",
		e.metricName, e.current, e.limit)
}

// validateMetricName rejects names an exporter would refuse or that
// collide with reserved namespaces.
func validateMetricName(name string) error {
	if name == "" {
		return fmt.Errorf("metric name cannot be empty")
	}
	if len(name) > maxMetricNameLength {
		return fmt.Errorf("metric name too long: %d characters (max %d)", len(name), maxMetricNameLength)
	}
	if !metricNameRegex.MatchString(name) {
		return fmt.Errorf("invalid metric name %q: must start with a letter and contain only alphanumeric, underscore, dot, or hyphen", name)
	}

	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return fmt.Errorf("metric name %q uses reserved prefix %q", name, prefix)
		}
	}

	return nil
}

// initInstruments creates the built-in HTTP instruments. Runs once the
// meter exists, which for OTLP means during Start.
func (r *Recorder) initInstruments() error {
	var err error

	r.requestDuration, err = r.meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(r.durationBuckets...),
	)
	if err != nil {
		return fmt.Errorf("failed to create request duration histogram: %w", err)
	}

	r.requestCount, err = r.meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create request count counter: %w", err)
	}

	r.activeRequests, err = r.meter.Int64UpDownCounter(
		"http_requests_active",
		metric.WithDescription("Number of in-flight HTTP requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create active requests counter: %w", err)
	}

	r.requestSize, err = r.meter.Int64Histogram(
		"http_request_size_bytes",
		metric.WithDescription("Size of HTTP request bodies in bytes"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(r.sizeBuckets...),
	)
	if err != nil {
		return fmt.Errorf("failed to create request size histogram: %w", err)
	}

	r.responseSize, err = r.meter.Int64Histogram(
		"http_response_size_bytes",
		metric.WithDescription("Size of HTTP response bodies in bytes"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(r.sizeBuckets...),
	)
	if err != nil {
		return fmt.Errorf("failed to create response size histogram: %w", err)
	}

	r.errorCount, err = r.meter.Int64Counter(
		"http_errors_total",
		metric.WithDescription("Total number of HTTP error responses"),
	)
	if err != nil {
		return fmt.Errorf("failed to create error count counter: %w", err)
	}

	r.customMetricFailures, err = r.meter.Int64Counter(
		"custom_metric_failures_total",
		metric.WithDescription("Total number of custom metric recording failures"),
	)
	if err != nil {
		return fmt.Errorf("failed to create custom metric failures counter: %w", err)
	}

	return nil
}

// RecordHistogram records a value on the named custom histogram,
// creating the instrument on first use. Returns an error for invalid
// names, the instrument cap, or a recorder whose metrics are not
// initialized yet.
//
//	err := rec.RecordHistogram(ctx, "payment_amount", 19.90,
//	    attribute.String("currency", "EUR"))
func (r *Recorder) RecordHistogram(ctx context.Context, name string, value float64, attributes ...attribute.KeyValue) error {
	if !r.metricsReady.Load() {
		return fmt.Errorf("record histogram %q: metrics not initialized; call Start first", name)
	}

	histogram, err := r.getOrCreateHistogram(name)
	if err != nil {
		r.customMetricFailures.Add(ctx, 1)
		return fmt.Errorf("record histogram %q: %w", name, err)
	}

	histogram.Record(ctx, value, metric.WithAttributes(attributes...))

	return nil
}

// IncrementCounter adds 1 to the named custom counter.
func (r *Recorder) IncrementCounter(ctx context.Context, name string, attributes ...attribute.KeyValue) error {
	return r.AddCounter(ctx, name, 1, attributes...)
}

// AddCounter adds a value to the named custom counter, creating the
// instrument on first use.
func (r *Recorder) AddCounter(ctx context.Context, name string, value int64, attributes ...attribute.KeyValue) error {
	if !r.metricsReady.Load() {
		return fmt.Errorf("add counter %q: metrics not initialized; call Start first", name)
	}

	counter, err := r.getOrCreateCounter(name)
	if err != nil {
		r.customMetricFailures.Add(ctx, 1)
		return fmt.Errorf("add counter %q: %w", name, err)
	}

	counter.Add(ctx, value, metric.WithAttributes(attributes...))

	return nil
}

// SetGauge sets the named custom gauge, creating the instrument on
// first use.
func (r *Recorder) SetGauge(ctx context.Context, name string, value float64, attributes ...attribute.KeyValue) error {
	if !r.metricsReady.Load() {
		return fmt.Errorf("set gauge %q: metrics not initialized; call Start first", name)
	}

	gauge, err := r.getOrCreateGauge(name)
	if err != nil {
		r.customMetricFailures.Add(ctx, 1)
		return fmt.Errorf("set gauge %q: %w", name, err)
	}

	gauge.Record(ctx, value, metric.WithAttributes(attributes...))

	return nil
}

// CustomMetricCount returns how many custom instruments exist.
func (r *Recorder) CustomMetricCount() int {
	r.customMu.RLock()
	defer r.customMu.RUnlock()

	return r.customCount
}

func (r *Recorder) getOrCreateCounter(name string) (metric.Int64Counter, error) {
	r.customMu.RLock()
	if counter, exists := r.customCounters[name]; exists {
		r.customMu.RUnlock()
		return counter, nil
	}
	r.customMu.RUnlock()

	// Only new instruments pay for validation.
	if err := validateMetricName(name); err != nil {
		return nil, err
	}

	r.customMu.Lock()
	defer r.customMu.Unlock()

	if counter, exists := r.customCounters[name]; exists {
		return counter, nil
	}

	if r.customCount >= r.maxCustomMetrics {
		return nil, &limitError{metricName: name, limit: r.maxCustomMetrics, current: r.customCount}
	}

	counter, err := r.meter.Int64Counter(
		name,
		metric.WithDescription("Custom counter metric"),
	)
	if err != nil {
		return nil, err
	}

	r.customCounters[name] = counter
	r.customCount++

	return counter, nil
}

func (r *Recorder) getOrCreateHistogram(name string) (metric.Float64Histogram, error) {
	r.customMu.RLock()
	if histogram, exists := r.customHistograms[name]; exists {
		r.customMu.RUnlock()
		return histogram, nil
	}
	r.customMu.RUnlock()

	if err := validateMetricName(name); err != nil {
		return nil, err
	}

	r.customMu.Lock()
	defer r.customMu.Unlock()

	if histogram, exists := r.customHistograms[name]; exists {
		return histogram, nil
	}

	if r.customCount >= r.maxCustomMetrics {
		return nil, &limitError{metricName: name, limit: r.maxCustomMetrics, current: r.customCount}
	}

	histogram, err := r.meter.Float64Histogram(
		name,
		metric.WithDescription("Custom histogram metric"),
	)
	if err != nil {
		return nil, err
	}

	r.customHistograms[name] = histogram
	r.customCount++

	return histogram, nil
}

func (r *Recorder) getOrCreateGauge(name string) (metric.Float64Gauge, error) {
	r.customMu.RLock()
	if gauge, exists := r.customGauges[name]; exists {
		r.customMu.RUnlock()
		return gauge, nil
	}
	r.customMu.RUnlock()

	if err := validateMetricName(name); err != nil {
		return nil, err
	}

	r.customMu.Lock()
	defer r.customMu.Unlock()

	if gauge, exists := r.customGauges[name]; exists {
		return gauge, nil
	}

	if r.customCount >= r.maxCustomMetrics {
		return nil, &limitError{metricName: name, limit: r.maxCustomMetrics, current: r.customCount}
	}

	gauge, err := r.meter.Float64Gauge(
		name,
		metric.WithDescription("Custom gauge metric"),
	)
	if err != nil {
		return nil, err
	}

	r.customGauges[name] = gauge
	r.customCount++

	return gauge, nil
}

// contextMetrics adapts the Recorder's error-returning metric methods
// to the router's fire-and-forget context interface. Failures are
// already counted on the failure instrument; here they additionally
// surface as debug events.
type contextMetrics struct {
	recorder *Recorder
}

var _ router.ContextMetricsRecorder = (*contextMetrics)(nil)

func (cm *contextMetrics) RecordMetric(ctx context.Context, name string, value float64, attributes ...attribute.KeyValue) {
	if err := cm.recorder.RecordHistogram(ctx, name, value, attributes...); err != nil {
		cm.recorder.emitDebug("custom metric dropped", "metric", name, "error", err)
	}
}

func (cm *contextMetrics) IncrementCounter(ctx context.Context, name string, attributes ...attribute.KeyValue) {
	if err := cm.recorder.IncrementCounter(ctx, name, attributes...); err != nil {
		cm.recorder.emitDebug("custom metric dropped", "metric", name, "error", err)
	}
}

func (cm *contextMetrics) SetGauge(ctx context.Context, name string, value float64, attributes ...attribute.KeyValue) {
	if err := cm.recorder.SetGauge(ctx, name, value, attributes...); err != nil {
		cm.recorder.emitDebug("custom metric dropped", "metric", name, "error", err)
	}
}
