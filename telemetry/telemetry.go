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
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Default histogram buckets. These suit most HTTP services; override
// with WithDurationBuckets and WithSizeBuckets.
var (
	// DefaultDurationBuckets are boundaries for request duration in
	// seconds, covering sub-millisecond to 10 second responses.
	DefaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

	// DefaultSizeBuckets are boundaries for request and response sizes
	// in bytes, covering 100B to 10MB.
	DefaultSizeBuckets = []float64{100, 1000, 10000, 100000, 1000000, 10000000}
)

// EventType is the severity of an internal operational event.
type EventType int

const (
	// EventError indicates an error event (e.g. failed metrics export).
	EventError EventType = iota
	// EventWarning indicates a warning event.
	EventWarning
	// EventInfo indicates an informational event (e.g. server started).
	EventInfo
	// EventDebug indicates a debug event.
	EventDebug
)

// Event is an internal operational event from the telemetry system:
// export failures, server lifecycle, configuration warnings. Events are
// about the recorder itself, never about the requests it observes.
type Event struct {
	Type    EventType
	Message string
	Args    []any // slog-style key-value pairs
}

// EventHandler processes internal operational events. Implementations
// can log them, forward them to an error tracker, or both.
//
//	telemetry.WithEventHandler(func(e telemetry.Event) {
//	    if e.Type == telemetry.EventError {
//	        sentry.CaptureMessage(e.Message)
//	    }
//	    slog.Default().Info(e.Message, e.Args...)
//	})
type EventHandler func(Event)

// DefaultEventHandler returns an EventHandler that logs events to the
// given logger at the matching level. A nil logger yields a handler
// that discards everything.
func DefaultEventHandler(logger *slog.Logger) EventHandler {
	if logger == nil {
		return func(Event) {}
	}

	return func(e Event) {
		switch e.Type {
		case EventError:
			logger.Error(e.Message, e.Args...)
		case EventWarning:
			logger.Warn(e.Message, e.Args...)
		case EventInfo:
			logger.Info(e.Message, e.Args...)
		case EventDebug:
			logger.Debug(e.Message, e.Args...)
		}
	}
}

// MetricsProvider selects how metrics leave the process.
type MetricsProvider string

const (
	// MetricsPrometheus serves metrics from a dedicated HTTP endpoint (default).
	MetricsPrometheus MetricsProvider = "prometheus"
	// MetricsOTLP pushes metrics to an OTLP HTTP collector.
	MetricsOTLP MetricsProvider = "otlp"
	// MetricsStdout prints metrics to stdout (development/testing).
	MetricsStdout MetricsProvider = "stdout"
)

// TraceProvider selects how spans leave the process.
type TraceProvider string

const (
	// TracesNoop records spans without exporting them (default). Span
	// and trace IDs stay valid, so log correlation still works.
	TracesNoop TraceProvider = "noop"
	// TracesStdout exports spans to stdout (development/testing).
	TracesStdout TraceProvider = "stdout"
)

const (
	// DefaultServiceName is used when WithServiceName is not given.
	DefaultServiceName = "strata-service"

	// DefaultServiceVersion is used when WithServiceVersion is not given.
	DefaultServiceVersion = "1.0.0"

	// DefaultSampleRate traces every request.
	DefaultSampleRate = 1.0
)

// samplingMultiplier is Knuth's multiplicative hash constant. The
// sampling counter times this constant spreads sequential requests
// uniformly over the uint64 range, giving deterministic sampling
// without per-request randomness.
const samplingMultiplier = 2654435761

// sensitiveHeaders are never recorded as span attributes, whatever
// WithHeaders asks for.
var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"proxy-authorization": true,
	"www-authenticate":    true,
}

// Recorder unifies metrics, tracing, and logging for the router. It
// implements router.ObservabilityRecorder for the per-request lifecycle
// and supplies the context-level metrics recorder for handlers.
//
// All methods are safe for concurrent use. Configuration is immutable
// after New; the exclude sets and header lists are read-only from then
// on.
//
// By default nothing is registered with the OpenTelemetry globals, so
// several Recorders can coexist in one process. Use
// [WithGlobalProviders] for global registration.
type Recorder struct {
	// Metrics pillar
	meter              metric.Meter
	meterProvider      metric.MeterProvider
	prometheusRegistry *promclient.Registry // private registry, avoids global collisions
	prometheusHandler  http.Handler
	metricsServer      *http.Server

	// Tracing pillar
	tracer            trace.Tracer
	tracerProvider    trace.TracerProvider
	sdkTracerProvider *sdktrace.TracerProvider // non-nil only when we own the provider
	propagator        propagation.TextMapPropagator

	// Logging pillar
	logger       *slog.Logger // base for request-scoped loggers and access log lines
	eventHandler EventHandler

	// Built-in HTTP instruments
	requestDuration      metric.Float64Histogram
	requestCount         metric.Int64Counter
	activeRequests       metric.Int64UpDownCounter
	requestSize          metric.Int64Histogram
	responseSize         metric.Int64Histogram
	errorCount           metric.Int64Counter
	customMetricFailures metric.Int64Counter

	// Custom instruments, created lazily on first use
	customMu         sync.RWMutex
	customCounters   map[string]metric.Int64Counter
	customHistograms map[string]metric.Float64Histogram
	customGauges     map[string]metric.Float64Gauge
	customCount      int

	contextMetrics *contextMetrics // shared bridge handed to every request context

	durationBuckets []float64
	sizeBuckets     []float64

	excludePaths    map[string]bool
	excludePrefixes []string
	recordHeaders   []string

	serviceName    string
	serviceVersion string
	otlpEndpoint   string
	metricsAddr    string
	metricsPath    string
	exportInterval time.Duration
	slowThreshold  time.Duration

	// Pre-computed service attributes attached to every request metric
	serviceNameAttr    attribute.KeyValue
	serviceVersionAttr attribute.KeyValue

	metricsProvider  MetricsProvider
	traceProvider    TraceProvider
	providerSetCount int // conflicting provider options fail validation

	sampleRate        float64
	samplingThreshold uint64        // precomputed from sampleRate
	samplingCounter   atomic.Uint64 // wraps at uint64 max; distribution stays uniform

	serverMu sync.Mutex // guards metricsServer and metricsAddr

	maxCustomMetrics int

	isStarted       atomic.Bool
	isShuttingDown  atomic.Bool
	metricsDeferred atomic.Bool // OTLP exporters connect in Start, not New
	metricsReady    atomic.Bool // instruments exist; set by New or, for OTLP, by Start
	warnNotStarted  sync.Once

	validationErrors []error

	logAccessRequests    bool
	logErrorsOnly        bool
	autoStartServer      bool
	strictPort           bool
	customMeterProvider  bool
	customTracerProvider bool
	registerGlobal       bool
}

// New creates a Recorder with the given options. It returns an error
// when options conflict or a provider fails to initialize. For the
// panicking variant use [MustNew].
//
// OTLP metrics are the one provider whose exporter is not created
// here: it needs a lifecycle context, so it connects when
// [Recorder.Start] runs. Until then requests are traced and logged but
// not measured.
func New(opts ...Option) (*Recorder, error) {
	r := newDefaultRecorder()

	for _, opt := range opts {
		opt(r)
	}

	// Internal events default to the request logger when no dedicated
	// handler was installed.
	if r.eventHandler == nil && r.logger != nil {
		r.eventHandler = DefaultEventHandler(r.logger)
	}

	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	r.serviceNameAttr = attribute.String("service.name", r.serviceName)
	r.serviceVersionAttr = attribute.String("service.version", r.serviceVersion)

	if err := r.initMetricsProvider(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	if err := r.initTraceProvider(); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	r.contextMetrics = &contextMetrics{recorder: r}

	return r, nil
}

// MustNew is New, panicking on error. Use it when a broken telemetry
// configuration should stop the program at startup.
func MustNew(opts ...Option) *Recorder {
	r, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("telemetry: %v", err))
	}

	return r
}

// newDefaultRecorder builds a Recorder with default values, before any
// options apply.
func newDefaultRecorder() *Recorder {
	return &Recorder{
		serviceName:      DefaultServiceName,
		serviceVersion:   DefaultServiceVersion,
		metricsProvider:  MetricsPrometheus,
		traceProvider:    TracesNoop,
		exportInterval:   30 * time.Second,
		metricsAddr:      ":9090",
		metricsPath:      "/metrics",
		autoStartServer:  true,
		maxCustomMetrics: 1000,
		sampleRate:       DefaultSampleRate,
		durationBuckets:  DefaultDurationBuckets,
		sizeBuckets:      DefaultSizeBuckets,
		excludePaths:     make(map[string]bool),
		customCounters:   make(map[string]metric.Int64Counter),
		customHistograms: make(map[string]metric.Float64Histogram),
		customGauges:     make(map[string]metric.Float64Gauge),
	}
}

// validate checks the assembled configuration and precomputes the
// sampling threshold.
func (r *Recorder) validate() error {
	if len(r.validationErrors) > 0 {
		return fmt.Errorf("configuration errors: %v", r.validationErrors)
	}

	if r.providerSetCount > 1 {
		return fmt.Errorf("conflicting provider options: only one of WithPrometheus, WithOTLP, or WithStdoutMetrics can be used")
	}

	if r.serviceName == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if r.serviceVersion == "" {
		return fmt.Errorf("service version cannot be empty")
	}
	if r.maxCustomMetrics < 1 {
		return fmt.Errorf("maxCustomMetrics must be at least 1, got %d", r.maxCustomMetrics)
	}
	if r.exportInterval < time.Second {
		r.emitWarning("export interval is very low, may cause high CPU usage", "interval", r.exportInterval)
	}

	// Sampling threshold: counter*multiplier values at or below it are
	// sampled. 1.0 and 0.0 get the extremes so the hot path can skip
	// the arithmetic entirely.
	switch {
	case r.sampleRate >= 1.0:
		r.samplingThreshold = ^uint64(0)
	case r.sampleRate <= 0.0:
		r.samplingThreshold = 0
	default:
		r.samplingThreshold = uint64(r.sampleRate * float64(^uint64(0)))
	}

	switch r.metricsProvider {
	case MetricsPrometheus:
		if r.metricsAddr == "" {
			return fmt.Errorf("metrics address cannot be empty for the Prometheus provider")
		}
		if r.metricsPath == "" {
			return fmt.Errorf("metrics path cannot be empty for the Prometheus provider")
		}
	case MetricsOTLP:
		if r.otlpEndpoint == "" {
			r.emitWarning("OTLP endpoint not specified, will use default", "default", "http://localhost:4318")
			r.otlpEndpoint = "http://localhost:4318"
		}
	case MetricsStdout:
	default:
		return fmt.Errorf("unsupported metrics provider: %s", r.metricsProvider)
	}

	switch r.traceProvider {
	case TracesNoop, TracesStdout:
	default:
		return fmt.Errorf("unsupported trace provider: %s", r.traceProvider)
	}

	return nil
}

// Start finishes initialization that needs a lifecycle context: the
// OTLP metrics exporter connects here, and the Prometheus metrics
// server starts listening. Idempotent; extra calls return nil.
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//	if err := rec.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
func (r *Recorder) Start(ctx context.Context) error {
	if !r.isStarted.CompareAndSwap(false, true) {
		return nil
	}

	if r.metricsDeferred.Load() {
		if err := r.initOTLPMetrics(ctx); err != nil {
			r.isStarted.Store(false) // allow retry
			return fmt.Errorf("failed to initialize OTLP metrics: %w", err)
		}
		r.metricsDeferred.Store(false)
	}

	if r.autoStartServer && r.metricsProvider == MetricsPrometheus {
		r.startMetricsServer()
	}

	return nil
}

// Shutdown flushes pending telemetry and releases everything the
// recorder owns: the metrics server, the meter provider, and the
// tracer provider. Providers supplied by the caller are left alone.
// Idempotent; only the first call does the work.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if !r.isShuttingDown.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error

	if err := r.stopMetricsServer(ctx); err != nil {
		errs = append(errs, err)
	}

	if r.customMeterProvider {
		r.emitDebug("skipping shutdown of custom meter provider (managed by caller)")
	} else if err := r.shutdownMeterProvider(ctx); err != nil {
		errs = append(errs, err)
	}

	if r.customTracerProvider {
		r.emitDebug("skipping shutdown of custom tracer provider (managed by caller)")
	} else if r.sdkTracerProvider != nil {
		r.emitDebug("shutting down tracer provider")
		if err := r.sdkTracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	return nil
}

// shutdownMeterProvider flushes and shuts down an SDK meter provider.
// Flush failures are reported as warnings; only shutdown failures
// become errors.
func (r *Recorder) shutdownMeterProvider(ctx context.Context) error {
	mp, ok := r.meterProvider.(*sdkmetric.MeterProvider)
	if !ok {
		return nil
	}

	// Push-based providers (OTLP, stdout) may hold unexported data.
	if err := mp.ForceFlush(ctx); err != nil {
		r.emitWarning("metrics flush warning", "error", err)
	}

	if err := mp.Shutdown(ctx); err != nil {
		return fmt.Errorf("meter provider shutdown: %w", err)
	}

	return nil
}

// ForceFlush exports pending metrics and spans without shutting down.
// Useful at deployment checkpoints or before long quiet periods. For
// pull-based Prometheus metrics this is a no-op.
func (r *Recorder) ForceFlush(ctx context.Context) error {
	if r.isShuttingDown.Load() {
		return nil
	}

	if mp, ok := r.meterProvider.(*sdkmetric.MeterProvider); ok {
		if err := mp.ForceFlush(ctx); err != nil {
			return fmt.Errorf("metrics force flush: %w", err)
		}
	}

	if r.sdkTracerProvider != nil {
		if err := r.sdkTracerProvider.ForceFlush(ctx); err != nil {
			return fmt.Errorf("traces force flush: %w", err)
		}
	}

	return nil
}

// Handler returns the Prometheus metrics handler, for serving the
// endpoint from an existing server instead of the automatic one
// (disable that with [WithoutMetricsServer]). It errors under any
// other metrics provider.
//
//	handler, err := rec.Handler()
//	if err == nil {
//	    mux.Handle("/metrics", handler)
//	}
func (r *Recorder) Handler() (http.Handler, error) {
	if r.metricsProvider != MetricsPrometheus || r.prometheusHandler == nil {
		return nil, fmt.Errorf("handler only available with the Prometheus provider, current provider: %s", r.metricsProvider)
	}

	return r.prometheusHandler, nil
}

// ServerAddress returns the listen address of the metrics server,
// which can differ from the configured one when the port was taken and
// WithStrictPort was not set. Empty when no server runs.
func (r *Recorder) ServerAddress() string {
	if r.metricsProvider != MetricsPrometheus || !r.autoStartServer {
		return ""
	}

	r.serverMu.Lock()
	defer r.serverMu.Unlock()

	return r.metricsAddr
}

// MetricsPath returns the URL path of the Prometheus endpoint, or ""
// under other providers.
func (r *Recorder) MetricsPath() string {
	if r.metricsProvider != MetricsPrometheus {
		return ""
	}

	return r.metricsPath
}

// ServiceName returns the configured service name.
func (r *Recorder) ServiceName() string {
	return r.serviceName
}

// ServiceVersion returns the configured service version.
func (r *Recorder) ServiceVersion() string {
	return r.serviceVersion
}

func (r *Recorder) emitError(msg string, args ...any) {
	if r.eventHandler != nil {
		r.eventHandler(Event{Type: EventError, Message: msg, Args: args})
	}
}

func (r *Recorder) emitWarning(msg string, args ...any) {
	if r.eventHandler != nil {
		r.eventHandler(Event{Type: EventWarning, Message: msg, Args: args})
	}
}

func (r *Recorder) emitInfo(msg string, args ...any) {
	if r.eventHandler != nil {
		r.eventHandler(Event{Type: EventInfo, Message: msg, Args: args})
	}
}

func (r *Recorder) emitDebug(msg string, args ...any) {
	if r.eventHandler != nil {
		r.eventHandler(Event{Type: EventDebug, Message: msg, Args: args})
	}
}
