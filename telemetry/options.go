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
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option configures a Recorder. Options apply in order during New.
type Option func(*Recorder)

// WithServiceName sets the service name, attached to every metric and
// span as 'service.name'.
func WithServiceName(name string) Option {
	return func(r *Recorder) {
		r.serviceName = name
	}
}

// WithServiceVersion sets the service version, attached to every
// metric and span as 'service.version'.
func WithServiceVersion(version string) Option {
	return func(r *Recorder) {
		r.serviceVersion = version
	}
}

// WithPrometheus selects the Prometheus metrics provider and sets the
// listen address and URL path of the metrics endpoint. This is the
// default provider, on ":9090" and "/metrics".
//
//	rec := telemetry.MustNew(
//	    telemetry.WithPrometheus(":9090", "/metrics"),
//	)
func WithPrometheus(addr, path string) Option {
	return func(r *Recorder) {
		r.metricsProvider = MetricsPrometheus
		r.providerSetCount++
		if addr != "" && !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
		r.metricsAddr = addr
		if path != "" && !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		r.metricsPath = path
	}
}

// WithOTLP selects the OTLP HTTP metrics provider. The endpoint may
// carry an http:// or https:// scheme; plain http implies an insecure
// connection. The exporter connects when [Recorder.Start] runs, so it
// can share the application's lifecycle context.
//
//	rec := telemetry.MustNew(
//	    telemetry.WithOTLP("http://localhost:4318"),
//	)
func WithOTLP(endpoint string) Option {
	return func(r *Recorder) {
		r.metricsProvider = MetricsOTLP
		r.providerSetCount++
		r.otlpEndpoint = endpoint
	}
}

// WithStdoutMetrics selects the stdout metrics provider, which dumps
// metrics every export interval. Development and testing only.
func WithStdoutMetrics() Option {
	return func(r *Recorder) {
		r.metricsProvider = MetricsStdout
		r.providerSetCount++
	}
}

// WithStdoutTraces exports spans to stdout, pretty-printed. Without it
// spans are recorded but never exported; either way their IDs remain
// valid for log correlation.
func WithStdoutTraces() Option {
	return func(r *Recorder) {
		r.traceProvider = TracesStdout
	}
}

// WithSampleRate sets the fraction of requests that get a span, from
// 0.0 (none) to 1.0 (all, the default). Out-of-range values are
// clamped. Sampling is deterministic: a counter hashed with a
// multiplicative constant spreads sampled requests evenly.
func WithSampleRate(rate float64) Option {
	return func(r *Recorder) {
		if rate < 0.0 {
			rate = 0.0
		}
		if rate > 1.0 {
			rate = 1.0
		}
		r.sampleRate = rate
	}
}

// WithExcludePaths excludes exact request paths from all three
// pillars. Health checks and the metrics endpoint itself are the usual
// candidates.
//
//	telemetry.WithExcludePaths("/health", "/ready")
func WithExcludePaths(paths ...string) Option {
	return func(r *Recorder) {
		for _, path := range paths {
			r.excludePaths[path] = true
		}
	}
}

// WithExcludePrefixes excludes whole path hierarchies, such as
// "/debug/" or "/internal/".
func WithExcludePrefixes(prefixes ...string) Option {
	return func(r *Recorder) {
		r.excludePrefixes = append(r.excludePrefixes, prefixes...)
	}
}

// WithHeaders records the named request headers as span attributes
// ('http.request.header.{name}', lowercased). Sensitive headers like
// Authorization and Cookie are silently dropped from the list.
func WithHeaders(headers ...string) Option {
	return func(r *Recorder) {
		filtered := make([]string, 0, len(headers))
		for _, h := range headers {
			if !sensitiveHeaders[strings.ToLower(h)] {
				filtered = append(filtered, h)
			}
		}
		r.recordHeaders = filtered
	}
}

// WithExportInterval sets how often the OTLP and stdout metrics
// providers push. Default 30s. Prometheus ignores it: scraping pulls.
func WithExportInterval(interval time.Duration) Option {
	return func(r *Recorder) {
		r.exportInterval = interval
	}
}

// WithDurationBuckets replaces the request duration histogram
// boundaries. Values are seconds.
func WithDurationBuckets(buckets ...float64) Option {
	return func(r *Recorder) {
		r.durationBuckets = buckets
	}
}

// WithSizeBuckets replaces the request/response size histogram
// boundaries. Values are bytes.
func WithSizeBuckets(buckets ...float64) Option {
	return func(r *Recorder) {
		r.sizeBuckets = buckets
	}
}

// WithMaxCustomMetrics caps how many distinct custom instruments
// handlers may create. Default 1000. Recording to an existing
// instrument never counts against the cap.
func WithMaxCustomMetrics(limit int) Option {
	return func(r *Recorder) {
		r.maxCustomMetrics = limit
	}
}

// WithoutMetricsServer disables the automatic Prometheus server. Serve
// [Recorder.Handler] from your own mux instead.
func WithoutMetricsServer() Option {
	return func(r *Recorder) {
		r.autoStartServer = false
	}
}

// WithStrictPort makes the metrics server fail when its port is taken
// instead of scanning for a free one. Use it when scrape configs pin
// the port.
func WithStrictPort() Option {
	return func(r *Recorder) {
		r.strictPort = true
	}
}

// WithEventHandler installs a handler for the recorder's internal
// operational events. Overrides the handler WithLogger would install.
func WithEventHandler(handler EventHandler) Option {
	return func(r *Recorder) {
		r.eventHandler = handler
	}
}

// WithLogger sets the base logger. Request-scoped loggers and access
// log lines derive from it, and internal events go to it unless
// WithEventHandler is also given. Without a logger the router's own
// logger handles requests and internal events are dropped.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithAccessLogs emits one structured log line per request when the
// request finishes, labeled with the matched route pattern. Requires
// WithLogger. Unlike chain middleware, these lines cover requests that
// matched no route at all.
func WithAccessLogs() Option {
	return func(r *Recorder) {
		r.logAccessRequests = true
	}
}

// WithErrorsOnly restricts access logs to responses with status 400 or
// higher. Slow requests are logged regardless when WithSlowThreshold
// is set.
func WithErrorsOnly() Option {
	return func(r *Recorder) {
		r.logErrorsOnly = true
	}
}

// WithSlowThreshold marks requests at or above the duration as slow in
// access logs and logs them at warning level even when they succeed.
func WithSlowThreshold(threshold time.Duration) Option {
	return func(r *Recorder) {
		r.slowThreshold = threshold
	}
}

// WithMeterProvider supplies a caller-managed meter provider. The
// metrics provider options are ignored, no metrics server starts, and
// Shutdown leaves the provider alone.
//
//	reader := sdkmetric.NewManualReader()
//	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
//	rec := telemetry.MustNew(telemetry.WithMeterProvider(mp))
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(r *Recorder) {
		r.meterProvider = provider
		r.customMeterProvider = true
	}
}

// WithTracerProvider supplies a caller-managed tracer provider, useful
// for exporters this package does not wire or for span assertions in
// tests. Shutdown leaves the provider alone.
func WithTracerProvider(provider *sdktrace.TracerProvider) Option {
	return func(r *Recorder) {
		r.tracerProvider = provider
		r.customTracerProvider = true
	}
}

// WithPropagator replaces the propagator used to extract inbound trace
// context. Defaults to a composite of the W3C TraceContext and Baggage
// propagators.
func WithPropagator(propagator propagation.TextMapPropagator) Option {
	return func(r *Recorder) {
		r.propagator = propagator
	}
}

// WithGlobalProviders registers the meter and tracer providers as the
// OpenTelemetry globals once they are initialized. Off by default so
// multiple Recorders can coexist.
func WithGlobalProviders() Option {
	return func(r *Recorder) {
		r.registerGlobal = true
	}
}
