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
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// instrumentationScope names the meter and tracer this package creates.
const instrumentationScope = "strata.dev/router/telemetry"

// initMetricsProvider initializes the configured metrics provider. OTLP
// is the exception: its exporter opens a connection, so it is deferred
// to Start and only flagged here.
func (r *Recorder) initMetricsProvider() error {
	if r.customMeterProvider {
		if r.meterProvider == nil {
			return fmt.Errorf("custom meter provider is nil")
		}
		if r.registerGlobal {
			otel.SetMeterProvider(r.meterProvider)
		}
		r.meter = r.meterProvider.Meter(instrumentationScope)
		if err := r.initInstruments(); err != nil {
			return err
		}
		r.metricsReady.Store(true)

		return nil
	}

	switch r.metricsProvider {
	case MetricsPrometheus:
		return r.initPrometheusMetrics()
	case MetricsOTLP:
		r.metricsDeferred.Store(true)
		return nil
	case MetricsStdout:
		return r.initStdoutMetrics()
	default:
		return fmt.Errorf("unsupported metrics provider: %s", r.metricsProvider)
	}
}

// initPrometheusMetrics wires a private Prometheus registry to an
// OpenTelemetry reader and builds the scrape handler. A private
// registry keeps several Recorders, or a host application's own
// collectors, from colliding in the global one.
func (r *Recorder) initPrometheusMetrics() error {
	r.prometheusRegistry = promclient.NewRegistry()

	exporter, err := prometheus.New(
		prometheus.WithRegisterer(r.prometheusRegistry),
	)
	if err != nil {
		return fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	r.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)

	r.prometheusHandler = promhttp.HandlerFor(
		r.prometheusRegistry,
		promhttp.HandlerOpts{},
	)

	if r.registerGlobal {
		r.emitDebug("setting global OpenTelemetry meter provider", "provider", "prometheus")
		otel.SetMeterProvider(r.meterProvider)
	}

	r.meter = r.meterProvider.Meter(instrumentationScope)
	if err := r.initInstruments(); err != nil {
		return err
	}
	r.metricsReady.Store(true)

	return nil
}

// initOTLPMetrics creates the OTLP HTTP exporter. Called from Start so
// the connection shares the application's lifecycle context.
func (r *Recorder) initOTLPMetrics(ctx context.Context) error {
	opts := []otlpmetrichttp.Option{}

	if r.otlpEndpoint != "" {
		// The exporter wants a bare host:port; a scheme selects
		// plaintext vs TLS and any path is dropped.
		endpoint := r.otlpEndpoint
		isHTTP := false

		if trimmed, ok := strings.CutPrefix(endpoint, "http://"); ok {
			endpoint = trimmed
			isHTTP = true
		} else if trimmed, ok := strings.CutPrefix(endpoint, "https://"); ok {
			endpoint = trimmed
		}
		if idx := strings.Index(endpoint, "/"); idx != -1 {
			endpoint = endpoint[:idx]
		}

		opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		if isHTTP {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(r.exportInterval),
	)

	r.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
	)

	if r.registerGlobal {
		r.emitDebug("setting global OpenTelemetry meter provider", "provider", "otlp")
		otel.SetMeterProvider(r.meterProvider)
	}

	r.meter = r.meterProvider.Meter(instrumentationScope)
	if err := r.initInstruments(); err != nil {
		return err
	}
	r.metricsReady.Store(true)

	r.emitInfo("metrics initialized", "provider", "otlp", "endpoint", r.otlpEndpoint)

	return nil
}

// initStdoutMetrics initializes the stdout metrics provider.
func (r *Recorder) initStdoutMetrics() error {
	exporter, err := stdoutmetric.New()
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(r.exportInterval),
	)

	r.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
	)

	if r.registerGlobal {
		r.emitDebug("setting global OpenTelemetry meter provider", "provider", "stdout")
		otel.SetMeterProvider(r.meterProvider)
	}

	r.meter = r.meterProvider.Meter(instrumentationScope)
	if err := r.initInstruments(); err != nil {
		return err
	}
	r.metricsReady.Store(true)

	return nil
}

// initTraceProvider initializes the configured trace provider. Both
// supported providers build locally, so neither is deferred to Start.
func (r *Recorder) initTraceProvider() error {
	if r.propagator == nil {
		// The global propagator is a no-op unless the application
		// registered one, which would break inbound trace correlation
		// silently. Default to the W3C formats instead.
		r.propagator = propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		)
	}

	if r.customTracerProvider {
		if r.tracerProvider == nil {
			return fmt.Errorf("custom tracer provider is nil")
		}
		if r.registerGlobal {
			otel.SetTracerProvider(r.tracerProvider)
		}
		r.tracer = r.tracerProvider.Tracer(instrumentationScope)

		return nil
	}

	switch r.traceProvider {
	case TracesNoop:
		return r.initNoopTraces()
	case TracesStdout:
		return r.initStdoutTraces()
	default:
		return fmt.Errorf("unsupported trace provider: %s", r.traceProvider)
	}
}

// initNoopTraces builds a tracer provider with no exporter. Spans are
// recorded, so they carry valid IDs for log correlation, but nothing
// leaves the process.
func (r *Recorder) initNoopTraces() error {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(r.traceResource()),
	)

	r.sdkTracerProvider = tp
	r.tracerProvider = tp
	r.tracer = tp.Tracer(instrumentationScope)

	if r.registerGlobal {
		r.emitDebug("setting global OpenTelemetry tracer provider", "provider", "noop")
		otel.SetTracerProvider(tp)
	}

	return nil
}

// initStdoutTraces initializes the stdout trace exporter.
func (r *Recorder) initStdoutTraces() error {
	exporter, err := stdouttrace.New(
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return fmt.Errorf("failed to create stdout trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r.traceResource()),
	)

	r.sdkTracerProvider = tp
	r.tracerProvider = tp
	r.tracer = tp.Tracer(instrumentationScope)

	if r.registerGlobal {
		r.emitDebug("setting global OpenTelemetry tracer provider", "provider", "stdout")
		otel.SetTracerProvider(tp)
	}

	r.emitInfo("tracing initialized", "provider", "stdout", "service", r.serviceName)

	return nil
}

// traceResource describes this service for exported spans.
func (r *Recorder) traceResource() *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(r.serviceName),
		semconv.ServiceVersion(r.serviceVersion),
	)
}

// startMetricsServer binds the metrics listener and serves the
// Prometheus handler from a goroutine. Binding happens here, not in
// the goroutine, so port discovery is settled before Start returns.
func (r *Recorder) startMetricsServer() {
	if r.prometheusHandler == nil {
		return
	}
	if r.isShuttingDown.Load() {
		r.emitDebug("not starting metrics server: shutdown in progress")
		return
	}

	requested := r.metricsAddr
	listener, actual, err := r.listenMetrics()
	if err != nil {
		r.emitError("failed to start metrics server", "error", err, "addr", requested)
		return
	}

	mux := http.NewServeMux()
	mux.Handle(r.metricsPath, r.prometheusHandler)

	server := &http.Server{
		Addr:         actual,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	r.serverMu.Lock()
	r.metricsAddr = actual
	r.metricsServer = server
	r.serverMu.Unlock()

	if actual != requested && requested != ":0" {
		r.emitWarning("metrics server using different port than requested",
			"actual_address", actual+r.metricsPath,
			"requested_addr", requested,
			"recommendation", "use WithStrictPort() to fail instead of auto-discovering")
	} else {
		r.emitInfo("metrics server starting",
			"address", actual+r.metricsPath)
	}

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			r.serverMu.Lock()
			r.metricsServer = nil
			r.serverMu.Unlock()
			r.emitError("metrics server error", "error", err)
		}
	}()
}

// stopMetricsServer shuts down the metrics server if one is running.
func (r *Recorder) stopMetricsServer(ctx context.Context) error {
	r.serverMu.Lock()
	server := r.metricsServer
	r.metricsServer = nil
	r.serverMu.Unlock()

	if server == nil {
		return nil
	}

	if err := server.Shutdown(ctx); err != nil {
		r.emitError("error shutting down metrics server", "error", err)
		return fmt.Errorf("metrics server shutdown: %w", err)
	}

	return nil
}

// listenMetrics opens the metrics listener. Strict mode binds the
// configured address or fails; otherwise nearby ports are scanned
// until one is free. The listener is handed to the server as-is, so
// the bound port can never be lost to another process in between.
func (r *Recorder) listenMetrics() (net.Listener, string, error) {
	if r.strictPort {
		listener, err := net.Listen("tcp", r.metricsAddr)
		if err != nil {
			return nil, "", fmt.Errorf("strict port unavailable: %w", err)
		}
		return listener, r.metricsAddr, nil
	}

	return listenAvailablePort(r.metricsAddr)
}

// listenAvailablePort tries the preferred port first, then the next 99
// above it. The returned address reflects the port actually bound,
// which matters when the preferred port is 0 and the OS picks one.
func listenAvailablePort(preferred string) (net.Listener, string, error) {
	addr := preferred
	if !strings.HasPrefix(addr, ":") {
		addr = ":" + addr
	}

	port, err := strconv.Atoi(strings.TrimPrefix(addr, ":"))
	if err != nil {
		return nil, "", fmt.Errorf("invalid port format: %s", preferred)
	}

	for i := range 100 {
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port+i))
		if err == nil {
			bound := listener.Addr().(*net.TCPAddr).Port
			return listener, fmt.Sprintf(":%d", bound), nil
		}
		if port == 0 {
			break
		}
	}

	return nil, "", fmt.Errorf("no available port found starting from %s", preferred)
}
