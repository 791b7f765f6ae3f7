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

// Package telemetry implements the router's observability seam on
// OpenTelemetry and Prometheus. A single [Recorder] covers all three
// pillars: HTTP metrics, request spans, and request-scoped structured
// logging.
//
// # Basic Usage
//
//	rec := telemetry.MustNew(
//	    telemetry.WithServiceName("orders-api"),
//	    telemetry.WithPrometheus(":9090", "/metrics"),
//	    telemetry.WithLogger(slog.Default()),
//	)
//
//	r := router.MustNew(router.WithObservability(rec))
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//	if err := rec.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer rec.Shutdown(context.Background())
//
// # Providers
//
// Metrics export through one of three providers:
//   - [MetricsPrometheus] (default): pull-based, served from a dedicated
//     HTTP endpoint backed by a private Prometheus registry
//   - [MetricsOTLP]: push-based OTLP over HTTP; the exporter connects
//     when [Recorder.Start] is called
//   - [MetricsStdout]: periodic dumps to stdout for development
//
// Traces default to [TracesNoop]: spans carry valid IDs for log
// correlation but are never exported. [WithStdoutTraces] exports them,
// pretty-printed, for development.
//
// # Route Patterns
//
// Request metrics and span names are labeled with the matched route's
// pattern ("/users/:id"), not the raw path, so cardinality stays bounded
// no matter what clients send. Requests that match nothing are labeled
// with the router's "_not_found" sentinel.
//
// # Handler-Level Metrics
//
// Recorder also supplies the router's per-context metrics recorder, so
// handlers can record custom metrics without importing this package:
//
//	r.GET("/orders", func(c *router.Context) error {
//	    c.IncrementCounter("orders_listed_total")
//	    ...
//	})
//
// Custom metrics are capped (default 1000) to prevent unbounded
// instrument creation; names must follow OpenTelemetry conventions.
//
// # Global State
//
// Nothing is registered globally by default, so multiple Recorder
// instances can coexist in one process. Use [WithGlobalProviders] to
// install the meter and tracer providers as the OpenTelemetry globals.
//
// # Security
//
// Sensitive headers (Authorization, Cookie, X-API-Key, and friends) are
// filtered out of [WithHeaders] so credentials never reach span
// attributes.
package telemetry
