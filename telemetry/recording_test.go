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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCustomMetricNameValidation tests the naming rules enforced on
// handler-created instruments.
func TestCustomMetricNameValidation(t *testing.T) {
	t.Parallel()

	rec, err := New(WithoutMetricsServer())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Shutdown(context.Background()) })

	tests := []struct {
		name       string
		metricName string
		wantErr    string
	}{
		{
			name:       "valid name",
			metricName: "orders_processed",
			wantErr:    "",
		},
		{
			name:       "valid name with dots and hyphens",
			metricName: "cache.hits-primary",
			wantErr:    "",
		},
		{
			name:       "empty name",
			metricName: "",
			wantErr:    "metric name cannot be empty",
		},
		{
			name:       "starts with digit",
			metricName: "1st_request",
			wantErr:    "invalid metric name",
		},
		{
			name:       "contains spaces",
			metricName: "bad name",
			wantErr:    "invalid metric name",
		},
		{
			name:       "dunder prefix reserved",
			metricName: "__internal",
			wantErr:    "reserved prefix",
		},
		{
			name:       "http prefix reserved",
			metricName: "http_shadow_total",
			wantErr:    "reserved prefix",
		},
		{
			name:       "name too long",
			metricName: "m" + strings.Repeat("x", 300),
			wantErr:    "metric name too long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := rec.IncrementCounter(t.Context(), tt.metricName)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

// TestCustomMetricLimit tests the cap on distinct custom instruments.
func TestCustomMetricLimit(t *testing.T) {
	t.Parallel()

	rec, err := New(
		WithoutMetricsServer(),
		WithMaxCustomMetrics(2),
	)
	require.NoError(t, err)
	defer rec.Shutdown(t.Context())

	ctx := t.Context()

	require.NoError(t, rec.IncrementCounter(ctx, "first_counter"))
	require.NoError(t, rec.RecordHistogram(ctx, "second_histogram", 1.5))
	assert.Equal(t, 2, rec.CustomMetricCount())

	err = rec.SetGauge(ctx, "third_gauge", 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics limit reached")

	// Recording to existing instruments never counts against the cap.
	require.NoError(t, rec.IncrementCounter(ctx, "first_counter"))
	require.NoError(t, rec.AddCounter(ctx, "first_counter", 5))
	require.NoError(t, rec.RecordHistogram(ctx, "second_histogram", 0.2))
	assert.Equal(t, 2, rec.CustomMetricCount())
}

// TestCustomMetricsBeforeStart tests that the deferred OTLP provider
// rejects recordings until Start has initialized it.
func TestCustomMetricsBeforeStart(t *testing.T) {
	t.Parallel()

	rec, err := New(WithOTLP("http://localhost:4318"))
	require.NoError(t, err)

	assert.False(t, rec.metricsReady.Load())

	err = rec.IncrementCounter(t.Context(), "too_early")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics not initialized")

	err = rec.RecordHistogram(t.Context(), "too_early_hist", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics not initialized")
}

// TestContextMetricsBridgeDropsErrors tests that the context-facing
// recorder swallows recording errors instead of surfacing them to
// handlers.
func TestContextMetricsBridgeDropsErrors(t *testing.T) {
	t.Parallel()

	var events []Event
	rec, err := New(
		WithoutMetricsServer(),
		WithEventHandler(func(e Event) { events = append(events, e) }),
	)
	require.NoError(t, err)
	defer rec.Shutdown(t.Context())

	bridge := rec.ContextMetricsRecorder()
	require.NotNil(t, bridge)

	assert.NotPanics(t, func() {
		bridge.IncrementCounter(t.Context(), "__reserved_name")
	})

	var sawDrop bool
	for _, e := range events {
		if e.Type == EventDebug && e.Message == "custom metric dropped" {
			sawDrop = true
		}
	}
	assert.True(t, sawDrop)

	// Valid recordings pass through to the shared instrument tables.
	bridge.RecordMetric(t.Context(), "checkout_duration", 0.42)
	bridge.SetGauge(t.Context(), "queue_depth", 17)
	assert.Equal(t, 2, rec.CustomMetricCount())
}
