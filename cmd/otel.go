//go:build otel

package cmd

import (
	"context"
	"log/slog"

	"github.com/heddlehq/heddle/internal/config"
	"github.com/heddlehq/heddle/internal/tracing"
	"github.com/heddlehq/heddle/internal/tracing/otelexport"
)

// initTraceExporter creates and wires the OpenTelemetry OTLP exporter
// when the trace config is enabled. Only compiled with -tags otel.
func initTraceExporter(ctx context.Context, cfg *config.Config, collector *tracing.Collector) {
	if collector == nil {
		return
	}
	if !cfg.Trace.Enabled || cfg.Trace.Endpoint == "" {
		slog.Debug("OTel export available but not enabled (set trace.enabled + trace.endpoint)", "channel", "config")
		return
	}

	otelExp, err := otelexport.New(ctx, otelexport.Config{
		Endpoint:    cfg.Trace.Endpoint,
		Protocol:    cfg.Trace.Protocol,
		Insecure:    cfg.Trace.Insecure,
		ServiceName: cfg.Trace.ServiceName,
		Headers:     cfg.Trace.Headers,
	})
	if err != nil {
		slog.Warn("failed to create OTel exporter", "channel", "config", "error", err)
		return
	}

	collector.SetExporter(otelExp)
	slog.Info("OpenTelemetry OTLP export enabled",
		"channel", "config",
		"endpoint", cfg.Trace.Endpoint,
		"protocol", cfg.Trace.Protocol,
	)
}
