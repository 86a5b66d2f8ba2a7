//go:build !otel

package cmd

import (
	"context"

	"github.com/heddlehq/heddle/internal/config"
	"github.com/heddlehq/heddle/internal/tracing"
)

// initTraceExporter is a no-op when built without the "otel" tag.
// Build with `go build -tags otel` to enable OpenTelemetry export.
func initTraceExporter(_ context.Context, _ *config.Config, _ *tracing.Collector) {
}
