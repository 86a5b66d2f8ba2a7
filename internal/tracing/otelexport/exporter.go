// Package otelexport ships collector spans to an OTLP endpoint. It is the
// only package linking the OTel SDK; the cmd layer wires it in behind the
// "otel" build tag so default builds stay lean.
package otelexport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/heddlehq/heddle/internal/config"
	"github.com/heddlehq/heddle/internal/tracing"
)

// Config mirrors the [trace] table in config.toml.
type Config struct {
	Endpoint    string            // OTLP endpoint, e.g. "localhost:4317"
	Protocol    string            // "grpc" (default) or "http"
	Insecure    bool              // skip TLS for local collectors
	ServiceName string            // default "heddle"
	Headers     map[string]string // auth tokens and the like
}

// Exporter converts collector spans to OTel spans and exports them via OTLP.
// It implements tracing.Exporter.
type Exporter struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// New creates an OTLP exporter with the given config.
func New(ctx context.Context, cfg Config) (*Exporter, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTLP endpoint is required")
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "heddle"
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(config.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Protocol {
	case "http":
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(cfg.Endpoint),
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	default: // "grpc"
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
		}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("otel exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithMaxExportBatchSize(100),
			sdktrace.WithBatchTimeout(5*time.Second),
		),
		sdktrace.WithResource(res),
	)

	return &Exporter{
		provider: tp,
		tracer:   tp.Tracer("heddle"),
	}, nil
}

// ExportSpans converts a flushed batch to OTel spans. Called by the
// collector; a nil receiver drops the batch.
func (e *Exporter) ExportSpans(ctx context.Context, spans []tracing.Span) {
	if e == nil || len(spans) == 0 {
		return
	}
	for _, s := range spans {
		e.exportSpan(ctx, s)
	}
}

func (e *Exporter) exportSpan(ctx context.Context, s tracing.Span) {
	// The SDK generates its own ids; ours ride along as attributes so OTLP
	// traces correlate with session journals and logs.
	attrs := []attribute.KeyValue{
		attribute.String("heddle.span.kind", s.Kind),
		attribute.String("heddle.trace_id", s.TraceID.String()),
		attribute.String("heddle.span_id", s.ID.String()),
	}
	for k, v := range s.Attrs {
		if k == "model" {
			attrs = append(attrs, attribute.String("gen_ai.request.model", v))
			continue
		}
		attrs = append(attrs, attribute.String("heddle."+k, v))
	}

	parentCtx := ctx
	if s.ParentID != uuid.Nil {
		parentCtx = trace.ContextWithRemoteSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    trace.TraceID(s.TraceID),
			SpanID:     spanID(s.ParentID),
			TraceFlags: trace.FlagsSampled,
			Remote:     true,
		}))
	}

	kind := trace.SpanKindInternal
	if s.Kind == tracing.KindProviderCall {
		kind = trace.SpanKindClient
	}

	_, span := e.tracer.Start(parentCtx, s.Name,
		trace.WithTimestamp(s.Start),
		trace.WithSpanKind(kind),
		trace.WithAttributes(attrs...),
	)
	if s.Status == "error" {
		span.SetStatus(codes.Error, s.Error)
		if s.Error != "" {
			span.RecordError(fmt.Errorf("%s", s.Error))
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}

	end := s.End
	if end.IsZero() {
		end = s.Start
	}
	span.End(trace.WithTimestamp(end))
}

// Shutdown flushes remaining spans and tears the provider down.
func (e *Exporter) Shutdown(ctx context.Context) error {
	if e == nil {
		return nil
	}
	slog.Debug("otlp exporter shutting down", "channel", "agent")
	return e.provider.Shutdown(ctx)
}

// spanID folds a UUID into the 8-byte OTel span id, keeping the random half.
func spanID(id uuid.UUID) trace.SpanID {
	var sid trace.SpanID
	copy(sid[:], id[8:16])
	return sid
}
