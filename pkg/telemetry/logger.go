package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
)

// InstrumentationKeyHeader carries the instrumentation key on every export.
const InstrumentationKeyHeader = "x-instrumentation-key"

// LoggerConfig selects where outcome records are shipped.
type LoggerConfig struct {
	ConnectionString string
	ServiceName      string
	InstanceID       string
}

// NewLogger builds a slog.Logger that exports records over OTLP/HTTP to the
// endpoint named by the connection string. An empty connection string yields
// a logger that drops everything. The returned func flushes and stops the
// exporter.
func NewLogger(ctx context.Context, cfg LoggerConfig) (*slog.Logger, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if cfg.ConnectionString == "" {
		return slog.New(slog.DiscardHandler), noop, nil
	}

	cs, err := ParseConnectionString(cfg.ConnectionString)
	if err != nil {
		return nil, noop, err
	}

	opts := []otlploghttp.Option{otlploghttp.WithEndpointURL(cs.LogsURL())}
	if cs.InstrumentationKey != "" {
		opts = append(opts, otlploghttp.WithHeaders(map[string]string{
			InstrumentationKeyHeader: cs.InstrumentationKey,
		}))
	}
	exporter, err := otlploghttp.New(ctx, opts...)
	if err != nil {
		return nil, noop, fmt.Errorf("create log exporter: %w", err)
	}

	name := cfg.ServiceName
	if name == "" {
		name = "flightbot"
	}
	attrs := []attribute.KeyValue{attribute.String("service.name", name)}
	if cfg.InstanceID != "" {
		attrs = append(attrs, attribute.String("service.instance.id", cfg.InstanceID))
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithResource(resource.NewSchemaless(attrs...)),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)

	return otelslog.NewLogger(name, otelslog.WithLoggerProvider(provider)), provider.Shutdown, nil
}
