// Package telemetry sets up OpenTelemetry tracing for the passabola binary.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ServiceName is reported as service.name on every span.
const ServiceName = "passabola-web"

// Config selects where spans go.
type Config struct {
	// Enabled turns tracing on. Disabled Setup is a no-op.
	Enabled bool
	// Output is "stdout" or "file://<absolute-path>".
	Output string
	// Version is reported as service.version.
	Version string
}

// Setup installs a global tracer provider exporting spans as JSON lines.
//
// The returned shutdown function flushes pending spans and closes the output
// file, and should be deferred by the caller.
func Setup(cfg Config) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}

	w, closeOutput, err := openOutput(cfg.Output)
	if err != nil {
		return noop, err
	}

	tp, err := NewProvider(w, cfg.Version)
	if err != nil {
		_ = closeOutput()
		return noop, err
	}

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if cerr := closeOutput(); err == nil {
			err = cerr
		}
		return err
	}, nil
}

// NewProvider builds a tracer provider writing spans to w.
// Spans are exported synchronously so short CLI runs lose nothing.
func NewProvider(w io.Writer, version string) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	attrs := []attribute.KeyValue{attribute.String("service.name", ServiceName)}
	if version != "" {
		attrs = append(attrs, attribute.String("service.version", version))
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attrs...)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	), nil
}

// openOutput resolves the output setting to a writer.
func openOutput(output string) (io.Writer, func() error, error) {
	switch {
	case output == "" || output == "stdout":
		return os.Stdout, func() error { return nil }, nil
	case strings.HasPrefix(output, "file://"):
		path := strings.TrimPrefix(output, "file://")
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, nil, fmt.Errorf("create trace directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open trace file: %w", err)
		}
		return f, f.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported trace output %q", output)
	}
}
