package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/i2y/mcpfhir/configs"
)

type shutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// setupTracing exports gateway and assessment spans over OTLP/gRPC. Without
// an endpoint the global no-op provider stays in place.
func setupTracing(ctx context.Context, cfg *configs.Config, logger *slog.Logger) (shutdownFunc, error) {
	endpoint := cfg.OtelExporterOtlpEndpoint
	if endpoint == "" {
		logger.Info("Tracing disabled: no OTLP endpoint configured.")
		return noopShutdown, nil
	}

	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(otlpCredentials(cfg, logger)))
	if err != nil {
		return nil, fmt.Errorf("dial OTLP endpoint %s: %w", endpoint, err)
	}
	closeConn := func() { _ = conn.Close() }

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		closeConn()
		return nil, fmt.Errorf("create OTLP trace exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serverName),
		semconv.ServiceVersionKey.String(serverVersion),
	))
	if err != nil {
		_ = exporter.Shutdown(ctx)
		closeConn()
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter), sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	logger.Info("Tracing enabled.", slog.String("endpoint", endpoint))

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), conn.Close())
	}, nil
}

func otlpCredentials(cfg *configs.Config, logger *slog.Logger) credentials.TransportCredentials {
	if cfg.OtelExporterOtlpInsecure {
		logger.Warn("OTLP exporter connection is not encrypted.")
		return insecure.NewCredentials()
	}
	return credentials.NewClientTLSFromCert(nil, "")
}
