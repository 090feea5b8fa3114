// Package telemetry wires the process-wide tracer and metrics endpoint.
package telemetry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/colorfulnotion/cellvm/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

var (
	once    sync.Once
	initErr error
	tp      *sdktrace.TracerProvider
	mu      sync.Mutex
)

// InitTracer exports spans over OTLP/HTTP to endpoint (host:port). Only the
// first call has any effect. Without it, the global no-op tracer is used.
func InitTracer(ctx context.Context, endpoint, service, version string) error {
	once.Do(func() {
		exporter, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			initErr = fmt.Errorf("failed to create OTLP exporter: %w", err)
			return
		}
		res, err := resource.New(ctx,
			resource.WithAttributes(
				semconv.ServiceNameKey.String(service),
				semconv.ServiceVersionKey.String(version),
			),
		)
		if err != nil {
			initErr = fmt.Errorf("failed to create resource: %w", err)
			return
		}

		mu.Lock()
		defer mu.Unlock()
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(time.Second)),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		log.Info(log.RPCMonitoring, "tracing enabled", "endpoint", endpoint, "service", service)
	})
	return initErr
}

// ShutdownTracer flushes pending spans. Safe to call more than once.
func ShutdownTracer(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()
	if tp == nil {
		return nil
	}
	if err := tp.ForceFlush(ctx); err != nil {
		if strings.Contains(err.Error(), "connection refused") {
			log.Warn(log.RPCMonitoring, "failed to flush spans", "err", err)
			return nil
		}
		return fmt.Errorf("failed to flush spans: %w", err)
	}
	if err := tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown tracer: %w", err)
	}
	tp = nil
	return nil
}
