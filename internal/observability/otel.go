package observability

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/enrollment-backend/internal/platform/logger"
)

const tracerName = "enrollment"

// Build identifies the running binary on every exported span.
type Build struct {
	ServiceName string
	Environment string
	Version     string
}

var (
	tracingOnce     sync.Once
	tracingShutdown = func(context.Context) error { return nil }
)

// InitOTel installs the global tracer provider when tracing is enabled. Exporter failures
// leave tracing on with spans dropped. The returned shutdown func is always safe to call.
func InitOTel(ctx context.Context, log *logger.Logger, cfg TracingConfig, build Build) func(context.Context) error {
	tracingOnce.Do(func() {
		if !cfg.Enabled {
			return
		}
		if strings.TrimSpace(build.ServiceName) == "" {
			build.ServiceName = tracerName
		}
		tp := sdktrace.NewTracerProvider(tracerOptions(ctx, log, cfg, build)...)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
		tracingShutdown = tp.Shutdown
		log.Info("tracing enabled", "service", build.ServiceName, "sample_ratio", cfg.sampleRatio(), "otlp", cfg.Endpoint != "")
	})
	return tracingShutdown
}

func tracerOptions(ctx context.Context, log *logger.Logger, cfg TracingConfig, build Build) []sdktrace.TracerProviderOption {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.sampleRatio()))),
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(build.ServiceName),
		semconv.ServiceVersionKey.String(build.Version),
		attribute.String("deployment.environment", build.Environment),
	))
	if err != nil {
		log.Warn("tracing resource incomplete", "error", err)
	}
	opts = append(opts, sdktrace.WithResource(res))

	exp, err := newSpanExporter(ctx, cfg)
	if err != nil {
		log.Warn("span exporter unavailable, spans will be dropped", "error", err)
		return opts
	}
	if cfg.Endpoint == "" {
		log.Warn("no OTLP endpoint configured, writing spans to stdout")
	}
	return append(opts, sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(5*time.Second)))
}

func newSpanExporter(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	if cfg.Endpoint == "" {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	return otlptracehttp.New(ctx, opts...)
}

// StartSpan opens a span on the global provider. It is a no-op span while tracing is off.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
