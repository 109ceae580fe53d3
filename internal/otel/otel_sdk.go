package otel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ai-judge/ai-judge/internal/config"
	"github.com/ai-judge/ai-judge/internal/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"google.golang.org/grpc/credentials"
)

const (
	ExporterTypeOTLPGRPC = "otlp-grpc"
	ExporterTypeOTLPHTTP = "otlp-http"
	ExporterTypeStdout   = "stdout"

	ServiceName = "ai-judge"
	Compressor  = "gzip"

	defaultTracerTimeout       = 30 * time.Second
	defaultTracerBatchInterval = 5 * time.Second
	defaultMetricInterval      = time.Minute
)

// SetupOTEL bootstraps the OpenTelemetry pipeline. When it returns a non-nil
// shutdown function the caller must invoke it on exit.
func SetupOTEL(ctx context.Context, config *config.OTELConfig, version string, logger *slog.Logger) (func(context.Context) error, error) {
	if config == nil || !config.Enabled {
		return nil, nil
	}

	if config.TracerTimeout == 0 {
		config.TracerTimeout = defaultTracerTimeout
	}
	if config.TracerBatchInterval == 0 {
		config.TracerBatchInterval = defaultTracerBatchInterval
	}

	// SDK internal errors go to the service log
	otel.SetLogger(logging.NewLogrLogger(logger))

	var shutdownFuncs []func(context.Context) error

	// Each registered cleanup is invoked once, the errors are joined.
	shutdown := func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	fail := func(err error) (func(context.Context) error, error) {
		return nil, errors.Join(err, shutdown(ctx))
	}

	otel.SetTextMapPropagator(newPropagator())

	res := createResource(config, version)

	if config.EnableTracing {
		tracerProvider, err := newTracerProvider(ctx, config, res)
		if err != nil {
			return fail(err)
		}
		shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
		otel.SetTracerProvider(tracerProvider)
		logger.Info("OTEL tracing enabled", "exporter", config.ExporterType)
	}

	if config.EnableMetrics {
		meterProvider, err := newMeterProvider(res)
		if err != nil {
			return fail(err)
		}
		shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)
		otel.SetMeterProvider(meterProvider)
	}

	if config.EnableLogs {
		loggerProvider, err := newLoggerProvider(res)
		if err != nil {
			return fail(err)
		}
		shutdownFuncs = append(shutdownFuncs, loggerProvider.Shutdown)
		global.SetLoggerProvider(loggerProvider)
	}

	return shutdown, nil
}

func newPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

func newTracerProvider(ctx context.Context, config *config.OTELConfig, res *resource.Resource) (*trace.TracerProvider, error) {
	exporter, err := newSpanExporter(ctx, config)
	if err != nil {
		return nil, err
	}
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter, trace.WithBatchTimeout(config.TracerBatchInterval)),
		trace.WithSampler(newSampler(config.SamplingRatio)),
		trace.WithResource(res),
	), nil
}

func newSpanExporter(ctx context.Context, config *config.OTELConfig) (trace.SpanExporter, error) {
	switch config.ExporterType {
	case ExporterTypeOTLPGRPC:
		if config.ExporterEndpoint == "" {
			return nil, fmt.Errorf("Exporter endpoint is required for OTEL %s exporter", config.ExporterType)
		}
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(config.ExporterEndpoint),
			otlptracegrpc.WithTimeout(config.TracerTimeout),
			otlptracegrpc.WithCompressor(Compressor),
		}
		switch {
		case config.ExporterInsecure:
			opts = append(opts, otlptracegrpc.WithInsecure())
		case config.TLSConfig != nil:
			opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(config.TLSConfig)))
		default:
			return nil, fmt.Errorf("No TLS config provided for secure OTEL %s exporter", config.ExporterType)
		}
		return otlptracegrpc.New(ctx, opts...)
	case ExporterTypeOTLPHTTP:
		if config.ExporterEndpoint == "" {
			return nil, fmt.Errorf("Exporter endpoint is required for OTEL %s exporter", config.ExporterType)
		}
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(config.ExporterEndpoint),
			otlptracehttp.WithTimeout(config.TracerTimeout),
		}
		switch {
		case config.ExporterInsecure:
			opts = append(opts, otlptracehttp.WithInsecure())
		case config.TLSConfig != nil:
			opts = append(opts, otlptracehttp.WithTLSClientConfig(config.TLSConfig))
		default:
			return nil, fmt.Errorf("No TLS config provided for secure OTEL %s exporter", config.ExporterType)
		}
		return otlptracehttp.New(ctx, opts...)
	case ExporterTypeStdout:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("Invalid OTEL exporter type: %s", config.ExporterType)
	}
}

func createResource(config *config.OTELConfig, version string) *resource.Resource {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(ServiceName),
	}
	if version != "" {
		attrs = append(attrs, semconv.ServiceVersion(version))
	}
	for key, value := range config.AdditionalAttributes {
		attrs = append(attrs, attribute.String(key, value))
	}
	return resource.NewWithAttributes(semconv.SchemaURL, attrs...)
}

func newMeterProvider(res *resource.Resource) (*metric.MeterProvider, error) {
	exporter, err := stdoutmetric.New()
	if err != nil {
		return nil, err
	}
	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(defaultMetricInterval))),
		metric.WithResource(res),
	), nil
}

func newLoggerProvider(res *resource.Resource) (*log.LoggerProvider, error) {
	// TODO: add an OTLP log exporter once the collector accepts logs
	logExporter, err := stdoutlog.New(stdoutlog.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	return log.NewLoggerProvider(
		log.WithProcessor(log.NewBatchProcessor(logExporter)),
		log.WithResource(res),
	), nil
}

// newSampler samples everything unless a ratio below 1 is configured.
func newSampler(ratio *float64) trace.Sampler {
	if ratio == nil || *ratio >= 1.0 {
		return trace.AlwaysSample()
	}
	if *ratio <= 0.0 {
		return trace.NeverSample()
	}
	return trace.TraceIDRatioBased(*ratio)
}

// NewRoundTripper instruments outgoing requests, such as the LLM provider calls.
func NewRoundTripper(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return otelhttp.NewTransport(base)
}

// NewHTTPClient returns the client used for the LLM provider SDKs.
func NewHTTPClient(enabled bool, timeout time.Duration) *http.Client {
	client := &http.Client{Timeout: timeout}
	if enabled {
		client.Transport = NewRoundTripper(nil)
	}
	return client
}
