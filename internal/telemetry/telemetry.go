// Package telemetry wires the auction service's traces, metrics and logs
// to an OTLP endpoint and owns the domain instruments recorded during a
// run. The application logger is an otelslog bridge, so every slog call
// ships as a log record alongside the spans it belongs to.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/jensholdgaard/franchise-auction/internal/config"
)

const shutdownTimeout = 10 * time.Second

// Provider bundles the signal providers, the application logger and the
// auction instruments.
type Provider struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
	Logger         *slog.Logger
	Metrics        *Metrics
}

// factory builds the per-signal providers from one telemetry config.
type factory struct {
	cfg config.TelemetryConfig
}

func (f *factory) resource(ctx context.Context) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(f.cfg.ServiceName),
			semconv.ServiceVersionKey.String(f.cfg.ServiceVersion),
		),
	)
}

func (f *factory) traces(ctx context.Context, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(f.cfg.OTLPEndpoint)}
	if f.cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	), nil
}

func (f *factory) meters(ctx context.Context, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(f.cfg.OTLPEndpoint)}
	if f.cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exp, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	), nil
}

func (f *factory) logs(ctx context.Context, res *resource.Resource) (*sdklog.LoggerProvider, error) {
	opts := []otlploghttp.Option{otlploghttp.WithEndpoint(f.cfg.OTLPEndpoint)}
	if f.cfg.Insecure {
		opts = append(opts, otlploghttp.WithInsecure())
	}
	exp, err := otlploghttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating log exporter: %w", err)
	}
	return sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
		sdklog.WithResource(res),
	), nil
}

// Setup builds the full provider set. On success the tracer and meter
// providers are installed globally and the returned Logger is the one the
// whole service logs through.
func Setup(ctx context.Context, cfg config.TelemetryConfig) (*Provider, error) {
	f := &factory{cfg: cfg}

	res, err := f.resource(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}
	tp, err := f.traces(ctx, res)
	if err != nil {
		return nil, err
	}
	mp, err := f.meters(ctx, res)
	if err != nil {
		return nil, err
	}
	lp, err := f.logs(ctx, res)
	if err != nil {
		return nil, err
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metrics, err := NewMetrics(mp)
	if err != nil {
		return nil, err
	}

	return &Provider{
		TracerProvider: tp,
		MeterProvider:  mp,
		LoggerProvider: lp,
		Logger:         otelslog.NewLogger(cfg.ServiceName, otelslog.WithLoggerProvider(lp)),
		Metrics:        metrics,
	}, nil
}

// Shutdown flushes and stops every signal provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	return errors.Join(
		p.TracerProvider.Shutdown(ctx),
		p.MeterProvider.Shutdown(ctx),
		p.LoggerProvider.Shutdown(ctx),
	)
}

// NewNopProvider returns a provider whose signals are built but never
// exported, for tests and for running without an OTLP endpoint.
func NewNopProvider() *Provider {
	mp := sdkmetric.NewMeterProvider()
	metrics, err := NewMetrics(mp)
	if err != nil {
		// Instrument creation on a no-export meter provider cannot fail.
		panic(err)
	}
	return &Provider{
		TracerProvider: sdktrace.NewTracerProvider(),
		MeterProvider:  mp,
		LoggerProvider: sdklog.NewLoggerProvider(),
		Logger:         slog.Default(),
		Metrics:        metrics,
	}
}
