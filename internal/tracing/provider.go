package tracing

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Provider owns the process-wide OpenTelemetry TracerProvider for the
// lifetime of one procmond daemon run (spec.md §6.5).
type Provider struct {
	tp     *sdktrace.TracerProvider
	logger *slog.Logger
}

// TracerConfig is built from internal/config.GlobalConfig's tracing_*
// fields (see cmd/procmond/serve.go) — procmond only ever offers the two
// exporters internal/config/validation.go accepts, stdout and
// otlp-grpc, so there is no TLS/Jaeger/Zipkin branching to carry here.
type TracerConfig struct {
	Enabled  bool
	Exporter string // stdout | otlp-grpc
	Endpoint string // otlp-grpc target

	ServiceName string
	Version     string
	// ProgramCount is attached to the root resource as
	// procmond.roster.size, so a trace backend can be filtered/grouped
	// by how large the supervised roster was at daemon start without
	// cross-referencing the event log.
	ProgramCount int
}

// NewProvider builds the TracerProvider described by cfg, or a disabled
// stand-in (every method a no-op) when cfg.Enabled is false — callers
// never need to branch on whether tracing is on.
func NewProvider(ctx context.Context, cfg TracerConfig, logger *slog.Logger) (*Provider, error) {
	if !cfg.Enabled {
		logger.Debug("tracing disabled")
		return &Provider{logger: logger}, nil
	}

	exporter, err := newExporter(ctx, cfg.Exporter, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	version := cfg.Version
	if version == "" {
		version = "unknown"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(version),
			attribute.Int("procmond.roster.size", cfg.ProgramCount),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	logger.Info("tracing initialized", "exporter", cfg.Exporter, "endpoint", cfg.Endpoint, "programs", cfg.ProgramCount)
	return &Provider{tp: tp, logger: logger}, nil
}

// newExporter picks the exporter named by the roster's tracing_exporter
// field. Every program in the roster shares one exporter — procmond has
// no notion of per-program trace destinations.
func newExporter(ctx context.Context, kind, endpoint string) (sdktrace.SpanExporter, error) {
	switch kind {
	case "otlp-grpc":
		conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("dial otlp-grpc endpoint %q: %w", endpoint, err)
		}
		return otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	case "stdout", "":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unsupported trace exporter %q (want stdout or otlp-grpc)", kind)
	}
}

// Tracer returns the named tracer, falling back to a no-op one when
// tracing is disabled so callers never need a nil check.
func (p *Provider) Tracer(name string) trace.Tracer {
	if p.tp == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return p.tp.Tracer(name)
}

// Shutdown flushes and stops the provider. Safe to call even when
// tracing was never enabled.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown trace provider: %w", err)
	}
	return nil
}

// Enabled reports whether a real TracerProvider is backing this Provider.
func (p *Provider) Enabled() bool {
	return p.tp != nil
}
