package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/irfndi/predictarena-go/internal/config"
)

const (
	ServiceName    = "predictarena"
	ServiceVersion = "dev"

	tracesPath = "/v1/traces"
)

// Provider owns the process tracer provider. A zero Provider is valid and
// its Shutdown is a no-op.
type Provider struct {
	tp       *sdktrace.TracerProvider
	Exporter string
}

// Options tune InitTracer beyond what config carries.
type Options struct {
	Environment string
	// StdoutWriter receives spans when the stdout exporter is selected.
	StdoutWriter io.Writer
}

// InitTracer installs the global tracer provider and propagator.
//
// Spans go to the OTLP/HTTP endpoint when one is configured, to stdout in
// development, and nowhere otherwise.
func InitTracer(ctx context.Context, cfg config.TelemetryConfig, opts Options) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{Exporter: "none"}, nil
	}

	exporter, name, err := newExporter(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	if exporter == nil {
		return &Provider{Exporter: "none"}, nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = ServiceName
	}
	serviceVersion := cfg.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = ServiceVersion
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
			semconv.DeploymentEnvironment(opts.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{tp: tp, Exporter: name}, nil
}

func newExporter(ctx context.Context, cfg config.TelemetryConfig, opts Options) (sdktrace.SpanExporter, string, error) {
	if cfg.OTLPEndpoint != "" {
		hostport, urlPath, insecure, _, err := normalizeOTLPEndpoint(cfg.OTLPEndpoint)
		if err != nil {
			return nil, "", err
		}
		clientOpts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(hostport),
			otlptracehttp.WithURLPath(urlPath),
		}
		if insecure {
			clientOpts = append(clientOpts, otlptracehttp.WithInsecure())
		}
		exp, err := otlptracehttp.New(ctx, clientOpts...)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
		return exp, "otlp", nil
	}

	if opts.Environment == "development" {
		w := opts.StdoutWriter
		if w == nil {
			w = os.Stdout
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, "", fmt.Errorf("failed to create stdout trace exporter: %w", err)
		}
		return exp, "stdout", nil
	}

	return nil, "", nil
}

// normalizeOTLPEndpoint splits a collector URL into the pieces the OTLP/HTTP
// exporter wants. The traces path is appended unless already present.
func normalizeOTLPEndpoint(endpoint string) (hostport, urlPath string, insecure bool, resolved string, err error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return "", "", false, "", fmt.Errorf("invalid OTLP endpoint %q: %w", endpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", "", false, "", fmt.Errorf("invalid OTLP endpoint %q: expected http(s)://host:port", endpoint)
	}

	base := strings.TrimRight(u.Path, "/")
	if strings.HasSuffix(base, tracesPath) {
		urlPath = base
	} else {
		urlPath = base + tracesPath
	}

	insecure = u.Scheme == "http"
	resolved = u.Scheme + "://" + u.Host + urlPath
	return u.Host, urlPath, insecure, resolved, nil
}

// CollectorAddress returns the host:port of a collector URL, for exporters
// configured by address rather than URL.
func CollectorAddress(endpoint string) (string, error) {
	hostport, _, _, _, err := normalizeOTLPEndpoint(endpoint)
	return hostport, err
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// RecordError marks span failed with err. Nil errors and non-recording spans
// are ignored.
func RecordError(span trace.Span, err error, description string) {
	if err == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, description)
}
