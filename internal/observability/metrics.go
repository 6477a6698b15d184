package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the render counters and histograms, read by a Prometheus
// exporter, adapted from glyphoxa's Prometheus-exporter bridge
// (internal/observe/provider.go) to the render domain. ArkSynth serves no
// HTTP scrape endpoint for this exporter.
type Metrics struct {
	LinesRendered   metric.Int64Counter
	LinesFailed     metric.Int64Counter
	RenderDuration  metric.Float64Histogram
	CacheHits       metric.Int64Counter
}

// InitMetrics registers a Prometheus exporter as the process-wide
// MeterProvider's reader and builds the render instruments. Returns a
// shutdown func to flush on exit.
func InitMetrics(ctx context.Context, serviceName string) (*Metrics, func(context.Context) error, error) {
	exp, err := promexporter.New()
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
	otel.SetMeterProvider(mp)

	meter := mp.Meter(serviceName)

	linesRendered, err := meter.Int64Counter("arksynth_lines_rendered_total",
		metric.WithDescription("dialogue lines successfully synthesized and cached"))
	if err != nil {
		return nil, nil, err
	}
	linesFailed, err := meter.Int64Counter("arksynth_lines_failed_total",
		metric.WithDescription("dialogue lines that failed synthesis"))
	if err != nil {
		return nil, nil, err
	}
	renderDuration, err := meter.Float64Histogram("arksynth_render_duration_seconds",
		metric.WithDescription("wall-clock time to render one dialogue line"))
	if err != nil {
		return nil, nil, err
	}
	cacheHits, err := meter.Int64Counter("arksynth_cache_hits_total",
		metric.WithDescription("dialogue lines skipped because already cached"))
	if err != nil {
		return nil, nil, err
	}

	m := &Metrics{
		LinesRendered:  linesRendered,
		LinesFailed:    linesFailed,
		RenderDuration: renderDuration,
		CacheHits:      cacheHits,
	}
	return m, mp.Shutdown, nil
}
