package wire

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
)

// Metrics groups the counters and histograms this module reports through
// go.opentelemetry.io/otel/metric, per SPEC_FULL.md §2. It is purely
// additive instrumentation: nothing in the wire protocol depends on it,
// and a zero-value *Metrics (or one built from a noop meter) behaves
// identically to not measuring at all.
type Metrics struct {
	ProtocolErrors metric.Int64Counter
	BodyBytes      metric.Int64Histogram
}

// NewMetrics builds a Metrics from an otel.Meter. Passing nil selects a
// no-op meter, matching gravel's own habit of wiring
// go.opentelemetry.io/otel unconditionally and letting the caller decide
// whether to configure a real exporter.
func NewMetrics(meter metric.Meter) *Metrics {
	if meter == nil {
		meter = noopmetric.NewMeterProvider().Meter("")
	}

	protoErrors, _ := meter.Int64Counter(
		"royalbed.wire.protocol_errors",
		metric.WithDescription("HTTP/1.1 messages rejected as malformed"),
	)
	bodyBytes, _ := meter.Int64Histogram(
		"royalbed.wire.body_bytes",
		metric.WithDescription("size in bytes of HTTP message bodies read"),
	)

	return &Metrics{
		ProtocolErrors: protoErrors,
		BodyBytes:      bodyBytes,
	}
}

func (m *Metrics) recordBodyBytes(n int64) {
	if m == nil || m.BodyBytes == nil {
		return
	}
	m.BodyBytes.Record(context.Background(), n)
}
