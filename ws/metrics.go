package ws

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
)

// Metrics groups the counters a Controller reports through
// go.opentelemetry.io/otel/metric, per SPEC_FULL.md §2: frames received by
// opcode and liveness ping timeouts. Purely additive — nothing in the
// frame codec or controller logic depends on it.
type Metrics struct {
	FramesReceived metric.Int64Counter
	PingTimeouts   metric.Int64Counter
}

// NewMetrics builds a Metrics from an otel.Meter, defaulting to a no-op
// meter when meter is nil.
func NewMetrics(meter metric.Meter) *Metrics {
	if meter == nil {
		meter = noopmetric.NewMeterProvider().Meter("")
	}

	framesReceived, _ := meter.Int64Counter(
		"royalbed.ws.frames_received",
		metric.WithDescription("WebSocket frames received, by opcode"),
	)
	pingTimeouts, _ := meter.Int64Counter(
		"royalbed.ws.ping_timeouts",
		metric.WithDescription("liveness pings that went unanswered"),
	)

	return &Metrics{FramesReceived: framesReceived, PingTimeouts: pingTimeouts}
}

func (m *Metrics) recordFrame(op Opcode) {
	if m == nil || m.FramesReceived == nil {
		return
	}
	m.FramesReceived.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("opcode", op.String()),
	))
}
