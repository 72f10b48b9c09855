package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/SlowBubble/video-spreadsheet-sub000/internal/engine"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// metrics holds the engine's OTel instruments. Uses the global meter
// provider, which is a no-op unless the host installs one.
type metrics struct {
	frames      metric.Int64Counter
	starts      metric.Int64Counter
	transitions metric.Int64Counter
}

func newMetrics(m metric.Meter) (*metrics, error) {
	var (
		mt  metrics
		err error
	)

	mt.frames, err = m.Int64Counter(
		"playback.frames.dispatched",
		metric.WithDescription("Total frames dispatched to media sources"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating frames counter: %w", err)
	}

	mt.starts, err = m.Int64Counter(
		"playback.starts",
		metric.WithDescription("Start requests by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating starts counter: %w", err)
	}

	mt.transitions, err = m.Int64Counter(
		"playback.transitions",
		metric.WithDescription("Playback state transitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transitions counter: %w", err)
	}

	return &mt, nil
}

// noopMetrics is used when the global provider fails to create instruments.
func noopMetrics() *metrics {
	mt, _ := newMetrics(noop.NewMeterProvider().Meter(instrumentationName))
	return mt
}

func (m *metrics) frameDispatched(terminal bool) {
	m.frames.Add(context.Background(), 1,
		metric.WithAttributes(attribute.Bool("terminal", terminal)))
}

func (m *metrics) startHandled(outcome string) {
	m.starts.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *metrics) transitioned(to State, reason string) {
	m.transitions.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("to", to.String()),
			attribute.String("reason", reason),
		))
}
