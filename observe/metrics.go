package observe

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Run statuses recorded on stream.run.duration.
const (
	StatusOK        = "ok"
	StatusError     = "error"
	StatusAbandoned = "abandoned"
)

// Metrics holds the instruments recorded for stage runs.
type Metrics struct {
	elementsIn  metric.Int64Counter
	elementsOut metric.Int64Counter
	errorTotal  metric.Int64Counter
	runsActive  metric.Int64UpDownCounter
	runDuration metric.Float64Histogram
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	elementsIn, err := meter.Int64Counter("stream.elements.in",
		metric.WithDescription("Elements pulled by a stage from its input"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.elements.in counter: %w", err)
	}

	elementsOut, err := meter.Int64Counter("stream.elements.out",
		metric.WithDescription("Elements yielded by a stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.elements.out counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("stream.errors",
		metric.WithDescription("Stage runs that ended with an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.errors counter: %w", err)
	}

	runsActive, err := meter.Int64UpDownCounter("stream.runs.active",
		metric.WithDescription("Stage runs started and not yet finished"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.runs.active counter: %w", err)
	}

	runDuration, err := meter.Float64Histogram("stream.run.duration",
		metric.WithDescription("Duration of stage runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.run.duration histogram: %w", err)
	}

	return &Metrics{
		elementsIn:  elementsIn,
		elementsOut: elementsOut,
		errorTotal:  errorTotal,
		runsActive:  runsActive,
		runDuration: runDuration,
	}, nil
}

func stageAttr(stage string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("stage", stage))
}

// RecordRunStart increments the active run count.
func (m *Metrics) RecordRunStart(ctx context.Context, stage string) {
	m.runsActive.Add(ctx, 1, stageAttr(stage))
}

// RecordRunEnd decrements active runs and records the run duration.
func (m *Metrics) RecordRunEnd(ctx context.Context, stage, status string, d time.Duration) {
	m.runsActive.Add(ctx, -1, stageAttr(stage))
	m.runDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	))
	if status == StatusError {
		m.errorTotal.Add(ctx, 1, stageAttr(stage))
	}
}

// RecordIn counts one element pulled from a stage's input.
func (m *Metrics) RecordIn(ctx context.Context, stage string) {
	m.elementsIn.Add(ctx, 1, stageAttr(stage))
}

// RecordOut counts one element yielded by a stage.
func (m *Metrics) RecordOut(ctx context.Context, stage string) {
	m.elementsOut.Add(ctx, 1, stageAttr(stage))
}
