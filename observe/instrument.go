package observe

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/stream"
)

const instrumentationName = "github.com/kbukum/streamkit/observe"

// Span attribute keys.
const (
	AttrStage       = "stream.stage"
	AttrRunID       = "stream.run_id"
	AttrElementsIn  = "stream.elements.in"
	AttrElementsOut = "stream.elements.out"
	AttrStatus      = "stream.status"
)

// Observer holds the tracer, instruments and logger shared by instrumented
// stages.
type Observer struct {
	tracer  trace.Tracer
	metrics *Metrics
	log     *logger.Logger
}

type options struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	log            *logger.Logger
}

// Option configures an Observer.
type Option func(*options)

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithLogger sets the logger. Defaults to logger.Get("stream").
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// New creates an Observer.
func New(opts ...Option) (*Observer, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}
	if o.log == nil {
		o.log = logger.Get("stream")
	}

	metrics, err := NewMetrics(o.meterProvider.Meter(instrumentationName))
	if err != nil {
		return nil, err
	}
	return &Observer{
		tracer:  o.tracerProvider.Tracer(instrumentationName),
		metrics: metrics,
		log:     o.log,
	}, nil
}

// Instrument wraps t so that every run is traced, counted and logged under
// the given stage name. The wrapped transform is as lazy as t.
func Instrument[I, O any](o *Observer, stage string, t stream.Transform[I, O]) stream.Transform[I, O] {
	return func(src stream.Iterator[I]) stream.Iterator[O] {
		r := &run{obs: o, stage: stage}
		return &observedIter[O]{
			inner: t(&countingIter[I]{source: src, run: r}),
			run:   r,
		}
	}
}

// run tracks one execution of an instrumented transform.
type run struct {
	obs   *Observer
	stage string

	id       string
	span     trace.Span
	log      *logger.Logger
	start    time.Time
	in, out  int64
	started  bool
	finished bool
}

// begin starts the run on its first pull and returns ctx carrying the run span.
func (r *run) begin(ctx context.Context) context.Context {
	if !r.started {
		r.started = true
		r.id = uuid.NewString()
		r.start = time.Now()
		ctx, r.span = r.obs.tracer.Start(ctx, "stream.stage/"+r.stage,
			trace.WithAttributes(
				attribute.String(AttrStage, r.stage),
				attribute.String(AttrRunID, r.id),
			),
		)
		r.log = r.obs.log.WithContext(ctx).WithFields(logger.StageFields(r.stage, r.id))
		r.obs.metrics.RecordRunStart(ctx, r.stage)
		r.log.Debug("stage run started")
		return ctx
	}
	return trace.ContextWithSpan(ctx, r.span)
}

func (r *run) finish(ctx context.Context, err error, status string) {
	if r.finished || !r.started {
		return
	}
	r.finished = true
	elapsed := time.Since(r.start)

	r.span.SetAttributes(
		attribute.Int64(AttrElementsIn, r.in),
		attribute.Int64(AttrElementsOut, r.out),
		attribute.String(AttrStatus, status),
	)
	fields := logger.Merge(
		logger.DurationFields("run", elapsed),
		logger.Fields(logger.FieldElementsIn, r.in, logger.FieldElementsOut, r.out),
	)
	switch status {
	case StatusError:
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, err.Error())
		r.log.WithError(err).Error("stage run failed", fields)
	case StatusAbandoned:
		r.log.Debug("stage run abandoned", fields)
	default:
		r.span.SetStatus(codes.Ok, "")
		r.log.Info("stage run completed", fields)
	}
	r.obs.metrics.RecordRunEnd(ctx, r.stage, status, elapsed)
	r.span.End()
}

type countingIter[T any] struct {
	source stream.Iterator[T]
	run    *run
}

func (it *countingIter[T]) Next(ctx context.Context) (T, bool, error) {
	val, ok, err := it.source.Next(ctx)
	if ok && err == nil {
		it.run.in++
		it.run.obs.metrics.RecordIn(ctx, it.run.stage)
	}
	return val, ok, err
}

func (it *countingIter[T]) Close() error { return it.source.Close() }

type observedIter[T any] struct {
	inner stream.Iterator[T]
	run   *run
}

func (it *observedIter[T]) Next(ctx context.Context) (T, bool, error) {
	if it.run.finished {
		return it.inner.Next(ctx)
	}
	ctx = it.run.begin(ctx)
	val, ok, err := it.inner.Next(ctx)
	switch {
	case err != nil:
		it.run.finish(ctx, err, StatusError)
	case !ok:
		it.run.finish(ctx, nil, StatusOK)
	default:
		it.run.out++
		it.run.obs.metrics.RecordOut(ctx, it.run.stage)
	}
	return val, ok, err
}

func (it *observedIter[T]) Close() error {
	it.run.finish(context.Background(), nil, StatusAbandoned)
	return it.inner.Close()
}
