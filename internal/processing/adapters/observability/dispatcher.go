package observability

import (
	"context"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Apurer/go-entity-processors/internal/processing"
)

const tracerName = "github.com/Apurer/go-entity-processors/internal/processing/adapters/observability/dispatcher"

// Dispatcher decorates handler dispatch with tracing, logging, and metrics.
type Dispatcher struct {
	inner   processing.Dispatcher
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics dispatchMetrics
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(d *Dispatcher) {
		d.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(d *Dispatcher) {
		d.metrics = newDispatchMetrics(m)
	}
}

// New wraps a dispatcher.
func New(inner processing.Dispatcher, opts ...Option) processing.Dispatcher {
	d := &Dispatcher{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: newDispatchMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	if d.tracer == nil {
		d.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return d
}

func (d *Dispatcher) Process(ctx context.Context, req processing.ProcessRequest) (*processing.ProcessResponse, error) {
	ctx, span := d.tracer.Start(ctx, "Processor."+req.ProcessorName, trace.WithAttributes(
		attribute.String("processor.name", req.ProcessorName),
		attribute.String("request.id", req.RequestID),
		attribute.String("entity.id", req.EntityID.String()),
		attribute.String("entity.state", req.State),
	))
	defer span.End()

	started := time.Now()
	resp, err := d.inner.Process(ctx, req)
	d.metrics.record(ctx, "processor", req.ProcessorName, outcomeOf(err), time.Since(started))
	if err != nil {
		return nil, d.handleError(ctx, span, err, "processor failed",
			slog.String("processor", req.ProcessorName),
			slog.String("request_id", req.RequestID),
			slog.String("entity_id", req.EntityID.String()))
	}
	d.logger.LogAttrs(ctx, slog.LevelInfo, "processor applied",
		slog.String("processor", req.ProcessorName),
		slog.String("request_id", req.RequestID),
		slog.String("entity_id", req.EntityID.String()))
	return resp, nil
}

func (d *Dispatcher) Evaluate(ctx context.Context, req processing.CriterionRequest) (*processing.CriterionResponse, error) {
	ctx, span := d.tracer.Start(ctx, "Criterion."+req.CriterionName, trace.WithAttributes(
		attribute.String("criterion.name", req.CriterionName),
		attribute.String("request.id", req.RequestID),
		attribute.String("entity.id", req.EntityID.String()),
	))
	defer span.End()

	started := time.Now()
	resp, err := d.inner.Evaluate(ctx, req)
	if err != nil {
		d.metrics.record(ctx, "criterion", req.CriterionName, outcomeOf(err), time.Since(started))
		return nil, d.handleError(ctx, span, err, "criterion failed",
			slog.String("criterion", req.CriterionName),
			slog.String("request_id", req.RequestID))
	}
	outcome := "no_match"
	if resp.Matches {
		outcome = "match"
	}
	d.metrics.record(ctx, "criterion", req.CriterionName, outcome, time.Since(started))
	span.SetAttributes(attribute.Bool("criterion.matches", resp.Matches))
	d.logger.LogAttrs(ctx, slog.LevelDebug, "criterion evaluated",
		slog.String("criterion", req.CriterionName),
		slog.Bool("matches", resp.Matches),
		slog.String("reason", resp.Reason))
	return resp, nil
}

func (d *Dispatcher) Processors() []string { return d.inner.Processors() }

func (d *Dispatcher) Criteria() []string { return d.inner.Criteria() }

func (d *Dispatcher) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	level := slog.LevelError
	if code := processing.CodeOf(err); code == processing.CodePreconditionFailed || code == processing.CodeUnknownHandler {
		level = slog.LevelWarn
	}
	attrs = append(attrs, slog.String("error", err.Error()), slog.String("code", string(processing.CodeOf(err))))
	d.logger.LogAttrs(ctx, level, msg, attrs...)
	return err
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	return string(processing.CodeOf(err))
}

type dispatchMetrics struct {
	invocations metric.Int64Counter
	duration    metric.Float64Histogram
}

func newDispatchMetrics(m metric.Meter) dispatchMetrics {
	if m == nil {
		return dispatchMetrics{}
	}
	invocations, _ := m.Int64Counter("processing.invocations", metric.WithDescription("Handler invocations by kind, name, and outcome"))
	duration, _ := m.Float64Histogram("processing.duration", metric.WithDescription("Handler latency"), metric.WithUnit("ms"))
	return dispatchMetrics{invocations: invocations, duration: duration}
}

func (m dispatchMetrics) record(ctx context.Context, kind, name, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("handler.kind", kind),
		attribute.String("handler.name", name),
		attribute.String("outcome", outcome),
	)
	if m.invocations != nil {
		m.invocations.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	}
}

var _ processing.Dispatcher = (*Dispatcher)(nil)
