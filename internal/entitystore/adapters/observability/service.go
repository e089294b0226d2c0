package observability

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Apurer/go-entity-processors/internal/entitystore/ports"
	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

const tracerName = "github.com/Apurer/go-entity-processors/internal/entitystore/adapters/observability/service"

// Service decorates the entity store client with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wraps an entity store client.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return s
}

func (s *Service) Search(ctx context.Context, model entity.ModelSpec, cond entity.Condition) ([]*entity.Raw, error) {
	ctx, span := s.tracer.Start(ctx, "EntityService.Search", trace.WithAttributes(attribute.String("entity.model", model.String())))
	defer span.End()

	result, err := s.inner.Search(ctx, model, cond)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "entity search failed", slog.String("entity.model", model.String()))
	}
	span.SetAttributes(attribute.Int("entity.search.hits", len(result)))
	s.metrics.recordCall(ctx, "search")
	s.logDebug(ctx, "entity search", slog.String("entity.model", model.String()), slog.Int("hits", len(result)))
	return result, nil
}

func (s *Service) FindByBusinessID(ctx context.Context, model entity.ModelSpec, value any, field string) (*entity.Raw, error) {
	ctx, span := s.tracer.Start(ctx, "EntityService.FindByBusinessID",
		trace.WithAttributes(attribute.String("entity.model", model.String()), attribute.String("entity.field", field)))
	defer span.End()

	result, err := s.inner.FindByBusinessID(ctx, model, value, field)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "business id lookup failed",
			slog.String("entity.model", model.String()), slog.String("entity.field", field))
	}
	span.SetAttributes(attribute.Bool("entity.found", result != nil))
	s.metrics.recordCall(ctx, "find_by_business_id")
	return result, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, mutated any, transition string) error {
	ctx, span := s.tracer.Start(ctx, "EntityService.Update",
		trace.WithAttributes(attribute.String("entity.id", id.String()), attribute.String("entity.transition", transition)))
	defer span.End()

	s.logInfo(ctx, "updating entity", slog.String("entity.id", id.String()), slog.String("transition", transition))
	if err := s.inner.Update(ctx, id, mutated, transition); err != nil {
		return s.handleError(ctx, span, err, "entity update failed",
			slog.String("entity.id", id.String()), slog.String("transition", transition))
	}
	s.metrics.recordCall(ctx, "update")
	if transition != "" {
		s.metrics.recordTransition(ctx, transition)
	}
	return nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID, model entity.ModelSpec) (*entity.Raw, error) {
	ctx, span := s.tracer.Start(ctx, "EntityService.GetByID",
		trace.WithAttributes(attribute.String("entity.id", id.String()), attribute.String("entity.model", model.String())))
	defer span.End()

	result, err := s.inner.GetByID(ctx, id, model)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "entity load failed", slog.String("entity.id", id.String()))
	}
	s.metrics.recordCall(ctx, "get_by_id")
	return result, nil
}

func (s *Service) Create(ctx context.Context, model entity.ModelSpec, state string, payload any) (*entity.Raw, error) {
	ctx, span := s.tracer.Start(ctx, "EntityService.Create",
		trace.WithAttributes(attribute.String("entity.model", model.String()), attribute.String("entity.state", state)))
	defer span.End()

	result, err := s.inner.Create(ctx, model, state, payload)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "entity create failed", slog.String("entity.model", model.String()))
	}
	s.metrics.recordCall(ctx, "create")
	s.logInfo(ctx, "entity created", slog.String("entity.id", result.Metadata.ID.String()), slog.String("entity.model", model.String()))
	return result, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "EntityService.Delete", trace.WithAttributes(attribute.String("entity.id", id.String())))
	defer span.End()

	if err := s.inner.Delete(ctx, id); err != nil {
		return s.handleError(ctx, span, err, "entity delete failed", slog.String("entity.id", id.String()))
	}
	s.metrics.recordCall(ctx, "delete")
	s.logInfo(ctx, "entity deleted", slog.String("entity.id", id.String()))
	return nil
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logDebug(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if s.logger != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
	}
	return err
}

type serviceMetrics struct {
	calls       metric.Int64Counter
	transitions metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	calls, _ := m.Int64Counter("entitystore.calls", metric.WithDescription("Entity store calls by operation"))
	transitions, _ := m.Int64Counter("entitystore.transitions_triggered", metric.WithDescription("Transitions triggered through Update"))
	return serviceMetrics{calls: calls, transitions: transitions}
}

func (m serviceMetrics) recordCall(ctx context.Context, op string) {
	if m.calls != nil {
		m.calls.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
	}
}

func (m serviceMetrics) recordTransition(ctx context.Context, transition string) {
	if m.transitions != nil {
		m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("transition", transition)))
	}
}

var _ ports.Service = (*Service)(nil)
