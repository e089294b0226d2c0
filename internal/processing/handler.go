package processing

import (
	"context"
	"errors"
	"fmt"

	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

// Handler is the untyped processor the registry dispatches to.
type Handler interface {
	Name() string
	Supports(name string) bool
	Handle(ctx context.Context, req ProcessRequest) (*ProcessResponse, error)
}

// Evaluator is the untyped criterion the registry dispatches to.
type Evaluator interface {
	Name() string
	Supports(name string) bool
	Evaluate(ctx context.Context, req CriterionRequest) (*CriterionResponse, error)
}

// AdaptProcessor exposes a typed processor as a Handler.
func AdaptProcessor[T entity.Entity](p Processor[T]) Handler {
	return processorHandler[T]{inner: p}
}

type processorHandler[T entity.Entity] struct {
	inner Processor[T]
}

func (h processorHandler[T]) Name() string { return h.inner.Name() }

func (h processorHandler[T]) Supports(name string) bool { return name == h.inner.Name() }

// Handle decodes, checks, mutates a copy, and re-encodes. Apply never runs when a check fails.
func (h processorHandler[T]) Handle(ctx context.Context, req ProcessRequest) (*ProcessResponse, error) {
	value, err := entity.Decode[T](req.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	in := entity.WithMetadata[T]{Entity: value, Metadata: req.Metadata()}
	if err := value.Validate(); err != nil {
		return nil, precondition(err)
	}
	if err := h.inner.Check(ctx, in); err != nil {
		return nil, precondition(err)
	}

	// Apply mutates a separate decode of the payload.
	working, err := entity.Decode[T](req.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	mutated := entity.WithMetadata[T]{Entity: working, Metadata: in.Metadata}
	if err := h.inner.Apply(ctx, &mutated); err != nil {
		return nil, fmt.Errorf("%s: %w", h.inner.Name(), err)
	}
	payload, err := entity.Encode(mutated.Entity)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", h.inner.Name(), err)
	}
	return &ProcessResponse{
		RequestID: req.RequestID,
		EntityID:  req.EntityID,
		Success:   true,
		Payload:   payload,
	}, nil
}

// AdaptCriterion exposes a typed criterion as an Evaluator.
func AdaptCriterion[T entity.Entity](c Criterion[T]) Evaluator {
	return criterionEvaluator[T]{inner: c}
}

type criterionEvaluator[T entity.Entity] struct {
	inner Criterion[T]
}

func (e criterionEvaluator[T]) Name() string { return e.inner.Name() }

func (e criterionEvaluator[T]) Supports(name string) bool { return name == e.inner.Name() }

func (e criterionEvaluator[T]) Evaluate(ctx context.Context, req CriterionRequest) (*CriterionResponse, error) {
	value, err := entity.Decode[T](req.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	outcome, err := e.inner.Evaluate(ctx, entity.WithMetadata[T]{Entity: value, Metadata: req.Metadata()})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.inner.Name(), err)
	}
	return &CriterionResponse{
		RequestID: req.RequestID,
		EntityID:  req.EntityID,
		Success:   true,
		Matches:   outcome.Matches,
		Reason:    outcome.Reason,
		Category:  outcome.Category,
	}, nil
}

func precondition(err error) error {
	if errors.Is(err, ErrPreconditionFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPreconditionFailed, err)
}
