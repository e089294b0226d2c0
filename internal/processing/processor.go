package processing

import (
	"context"

	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

// Processor validates and mutates one entity type during a named transition.
type Processor[T entity.Entity] interface {
	Name() string
	// Check rejects the invocation before any mutation happens.
	Check(ctx context.Context, in entity.WithMetadata[T]) error
	// Apply mutates the entity in place. It only runs after Check passed.
	Apply(ctx context.Context, in *entity.WithMetadata[T]) error
}

// ReasonCategory groups criterion outcomes for the engine.
type ReasonCategory string

const (
	CategoryNone         ReasonCategory = ""
	CategoryValidation   ReasonCategory = "VALIDATION_FAILURE"
	CategoryBusinessRule ReasonCategory = "BUSINESS_RULE_FAILURE"
	CategoryDataQuality  ReasonCategory = "DATA_QUALITY_FAILURE"
)

// Outcome is the result of evaluating a criterion.
type Outcome struct {
	Matches  bool
	Reason   string
	Category ReasonCategory
}

// Match is a positive outcome.
func Match() Outcome {
	return Outcome{Matches: true}
}

// NoMatch is a negative outcome with a reason.
func NoMatch(category ReasonCategory, reason string) Outcome {
	return Outcome{Reason: reason, Category: category}
}

// Criterion is a predicate gating a transition of one entity type.
type Criterion[T entity.Entity] interface {
	Name() string
	Evaluate(ctx context.Context, in entity.WithMetadata[T]) (Outcome, error)
}

// ProcessorFunc builds a Processor from closures. A nil check always passes.
func ProcessorFunc[T entity.Entity](
	name string,
	check func(context.Context, entity.WithMetadata[T]) error,
	apply func(context.Context, *entity.WithMetadata[T]) error,
) Processor[T] {
	return funcProcessor[T]{name: name, check: check, apply: apply}
}

type funcProcessor[T entity.Entity] struct {
	name  string
	check func(context.Context, entity.WithMetadata[T]) error
	apply func(context.Context, *entity.WithMetadata[T]) error
}

func (p funcProcessor[T]) Name() string { return p.name }

func (p funcProcessor[T]) Check(ctx context.Context, in entity.WithMetadata[T]) error {
	if p.check == nil {
		return nil
	}
	return p.check(ctx, in)
}

func (p funcProcessor[T]) Apply(ctx context.Context, in *entity.WithMetadata[T]) error {
	if p.apply == nil {
		return nil
	}
	return p.apply(ctx, in)
}

// CriterionFunc builds a Criterion from a closure.
func CriterionFunc[T entity.Entity](name string, evaluate func(context.Context, entity.WithMetadata[T]) (Outcome, error)) Criterion[T] {
	return funcCriterion[T]{name: name, evaluate: evaluate}
}

type funcCriterion[T entity.Entity] struct {
	name     string
	evaluate func(context.Context, entity.WithMetadata[T]) (Outcome, error)
}

func (c funcCriterion[T]) Name() string { return c.name }

func (c funcCriterion[T]) Evaluate(ctx context.Context, in entity.WithMetadata[T]) (Outcome, error) {
	return c.evaluate(ctx, in)
}

// RequireState rejects entities that are not in one of the given lifecycle states.
func RequireState(meta entity.Metadata, states ...string) error {
	for _, state := range states {
		if meta.State == state {
			return nil
		}
	}
	return Rejectf("%s %s is in state %q, expected one of %v", meta.Model.Name, meta.ID, meta.State, states)
}
