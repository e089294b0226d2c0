// Package processingtest drives typed processors and criteria through the untyped envelope path.
package processingtest

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	entityports "github.com/Apurer/go-entity-processors/internal/entitystore/ports"
	"github.com/Apurer/go-entity-processors/internal/platform/retry"
	"github.com/Apurer/go-entity-processors/internal/processing"
	schedulingports "github.com/Apurer/go-entity-processors/internal/scheduling/ports"
	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

// Clock is a fixed instant used by domain tests.
var Clock = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

// Deps returns collaborators with a fixed clock and fast retries.
func Deps(store entityports.Service, scheduler schedulingports.Scheduler) processing.Deps {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return processing.Deps{
		Store:     store,
		Scheduler: scheduler,
		SideCalls: processing.NewSideCalls(logger, retry.Config{
			InitialInterval: time.Millisecond,
			MaxInterval:     2 * time.Millisecond,
			MaxElapsedTime:  50 * time.Millisecond,
			Multiplier:      2,
			MaxRetries:      2,
		}),
		Now:    func() time.Time { return Clock },
		Logger: logger,
	}
}

// Process runs p over value as the engine would for the entity id in the given state.
func Process[T entity.Entity](ctx context.Context, p processing.Processor[T], id uuid.UUID, state string, value T) (T, error) {
	var zero T
	payload, err := entity.Encode(value)
	if err != nil {
		return zero, err
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	resp, err := processing.AdaptProcessor(p).Handle(ctx, processing.ProcessRequest{
		RequestID:     uuid.NewString(),
		ProcessorName: p.Name(),
		EntityID:      id,
		Model:         value.Model(),
		State:         state,
		Payload:       payload,
	})
	if err != nil {
		return zero, err
	}
	return entity.Decode[T](resp.Payload)
}

// Evaluate runs c over value in the given state.
func Evaluate[T entity.Entity](ctx context.Context, c processing.Criterion[T], state string, value T) (processing.Outcome, error) {
	payload, err := entity.Encode(value)
	if err != nil {
		return processing.Outcome{}, err
	}
	resp, err := processing.AdaptCriterion(c).Evaluate(ctx, processing.CriterionRequest{
		RequestID:     uuid.NewString(),
		CriterionName: c.Name(),
		EntityID:      uuid.New(),
		Model:         value.Model(),
		State:         state,
		Payload:       payload,
	})
	if err != nil {
		return processing.Outcome{}, err
	}
	return processing.Outcome{Matches: resp.Matches, Reason: resp.Reason, Category: resp.Category}, nil
}
