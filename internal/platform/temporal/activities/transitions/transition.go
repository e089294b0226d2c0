package transitions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	entityports "github.com/Apurer/go-entity-processors/internal/entitystore/ports"
	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

// TriggerTransitionActivityName fires a named transition on a stored entity.
const TriggerTransitionActivityName = "transitions.activities.TriggerTransition"

// TriggerTransitionInput identifies the entity and the transition to fire.
type TriggerTransitionInput struct {
	Key        string
	EntityID   uuid.UUID
	Model      entity.ModelSpec
	Transition string
}

// Activities groups activities that act on the entity store.
type Activities struct {
	store entityports.Service
}

// NewActivities wires the entity store into the Temporal activities bundle.
func NewActivities(store entityports.Service) *Activities {
	return &Activities{store: store}
}

// TriggerTransition calls Update(id, nil, transition). Missing entities and
// transitions invalid for the current state are not retried.
func (a *Activities) TriggerTransition(ctx context.Context, input TriggerTransitionInput) error {
	logger := activity.GetLogger(ctx)
	if a == nil || a.store == nil {
		logger.Error("transition activity not initialized", "entityId", input.EntityID)
		return errors.New("transition activity not initialized")
	}
	logger.Info("TriggerTransition activity started", "entityId", input.EntityID, "transition", input.Transition, "key", input.Key)
	err := a.store.Update(ctx, input.EntityID, nil, input.Transition)
	switch {
	case err == nil:
		logger.Info("TriggerTransition activity completed", "entityId", input.EntityID, "transition", input.Transition)
		return nil
	case errors.Is(err, entityports.ErrNotFound), errors.Is(err, entityports.ErrInvalidTransition):
		logger.Warn("TriggerTransition rejected by entity store", "entityId", input.EntityID, "error", err)
		return temporal.NewNonRetryableApplicationError(err.Error(), "TransitionRejected", err)
	default:
		logger.Error("TriggerTransition activity failed", "entityId", input.EntityID, "error", err)
		return err
	}
}
