package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	transitionactivities "github.com/Apurer/go-entity-processors/internal/platform/temporal/activities/transitions"
)

// RunDeferredTransitionSequence waits on a durable timer, then fires the transition.
func RunDeferredTransitionSequence(ctx workflow.Context, delay time.Duration, input transitionactivities.TriggerTransitionInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("deferred transition sequence waiting", "entityId", input.EntityID, "delay", delay)
	if delay > 0 {
		if err := workflow.Sleep(ctx, delay); err != nil {
			logger.Warn("deferred transition sequence cancelled while waiting", "entityId", input.EntityID, "error", err)
			return err
		}
	}

	triggerOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    10,
		},
	}
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, triggerOptions), transitionactivities.TriggerTransitionActivityName, input).Get(ctx, nil)
	if err != nil {
		logger.Error("deferred transition sequence failed", "entityId", input.EntityID, "transition", input.Transition, "error", err)
		return err
	}
	logger.Info("deferred transition sequence fired", "entityId", input.EntityID, "transition", input.Transition)
	return nil
}
