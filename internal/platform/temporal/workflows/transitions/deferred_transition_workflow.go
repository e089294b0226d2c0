package transitions

import (
	"time"

	"go.temporal.io/sdk/workflow"

	transitionactivities "github.com/Apurer/go-entity-processors/internal/platform/temporal/activities/transitions"
	"github.com/Apurer/go-entity-processors/internal/platform/temporal/sequences"
)

const (
	// DeferredTransitionWorkflowName is the public identifier for registering the workflow.
	DeferredTransitionWorkflowName = "transitions.workflows.Deferred"
	// DeferredTransitionTaskQueue is the queue consumed by the worker firing deferred transitions.
	DeferredTransitionTaskQueue = "DEFERRED_TRANSITIONS"
)

// DeferredTransitionWorkflowInput captures one deferred transition.
type DeferredTransitionWorkflowInput struct {
	Trigger transitionactivities.TriggerTransitionInput
	Delay   time.Duration
	TraceID string
}

// DeferredTransitionWorkflow sleeps on a durable timer and then fires the transition.
func DeferredTransitionWorkflow(ctx workflow.Context, input DeferredTransitionWorkflowInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("DeferredTransitionWorkflow started", withTraceID(input.TraceID, "entityId", input.Trigger.EntityID, "transition", input.Trigger.Transition)...)
	if err := sequences.RunDeferredTransitionSequence(ctx, input.Delay, input.Trigger); err != nil {
		logger.Error("DeferredTransitionWorkflow failed", withTraceID(input.TraceID, "entityId", input.Trigger.EntityID, "error", err)...)
		return err
	}
	logger.Info("DeferredTransitionWorkflow completed", withTraceID(input.TraceID, "entityId", input.Trigger.EntityID)...)
	return nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
