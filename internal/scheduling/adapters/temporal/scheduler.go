package temporal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	transitionactivities "github.com/Apurer/go-entity-processors/internal/platform/temporal/activities/transitions"
	transitionworkflows "github.com/Apurer/go-entity-processors/internal/platform/temporal/workflows/transitions"
	"github.com/Apurer/go-entity-processors/internal/scheduling/ports"
)

var _ ports.Scheduler = (*Scheduler)(nil)

// Scheduler starts one durable workflow per deferred transition.
type Scheduler struct {
	client    client.Client
	taskQueue string
	logger    *slog.Logger
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTaskQueue overrides the queue polled by the transitions worker.
func WithTaskQueue(queue string) Option {
	return func(s *Scheduler) {
		if queue != "" {
			s.taskQueue = queue
		}
	}
}

// NewScheduler wires a Temporal client into the scheduler.
func NewScheduler(c client.Client, opts ...Option) *Scheduler {
	s := &Scheduler{
		client:    c,
		taskQueue: transitionworkflows.DeferredTransitionTaskQueue,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// ScheduleTransition returns once the workflow is accepted. A key that already
// has a running workflow is treated as scheduled.
func (s *Scheduler) ScheduleTransition(ctx context.Context, task ports.DeferredTransition) error {
	if s == nil || s.client == nil {
		return errors.New("temporal scheduler not configured")
	}
	if err := task.Validate(); err != nil {
		return err
	}
	key := task.DedupKey()
	options := client.StartWorkflowOptions{
		ID:                                       BuildWorkflowID(key),
		TaskQueue:                                s.taskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}
	input := transitionworkflows.DeferredTransitionWorkflowInput{
		Trigger: transitionactivities.TriggerTransitionInput{
			Key:        key,
			EntityID:   task.EntityID,
			Model:      task.Model,
			Transition: task.Transition,
		},
		Delay:   task.Delay,
		TraceID: traceID(ctx),
	}
	_, err := s.client.ExecuteWorkflow(ctx, options, transitionworkflows.DeferredTransitionWorkflowName, input)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			s.logger.DebugContext(ctx, "deferred transition already scheduled", slog.String("key", key), slog.String("workflow_id", options.ID))
			return nil
		}
		return fmt.Errorf("start deferred transition %s: %w", key, err)
	}
	s.logger.InfoContext(ctx, "deferred transition scheduled",
		slog.String("key", key),
		slog.String("workflow_id", options.ID),
		slog.String("entity_id", task.EntityID.String()),
		slog.String("transition", task.Transition),
		slog.Duration("delay", task.Delay),
	)
	return nil
}

// BuildWorkflowID derives a deterministic workflow id from the dedup key.
func BuildWorkflowID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("deferred-transition-%s", hex.EncodeToString(sum[:8]))
}

func traceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
