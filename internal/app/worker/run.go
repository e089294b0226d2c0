package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/activity"
	temporalworker "go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-entity-processors/internal/app/bootstrap"
	platformobservability "github.com/Apurer/go-entity-processors/internal/platform/observability"
	transitionactivities "github.com/Apurer/go-entity-processors/internal/platform/temporal/activities/transitions"
	"github.com/Apurer/go-entity-processors/internal/platform/temporal/workflows/transitions"
)

const serviceName = "entity-processors-worker"

// Run polls the deferred transition task queue until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	instruments, shutdown, err := platformobservability.Init(ctx, platformobservability.Options{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		LogLevel:     cfg.LogLevel,
		OTLPEndpoint: cfg.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	store, cleanupStore, err := bootstrap.SharedEntityStore(ctx, instruments, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("failed to open entity store: %w", err)
	}
	defer cleanupStore()

	temporalClient, err := bootstrap.DialTemporal(instruments, bootstrap.TemporalConfig{
		Address:   cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
	})
	if err != nil {
		return fmt.Errorf("failed to create Temporal client: %w", err)
	}
	defer temporalClient.Close()

	activities := transitionactivities.NewActivities(store)
	w := temporalworker.New(temporalClient, cfg.TaskQueue, temporalworker.Options{})
	w.RegisterWorkflowWithOptions(transitions.DeferredTransitionWorkflow, workflow.RegisterOptions{Name: transitions.DeferredTransitionWorkflowName})
	w.RegisterActivityWithOptions(activities.TriggerTransition, activity.RegisterOptions{Name: transitionactivities.TriggerTransitionActivityName})

	interrupt := make(chan interface{})
	go func() {
		<-ctx.Done()
		close(interrupt)
	}()
	logger.Info("worker listening", slog.String("taskQueue", cfg.TaskQueue), slog.String("namespace", cfg.TemporalNamespace))
	if err := w.Run(interrupt); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Temporal worker stopped")
	return nil
}
