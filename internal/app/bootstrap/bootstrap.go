// Package bootstrap builds the collaborators shared by the API and worker processes.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"

	"github.com/Apurer/go-entity-processors/internal/domains/catalog"
	"github.com/Apurer/go-entity-processors/internal/entitystore/adapters/memory"
	entityobs "github.com/Apurer/go-entity-processors/internal/entitystore/adapters/observability"
	entitypostgres "github.com/Apurer/go-entity-processors/internal/entitystore/adapters/persistence/postgres"
	entityports "github.com/Apurer/go-entity-processors/internal/entitystore/ports"
	"github.com/Apurer/go-entity-processors/internal/platform/migrations"
	platformobservability "github.com/Apurer/go-entity-processors/internal/platform/observability"
	platformpostgres "github.com/Apurer/go-entity-processors/internal/platform/postgres"
	"github.com/Apurer/go-entity-processors/internal/platform/retry"
)

// ErrNoDSN is returned when a shared entity store is required but POSTGRES_DSN is empty.
var ErrNoDSN = errors.New("POSTGRES_DSN not set")

// Backend names the storage an entity store ended up on.
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendMemory   Backend = "memory"
)

// Shared reports whether other processes see the same entities.
func (b Backend) Shared() bool {
	return b == BackendPostgres
}

// EntityStore connects the PostgreSQL entity store, falling back to memory when
// no DSN is configured or the database cannot be reached.
func EntityStore(ctx context.Context, instruments *platformobservability.Instruments, dsn string) (entityports.Service, Backend, func()) {
	logger := instruments.Logger
	store, backend, cleanup := rawEntityStore(ctx, logger, dsn)
	return observed(instruments, store), backend, cleanup
}

// SharedEntityStore connects the PostgreSQL entity store and fails instead of
// falling back to a process-local store.
func SharedEntityStore(ctx context.Context, instruments *platformobservability.Instruments, dsn string) (entityports.Service, func(), error) {
	store, cleanup, err := postgresEntityStore(ctx, instruments.Logger, dsn)
	if err != nil {
		return nil, nil, err
	}
	return observed(instruments, store), cleanup, nil
}

func observed(instruments *platformobservability.Instruments, store entityports.Service) entityports.Service {
	return entityobs.New(
		store,
		entityobs.WithLogger(instruments.Logger),
		entityobs.WithTracer(instruments.Tracer("internal.entitystore")),
		entityobs.WithMeter(instruments.Meter("internal.entitystore")),
	)
}

func rawEntityStore(ctx context.Context, logger *slog.Logger, dsn string) (entityports.Service, Backend, func()) {
	store, cleanup, err := postgresEntityStore(ctx, logger, dsn)
	if err != nil {
		logger.Warn("falling back to in-memory entity store", slog.String("error", err.Error()))
		return memory.NewStore(memory.WithTransitions(catalog.Transitions())), BackendMemory, func() {}
	}
	return store, BackendPostgres, cleanup
}

func postgresEntityStore(ctx context.Context, logger *slog.Logger, dsn string) (entityports.Service, func(), error) {
	if dsn == "" {
		return nil, nil, ErrNoDSN
	}
	db, cleanup, err := platformpostgres.ConnectWithRetry(ctx, logger, dsn, platformpostgres.DefaultPoolConfig(), retry.Config{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxElapsedTime:  30 * time.Second,
		Randomization:   0.5,
		Multiplier:      2,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.Run(db); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("migrate entity schema: %w", err)
	}
	logger.Info("entity store configured with postgres")
	return entitypostgres.NewStore(db, entitypostgres.WithTransitions(catalog.Transitions())), cleanup, nil
}

// TemporalConfig addresses the Temporal frontend.
type TemporalConfig struct {
	Address   string
	Namespace string
	Disabled  bool
}

// DialTemporal connects a traced Temporal client.
func DialTemporal(instruments *platformobservability.Instruments, cfg TemporalConfig) (client.Client, error) {
	if cfg.Disabled {
		return nil, errors.New("temporal disabled for this deployment")
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(temporalotel.TracerOptions{
		Tracer: instruments.Tracer("temporal-client"),
	})
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.Address,
		Namespace: cfg.Namespace,
		Logger:    workerlog.NewStructuredLogger(instruments.Logger),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}
