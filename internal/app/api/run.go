package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/Apurer/go-entity-processors/internal/app/bootstrap"
	"github.com/Apurer/go-entity-processors/internal/domains/catalog"
	entityports "github.com/Apurer/go-entity-processors/internal/entitystore/ports"
	platformobservability "github.com/Apurer/go-entity-processors/internal/platform/observability"
	"github.com/Apurer/go-entity-processors/internal/platform/retry"
	"github.com/Apurer/go-entity-processors/internal/processing"
	processinghttp "github.com/Apurer/go-entity-processors/internal/processing/adapters/http"
	"github.com/Apurer/go-entity-processors/internal/processing/adapters/kafka"
	processingobs "github.com/Apurer/go-entity-processors/internal/processing/adapters/observability"
	"github.com/Apurer/go-entity-processors/internal/scheduling/adapters/inline"
	temporalscheduler "github.com/Apurer/go-entity-processors/internal/scheduling/adapters/temporal"
	schedulingports "github.com/Apurer/go-entity-processors/internal/scheduling/ports"
)

const serviceName = "entity-processors-api"

// Run boots the processor callback API with observability, the entity store, schedulers, and transports wired.
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

	store, backend, cleanupStore := bootstrap.EntityStore(ctx, instruments, cfg.PostgresDSN)
	defer cleanupStore()

	scheduler, cleanupScheduler := buildScheduler(instruments, cfg, store, backend)
	defer cleanupScheduler()

	registry := processing.NewRegistry()
	deps := processing.Deps{
		Store:     store,
		Scheduler: scheduler,
		SideCalls: processing.NewSideCalls(logger, retry.DefaultConfig()),
		Now:       time.Now,
		Logger:    logger,
	}
	if err := catalog.Register(registry, deps,
		catalog.WithPaymentConfirmationDelay(cfg.PaymentConfirmationDelay),
		catalog.WithShippingLeadDays(cfg.ShippingLeadDays),
	); err != nil {
		return err
	}
	dispatcher := processingobs.New(
		registry,
		processingobs.WithLogger(logger),
		processingobs.WithTracer(instruments.Tracer("internal.processing")),
		processingobs.WithMeter(instruments.Meter("internal.processing")),
	)
	logger.Info("handlers registered",
		slog.Int("processors", len(dispatcher.Processors())),
		slog.Int("criteria", len(dispatcher.Criteria())))

	server, err := buildServer(cfg, dispatcher, logger)
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("processor API listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("processor API server exited", slog.String("addr", server.Addr), slog.String("error", err.Error()))
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if cfg.KafkaEnabled() {
		group.Go(func() error {
			return runConsumer(groupCtx, cfg, dispatcher, logger)
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("processor API stopped")
	return nil
}

// temporalConfig returns the Temporal settings for deferred transitions. Workers
// only see shared stores, so a process-local store keeps transitions in process.
func temporalConfig(cfg Config, backend bootstrap.Backend) bootstrap.TemporalConfig {
	return bootstrap.TemporalConfig{
		Address:   cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Disabled:  cfg.TemporalDisabled || !backend.Shared(),
	}
}

func buildScheduler(instruments *platformobservability.Instruments, cfg Config, store entityports.Service, backend bootstrap.Backend) (schedulingports.Scheduler, func()) {
	logger := instruments.Logger
	temporalClient, err := bootstrap.DialTemporal(instruments, temporalConfig(cfg, backend))
	if err != nil {
		logger.Warn("Temporal workflows unavailable, deferring transitions in process",
			slog.String("store", string(backend)),
			slog.String("error", err.Error()))
		scheduler := inline.NewScheduler(store, inline.WithLogger(logger))
		return scheduler, func() {
			if err := scheduler.Close(); err != nil {
				logger.Warn("failed to drain deferred transitions", slog.String("error", err.Error()))
			}
		}
	}
	logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	scheduler := temporalscheduler.NewScheduler(temporalClient,
		temporalscheduler.WithLogger(logger),
		temporalscheduler.WithTaskQueue(cfg.TemporalTaskQueue),
	)
	return scheduler, temporalClient.Close
}

func buildServer(cfg Config, dispatcher processing.Dispatcher, logger *slog.Logger) (*http.Server, error) {
	if cfg.Environment != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := processinghttp.NewMetrics(promRegistry)
	if err != nil {
		return nil, fmt.Errorf("failed to register http metrics: %w", err)
	}
	auth := processinghttp.NewEngineAuth(cfg.EngineJWTSecret, cfg.EngineJWTIssuer)
	if auth == nil {
		logger.Warn("ENGINE_JWT_SECRET not set, processor routes are unauthenticated")
	}
	router := processinghttp.NewRouter(processinghttp.NewHandlerAPI(dispatcher, logger), processinghttp.RouterOptions{
		ServiceName: serviceName,
		Logger:      logger,
		Auth:        auth,
		Metrics:     metrics,
	})
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}, nil
}

func runConsumer(ctx context.Context, cfg Config, dispatcher processing.Dispatcher, logger *slog.Logger) error {
	saramaCfg, err := kafka.NewSaramaConfig(cfg.KafkaVersion)
	if err != nil {
		return err
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, saramaCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := producer.Close(); err != nil {
			logger.Warn("failed to close reply producer", slog.String("error", err.Error()))
		}
	}()
	handler := kafka.NewHandler(dispatcher, producer, cfg.KafkaReplyTopic, cfg.ProcessTimeout, logger)
	consumer, err := kafka.NewConsumer(ctx, logger, kafka.Config{
		Brokers:        cfg.KafkaBrokers,
		GroupID:        cfg.KafkaGroupID,
		RequestTopic:   cfg.KafkaRequestTopic,
		ReplyTopic:     cfg.KafkaReplyTopic,
		Version:        cfg.KafkaVersion,
		ProcessTimeout: cfg.ProcessTimeout,
	}, saramaCfg, handler)
	if err != nil {
		return err
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			logger.Warn("failed to close kafka consumer", slog.String("error", err.Error()))
		}
	}()
	return consumer.Start(ctx)
}
