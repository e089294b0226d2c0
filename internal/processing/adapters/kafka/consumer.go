package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/Apurer/go-entity-processors/internal/platform/retry"
)

// Config describes the request/reply topics used by the engine.
type Config struct {
	Brokers        []string
	GroupID        string
	RequestTopic   string
	ReplyTopic     string
	Version        string
	ProcessTimeout time.Duration
}

// ParseBrokers splits a comma separated broker list.
func ParseBrokers(raw string) []string {
	var brokers []string
	for _, broker := range strings.Split(raw, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

// NewSaramaConfig builds a client config shared by the consumer group and the reply producer.
func NewSaramaConfig(versionStr string) (*sarama.Config, error) {
	cfg := sarama.NewConfig()
	if versionStr != "" {
		version, err := sarama.ParseKafkaVersion(versionStr)
		if err != nil {
			return nil, fmt.Errorf("parse kafka version %q: %w", versionStr, err)
		}
		cfg.Version = version
	}
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	return cfg, nil
}

// Consumer runs the engine request consumer group.
type Consumer struct {
	logger  *slog.Logger
	client  sarama.ConsumerGroup
	topics  []string
	handler sarama.ConsumerGroupHandler
}

// NewConsumer connects the consumer group after the brokers answer a metadata request.
func NewConsumer(ctx context.Context, logger *slog.Logger, cfg Config, saramaCfg *sarama.Config, handler sarama.ConsumerGroupHandler) (*Consumer, error) {
	if err := pingKafka(ctx, logger, cfg.Brokers, saramaCfg); err != nil {
		return nil, err
	}
	client, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	return &Consumer{
		logger:  logger.With(slog.String("group", cfg.GroupID), slog.String("topic", cfg.RequestTopic)),
		client:  client,
		topics:  []string{cfg.RequestTopic},
		handler: handler,
	}, nil
}

// Start consumes until ctx is cancelled or the group fails.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("kafka consumer starting")
	for {
		if err := c.client.Consume(ctx, c.topics, c.handler); err != nil {
			c.logger.Error("kafka consumer failed", slog.String("error", err.Error()))
			return fmt.Errorf("consumer error: %w", err)
		}
		if ctx.Err() != nil {
			c.logger.Info("kafka consumer stopping")
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.client.Close()
}

// NewProducer creates the synchronous reply producer.
func NewProducer(brokers []string, saramaCfg *sarama.Config) (sarama.SyncProducer, error) {
	producer, err := sarama.NewSyncProducer(brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create reply producer: %w", err)
	}
	return producer, nil
}

func pingKafka(ctx context.Context, logger *slog.Logger, brokers []string, cfg *sarama.Config) error {
	retrier := retry.New(retry.Config{
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		MaxElapsedTime:  2 * time.Minute,
		Randomization:   0.5,
		Multiplier:      2,
	})

	var attempt int
	err := retrier.ExecuteWithContext(ctx, func(context.Context) error {
		attempt++
		logger.Info("attempting kafka connection", slog.Int("attempt", attempt))
		client, err := sarama.NewClient(brokers, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("failed to close kafka probe client", slog.String("error", err.Error()))
			}
		}()
		_, err = client.Topics()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to connect to kafka after %d attempts: %w", attempt, err)
	}
	logger.Info("kafka connection established", slog.Int("attempts", attempt))
	return nil
}
