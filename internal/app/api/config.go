package api

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"

	"github.com/Apurer/go-entity-processors/internal/platform/temporal/workflows/transitions"
	"github.com/Apurer/go-entity-processors/internal/processing/adapters/kafka"
)

// Config carries environment-driven settings for the processor API process.
type Config struct {
	Port                     string
	Environment              string
	LogLevel                 string
	OTLPEndpoint             string
	PostgresDSN              string
	TemporalAddress          string
	TemporalNamespace        string
	TemporalDisabled         bool
	TemporalTaskQueue        string
	KafkaBrokers             []string
	KafkaGroupID             string
	KafkaRequestTopic        string
	KafkaReplyTopic          string
	KafkaVersion             string
	EngineJWTSecret          string
	EngineJWTIssuer          string
	ProcessTimeout           time.Duration
	PaymentConfirmationDelay time.Duration
	ShippingLeadDays         int
}

// LoadConfig reads a .env file when present, then environment variables, applies defaults,
// and validates basic constraints.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := Config{
		Port:              envDefault("PORT", "8080"),
		Environment:       envDefault("ENVIRONMENT", "local"),
		LogLevel:          envDefault("LOG_LEVEL", "info"),
		OTLPEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		PostgresDSN:       strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:  isTruthy(os.Getenv("TEMPORAL_DISABLED")),
		TemporalTaskQueue: envDefault("TEMPORAL_TASK_QUEUE", transitions.DeferredTransitionTaskQueue),
		KafkaBrokers:      kafka.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaGroupID:      envDefault("KAFKA_GROUP_ID", "entity-processors"),
		KafkaRequestTopic: envDefault("KAFKA_REQUEST_TOPIC", "engine.processor.requests"),
		KafkaReplyTopic:   envDefault("KAFKA_REPLY_TOPIC", "engine.processor.replies"),
		KafkaVersion:      strings.TrimSpace(os.Getenv("KAFKA_VERSION")),
		EngineJWTSecret:   strings.TrimSpace(os.Getenv("ENGINE_JWT_SECRET")),
		EngineJWTIssuer:   strings.TrimSpace(os.Getenv("ENGINE_JWT_ISSUER")),
	}
	var err error
	if cfg.ProcessTimeout, err = durationEnv("PROCESS_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.PaymentConfirmationDelay, err = durationEnv("PAYMENT_CONFIRMATION_DELAY", 3*time.Second); err != nil {
		return Config{}, err
	}
	cfg.ShippingLeadDays = 2
	if raw := strings.TrimSpace(os.Getenv("SHIPPING_LEAD_DAYS")); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			return Config{}, fmt.Errorf("SHIPPING_LEAD_DAYS must be a non-negative integer")
		}
		cfg.ShippingLeadDays = days
	}
	return cfg, nil
}

// KafkaEnabled reports whether the envelope consumer should run.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration such as 3s", key)
	}
	return value, nil
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}
