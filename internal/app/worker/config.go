package worker

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"

	"github.com/Apurer/go-entity-processors/internal/platform/temporal/workflows/transitions"
)

// Config carries environment-driven settings for the Temporal worker process.
type Config struct {
	Environment       string
	LogLevel          string
	OTLPEndpoint      string
	PostgresDSN       string
	TemporalAddress   string
	TemporalNamespace string
	TaskQueue         string
}

// LoadConfig reads a .env file when present, then environment variables.
// POSTGRES_DSN is mandatory.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := Config{
		Environment:       envDefault("ENVIRONMENT", "local"),
		LogLevel:          envDefault("LOG_LEVEL", "info"),
		OTLPEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		PostgresDSN:       strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TaskQueue:         envDefault("TEMPORAL_TASK_QUEUE", transitions.DeferredTransitionTaskQueue),
	}
	if cfg.PostgresDSN == "" {
		return Config{}, errors.New("POSTGRES_DSN is required: workers must share the API entity store")
	}
	return cfg, nil
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
