package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "POSTGRES_DSN", "KAFKA_BROKERS", "PAYMENT_CONFIRMATION_DELAY", "SHIPPING_LEAD_DAYS", "TEMPORAL_DISABLED", "PROCESS_TIMEOUT"} {
		t.Setenv(key, "")
	}
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.PaymentConfirmationDelay)
	assert.Equal(t, 2, cfg.ShippingLeadDays)
	assert.Equal(t, 10*time.Second, cfg.ProcessTimeout)
	assert.False(t, cfg.KafkaEnabled())
	assert.False(t, cfg.TemporalDisabled)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("PAYMENT_CONFIRMATION_DELAY", "250ms")
	t.Setenv("SHIPPING_LEAD_DAYS", "0")
	t.Setenv("TEMPORAL_DISABLED", "yes")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, 250*time.Millisecond, cfg.PaymentConfirmationDelay)
	assert.Zero(t, cfg.ShippingLeadDays)
	assert.True(t, cfg.TemporalDisabled)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("PAYMENT_CONFIRMATION_DELAY", "soon")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("PAYMENT_CONFIRMATION_DELAY", "")
	t.Setenv("SHIPPING_LEAD_DAYS", "-1")
	_, err = LoadConfig()
	require.Error(t, err)
}
