package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "https://stationapi.veriff.com/v1/sessions", cfg.Provider.SessionsURL)
	assert.Equal(t, "ID_CARD", cfg.Provider.DocumentType)
	assert.Equal(t, 10*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, CorrelationModeHandle, cfg.Correlation.Mode)
	assert.Equal(t, StoreMemory, cfg.Correlation.Store)
	assert.True(t, cfg.Webhook.RequireSignature)
	assert.True(t, cfg.Webhook.Dedupe)
	assert.False(t, cfg.Provider.Configured())
	assert.False(t, cfg.Kafka.Enabled())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("VERIFF_API_KEY", "client-key")
	t.Setenv("VERIFF_SECRET_KEY", "shared")
	t.Setenv("INFOBIP_BASE_URL", "https://api.infobip.test/ ")
	t.Setenv("CORRELATION_MODE", "OPAQUE")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.Provider.Configured())
	assert.Equal(t, "shared", cfg.Webhook.Secret, "webhook secret falls back to provider secret")
	assert.Equal(t, "https://api.infobip.test", cfg.Messaging.BaseURL)
	assert.Equal(t, CorrelationModeOpaque, cfg.Correlation.Mode)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestFromEnvRejectsInvalidSettings(t *testing.T) {
	t.Run("unknown mode", func(t *testing.T) {
		t.Setenv("CORRELATION_MODE", "magic")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "unknown correlation mode")
	})

	t.Run("redis store without url", func(t *testing.T) {
		t.Setenv("CORRELATION_STORE", "redis")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "REDIS_URL")
	})

	t.Run("unparsable duration", func(t *testing.T) {
		t.Setenv("VERIFF_TIMEOUT", "soon")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "parse env:")
	})
}
