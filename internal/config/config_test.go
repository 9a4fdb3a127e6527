package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 1000, cfg.Analytics.CacheCapacity)
	assert.Equal(t, 5*time.Minute, cfg.Analytics.CacheTTL)
	assert.True(t, cfg.Analytics.SingleFlight)
	assert.Equal(t, 30, cfg.Analytics.DefaultToleranceMinutes)
	assert.Equal(t, 6*time.Hour, cfg.Scheduler.IntegrityAuditInterval)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.DuplicateCleanupInterval)
	assert.Equal(t, "simonair:analytics:events", cfg.Events.Stream)
	assert.False(t, cfg.Events.MQTTEnabled)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DB_PORT", "6543")
	t.Setenv("CACHE_CAPACITY", "50")
	t.Setenv("CACHE_TTL", "90")
	t.Setenv("COMPARISON_CACHE_TTL", "2m")
	t.Setenv("CACHE_SINGLE_FLIGHT", "false")
	t.Setenv("JOB_PRECOMPUTE_INTERVAL", "10m")
	t.Setenv("ALERT_WEBHOOK_URL", "https://alerts.example.com/hook")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, 50, cfg.Analytics.CacheCapacity)
	assert.Equal(t, 90*time.Second, cfg.Analytics.CacheTTL)
	assert.Equal(t, 2*time.Minute, cfg.Analytics.ComparisonCacheTTL)
	assert.False(t, cfg.Analytics.SingleFlight)
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.PrecomputeInterval)
	assert.Equal(t, "https://alerts.example.com/hook", cfg.Events.WebhookURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"zero capacity", "CACHE_CAPACITY", "0"},
		{"bad port", "DB_PORT", "70000"},
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"bad webhook", "ALERT_WEBHOOK_URL", "not a url"},
		{"tolerance too large", "MATCH_TOLERANCE_MINUTES", "2000"},
		{"bad horizon", "PRECOMPUTE_HORIZON_DAYS", "400"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestLoad_IgnoresOutOfRangeQoS(t *testing.T) {
	t.Setenv("MQTT_QOS", "3")
	t.Setenv("MQTT_BROKER", "tcp://broker:1883")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
}
