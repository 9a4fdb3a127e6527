package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/naufalrf4/backend-simonair4-sub000/common/config"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/validation"
)

// Config analytics service configuration
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	Analytics struct {
		CacheCapacity      int           `validate:"gt=0"`
		CacheTTL           time.Duration `validate:"gt=0"`
		ComparisonCacheTTL time.Duration `validate:"gt=0"`
		PredictionCacheTTL time.Duration `validate:"gt=0"`
		SingleFlight       bool

		// default matching window when a request does not name one
		DefaultToleranceMinutes int `validate:"gt=0,lte=1440"`

		StoreTimeout       time.Duration `validate:"gt=0"`
		BreakerFailures    uint32        `validate:"gt=0"`
		BreakerOpenTimeout time.Duration `validate:"gt=0"`
	}

	Scheduler struct {
		Enabled                  bool
		CacheSweepInterval       time.Duration `validate:"gt=0"`
		IntegrityAuditInterval   time.Duration `validate:"gt=0"`
		PrecomputeInterval       time.Duration `validate:"gt=0"`
		DuplicateCleanupInterval time.Duration `validate:"gt=0"`
		HealthCheckInterval      time.Duration `validate:"gt=0"`
		PrecomputeHorizonDays    int           `validate:"gte=1,lte=365"`
		ActiveWindow             time.Duration `validate:"gt=0"`
	}

	Events struct {
		RedisEnabled   bool
		Stream         string
		StreamMaxLen   int64 `validate:"gte=0"`
		MQTTEnabled    bool
		TopicPrefix    string
		WebhookURL     string `validate:"omitempty,url"`
		WebhookTimeout time.Duration
	}

	Metrics struct {
		Addr string // empty disables /metrics
	}

	Log struct {
		Level  string `validate:"oneof=debug info warn error"`
		Format string `validate:"oneof=json console"`
	}
}

// Load reads the environment and validates the result
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database = config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "simonair",
		SSLMode:  "disable",
		MaxConns: 10,
		MaxIdle:  5,
	}
	cfg.Database.LoadFromEnv("DB")
	cfg.Database.ConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute)

	cfg.Redis = config.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT = config.MQTTConfig{
		Broker:   "tcp://localhost:1883",
		ClientID: "simonair-analytics",
		QoS:      1,
	}
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Analytics.CacheCapacity = getEnvInt("CACHE_CAPACITY", 1000)
	cfg.Analytics.CacheTTL = getEnvDuration("CACHE_TTL", 5*time.Minute)
	cfg.Analytics.ComparisonCacheTTL = getEnvDuration("COMPARISON_CACHE_TTL", 10*time.Minute)
	cfg.Analytics.PredictionCacheTTL = getEnvDuration("PREDICTION_CACHE_TTL", 30*time.Minute)
	cfg.Analytics.SingleFlight = getEnvBool("CACHE_SINGLE_FLIGHT", true)
	cfg.Analytics.DefaultToleranceMinutes = getEnvInt("MATCH_TOLERANCE_MINUTES", 30)
	cfg.Analytics.StoreTimeout = getEnvDuration("STORE_TIMEOUT", 5*time.Second)
	cfg.Analytics.BreakerFailures = uint32(getEnvInt("STORE_BREAKER_FAILURES", 5))
	cfg.Analytics.BreakerOpenTimeout = getEnvDuration("STORE_BREAKER_OPEN_TIMEOUT", 30*time.Second)

	cfg.Scheduler.Enabled = getEnvBool("SCHEDULER_ENABLED", true)
	cfg.Scheduler.CacheSweepInterval = getEnvDuration("JOB_CACHE_SWEEP_INTERVAL", 5*time.Minute)
	cfg.Scheduler.IntegrityAuditInterval = getEnvDuration("JOB_INTEGRITY_AUDIT_INTERVAL", 6*time.Hour)
	cfg.Scheduler.PrecomputeInterval = getEnvDuration("JOB_PRECOMPUTE_INTERVAL", 30*time.Minute)
	cfg.Scheduler.DuplicateCleanupInterval = getEnvDuration("JOB_DUPLICATE_CLEANUP_INTERVAL", 24*time.Hour)
	cfg.Scheduler.HealthCheckInterval = getEnvDuration("JOB_HEALTH_CHECK_INTERVAL", 5*time.Minute)
	cfg.Scheduler.PrecomputeHorizonDays = getEnvInt("PRECOMPUTE_HORIZON_DAYS", 7)
	cfg.Scheduler.ActiveWindow = getEnvDuration("PRECOMPUTE_ACTIVE_WINDOW", 7*24*time.Hour)

	cfg.Events.RedisEnabled = getEnvBool("EVENTS_REDIS_ENABLED", true)
	cfg.Events.Stream = getEnv("EVENTS_STREAM", "simonair:analytics:events")
	cfg.Events.StreamMaxLen = int64(getEnvInt("EVENTS_STREAM_MAXLEN", 10000))
	cfg.Events.MQTTEnabled = getEnvBool("EVENTS_MQTT_ENABLED", false)
	cfg.Events.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", "simonair/analytics")
	cfg.Events.WebhookURL = getEnv("ALERT_WEBHOOK_URL", "")
	cfg.Events.WebhookTimeout = getEnvDuration("ALERT_WEBHOOK_TIMEOUT", 10*time.Second)

	cfg.Metrics.Addr = getEnv("METRICS_ADDR", "")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate struct tag rules of the whole configuration
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
