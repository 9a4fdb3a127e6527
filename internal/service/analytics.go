package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/naufalrf4/backend-simonair4-sub000/common/database"
	commonmqtt "github.com/naufalrf4/backend-simonair4-sub000/common/mqtt"
	rediscommon "github.com/naufalrf4/backend-simonair4-sub000/common/redis"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/assessor"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/cache"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/config"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/events"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/matcher"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/models"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/prediction"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/reconciliation"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/repository"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/scheduler"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/statistics"

	"go.uber.org/zap"
)

// AnalyticsService analytics and measurement-reconciliation engine
type AnalyticsService struct {
	config *config.Config
	logger *zap.Logger

	db          *sql.DB
	redisClient *rediscommon.Client
	mqttClient  *commonmqtt.Client
	stream      *events.StreamPublisher

	store      repository.Store
	cache      *cache.ResultCache
	matcher    *matcher.Matcher
	assessor   *assessor.Assessor
	statistics *statistics.Engine
	prediction *prediction.Engine
	reconciler *reconciliation.Reconciler
	jobs       *scheduler.Jobs
	scheduler  *scheduler.Scheduler
	publisher  events.Publisher
}

// NewAnalyticsService connects PostgreSQL, Redis and MQTT as configured and wires the engines
func NewAnalyticsService(cfg *config.Config, logger *zap.Logger) (*AnalyticsService, error) {
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := repository.NewGuardedStore(
		repository.NewPostgresStore(db, logger),
		repository.GuardSettings{
			Timeout:          cfg.Analytics.StoreTimeout,
			FailureThreshold: cfg.Analytics.BreakerFailures,
			OpenTimeout:      cfg.Analytics.BreakerOpenTimeout,
		},
		logger,
	)

	var (
		publishers  []events.Publisher
		stream      *events.StreamPublisher
		redisClient *rediscommon.Client
		mqttClient  *commonmqtt.Client
	)

	if cfg.Events.RedisEnabled {
		redisClient = rediscommon.NewRedisClient(&cfg.Redis)
		if err := rediscommon.Ping(context.Background(), redisClient); err != nil {
			database.Close(db)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		stream = events.NewStreamPublisher(redisClient, cfg.Events.Stream, cfg.Events.StreamMaxLen, logger)
		publishers = append(publishers, stream)
	}

	if cfg.Events.MQTTEnabled {
		mqttClient, err = commonmqtt.NewClient(&cfg.MQTT, logger)
		if err != nil {
			if redisClient != nil {
				rediscommon.Close(redisClient)
			}
			database.Close(db)
			return nil, fmt.Errorf("failed to connect to mqtt: %w", err)
		}
		publishers = append(publishers, events.NewMQTTPublisher(mqttClient, cfg.Events.TopicPrefix, logger))
	}

	if cfg.Events.WebhookURL != "" {
		publishers = append(publishers, events.NewWebhookPublisher(cfg.Events.WebhookURL, cfg.Events.WebhookTimeout, nil, logger))
	}

	svc, err := NewWithDeps(cfg, store, events.NewMultiPublisher(logger, publishers...), logger)
	if err != nil {
		return nil, err
	}
	svc.db = db
	svc.redisClient = redisClient
	svc.mqttClient = mqttClient
	svc.stream = stream
	return svc, nil
}

// NewWithDeps wires the engines over an existing store and publisher
func NewWithDeps(cfg *config.Config, store repository.Store, publisher events.Publisher, logger *zap.Logger) (*AnalyticsService, error) {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	resultCache := cache.New(
		cfg.Analytics.CacheCapacity,
		cfg.Analytics.CacheTTL,
		cache.WithSingleFlight(cfg.Analytics.SingleFlight),
		cache.WithLogger(logger),
	)

	m := matcher.NewMatcher(store, logger)
	a := assessor.NewAssessor(nil)
	stats := statistics.NewEngine(store, resultCache, cfg.Analytics.CacheTTL, logger)
	pred := prediction.NewEngine(store, resultCache, cfg.Analytics.PredictionCacheTTL, logger)
	rec := reconciliation.NewReconciler(m, a, store, resultCache, cfg.Analytics.ComparisonCacheTTL, publisher, logger)

	jobs := scheduler.NewJobs(scheduler.JobDeps{
		Cache:             resultCache,
		Growth:            store,
		Maintenance:       store,
		Statistics:        stats,
		Prediction:        pred,
		Publisher:         publisher,
		Logger:            logger,
		ActiveWindow:      cfg.Scheduler.ActiveWindow,
		PrecomputeHorizon: cfg.Scheduler.PrecomputeHorizonDays,
	})

	sched, err := scheduler.New(jobs.Specs(scheduler.Intervals{
		CacheSweep:       cfg.Scheduler.CacheSweepInterval,
		IntegrityAudit:   cfg.Scheduler.IntegrityAuditInterval,
		Precompute:       cfg.Scheduler.PrecomputeInterval,
		DuplicateCleanup: cfg.Scheduler.DuplicateCleanupInterval,
		HealthCheck:      cfg.Scheduler.HealthCheckInterval,
	}), logger, scheduler.WithPublisher(publisher))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &AnalyticsService{
		config:     cfg,
		logger:     logger,
		store:      store,
		cache:      resultCache,
		matcher:    m,
		assessor:   a,
		statistics: stats,
		prediction: pred,
		reconciler: rec,
		jobs:       jobs,
		scheduler:  sched,
		publisher:  publisher,
	}, nil
}

// Start launches the background scheduler when enabled; it does not block
func (s *AnalyticsService) Start(ctx context.Context) error {
	s.logger.Info("Starting analytics service",
		zap.Bool("scheduler_enabled", s.config.Scheduler.Enabled),
		zap.Int("cache_capacity", s.config.Analytics.CacheCapacity),
		zap.Bool("single_flight", s.config.Analytics.SingleFlight),
	)
	if s.config.Scheduler.Enabled {
		s.scheduler.Start(ctx)
	}
	return nil
}

// Stop waits for running jobs, then releases connections
func (s *AnalyticsService) Stop(ctx context.Context) error {
	var errs []error
	if err := s.scheduler.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if s.redisClient != nil {
		if err := rediscommon.Close(s.redisClient); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	if err := database.Close(s.db); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}
	return errors.Join(errs...)
}

// FindClosest nearest sensor reading within the tolerance window
func (s *AnalyticsService) FindClosest(ctx context.Context, deviceID string, target time.Time, toleranceMinutes int) (*models.SensorReading, error) {
	return s.matcher.FindClosest(ctx, deviceID, target, s.tolerance(toleranceMinutes))
}

// Assess grades manual against an already matched reading (nil when none matched)
func (s *AnalyticsService) Assess(manual *models.ManualMeasurement, sensor *models.SensorReading) *models.ComparisonReport {
	return s.assessor.Assess(manual, sensor)
}

// Compare reconciles a manual measurement; toleranceMinutes <= 0 uses the configured default
func (s *AnalyticsService) Compare(ctx context.Context, measurement *models.ManualMeasurement, toleranceMinutes int) (*models.ComparisonReport, error) {
	return s.reconciler.Compare(ctx, measurement, s.tolerance(toleranceMinutes))
}

// CompareByID reconciles a stored manual measurement
func (s *AnalyticsService) CompareByID(ctx context.Context, id int64, toleranceMinutes int) (*models.ComparisonReport, error) {
	return s.reconciler.CompareByID(ctx, id, s.tolerance(toleranceMinutes))
}

// GrowthRate see statistics.Engine
func (s *AnalyticsService) GrowthRate(ctx context.Context, deviceIDs []string, rng models.TimeRange) ([]models.GrowthRateResult, error) {
	return s.statistics.GrowthRate(ctx, deviceIDs, rng)
}

// TrendAnalysis see statistics.Engine
func (s *AnalyticsService) TrendAnalysis(ctx context.Context, deviceID string, rng models.TimeRange) (*models.TrendAnalysis, error) {
	return s.statistics.TrendAnalysis(ctx, deviceID, rng)
}

// Statistics see statistics.Engine
func (s *AnalyticsService) Statistics(ctx context.Context, deviceIDs []string, rng models.TimeRange) ([]models.GrowthSummary, error) {
	return s.statistics.Statistics(ctx, deviceIDs, rng)
}

// ComparePerformance see statistics.Engine
func (s *AnalyticsService) ComparePerformance(ctx context.Context, deviceIDs []string, rng models.TimeRange) (*models.PerformanceComparison, error) {
	return s.statistics.ComparePerformance(ctx, deviceIDs, rng)
}

// Predict see prediction.Engine
func (s *AnalyticsService) Predict(ctx context.Context, deviceID string, daysAhead int) (*models.GrowthPrediction, error) {
	return s.prediction.Predict(ctx, deviceID, daysAhead)
}

// CacheStats result cache counters
func (s *AnalyticsService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// ClearCache drops every cached result
func (s *AnalyticsService) ClearCache() int {
	return s.cache.Clear()
}

// Jobs background job snapshots
func (s *AnalyticsService) Jobs() []models.BackgroundJob {
	return s.scheduler.Jobs()
}

// TriggerJob runs a job now; false when unknown or already running
func (s *AnalyticsService) TriggerJob(ctx context.Context, id models.JobType) bool {
	return s.scheduler.Trigger(ctx, id)
}

// LastHealthReport nil before the first health check
func (s *AnalyticsService) LastHealthReport() *models.HealthReport {
	return s.jobs.LastHealthReport()
}

// LastIntegrityReport nil before the first audit
func (s *AnalyticsService) LastIntegrityReport() *models.IntegrityReport {
	return s.jobs.LastIntegrityReport()
}

// RecentEvents replays published events from the Redis stream; empty when the stream sink is disabled
func (s *AnalyticsService) RecentEvents(ctx context.Context, eventType events.Type, limit int) ([]events.Event, error) {
	if s.stream == nil {
		return nil, nil
	}
	return s.stream.Recent(ctx, eventType, limit)
}

func (s *AnalyticsService) tolerance(minutes int) int {
	if minutes <= 0 {
		return s.config.Analytics.DefaultToleranceMinutes
	}
	return minutes
}
