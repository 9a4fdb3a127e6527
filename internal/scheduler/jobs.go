package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/naufalrf4/backend-simonair4-sub000/internal/apperrors"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/cache"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/events"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/metrics"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/models"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/repository"

	"go.uber.org/zap"
)

// Intervals per-job periods
type Intervals struct {
	CacheSweep       time.Duration
	IntegrityAudit   time.Duration
	Precompute       time.Duration
	DuplicateCleanup time.Duration
	HealthCheck      time.Duration
}

// DefaultIntervals 5m / 6h / 30m / 24h / 5m
func DefaultIntervals() Intervals {
	return Intervals{
		CacheSweep:       5 * time.Minute,
		IntegrityAudit:   6 * time.Hour,
		Precompute:       30 * time.Minute,
		DuplicateCleanup: 24 * time.Hour,
		HealthCheck:      5 * time.Minute,
	}
}

// HealthThresholds penalties applied by the health check
type HealthThresholds struct {
	MinHitRate      float64 // below this the cache is considered ineffective
	MinLookups      int64   // hit rate is ignored until this many lookups
	MaxMemoryBytes  int64
	MaxInvalidRatio float64
	DegradedBelow   int // score under which health.degraded is published
}

// DefaultHealthThresholds 50% hit rate, 64 MiB, 5% invalid, degraded under 80
func DefaultHealthThresholds() HealthThresholds {
	return HealthThresholds{
		MinHitRate:      0.5,
		MinLookups:      20,
		MaxMemoryBytes:  64 << 20,
		MaxInvalidRatio: 0.05,
		DegradedBelow:   80,
	}
}

// TrendAnalyzer statistics used by precomputation
type TrendAnalyzer interface {
	TrendAnalysis(ctx context.Context, deviceID string, rng models.TimeRange) (*models.TrendAnalysis, error)
	ComparePerformance(ctx context.Context, deviceIDs []string, rng models.TimeRange) (*models.PerformanceComparison, error)
}

// Predictor prediction used by precomputation
type Predictor interface {
	Predict(ctx context.Context, deviceID string, daysAhead int) (*models.GrowthPrediction, error)
}

// JobDeps collaborators of the built-in jobs
type JobDeps struct {
	Cache       *cache.ResultCache
	Growth      repository.GrowthRecordRepository
	Maintenance repository.MaintenanceRepository
	Statistics  TrendAnalyzer
	Prediction  Predictor
	Publisher   events.Publisher
	Logger      *zap.Logger

	Health            HealthThresholds
	ActiveWindow      time.Duration // devices with records created within this window are precomputed
	PrecomputeRange   time.Duration
	PrecomputeHorizon int
}

// Jobs built-in job bodies plus their last reports
type Jobs struct {
	deps JobDeps
	now  func() time.Time

	mu            sync.RWMutex
	lastIntegrity *models.IntegrityReport
	lastHealth    *models.HealthReport
}

// NewJobs fills zero settings with defaults
func NewJobs(deps JobDeps) *Jobs {
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	if deps.Health == (HealthThresholds{}) {
		deps.Health = DefaultHealthThresholds()
	}
	if deps.ActiveWindow <= 0 {
		deps.ActiveWindow = 7 * 24 * time.Hour
	}
	if deps.PrecomputeRange <= 0 {
		deps.PrecomputeRange = 30 * 24 * time.Hour
	}
	if deps.PrecomputeHorizon <= 0 {
		deps.PrecomputeHorizon = 7
	}
	return &Jobs{deps: deps, now: time.Now}
}

// Specs the five registered jobs
func (j *Jobs) Specs(iv Intervals) []JobSpec {
	return []JobSpec{
		{ID: models.JobCacheSweep, Name: "Cache sweep", Interval: iv.CacheSweep, Run: j.CacheSweep},
		{ID: models.JobDataIntegrityAudit, Name: "Data integrity audit", Interval: iv.IntegrityAudit, Run: j.IntegrityAudit},
		{ID: models.JobAnalyticsPrecompute, Name: "Analytics precomputation", Interval: iv.Precompute, Run: j.Precompute},
		{ID: models.JobDuplicateCleanup, Name: "Stale duplicate cleanup", Interval: iv.DuplicateCleanup, Run: j.DuplicateCleanup},
		{ID: models.JobHealthCheck, Name: "Health check", Interval: iv.HealthCheck, Run: j.HealthCheck},
	}
}

// CacheSweep removes expired cache entries
func (j *Jobs) CacheSweep(_ context.Context) error {
	removed := j.deps.Cache.CleanupExpired()
	if removed > 0 {
		j.deps.Logger.Debug("Swept expired cache entries", zap.Int("removed", removed))
	}
	return nil
}

// IntegrityAudit counts anomalous stored rows
func (j *Jobs) IntegrityAudit(ctx context.Context) error {
	report, err := j.deps.Maintenance.CountAnomalies(ctx)
	if err != nil {
		return fmt.Errorf("failed to audit data integrity: %w", err)
	}

	j.mu.Lock()
	j.lastIntegrity = report
	j.mu.Unlock()

	if report.InvalidRecords > 0 {
		j.deps.Logger.Warn("Data integrity anomalies found",
			zap.Int64("total_records", report.TotalRecords),
			zap.Int64("invalid_records", report.InvalidRecords),
			zap.Any("anomalies", report.Anomalies),
		)
	}
	return nil
}

// Precompute warms trend, ranking and prediction entries for recently active devices.
// Devices without enough data are skipped.
func (j *Jobs) Precompute(ctx context.Context) error {
	now := j.now()
	devices, err := j.deps.Growth.RecentlyActiveDevices(ctx, now.Add(-j.deps.ActiveWindow))
	if err != nil {
		return fmt.Errorf("failed to list active devices: %w", err)
	}
	if len(devices) == 0 {
		return nil
	}

	// day-aligned so repeated runs within a day hit the same keys
	to := now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	rng := models.TimeRange{From: to.Add(-j.deps.PrecomputeRange), To: to}

	var (
		warmed, skipped, failed int
		lastErr                 error
	)
	record := func(err error) {
		switch {
		case err == nil:
			warmed++
		case apperrors.IsKind(err, apperrors.KindInsufficientData):
			skipped++
		default:
			failed++
			lastErr = err
		}
	}

	for _, id := range devices {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, err := j.deps.Statistics.TrendAnalysis(ctx, id, rng)
		record(err)
		_, err = j.deps.Prediction.Predict(ctx, id, j.deps.PrecomputeHorizon)
		record(err)
	}
	_, err = j.deps.Statistics.ComparePerformance(ctx, devices, rng)
	record(err)

	j.deps.Logger.Info("Completed analytics precomputation",
		zap.Int("device_count", len(devices)),
		zap.Int("warmed", warmed),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	if failed > 0 {
		return fmt.Errorf("precomputation failed for %d computations: %w", failed, lastErr)
	}
	return nil
}

// DuplicateCleanup removes duplicate growth records and drops growth-derived cache entries
func (j *Jobs) DuplicateCleanup(ctx context.Context) error {
	removed, err := j.deps.Maintenance.DeleteDuplicateGrowthRecords(ctx)
	if err != nil {
		return fmt.Errorf("failed to clean duplicate growth records: %w", err)
	}
	if removed == 0 {
		return nil
	}

	invalidated := 0
	for _, prefix := range cache.GrowthDerivedPrefixes {
		invalidated += j.deps.Cache.InvalidatePrefix(prefix)
	}
	j.deps.Logger.Info("Cleaned duplicate growth records",
		zap.Int64("removed", removed),
		zap.Int("invalidated_cache_entries", invalidated),
	)
	return nil
}

// HealthCheck scores cache effectiveness, memory and data quality
func (j *Jobs) HealthCheck(ctx context.Context) error {
	stats := j.deps.Cache.Stats()
	th := j.deps.Health

	report := &models.HealthReport{
		Score:        100,
		CacheHitRate: stats.HitRate,
		MemoryBytes:  stats.MemoryBytes,
		CheckedAt:    j.now(),
	}

	if stats.Hits+stats.Misses >= th.MinLookups && stats.HitRate < th.MinHitRate {
		report.Score -= 20
		report.Issues = append(report.Issues, fmt.Sprintf("cache hit rate %.2f below %.2f", stats.HitRate, th.MinHitRate))
	}
	if th.MaxMemoryBytes > 0 && stats.MemoryBytes > th.MaxMemoryBytes {
		report.Score -= 20
		report.Issues = append(report.Issues, fmt.Sprintf("cache memory %d bytes above %d", stats.MemoryBytes, th.MaxMemoryBytes))
	}
	if stats.Capacity > 0 && stats.Entries*10 >= stats.Capacity*9 {
		report.Score -= 10
		report.Issues = append(report.Issues, "cache near capacity")
	}

	j.mu.RLock()
	integrity := j.lastIntegrity
	j.mu.RUnlock()
	if integrity != nil {
		report.InvalidRatio = integrity.InvalidRatio()
		if report.InvalidRatio > th.MaxInvalidRatio {
			report.Score -= 30
			report.Issues = append(report.Issues, fmt.Sprintf("invalid record ratio %.3f above %.3f", report.InvalidRatio, th.MaxInvalidRatio))
		}
	}

	switch {
	case report.Score >= th.DegradedBelow:
		report.Status = "healthy"
	case report.Score >= 50:
		report.Status = "degraded"
	default:
		report.Status = "unhealthy"
	}

	j.mu.Lock()
	j.lastHealth = report
	j.mu.Unlock()
	metrics.HealthScore.Set(float64(report.Score))

	payload := map[string]interface{}{
		"score":          report.Score,
		"status":         report.Status,
		"cache_hit_rate": report.CacheHitRate,
		"memory_bytes":   report.MemoryBytes,
		"invalid_ratio":  report.InvalidRatio,
		"issues":         report.Issues,
	}
	if err := j.deps.Publisher.Publish(ctx, events.NewEvent(events.TypeHealthReport, "", payload)); err != nil {
		j.deps.Logger.Warn("Failed to publish health report", zap.Error(err))
	}

	if report.Score < th.DegradedBelow {
		j.deps.Logger.Warn("Analytics health degraded",
			zap.Int("score", report.Score),
			zap.Strings("issues", report.Issues),
		)
		if err := j.deps.Publisher.Publish(ctx, events.NewEvent(events.TypeHealthDegraded, "", payload)); err != nil {
			j.deps.Logger.Warn("Failed to publish health degradation", zap.Error(err))
		}
	}
	return nil
}

// LastIntegrityReport nil before the first audit
func (j *Jobs) LastIntegrityReport() *models.IntegrityReport {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lastIntegrity
}

// LastHealthReport nil before the first health check
func (j *Jobs) LastHealthReport() *models.HealthReport {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lastHealth
}
