package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/naufalrf4/backend-simonair4-sub000/internal/metrics"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/models"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// GuardSettings bounds for GuardedStore
type GuardSettings struct {
	Timeout          time.Duration // per call; <= 0 disables the deadline
	FailureThreshold uint32        // consecutive failures that open the breaker
	OpenTimeout      time.Duration // open -> half-open
	HalfOpenRequests uint32
}

// DefaultGuardSettings 5s calls, open after 5 consecutive failures for 30s
func DefaultGuardSettings() GuardSettings {
	return GuardSettings{
		Timeout:          5 * time.Second,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		HalfOpenRequests: 1,
	}
}

// GuardedStore wraps a Store with a per-call timeout and a circuit breaker.
// ErrNotFound does not count as a failure.
type GuardedStore struct {
	inner    Store
	cb       *gobreaker.CircuitBreaker[interface{}]
	settings GuardSettings
	logger   *zap.Logger
}

// NewGuardedStore creates a guarded store around inner
func NewGuardedStore(inner Store, settings GuardSettings, logger *zap.Logger) *GuardedStore {
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = DefaultGuardSettings().FailureThreshold
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = DefaultGuardSettings().OpenTimeout
	}
	if settings.HalfOpenRequests == 0 {
		settings.HalfOpenRequests = 1
	}

	g := &GuardedStore{
		inner:    inner,
		settings: settings,
		logger:   logger,
	}

	metrics.StoreBreakerState.Set(0)
	g.cb = gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "analytics-store",
		MaxRequests: settings.HalfOpenRequests,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Store circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.StoreBreakerState.Set(stateToFloat(to))
		},
	})

	return g
}

// BreakerState current breaker state
func (g *GuardedStore) BreakerState() gobreaker.State {
	return g.cb.State()
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// guard runs fn under the deadline and breaker
func guard[T any](g *GuardedStore, ctx context.Context, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if g.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.settings.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := g.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	metrics.StoreQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			metrics.StoreRequests.WithLabelValues(operation, "rejected").Inc()
			return zero, fmt.Errorf("store unavailable for %s: %w", operation, err)
		case errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
			// drivers report a cancelled statement in their own terms (lib/pq: 57014)
			metrics.StoreRequests.WithLabelValues(operation, "timeout").Inc()
			if errors.Is(err, context.DeadlineExceeded) {
				return zero, fmt.Errorf("%s timed out after %s: %w", operation, g.settings.Timeout, err)
			}
			return zero, fmt.Errorf("%s timed out after %s: %w: %w", operation, g.settings.Timeout, context.DeadlineExceeded, err)
		case errors.Is(err, ErrNotFound):
			metrics.StoreRequests.WithLabelValues(operation, "success").Inc()
			return zero, err
		default:
			metrics.StoreRequests.WithLabelValues(operation, "failure").Inc()
			return zero, err
		}
	}

	metrics.StoreRequests.WithLabelValues(operation, "success").Inc()
	typed, ok := result.(T)
	if !ok && result != nil {
		return zero, fmt.Errorf("%s: unexpected result type %T", operation, result)
	}
	return typed, nil
}

// ReadingsByDeviceAndRange see SensorReadingRepository
func (g *GuardedStore) ReadingsByDeviceAndRange(ctx context.Context, deviceID string, from, to time.Time) ([]*models.SensorReading, error) {
	return guard(g, ctx, "readings_by_device_and_range", func(ctx context.Context) ([]*models.SensorReading, error) {
		return g.inner.ReadingsByDeviceAndRange(ctx, deviceID, from, to)
	})
}

// GrowthRecordsByDeviceAndRange see GrowthRecordRepository
func (g *GuardedStore) GrowthRecordsByDeviceAndRange(ctx context.Context, deviceIDs []string, from, to time.Time) ([]*models.GrowthRecord, error) {
	return guard(g, ctx, "growth_records_by_device_and_range", func(ctx context.Context) ([]*models.GrowthRecord, error) {
		return g.inner.GrowthRecordsByDeviceAndRange(ctx, deviceIDs, from, to)
	})
}

// RecentlyActiveDevices see GrowthRecordRepository
func (g *GuardedStore) RecentlyActiveDevices(ctx context.Context, since time.Time) ([]string, error) {
	return guard(g, ctx, "recently_active_devices", func(ctx context.Context) ([]string, error) {
		return g.inner.RecentlyActiveDevices(ctx, since)
	})
}

// GetManualMeasurement see ManualMeasurementRepository
func (g *GuardedStore) GetManualMeasurement(ctx context.Context, id int64) (*models.ManualMeasurement, error) {
	return guard(g, ctx, "get_manual_measurement", func(ctx context.Context) (*models.ManualMeasurement, error) {
		return g.inner.GetManualMeasurement(ctx, id)
	})
}

// CountAnomalies see MaintenanceRepository
func (g *GuardedStore) CountAnomalies(ctx context.Context) (*models.IntegrityReport, error) {
	return guard(g, ctx, "count_anomalies", func(ctx context.Context) (*models.IntegrityReport, error) {
		return g.inner.CountAnomalies(ctx)
	})
}

// DeleteDuplicateGrowthRecords see MaintenanceRepository
func (g *GuardedStore) DeleteDuplicateGrowthRecords(ctx context.Context) (int64, error) {
	return guard(g, ctx, "delete_duplicate_growth_records", func(ctx context.Context) (int64, error) {
		return g.inner.DeleteDuplicateGrowthRecords(ctx)
	})
}

var _ Store = (*GuardedStore)(nil)
