// Package reconciliation compares manual spot checks with the nearest sensor reading.
package reconciliation

import (
	"context"
	"errors"
	"time"

	"github.com/naufalrf4/backend-simonair4-sub000/internal/apperrors"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/assessor"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/cache"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/events"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/matcher"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/metrics"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/models"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/repository"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/validation"

	"go.uber.org/zap"
)

const (
	opCompare     = "compare_measurement"
	opCompareByID = "compare_measurement_by_id"

	DefaultToleranceMinutes = 30
	MaxToleranceMinutes     = 24 * 60
)

// Reconciler matcher -> assessor -> cached report
type Reconciler struct {
	matcher      *matcher.Matcher
	assessor     *assessor.Assessor
	measurements repository.ManualMeasurementRepository
	cache        *cache.ResultCache
	ttl          time.Duration
	publisher    events.Publisher
	logger       *zap.Logger
}

// NewReconciler publisher may be nil
func NewReconciler(
	m *matcher.Matcher,
	a *assessor.Assessor,
	measurements repository.ManualMeasurementRepository,
	resultCache *cache.ResultCache,
	ttl time.Duration,
	publisher events.Publisher,
	logger *zap.Logger,
) *Reconciler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Reconciler{
		matcher:      m,
		assessor:     a,
		measurements: measurements,
		cache:        resultCache,
		ttl:          ttl,
		publisher:    publisher,
		logger:       logger,
	}
}

// Compare builds (or returns the cached) report for measurement.
// toleranceMinutes <= 0 uses DefaultToleranceMinutes.
func (r *Reconciler) Compare(ctx context.Context, measurement *models.ManualMeasurement, toleranceMinutes int) (*models.ComparisonReport, error) {
	if toleranceMinutes <= 0 {
		toleranceMinutes = DefaultToleranceMinutes
	}
	if toleranceMinutes > MaxToleranceMinutes {
		return nil, r.fail(opCompare, apperrors.InvalidInput(opCompare, "tolerance exceeds 24 hours",
			map[string]interface{}{"tolerance_minutes": toleranceMinutes}))
	}
	if err := validation.ValidateManualMeasurement(measurement); err != nil {
		return nil, r.fail(opCompare, apperrors.InvalidInput(opCompare, err.Error(), nil))
	}

	fresh := false
	key := cache.ComparisonKey(measurement, toleranceMinutes)
	report, err := cache.GetOrCompute(r.cache, key, r.ttl, func() (*models.ComparisonReport, error) {
		reading, err := r.matcher.FindClosest(ctx, measurement.DeviceID, measurement.MeasuredAt, toleranceMinutes)
		if err != nil {
			return nil, err
		}
		fresh = true
		return r.assessor.Assess(measurement, reading), nil
	})
	if err != nil {
		return nil, r.fail(opCompare, err)
	}

	if fresh && report.VarianceCount > 0 {
		r.publishVariance(ctx, report)
	}
	return report, nil
}

// CompareByID loads the measurement first
func (r *Reconciler) CompareByID(ctx context.Context, id int64, toleranceMinutes int) (*models.ComparisonReport, error) {
	measurement, err := r.measurements.GetManualMeasurement(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, r.fail(opCompareByID, apperrors.InvalidInput(opCompareByID, "manual measurement not found",
			map[string]interface{}{"measurement_id": id}))
	}
	if err != nil {
		return nil, r.fail(opCompareByID, apperrors.DatabaseFailure(opCompareByID, err,
			map[string]interface{}{"measurement_id": id}))
	}
	return r.Compare(ctx, measurement, toleranceMinutes)
}

func (r *Reconciler) publishVariance(ctx context.Context, report *models.ComparisonReport) {
	flagged := report.FlaggedChannels()
	channels := make([]string, len(flagged))
	differences := make(map[string]float64, len(flagged))
	for i, ch := range flagged {
		channels[i] = string(ch)
		if d := report.Results[ch].Difference; d != nil {
			differences[string(ch)] = *d
		}
	}

	event := events.NewEvent(events.TypeVarianceDetected, report.DeviceID, map[string]interface{}{
		"measurement_id":   report.MeasurementID,
		"measured_at":      report.MeasuredAt,
		"channels":         channels,
		"differences":      differences,
		"overall_accuracy": string(report.OverallAccuracy),
		"accuracy_score":   report.AccuracyScore,
	})
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Warn("Failed to publish variance event",
			zap.String("device_id", report.DeviceID),
			zap.String("correlation_id", event.CorrelationID),
			zap.Error(err),
		)
	}
}

func (r *Reconciler) fail(op string, err error) error {
	fields := append([]zap.Field{zap.String("op", op)}, apperrors.LogFields(err)...)
	if appErr, ok := apperrors.As(err); ok && appErr.ClientCorrectable() {
		r.logger.Debug("Comparison rejected", fields...)
	} else {
		r.logger.Error("Comparison failed", fields...)
	}
	metrics.RecordEngineError(op, string(apperrors.KindOf(err)))
	return err
}
