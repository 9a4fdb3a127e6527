// Package prediction extrapolates fish length and weight from the regression line of past records.
package prediction

import (
	"context"
	"math"
	"time"

	"github.com/naufalrf4/backend-simonair4-sub000/internal/apperrors"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/cache"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/metrics"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/models"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/repository"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/statistics"

	"go.uber.org/zap"
)

const (
	opPredict = "predict_growth"

	MinRecords   = 5
	MinDaysAhead = 1
	MaxDaysAhead = 365

	confidenceCeiling = 0.9
	confidenceDecay   = 0.6
	confidenceFloor   = 0.3
)

// Engine prediction engine
type Engine struct {
	records repository.GrowthRecordRepository
	cache   *cache.ResultCache
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewEngine creates a prediction engine; ttl <= 0 uses the cache default
func NewEngine(records repository.GrowthRecordRepository, resultCache *cache.ResultCache, ttl time.Duration, logger *zap.Logger) *Engine {
	return &Engine{
		records: records,
		cache:   resultCache,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// Predict one point per day for daysAhead days after the last record
func (e *Engine) Predict(ctx context.Context, deviceID string, daysAhead int) (*models.GrowthPrediction, error) {
	if deviceID == "" {
		return nil, e.fail(apperrors.InvalidInput(opPredict, "device id is required", nil))
	}
	if daysAhead < MinDaysAhead || daysAhead > MaxDaysAhead {
		return nil, e.fail(apperrors.InvalidInput(opPredict, "days ahead must be between 1 and 365",
			map[string]interface{}{"device_id": deviceID, "days_ahead": daysAhead}))
	}

	key := cache.PredictionKey(deviceID, daysAhead)
	prediction, err := cache.GetOrCompute(e.cache, key, e.ttl, func() (*models.GrowthPrediction, error) {
		return e.compute(ctx, deviceID, daysAhead)
	})
	if err != nil {
		return nil, e.fail(err)
	}
	return prediction, nil
}

func (e *Engine) compute(ctx context.Context, deviceID string, daysAhead int) (*models.GrowthPrediction, error) {
	now := e.now()
	from, to := statistics.StoreBounds(models.TimeRange{}, now)
	records, err := e.records.GrowthRecordsByDeviceAndRange(ctx, []string{deviceID}, from, to)
	if err != nil {
		return nil, apperrors.DatabaseFailure(opPredict, err, map[string]interface{}{"device_id": deviceID})
	}

	var (
		lengths []float64
		weights []float64
		last    time.Time
	)
	for _, r := range records {
		if r.Length == nil {
			continue
		}
		lengths = append(lengths, *r.Length)
		if r.Weight != nil {
			weights = append(weights, *r.Weight)
		}
		last = r.MeasurementDate
	}

	if len(lengths) < MinRecords {
		return nil, apperrors.InsufficientData(opPredict, MinRecords, len(lengths),
			map[string]interface{}{"device_id": deviceID})
	}

	lengthFit, _ := statistics.Fit(lengths)
	weightFit, hasWeight := statistics.Fit(weights)
	if hasWeight && len(weights) < MinRecords {
		hasWeight = false
	}

	prediction := &models.GrowthPrediction{
		DeviceID:       deviceID,
		DaysAhead:      daysAhead,
		BasedOnRecords: len(lengths),
		FitAccuracy:    statistics.FitAccuracy(lengthFit),
		Points:         make([]models.PredictionPoint, 0, daysAhead),
		GeneratedAt:    now,
	}

	lastLengthIdx := float64(len(lengths) - 1)
	lastWeightIdx := float64(len(weights) - 1)
	for i := 1; i <= daysAhead; i++ {
		point := models.PredictionPoint{
			Date:            last.AddDate(0, 0, i),
			PredictedLength: math.Max(0, statistics.At(lengthFit, lastLengthIdx+float64(i))),
			Confidence:      Confidence(i, daysAhead),
		}
		if hasWeight {
			w := math.Max(0, statistics.At(weightFit, lastWeightIdx+float64(i)))
			point.PredictedWeight = &w
		}
		if math.IsNaN(point.PredictedLength) || math.IsInf(point.PredictedLength, 0) {
			return nil, apperrors.CalculationFailure(opPredict, "prediction produced a non-finite value",
				map[string]interface{}{"device_id": deviceID, "step": i})
		}
		prediction.Points = append(prediction.Points, point)
	}

	e.logger.Debug("Computed growth prediction",
		zap.String("device_id", deviceID),
		zap.Int("days_ahead", daysAhead),
		zap.Int("based_on_records", len(lengths)),
		zap.Float64("fit_accuracy", prediction.FitAccuracy),
	)
	return prediction, nil
}

// Confidence max(0.3, 0.9 - (step/horizon)*0.6)
func Confidence(step, horizon int) float64 {
	if horizon <= 0 {
		return confidenceFloor
	}
	return math.Max(confidenceFloor, confidenceCeiling-(float64(step)/float64(horizon))*confidenceDecay)
}

func (e *Engine) fail(err error) error {
	fields := apperrors.LogFields(err)
	if appErr, ok := apperrors.As(err); ok && appErr.ClientCorrectable() {
		e.logger.Debug("Prediction rejected", fields...)
	} else {
		e.logger.Error("Prediction failed", fields...)
	}
	metrics.RecordEngineError(opPredict, string(apperrors.KindOf(err)))
	return err
}
