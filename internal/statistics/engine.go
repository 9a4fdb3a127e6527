// Package statistics derives growth analytics from fish growth records.
//
// Every operation is served through the shared result cache; failures are never cached.
package statistics

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/naufalrf4/backend-simonair4-sub000/internal/apperrors"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/cache"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/metrics"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/models"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/repository"

	"go.uber.org/zap"
)

const (
	opGrowthRate         = "growth_rate"
	opTrendAnalysis      = "trend_analysis"
	opStatistics         = "statistics"
	opComparePerformance = "compare_performance"

	MinGrowthRateRecords  = 2
	MinTrendRecords       = 3
	MinStatisticsRecords  = 1
	MinPerformanceRecords = 2

	// slope magnitude below which a trend is stable
	trendThreshold = 0.1
	recentFraction = 0.3

	weightGrowth      = 0.4
	weightConsistency = 0.3
	weightHealth      = 0.2
	weightEfficiency  = 0.1
)

// Engine statistics engine
type Engine struct {
	records repository.GrowthRecordRepository
	cache   *cache.ResultCache
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewEngine creates a statistics engine; ttl <= 0 uses the cache default
func NewEngine(records repository.GrowthRecordRepository, resultCache *cache.ResultCache, ttl time.Duration, logger *zap.Logger) *Engine {
	return &Engine{
		records: records,
		cache:   resultCache,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// GrowthRate per-device length and weight growth per day, sorted by device id.
// An empty device set means every device with records in range.
func (e *Engine) GrowthRate(ctx context.Context, deviceIDs []string, rng models.TimeRange) ([]models.GrowthRateResult, error) {
	key := cache.GrowthRateKey(deviceIDs, rng.From, rng.To)
	return cached(e, opGrowthRate, key, func() ([]models.GrowthRateResult, error) {
		groups, ids, err := e.load(ctx, opGrowthRate, deviceIDs, rng)
		if err != nil {
			return nil, err
		}

		devices := requestedDevices(deviceIDs, ids)
		if len(devices) == 0 {
			return nil, apperrors.InsufficientData(opGrowthRate, MinGrowthRateRecords, 0, rangeContext(rng))
		}

		results := make([]models.GrowthRateResult, 0, len(devices))
		for _, id := range devices {
			recs := groups[id]
			if len(recs) < MinGrowthRateRecords {
				return nil, apperrors.InsufficientData(opGrowthRate, MinGrowthRateRecords, len(recs), deviceContext(id, rng))
			}

			first, last := recs[0], recs[len(recs)-1]
			days := daysBetween(first.MeasurementDate, last.MeasurementDate)
			if days <= 0 {
				return nil, apperrors.CalculationFailure(opGrowthRate, "records span zero days", deviceContext(id, rng))
			}

			res := models.GrowthRateResult{
				DeviceID:    id,
				RecordCount: len(recs),
				FirstDate:   first.MeasurementDate,
				LastDate:    last.MeasurementDate,
				Days:        days,
			}
			if rate, ok := seriesRate(lengthSeries(recs)); ok {
				res.LengthGrowthRate = &rate
			}
			if rate, ok := seriesRate(weightSeries(recs)); ok {
				res.WeightGrowthRate = &rate
			}
			results = append(results, res)
		}
		return results, nil
	})
}

// TrendAnalysis regression of length against record sequence for one device
func (e *Engine) TrendAnalysis(ctx context.Context, deviceID string, rng models.TimeRange) (*models.TrendAnalysis, error) {
	if deviceID == "" {
		return nil, e.fail(opTrendAnalysis, apperrors.InvalidInput(opTrendAnalysis, "device id is required", nil))
	}

	key := cache.TrendKey(deviceID, rng.From, rng.To)
	return cached(e, opTrendAnalysis, key, func() (*models.TrendAnalysis, error) {
		groups, _, err := e.load(ctx, opTrendAnalysis, []string{deviceID}, rng)
		if err != nil {
			return nil, err
		}

		series := values(lengthSeries(groups[deviceID]))
		if len(series) < MinTrendRecords {
			return nil, apperrors.InsufficientData(opTrendAnalysis, MinTrendRecords, len(series), deviceContext(deviceID, rng))
		}

		fit, _ := Fit(series)
		analysis := &models.TrendAnalysis{
			DeviceID:    deviceID,
			Range:       rng,
			RecordCount: len(series),
			Slope:       fit.Slope,
			Intercept:   fit.Intercept,
			Trend:       direction(fit.Slope),
			Correlation: Pearson(series),
			Consistency: FitAccuracy(fit),
		}
		if fit.MeanValue > 0 {
			analysis.Volatility = PopulationStdDev(series) / fit.MeanValue
		}
		analysis.Recent = recentTrend(series, fit.Slope)

		if !finite(analysis.Slope, analysis.Intercept, analysis.Correlation, analysis.Volatility,
			analysis.Consistency, analysis.Recent.Slope) {
			return nil, apperrors.CalculationFailure(opTrendAnalysis, "trend produced a non-finite value", deviceContext(deviceID, rng))
		}
		return analysis, nil
	})
}

// Statistics descriptive summary per device, sorted by device id
func (e *Engine) Statistics(ctx context.Context, deviceIDs []string, rng models.TimeRange) ([]models.GrowthSummary, error) {
	key := cache.StatisticsKey(deviceIDs, rng.From, rng.To)
	return cached(e, opStatistics, key, func() ([]models.GrowthSummary, error) {
		groups, ids, err := e.load(ctx, opStatistics, deviceIDs, rng)
		if err != nil {
			return nil, err
		}

		devices := requestedDevices(deviceIDs, ids)
		if len(devices) == 0 {
			return nil, apperrors.InsufficientData(opStatistics, MinStatisticsRecords, 0, rangeContext(rng))
		}

		summaries := make([]models.GrowthSummary, 0, len(devices))
		for _, id := range devices {
			recs := groups[id]
			if len(recs) < MinStatisticsRecords {
				return nil, apperrors.InsufficientData(opStatistics, MinStatisticsRecords, len(recs), deviceContext(id, rng))
			}
			summaries = append(summaries, summarize(id, recs))
		}
		return summaries, nil
	})
}

func summarize(deviceID string, recs []*models.GrowthRecord) models.GrowthSummary {
	s := models.GrowthSummary{
		DeviceID:              deviceID,
		RecordCount:           len(recs),
		Length:                Summarize(values(lengthSeries(recs))),
		Weight:                Summarize(values(weightSeries(recs))),
		ConditionDistribution: make(map[models.ConditionCategory]int),
	}

	var biomass []float64
	for _, r := range recs {
		if r.Biomass != nil {
			biomass = append(biomass, *r.Biomass)
		}
		if r.Condition != nil {
			s.ConditionDistribution[*r.Condition]++
		}
	}
	if len(biomass) > 0 {
		m := Mean(biomass)
		s.MeanBiomass = &m
	}
	return s
}

// ComparePerformance ranks devices by the composite score, best first; ties by device id.
// Devices with too few records are listed as excluded.
func (e *Engine) ComparePerformance(ctx context.Context, deviceIDs []string, rng models.TimeRange) (*models.PerformanceComparison, error) {
	key := cache.PerformanceKey(deviceIDs, rng.From, rng.To)
	return cached(e, opComparePerformance, key, func() (*models.PerformanceComparison, error) {
		groups, ids, err := e.load(ctx, opComparePerformance, deviceIDs, rng)
		if err != nil {
			return nil, err
		}

		out := &models.PerformanceComparison{Range: rng}
		maxAvailable := 0
		for _, id := range requestedDevices(deviceIDs, ids) {
			recs := groups[id]
			if len(recs) > maxAvailable {
				maxAvailable = len(recs)
			}
			if len(recs) < MinPerformanceRecords {
				out.Excluded = append(out.Excluded, models.ExcludedDevice{
					DeviceID: id,
					Reason:   "insufficient data",
				})
				continue
			}

			perf := performance(id, recs)
			if !finite(perf.Score) {
				return nil, apperrors.CalculationFailure(opComparePerformance, "performance score is not finite", deviceContext(id, rng))
			}
			out.Rankings = append(out.Rankings, perf)
		}

		if len(out.Rankings) == 0 {
			c := rangeContext(rng)
			c["device_ids"] = deviceIDs
			return nil, apperrors.InsufficientData(opComparePerformance, MinPerformanceRecords, maxAvailable, c)
		}

		sort.SliceStable(out.Rankings, func(i, j int) bool {
			a, b := out.Rankings[i], out.Rankings[j]
			if a.Score != b.Score {
				return a.Score > b.Score
			}
			return a.DeviceID < b.DeviceID
		})
		for i := range out.Rankings {
			out.Rankings[i].Rank = i + 1
		}
		return out, nil
	})
}

func performance(deviceID string, recs []*models.GrowthRecord) models.DevicePerformance {
	p := models.DevicePerformance{DeviceID: deviceID}

	lengths := lengthSeries(recs)
	if rate, ok := seriesRate(lengths); ok {
		p.GrowthRate = rate
	}
	if fit, ok := Fit(values(lengths)); ok {
		p.Consistency = FitAccuracy(fit)
	}
	p.HealthScore = healthScore(recs)
	p.Efficiency = efficiency(recs)
	p.Score = weightGrowth*p.GrowthRate +
		weightConsistency*p.Consistency +
		weightHealth*p.HealthScore +
		weightEfficiency*p.Efficiency
	return p
}

// healthScore mean condition score of records carrying a condition
func healthScore(recs []*models.GrowthRecord) float64 {
	var scores []float64
	for _, r := range recs {
		if r.Condition == nil {
			continue
		}
		if s, ok := models.ConditionScores[*r.Condition]; ok {
			scores = append(scores, s)
		}
	}
	return Mean(scores)
}

// efficiency relative drop of the length/weight ratio between the first and
// last complete record, clamped to [0, 1]
func efficiency(recs []*models.GrowthRecord) float64 {
	var ratios []float64
	for _, r := range recs {
		if r.Length != nil && r.Weight != nil && *r.Weight > 0 {
			ratios = append(ratios, *r.Length / *r.Weight)
		}
	}
	if len(ratios) < 2 || ratios[0] <= 0 {
		return 0
	}
	improvement := (ratios[0] - ratios[len(ratios)-1]) / ratios[0]
	return math.Min(1, math.Max(0, improvement))
}

func direction(slope float64) models.TrendDirection {
	switch {
	case slope > trendThreshold:
		return models.TrendIncreasing
	case slope < -trendThreshold:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

// recentTrend fit over the last ceil(30%) points (at least 2) compared with the full slope
func recentTrend(series []float64, fullSlope float64) models.RecentTrend {
	k := int(math.Ceil(float64(len(series)) * recentFraction))
	if k < 2 {
		k = 2
	}
	if k > len(series) {
		k = len(series)
	}

	fit, _ := Fit(series[len(series)-k:])
	rt := models.RecentTrend{
		RecordCount: k,
		Slope:       fit.Slope,
		Trajectory:  models.TrajectoryStable,
	}
	switch {
	case fit.Slope > fullSlope+trendThreshold:
		rt.Trajectory = models.TrajectoryImproving
	case fit.Slope < fullSlope-trendThreshold:
		rt.Trajectory = models.TrajectoryDeclining
	}
	return rt
}

// load reads and groups records; store errors become DatabaseOperationFailure
func (e *Engine) load(ctx context.Context, op string, deviceIDs []string, rng models.TimeRange) (map[string][]*models.GrowthRecord, []string, error) {
	from, to := StoreBounds(rng, e.now())
	records, err := e.records.GrowthRecordsByDeviceAndRange(ctx, deviceIDs, from, to)
	if err != nil {
		c := rangeContext(rng)
		c["device_ids"] = deviceIDs
		return nil, nil, apperrors.DatabaseFailure(op, err, c)
	}
	groups, ids := groupByDevice(records)
	return groups, ids, nil
}

// StoreBounds replaces open range ends: zero From is the epoch, zero To is now
func StoreBounds(rng models.TimeRange, now time.Time) (time.Time, time.Time) {
	from, to := rng.From, rng.To
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	if to.IsZero() {
		to = now
	}
	return from, to
}

// cached get-or-compute with failure logging
func cached[T any](e *Engine, op, key string, compute func() (T, error)) (T, error) {
	v, err := cache.GetOrCompute(e.cache, key, e.ttl, compute)
	if err != nil {
		var zero T
		return zero, e.fail(op, err)
	}
	return v, nil
}

func (e *Engine) fail(op string, err error) error {
	fields := append([]zap.Field{zap.String("op", op)}, apperrors.LogFields(err)...)
	if appErr, ok := apperrors.As(err); ok && appErr.ClientCorrectable() {
		e.logger.Debug("Analytics request rejected", fields...)
	} else {
		e.logger.Error("Analytics computation failed", fields...)
	}
	metrics.RecordEngineError(op, string(apperrors.KindOf(err)))
	return err
}

func rangeContext(rng models.TimeRange) map[string]interface{} {
	return map[string]interface{}{
		"from": rng.From,
		"to":   rng.To,
	}
}

func deviceContext(deviceID string, rng models.TimeRange) map[string]interface{} {
	c := rangeContext(rng)
	c["device_id"] = deviceID
	return c
}
