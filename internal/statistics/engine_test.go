package statistics

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naufalrf4/backend-simonair4-sub000/internal/apperrors"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/cache"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/models"
)

type fakeGrowth struct {
	records []*models.GrowthRecord
	err     error
	calls   int
}

func (f *fakeGrowth) GrowthRecordsByDeviceAndRange(_ context.Context, deviceIDs []string, from, to time.Time) ([]*models.GrowthRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	want := make(map[string]bool, len(deviceIDs))
	for _, id := range deviceIDs {
		want[id] = true
	}
	var out []*models.GrowthRecord
	for _, r := range f.records {
		if len(want) > 0 && !want[r.DeviceID] {
			continue
		}
		if r.MeasurementDate.Before(from) || r.MeasurementDate.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeGrowth) RecentlyActiveDevices(context.Context, time.Time) ([]string, error) {
	return nil, nil
}

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

var fullRange = models.TimeRange{From: day0.AddDate(0, 0, -1), To: day0.AddDate(1, 0, 0)}

func growth(device string, day int, length, weight float64) *models.GrowthRecord {
	r := &models.GrowthRecord{
		DeviceID:        device,
		MeasurementDate: day0.AddDate(0, 0, day),
		CreatedAt:       day0.AddDate(0, 0, day),
	}
	r.SetMeasurements(&length, &weight)
	return r
}

func newTestEngine(records ...*models.GrowthRecord) (*Engine, *fakeGrowth) {
	repo := &fakeGrowth{records: records}
	return NewEngine(repo, cache.New(100, time.Minute), 0, zap.NewNop()), repo
}

func TestGrowthRate_TenToFifteenOverTenDays(t *testing.T) {
	e, _ := newTestEngine(
		growth("dev-1", 0, 10, 12),
		growth("dev-1", 5, 12, 20),
		growth("dev-1", 10, 15, 42),
	)

	results, err := e.GrowthRate(context.Background(), []string{"dev-1"}, fullRange)
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, 3, res.RecordCount)
	assert.InDelta(t, 10.0, res.Days, 1e-9)
	require.NotNil(t, res.LengthGrowthRate)
	assert.InDelta(t, 0.5, *res.LengthGrowthRate, 1e-9)
	require.NotNil(t, res.WeightGrowthRate)
	assert.InDelta(t, 3.0, *res.WeightGrowthRate, 1e-9)
}

func TestGrowthRate_MinimumRecords(t *testing.T) {
	e, _ := newTestEngine(growth("dev-1", 0, 10, 12))

	_, err := e.GrowthRate(context.Background(), []string{"dev-1"}, fullRange)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindInsufficientData, appErr.Kind)
	assert.Equal(t, 2, appErr.Required)
	assert.Equal(t, 1, appErr.Available)
}

func TestGrowthRate_ZeroDaySpan(t *testing.T) {
	e, _ := newTestEngine(
		growth("dev-1", 0, 10, 12),
		growth("dev-1", 0, 11, 13),
	)

	_, err := e.GrowthRate(context.Background(), []string{"dev-1"}, fullRange)
	assert.True(t, apperrors.IsKind(err, apperrors.KindCalculationFailure))
}

func TestGrowthRate_EmptyDeviceSetMeansAll(t *testing.T) {
	e, _ := newTestEngine(
		growth("dev-b", 0, 10, 12),
		growth("dev-a", 0, 8, 10),
		growth("dev-b", 4, 12, 14),
		growth("dev-a", 4, 9, 11),
	)

	results, err := e.GrowthRate(context.Background(), nil, fullRange)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "dev-a", results[0].DeviceID)
	assert.Equal(t, "dev-b", results[1].DeviceID)
}

func TestGrowthRate_CachedAndErrorsNotCached(t *testing.T) {
	e, repo := newTestEngine(growth("dev-1", 0, 10, 12), growth("dev-1", 2, 11, 13))

	_, err := e.GrowthRate(context.Background(), []string{"dev-1"}, fullRange)
	require.NoError(t, err)
	_, err = e.GrowthRate(context.Background(), []string{"dev-1"}, fullRange)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)

	repo.err = errors.New("db down")
	_, err = e.GrowthRate(context.Background(), []string{"dev-2"}, fullRange)
	assert.True(t, apperrors.IsKind(err, apperrors.KindDatabaseOperation))
	_, err = e.GrowthRate(context.Background(), []string{"dev-2"}, fullRange)
	assert.Error(t, err)
	assert.Equal(t, 3, repo.calls)
}

func TestTrendAnalysis_Increasing(t *testing.T) {
	e, _ := newTestEngine(
		growth("dev-1", 0, 10, 10),
		growth("dev-1", 7, 11, 12),
		growth("dev-1", 14, 12, 14),
		growth("dev-1", 21, 13, 16),
		growth("dev-1", 28, 16, 20),
	)

	trend, err := e.TrendAnalysis(context.Background(), "dev-1", fullRange)
	require.NoError(t, err)
	assert.Equal(t, 5, trend.RecordCount)
	assert.Equal(t, models.TrendIncreasing, trend.Trend)
	assert.InDelta(t, 1.4, trend.Slope, 1e-9)
	assert.Greater(t, trend.Correlation, 0.9)
	assert.Greater(t, trend.Volatility, 0.0)
	assert.Greater(t, trend.Consistency, 0.9)

	// last ceil(1.5)=2 records: slope 3 > 1.4 + 0.1
	assert.Equal(t, 2, trend.Recent.RecordCount)
	assert.InDelta(t, 3.0, trend.Recent.Slope, 1e-9)
	assert.Equal(t, models.TrajectoryImproving, trend.Recent.Trajectory)
}

func TestTrendAnalysis_Stable(t *testing.T) {
	e, _ := newTestEngine(
		growth("dev-1", 0, 10, 10),
		growth("dev-1", 1, 10.05, 10),
		growth("dev-1", 2, 10.1, 10),
	)

	trend, err := e.TrendAnalysis(context.Background(), "dev-1", fullRange)
	require.NoError(t, err)
	assert.Equal(t, models.TrendStable, trend.Trend)
	assert.Equal(t, models.TrajectoryStable, trend.Recent.Trajectory)
}

func TestTrendAnalysis_Decreasing(t *testing.T) {
	// lengths 20,19,16,15,12 at index 0..4: slope -2, intercept 20.4, mean 16.4,
	// residuals -0.4,0.6,-0.4,0.6,-0.4 (mean abs 0.48), population variance 41.2/5
	e, _ := newTestEngine(
		growth("dev-1", 0, 20, 40),
		growth("dev-1", 7, 19, 38),
		growth("dev-1", 14, 16, 35),
		growth("dev-1", 21, 15, 33),
		growth("dev-1", 28, 12, 30),
	)

	trend, err := e.TrendAnalysis(context.Background(), "dev-1", fullRange)
	require.NoError(t, err)
	assert.Equal(t, models.TrendDecreasing, trend.Trend)
	assert.InDelta(t, -2.0, trend.Slope, 1e-9)
	assert.InDelta(t, 20.4, trend.Intercept, 1e-9)
	assert.InDelta(t, -20/math.Sqrt(10*41.2), trend.Correlation, 1e-9)
	assert.InDelta(t, math.Sqrt(41.2/5)/16.4, trend.Volatility, 1e-9)
	assert.InDelta(t, 1-0.48/16.4, trend.Consistency, 1e-9)

	// last 2 records 15 -> 12: slope -3 < -2 - 0.1
	assert.Equal(t, 2, trend.Recent.RecordCount)
	assert.InDelta(t, -3.0, trend.Recent.Slope, 1e-9)
	assert.Equal(t, models.TrajectoryDeclining, trend.Recent.Trajectory)
}

func TestTrendAnalysis_FlatteningReadsAsDeclining(t *testing.T) {
	// 10,12,14,16,16: full slope 1.6, last ceil(30% of 5)=2 records are flat
	e, _ := newTestEngine(
		growth("dev-1", 0, 10, 10),
		growth("dev-1", 7, 12, 12),
		growth("dev-1", 14, 14, 14),
		growth("dev-1", 21, 16, 16),
		growth("dev-1", 28, 16, 16),
	)

	trend, err := e.TrendAnalysis(context.Background(), "dev-1", fullRange)
	require.NoError(t, err)
	assert.Equal(t, models.TrendIncreasing, trend.Trend)
	assert.InDelta(t, 1.6, trend.Slope, 1e-9)
	assert.InDelta(t, 0.0, trend.Recent.Slope, 1e-9)
	assert.Equal(t, models.TrajectoryDeclining, trend.Recent.Trajectory)
}

func TestTrendAnalysis_MinimumRecords(t *testing.T) {
	e, _ := newTestEngine(growth("dev-1", 0, 10, 10), growth("dev-1", 1, 11, 10))

	_, err := e.TrendAnalysis(context.Background(), "dev-1", fullRange)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindInsufficientData, appErr.Kind)
	assert.Equal(t, 3, appErr.Required)
	assert.Equal(t, 2, appErr.Available)
}

func TestStatistics_Summary(t *testing.T) {
	e, _ := newTestEngine(
		growth("dev-1", 0, 10, 10),
		growth("dev-1", 1, 12, 20),
		&models.GrowthRecord{DeviceID: "dev-1", MeasurementDate: day0.AddDate(0, 0, 2)},
	)

	summaries, err := e.Statistics(context.Background(), []string{"dev-1"}, fullRange)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Equal(t, 3, s.RecordCount)
	require.NotNil(t, s.Length)
	assert.Equal(t, 2, s.Length.Count)
	assert.InDelta(t, 11.0, s.Length.Mean, 1e-9)
	require.NotNil(t, s.MeanBiomass)
	assert.InDelta(t, (0.1+0.24)/2, *s.MeanBiomass, 1e-9)
	assert.Equal(t, 2, s.ConditionDistribution[models.ConditionPoor]+
		s.ConditionDistribution[models.ConditionFair]+
		s.ConditionDistribution[models.ConditionGood]+
		s.ConditionDistribution[models.ConditionExcellent])
}

func TestStatistics_MissingDevice(t *testing.T) {
	e, _ := newTestEngine(growth("dev-1", 0, 10, 10))

	_, err := e.Statistics(context.Background(), []string{"dev-1", "dev-2"}, fullRange)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindInsufficientData, appErr.Kind)
	assert.Equal(t, "dev-2", appErr.Context["device_id"])
}

func TestComparePerformance_RankingAndExclusion(t *testing.T) {
	e, _ := newTestEngine(
		growth("dev-a", 0, 10, 10),
		growth("dev-a", 10, 12, 17),
		growth("dev-b", 0, 10, 10),
		growth("dev-b", 10, 15, 34),
		growth("dev-c", 0, 10, 10),
	)

	out, err := e.ComparePerformance(context.Background(), nil, fullRange)
	require.NoError(t, err)
	require.Len(t, out.Rankings, 2)
	assert.Equal(t, "dev-b", out.Rankings[0].DeviceID)
	assert.Equal(t, 1, out.Rankings[0].Rank)
	assert.Equal(t, "dev-a", out.Rankings[1].DeviceID)
	assert.Equal(t, 2, out.Rankings[1].Rank)
	assert.Greater(t, out.Rankings[0].Score, out.Rankings[1].Score)

	for _, r := range out.Rankings {
		assert.GreaterOrEqual(t, r.Efficiency, 0.0)
		assert.LessOrEqual(t, r.Efficiency, 1.0)
		assert.InDelta(t, 1.0, r.Consistency, 1e-9)
	}

	require.Len(t, out.Excluded, 1)
	assert.Equal(t, "dev-c", out.Excluded[0].DeviceID)
}

func TestComparePerformance_TiesByDeviceID(t *testing.T) {
	e, _ := newTestEngine(
		growth("dev-z", 0, 10, 10),
		growth("dev-z", 10, 12, 14),
		growth("dev-y", 0, 10, 10),
		growth("dev-y", 10, 12, 14),
	)

	out, err := e.ComparePerformance(context.Background(), []string{"dev-z", "dev-y"}, fullRange)
	require.NoError(t, err)
	require.Len(t, out.Rankings, 2)
	assert.Equal(t, "dev-y", out.Rankings[0].DeviceID)
	assert.Equal(t, "dev-z", out.Rankings[1].DeviceID)
}

func TestComparePerformance_NoneRanked(t *testing.T) {
	e, _ := newTestEngine(growth("dev-1", 0, 10, 10))

	_, err := e.ComparePerformance(context.Background(), nil, fullRange)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindInsufficientData, appErr.Kind)
	assert.Equal(t, 1, appErr.Available)
}

func TestStoreBounds(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	from, to := StoreBounds(models.TimeRange{}, now)
	assert.Equal(t, time.Unix(0, 0).UTC(), from)
	assert.Equal(t, now, to)
}
