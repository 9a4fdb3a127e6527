package prediction

import (
	"context"
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
	calls   int
}

func (f *fakeGrowth) GrowthRecordsByDeviceAndRange(_ context.Context, deviceIDs []string, _, _ time.Time) ([]*models.GrowthRecord, error) {
	f.calls++
	var out []*models.GrowthRecord
	for _, r := range f.records {
		for _, id := range deviceIDs {
			if r.DeviceID == id {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (f *fakeGrowth) RecentlyActiveDevices(context.Context, time.Time) ([]string, error) {
	return nil, nil
}

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func records(device string, lengths ...float64) []*models.GrowthRecord {
	out := make([]*models.GrowthRecord, len(lengths))
	for i, l := range lengths {
		length := l
		weight := l * 2
		r := &models.GrowthRecord{DeviceID: device, MeasurementDate: day0.AddDate(0, 0, 7*i)}
		r.SetMeasurements(&length, &weight)
		out[i] = r
	}
	return out
}

func newTestEngine(recs []*models.GrowthRecord) (*Engine, *fakeGrowth) {
	repo := &fakeGrowth{records: recs}
	return NewEngine(repo, cache.New(100, time.Minute), 0, zap.NewNop()), repo
}

func TestPredict_LinearExtrapolation(t *testing.T) {
	e, repo := newTestEngine(records("dev-1", 10, 11, 12, 13, 14))

	p, err := e.Predict(context.Background(), "dev-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 5, p.BasedOnRecords)
	assert.InDelta(t, 1.0, p.FitAccuracy, 1e-9)
	require.Len(t, p.Points, 3)

	assert.InDelta(t, 15.0, p.Points[0].PredictedLength, 1e-9)
	assert.InDelta(t, 17.0, p.Points[2].PredictedLength, 1e-9)
	require.NotNil(t, p.Points[0].PredictedWeight)
	assert.InDelta(t, 30.0, *p.Points[0].PredictedWeight, 1e-9)
	assert.Equal(t, day0.AddDate(0, 0, 29), p.Points[0].Date)

	assert.InDelta(t, 0.7, p.Points[0].Confidence, 1e-9)
	assert.InDelta(t, 0.3, p.Points[2].Confidence, 1e-9)

	_, err = e.Predict(context.Background(), "dev-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)
}

func TestPredict_ClampsNegative(t *testing.T) {
	e, _ := newTestEngine(records("dev-1", 8, 6, 4, 2, 1))

	p, err := e.Predict(context.Background(), "dev-1", 10)
	require.NoError(t, err)
	for _, pt := range p.Points {
		assert.GreaterOrEqual(t, pt.PredictedLength, 0.0)
		assert.GreaterOrEqual(t, *pt.PredictedWeight, 0.0)
	}
	assert.Equal(t, 0.0, p.Points[9].PredictedLength)
}

func TestPredict_MinimumRecords(t *testing.T) {
	e, _ := newTestEngine(records("dev-1", 10, 11, 12, 13))

	_, err := e.Predict(context.Background(), "dev-1", 7)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindInsufficientData, appErr.Kind)
	assert.Equal(t, 5, appErr.Required)
	assert.Equal(t, 4, appErr.Available)
}

func TestPredict_HorizonBounds(t *testing.T) {
	e, repo := newTestEngine(records("dev-1", 10, 11, 12, 13, 14))

	for _, days := range []int{0, -1, 366} {
		_, err := e.Predict(context.Background(), "dev-1", days)
		assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidInput), "days %d", days)
	}
	assert.Equal(t, 0, repo.calls)

	p, err := e.Predict(context.Background(), "dev-1", 365)
	require.NoError(t, err)
	assert.Len(t, p.Points, 365)
}

func TestConfidence(t *testing.T) {
	assert.InDelta(t, 0.84, Confidence(1, 10), 1e-9)
	assert.InDelta(t, 0.6, Confidence(5, 10), 1e-9)
	assert.InDelta(t, 0.3, Confidence(10, 10), 1e-9)
	assert.InDelta(t, 0.9-0.6/365, Confidence(1, 365), 1e-9)
}
