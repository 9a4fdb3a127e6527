package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naufalrf4/backend-simonair4-sub000/internal/config"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/events"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/models"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/repository"
)

func f64(v float64) *float64 { return &v }

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type memoryStore struct {
	readings     []*models.SensorReading
	growth       []*models.GrowthRecord
	measurements map[int64]*models.ManualMeasurement
}

func (m *memoryStore) ReadingsByDeviceAndRange(_ context.Context, deviceID string, from, to time.Time) ([]*models.SensorReading, error) {
	var out []*models.SensorReading
	for _, r := range m.readings {
		if r.DeviceID == deviceID && !r.Time.Before(from) && !r.Time.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryStore) GrowthRecordsByDeviceAndRange(_ context.Context, deviceIDs []string, from, to time.Time) ([]*models.GrowthRecord, error) {
	want := make(map[string]bool, len(deviceIDs))
	for _, id := range deviceIDs {
		want[id] = true
	}
	var out []*models.GrowthRecord
	for _, g := range m.growth {
		if len(want) > 0 && !want[g.DeviceID] {
			continue
		}
		if g.MeasurementDate.Before(from) || g.MeasurementDate.After(to) {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (m *memoryStore) RecentlyActiveDevices(context.Context, time.Time) ([]string, error) {
	return nil, nil
}

func (m *memoryStore) GetManualMeasurement(_ context.Context, id int64) (*models.ManualMeasurement, error) {
	mm, ok := m.measurements[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return mm, nil
}

func (m *memoryStore) CountAnomalies(context.Context) (*models.IntegrityReport, error) {
	return &models.IntegrityReport{}, nil
}

func (m *memoryStore) DeleteDuplicateGrowthRecords(context.Context) (int64, error) {
	return 0, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func growth(deviceID string, day int, length, weight float64) *models.GrowthRecord {
	g := &models.GrowthRecord{
		ID:              int64(day + 1),
		DeviceID:        deviceID,
		MeasurementDate: day0.AddDate(0, 0, day),
		CreatedAt:       day0.AddDate(0, 0, day),
	}
	g.SetMeasurements(f64(length), f64(weight))
	return g
}

func newTestService(t *testing.T, store *memoryStore, pub events.Publisher) *AnalyticsService {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Scheduler.Enabled = false

	svc, err := NewWithDeps(cfg, store, pub, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func TestCompare_MatchesAndCaches(t *testing.T) {
	measuredAt := day0.Add(12 * time.Hour)
	store := &memoryStore{
		readings: []*models.SensorReading{{
			ID:       7,
			DeviceID: "SMNR-0001",
			Time:     measuredAt.Add(-5 * time.Minute),
			Channels: map[models.Channel]models.ChannelReading{
				models.ChannelTemperature: {Value: 28},
				models.ChannelPH:          {Value: 7.2},
			},
		}},
		measurements: map[int64]*models.ManualMeasurement{
			1: {
				ID:          1,
				DeviceID:    "SMNR-0001",
				MeasuredBy:  "operator",
				MeasuredAt:  measuredAt,
				Temperature: f64(28.1),
				PH:          f64(7.2),
			},
		},
	}
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	report, err := svc.CompareByID(ctx, 1, 0)
	require.NoError(t, err)
	require.NotNil(t, report.SensorReadingID)
	assert.Equal(t, int64(7), *report.SensorReadingID)
	assert.Equal(t, models.AccuracyExcellent, report.Results[models.ChannelPH].AccuracyLevel)
	assert.Equal(t, models.AccuracyUnavailable, report.Results[models.ChannelTDS].AccuracyLevel)

	again, err := svc.CompareByID(ctx, 1, 0)
	require.NoError(t, err)
	assert.Same(t, report, again)
	assert.Equal(t, int64(1), svc.CacheStats().Hits)

	assert.Equal(t, 1, svc.ClearCache())
	assert.Equal(t, 0, svc.CacheStats().Entries)
}

func TestFindClosest_UsesDefaultTolerance(t *testing.T) {
	target := day0.Add(6 * time.Hour)
	store := &memoryStore{readings: []*models.SensorReading{
		{ID: 1, DeviceID: "SMNR-0002", Time: target.Add(-25 * time.Minute)},
		{ID: 2, DeviceID: "SMNR-0002", Time: target.Add(45 * time.Minute)},
	}}
	svc := newTestService(t, store, nil)

	r, err := svc.FindClosest(context.Background(), "SMNR-0002", target, 0)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, int64(1), r.ID)

	r, err = svc.FindClosest(context.Background(), "SMNR-0002", target, 10)
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestGrowthAnalytics_EndToEnd(t *testing.T) {
	store := &memoryStore{}
	for d := 0; d < 6; d++ {
		store.growth = append(store.growth, growth("pond-a", d*7, 10+float64(d), 20+float64(d)*5))
	}
	svc := newTestService(t, store, nil)
	ctx := context.Background()
	rng := models.TimeRange{From: day0, To: day0.AddDate(0, 2, 0)}

	rates, err := svc.GrowthRate(ctx, []string{"pond-a"}, rng)
	require.NoError(t, err)
	require.Len(t, rates, 1)
	require.NotNil(t, rates[0].LengthGrowthRate)
	assert.InDelta(t, 5.0/35.0, *rates[0].LengthGrowthRate, 1e-9)

	trend, err := svc.TrendAnalysis(ctx, "pond-a", rng)
	require.NoError(t, err)
	assert.Equal(t, "pond-a", trend.DeviceID)

	stats, err := svc.Statistics(ctx, nil, rng)
	require.NoError(t, err)
	require.Len(t, stats, 1)

	pred, err := svc.Predict(ctx, "pond-a", 3)
	require.NoError(t, err)
	assert.Len(t, pred.Points, 3)
}

func TestTriggerJob_HealthCheckPublishes(t *testing.T) {
	pub := &capturePublisher{}
	svc := newTestService(t, &memoryStore{}, pub)

	assert.False(t, svc.TriggerJob(context.Background(), models.JobType("unknown")))
	require.True(t, svc.TriggerJob(context.Background(), models.JobHealthCheck))

	require.Eventually(t, func() bool {
		for _, typ := range pub.types() {
			if typ == events.TypeHealthReport {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	require.NotNil(t, svc.LastHealthReport())
	assert.Equal(t, "healthy", svc.LastHealthReport().Status)
	assert.Len(t, svc.Jobs(), 5)
}

func TestStartStop_WithoutConnections(t *testing.T) {
	svc := newTestService(t, &memoryStore{}, nil)
	svc.config.Scheduler.Enabled = true

	require.NoError(t, svc.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, svc.Stop(ctx))
}

func TestRecentEvents_ReplaysHealthReports(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	stream := events.NewStreamPublisher(client, "simonair:analytics:events", 100, zap.NewNop())
	svc := newTestService(t, &memoryStore{}, stream)
	svc.stream = stream

	require.True(t, svc.TriggerJob(context.Background(), models.JobHealthCheck))

	var replayed []events.Event
	require.Eventually(t, func() bool {
		var err error
		replayed, err = svc.RecentEvents(context.Background(), events.TypeHealthReport, 5)
		return err == nil && len(replayed) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "healthy", replayed[0].Payload["status"])

	none, err := newTestService(t, &memoryStore{}, nil).RecentEvents(context.Background(), "", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}
