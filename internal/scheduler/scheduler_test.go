package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naufalrf4/backend-simonair4-sub000/internal/events"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func TestNew_RejectsInvalidSpecs(t *testing.T) {
	run := func(context.Context) error { return nil }

	_, err := New([]JobSpec{{ID: models.JobCacheSweep, Interval: 0, Run: run}}, zap.NewNop())
	assert.Error(t, err)

	_, err = New([]JobSpec{
		{ID: models.JobCacheSweep, Interval: time.Minute, Run: run},
		{ID: models.JobCacheSweep, Interval: time.Minute, Run: run},
	}, zap.NewNop())
	assert.Error(t, err)
}

func TestDispatchDue_RunsAndRearms(t *testing.T) {
	clock := newFakeClock()
	var sweeps, audits int32

	s, err := New([]JobSpec{
		{ID: models.JobCacheSweep, Name: "sweep", Interval: 5 * time.Minute, Run: func(context.Context) error {
			atomic.AddInt32(&sweeps, 1)
			return nil
		}},
		{ID: models.JobDataIntegrityAudit, Name: "audit", Interval: 6 * time.Hour, Run: func(context.Context) error {
			atomic.AddInt32(&audits, 1)
			return nil
		}},
	}, zap.NewNop(), WithClock(clock.Now))
	require.NoError(t, err)

	job, ok := s.Job(models.JobCacheSweep)
	require.True(t, ok)
	assert.Equal(t, models.JobPending, job.Status)
	assert.Equal(t, clock.Now().Add(5*time.Minute), job.NextRun)

	assert.Equal(t, 0, s.dispatchDue(context.Background()))

	clock.Advance(5 * time.Minute)
	assert.Equal(t, 1, s.dispatchDue(context.Background()))
	s.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&sweeps))
	assert.Equal(t, int32(0), atomic.LoadInt32(&audits))

	job, _ = s.Job(models.JobCacheSweep)
	assert.Equal(t, models.JobPending, job.Status)
	assert.Equal(t, models.JobCompleted, job.LastStatus)
	assert.Equal(t, int64(1), job.RunCount)
	require.NotNil(t, job.LastRun)
	assert.Equal(t, clock.Now(), *job.LastRun)
	assert.Equal(t, clock.Now().Add(5*time.Minute), job.NextRun)
}

func TestTrigger_NoOverlap(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	var runs int32

	s, err := New([]JobSpec{
		{ID: models.JobAnalyticsPrecompute, Name: "precompute", Interval: time.Hour, Run: func(context.Context) error {
			atomic.AddInt32(&runs, 1)
			started <- struct{}{}
			<-release
			return nil
		}},
	}, zap.NewNop())
	require.NoError(t, err)

	assert.True(t, s.Trigger(context.Background(), models.JobAnalyticsPrecompute))
	<-started

	job, _ := s.Job(models.JobAnalyticsPrecompute)
	assert.Equal(t, models.JobRunning, job.Status)

	assert.False(t, s.Trigger(context.Background(), models.JobAnalyticsPrecompute))
	assert.Equal(t, 0, s.dispatchDue(context.Background()))

	close(release)
	s.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
	assert.False(t, s.Trigger(context.Background(), models.JobType("unknown")))
}

func TestExecute_FailureIsAbsorbed(t *testing.T) {
	clock := newFakeClock()
	pub := &recordingPublisher{}

	s, err := New([]JobSpec{
		{ID: models.JobDuplicateCleanup, Name: "cleanup", Interval: 24 * time.Hour, Run: func(context.Context) error {
			return errors.New("db down")
		}},
		{ID: models.JobHealthCheck, Name: "health", Interval: 5 * time.Minute, Run: func(context.Context) error {
			panic("boom")
		}},
	}, zap.NewNop(), WithClock(clock.Now), WithPublisher(pub))
	require.NoError(t, err)

	require.True(t, s.Trigger(context.Background(), models.JobDuplicateCleanup))
	require.True(t, s.Trigger(context.Background(), models.JobHealthCheck))
	s.Wait()

	cleanup, _ := s.Job(models.JobDuplicateCleanup)
	assert.Equal(t, models.JobPending, cleanup.Status)
	assert.Equal(t, models.JobFailed, cleanup.LastStatus)
	assert.Contains(t, cleanup.LastError, "db down")
	assert.Equal(t, int64(1), cleanup.FailureCount)
	assert.Equal(t, clock.Now().Add(24*time.Hour), cleanup.NextRun)

	health, _ := s.Job(models.JobHealthCheck)
	assert.Equal(t, models.JobFailed, health.LastStatus)
	assert.Contains(t, health.LastError, "panicked")

	assert.ElementsMatch(t, []events.Type{events.TypeJobFailed, events.TypeJobFailed}, pub.types())
}

func TestStartStop_RunsOnSchedule(t *testing.T) {
	var runs int32
	s, err := New([]JobSpec{
		{ID: models.JobCacheSweep, Name: "sweep", Interval: 10 * time.Millisecond, Run: func(context.Context) error {
			atomic.AddInt32(&runs, 1)
			return nil
		}},
	}, zap.NewNop(), WithMaxIdle(5*time.Millisecond))
	require.NoError(t, err)

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 2 }, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	stopped := atomic.LoadInt32(&runs)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt32(&runs))
}

func TestJobs_SnapshotsSorted(t *testing.T) {
	j := NewJobs(JobDeps{Logger: zap.NewNop()})
	s, err := New(j.Specs(DefaultIntervals()), zap.NewNop())
	require.NoError(t, err)

	jobs := s.Jobs()
	require.Len(t, jobs, 5)
	for i := 1; i < len(jobs); i++ {
		assert.Less(t, string(jobs[i-1].ID), string(jobs[i].ID))
	}
	for _, job := range jobs {
		assert.Equal(t, models.JobPending, job.Status)
		assert.Nil(t, job.LastRun)
	}
}
