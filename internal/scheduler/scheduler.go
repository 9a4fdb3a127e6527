// Package scheduler runs the fixed set of recurring analytics maintenance jobs.
//
// Each job moves pending -> running -> completed|failed and is re-armed as pending
// at now + interval. A job that is running is never started a second time; jobs of
// different types may overlap.
package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/naufalrf4/backend-simonair4-sub000/internal/apperrors"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/events"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/metrics"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/models"

	"go.uber.org/zap"
)

// JobFunc one run of a job
type JobFunc func(ctx context.Context) error

// JobSpec registration entry
type JobSpec struct {
	ID       models.JobType
	Name     string
	Interval time.Duration
	Run      JobFunc
}

type jobState struct {
	spec     JobSpec
	snapshot models.BackgroundJob
	index    int // heap position, -1 while running
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithPublisher job failures are published as events
func WithPublisher(p events.Publisher) Option {
	return func(s *Scheduler) { s.publisher = p }
}

// WithMaxIdle upper bound on a single loop sleep
func WithMaxIdle(d time.Duration) Option {
	return func(s *Scheduler) { s.maxIdle = d }
}

// Scheduler recompute scheduler
type Scheduler struct {
	mu        sync.Mutex
	jobs      map[models.JobType]*jobState
	queue     jobQueue
	now       func() time.Time
	maxIdle   time.Duration
	publisher events.Publisher
	logger    *zap.Logger

	wake    chan struct{}
	cancel  context.CancelFunc
	loopWG  sync.WaitGroup
	runWG   sync.WaitGroup
	started bool
}

// New registers specs; every job starts pending with its first run one interval from now
func New(specs []JobSpec, logger *zap.Logger, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		jobs:      make(map[models.JobType]*jobState, len(specs)),
		now:       time.Now,
		maxIdle:   time.Minute,
		publisher: events.NopPublisher{},
		logger:    logger,
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}

	now := s.now()
	for _, spec := range specs {
		if spec.Run == nil || spec.Interval <= 0 {
			return nil, fmt.Errorf("invalid job %q: run function and positive interval are required", spec.ID)
		}
		if _, dup := s.jobs[spec.ID]; dup {
			return nil, fmt.Errorf("duplicate job %q", spec.ID)
		}
		st := &jobState{
			spec: spec,
			snapshot: models.BackgroundJob{
				ID:       spec.ID,
				Name:     spec.Name,
				Interval: spec.Interval,
				Status:   models.JobPending,
				NextRun:  now.Add(spec.Interval),
			},
		}
		s.jobs[spec.ID] = st
		heap.Push(&s.queue, st)
	}
	return s, nil
}

// Start launches the dispatch loop
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Info("Starting recompute scheduler", zap.Int("job_count", len(s.jobs)))

	s.loopWG.Add(1)
	go func() {
		defer s.loopWG.Done()
		s.loop(loopCtx)
	}()
}

// Stop ends the loop and waits for in-flight runs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.loopWG.Wait()

	done := make(chan struct{})
	go func() {
		s.runWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Recompute scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to wait for running jobs: %w", ctx.Err())
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	for {
		s.dispatchDue(ctx)

		wait := s.untilNext()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// untilNext time until the earliest pending job, capped by maxIdle
func (s *Scheduler) untilNext() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.queue.peek()
	if next == nil {
		return s.maxIdle
	}
	wait := next.snapshot.NextRun.Sub(s.now())
	if wait < 0 {
		wait = 0
	}
	if wait > s.maxIdle {
		wait = s.maxIdle
	}
	return wait
}

// dispatchDue starts every pending job whose next run has passed and returns how many started
func (s *Scheduler) dispatchDue(ctx context.Context) int {
	s.mu.Lock()
	now := s.now()
	var due []*jobState
	for {
		next := s.queue.peek()
		if next == nil || next.snapshot.NextRun.After(now) {
			break
		}
		heap.Pop(&s.queue)
		s.markRunning(next)
		due = append(due, next)
	}
	s.mu.Unlock()

	for _, st := range due {
		s.launch(ctx, st)
	}
	return len(due)
}

// Trigger starts a job immediately; false when it is unknown or already running
func (s *Scheduler) Trigger(ctx context.Context, id models.JobType) bool {
	s.mu.Lock()
	st, ok := s.jobs[id]
	if !ok || st.snapshot.Status == models.JobRunning {
		s.mu.Unlock()
		if ok {
			s.logger.Debug("Job already running, trigger ignored", zap.String("job", string(id)))
		}
		return false
	}
	s.queue.remove(st)
	s.markRunning(st)
	s.mu.Unlock()

	s.launch(ctx, st)
	return true
}

func (s *Scheduler) markRunning(st *jobState) {
	st.snapshot.Status = models.JobRunning
	st.index = -1
}

func (s *Scheduler) launch(ctx context.Context, st *jobState) {
	s.runWG.Add(1)
	go func() {
		defer s.runWG.Done()
		s.execute(ctx, st)
	}()
}

// execute absorbs every failure, including panics
func (s *Scheduler) execute(ctx context.Context, st *jobState) {
	start := s.now()
	err := s.safeRun(ctx, st)
	end := s.now()
	duration := end.Sub(start)

	s.mu.Lock()
	st.snapshot.LastRun = &start
	st.snapshot.LastDuration = duration
	st.snapshot.RunCount++
	if err != nil {
		st.snapshot.LastStatus = models.JobFailed
		st.snapshot.LastError = err.Error()
		st.snapshot.FailureCount++
	} else {
		st.snapshot.LastStatus = models.JobCompleted
		st.snapshot.LastError = ""
	}
	st.snapshot.Status = models.JobPending
	st.snapshot.NextRun = end.Add(st.spec.Interval)
	failures := st.snapshot.FailureCount
	heap.Push(&s.queue, st)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}

	job := string(st.spec.ID)
	metrics.JobDuration.WithLabelValues(job).Observe(duration.Seconds())

	if err != nil {
		metrics.JobRuns.WithLabelValues(job, string(models.JobFailed)).Inc()
		jobErr := apperrors.BackgroundJobFailure(job, err)
		s.logger.Error("Background job failed",
			append(jobErr.Fields(), zap.Duration("duration", duration))...,
		)
		s.publishFailure(ctx, st.spec, failures, jobErr)
		return
	}

	metrics.JobRuns.WithLabelValues(job, string(models.JobCompleted)).Inc()
	s.logger.Debug("Background job completed",
		zap.String("job", job),
		zap.Duration("duration", duration),
	)
}

func (s *Scheduler) safeRun(ctx context.Context, st *jobState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return st.spec.Run(ctx)
}

func (s *Scheduler) publishFailure(ctx context.Context, spec JobSpec, failures int64, jobErr *apperrors.Error) {
	event := events.NewEvent(events.TypeJobFailed, "", map[string]interface{}{
		"job":           string(spec.ID),
		"name":          spec.Name,
		"error":         jobErr.Error(),
		"failure_count": failures,
	})
	event.CorrelationID = jobErr.CorrelationID
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish job failure event",
			zap.String("job", string(spec.ID)),
			zap.Error(err),
		)
	}
}

// Jobs snapshots sorted by job id
func (s *Scheduler) Jobs() []models.BackgroundJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.BackgroundJob, 0, len(s.jobs))
	for _, st := range s.jobs {
		out = append(out, copySnapshot(st.snapshot))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Job snapshot of one job
func (s *Scheduler) Job(id models.JobType) (models.BackgroundJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.jobs[id]
	if !ok {
		return models.BackgroundJob{}, false
	}
	return copySnapshot(st.snapshot), true
}

// Wait blocks until no job is running
func (s *Scheduler) Wait() {
	s.runWG.Wait()
}

func copySnapshot(b models.BackgroundJob) models.BackgroundJob {
	if b.LastRun != nil {
		t := *b.LastRun
		b.LastRun = &t
	}
	return b
}
