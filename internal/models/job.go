package models

import "time"

// JobStatus background job state
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// JobType fixed registry of recurring jobs
type JobType string

const (
	JobCacheSweep          JobType = "cache_sweep"
	JobDataIntegrityAudit  JobType = "data_integrity_audit"
	JobAnalyticsPrecompute JobType = "analytics_precompute"
	JobDuplicateCleanup    JobType = "stale_duplicate_cleanup"
	JobHealthCheck         JobType = "health_check"
)

// BackgroundJob snapshot of one registered job.
// LastStatus keeps the outcome of the previous run after the job is re-armed.
type BackgroundJob struct {
	ID           JobType       `json:"id"`
	Name         string        `json:"name"`
	Interval     time.Duration `json:"interval"`
	Status       JobStatus     `json:"status"`
	LastStatus   JobStatus     `json:"last_status,omitempty"`
	LastRun      *time.Time    `json:"last_run,omitempty"`
	NextRun      time.Time     `json:"next_run"`
	LastDuration time.Duration `json:"last_duration"`
	LastError    string        `json:"last_error,omitempty"`
	RunCount     int64         `json:"run_count"`
	FailureCount int64         `json:"failure_count"`
}

// IntegrityReport output of the data-integrity audit
type IntegrityReport struct {
	TotalRecords   int64            `json:"total_records"`
	Anomalies      map[string]int64 `json:"anomalies"`
	InvalidRecords int64            `json:"invalid_records"`
	CheckedAt      time.Time        `json:"checked_at"`
}

// InvalidRatio invalid / total, 0 when there are no records
func (r *IntegrityReport) InvalidRatio() float64 {
	if r == nil || r.TotalRecords == 0 {
		return 0
	}
	return float64(r.InvalidRecords) / float64(r.TotalRecords)
}

// HealthReport output of the health-check job
type HealthReport struct {
	Score        int       `json:"score"`
	Status       string    `json:"status"`
	CacheHitRate float64   `json:"cache_hit_rate"`
	MemoryBytes  int64     `json:"memory_bytes"`
	InvalidRatio float64   `json:"invalid_ratio"`
	Issues       []string  `json:"issues,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}
