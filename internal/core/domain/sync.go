package domain

import "time"

// DefaultBatchSize bounds the number of resources per store upsert.
const DefaultBatchSize = 100

// JobState is the lifecycle state of a sync job.
type JobState string

// Sync job states. Completed and Failed are terminal.
const (
	JobIdle      JobState = "idle"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// IsTerminal reports whether no further transition is possible.
func (s JobState) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// MappingFailure is one skipped raw record.
type MappingFailure struct {
	SourceSite string `json:"source_site,omitempty"`
	RecordID   string `json:"record_id,omitempty"`
	Reason     string `json:"reason"`
}

// SyncJob is one pull job for a (tenant, source) pair and its summary.
type SyncJob struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenant_id"`
	Source   Source   `json:"source"`
	State    JobState `json:"state"`

	// Processed counts raw records seen.
	Processed int `json:"processed"`

	// Upserted counts resources committed to the store.
	Upserted int `json:"upserted"`

	// Skipped counts records dropped for mapping failures.
	Skipped int `json:"skipped"`

	// Failures holds the first N mapping failures.
	Failures []MappingFailure `json:"failures,omitempty"`

	// Cursor is the last cursor whose batch was committed.
	Cursor string `json:"cursor,omitempty"`

	Error     string    `json:"error,omitempty"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`

	QueuedAt   time.Time  `json:"queued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Start moves an idle job to running.
func (j *SyncJob) Start(now time.Time) error {
	if j.State != JobIdle {
		return ErrInvalidTransition
	}
	j.State = JobRunning
	j.StartedAt = &now
	return nil
}

// Complete moves a running job to completed.
func (j *SyncJob) Complete(now time.Time) error {
	if j.State != JobRunning {
		return ErrInvalidTransition
	}
	j.State = JobCompleted
	j.FinishedAt = &now
	return nil
}

// Fail moves an idle or running job to failed, recording err.
func (j *SyncJob) Fail(now time.Time, err error) error {
	if j.State.IsTerminal() {
		return ErrInvalidTransition
	}
	j.State = JobFailed
	j.FinishedAt = &now
	if err != nil {
		j.Error = err.Error()
		j.ErrorKind = KindOf(err)
	}
	return nil
}

// RecordFailure counts a skipped record, keeping at most limit details.
func (j *SyncJob) RecordFailure(f MappingFailure, limit int) {
	j.Skipped++
	if len(j.Failures) < limit {
		j.Failures = append(j.Failures, f)
	}
}

// SyncAck acknowledges an enqueued sync job.
type SyncAck struct {
	JobID    string    `json:"job_id"`
	TenantID string    `json:"tenant_id"`
	Source   Source    `json:"source"`
	Accepted bool      `json:"accepted"`
	QueuedAt time.Time `json:"queued_at"`
}

// EnrichmentResult summarises one enrichment run.
type EnrichmentResult struct {
	// Embedded counts vectors from the configured provider.
	Embedded int `json:"embedded"`

	// Fallback counts vectors from the deterministic provider.
	Fallback int `json:"fallback"`

	// Pending counts resources left without a fresh embedding.
	Pending int `json:"pending"`

	// Missing counts ids not found in the tenant.
	Missing int `json:"missing"`
}
