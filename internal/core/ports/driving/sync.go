package driving

import (
	"context"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

// SyncOrchestrator coordinates pull jobs per (tenant, source).
type SyncOrchestrator interface {
	// TriggerSync enqueues a job and returns an acknowledgment immediately.
	// Fails with domain.ErrSyncInProgress when a job for the pair is queued or running.
	TriggerSync(ctx context.Context, tenantID string, source domain.Source) (*domain.SyncAck, error)

	// Run executes a queued job to a terminal state. Called by queue workers.
	Run(ctx context.Context, tenantID, jobID string) (*domain.SyncJob, error)

	// SyncAll triggers a job for every (tenant, source) pair with a connection
	// and returns how many were queued. Pairs already in progress are skipped.
	SyncAll(ctx context.Context) (int, error)

	// Cancel requests cancellation of the running job for the pair.
	// The job stops before its next batch.
	Cancel(tenantID string, source domain.Source) error

	// Status returns the live or most recent job for the pair.
	// A pair that never synced reports an idle job.
	Status(ctx context.Context, tenantID string, source domain.Source) (*domain.SyncJob, error)
}

// Scheduler manages periodic sync triggering.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error
}
