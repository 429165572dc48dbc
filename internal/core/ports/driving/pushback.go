package driving

import (
	"context"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

// PushbackService stages automation edits for approval and commits them
// to the origin platform on explicit request only.
type PushbackService interface {
	// Stage converts diff into an origin payload held as pending approval.
	Stage(ctx context.Context, tenantID, resourceID string, diff domain.FieldDiff) (*domain.StagedPush, error)

	// Get returns a staged payload or domain.ErrNotFound.
	Get(ctx context.Context, tenantID, stagedID string) (*domain.StagedPush, error)

	// List returns staged payloads. An empty status lists all.
	List(ctx context.Context, tenantID string, status domain.StagedStatus) ([]*domain.StagedPush, error)

	// Commit sends a staged payload to the origin platform.
	// A failed push marks only this payload failed.
	Commit(ctx context.Context, tenantID, stagedID string) (*domain.StagedPush, error)

	// Reject discards a pending payload without sending it.
	Reject(ctx context.Context, tenantID, stagedID string) (*domain.StagedPush, error)
}
