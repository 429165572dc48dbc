package driven

import (
	"context"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

// Adapter translates between one source platform and the canonical schema.
// Each source (wordpress, shopify, drive, manual) implements this interface.
// The rest of the system never branches on source.
type Adapter interface {
	// Source returns the platform this adapter serves.
	Source() domain.Source

	// ValidateConnection checks that conn carries the parameters Pull and Push need.
	ValidateConnection(conn *domain.Connection) error

	// Pull fetches one page of raw records starting at cursor.
	// An empty cursor starts from the beginning. The returned batch carries
	// the cursor for the next page; an empty next cursor means no more pages.
	Pull(ctx context.Context, conn *domain.Connection, cursor string) (*PullBatch, error)

	// Map converts a raw record to a canonical resource.
	// It performs no I/O and is deterministic for identical input, except
	// for an updated_at defaulted to the current time. Records without a
	// usable identifier or type fail with *domain.MappingError.
	Map(raw domain.RawRecord, tenantID, sourceSite string) (*domain.HubResource, error)

	// WritableFields lists the fields Push can write back to the platform.
	WritableFields() []domain.Field

	// ToOrigin builds the platform write payload for the fields diff
	// touches, taking values from res with the diff already applied.
	ToOrigin(res *domain.HubResource, diff domain.FieldDiff) (domain.OriginPayload, error)

	// Push sends a payload built by ToOrigin to the platform.
	Push(ctx context.Context, conn *domain.Connection, sourceID string, payload domain.OriginPayload) error
}

// PullBatch is one page of raw records.
type PullBatch struct {
	Records []domain.RawRecord

	// Cursor resumes the pull after this page. Empty when finished.
	Cursor string
}

// Done reports whether the adapter has no further pages.
func (b *PullBatch) Done() bool {
	return b == nil || b.Cursor == ""
}

// AdapterRegistry selects an adapter by source.
type AdapterRegistry interface {
	// Register adds an adapter, replacing any adapter for the same source.
	Register(adapter Adapter)

	// Get returns the adapter for source or domain.ErrUnsupportedSource.
	Get(source domain.Source) (Adapter, error)

	// Sources lists registered sources.
	Sources() []domain.Source
}
