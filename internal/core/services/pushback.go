package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/storage"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-hub/internal/logger"
	"github.com/custodia-labs/sercha-hub/internal/normalisers/html"
)

// Ensure PushbackService implements the interface.
var _ driving.PushbackService = (*PushbackService)(nil)

// PushbackService holds automation edits for review. Nothing reaches an
// origin platform except through Commit.
type PushbackService struct {
	store       driven.ResourceStore
	staging     driven.StagingStore
	conns       driven.ConnectionStore
	registry    driven.AdapterRegistry
	enricher    driving.EnrichmentService
	pushTimeout time.Duration
	now         func() time.Time
}

// NewPushbackService creates a push-back service. The enricher is optional.
func NewPushbackService(
	store driven.ResourceStore,
	staging driven.StagingStore,
	conns driven.ConnectionStore,
	registry driven.AdapterRegistry,
	enricher driving.EnrichmentService,
	pushTimeout time.Duration,
) *PushbackService {
	if pushTimeout <= 0 {
		pushTimeout = domain.DefaultSyncSettings().PushTimeout
	}
	return &PushbackService{
		store:       store,
		staging:     staging,
		conns:       conns,
		registry:    registry,
		enricher:    enricher,
		pushTimeout: pushTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Stage converts diff into an origin payload and holds it as pending approval.
func (s *PushbackService) Stage(ctx context.Context, tenantID, resourceID string, diff domain.FieldDiff) (*domain.StagedPush, error) {
	if tenantID == "" || resourceID == "" {
		return nil, fmt.Errorf("stage: %w: tenant and resource id are required", domain.ErrInvalidInput)
	}
	if diff.IsEmpty() {
		verr := &domain.ValidationError{}
		verr.Add("diff", "changes no field")
		return nil, fmt.Errorf("stage: %w", verr)
	}

	res, err := s.store.Get(ctx, tenantID, resourceID)
	if err != nil {
		return nil, fmt.Errorf("stage: load resource: %w", err)
	}
	adapter, err := s.registry.Get(res.Source)
	if err != nil {
		return nil, fmt.Errorf("stage: %w", err)
	}

	writable := adapter.WritableFields()
	verr := &domain.ValidationError{}
	for _, f := range diff.Fields() {
		if !slices.Contains(writable, f) {
			verr.Add(string(f), fmt.Sprintf("not writable for %s", res.Source))
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, fmt.Errorf("stage: %w: %w", domain.ErrNotWritable, err)
	}

	diff = sanitiseDiff(diff)
	updated := applyDiff(res, diff)
	if err := updated.Validate(); err != nil {
		return nil, fmt.Errorf("stage: %w", err)
	}

	payload, err := adapter.ToOrigin(updated, diff)
	if err != nil {
		return nil, fmt.Errorf("stage: build %s payload: %w", res.Source, err)
	}

	now := s.now()
	staged := &domain.StagedPush{
		ID:         storage.NewID(),
		TenantID:   tenantID,
		ResourceID: res.ID,
		Source:     res.Source,
		SourceSite: res.SourceSite,
		SourceID:   res.SourceID,
		Diff:       diff,
		Payload:    payload,
		Status:     domain.StagedPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.staging.Save(ctx, staged); err != nil {
		return nil, fmt.Errorf("stage: save: %w", err)
	}

	logger.Info("Staged %s push %s for resource %s (%v)", res.Source, staged.ID, res.ID, diff.Fields())
	return staged, nil
}

// Get returns a staged payload.
func (s *PushbackService) Get(ctx context.Context, tenantID, stagedID string) (*domain.StagedPush, error) {
	staged, err := s.staging.Get(ctx, tenantID, stagedID)
	if err != nil {
		return nil, fmt.Errorf("staged push %s: %w", stagedID, err)
	}
	return staged, nil
}

// List returns staged payloads, newest first.
func (s *PushbackService) List(ctx context.Context, tenantID string, status domain.StagedStatus) ([]*domain.StagedPush, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("list staged: %w: unknown status %q", domain.ErrInvalidInput, status)
	}
	return s.staging.List(ctx, tenantID, status)
}

// Commit sends a pending or failed payload to the origin platform. On
// failure only this payload is marked failed; the returned error carries
// the cause alongside the updated payload.
func (s *PushbackService) Commit(ctx context.Context, tenantID, stagedID string) (*domain.StagedPush, error) {
	staged, err := s.Get(ctx, tenantID, stagedID)
	if err != nil {
		return nil, err
	}

	// The claim makes concurrent commits push at most once. A claim left
	// sending for two push timeouts belongs to a caller that died.
	now := s.now()
	claimed, err := s.staging.Claim(ctx, tenantID, stagedID, now, now.Add(-2*s.pushTimeout))
	if errors.Is(err, domain.ErrInvalidTransition) {
		if current, gerr := s.Get(ctx, tenantID, stagedID); gerr == nil {
			staged = current
		}
		return staged, fmt.Errorf("commit %s from %s: %w", staged.ID, staged.Status, domain.ErrInvalidTransition)
	}
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", stagedID, err)
	}
	staged = claimed

	pushErr := s.push(ctx, staged)
	now = s.now()
	staged.UpdatedAt = now
	if pushErr != nil {
		staged.Status = domain.StagedFailed
		staged.Error = pushErr.Error()
		if err := s.staging.Save(context.WithoutCancel(ctx), staged); err != nil {
			logger.Warn("saving failed push %s: %v", staged.ID, err)
		}
		logger.Warn("Push %s failed (attempt %d): %v", staged.ID, staged.Attempts, pushErr)
		return staged, fmt.Errorf("commit %s: %w", staged.ID, pushErr)
	}

	staged.Status = domain.StagedSent
	staged.Error = ""
	staged.CommittedAt = &now
	if err := s.staging.Save(context.WithoutCancel(ctx), staged); err != nil {
		return staged, fmt.Errorf("commit %s: record sent: %w", staged.ID, err)
	}
	logger.Info("Pushed %s to %s", staged.ID, staged.Source)

	s.applyToHub(ctx, staged)
	return staged, nil
}

func (s *PushbackService) push(ctx context.Context, staged *domain.StagedPush) error {
	adapter, err := s.registry.Get(staged.Source)
	if err != nil {
		return err
	}
	conn, err := s.connectionFor(ctx, staged)
	if err != nil {
		return err
	}

	pushCtx, cancel := context.WithTimeout(ctx, s.pushTimeout)
	defer cancel()
	err = adapter.Push(pushCtx, conn, staged.SourceID, staged.Payload)
	if err != nil && ctx.Err() == nil && errors.Is(pushCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
		return &domain.TimeoutError{Op: fmt.Sprintf("push %s", staged.Source), Err: err}
	}
	return err
}

func (s *PushbackService) connectionFor(ctx context.Context, staged *domain.StagedPush) (*domain.Connection, error) {
	conns, err := s.conns.List(ctx, staged.TenantID, staged.Source)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	for _, c := range conns {
		if c.SourceSite == staged.SourceSite {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no %s connection for site %q: %w", staged.Source, staged.SourceSite, domain.ErrNotFound)
}

// applyToHub mirrors a sent diff into the store so reads match the origin
// before the next sync. The embedding is kept and re-enrichment queued.
func (s *PushbackService) applyToHub(ctx context.Context, staged *domain.StagedPush) {
	res, err := s.store.Get(ctx, staged.TenantID, staged.ResourceID)
	if err != nil {
		logger.Warn("apply push %s to hub: %v", staged.ID, err)
		return
	}
	updated := applyDiff(res, staged.Diff)
	updated.UpdatedAt = s.now()
	if _, err := s.store.Upsert(ctx, staged.TenantID, []*domain.HubResource{updated}); err != nil {
		logger.Warn("apply push %s to hub: %v", staged.ID, err)
		return
	}
	if s.enricher != nil {
		if err := s.enricher.Enqueue(ctx, staged.TenantID, []string{res.ID}); err != nil {
			logger.Warn("enqueue enrichment after push %s: %v", staged.ID, err)
		}
	}
}

// Reject discards a pending payload.
func (s *PushbackService) Reject(ctx context.Context, tenantID, stagedID string) (*domain.StagedPush, error) {
	staged, err := s.Get(ctx, tenantID, stagedID)
	if err != nil {
		return nil, err
	}
	if staged.Status != domain.StagedPending {
		return staged, fmt.Errorf("reject %s from %s: %w", staged.ID, staged.Status, domain.ErrInvalidTransition)
	}
	staged.Status = domain.StagedRejected
	staged.UpdatedAt = s.now()
	if err := s.staging.Save(ctx, staged); err != nil {
		return nil, fmt.Errorf("reject %s: %w", staged.ID, err)
	}
	return staged, nil
}

// sanitiseDiff strips unsafe markup from an html body edit.
func sanitiseDiff(diff domain.FieldDiff) domain.FieldDiff {
	if diff.BodyHTML != nil {
		clean := html.Sanitize(*diff.BodyHTML)
		diff.BodyHTML = &clean
	}
	return diff
}

// applyDiff returns a copy of res with diff applied and body text reprojected.
func applyDiff(res *domain.HubResource, diff domain.FieldDiff) *domain.HubResource {
	updated := res.Clone()
	diff.ApplyTo(updated)
	if diff.BodyHTML != nil {
		updated.BodyText = html.Text(updated.BodyHTML)
	}
	return updated
}
