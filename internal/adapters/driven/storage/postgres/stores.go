package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/storage"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

// ==================== Connection Store ====================

// connectionStore implements driven.ConnectionStore. Connections are not
// row-level secured; every query still filters by tenant.
type connectionStore struct {
	store *Store
}

var _ driven.ConnectionStore = (*connectionStore)(nil)

const connectionSelect = `SELECT id::text, tenant_id, source, source_site, params, created_at, updated_at FROM connections`

// Save creates or updates a connection keyed by tenant, source and site.
func (s *connectionStore) Save(ctx context.Context, conn *domain.Connection) error {
	if conn == nil || conn.TenantID == "" || !conn.Source.IsValid() {
		return domain.ErrInvalidInput
	}
	params, err := jsonText(conn.Params, "{}")
	if err != nil {
		return fmt.Errorf("marshalling params: %w", err)
	}
	now := time.Now().UTC()
	if conn.ID == "" {
		conn.ID = storage.NewID()
	}
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now

	err = s.store.pool.QueryRow(ctx, `
		INSERT INTO connections (id, tenant_id, source, source_site, params, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
		ON CONFLICT ON CONSTRAINT uq_connection_key DO UPDATE SET
			params = EXCLUDED.params,
			updated_at = EXCLUDED.updated_at
		RETURNING id::text, created_at
	`, conn.ID, conn.TenantID, string(conn.Source), conn.SourceSite, params,
		conn.CreatedAt, conn.UpdatedAt).Scan(&conn.ID, &conn.CreatedAt)
	if err != nil {
		return storageError("save connection", err)
	}
	conn.CreatedAt = conn.CreatedAt.UTC()
	return nil
}

// List returns a tenant's connections for source.
func (s *connectionStore) List(ctx context.Context, tenantID string, source domain.Source) ([]*domain.Connection, error) {
	return s.query(ctx, connectionSelect+` WHERE tenant_id = $1 AND source = $2 ORDER BY source_site`,
		tenantID, string(source))
}

// ListAll returns every connection.
func (s *connectionStore) ListAll(ctx context.Context) ([]*domain.Connection, error) {
	return s.query(ctx, connectionSelect+` ORDER BY tenant_id, source, source_site`)
}

// Delete removes a connection.
func (s *connectionStore) Delete(ctx context.Context, tenantID, id string) error {
	tag, err := s.store.pool.Exec(ctx,
		`DELETE FROM connections WHERE tenant_id = $1 AND id::text = $2`, tenantID, id)
	if err != nil {
		return storageError("delete connection", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *connectionStore) query(ctx context.Context, query string, args ...any) ([]*domain.Connection, error) {
	rows, err := s.store.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError("query connections", err)
	}
	defer rows.Close()

	conns := make([]*domain.Connection, 0)
	for rows.Next() {
		var c domain.Connection
		var source string
		if err := rows.Scan(&c.ID, &c.TenantID, &source, &c.SourceSite, &c.Params,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, storageError("scan connection", err)
		}
		c.Source = domain.Source(source)
		c.Params = nilIfEmptyMap(c.Params)
		c.CreatedAt = c.CreatedAt.UTC()
		c.UpdatedAt = c.UpdatedAt.UTC()
		conns = append(conns, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("query connections", err)
	}
	return conns, nil
}

// ==================== Sync Job Store ====================

// syncJobStore implements driven.SyncJobStore.
type syncJobStore struct {
	store *Store
}

var _ driven.SyncJobStore = (*syncJobStore)(nil)

const syncJobSelect = `SELECT id, tenant_id, source, state, processed, upserted, skipped, failures,
	cursor, error, error_kind, queued_at, started_at, finished_at FROM sync_jobs`

// Save stores or updates a job.
func (s *syncJobStore) Save(ctx context.Context, job *domain.SyncJob) error {
	if job == nil || job.ID == "" || job.TenantID == "" {
		return domain.ErrInvalidInput
	}
	failures, err := jsonText(job.Failures, "[]")
	if err != nil {
		return fmt.Errorf("marshalling failures: %w", err)
	}
	return s.store.inTenant(ctx, job.TenantID, "save sync job", func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO sync_jobs (id, tenant_id, source, state, processed, upserted, skipped, failures,
				cursor, error, error_kind, queued_at, started_at, finished_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (id) DO UPDATE SET
				state = EXCLUDED.state,
				processed = EXCLUDED.processed,
				upserted = EXCLUDED.upserted,
				skipped = EXCLUDED.skipped,
				failures = EXCLUDED.failures,
				cursor = EXCLUDED.cursor,
				error = EXCLUDED.error,
				error_kind = EXCLUDED.error_kind,
				started_at = EXCLUDED.started_at,
				finished_at = EXCLUDED.finished_at
		`, job.ID, job.TenantID, string(job.Source), string(job.State),
			job.Processed, job.Upserted, job.Skipped, failures,
			job.Cursor, job.Error, string(job.ErrorKind), job.QueuedAt, job.StartedAt, job.FinishedAt)
		return storageError("save sync job", err)
	})
}

// Get retrieves a job by id within a tenant.
func (s *syncJobStore) Get(ctx context.Context, tenantID, id string) (*domain.SyncJob, error) {
	return s.one(ctx, tenantID, syncJobSelect+` WHERE tenant_id = $1 AND id = $2`, tenantID, id)
}

// Latest returns the most recently queued job for tenant and source.
func (s *syncJobStore) Latest(ctx context.Context, tenantID string, source domain.Source) (*domain.SyncJob, error) {
	return s.one(ctx, tenantID, syncJobSelect+`
		WHERE tenant_id = $1 AND source = $2
		ORDER BY queued_at DESC, id DESC
		LIMIT 1`, tenantID, string(source))
}

func (s *syncJobStore) one(ctx context.Context, tenantID, query string, args ...any) (*domain.SyncJob, error) {
	var job domain.SyncJob
	err := s.store.inTenant(ctx, tenantID, "get sync job", func(tx pgx.Tx) error {
		var source, state, errorKind string
		var failures []byte
		if err := tx.QueryRow(ctx, query, args...).Scan(&job.ID, &job.TenantID, &source, &state,
			&job.Processed, &job.Upserted, &job.Skipped, &failures, &job.Cursor, &job.Error,
			&errorKind, &job.QueuedAt, &job.StartedAt, &job.FinishedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return storageError("scan sync job", err)
		}
		job.Source = domain.Source(source)
		job.State = domain.JobState(state)
		job.ErrorKind = domain.ErrorKind(errorKind)
		if err := json.Unmarshal(failures, &job.Failures); err != nil {
			return fmt.Errorf("unmarshalling failures: %w", err)
		}
		job.Failures = nilIfEmpty(job.Failures)
		job.QueuedAt = job.QueuedAt.UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ==================== Staging Store ====================

// stagingStore implements driven.StagingStore.
type stagingStore struct {
	store *Store
}

var _ driven.StagingStore = (*stagingStore)(nil)

const stagedSelect = `SELECT id, tenant_id, resource_id, source, source_site, source_id, diff, payload,
	status, attempts, error, created_at, updated_at, committed_at FROM staged_pushes`

// Save stores or updates a staged payload.
func (s *stagingStore) Save(ctx context.Context, staged *domain.StagedPush) error {
	if staged == nil || staged.ID == "" || staged.TenantID == "" {
		return domain.ErrInvalidInput
	}
	diff, err := jsonText(staged.Diff, "{}")
	if err != nil {
		return fmt.Errorf("marshalling diff: %w", err)
	}
	payload, err := jsonText(staged.Payload, "{}")
	if err != nil {
		return fmt.Errorf("marshalling payload: %w", err)
	}
	return s.store.inTenant(ctx, staged.TenantID, "save staged push", func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO staged_pushes (id, tenant_id, resource_id, source, source_site, source_id,
				diff, payload, status, attempts, error, created_at, updated_at, committed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (id) DO UPDATE SET
				diff = EXCLUDED.diff,
				payload = EXCLUDED.payload,
				status = EXCLUDED.status,
				attempts = EXCLUDED.attempts,
				error = EXCLUDED.error,
				updated_at = EXCLUDED.updated_at,
				committed_at = EXCLUDED.committed_at
		`, staged.ID, staged.TenantID, staged.ResourceID, string(staged.Source), staged.SourceSite,
			staged.SourceID, diff, payload, string(staged.Status), staged.Attempts, staged.Error,
			staged.CreatedAt, staged.UpdatedAt, staged.CommittedAt)
		return storageError("save staged push", err)
	})
}

// Get retrieves a staged payload by id within a tenant.
func (s *stagingStore) Get(ctx context.Context, tenantID, id string) (*domain.StagedPush, error) {
	list, err := s.query(ctx, tenantID, stagedSelect+` WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, domain.ErrNotFound
	}
	return list[0], nil
}

// List returns a tenant's staged payloads, newest first.
func (s *stagingStore) List(ctx context.Context, tenantID string, status domain.StagedStatus) ([]*domain.StagedPush, error) {
	return s.query(ctx, tenantID, stagedSelect+`
		WHERE tenant_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id DESC`, tenantID, string(status))
}

// Claim moves a claimable payload to sending in a single conditional update.
func (s *stagingStore) Claim(ctx context.Context, tenantID, id string, at, staleBefore time.Time) (*domain.StagedPush, error) {
	var claimed bool
	err := s.store.inTenant(ctx, tenantID, "claim staged push", func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE staged_pushes SET status = $1, attempts = attempts + 1, updated_at = $2
			WHERE tenant_id = $3 AND id = $4
				AND (status IN ($5, $6) OR (status = $1 AND updated_at < $7))
		`, string(domain.StagedSending), at, tenantID, id,
			string(domain.StagedPending), string(domain.StagedFailed), staleBefore)
		if err != nil {
			return storageError("claim staged push", err)
		}
		claimed = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !claimed {
		if _, err := s.Get(ctx, tenantID, id); err != nil {
			return nil, err
		}
		return nil, domain.ErrInvalidTransition
	}
	return s.Get(ctx, tenantID, id)
}

func (s *stagingStore) query(ctx context.Context, tenantID, query string, args ...any) ([]*domain.StagedPush, error) {
	result := make([]*domain.StagedPush, 0)
	err := s.store.inTenant(ctx, tenantID, "query staged pushes", func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return storageError("query staged pushes", err)
		}
		defer rows.Close()
		for rows.Next() {
			var p domain.StagedPush
			var source, status string
			var diff, payload []byte
			if err := rows.Scan(&p.ID, &p.TenantID, &p.ResourceID, &source, &p.SourceSite,
				&p.SourceID, &diff, &payload, &status, &p.Attempts, &p.Error,
				&p.CreatedAt, &p.UpdatedAt, &p.CommittedAt); err != nil {
				return storageError("scan staged push", err)
			}
			p.Source = domain.Source(source)
			p.Status = domain.StagedStatus(status)
			if err := json.Unmarshal(diff, &p.Diff); err != nil {
				return fmt.Errorf("unmarshalling diff: %w", err)
			}
			if err := json.Unmarshal(payload, &p.Payload); err != nil {
				return fmt.Errorf("unmarshalling payload: %w", err)
			}
			p.CreatedAt = p.CreatedAt.UTC()
			p.UpdatedAt = p.UpdatedAt.UTC()
			result = append(result, &p)
		}
		return storageError("query staged pushes", rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ==================== Site Integration Store ====================

// siteIntegrationStore implements driven.SiteIntegrationStore.
type siteIntegrationStore struct {
	store *Store
}

var _ driven.SiteIntegrationStore = (*siteIntegrationStore)(nil)

// Get retrieves the integration for a tenant site.
func (s *siteIntegrationStore) Get(ctx context.Context, tenantID, siteID string) (*domain.SiteIntegration, error) {
	var si domain.SiteIntegration
	err := s.store.inTenant(ctx, tenantID, "get site integration", func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			SELECT tenant_id, site_id, ga_measurement_id, gtm_container_id, conversion_event,
				consent_cookie_name, consent_opt_out_value, session_replay_enabled,
				session_replay_project_key, session_replay_host, session_replay_mask_selectors,
				feedback_enabled, feedback_widget_url, feedback_project_key, created_at, updated_at
			FROM site_integrations WHERE tenant_id = $1 AND site_id = $2
		`, tenantID, siteID).Scan(&si.TenantID, &si.SiteID, &si.GAMeasurementID, &si.GTMContainerID,
			&si.ConversionEvent, &si.ConsentCookieName, &si.ConsentOptOutValue, &si.SessionReplayEnabled,
			&si.SessionReplayProjectKey, &si.SessionReplayHost, &si.SessionReplayMaskSelectors,
			&si.FeedbackEnabled, &si.FeedbackWidgetURL, &si.FeedbackProjectKey, &si.CreatedAt, &si.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return storageError("get site integration", err)
	})
	if err != nil {
		return nil, err
	}
	si.SessionReplayMaskSelectors = nilIfEmpty(si.SessionReplayMaskSelectors)
	si.CreatedAt = si.CreatedAt.UTC()
	si.UpdatedAt = si.UpdatedAt.UTC()
	return &si, nil
}

// Save creates or replaces the integration for a tenant site.
func (s *siteIntegrationStore) Save(ctx context.Context, si *domain.SiteIntegration) error {
	if si == nil || si.TenantID == "" || si.SiteID == "" {
		return domain.ErrInvalidInput
	}
	return s.store.inTenant(ctx, si.TenantID, "save site integration", func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO site_integrations (tenant_id, site_id, ga_measurement_id, gtm_container_id,
				conversion_event, consent_cookie_name, consent_opt_out_value, session_replay_enabled,
				session_replay_project_key, session_replay_host, session_replay_mask_selectors,
				feedback_enabled, feedback_widget_url, feedback_project_key, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			ON CONFLICT (tenant_id, site_id) DO UPDATE SET
				ga_measurement_id = EXCLUDED.ga_measurement_id,
				gtm_container_id = EXCLUDED.gtm_container_id,
				conversion_event = EXCLUDED.conversion_event,
				consent_cookie_name = EXCLUDED.consent_cookie_name,
				consent_opt_out_value = EXCLUDED.consent_opt_out_value,
				session_replay_enabled = EXCLUDED.session_replay_enabled,
				session_replay_project_key = EXCLUDED.session_replay_project_key,
				session_replay_host = EXCLUDED.session_replay_host,
				session_replay_mask_selectors = EXCLUDED.session_replay_mask_selectors,
				feedback_enabled = EXCLUDED.feedback_enabled,
				feedback_widget_url = EXCLUDED.feedback_widget_url,
				feedback_project_key = EXCLUDED.feedback_project_key,
				updated_at = EXCLUDED.updated_at
		`, si.TenantID, si.SiteID, si.GAMeasurementID, si.GTMContainerID, si.ConversionEvent,
			si.ConsentCookieName, si.ConsentOptOutValue, si.SessionReplayEnabled,
			si.SessionReplayProjectKey, si.SessionReplayHost, nonNil(si.SessionReplayMaskSelectors),
			si.FeedbackEnabled, si.FeedbackWidgetURL, si.FeedbackProjectKey, si.CreatedAt, si.UpdatedAt)
		return storageError("save site integration", err)
	})
}
