package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/storage"
	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

// DatabaseFile is the database file name inside the data directory.
const DatabaseFile = "hub.db"

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store is a unified SQLite-based storage that provides access to
// all store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.sercha-hub/data/hub.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sercha-hub", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// WAL lets readers proceed while a sync batch is being written.
	// Immediate transactions take the write lock up front so concurrent
	// upserts wait on the busy timeout instead of failing on upgrade.
	db, err := sql.Open("sqlite", dbPath+
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ResourceStore returns a ResourceStore backed by this store.
// Closing it is a no-op; the Store owns the connection.
func (s *Store) ResourceStore() driven.ResourceStore {
	return &resourceStore{store: s}
}

// ConnectionStore returns a ConnectionStore backed by this store.
func (s *Store) ConnectionStore() driven.ConnectionStore {
	return &connectionStore{store: s}
}

// SyncJobStore returns a SyncJobStore backed by this store.
func (s *Store) SyncJobStore() driven.SyncJobStore {
	return &syncJobStore{store: s}
}

// StagingStore returns a StagingStore backed by this store.
func (s *Store) StagingStore() driven.StagingStore {
	return &stagingStore{store: s}
}

// SiteIntegrationStore returns a SiteIntegrationStore backed by this store.
func (s *Store) SiteIntegrationStore() driven.SiteIntegrationStore {
	return &siteIntegrationStore{store: s}
}

// SchedulerStore returns a SchedulerStore backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Connection Store ====================

// connectionStore implements driven.ConnectionStore.
type connectionStore struct {
	store *Store
}

var _ driven.ConnectionStore = (*connectionStore)(nil)

const connectionColumns = `id, tenant_id, source, source_site, params, created_at, updated_at`

// Save creates or updates a connection keyed by tenant, source and site.
func (s *connectionStore) Save(ctx context.Context, conn *domain.Connection) error {
	if conn == nil || conn.TenantID == "" || !conn.Source.IsValid() {
		return domain.ErrInvalidInput
	}
	params, err := marshalJSON(conn.Params, "{}")
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

	row := s.store.db.QueryRowContext(ctx, `
		INSERT INTO connections (`+connectionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, source, source_site) DO UPDATE SET
			params = excluded.params,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`, conn.ID, conn.TenantID, string(conn.Source), conn.SourceSite, params,
		formatTime(conn.CreatedAt), formatTime(conn.UpdatedAt))

	var createdAt string
	if err := row.Scan(&conn.ID, &createdAt); err != nil {
		return storageError("save connection", err)
	}
	conn.CreatedAt = parseTime(createdAt)
	return nil
}

// List returns a tenant's connections for source.
func (s *connectionStore) List(ctx context.Context, tenantID string, source domain.Source) ([]*domain.Connection, error) {
	return s.query(ctx, `
		SELECT `+connectionColumns+` FROM connections
		WHERE tenant_id = ? AND source = ?
		ORDER BY source_site
	`, tenantID, string(source))
}

// ListAll returns every connection.
func (s *connectionStore) ListAll(ctx context.Context) ([]*domain.Connection, error) {
	return s.query(ctx, `
		SELECT `+connectionColumns+` FROM connections
		ORDER BY tenant_id, source, source_site
	`)
}

// Delete removes a connection.
func (s *connectionStore) Delete(ctx context.Context, tenantID, id string) error {
	res, err := s.store.db.ExecContext(ctx,
		"DELETE FROM connections WHERE tenant_id = ? AND id = ?", tenantID, id)
	if err != nil {
		return storageError("delete connection", err)
	}
	return requireAffected(res)
}

func (s *connectionStore) query(ctx context.Context, query string, args ...any) ([]*domain.Connection, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError("query connections", err)
	}
	defer rows.Close()

	conns := make([]*domain.Connection, 0)
	for rows.Next() {
		var c domain.Connection
		var source, params, createdAt, updatedAt string
		if err := rows.Scan(&c.ID, &c.TenantID, &source, &c.SourceSite,
			&params, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning connection: %w", err)
		}
		c.Source = domain.Source(source)
		if err := unmarshalJSON(params, &c.Params); err != nil {
			return nil, fmt.Errorf("unmarshalling params: %w", err)
		}
		c.CreatedAt = parseTime(createdAt)
		c.UpdatedAt = parseTime(updatedAt)
		conns = append(conns, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connections: %w", err)
	}
	return conns, nil
}

// ==================== Sync Job Store ====================

// syncJobStore implements driven.SyncJobStore.
type syncJobStore struct {
	store *Store
}

var _ driven.SyncJobStore = (*syncJobStore)(nil)

const syncJobColumns = `id, tenant_id, source, state, processed, upserted, skipped, failures,
	cursor, error, error_kind, queued_at, started_at, finished_at`

// Save stores or updates a job.
func (s *syncJobStore) Save(ctx context.Context, job *domain.SyncJob) error {
	if job == nil || job.ID == "" || job.TenantID == "" {
		return domain.ErrInvalidInput
	}
	failures, err := marshalJSON(job.Failures, "[]")
	if err != nil {
		return fmt.Errorf("marshalling failures: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sync_jobs (`+syncJobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			processed = excluded.processed,
			upserted = excluded.upserted,
			skipped = excluded.skipped,
			failures = excluded.failures,
			cursor = excluded.cursor,
			error = excluded.error,
			error_kind = excluded.error_kind,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at
	`, job.ID, job.TenantID, string(job.Source), string(job.State),
		job.Processed, job.Upserted, job.Skipped, failures,
		job.Cursor, job.Error, string(job.ErrorKind),
		formatTime(job.QueuedAt), formatTimePtr(job.StartedAt), formatTimePtr(job.FinishedAt))
	if err != nil {
		return storageError("save sync job", err)
	}
	return nil
}

// Get retrieves a job by id within a tenant.
func (s *syncJobStore) Get(ctx context.Context, tenantID, id string) (*domain.SyncJob, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+syncJobColumns+` FROM sync_jobs WHERE tenant_id = ? AND id = ?
	`, tenantID, id)
	return scanSyncJob(row)
}

// Latest returns the most recently queued job for tenant and source.
func (s *syncJobStore) Latest(ctx context.Context, tenantID string, source domain.Source) (*domain.SyncJob, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+syncJobColumns+` FROM sync_jobs
		WHERE tenant_id = ? AND source = ?
		ORDER BY queued_at DESC, id DESC
		LIMIT 1
	`, tenantID, string(source))
	return scanSyncJob(row)
}

func scanSyncJob(row *sql.Row) (*domain.SyncJob, error) {
	var job domain.SyncJob
	var source, state, failures, errorKind, queuedAt string
	var startedAt, finishedAt sql.NullString
	if err := row.Scan(&job.ID, &job.TenantID, &source, &state,
		&job.Processed, &job.Upserted, &job.Skipped, &failures,
		&job.Cursor, &job.Error, &errorKind, &queuedAt, &startedAt, &finishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageError("scan sync job", err)
	}
	job.Source = domain.Source(source)
	job.State = domain.JobState(state)
	job.ErrorKind = domain.ErrorKind(errorKind)
	if err := unmarshalJSON(failures, &job.Failures); err != nil {
		return nil, fmt.Errorf("unmarshalling failures: %w", err)
	}
	job.QueuedAt = parseTime(queuedAt)
	job.StartedAt = parseTimePtr(startedAt)
	job.FinishedAt = parseTimePtr(finishedAt)
	return &job, nil
}

// ==================== Staging Store ====================

// stagingStore implements driven.StagingStore.
type stagingStore struct {
	store *Store
}

var _ driven.StagingStore = (*stagingStore)(nil)

const stagedColumns = `id, tenant_id, resource_id, source, source_site, source_id, diff, payload,
	status, attempts, error, created_at, updated_at, committed_at`

// Save stores or updates a staged payload.
func (s *stagingStore) Save(ctx context.Context, staged *domain.StagedPush) error {
	if staged == nil || staged.ID == "" || staged.TenantID == "" {
		return domain.ErrInvalidInput
	}
	diff, err := json.Marshal(staged.Diff)
	if err != nil {
		return fmt.Errorf("marshalling diff: %w", err)
	}
	payload, err := marshalJSON(staged.Payload, "{}")
	if err != nil {
		return fmt.Errorf("marshalling payload: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO staged_pushes (`+stagedColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			diff = excluded.diff,
			payload = excluded.payload,
			status = excluded.status,
			attempts = excluded.attempts,
			error = excluded.error,
			updated_at = excluded.updated_at,
			committed_at = excluded.committed_at
	`, staged.ID, staged.TenantID, staged.ResourceID, string(staged.Source), staged.SourceSite,
		staged.SourceID, string(diff), payload, string(staged.Status), staged.Attempts, staged.Error,
		formatTime(staged.CreatedAt), formatTime(staged.UpdatedAt), formatTimePtr(staged.CommittedAt))
	if err != nil {
		return storageError("save staged push", err)
	}
	return nil
}

// Get retrieves a staged payload by id within a tenant.
func (s *stagingStore) Get(ctx context.Context, tenantID, id string) (*domain.StagedPush, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+stagedColumns+` FROM staged_pushes WHERE tenant_id = ? AND id = ?
	`, tenantID, id)
	if err != nil {
		return nil, storageError("get staged push", err)
	}
	staged, err := scanStagedRows(rows)
	if err != nil {
		return nil, err
	}
	if len(staged) == 0 {
		return nil, domain.ErrNotFound
	}
	return staged[0], nil
}

// List returns a tenant's staged payloads, newest first.
func (s *stagingStore) List(ctx context.Context, tenantID string, status domain.StagedStatus) ([]*domain.StagedPush, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+stagedColumns+` FROM staged_pushes
		WHERE tenant_id = ? AND (? = '' OR status = ?)
		ORDER BY created_at DESC, id DESC
	`, tenantID, string(status), string(status))
	if err != nil {
		return nil, storageError("list staged pushes", err)
	}
	return scanStagedRows(rows)
}

// Claim moves a claimable payload to sending in a single conditional update.
func (s *stagingStore) Claim(ctx context.Context, tenantID, id string, at, staleBefore time.Time) (*domain.StagedPush, error) {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE staged_pushes SET status = ?, attempts = attempts + 1, updated_at = ?
		WHERE tenant_id = ? AND id = ?
			AND (status IN (?, ?) OR (status = ? AND updated_at < ?))
	`, string(domain.StagedSending), formatTime(at), tenantID, id,
		string(domain.StagedPending), string(domain.StagedFailed),
		string(domain.StagedSending), formatTime(staleBefore))
	if err != nil {
		return nil, storageError("claim staged push", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, storageError("claim staged push", err)
	}
	if n == 0 {
		if _, err := s.Get(ctx, tenantID, id); err != nil {
			return nil, err
		}
		return nil, domain.ErrInvalidTransition
	}
	return s.Get(ctx, tenantID, id)
}

func scanStagedRows(rows *sql.Rows) ([]*domain.StagedPush, error) {
	defer rows.Close()

	result := make([]*domain.StagedPush, 0)
	for rows.Next() {
		var p domain.StagedPush
		var source, diff, payload, status, createdAt, updatedAt string
		var committedAt sql.NullString
		if err := rows.Scan(&p.ID, &p.TenantID, &p.ResourceID, &source, &p.SourceSite,
			&p.SourceID, &diff, &payload, &status, &p.Attempts, &p.Error,
			&createdAt, &updatedAt, &committedAt); err != nil {
			return nil, fmt.Errorf("scanning staged push: %w", err)
		}
		p.Source = domain.Source(source)
		p.Status = domain.StagedStatus(status)
		if err := unmarshalJSON(diff, &p.Diff); err != nil {
			return nil, fmt.Errorf("unmarshalling diff: %w", err)
		}
		if err := unmarshalJSON(payload, &p.Payload); err != nil {
			return nil, fmt.Errorf("unmarshalling payload: %w", err)
		}
		p.CreatedAt = parseTime(createdAt)
		p.UpdatedAt = parseTime(updatedAt)
		p.CommittedAt = parseTimePtr(committedAt)
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating staged pushes: %w", err)
	}
	return result, nil
}

// ==================== Site Integration Store ====================

// siteIntegrationStore implements driven.SiteIntegrationStore.
type siteIntegrationStore struct {
	store *Store
}

var _ driven.SiteIntegrationStore = (*siteIntegrationStore)(nil)

const siteColumns = `tenant_id, site_id, ga_measurement_id, gtm_container_id, conversion_event,
	consent_cookie_name, consent_opt_out_value, session_replay_enabled, session_replay_project_key,
	session_replay_host, session_replay_mask_selectors, feedback_enabled, feedback_widget_url,
	feedback_project_key, created_at, updated_at`

// Get retrieves the integration for a tenant site.
func (s *siteIntegrationStore) Get(ctx context.Context, tenantID, siteID string) (*domain.SiteIntegration, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+siteColumns+` FROM site_integrations WHERE tenant_id = ? AND site_id = ?
	`, tenantID, siteID)

	var si domain.SiteIntegration
	var selectors, createdAt, updatedAt string
	var replay, feedback int
	if err := row.Scan(&si.TenantID, &si.SiteID, &si.GAMeasurementID, &si.GTMContainerID,
		&si.ConversionEvent, &si.ConsentCookieName, &si.ConsentOptOutValue, &replay,
		&si.SessionReplayProjectKey, &si.SessionReplayHost, &selectors, &feedback,
		&si.FeedbackWidgetURL, &si.FeedbackProjectKey, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageError("get site integration", err)
	}
	si.SessionReplayEnabled = replay == 1
	si.FeedbackEnabled = feedback == 1
	if err := unmarshalJSON(selectors, &si.SessionReplayMaskSelectors); err != nil {
		return nil, fmt.Errorf("unmarshalling mask selectors: %w", err)
	}
	si.CreatedAt = parseTime(createdAt)
	si.UpdatedAt = parseTime(updatedAt)
	return &si, nil
}

// Save creates or replaces the integration for a tenant site.
func (s *siteIntegrationStore) Save(ctx context.Context, si *domain.SiteIntegration) error {
	if si == nil || si.TenantID == "" || si.SiteID == "" {
		return domain.ErrInvalidInput
	}
	selectors, err := marshalJSON(si.SessionReplayMaskSelectors, "[]")
	if err != nil {
		return fmt.Errorf("marshalling mask selectors: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO site_integrations (`+siteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, site_id) DO UPDATE SET
			ga_measurement_id = excluded.ga_measurement_id,
			gtm_container_id = excluded.gtm_container_id,
			conversion_event = excluded.conversion_event,
			consent_cookie_name = excluded.consent_cookie_name,
			consent_opt_out_value = excluded.consent_opt_out_value,
			session_replay_enabled = excluded.session_replay_enabled,
			session_replay_project_key = excluded.session_replay_project_key,
			session_replay_host = excluded.session_replay_host,
			session_replay_mask_selectors = excluded.session_replay_mask_selectors,
			feedback_enabled = excluded.feedback_enabled,
			feedback_widget_url = excluded.feedback_widget_url,
			feedback_project_key = excluded.feedback_project_key,
			updated_at = excluded.updated_at
	`, si.TenantID, si.SiteID, si.GAMeasurementID, si.GTMContainerID, si.ConversionEvent,
		si.ConsentCookieName, si.ConsentOptOutValue, boolToInt(si.SessionReplayEnabled),
		si.SessionReplayProjectKey, si.SessionReplayHost, selectors, boolToInt(si.FeedbackEnabled),
		si.FeedbackWidgetURL, si.FeedbackProjectKey, formatTime(si.CreatedAt), formatTime(si.UpdatedAt))
	if err != nil {
		return storageError("save site integration", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// storageError wraps err, marking lock contention as transient.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &domain.StorageError{Op: op, Transient: isBusy(err), Err: err}
}

// isBusy reports whether err is SQLITE_BUSY or SQLITE_LOCKED, including
// their extended codes.
func isBusy(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	default:
		return false
	}
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storageError("rows affected", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// marshalJSON encodes v, writing empty for nil maps and slices.
func marshalJSON(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

// unmarshalJSON decodes s into v. Empty collections decode to nil.
func unmarshalJSON(s string, v any) error {
	if s == "" || s == "[]" || s == "{}" || s == "null" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

// float32SliceToBytes converts a []float32 to a little-endian byte slice.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
