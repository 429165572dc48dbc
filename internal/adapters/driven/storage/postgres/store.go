package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/storage/postgres/migrations"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

// migrationLockID serialises migrations across hub processes.
const migrationLockID = 7_284_310_551

// Store is a Postgres-backed implementation of the hub store ports.
// Tenant-owned rows are protected by row-level security keyed on the
// transaction-local app.tenant_id setting.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to dsn and applies pending migrations.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres: dsn is required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx, migrations.FS); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// NewStoreFromPool wraps an existing pool. Migrations are not run.
func NewStoreFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// ResourceStore returns a ResourceStore backed by this store.
// Closing it is a no-op; the Store owns the pool.
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

func (s *Store) migrate(ctx context.Context, fsys fs.FS) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", int64(migrationLockID)); err != nil {
		return fmt.Errorf("acquiring migration lock: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := tx.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= current {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		// No arguments: pgx uses the simple protocol, which allows
		// multiple statements.
		if _, err := tx.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return tx.Commit(ctx)
}

// inTenant runs fn in a transaction scoped to tenantID for row-level security.
func (s *Store) inTenant(ctx context.Context, tenantID string, op string, fn func(pgx.Tx) error) error {
	if tenantID == "" {
		return &domain.AuthorizationError{Op: op, Detail: "missing tenant"}
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storageError(op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return storageError(op, err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storageError(op, err)
	}
	return nil
}

// storageError wraps err, classifying retryable Postgres failures as
// transient. Domain errors pass through unchanged.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnauthorized) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &domain.StorageError{Op: op, Transient: isTransient(err), Err: err}
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "40001", "40P01", "55P03": // serialization, deadlock, lock not available
			return true
		case "53300", "57P01", "57P03": // too many connections, admin shutdown, cannot connect now
			return true
		}
		return false
	}
	return pgconn.SafeToRetry(err) || pgconn.Timeout(err)
}

// jsonText encodes v for a JSONB parameter, writing empty for nil values.
func jsonText(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

// nonNil returns an empty slice for nil so TEXT[] columns never receive NULL.
func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nilIfEmpty[S ~[]E, E any](v S) S {
	if len(v) == 0 {
		return nil
	}
	return v
}

func nilIfEmptyMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	return m
}
