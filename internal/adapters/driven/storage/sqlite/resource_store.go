package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/storage"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

// resourceStore implements driven.ResourceStore.
type resourceStore struct {
	store *Store
}

var _ driven.ResourceStore = (*resourceStore)(nil)

const resourceColumns = `id, tenant_id, source, source_site, source_id, type, slug, title,
	body_html, body_text, images, price, currency, tags, attributes, seo, locale, url,
	published_at, updated_at, embedding`

// Upsert inserts or merges resources by origin key in one transaction.
func (s *resourceStore) Upsert(ctx context.Context, tenantID string, resources []*domain.HubResource) ([]*domain.HubResource, error) {
	if err := storage.CheckBatch(tenantID, resources); err != nil {
		return nil, err
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageError("begin upsert", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// The origin key conflict target is the serialisation point: a merge
	// keeps the stored id and embedding.
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO resources (`+resourceColumns+`, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?)
		ON CONFLICT(tenant_id, source, source_site, source_id) DO UPDATE SET
			type = excluded.type,
			slug = excluded.slug,
			title = excluded.title,
			body_html = excluded.body_html,
			body_text = excluded.body_text,
			images = excluded.images,
			price = excluded.price,
			currency = excluded.currency,
			tags = excluded.tags,
			attributes = excluded.attributes,
			seo = excluded.seo,
			locale = excluded.locale,
			url = excluded.url,
			published_at = excluded.published_at,
			updated_at = excluded.updated_at
		RETURNING id, embedding
	`)
	if err != nil {
		return nil, storageError("prepare upsert", err)
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	out := make([]*domain.HubResource, 0, len(resources))
	for _, r := range resources {
		args, err := resourceArgs(r)
		if err != nil {
			return nil, fmt.Errorf("upsert %s: %w", r.Key(), err)
		}
		args = append([]any{storage.NewID()}, args...)
		args = append(args, now)

		stored := r.Clone()
		var embedding []byte
		if err := stmt.QueryRowContext(ctx, args...).Scan(&stored.ID, &embedding); err != nil {
			return nil, storageError("upsert resource", err)
		}
		stored.Embedding = bytesToFloat32Slice(embedding)
		out = append(out, stored)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageError("commit upsert", err)
	}
	return out, nil
}

// Get retrieves a resource by id within a tenant.
func (s *resourceStore) Get(ctx context.Context, tenantID, id string) (*domain.HubResource, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+resourceColumns+` FROM resources WHERE tenant_id = ? AND id = ?
	`, tenantID, id)
	if err != nil {
		return nil, storageError("get resource", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, storageError("get resource", err)
		}
		return nil, domain.ErrNotFound
	}
	return scanResource(rows)
}

// Search returns a tenant's resources matching q, newest first.
// Type and source filter in SQL; text matching runs on the decoded rows
// so case folding is not limited to ASCII.
func (s *resourceStore) Search(ctx context.Context, tenantID string, q domain.ResourceQuery) ([]*domain.HubResource, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+resourceColumns+` FROM resources
		WHERE tenant_id = ?
			AND (? = '' OR type = ?)
			AND (? = '' OR source = ?)
		ORDER BY updated_at DESC, id
	`, tenantID, string(q.Type), string(q.Type), string(q.Source), string(q.Source))
	if err != nil {
		return nil, storageError("search resources", err)
	}
	defer rows.Close()

	limit := q.EffectiveLimit()
	result := make([]*domain.HubResource, 0)
	for rows.Next() && len(result) < limit {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		if q.Matches(r) {
			result = append(result, r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("search resources", err)
	}
	return result, nil
}

// SetEmbedding replaces only the embedding of a resource.
func (s *resourceStore) SetEmbedding(ctx context.Context, tenantID, id string, embedding []float32) error {
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE resources SET embedding = ? WHERE tenant_id = ? AND id = ?",
		float32SliceToBytes(embedding), tenantID, id)
	if err != nil {
		return storageError("set embedding", err)
	}
	return requireAffected(res)
}

// Close is a no-op; the owning Store closes the database.
func (s *resourceStore) Close() error { return nil }

// resourceArgs returns the column values after id, excluding embedding.
func resourceArgs(r *domain.HubResource) ([]any, error) {
	images, err := marshalJSON(r.Images, "[]")
	if err != nil {
		return nil, err
	}
	tags, err := marshalJSON(r.Tags, "[]")
	if err != nil {
		return nil, err
	}
	attributes, err := marshalJSON(r.Attributes, "{}")
	if err != nil {
		return nil, err
	}
	seo, err := marshalJSON(r.SEO, "{}")
	if err != nil {
		return nil, err
	}
	var price any
	if r.Price != nil {
		price = *r.Price
	}
	return []any{
		r.TenantID, string(r.Source), r.SourceSite, r.SourceID, string(r.Type),
		r.Slug, r.Title, r.BodyHTML, r.BodyText, images, price, r.Currency,
		tags, attributes, seo, r.Locale, r.URL,
		formatTimePtr(r.PublishedAt), formatTime(r.UpdatedAt),
	}, nil
}

func scanResource(rows *sql.Rows) (*domain.HubResource, error) {
	var r domain.HubResource
	var source, typ, images, tags, attributes, seo, updatedAt string
	var price sql.NullFloat64
	var publishedAt sql.NullString
	var embedding []byte
	if err := rows.Scan(&r.ID, &r.TenantID, &source, &r.SourceSite, &r.SourceID, &typ,
		&r.Slug, &r.Title, &r.BodyHTML, &r.BodyText, &images, &price, &r.Currency,
		&tags, &attributes, &seo, &r.Locale, &r.URL, &publishedAt, &updatedAt, &embedding); err != nil {
		return nil, fmt.Errorf("scanning resource: %w", err)
	}
	r.Source = domain.Source(source)
	r.Type = domain.ResourceType(typ)
	if price.Valid {
		p := price.Float64
		r.Price = &p
	}
	for _, col := range []struct {
		raw string
		dst any
	}{
		{images, &r.Images},
		{tags, &r.Tags},
		{attributes, &r.Attributes},
		{seo, &r.SEO},
	} {
		if err := unmarshalJSON(col.raw, col.dst); err != nil {
			return nil, fmt.Errorf("decoding resource %s: %w", r.ID, err)
		}
	}
	r.PublishedAt = parseTimePtr(publishedAt)
	r.UpdatedAt = parseTime(updatedAt)
	r.Embedding = bytesToFloat32Slice(embedding)
	return &r, nil
}
