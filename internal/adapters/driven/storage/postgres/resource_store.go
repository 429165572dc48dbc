package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/custodia-labs/sercha-hub/internal/adapters/driven/storage"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

// resourceStore implements driven.ResourceStore.
type resourceStore struct {
	store *Store
}

var _ driven.ResourceStore = (*resourceStore)(nil)

const resourceSelect = `SELECT id::text, tenant_id, source, source_site, source_id, type, slug, title,
	body_html, body_text, images, price, currency, tags, attributes, seo, locale, url,
	published_at, updated_at, embedding::text
	FROM hub_resources`

const upsertResource = `
	INSERT INTO hub_resources (id, tenant_id, source, source_site, source_id, type, slug, title,
		body_html, body_text, images, price, currency, tags, attributes, seo, locale, url,
		published_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15::jsonb, $16::jsonb,
		$17, $18, $19, $20)
	ON CONFLICT ON CONSTRAINT uq_resource_origin DO UPDATE SET
		type = EXCLUDED.type,
		slug = EXCLUDED.slug,
		title = EXCLUDED.title,
		body_html = EXCLUDED.body_html,
		body_text = EXCLUDED.body_text,
		images = EXCLUDED.images,
		price = EXCLUDED.price,
		currency = EXCLUDED.currency,
		tags = EXCLUDED.tags,
		attributes = EXCLUDED.attributes,
		seo = EXCLUDED.seo,
		locale = EXCLUDED.locale,
		url = EXCLUDED.url,
		published_at = EXCLUDED.published_at,
		updated_at = EXCLUDED.updated_at
	RETURNING id::text, embedding::text`

// Upsert inserts or merges resources by origin key in one batch.
func (s *resourceStore) Upsert(ctx context.Context, tenantID string, resources []*domain.HubResource) ([]*domain.HubResource, error) {
	if err := storage.CheckBatch(tenantID, resources); err != nil {
		return nil, err
	}

	out := make([]*domain.HubResource, 0, len(resources))
	err := s.store.inTenant(ctx, tenantID, "upsert", func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, r := range resources {
			args, err := resourceArgs(r)
			if err != nil {
				return fmt.Errorf("upsert %s: %w", r.Key(), err)
			}
			batch.Queue(upsertResource, args...)
		}

		br := tx.SendBatch(ctx, batch)
		for _, r := range resources {
			stored := r.Clone()
			var embedding *string
			if err := br.QueryRow().Scan(&stored.ID, &embedding); err != nil {
				_ = br.Close()
				return storageError("upsert resource", err)
			}
			vec, err := parseVector(embedding)
			if err != nil {
				_ = br.Close()
				return storageError("upsert resource", err)
			}
			stored.Embedding = vec
			out = append(out, stored)
		}
		return storageError("upsert batch", br.Close())
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get retrieves a resource by id within a tenant.
func (s *resourceStore) Get(ctx context.Context, tenantID, id string) (*domain.HubResource, error) {
	var res *domain.HubResource
	err := s.store.inTenant(ctx, tenantID, "get resource", func(tx pgx.Tx) error {
		// Ids are UUIDs; comparing as text keeps malformed ids a plain miss.
		r, err := scanResource(tx.QueryRow(ctx, resourceSelect+` WHERE tenant_id = $1 AND id::text = $2`, tenantID, id))
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Search returns a tenant's resources matching q, newest first.
func (s *resourceStore) Search(ctx context.Context, tenantID string, q domain.ResourceQuery) ([]*domain.HubResource, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	if q.Type != "" {
		args = append(args, string(q.Type))
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if q.Source != "" {
		args = append(args, string(q.Source))
		where = append(where, fmt.Sprintf("source = $%d", len(args)))
	}
	if text := strings.TrimSpace(q.Text); text != "" {
		args = append(args, "%"+escapeLike(text)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(`(title ILIKE $%[1]d OR slug ILIKE $%[1]d OR body_text ILIKE $%[1]d
			OR EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE $%[1]d))`, n))
	}
	args = append(args, q.EffectiveLimit())
	query := fmt.Sprintf("%s WHERE %s ORDER BY updated_at DESC, id LIMIT $%d",
		resourceSelect, strings.Join(where, " AND "), len(args))

	result := make([]*domain.HubResource, 0)
	err := s.store.inTenant(ctx, tenantID, "search resources", func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return storageError("search resources", err)
		}
		defer rows.Close()
		for rows.Next() {
			r, err := scanResource(rows)
			if err != nil {
				return err
			}
			result = append(result, r)
		}
		return storageError("search resources", rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetEmbedding replaces only the embedding of a resource.
func (s *resourceStore) SetEmbedding(ctx context.Context, tenantID, id string, embedding []float32) error {
	return s.store.inTenant(ctx, tenantID, "set embedding", func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE hub_resources SET embedding = $1::vector WHERE tenant_id = $2 AND id::text = $3`,
			vectorLiteral(embedding), tenantID, id)
		if err != nil {
			return storageError("set embedding", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

// Close is a no-op; the owning Store closes the pool.
func (s *resourceStore) Close() error { return nil }

func resourceArgs(r *domain.HubResource) ([]any, error) {
	attributes, err := jsonText(r.Attributes, "{}")
	if err != nil {
		return nil, err
	}
	seo, err := jsonText(r.SEO, "{}")
	if err != nil {
		return nil, err
	}
	return []any{
		storage.NewID(), r.TenantID, string(r.Source), r.SourceSite, r.SourceID, string(r.Type),
		r.Slug, r.Title, r.BodyHTML, r.BodyText, nonNil(r.Images), r.Price, r.Currency,
		nonNil(r.Tags), attributes, seo, r.Locale, r.URL, r.PublishedAt, r.UpdatedAt.UTC(),
	}, nil
}

func scanResource(row pgx.Row) (*domain.HubResource, error) {
	var r domain.HubResource
	var source, typ string
	var updatedAt time.Time
	var embedding *string
	if err := row.Scan(&r.ID, &r.TenantID, &source, &r.SourceSite, &r.SourceID, &typ,
		&r.Slug, &r.Title, &r.BodyHTML, &r.BodyText, &r.Images, &r.Price, &r.Currency,
		&r.Tags, &r.Attributes, &r.SEO, &r.Locale, &r.URL, &r.PublishedAt, &updatedAt, &embedding); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageError("scan resource", err)
	}
	r.Source = domain.Source(source)
	r.Type = domain.ResourceType(typ)
	r.Images = nilIfEmpty(r.Images)
	r.Tags = nilIfEmpty(r.Tags)
	r.Attributes = nilIfEmptyMap(r.Attributes)
	r.SEO = nilIfEmptyMap(r.SEO)
	r.UpdatedAt = updatedAt.UTC()
	if r.PublishedAt != nil {
		t := r.PublishedAt.UTC()
		r.PublishedAt = &t
	}
	vec, err := parseVector(embedding)
	if err != nil {
		return nil, storageError("scan resource", err)
	}
	r.Embedding = vec
	return &r, nil
}

// vectorLiteral renders v in pgvector's text form, or nil for an empty vector.
func vectorLiteral(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// parseVector decodes pgvector's text form.
func parseVector(s *string) ([]float32, error) {
	if s == nil {
		return nil, nil
	}
	body := strings.TrimSpace(*s)
	body = strings.TrimPrefix(body, "[")
	body = strings.TrimSuffix(body, "]")
	if body == "" {
		return nil, nil
	}
	parts := strings.Split(body, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("parsing vector component %d: %w", i, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}

// escapeLike escapes ILIKE wildcards so user text matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
