// Package storagetest provides conformance suites run against every store
// implementation.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// Resource returns a valid resource for tests.
func Resource(tenant string, source domain.Source, site, id string) *domain.HubResource {
	price := 19.99
	return &domain.HubResource{
		TenantID:   tenant,
		Source:     source,
		SourceSite: site,
		SourceID:   id,
		Type:       domain.TypeProduct,
		Title:      "Item " + id,
		Slug:       "item-" + id,
		BodyHTML:   "<p>Body " + id + "</p>",
		BodyText:   "Body " + id,
		Tags:       []string{"sale", "new"},
		Images:     []string{"https://cdn.example.com/" + id + ".jpg"},
		Price:      &price,
		Currency:   "USD",
		Attributes: map[string]string{"colour": "blue"},
		SEO:        map[string]string{"title": "Item " + id},
		URL:        "https://shop.example.com/" + id,
		UpdatedAt:  base,
	}
}

// ResourceStore runs the ResourceStore conformance suite. newStore must
// return an empty store.
func ResourceStore(t *testing.T, newStore func(t *testing.T) driven.ResourceStore) {
	ctx := context.Background()

	t.Run("insert assigns id and round trips", func(t *testing.T) {
		s := newStore(t)
		in := Resource("T", domain.SourceShopify, "shop1", "p1")
		published := base.Add(-time.Hour)
		in.PublishedAt = &published

		out, err := s.Upsert(ctx, "T", []*domain.HubResource{in})
		require.NoError(t, err)
		require.Len(t, out, 1)
		require.NotEmpty(t, out[0].ID)

		got, err := s.Get(ctx, "T", out[0].ID)
		require.NoError(t, err)
		want := in.Clone()
		want.ID = out[0].ID
		assert.Equal(t, want.Title, got.Title)
		assert.Equal(t, want.Tags, got.Tags)
		assert.Equal(t, want.Attributes, got.Attributes)
		assert.Equal(t, want.SEO, got.SEO)
		assert.Equal(t, want.Images, got.Images)
		require.NotNil(t, got.Price)
		assert.InDelta(t, 19.99, *got.Price, 1e-9)
		assert.Equal(t, "USD", got.Currency)
		assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
		require.NotNil(t, got.PublishedAt)
		assert.True(t, published.Equal(*got.PublishedAt))
	})

	t.Run("upsert is idempotent by origin key", func(t *testing.T) {
		s := newStore(t)
		first, err := s.Upsert(ctx, "T", []*domain.HubResource{Resource("T", domain.SourceShopify, "shop1", "p1")})
		require.NoError(t, err)

		changed := Resource("T", domain.SourceShopify, "shop1", "p1")
		changed.Title = "Renamed"
		changed.Price = nil
		changed.Currency = ""
		second, err := s.Upsert(ctx, "T", []*domain.HubResource{changed})
		require.NoError(t, err)
		assert.Equal(t, first[0].ID, second[0].ID)

		all, err := s.Search(ctx, "T", domain.ResourceQuery{})
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "Renamed", all[0].Title)
		assert.Nil(t, all[0].Price)
	})

	t.Run("search follows a renamed post", func(t *testing.T) {
		s := newStore(t)
		post := Resource("T", domain.SourceWordPress, "blog1", "42")
		post.Type = domain.TypePost
		post.Price, post.Currency = nil, ""
		post.Title = "Hello"
		_, err := s.Upsert(ctx, "T", []*domain.HubResource{post})
		require.NoError(t, err)

		before, err := s.Search(ctx, "T", domain.ResourceQuery{Text: "Hello"})
		require.NoError(t, err)
		require.Len(t, before, 1)

		renamed := post.Clone()
		renamed.Title = "Goodbye"
		_, err = s.Upsert(ctx, "T", []*domain.HubResource{renamed})
		require.NoError(t, err)

		after, err := s.Search(ctx, "T", domain.ResourceQuery{Text: "Hello"})
		require.NoError(t, err)
		assert.Empty(t, after)
		all, err := s.Search(ctx, "T", domain.ResourceQuery{})
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "Goodbye", all[0].Title)
	})

	t.Run("source site separates origin keys", func(t *testing.T) {
		s := newStore(t)
		out, err := s.Upsert(ctx, "T", []*domain.HubResource{
			Resource("T", domain.SourceWordPress, "blog1", "42"),
			Resource("T", domain.SourceWordPress, "blog2", "42"),
			Resource("T", domain.SourceWordPress, "", "42"),
		})
		require.NoError(t, err)
		assert.Len(t, map[string]bool{out[0].ID: true, out[1].ID: true, out[2].ID: true}, 3)
	})

	t.Run("upsert keeps embedding", func(t *testing.T) {
		s := newStore(t)
		out, err := s.Upsert(ctx, "T", []*domain.HubResource{Resource("T", domain.SourceShopify, "", "p1")})
		require.NoError(t, err)
		require.NoError(t, s.SetEmbedding(ctx, "T", out[0].ID, []float32{0.25, 0.5, 1}))

		again := Resource("T", domain.SourceShopify, "", "p1")
		again.Embedding = []float32{9, 9, 9}
		_, err = s.Upsert(ctx, "T", []*domain.HubResource{again})
		require.NoError(t, err)

		got, err := s.Get(ctx, "T", out[0].ID)
		require.NoError(t, err)
		assert.Equal(t, []float32{0.25, 0.5, 1}, got.Embedding)
	})

	t.Run("cross tenant write is rejected", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Upsert(ctx, "T", []*domain.HubResource{
			Resource("T", domain.SourceShopify, "", "p1"),
			Resource("U", domain.SourceShopify, "", "p2"),
		})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.Equal(t, domain.KindAuthorization, domain.KindOf(err))

		all, err := s.Search(ctx, "T", domain.ResourceQuery{})
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("invalid resource is rejected", func(t *testing.T) {
		s := newStore(t)
		bad := Resource("T", domain.SourceShopify, "", "p1")
		bad.Currency = ""
		_, err := s.Upsert(ctx, "T", []*domain.HubResource{bad})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("tenant isolation on read", func(t *testing.T) {
		s := newStore(t)
		out, err := s.Upsert(ctx, "A", []*domain.HubResource{Resource("A", domain.SourceShopify, "", "p1")})
		require.NoError(t, err)

		_, err = s.Get(ctx, "B", out[0].ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = s.Get(ctx, "A", "00000000-0000-7000-8000-000000000000")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		found, err := s.Search(ctx, "B", domain.ResourceQuery{Text: "item"})
		require.NoError(t, err)
		assert.Empty(t, found)

		assert.ErrorIs(t, s.SetEmbedding(ctx, "B", out[0].ID, []float32{1}), domain.ErrNotFound)
	})

	t.Run("search filters and orders", func(t *testing.T) {
		s := newStore(t)
		var batch []*domain.HubResource
		for i := range 5 {
			r := Resource("T", domain.SourceShopify, "", fmt.Sprintf("p%d", i))
			r.UpdatedAt = base.Add(time.Duration(i) * time.Minute)
			batch = append(batch, r)
		}
		page := Resource("T", domain.SourceWordPress, "blog", "page1")
		page.Type = domain.TypePage
		page.Price, page.Currency = nil, ""
		page.Title = "About Us"
		page.Tags = []string{"Company"}
		batch = append(batch, page)
		_, err := s.Upsert(ctx, "T", batch)
		require.NoError(t, err)

		all, err := s.Search(ctx, "T", domain.ResourceQuery{Type: domain.TypeProduct})
		require.NoError(t, err)
		require.Len(t, all, 5)
		assert.Equal(t, "p4", all[0].SourceID)
		assert.Equal(t, "p0", all[4].SourceID)

		limited, err := s.Search(ctx, "T", domain.ResourceQuery{Type: domain.TypeProduct, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, limited, 2)

		byText, err := s.Search(ctx, "T", domain.ResourceQuery{Text: "ABOUT"})
		require.NoError(t, err)
		require.Len(t, byText, 1)
		assert.Equal(t, "page1", byText[0].SourceID)

		byTag, err := s.Search(ctx, "T", domain.ResourceQuery{Text: "compan"})
		require.NoError(t, err)
		require.Len(t, byTag, 1)

		bySource, err := s.Search(ctx, "T", domain.ResourceQuery{Source: domain.SourceWordPress})
		require.NoError(t, err)
		require.Len(t, bySource, 1)

		none, err := s.Search(ctx, "T", domain.ResourceQuery{Text: "zzz-no-match"})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("set embedding only touches embedding", func(t *testing.T) {
		s := newStore(t)
		out, err := s.Upsert(ctx, "T", []*domain.HubResource{Resource("T", domain.SourceShopify, "", "p1")})
		require.NoError(t, err)
		require.NoError(t, s.SetEmbedding(ctx, "T", out[0].ID, []float32{1, 2}))

		got, err := s.Get(ctx, "T", out[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "Item p1", got.Title)
		assert.True(t, base.Equal(got.UpdatedAt))
		assert.Equal(t, []float32{1, 2}, got.Embedding)
	})
}

// ConnectionStore runs the ConnectionStore conformance suite.
func ConnectionStore(t *testing.T, s driven.ConnectionStore) {
	ctx := context.Background()

	c := &domain.Connection{
		TenantID: "T", Source: domain.SourceWordPress, SourceSite: "blog1",
		Params: map[string]string{domain.ParamBaseURL: "https://blog.example.com"},
	}
	require.NoError(t, s.Save(ctx, c))
	require.NotEmpty(t, c.ID)
	id := c.ID

	update := &domain.Connection{
		TenantID: "T", Source: domain.SourceWordPress, SourceSite: "blog1",
		Params: map[string]string{domain.ParamBaseURL: "https://new.example.com"},
	}
	require.NoError(t, s.Save(ctx, update))
	assert.Equal(t, id, update.ID)

	require.NoError(t, s.Save(ctx, &domain.Connection{TenantID: "T", Source: domain.SourceWordPress, SourceSite: "blog2"}))
	require.NoError(t, s.Save(ctx, &domain.Connection{TenantID: "U", Source: domain.SourceWordPress, SourceSite: "blog1"}))

	list, err := s.List(ctx, "T", domain.SourceWordPress)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "blog1", list[0].SourceSite)
	assert.Equal(t, "https://new.example.com", list[0].Param(domain.ParamBaseURL))

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	assert.ErrorIs(t, s.Delete(ctx, "U", id), domain.ErrNotFound)
	require.NoError(t, s.Delete(ctx, "T", id))
	list, err = s.List(ctx, "T", domain.SourceWordPress)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// SyncJobStore runs the SyncJobStore conformance suite.
func SyncJobStore(t *testing.T, s driven.SyncJobStore) {
	ctx := context.Background()

	_, err := s.Latest(ctx, "T", domain.SourceShopify)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	older := &domain.SyncJob{ID: "job-1", TenantID: "T", Source: domain.SourceShopify, State: domain.JobCompleted, QueuedAt: base}
	newer := &domain.SyncJob{ID: "job-2", TenantID: "T", Source: domain.SourceShopify, State: domain.JobIdle, QueuedAt: base.Add(time.Minute)}
	require.NoError(t, s.Save(ctx, older))
	require.NoError(t, s.Save(ctx, newer))

	require.NoError(t, newer.Start(base.Add(2*time.Minute)))
	newer.Processed = 3
	newer.Skipped = 1
	newer.Failures = []domain.MappingFailure{{RecordID: "r1", Reason: "missing type"}}
	require.NoError(t, s.Save(ctx, newer))

	latest, err := s.Latest(ctx, "T", domain.SourceShopify)
	require.NoError(t, err)
	assert.Equal(t, "job-2", latest.ID)
	assert.Equal(t, domain.JobRunning, latest.State)
	assert.Equal(t, 3, latest.Processed)
	assert.Equal(t, newer.Failures, latest.Failures)
	require.NotNil(t, latest.StartedAt)

	got, err := s.Get(ctx, "T", "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, got.State)

	_, err = s.Get(ctx, "U", "job-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// StagingStore runs the StagingStore conformance suite.
func StagingStore(t *testing.T, s driven.StagingStore) {
	ctx := context.Background()
	title := "New"

	first := &domain.StagedPush{
		ID: "s1", TenantID: "T", ResourceID: "r1", Source: domain.SourceShopify, SourceID: "gid://1",
		Diff: domain.FieldDiff{Title: &title}, Payload: domain.OriginPayload{"title": "New"},
		Status: domain.StagedPending, CreatedAt: base, UpdatedAt: base,
	}
	second := &domain.StagedPush{
		ID: "s2", TenantID: "T", ResourceID: "r2", Source: domain.SourceShopify, SourceID: "gid://2",
		Payload: domain.OriginPayload{}, Status: domain.StagedPending,
		CreatedAt: base.Add(time.Minute), UpdatedAt: base.Add(time.Minute),
	}
	require.NoError(t, s.Save(ctx, first))
	require.NoError(t, s.Save(ctx, second))

	committed := base.Add(2 * time.Minute)
	second.Status = domain.StagedSent
	second.Attempts = 1
	second.CommittedAt = &committed
	require.NoError(t, s.Save(ctx, second))

	got, err := s.Get(ctx, "T", "s1")
	require.NoError(t, err)
	require.NotNil(t, got.Diff.Title)
	assert.Equal(t, "New", *got.Diff.Title)
	assert.Equal(t, "New", got.Payload["title"])

	all, err := s.List(ctx, "T", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "s2", all[0].ID)

	pending, err := s.List(ctx, "T", domain.StagedPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "s1", pending[0].ID)

	_, err = s.Get(ctx, "U", "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Clearing edits survive storage as touched-but-empty.
	clearing := &domain.StagedPush{
		ID: "s3", TenantID: "T", ResourceID: "r3", Source: domain.SourceShopify, SourceID: "gid://3",
		Diff:    domain.FieldDiff{Tags: []string{}, SEO: map[string]string{}},
		Payload: domain.OriginPayload{"tags": ""}, Status: domain.StagedPending,
		CreatedAt: base.Add(3 * time.Minute), UpdatedAt: base.Add(3 * time.Minute),
	}
	require.NoError(t, s.Save(ctx, clearing))
	got, err = s.Get(ctx, "T", "s3")
	require.NoError(t, err)
	assert.True(t, got.Diff.Touches(domain.FieldTags))
	require.NotNil(t, got.Diff.Tags)
	assert.Empty(t, got.Diff.Tags)
	require.NotNil(t, got.Diff.SEO)
	assert.Empty(t, got.Diff.SEO)
	assert.Nil(t, got.Diff.Images)
	assert.Nil(t, got.Diff.Title)

	// Claim: exactly one caller moves a payload to sending.
	claimAt := base.Add(4 * time.Minute)
	claimed, err := s.Claim(ctx, "T", "s1", claimAt, base)
	require.NoError(t, err)
	assert.Equal(t, domain.StagedSending, claimed.Status)
	assert.Equal(t, 1, claimed.Attempts)
	assert.True(t, claimed.UpdatedAt.Equal(claimAt))

	_, err = s.Claim(ctx, "T", "s1", claimAt, base)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// A claim older than staleBefore can be taken over.
	reclaimed, err := s.Claim(ctx, "T", "s1", claimAt.Add(time.Hour), claimAt.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, reclaimed.Attempts)

	_, err = s.Claim(ctx, "T", "s2", claimAt, base)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "sent payloads are final")

	_, err = s.Claim(ctx, "U", "s3", claimAt, base)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Claim(ctx, "T", "missing", claimAt, base)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err = s.Get(ctx, "T", "s3")
	require.NoError(t, err)
	assert.Equal(t, domain.StagedPending, got.Status)
}

// SiteIntegrationStore runs the SiteIntegrationStore conformance suite.
func SiteIntegrationStore(t *testing.T, s driven.SiteIntegrationStore) {
	ctx := context.Background()

	_, err := s.Get(ctx, "T", "site1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	in := &domain.SiteIntegration{
		TenantID: "T", SiteID: "site1", GAMeasurementID: "G-123",
		SessionReplayEnabled: true, SessionReplayProjectKey: "pk",
		SessionReplayMaskSelectors: []string{".card", "#email"},
		CreatedAt: base, UpdatedAt: base,
	}
	require.NoError(t, s.Save(ctx, in))

	got, err := s.Get(ctx, "T", "site1")
	require.NoError(t, err)
	assert.Equal(t, "G-123", got.GAMeasurementID)
	assert.True(t, got.SessionReplayEnabled)
	assert.Equal(t, []string{".card", "#email"}, got.SessionReplayMaskSelectors)

	in.GAMeasurementID = "G-456"
	require.NoError(t, s.Save(ctx, in))
	got, err = s.Get(ctx, "T", "site1")
	require.NoError(t, err)
	assert.Equal(t, "G-456", got.GAMeasurementID)

	_, err = s.Get(ctx, "U", "site1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// SchedulerStore runs the SchedulerStore conformance suite.
func SchedulerStore(t *testing.T, s driven.SchedulerStore) {
	ctx := context.Background()

	missing, err := s.GetTask(ctx, domain.TaskIDConnectionSync)
	require.NoError(t, err)
	assert.Nil(t, missing)

	task := &domain.ScheduledTask{
		ID:          domain.TaskIDConnectionSync,
		Name:        "Connection Sync",
		Interval:    time.Hour,
		LastRun:     base,
		NextRun:     base.Add(time.Hour),
		LastSuccess: base,
		Enabled:     true,
	}
	require.NoError(t, s.SaveTask(ctx, task))
	require.NoError(t, s.SaveTask(ctx, &domain.ScheduledTask{ID: domain.TaskIDEnrichmentSweep, Name: "Sweep", Interval: time.Minute}))

	got, err := s.GetTask(ctx, domain.TaskIDConnectionSync)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, time.Hour, got.Interval)
	assert.True(t, got.Enabled)
	assert.True(t, base.Add(time.Hour).Equal(got.NextRun))

	task.LastError = "boom"
	task.Enabled = false
	require.NoError(t, s.SaveTask(ctx, task))

	tasks, err := s.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, domain.TaskIDConnectionSync, tasks[0].ID)
	assert.Equal(t, "boom", tasks[0].LastError)
	assert.False(t, tasks[0].Enabled)

	for i := range 5 {
		require.NoError(t, s.RecordResult(ctx, &domain.TaskResult{
			TaskID:         domain.TaskIDConnectionSync,
			StartedAt:      base.Add(time.Duration(i) * time.Minute),
			EndedAt:        base.Add(time.Duration(i)*time.Minute + time.Second),
			Success:        i%2 == 0,
			ItemsProcessed: i,
		}))
	}
	history, err := s.GetTaskHistory(ctx, domain.TaskIDConnectionSync, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 4, history[0].ItemsProcessed)
	assert.True(t, history[0].Success)

	require.NoError(t, s.PruneHistory(ctx, 2))
	history, err = s.GetTaskHistory(ctx, domain.TaskIDConnectionSync, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 3, history[1].ItemsProcessed)

	require.NoError(t, s.DeleteTask(ctx, domain.TaskIDConnectionSync))
	missing, err = s.GetTask(ctx, domain.TaskIDConnectionSync)
	require.NoError(t, err)
	assert.Nil(t, missing)
	history, err = s.GetTaskHistory(ctx, domain.TaskIDConnectionSync, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}
