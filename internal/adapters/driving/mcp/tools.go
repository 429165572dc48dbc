package mcp

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

const (
	// defaultSearchLimit caps results returned to the assistant.
	defaultSearchLimit = 10

	// snippetLength is the number of body characters in a search result.
	snippetLength = 240
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query; empty returns the most recently updated resources"`
	Type  string `json:"type,omitempty" jsonschema:"restrict to one resource type: page, post, product, collection, asset or category"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []ResourceSummary `json:"results"`
	Count   int               `json:"count"`
}

// ResourceSummary is a compact view of a resource.
type ResourceSummary struct {
	ID         string   `json:"id"`
	Source     string   `json:"source"`
	SourceSite string   `json:"source_site,omitempty"`
	Type       string   `json:"type"`
	Title      string   `json:"title"`
	Slug       string   `json:"slug,omitempty"`
	URL        string   `json:"url,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Snippet    string   `json:"snippet,omitempty"`
	UpdatedAt  string   `json:"updated_at"`
}

// GetResourceInput is the input schema for the get_resource tool.
type GetResourceInput struct {
	ID string `json:"id" jsonschema:"the hub resource id"`
}

// ResourceDetail is the full canonical view of a resource.
type ResourceDetail struct {
	Summary    ResourceSummary   `json:"summary"`
	SourceID   string            `json:"source_id"`
	BodyText   string            `json:"body_text,omitempty"`
	BodyHTML   string            `json:"body_html,omitempty"`
	Images     []string          `json:"images,omitempty"`
	Price      *float64          `json:"price,omitempty"`
	Currency   string            `json:"currency,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	SEO        map[string]string `json:"seo,omitempty"`
	Locale     string            `json:"locale,omitempty"`
	Enriched   bool              `json:"enriched"`
}

// SyncInput is the input schema for the sync and sync_status tools.
type SyncInput struct {
	Source string `json:"source" jsonschema:"the platform: wordpress, shopify, drive or manual"`
}

// SyncOutput reports a sync job.
type SyncOutput struct {
	JobID     string `json:"job_id,omitempty"`
	Source    string `json:"source"`
	State     string `json:"state"`
	Processed int    `json:"processed"`
	Upserted  int    `json:"upserted"`
	Skipped   int    `json:"skipped"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// StageEditInput is the input schema for the stage_edit tool.
// Omitted fields are left unchanged.
type StageEditInput struct {
	ResourceID string            `json:"resource_id" jsonschema:"the hub resource id to edit"`
	Title      *string           `json:"title,omitempty" jsonschema:"new title"`
	Slug       *string           `json:"slug,omitempty" jsonschema:"new slug"`
	BodyHTML   *string           `json:"body_html,omitempty" jsonschema:"new HTML body; unsafe markup is removed"`
	Tags       []string          `json:"tags,omitempty" jsonschema:"replacement tag set"`
	SEO        map[string]string `json:"seo,omitempty" jsonschema:"SEO keys to set; an empty value removes the key"`
}

// StagedOutput is a compact view of a staged push.
type StagedOutput struct {
	ID         string   `json:"id"`
	ResourceID string   `json:"resource_id"`
	Source     string   `json:"source"`
	Status     string   `json:"status"`
	Fields     []string `json:"fields"`
	Attempts   int      `json:"attempts"`
	Error      string   `json:"error,omitempty"`
	CreatedAt  string   `json:"created_at"`
}

// ListStagedInput is the input schema for the list_staged tool.
type ListStagedInput struct {
	Status string `json:"status,omitempty" jsonschema:"filter by status: pending_approval, sending, sent, failed or rejected"`
}

// ListStagedOutput is the output schema for the list_staged tool.
type ListStagedOutput struct {
	Staged []StagedOutput `json:"staged"`
	Count  int            `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search the hub's pages, posts, products and files",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_resource",
		Description: "Fetch one hub resource with its full content",
	}, s.handleGetResource)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync",
		Description: "Queue a pull from a connected platform",
	}, s.handleSync)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_status",
		Description: "Report the latest sync job for a platform",
	}, s.handleSyncStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stage_edit",
		Description: "Stage an edit to a resource for human approval; nothing is sent to the platform",
	}, s.handleStageEdit)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_staged",
		Description: "List staged edits and their approval state",
	}, s.handleListStaged)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	rt, err := domain.ParseResourceType(input.Type)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	results, err := s.ports.Resources.Search(ctx, s.tenantID, input.Query, rt)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	if len(results) > limit {
		results = results[:limit]
	}

	output := SearchOutput{
		Results: make([]ResourceSummary, len(results)),
		Count:   len(results),
	}
	for i, r := range results {
		output.Results[i] = summarise(r)
	}
	return nil, output, nil
}

// handleGetResource handles the get_resource tool invocation.
func (s *Server) handleGetResource(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetResourceInput,
) (*mcp.CallToolResult, ResourceDetail, error) {
	r, err := s.ports.Resources.Get(ctx, s.tenantID, input.ID)
	if err != nil {
		return nil, ResourceDetail{}, err
	}
	return nil, detail(r), nil
}

// handleSync handles the sync tool invocation.
func (s *Server) handleSync(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SyncInput,
) (*mcp.CallToolResult, SyncOutput, error) {
	if s.ports.Sync == nil {
		return nil, SyncOutput{}, fmt.Errorf("sync: %w", errNotConfigured)
	}
	src, err := domain.ParseSource(input.Source)
	if err != nil {
		return nil, SyncOutput{}, err
	}
	ack, err := s.ports.Sync.TriggerSync(ctx, s.tenantID, src)
	if err != nil {
		return nil, SyncOutput{}, err
	}
	return nil, SyncOutput{
		JobID:  ack.JobID,
		Source: string(ack.Source),
		State:  string(domain.JobIdle),
	}, nil
}

// handleSyncStatus handles the sync_status tool invocation.
func (s *Server) handleSyncStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SyncInput,
) (*mcp.CallToolResult, SyncOutput, error) {
	if s.ports.Sync == nil {
		return nil, SyncOutput{}, fmt.Errorf("sync_status: %w", errNotConfigured)
	}
	src, err := domain.ParseSource(input.Source)
	if err != nil {
		return nil, SyncOutput{}, err
	}
	job, err := s.ports.Sync.Status(ctx, s.tenantID, src)
	if err != nil {
		return nil, SyncOutput{}, err
	}
	return nil, SyncOutput{
		JobID:     job.ID,
		Source:    string(job.Source),
		State:     string(job.State),
		Processed: job.Processed,
		Upserted:  job.Upserted,
		Skipped:   job.Skipped,
		Error:     job.Error,
		ErrorKind: string(job.ErrorKind),
	}, nil
}

// handleStageEdit handles the stage_edit tool invocation.
func (s *Server) handleStageEdit(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StageEditInput,
) (*mcp.CallToolResult, StagedOutput, error) {
	if s.ports.Pushback == nil {
		return nil, StagedOutput{}, fmt.Errorf("stage_edit: %w", errNotConfigured)
	}
	diff := domain.FieldDiff{
		Title:    input.Title,
		Slug:     input.Slug,
		BodyHTML: input.BodyHTML,
		Tags:     input.Tags,
		SEO:      input.SEO,
	}
	staged, err := s.ports.Pushback.Stage(ctx, s.tenantID, input.ResourceID, diff)
	if err != nil {
		return nil, StagedOutput{}, err
	}
	return nil, stagedOutput(staged), nil
}

// handleListStaged handles the list_staged tool invocation.
func (s *Server) handleListStaged(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListStagedInput,
) (*mcp.CallToolResult, ListStagedOutput, error) {
	if s.ports.Pushback == nil {
		return nil, ListStagedOutput{}, fmt.Errorf("list_staged: %w", errNotConfigured)
	}
	status, err := domain.ParseStagedStatus(input.Status)
	if err != nil {
		return nil, ListStagedOutput{}, err
	}
	staged, err := s.ports.Pushback.List(ctx, s.tenantID, status)
	if err != nil {
		return nil, ListStagedOutput{}, err
	}
	output := ListStagedOutput{
		Staged: make([]StagedOutput, len(staged)),
		Count:  len(staged),
	}
	for i, p := range staged {
		output.Staged[i] = stagedOutput(p)
	}
	return nil, output, nil
}

func summarise(r *domain.HubResource) ResourceSummary {
	return ResourceSummary{
		ID:         r.ID,
		Source:     string(r.Source),
		SourceSite: r.SourceSite,
		Type:       string(r.Type),
		Title:      r.Title,
		Slug:       r.Slug,
		URL:        r.URL,
		Tags:       r.Tags,
		Snippet:    snippet(r.BodyText, snippetLength),
		UpdatedAt:  r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func detail(r *domain.HubResource) ResourceDetail {
	return ResourceDetail{
		Summary:    summarise(r),
		SourceID:   r.SourceID,
		BodyText:   r.BodyText,
		BodyHTML:   r.BodyHTML,
		Images:     r.Images,
		Price:      r.Price,
		Currency:   r.Currency,
		Attributes: r.Attributes,
		SEO:        r.SEO,
		Locale:     r.Locale,
		Enriched:   len(r.Embedding) > 0,
	}
}

func stagedOutput(p *domain.StagedPush) StagedOutput {
	fields := p.Diff.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return StagedOutput{
		ID:         p.ID,
		ResourceID: p.ResourceID,
		Source:     string(p.Source),
		Status:     string(p.Status),
		Fields:     names,
		Attempts:   p.Attempts,
		Error:      p.Error,
		CreatedAt:  p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// snippet truncates text to at most n runes.
func snippet(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "…"
}
