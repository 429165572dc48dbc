package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for hub resources.
	uriScheme = "hub://"

	mimeJSON = "application/json"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "staged",
		Name:        "staged",
		Description: "Edits waiting for approval",
		MIMEType:    mimeJSON,
	}, s.handleStagedResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "resources/{resourceId}",
		Name:        "resource",
		Description: "One canonical hub resource",
		MIMEType:    mimeJSON,
	}, s.handleResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "sites/{siteId}",
		Name:        "site-integration",
		Description: "Analytics, consent, replay and feedback settings of a site",
		MIMEType:    mimeJSON,
	}, s.handleSiteResource)
}

// handleStagedResource returns the pending staged edits.
func (s *Server) handleStagedResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Pushback == nil {
		return jsonResult(req.Params.URI, []StagedOutput{})
	}

	staged, err := s.ports.Pushback.List(ctx, s.tenantID, domain.StagedPending)
	if err != nil {
		return nil, fmt.Errorf("listing staged edits: %w", err)
	}
	out := make([]StagedOutput, len(staged))
	for i, p := range staged {
		out[i] = stagedOutput(p)
	}
	return jsonResult(req.Params.URI, out)
}

// handleResource returns one resource as JSON.
func (s *Server) handleResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id := extractID(req.Params.URI, "resources/")
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	r, err := s.ports.Resources.Get(ctx, s.tenantID, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting resource: %w", err)
	}
	return jsonResult(req.Params.URI, detail(r))
}

// handleSiteResource returns a site integration as JSON.
func (s *Server) handleSiteResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Sites == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	siteID := extractID(req.Params.URI, "sites/")
	if siteID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	site, err := s.ports.Sites.Get(ctx, s.tenantID, siteID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting site integration: %w", err)
	}
	return jsonResult(req.Params.URI, site)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: mimeJSON,
			Text:     string(data),
		}},
	}, nil
}

// extractID returns the single path segment after hub://{collection}.
func extractID(uri, collection string) string {
	prefix := uriScheme + collection
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
