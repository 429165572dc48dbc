package mcp

import (
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Resources provides search and lookup.
	Resources driving.ResourceService

	// Sync triggers and reports pull jobs.
	Sync driving.SyncOrchestrator

	// Pushback stages edits for approval.
	Pushback driving.PushbackService

	// Sites reads site integration settings.
	Sites driving.SiteIntegrationService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Resources == nil {
		return ErrMissingResourceService
	}
	// The remaining ports are optional; their tools report errNotConfigured.
	return nil
}
