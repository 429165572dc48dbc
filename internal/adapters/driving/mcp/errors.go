// Package mcp provides an MCP (Model Context Protocol) server adapter for the hub.
// It lets AI assistants search the tenant's resources, trigger syncs and stage
// edits for human approval. Committing a staged edit is not exposed.
package mcp

import "errors"

var (
	// ErrMissingResourceService is returned when the resource service is not provided.
	ErrMissingResourceService = errors.New("mcp: resource service is required")

	// ErrMissingTenant is returned when the server is not scoped to a tenant.
	ErrMissingTenant = errors.New("mcp: tenant is required")

	// errNotConfigured is returned by tools whose service was not provided.
	errNotConfigured = errors.New("not available on this server")
)
