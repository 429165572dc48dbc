// Package driving defines interfaces that external actors (CLI, MCP tools)
// use to interact with core services. These are the "driving" ports in
// hexagonal architecture terminology - they drive the application.
//
// Every operation takes the tenant id as an explicit parameter.
//
// Implementations of these interfaces live in internal/core/services.
package driving
