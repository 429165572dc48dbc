// Package domain defines the core business entities for sercha-hub.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - HubResource: the canonical resource every automation operates on
//   - Connection: platform connection parameters for one tenant site
//   - SyncJob: the state and summary of one (tenant, source) pull job
//   - StagedPush: an automation edit held for approval before push-back
//   - SiteIntegration: per-site instrumentation configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
