// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Adapter: Pulls, maps and pushes back resources for one source platform
//   - ResourceStore: Tenant-scoped canonical resource persistence
//   - ConnectionStore: Platform connection persistence
//   - SyncJobStore: Sync job summary persistence
//   - StagingStore: Push-back payload persistence
//   - SiteIntegrationStore: Site instrumentation configuration persistence
//   - SchedulerStore: Scheduled task and result persistence
//   - JobQueue: Background execution of sync and enrichment tasks
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, the
//     deterministic hash embedding is used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
