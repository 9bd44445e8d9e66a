// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Vault: Authenticated encryption of token payloads
//   - TokenExchanger: OAuth code exchange, refresh and userinfo
//   - DriveFiles: Drive listing and metadata lookups
//   - IntegrationStore, TempTokenStore, SelectionStore: Authorization state
//   - IngestionStore, ProjectStore, SchedulerStore: Sync bookkeeping
//   - BlobStore: Staged file content
//   - IngestionPipeline: Downstream job submission
//   - ContentFetcher: Service-account file download and export
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - GroupDirectory: Google Group provisioning. Without it, group
//     commands fail and group-shared files are not synced.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
