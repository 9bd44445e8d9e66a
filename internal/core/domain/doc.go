// Package domain defines the core business entities for drivesync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Project: A workspace whose documents are synced from Drive
//   - Integration: A project's persisted Drive authorization
//   - SelectedItem: A Drive file or folder chosen for sync
//   - IngestionRecord: One attempt to feed a file version to the pipeline
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
package domain
