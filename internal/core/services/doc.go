// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The token, listing and sync services together move files from a
// project's Drive selection into the ingestion pipeline. The scheduler
// runs them unattended.
package services
