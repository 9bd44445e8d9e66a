// Package memory provides in-memory implementations of the driven store
// interfaces. They back `--data-dir :memory:` runs and service tests.
package memory
