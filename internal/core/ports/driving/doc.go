// Package driving holds the use-case interfaces the CLI, TUI and MCP server
// call into: search, ingestion and settings. internal/core/services
// implements them; adapters depend only on these interfaces so tests can
// swap in mocks.
package driving
