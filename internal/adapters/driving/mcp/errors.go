// Package mcp provides an MCP (Model Context Protocol) server adapter.
// It lets AI assistants search the local semantic index and add documents to it.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrIndexUnavailable is returned by ingest and stats tools when no index service is set.
var ErrIndexUnavailable = errors.New("mcp: index service is not configured")
