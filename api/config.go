// Package api provides the HTTP API server for capturing events, querying
// memories, and driving maintenance on the selective memory engine.
package api

import (
	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/vector"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// VectorDriver enables semantic search when set.
	VectorDriver vector.Driver

	// Embedder converts query text to vectors for semantic search with
	// the configured VectorDriver.
	Embedder embeddings.Embedder

	// MCPNoop mounts an empty MCP server with no tools configured.
	MCPNoop bool
}

// ErrorResponse is the JSON error body every handler returns on failure.
type ErrorResponse struct {
	Error string `json:"error"`
}
