package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/engine"
	"github.com/papercomputeco/engram/pkg/memory"
)

var (
	retrieveToolName    = "memory_retrieve"
	retrieveDescription = "Retrieve the most relevant memories for the current working context. Returns a small, conflict-filtered set of remembered preferences, constraints, decisions, bugfixes, and learnings, scoped to the given project plus user-level memories."
)

// RetrieveInput represents the input arguments for the memory_retrieve tool.
type RetrieveInput struct {
	Query     string `json:"query,omitempty" jsonschema:"free text describing the current task, used to rank memories by relevance"`
	Project   string `json:"project,omitempty" jsonschema:"absolute path of the current project, widens the pool with project-scoped memories"`
	SessionID string `json:"session_id,omitempty" jsonschema:"current session id for retrieval logging"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of memories to return (default: full budget)"`
}

// RetrievedMemory is one memory in the injection set.
type RetrievedMemory struct {
	ID             string                `json:"id"`
	Summary        string                `json:"summary"`
	Classification memory.Classification `json:"classification"`
	Store          memory.StoreClass     `json:"store"`
	Strength       float64               `json:"strength"`
	Tags           []string              `json:"tags,omitempty"`
}

// RetrieveOutput represents the output of the memory_retrieve tool.
type RetrieveOutput struct {
	Memories   []RetrievedMemory `json:"memories"`
	Suppressed int               `json:"suppressed"`
	Count      int               `json:"count"`
}

// handleRetrieve processes a memory retrieval request.
func (s *Server) handleRetrieve(ctx context.Context, req *mcp.CallToolRequest, input RetrieveInput) (*mcp.CallToolResult, RetrieveOutput, error) {
	logger := s.config.Logger

	logger.Debug("MCP retrieve request",
		zap.String("query", input.Query),
		zap.String("project", input.Project),
	)

	set, err := s.config.Engine.Retrieve(ctx, engine.RetrieveOptions{
		SessionID:      input.SessionID,
		CurrentProject: input.Project,
		Query:          input.Query,
		Limit:          input.Limit,
	})
	if err != nil {
		logger.Error("retrieval failed", zap.Error(err))
		return toolError(fmt.Sprintf("Retrieval failed: %v", err)), RetrieveOutput{}, nil
	}

	memories := make([]RetrievedMemory, 0, len(set.Units))
	for _, u := range set.Units {
		memories = append(memories, RetrievedMemory{
			ID:             u.ID,
			Summary:        u.Summary,
			Classification: u.Classification,
			Store:          u.Store,
			Strength:       u.Strength,
			Tags:           u.Tags,
		})
	}

	output := RetrieveOutput{
		Memories:   memories,
		Suppressed: len(set.Suppressed),
		Count:      len(memories),
	}

	return toolResult(output, logger)
}

// toolError builds an error CallToolResult in the shape MCP clients expect.
func toolError(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// toolResult serializes structured output as JSON for the text field.
// Per MCP spec: tools returning structured content should also return
// serialized JSON in a TextContent block for backwards compatibility.
func toolResult[T any](output T, logger *zap.Logger) (*mcp.CallToolResult, T, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal tool output", zap.Error(err))
		var zero T
		return toolError(fmt.Sprintf("Failed to serialize results: %v", err)), zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
