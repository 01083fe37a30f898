package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage"
)

var (
	feedbackToolName    = "memory_feedback"
	feedbackDescription = "Give feedback on a retrieved memory. Pin it so it never decays, forget it so it is never surfaced again, or mark it remember to boost its importance and move it to long-term storage."
)

// FeedbackInput represents the input arguments for the memory_feedback tool.
type FeedbackInput struct {
	MemoryID string `json:"memory_id" jsonschema:"id of the memory the feedback applies to"`
	Type     string `json:"type" jsonschema:"one of pin, forget, remember"`
	Content  string `json:"content,omitempty" jsonschema:"optional free-form note explaining the judgement"`
}

// FeedbackOutput represents the output of the memory_feedback tool.
type FeedbackOutput struct {
	MemoryID string `json:"memory_id"`
	Type     string `json:"type"`
	Applied  bool   `json:"applied"`
}

// handleFeedback processes a memory feedback request.
func (s *Server) handleFeedback(ctx context.Context, req *mcp.CallToolRequest, input FeedbackInput) (*mcp.CallToolResult, FeedbackOutput, error) {
	logger := s.config.Logger

	if input.MemoryID == "" {
		return toolError("memory_id is required"), FeedbackOutput{}, nil
	}

	fbType := memory.FeedbackType(input.Type)
	if !fbType.Valid() {
		return toolError(fmt.Sprintf("type must be pin, forget, or remember, got %q", input.Type)), FeedbackOutput{}, nil
	}

	if err := s.config.Engine.AddFeedback(ctx, fbType, input.MemoryID, input.Content); err != nil {
		if storage.IsNotFound(err) {
			return toolError(fmt.Sprintf("memory not found: %s", input.MemoryID)), FeedbackOutput{}, nil
		}
		logger.Error("feedback failed", zap.Error(err))
		return toolError(fmt.Sprintf("Feedback failed: %v", err)), FeedbackOutput{}, nil
	}

	return toolResult(FeedbackOutput{
		MemoryID: input.MemoryID,
		Type:     input.Type,
		Applied:  true,
	}, logger)
}
