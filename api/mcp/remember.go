package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/engine"
	"github.com/papercomputeco/engram/pkg/memory"
)

var (
	rememberToolName    = "memory_remember"
	rememberDescription = "Explicitly store a memory. Use when the user asks to remember something, or when a preference, constraint, decision, bugfix, or learning is clearly worth keeping across sessions."
)

// RememberInput represents the input arguments for the memory_remember tool.
type RememberInput struct {
	Summary        string   `json:"summary" jsonschema:"one self-contained sentence stating the fact to remember"`
	Classification string   `json:"classification,omitempty" jsonschema:"one of preference, constraint, decision, bugfix, learning, procedural, semantic, episodic (default: semantic)"`
	Project        string   `json:"project,omitempty" jsonschema:"absolute path of the project this memory is scoped to, ignored for user-level classifications"`
	SessionID      string   `json:"session_id,omitempty" jsonschema:"current session id"`
	Tags           []string `json:"tags,omitempty" jsonschema:"short lowercase topic tags"`
}

// RememberOutput represents the output of the memory_remember tool.
type RememberOutput struct {
	ID         string            `json:"id,omitempty"`
	Store      memory.StoreClass `json:"store,omitempty"`
	Reinforced bool              `json:"reinforced"`
}

// handleRemember processes an explicit remember request.
func (s *Server) handleRemember(ctx context.Context, req *mcp.CallToolRequest, input RememberInput) (*mcp.CallToolResult, RememberOutput, error) {
	logger := s.config.Logger

	summary := strings.TrimSpace(input.Summary)
	if summary == "" {
		return toolError("summary is required"), RememberOutput{}, nil
	}

	class := memory.Classification(input.Classification)
	if input.Classification == "" {
		class = memory.ClassSemantic
	}
	if !validClassification(class) {
		return toolError(fmt.Sprintf("unknown classification: %q", input.Classification)), RememberOutput{}, nil
	}

	// An explicit request is the strongest admission signal there is.
	candidate := memory.Candidate{
		Summary:               summary,
		Classification:        class,
		PreliminaryImportance: 1.0,
		Confidence:            1.0,
		ExtractionMethod:      memory.ExtractedByRequest,
		Tags:                  input.Tags,
	}

	units, err := s.config.Engine.ProcessCandidates(ctx, []memory.Candidate{candidate}, engine.ProcessOptions{
		SessionID:    input.SessionID,
		ProjectScope: input.Project,
	})
	if err != nil {
		logger.Error("remember failed", zap.Error(err))
		return toolError(fmt.Sprintf("Remember failed: %v", err)), RememberOutput{}, nil
	}

	output := RememberOutput{Reinforced: len(units) == 0}
	if len(units) > 0 {
		output.ID = units[0].ID
		output.Store = units[0].Store
	}

	return toolResult(output, logger)
}

func validClassification(c memory.Classification) bool {
	switch c {
	case memory.ClassPreference, memory.ClassConstraint, memory.ClassDecision,
		memory.ClassBugfix, memory.ClassLearning, memory.ClassProcedural,
		memory.ClassSemantic, memory.ClassEpisodic:
		return true
	}
	return false
}
