package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/engine"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage"
)

// IngestRequest is the body of POST /v1/events: a batch of raw session
// events to sweep for memory candidates.
type IngestRequest struct {
	SessionID string        `json:"session_id"`
	Project   string        `json:"project"`
	Events    []IngestEvent `json:"events"`
}

// IngestEvent is one captured hook event.
type IngestEvent struct {
	HookType   memory.HookType `json:"hook_type"`
	Content    string          `json:"content"`
	ToolName   string          `json:"tool_name,omitempty"`
	ToolInput  string          `json:"tool_input,omitempty"`
	ToolOutput string          `json:"tool_output,omitempty"`
	Timestamp  *time.Time      `json:"timestamp,omitempty"`
}

// IngestResponse reports what the sweep and admission pass produced.
type IngestResponse struct {
	Events       int           `json:"events"`
	Candidates   int           `json:"candidates"`
	UnitsCreated int           `json:"units_created"`
	Units        []memory.Unit `json:"units,omitempty"`
}

// FeedbackRequest is the body of POST /v1/feedback.
type FeedbackRequest struct {
	MemoryID string              `json:"memory_id"`
	Type     memory.FeedbackType `json:"type"`
	Content  string              `json:"content,omitempty"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleIngestEvents runs a batch of session events through extraction
// and admission.
func (s *Server) handleIngestEvents(c *fiber.Ctx) error {
	var req IngestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "session_id is required"})
	}
	if len(req.Events) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "events must not be empty"})
	}

	ctx := c.Context()

	events := make([]memory.Event, 0, len(req.Events))
	for _, in := range req.Events {
		event := memory.NewEvent(req.SessionID, in.HookType, in.Content)
		event.ToolName = in.ToolName
		event.ToolInput = in.ToolInput
		event.ToolOutput = in.ToolOutput
		if in.Timestamp != nil {
			event.Timestamp = in.Timestamp.UTC()
		}
		events = append(events, event)
	}

	watermark, err := s.ensureSession(c, req.SessionID, req.Project, events[0].Timestamp)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to resolve session"})
	}

	if err := s.storer.PutEvents(ctx, events); err != nil {
		s.logger.Error("failed to store events", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to store events"})
	}

	candidates := s.extractor.Extract(events)
	units, err := s.engine.ProcessCandidates(ctx, candidates, engine.ProcessOptions{
		SessionID:    req.SessionID,
		ProjectScope: req.Project,
	})
	if err != nil {
		s.logger.Error("failed to process candidates", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to process candidates"})
	}

	if err := s.storer.TouchWatermark(ctx, req.SessionID, watermark+len(events)); err != nil {
		s.logger.Warn("failed to advance watermark",
			zap.String("session_id", req.SessionID),
			zap.Error(err),
		)
	}

	return c.JSON(IngestResponse{
		Events:       len(events),
		Candidates:   len(candidates),
		UnitsCreated: len(units),
		Units:        units,
	})
}

func (s *Server) ensureSession(c *fiber.Ctx, sessionID, project string, startedAt time.Time) (int, error) {
	ctx := c.Context()

	session, err := s.storer.GetSession(ctx, sessionID)
	if err == nil {
		return session.MessageWatermark, nil
	}
	if !storage.IsNotFound(err) {
		return 0, err
	}

	create := memory.Session{
		ID:        sessionID,
		Project:   project,
		StartedAt: startedAt,
		Status:    memory.SessionActive,
	}
	return 0, s.storer.CreateSession(ctx, create)
}

// handleListMemories returns memory units matching the query filters.
func (s *Server) handleListMemories(c *fiber.Ctx) error {
	q := storage.UnitQuery{
		Project:         c.Query("project"),
		Store:           memory.StoreClass(c.Query("store")),
		Status:          memory.Status(c.Query("status")),
		Classification:  memory.Classification(c.Query("classification")),
		Tag:             c.Query("tag"),
		Search:          c.Query("q"),
		Limit:           c.QueryInt("limit"),
		Offset:          c.QueryInt("offset"),
		OrderByStrength: c.QueryBool("by_strength"),
	}

	units, err := s.storer.ListUnits(c.Context(), q)
	if err != nil {
		s.logger.Error("failed to list memories", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list memories"})
	}

	return c.JSON(map[string]any{
		"count":    len(units),
		"memories": units,
	})
}

// handleGetMemory returns a single memory unit by id.
func (s *Server) handleGetMemory(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id parameter required"})
	}

	unit, err := s.storer.GetUnit(c.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "memory not found"})
		}
		s.logger.Error("failed to get memory", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to get memory"})
	}

	return c.JSON(unit)
}

// handleRetrieve returns the budgeted, conflict-filtered injection set for
// a session context.
func (s *Server) handleRetrieve(c *fiber.Ctx) error {
	set, err := s.engine.Retrieve(c.Context(), engine.RetrieveOptions{
		SessionID:      c.Query("session_id"),
		CurrentProject: c.Query("project"),
		Query:          c.Query("query"),
		Limit:          c.QueryInt("limit"),
	})
	if err != nil {
		s.logger.Error("retrieval failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "retrieval failed"})
	}

	return c.JSON(set)
}

// handleFeedback applies an explicit user judgement to a memory.
func (s *Server) handleFeedback(c *fiber.Ctx) error {
	var req FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.MemoryID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "memory_id is required"})
	}
	if !req.Type.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "type must be pin, forget, or remember"})
	}

	if err := s.engine.AddFeedback(c.Context(), req.Type, req.MemoryID, req.Content); err != nil {
		if storage.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "memory not found"})
		}
		s.logger.Error("feedback failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "feedback failed"})
	}

	return c.JSON(map[string]any{"status": "ok"})
}

// handleDecay runs one decay pass over active memories.
func (s *Server) handleDecay(c *fiber.Ctx) error {
	result, err := s.engine.ApplyDecay(c.Context())
	if err != nil {
		s.logger.Error("decay pass failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "decay pass failed"})
	}
	return c.JSON(result)
}

// handleConsolidate runs one consolidation pass over the short-term store.
func (s *Server) handleConsolidate(c *fiber.Ctx) error {
	result, err := s.engine.RunConsolidation(c.Context())
	if err != nil {
		s.logger.Error("consolidation pass failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "consolidation pass failed"})
	}
	return c.JSON(result)
}

// handleStats summarizes the store contents.
func (s *Server) handleStats(c *fiber.Ctx) error {
	stats, err := s.storer.Stats(c.Context())
	if err != nil {
		s.logger.Error("failed to compute stats", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to compute stats"})
	}
	return c.JSON(stats)
}
