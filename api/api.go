package api

import (
	"errors"
	"fmt"
	"net"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/api/mcp"
	"github.com/papercomputeco/engram/pkg/engine"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/sweep"
)

// Server is the API server for capturing events and querying memories.
type Server struct {
	config    Config
	storer    storage.Driver
	engine    *engine.Engine
	extractor *sweep.Extractor
	logger    *zap.Logger
	app       *fiber.App
}

// NewServer creates a new API server.
// The storer and engine are injected to allow sharing with other
// components (e.g., the live transcript watcher).
func NewServer(config Config, storer storage.Driver, eng *engine.Engine, logger *zap.Logger) (*Server, error) {
	if storer == nil {
		return nil, errors.New("storage driver is required")
	}
	if eng == nil {
		return nil, errors.New("engine is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    config,
		storer:    storer,
		engine:    eng,
		extractor: sweep.New(sweep.Config{}, logger),
		logger:    logger,
		app:       app,
	}

	app.Get("/ping", s.handlePing)

	app.Post("/v1/events", s.handleIngestEvents)
	app.Get("/v1/memories", s.handleListMemories)
	app.Get("/v1/memories/:id", s.handleGetMemory)
	app.Get("/v1/retrieve", s.handleRetrieve)
	app.Post("/v1/feedback", s.handleFeedback)
	app.Post("/v1/maintenance/decay", s.handleDecay)
	app.Post("/v1/maintenance/consolidate", s.handleConsolidate)
	app.Get("/v1/search", s.handleSearchEndpoint)
	app.Get("/v1/stats", s.handleStats)

	mcpServer, err := mcp.NewServer(mcp.Config{
		Engine: eng,
		Noop:   config.MCPNoop,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating mcp server: %w", err)
	}
	if handler := mcpServer.Handler(); handler != nil {
		app.All("/mcp", adaptor.HTTPHandler(handler))
	}

	return s, nil
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the API server on an already-bound listener.
func (s *Server) RunWithListener(ln net.Listener) error {
	s.logger.Info("starting API server",
		zap.String("listen", ln.Addr().String()),
	)
	return s.app.Listener(ln)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
