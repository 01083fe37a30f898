// Package local opens the on-disk memory store and engine for commands
// that run the pipeline directly, without a running server.
package local

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/engine"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/storage/sqlite"
)

// Open creates a SQLite-backed storage driver and an engine over it.
// The returned cleanup closes both.
func Open(dbPath string, logger *zap.Logger) (storage.Driver, *engine.Engine, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	storer, err := sqlite.NewSQLiteDriver(dbPath, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database %s: %w", dbPath, err)
	}

	eng, err := engine.New(engine.Options{
		Storer: storer,
		Logger: logger,
	})
	if err != nil {
		_ = storer.Close()
		return nil, nil, nil, fmt.Errorf("creating engine: %w", err)
	}

	cleanup := func() {
		_ = eng.Close()
		_ = storer.Close()
	}
	return storer, eng, cleanup, nil
}
