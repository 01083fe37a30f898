package backfill

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/engine"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/sweep"
)

// Options configures backfill behavior.
type Options struct {
	// DryRun extracts candidates but persists nothing.
	DryRun bool

	// Verbose prints per-file progress.
	Verbose bool
}

// Backfiller replays transcript history through the extraction pipeline.
type Backfiller struct {
	storer    storage.Driver
	extractor *sweep.Extractor
	engine    *engine.Engine
	options   Options
	logger    *zap.Logger
}

// NewBackfiller wires a Backfiller over an already-open storage driver and
// engine; the caller keeps ownership of both.
func NewBackfiller(storer storage.Driver, extractor *sweep.Extractor, eng *engine.Engine, opts Options, logger *zap.Logger) *Backfiller {
	return &Backfiller{
		storer:    storer,
		extractor: extractor,
		engine:    eng,
		options:   opts,
		logger:    logger,
	}
}

// Run scans the transcript directory and feeds every session's events
// through the sweep and admission pipeline. A file that fails to parse is
// skipped, never fatal.
func (b *Backfiller) Run(ctx context.Context, transcriptDir string) (*Result, error) {
	files, err := ScanTranscriptDir(transcriptDir)
	if err != nil {
		return nil, fmt.Errorf("scanning transcript directory: %w", err)
	}

	result := &Result{TranscriptFiles: len(files)}

	for _, f := range files {
		entries, err := ParseTranscript(f)
		if err != nil {
			if b.options.Verbose {
				fmt.Printf("  warning: skipping %s: %v\n", f, err)
			}
			b.logger.Warn("skipping transcript", zap.String("file", f), zap.Error(err))
			continue
		}
		result.TranscriptEntries += len(entries)

		if err := b.processEntries(ctx, entries, result); err != nil {
			return result, err
		}

		if b.options.Verbose {
			fmt.Printf("  %s: %d entries\n", f, len(entries))
		}
	}

	return result, nil
}

// sessionBatch groups one transcript session's events with its project.
type sessionBatch struct {
	sessionID string
	project   string
	events    []memory.Event
}

func (b *Backfiller) processEntries(ctx context.Context, entries []TranscriptEntry, result *Result) error {
	batches := groupBySession(entries)

	for _, batch := range batches {
		result.Events += len(batch.events)

		candidates := b.extractor.Extract(batch.events)
		result.Candidates += len(candidates)

		if b.options.DryRun {
			continue
		}

		if err := b.ensureSession(ctx, batch); err != nil {
			return err
		}
		if err := b.storer.PutEvents(ctx, batch.events); err != nil {
			return fmt.Errorf("storing events: %w", err)
		}

		units, err := b.engine.ProcessCandidates(ctx, candidates, engine.ProcessOptions{
			SessionID:    batch.sessionID,
			ProjectScope: batch.project,
		})
		if err != nil {
			return fmt.Errorf("processing candidates: %w", err)
		}
		result.UnitsCreated += len(units)

		// Watermark past everything just swept so a rerun skips it.
		if err := b.storer.TouchWatermark(ctx, batch.sessionID, len(batch.events)); err != nil {
			b.logger.Warn("failed to advance watermark",
				zap.String("session_id", batch.sessionID),
				zap.Error(err),
			)
		}
	}

	result.Sessions += len(batches)
	return nil
}

// ensureSession creates the session record on first sight of a transcript
// session; reruns find the existing row and continue.
func (b *Backfiller) ensureSession(ctx context.Context, batch sessionBatch) error {
	_, err := b.storer.GetSession(ctx, batch.sessionID)
	if err == nil {
		return nil
	}
	if !storage.IsNotFound(err) {
		return fmt.Errorf("looking up session: %w", err)
	}

	session := memory.Session{
		ID:        batch.sessionID,
		Project:   batch.project,
		StartedAt: sessionStart(batch.events),
		Status:    memory.SessionCompleted,
	}
	if err := b.storer.CreateSession(ctx, session); err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

func groupBySession(entries []TranscriptEntry) []sessionBatch {
	byID := make(map[string]*sessionBatch)
	var order []string

	for i := range entries {
		entry := entries[i]
		event, ok := entry.Event()
		if !ok {
			continue
		}

		id := entry.SessionID
		if id == "" {
			id = "transcript-unknown"
			event.SessionID = id
		}

		batch, seen := byID[id]
		if !seen {
			batch = &sessionBatch{sessionID: id, project: entry.Cwd}
			byID[id] = batch
			order = append(order, id)
		}
		if batch.project == "" {
			batch.project = entry.Cwd
		}
		batch.events = append(batch.events, event)
	}

	batches := make([]sessionBatch, 0, len(order))
	for _, id := range order {
		batch := *byID[id]
		sort.SliceStable(batch.events, func(i, j int) bool {
			return batch.events[i].Timestamp.Before(batch.events[j].Timestamp)
		})
		batches = append(batches, batch)
	}
	return batches
}

func sessionStart(events []memory.Event) time.Time {
	if len(events) == 0 {
		return time.Now().UTC()
	}
	start := events[0].Timestamp
	for _, e := range events[1:] {
		if e.Timestamp.Before(start) {
			start = e.Timestamp
		}
	}
	return start
}
