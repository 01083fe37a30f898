// Package watch follows a transcript directory live: fsnotify events on
// JSONL files trigger incremental parsing, and newly appended entries run
// through the same sweep and admission pipeline as a backfill.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/backfill"
	"github.com/papercomputeco/engram/pkg/engine"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/sweep"
)

// DefaultDebounce is how long a file must stay quiet before its new
// entries are processed. Transcript writers append in bursts.
const DefaultDebounce = 500 * time.Millisecond

// Config tunes watcher behavior.
type Config struct {
	// Debounce per file; zero means DefaultDebounce.
	Debounce time.Duration

	// ReplayExisting processes content already present when the watch
	// starts. Off by default since that is backfill's job.
	ReplayExisting bool
}

// Watcher tails transcript files and feeds appended entries into the
// extraction pipeline.
type Watcher struct {
	storer    storage.Driver
	extractor *sweep.Extractor
	engine    *engine.Engine
	config    Config
	logger    *zap.Logger

	mu      sync.Mutex
	offsets map[string]int // processed entry count per file
	timers  map[string]*time.Timer
}

// New wires a Watcher over an already-open storage driver and engine; the
// caller keeps ownership of both.
func New(storer storage.Driver, extractor *sweep.Extractor, eng *engine.Engine, cfg Config, logger *zap.Logger) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Watcher{
		storer:    storer,
		extractor: extractor,
		engine:    eng,
		config:    cfg,
		logger:    logger,
		offsets:   make(map[string]int),
		timers:    make(map[string]*time.Timer),
	}
}

// Run watches the transcript directory until the context is canceled.
// Subdirectories are watched too, including ones created while running.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating transcript watcher: %w", err)
	}
	defer watcher.Close()

	if err := w.addTree(watcher, dir); err != nil {
		return err
	}

	if !w.config.ReplayExisting {
		if err := w.primeOffsets(dir); err != nil {
			return err
		}
	}

	// Debounce timers deliver quiesced paths here so all processing
	// happens on this goroutine.
	ready := make(chan string, 64)

	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(watcher, event.Name); err != nil {
						w.logger.Warn("failed to watch new directory",
							zap.String("dir", event.Name),
							zap.Error(err),
						)
					}
					continue
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, ".jsonl") {
				continue
			}
			w.schedule(event.Name, ready)

		case path := <-ready:
			if err := w.processFile(ctx, path); err != nil {
				w.logger.Warn("failed to process transcript",
					zap.String("file", path),
					zap.Error(err),
				)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("transcript watcher error: %w", err)
		}
	}
}

func (w *Watcher) addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("watching %s: %w", path, err)
			}
		}
		return nil
	})
}

// primeOffsets records the current length of every transcript so only
// entries appended after startup are processed.
func (w *Watcher) primeOffsets(dir string) error {
	files, err := backfill.ScanTranscriptDir(dir)
	if err != nil {
		return fmt.Errorf("scanning transcript directory: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, f := range files {
		entries, err := backfill.ParseTranscript(f)
		if err != nil {
			w.logger.Warn("skipping unreadable transcript", zap.String("file", f), zap.Error(err))
			continue
		}
		w.offsets[f] = len(entries)
	}
	return nil
}

// schedule resets the file's debounce timer; the path is delivered on
// ready once writes go quiet.
func (w *Watcher) schedule(path string, ready chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Reset(w.config.Debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.config.Debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		select {
		case ready <- path:
		default:
			// Channel full; the next write reschedules the file.
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
}

// processFile re-parses the transcript and runs entries past the saved
// offset through extraction and admission.
func (w *Watcher) processFile(ctx context.Context, path string) error {
	entries, err := backfill.ParseTranscript(path)
	if err != nil {
		return fmt.Errorf("parsing transcript: %w", err)
	}

	w.mu.Lock()
	offset := w.offsets[path]
	if offset > len(entries) {
		// File was truncated or rewritten; start over from the top.
		offset = 0
	}
	fresh := entries[offset:]
	w.offsets[path] = len(entries)
	w.mu.Unlock()

	if len(fresh) == 0 {
		return nil
	}

	for _, batch := range groupBySession(fresh) {
		if err := w.processBatch(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

type sessionBatch struct {
	sessionID string
	project   string
	events    []memory.Event
}

func groupBySession(entries []backfill.TranscriptEntry) []sessionBatch {
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
		batches = append(batches, *byID[id])
	}
	return batches
}

func (w *Watcher) processBatch(ctx context.Context, batch sessionBatch) error {
	watermark, err := w.ensureSession(ctx, batch)
	if err != nil {
		return err
	}

	if err := w.storer.PutEvents(ctx, batch.events); err != nil {
		return fmt.Errorf("storing events: %w", err)
	}

	candidates := w.extractor.Extract(batch.events)
	units, err := w.engine.ProcessCandidates(ctx, candidates, engine.ProcessOptions{
		SessionID:    batch.sessionID,
		ProjectScope: batch.project,
	})
	if err != nil {
		return fmt.Errorf("processing candidates: %w", err)
	}

	if err := w.storer.TouchWatermark(ctx, batch.sessionID, watermark+len(batch.events)); err != nil {
		w.logger.Warn("failed to advance watermark",
			zap.String("session_id", batch.sessionID),
			zap.Error(err),
		)
	}

	if len(units) > 0 {
		w.logger.Info("captured memories from live transcript",
			zap.String("session_id", batch.sessionID),
			zap.Int("events", len(batch.events)),
			zap.Int("units", len(units)),
		)
	}
	return nil
}

// ensureSession creates the session on first sight and returns the
// current event watermark.
func (w *Watcher) ensureSession(ctx context.Context, batch sessionBatch) (int, error) {
	session, err := w.storer.GetSession(ctx, batch.sessionID)
	if err == nil {
		return session.MessageWatermark, nil
	}
	if !storage.IsNotFound(err) {
		return 0, fmt.Errorf("looking up session: %w", err)
	}

	started := time.Now().UTC()
	if len(batch.events) > 0 {
		started = batch.events[0].Timestamp
	}
	create := memory.Session{
		ID:        batch.sessionID,
		Project:   batch.project,
		StartedAt: started,
		Status:    memory.SessionActive,
	}
	if err := w.storer.CreateSession(ctx, create); err != nil {
		return 0, fmt.Errorf("creating session: %w", err)
	}
	return 0, nil
}
