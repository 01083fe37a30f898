// Package ingestcmder provides the ingest command for feeding session
// events through the extraction pipeline without a running server.
package ingestcmder

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	dbpathcmder "github.com/papercomputeco/engram/cmd/engram/dbpath"
	"github.com/papercomputeco/engram/cmd/engram/local"
	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/engine"
	"github.com/papercomputeco/engram/pkg/git"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/sweep"
)

const ingestLongDesc string = `Feed session events through the memory pipeline.

Reads JSON lines of events from a file or stdin, sweeps them for memory
candidates, and admits what survives into the local store. Each line is an
event object; at minimum it needs "hook_type" and "content".

Examples:
  engram ingest events.jsonl
  cat events.jsonl | engram ingest -
  engram ingest events.jsonl --session abc123 --project /path/to/repo`

type IngestCommander struct {
	sqlitePath string
	sessionID  string
	project    string
	debug      bool
}

func NewIngestCmd() *cobra.Command {
	cmder := &IngestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Feed session events through the memory pipeline",
		Long:  ingestLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")

			source := "-"
			if len(args) == 1 {
				source = args[0]
			}
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), source)
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")
	cmd.Flags().StringVar(&cmder.sessionID, "session", "", "Session ID to ingest under (default: a fresh session)")
	cmd.Flags().StringVar(&cmder.project, "project", "", "Project scope for the session (default: current git repo root)")

	return cmd
}

func (c *IngestCommander) run(ctx context.Context, out io.Writer, source string) error {
	events, err := readEvents(source)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintln(out, "no events to ingest")
		return nil
	}

	dbPath := dbpathcmder.ResolveForWrite(c.sqlitePath)
	storer, eng, cleanup, err := local.Open(dbPath, zap.NewNop())
	if err != nil {
		return err
	}
	defer cleanup()

	project := c.project
	if project == "" {
		project = git.RepoRoot()
	}

	sessionID, err := c.ensureSession(ctx, storer, project)
	if err != nil {
		return err
	}
	for i := range events {
		events[i].SessionID = sessionID
	}

	if err := storer.PutEvents(ctx, events); err != nil {
		return fmt.Errorf("storing events: %w", err)
	}

	extractor := sweep.New(sweep.Config{}, zap.NewNop())
	candidates := extractor.Extract(events)

	units, err := eng.ProcessCandidates(ctx, candidates, engine.ProcessOptions{
		SessionID:    sessionID,
		ProjectScope: project,
	})
	if err != nil {
		return fmt.Errorf("processing candidates: %w", err)
	}

	if err := storer.TouchWatermark(ctx, sessionID, len(events)); err != nil {
		return fmt.Errorf("advancing watermark: %w", err)
	}

	fmt.Fprintf(out, "%s %s\n", cliui.KeyStyle.Render("session:"), cliui.IDStyle.Render(sessionID))
	fmt.Fprintf(out, "%s %d events, %d candidates, %d memories admitted\n",
		cliui.KeyStyle.Render("ingested:"), len(events), len(candidates), len(units))
	for _, unit := range units {
		fmt.Fprintf(out, "  %s %s\n",
			cliui.ClassStyle.Render(string(unit.Classification)),
			cliui.PreviewStyle.Render(preview(unit.Summary, 72)),
		)
	}

	return nil
}

func (c *IngestCommander) ensureSession(ctx context.Context, storer storage.Driver, project string) (string, error) {
	if c.sessionID == "" {
		session := memory.NewSession(project)
		if err := storer.CreateSession(ctx, *session); err != nil {
			return "", fmt.Errorf("creating session: %w", err)
		}
		return session.ID, nil
	}

	_, err := storer.GetSession(ctx, c.sessionID)
	if err == nil {
		return c.sessionID, nil
	}
	if !storage.IsNotFound(err) {
		return "", fmt.Errorf("looking up session: %w", err)
	}

	session := memory.NewSession(project)
	session.ID = c.sessionID
	if err := storer.CreateSession(ctx, *session); err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	return c.sessionID, nil
}

// readEvents parses one JSON event per line; "-" reads stdin. Lines missing
// an id or timestamp get fresh ones so raw hook payloads ingest cleanly.
func readEvents(source string) ([]memory.Event, error) {
	var r io.Reader = os.Stdin
	if source != "-" {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("opening events file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var events []memory.Event

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event memory.Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			return nil, fmt.Errorf("parsing event on line %d: %w", lineNum, err)
		}
		if event.HookType == "" || event.Content == "" {
			return nil, fmt.Errorf("event on line %d missing hook_type or content", lineNum)
		}
		if event.ID == "" {
			event.ID = memory.NewEvent("", event.HookType, event.Content).ID
		}
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}

	return events, nil
}

func preview(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
