// Package backfillcmder provides the backfill command for replaying
// historical session transcripts through the memory pipeline.
package backfillcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	dbpathcmder "github.com/papercomputeco/engram/cmd/engram/dbpath"
	"github.com/papercomputeco/engram/cmd/engram/local"
	"github.com/papercomputeco/engram/pkg/backfill"
	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/sweep"
)

const backfillLongDesc string = `Replay historical session transcripts through the memory pipeline.

Scans a transcript directory for JSONL session files, sweeps every session
for memory candidates, and admits what survives into the local store.
Sessions already swept are skipped via their watermark, so reruns are safe.

Examples:
  engram backfill
  engram backfill --transcripts ~/.claude/projects
  engram backfill --dry-run --verbose`

type BackfillCommander struct {
	sqlitePath    string
	transcriptDir string
	dryRun        bool
	verbose       bool
	debug         bool
}

func NewBackfillCmd() *cobra.Command {
	cmder := &BackfillCommander{}

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Replay historical transcripts through the memory pipeline",
		Long:  backfillLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")
	cmd.Flags().StringVarP(&cmder.transcriptDir, "transcripts", "t", "", "Transcript directory (default: ~/.claude/projects)")
	cmd.Flags().BoolVar(&cmder.dryRun, "dry-run", false, "Extract candidates but persist nothing")
	cmd.Flags().BoolVarP(&cmder.verbose, "verbose", "v", false, "Print per-file progress")

	return cmd
}

func (c *BackfillCommander) run(ctx context.Context, out io.Writer) error {
	dir, err := c.resolveTranscriptDir()
	if err != nil {
		return err
	}

	log := logger.NewLogger(c.debug)
	defer func() { _ = log.Sync() }()

	dbPath := dbpathcmder.ResolveForWrite(c.sqlitePath)
	storer, eng, cleanup, err := local.Open(dbPath, log)
	if err != nil {
		return err
	}
	defer cleanup()

	extractor := sweep.New(sweep.Config{}, log)
	backfiller := backfill.NewBackfiller(storer, extractor, eng, backfill.Options{
		DryRun:  c.dryRun,
		Verbose: c.verbose,
	}, log)

	fmt.Fprintf(out, "%s %s\n", cliui.KeyStyle.Render("transcripts:"), cliui.ValueStyle.Render(dir))
	if c.dryRun {
		fmt.Fprintln(out, cliui.WarnStyle.Render("dry run: nothing will be persisted"))
	}

	var result *backfill.Result
	err = cliui.Step(out, "Backfilling memories", func() error {
		var runErr error
		result, runErr = backfiller.Run(ctx, dir)
		return runErr
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, result.Summary())
	return nil
}

func (c *BackfillCommander) resolveTranscriptDir() (string, error) {
	if c.transcriptDir != "" {
		return c.transcriptDir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}

	dir := filepath.Join(home, ".claude", "projects")
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("no transcript directory at %s; pass --transcripts", dir)
	}
	return dir, nil
}
