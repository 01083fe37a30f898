// Package watchcmder provides the watch command for following a
// transcript directory live.
package watchcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	dbpathcmder "github.com/papercomputeco/engram/cmd/engram/dbpath"
	"github.com/papercomputeco/engram/cmd/engram/local"
	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/sweep"
	"github.com/papercomputeco/engram/pkg/watch"
)

const watchLongDesc string = `Follow a transcript directory and ingest new entries live.

Watches JSONL session files for appends and feeds newly written entries
through the sweep and admission pipeline as they land. Runs until
interrupted.

Examples:
  engram watch
  engram watch --transcripts ~/.claude/projects
  engram watch --replay-existing --debounce 2s`

type WatchCommander struct {
	sqlitePath     string
	transcriptDir  string
	debounce       time.Duration
	replayExisting bool
	debug          bool
}

func NewWatchCmd() *cobra.Command {
	cmder := &WatchCommander{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a transcript directory and ingest new entries live",
		Long:  watchLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")
	cmd.Flags().StringVarP(&cmder.transcriptDir, "transcripts", "t", "", "Transcript directory (default: ~/.claude/projects)")
	cmd.Flags().DurationVar(&cmder.debounce, "debounce", watch.DefaultDebounce, "Quiet period before a changed file is processed")
	cmd.Flags().BoolVar(&cmder.replayExisting, "replay-existing", false, "Process content already present at startup")

	return cmd
}

func (c *WatchCommander) run(ctx context.Context, out io.Writer) error {
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
	watcher := watch.New(storer, extractor, eng, watch.Config{
		Debounce:       c.debounce,
		ReplayExisting: c.replayExisting,
	}, log)

	fmt.Fprintf(out, "%s %s\n", cliui.KeyStyle.Render("watching:"), cliui.ValueStyle.Render(dir))
	fmt.Fprintln(out, cliui.DimStyle.Render("press ctrl-c to stop"))

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- watcher.Run(watchCtx, dir)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		cancel()
		<-errChan
		fmt.Fprintln(out, cliui.DimStyle.Render("stopped"))
		return nil
	}
}

func (c *WatchCommander) resolveTranscriptDir() (string, error) {
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
