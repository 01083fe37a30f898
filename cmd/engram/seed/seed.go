// Package seedcmder provides the seed command for populating a fresh
// store with demo memories.
package seedcmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	dbpathcmder "github.com/papercomputeco/engram/cmd/engram/dbpath"
	"github.com/papercomputeco/engram/cmd/engram/local"
	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/engine"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/sweep"
)

const seedLongDesc string = `Populate the store with demo memories.

Runs canned sessions through the real sweep and admission pipeline, so
the seeded memories look exactly like organically captured ones. Useful
for trying out retrieve, board, and skill on a fresh database.

Examples:
  engram seed
  engram seed --sqlite ./demo.db`

type SeedCommander struct {
	sqlitePath string
}

func NewSeedCmd() *cobra.Command {
	cmder := &SeedCommander{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the store with demo memories",
		Long:  seedLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")

	return cmd
}

func (c *SeedCommander) run(ctx context.Context, out io.Writer) error {
	dbPath := dbpathcmder.ResolveForWrite(c.sqlitePath)

	storer, eng, cleanup, err := local.Open(dbPath, zap.NewNop())
	if err != nil {
		return err
	}
	defer cleanup()

	var created int
	err = cliui.Step(out, "Seeding demo memories", func() error {
		var seedErr error
		created, seedErr = seedBatches(ctx, storer, eng)
		return seedErr
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s %d memories in %s\n",
		cliui.KeyStyle.Render("seeded:"),
		created,
		cliui.ValueStyle.Render(dbPath),
	)
	fmt.Fprintln(out, cliui.DimStyle.Render("try: engram retrieve --project /home/demo/projects/backend"))
	return nil
}

func seedBatches(ctx context.Context, storer storage.Driver, eng *engine.Engine) (int, error) {
	extractor := sweep.New(sweep.Config{}, zap.NewNop())

	var created int
	for _, batch := range engine.DemoBatches() {
		if len(batch.Events) == 0 {
			continue
		}

		session := memory.NewSession(batch.Project)
		session.ID = batch.Events[0].SessionID
		if err := storer.CreateSession(ctx, *session); err != nil {
			return created, fmt.Errorf("creating demo session: %w", err)
		}
		if err := storer.PutEvents(ctx, batch.Events); err != nil {
			return created, fmt.Errorf("storing demo events: %w", err)
		}

		candidates := extractor.Extract(batch.Events)
		units, err := eng.ProcessCandidates(ctx, candidates, engine.ProcessOptions{
			SessionID:    session.ID,
			ProjectScope: batch.Project,
		})
		if err != nil {
			return created, fmt.Errorf("admitting demo candidates: %w", err)
		}
		created += len(units)

		if err := storer.TouchWatermark(ctx, session.ID, len(batch.Events)); err != nil {
			return created, fmt.Errorf("advancing watermark: %w", err)
		}
	}

	return created, nil
}
