// Package maintaincmder provides the maintain command for running decay
// and consolidation passes on demand.
package maintaincmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	dbpathcmder "github.com/papercomputeco/engram/cmd/engram/dbpath"
	"github.com/papercomputeco/engram/cmd/engram/local"
	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/logger"
)

const maintainLongDesc string = `Run decay and consolidation passes on the memory store.

Decay weakens unaccessed memories and retires the ones that fall below
threshold. Consolidation promotes short-term memories that earned their
keep into long-term, and cleans out retired short-term ones. Both run by
default; pick one with --decay or --consolidate.

Examples:
  engram maintain
  engram maintain --decay
  engram maintain --consolidate`

type MaintainCommander struct {
	sqlitePath      string
	decayOnly       bool
	consolidateOnly bool
	debug           bool
}

func NewMaintainCmd() *cobra.Command {
	cmder := &MaintainCommander{}

	cmd := &cobra.Command{
		Use:   "maintain",
		Short: "Run decay and consolidation passes on the memory store",
		Long:  maintainLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			if cmder.decayOnly && cmder.consolidateOnly {
				return fmt.Errorf("--decay and --consolidate are mutually exclusive; omit both to run both")
			}
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")
	cmd.Flags().BoolVar(&cmder.decayOnly, "decay", false, "Run only the decay pass")
	cmd.Flags().BoolVar(&cmder.consolidateOnly, "consolidate", false, "Run only the consolidation pass")

	return cmd
}

func (c *MaintainCommander) run(ctx context.Context, out io.Writer) error {
	dbPath, err := dbpathcmder.ResolveDBPath(c.sqlitePath)
	if err != nil {
		return err
	}

	log := logger.NewLogger(c.debug)
	defer func() { _ = log.Sync() }()

	_, eng, cleanup, err := local.Open(dbPath, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if !c.consolidateOnly {
		decay, err := eng.ApplyDecay(ctx)
		if err != nil {
			return fmt.Errorf("decay pass: %w", err)
		}
		fmt.Fprintf(out, "%s scanned %d, updated %d, retired %d, skipped %d\n",
			cliui.KeyStyle.Render("decay:"),
			decay.Scanned, decay.Updated, decay.Decayed, decay.Skipped,
		)
	}

	if !c.decayOnly {
		consolidation, err := eng.RunConsolidation(ctx)
		if err != nil {
			return fmt.Errorf("consolidation pass: %w", err)
		}
		fmt.Fprintf(out, "%s scanned %d, promoted %d, cleaned %d\n",
			cliui.KeyStyle.Render("consolidation:"),
			consolidation.Scanned, consolidation.Promoted, consolidation.Cleaned,
		)
	}

	return nil
}
