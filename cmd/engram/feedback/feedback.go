// Package feedbackcmder provides the feedback command for steering
// memory strength by hand.
package feedbackcmder

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	dbpathcmder "github.com/papercomputeco/engram/cmd/engram/dbpath"
	"github.com/papercomputeco/engram/cmd/engram/local"
	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/memory"
)

const feedbackLongDesc string = `Steer a memory's lifecycle by hand.

Feedback types:
  pin       exempt the memory from decay and retirement
  forget    retire the memory immediately
  remember  boost the memory's strength and frequency

Examples:
  engram feedback pin 6fa3c2d1-...
  engram feedback forget 6fa3c2d1-... --note "stale preference"
  engram feedback remember 6fa3c2d1-...`

type FeedbackCommander struct {
	sqlitePath string
	note       string
}

func NewFeedbackCmd() *cobra.Command {
	cmder := &FeedbackCommander{}

	cmd := &cobra.Command{
		Use:   "feedback <type> <memory-id>",
		Short: "Steer a memory's lifecycle by hand",
		Long:  feedbackLongDesc,
		Args:  cobra.ExactArgs(2),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return []string{string(memory.FeedbackPin), string(memory.FeedbackForget), string(memory.FeedbackRemember)}, cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")
	cmd.Flags().StringVar(&cmder.note, "note", "", "Optional note recorded with the feedback")

	return cmd
}

func (c *FeedbackCommander) run(ctx context.Context, out io.Writer, fbType, memoryID string) error {
	dbPath, err := dbpathcmder.ResolveDBPath(c.sqlitePath)
	if err != nil {
		return err
	}

	storer, eng, cleanup, err := local.Open(dbPath, zap.NewNop())
	if err != nil {
		return err
	}
	defer cleanup()

	fb := memory.FeedbackType(strings.ToLower(fbType))
	if err := eng.AddFeedback(ctx, fb, memoryID, c.note); err != nil {
		return err
	}

	unit, err := storer.GetUnit(ctx, memoryID)
	if err != nil {
		return fmt.Errorf("reading back memory: %w", err)
	}

	fmt.Fprintf(out, "%s %s\n", cliui.KeyStyle.Render("memory:"), cliui.IDStyle.Render(unit.ID))
	fmt.Fprintf(out, "%s %s, strength %.2f\n",
		cliui.KeyStyle.Render("now:"),
		cliui.ValueStyle.Render(string(unit.Status)),
		unit.Strength,
	)
	return nil
}
