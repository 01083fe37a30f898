// Package statuscmder provides the status command for summarizing the
// memory store.
package statuscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	dbpathcmder "github.com/papercomputeco/engram/cmd/engram/dbpath"
	"github.com/papercomputeco/engram/cmd/engram/local"
	"github.com/papercomputeco/engram/pkg/cliui"
)

const statusLongDesc string = `Summarize the memory store.

Prints unit counts by store, status, and classification, plus session,
event, and feedback totals.

Examples:
  engram status
  engram status --sqlite ./engram.db
  engram status --json`

type StatusCommander struct {
	sqlitePath string
	jsonOut    bool
}

func NewStatusCmd() *cobra.Command {
	cmder := &StatusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize the memory store",
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Emit stats as JSON")

	return cmd
}

func (c *StatusCommander) run(ctx context.Context, out io.Writer) error {
	dbPath, err := dbpathcmder.ResolveDBPath(c.sqlitePath)
	if err != nil {
		return err
	}

	storer, _, cleanup, err := local.Open(dbPath, zap.NewNop())
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := storer.Stats(ctx)
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}

	if c.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Fprintf(out, "%s %s\n", cliui.KeyStyle.Render("database:"), cliui.ValueStyle.Render(dbPath))
	fmt.Fprintf(out, "%s %d units, %d sessions, %d events, %d feedback\n",
		cliui.KeyStyle.Render("totals:"),
		stats.Units, stats.Sessions, stats.Events, stats.Feedback,
	)
	fmt.Fprintf(out, "%s %.2f\n", cliui.KeyStyle.Render("avg strength:"), stats.AvgStrength)

	printBreakdown(out, "by store", toStringMap(stats.ByStore))
	printBreakdown(out, "by status", toStringMap(stats.ByStatus))
	printBreakdown(out, "by classification", toStringMap(stats.ByClassification))

	return nil
}

func printBreakdown(out io.Writer, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(out, "%s\n", cliui.HeaderStyle.Render(label))
	for _, k := range keys {
		fmt.Fprintf(out, "  %s %d\n", cliui.KeyStyle.Render(k+":"), counts[k])
	}
}

func toStringMap[K ~string](m map[K]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}
