// Package retrievecmder provides the retrieve command for pulling the
// memory injection set for the current context.
package retrievecmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	dbpathcmder "github.com/papercomputeco/engram/cmd/engram/dbpath"
	"github.com/papercomputeco/engram/cmd/engram/local"
	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/engine"
	"github.com/papercomputeco/engram/pkg/git"
)

const retrieveLongDesc string = `Pull the memory injection set for the current context.

Ranks the project-scoped and user-level pool, applies the injection
budget, and suppresses contradicting pairs. With a query, ranking is
relevance-first; without one, strongest memories win.

Examples:
  engram retrieve
  engram retrieve "how do we run migrations"
  engram retrieve --limit 5 --json
  engram retrieve --project /path/to/repo "test setup"`

type RetrieveCommander struct {
	sqlitePath string
	project    string
	sessionID  string
	limit      int
	jsonOut    bool
}

func NewRetrieveCmd() *cobra.Command {
	cmder := &RetrieveCommander{}

	cmd := &cobra.Command{
		Use:   "retrieve [query]",
		Short: "Pull the memory injection set for the current context",
		Long:  retrieveLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), query)
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")
	cmd.Flags().StringVar(&cmder.project, "project", "", "Project scope (default: current git repo root)")
	cmd.Flags().StringVar(&cmder.sessionID, "session", "", "Session ID for the retrieval log")
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", 0, "Maximum memories to surface (0: full budget)")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Emit the retrieval set as JSON")

	return cmd
}

func (c *RetrieveCommander) run(ctx context.Context, out io.Writer, query string) error {
	dbPath, err := dbpathcmder.ResolveDBPath(c.sqlitePath)
	if err != nil {
		return err
	}

	_, eng, cleanup, err := local.Open(dbPath, zap.NewNop())
	if err != nil {
		return err
	}
	defer cleanup()

	project := c.project
	if project == "" {
		project = git.RepoRoot()
	}

	set, err := eng.Retrieve(ctx, engine.RetrieveOptions{
		SessionID:      c.sessionID,
		CurrentProject: project,
		Query:          query,
		Limit:          c.limit,
	})
	if err != nil {
		return fmt.Errorf("retrieving memories: %w", err)
	}

	if c.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(set)
	}

	if len(set.Units) == 0 {
		fmt.Fprintln(out, "no memories to surface")
		return nil
	}

	for i, unit := range set.Units {
		fmt.Fprintf(out, "%s %s %s %s\n",
			cliui.RankStyle.Render(fmt.Sprintf("%2d.", i+1)),
			cliui.ClassStyle.Render(string(unit.Classification)),
			cliui.ScoreStyle.Render(fmt.Sprintf("%.2f", unit.Strength)),
			cliui.IDStyle.Render(unit.ID),
		)
		fmt.Fprintf(out, "    %s\n", cliui.PreviewStyle.Render(unit.Summary))
	}

	if len(set.Suppressed) > 0 {
		fmt.Fprintf(out, "\n%s\n", cliui.WarnStyle.Render(fmt.Sprintf("%d suppressed by conflict", len(set.Suppressed))))
		for _, sup := range set.Suppressed {
			fmt.Fprintf(out, "  %s %s\n",
				cliui.DimStyle.Render(sup.Unit.ID),
				cliui.DimStyle.Render(sup.Reason),
			)
		}
	}

	return nil
}
