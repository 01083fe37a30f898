// Package boardcmder provides the board command, a TUI for browsing and
// curating the memory store.
package boardcmder

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	dbpathcmder "github.com/papercomputeco/engram/cmd/engram/dbpath"
	"github.com/papercomputeco/engram/cmd/engram/local"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage"
)

const boardLongDesc string = `Board is a TUI for browsing and curating memories.

Lists memory units with their strength, store, and lifecycle status.
Drill into a unit to see its features and provenance, pin what must
never decay, and forget what no longer holds.

Examples:
  engram board
  engram board --status pinned
  engram board --store ltm --class preference
  engram board --search "migration"`

const boardShortDesc string = "Board - TUI for browsing and curating memories"

type boardCommander struct {
	sqlitePath     string
	project        string
	store          string
	status         string
	classification string
	tag            string
	search         string
	limit          int
}

func NewBoardCmd() *cobra.Command {
	cmder := &boardCommander{}

	cmd := &cobra.Command{
		Use:   "board",
		Short: boardShortDesc,
		Long:  boardLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")
	cmd.Flags().StringVar(&cmder.project, "project", "", "Keep user-level units plus units scoped to this project")
	cmd.Flags().StringVar(&cmder.store, "store", "", "Filter by store (stm|ltm)")
	cmd.Flags().StringVar(&cmder.status, "status", "", "Filter by status (active|pinned|decayed|forgotten)")
	cmd.Flags().StringVar(&cmder.classification, "class", "", "Filter by classification")
	cmd.Flags().StringVar(&cmder.tag, "tag", "", "Filter by tag")
	cmd.Flags().StringVar(&cmder.search, "search", "", "Filter by summary substring")
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", 200, "Maximum units to load")

	return cmd
}

func (c *boardCommander) run(ctx context.Context) error {
	dbPath, err := dbpathcmder.ResolveDBPath(c.sqlitePath)
	if err != nil {
		return err
	}

	storer, eng, cleanup, err := local.Open(dbPath, zap.NewNop())
	if err != nil {
		return err
	}
	defer cleanup()

	query := storage.UnitQuery{
		Project:         strings.TrimSpace(c.project),
		Store:           memory.StoreClass(strings.ToLower(strings.TrimSpace(c.store))),
		Status:          memory.Status(strings.ToLower(strings.TrimSpace(c.status))),
		Classification:  memory.Classification(strings.ToLower(strings.TrimSpace(c.classification))),
		Tag:             strings.TrimSpace(c.tag),
		Search:          strings.TrimSpace(c.search),
		Limit:           c.limit,
		OrderByStrength: true,
	}

	return runBoardTUI(ctx, storer, eng, query)
}
