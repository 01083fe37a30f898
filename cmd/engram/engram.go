// Package engramcmder assembles the engram CLI command tree.
package engramcmder

import (
	"github.com/spf13/cobra"

	backfillcmder "github.com/papercomputeco/engram/cmd/engram/backfill"
	boardcmder "github.com/papercomputeco/engram/cmd/engram/board"
	configcmder "github.com/papercomputeco/engram/cmd/engram/config"
	dbpathcmder "github.com/papercomputeco/engram/cmd/engram/dbpath"
	feedbackcmder "github.com/papercomputeco/engram/cmd/engram/feedback"
	ingestcmder "github.com/papercomputeco/engram/cmd/engram/ingest"
	initcmder "github.com/papercomputeco/engram/cmd/engram/init"
	maintaincmder "github.com/papercomputeco/engram/cmd/engram/maintain"
	retrievecmder "github.com/papercomputeco/engram/cmd/engram/retrieve"
	searchcmder "github.com/papercomputeco/engram/cmd/engram/search"
	seedcmder "github.com/papercomputeco/engram/cmd/engram/seed"
	servecmder "github.com/papercomputeco/engram/cmd/engram/serve"
	skillcmder "github.com/papercomputeco/engram/cmd/engram/skill"
	statuscmder "github.com/papercomputeco/engram/cmd/engram/status"
	watchcmder "github.com/papercomputeco/engram/cmd/engram/watch"
	versioncmder "github.com/papercomputeco/engram/cmd/version"
)

const engramLongDesc string = `Engram is selective memory for coding agents.

It watches agent sessions for signals worth keeping, stores the survivors
as decaying memory units, and surfaces a small relevant set back into new
sessions.

Common entry points:
  engram serve          Run the memory API (and MCP endpoint)
  engram watch          Follow live transcripts into the pipeline
  engram retrieve       Print the injection set for the current project
  engram board          Browse stored memories in a TUI`

const engramShortDesc string = "Engram - selective memory for coding agents"

func NewEngramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engram",
		Short: engramShortDesc,
		Long:  engramLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .engram config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(backfillcmder.NewBackfillCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(retrievecmder.NewRetrieveCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(feedbackcmder.NewFeedbackCmd())
	cmd.AddCommand(maintaincmder.NewMaintainCmd())
	cmd.AddCommand(boardcmder.NewBoardCmd())
	cmd.AddCommand(skillcmder.NewSkillCmd())
	cmd.AddCommand(seedcmder.NewSeedCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(dbpathcmder.NewDBPathCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
