// Package skillcmder provides the `engram skill` CLI commands for
// generating, listing, and syncing agent skills from consolidated memories.
package skillcmder

import "github.com/spf13/cobra"

// NewSkillCmd creates the parent skill command.
func NewSkillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skill",
		Short: "Generate, list, and sync agent skills from memories",
		Long: `Distill consolidated long-term memories into reusable agent skill
files. By default, skills sync to .agents/skills/ for use with any coding
agent. Use --claude to sync to Claude Code's .claude/skills/ directory.

Examples:
  engram skill generate
  engram skill generate --project /path/to/repo
  engram skill list
  engram skill sync coding-preferences
  engram skill sync coding-preferences --claude`,
	}

	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newSyncCmd())

	return cmd
}
