package skillcmder

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	dbpathcmder "github.com/papercomputeco/engram/cmd/engram/dbpath"
	"github.com/papercomputeco/engram/cmd/engram/local"
	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/git"
	"github.com/papercomputeco/engram/pkg/skill"
)

type generateCommander struct {
	sqlitePath string
	project    string
	userOnly   bool
	since      time.Duration
	minUnits   int
	maxUnits   int
	show       bool
}

func newGenerateCmd() *cobra.Command {
	cmder := &generateCommander{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Distill consolidated memories into skill files",
		Long: `Group consolidated long-term memories by classification and write one
skill file per group into ~/.engram/skills/. Only groups with enough
members produce a file; thin evidence makes a bad skill.

Examples:
  engram skill generate
  engram skill generate --project /path/to/repo
  engram skill generate --user-only --since 720h
  engram skill generate --show`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")
	cmd.Flags().StringVar(&cmder.project, "project", "", "Project scope (default: current git repo root)")
	cmd.Flags().BoolVar(&cmder.userOnly, "user-only", false, "Use only user-level memories")
	cmd.Flags().DurationVar(&cmder.since, "since", 0, "Only include memories newer than this (e.g. 720h)")
	cmd.Flags().IntVar(&cmder.minUnits, "min-units", 0, "Minimum memories per skill")
	cmd.Flags().IntVar(&cmder.maxUnits, "max-units", 0, "Maximum memories per skill")
	cmd.Flags().BoolVar(&cmder.show, "show", false, "Render the generated skills to the terminal")

	return cmd
}

func (c *generateCommander) run(ctx context.Context, out io.Writer) error {
	dbPath, err := dbpathcmder.ResolveDBPath(c.sqlitePath)
	if err != nil {
		return err
	}

	storer, _, cleanup, err := local.Open(dbPath, zap.NewNop())
	if err != nil {
		return err
	}
	defer cleanup()

	opts := skill.GenerateOptions{
		MinUnits: c.minUnits,
		MaxUnits: c.maxUnits,
	}
	if !c.userOnly {
		opts.Project = c.project
		if opts.Project == "" {
			opts.Project = git.RepoRoot()
		}
	}
	if c.since > 0 {
		cutoff := time.Now().Add(-c.since)
		opts.Since = &cutoff
	}

	var skills []*skill.Skill
	err = cliui.Step(out, "Generating skills", func() error {
		var genErr error
		skills, genErr = skill.Generate(ctx, storer, opts)
		return genErr
	})
	if err != nil {
		return fmt.Errorf("generate skills: %w", err)
	}

	if len(skills) == 0 {
		fmt.Fprintln(out, "Not enough consolidated memories for a skill yet.")
		return nil
	}

	skillsDir, err := skill.SkillsDir()
	if err != nil {
		return err
	}

	for _, sk := range skills {
		path, err := skill.Write(sk, skillsDir)
		if err != nil {
			return fmt.Errorf("write skill %q: %w", sk.Name, err)
		}
		fmt.Fprintf(out, "%s %s %s\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(sk.Name),
			cliui.DimStyle.Render(path),
		)

		if c.show {
			rendered, err := cliui.RenderMarkdown(sk.Content)
			if err != nil {
				rendered = sk.Content
			}
			fmt.Fprintln(out, rendered)
		}
	}

	return nil
}
