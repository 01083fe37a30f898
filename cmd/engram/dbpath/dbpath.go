// Package dbpathcmder resolves the engram SQLite database location and
// provides the dbpath command for printing it.
package dbpathcmder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const dbpathLongDesc string = `Print the resolved engram SQLite database path.

Resolution order: --sqlite flag, ENGRAM_SQLITE or ENGRAM_DB environment
variables, then the first existing candidate among ./engram.db,
./engram.sqlite, .engram/, ~/.engram/, and $XDG_DATA_HOME/engram/.

Examples:
  engram dbpath
  engram dbpath --sqlite ./engram.db`

func NewDBPathCmd() *cobra.Command {
	var override string

	cmd := &cobra.Command{
		Use:   "dbpath",
		Short: "Print the resolved SQLite database path",
		Long:  dbpathLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := ResolveDBPath(override)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&override, "sqlite", "s", "", "Path to SQLite database")

	return cmd
}

// ResolveDBPath finds the engram SQLite database, preferring the explicit
// override, then environment variables, then known on-disk locations.
func ResolveDBPath(override string) (string, error) {
	if strings.TrimSpace(override) != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv("ENGRAM_SQLITE")); envPath != "" {
		return envPath, nil
	}
	if envPath := strings.TrimSpace(os.Getenv("ENGRAM_DB")); envPath != "" {
		return envPath, nil
	}

	for _, candidate := range dbCandidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", errors.New("could not find engram SQLite database; pass --sqlite")
}

// ResolveForWrite is ResolveDBPath with a creation fallback: when nothing
// exists yet, writes go to ./engram.db.
func ResolveForWrite(override string) string {
	path, err := ResolveDBPath(override)
	if err != nil {
		return "engram.db"
	}
	return path
}

func dbCandidates() []string {
	candidates := []string{
		"engram.db",
		"engram.sqlite",
		filepath.Join(".engram", "engram.db"),
		filepath.Join(".engram", "engram.sqlite"),
	}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append([]string{
			filepath.Join(home, ".engram", "engram.db"),
			filepath.Join(home, ".engram", "engram.sqlite"),
		}, candidates...)
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append([]string{
			filepath.Join(xdgHome, "engram", "engram.db"),
			filepath.Join(xdgHome, "engram", "engram.sqlite"),
		}, candidates...)
	}

	return candidates
}
