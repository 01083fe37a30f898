// Package searchcmder provides the search command for semantic queries
// against a running engram server.
package searchcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apisearch "github.com/papercomputeco/engram/api/search"
	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/config"
)

const searchLongDesc string = `Search memories semantically through a running server.

Embeds the query server-side and ranks memories by vector similarity.
Requires a server started with a vector store and embedding provider
configured; use "engram retrieve" for local keyword ranking.

Examples:
  engram search "database migration workflow"
  engram search "retry backoff" --top-k 10
  engram search "auth flow" --api-target http://localhost:9091`

type SearchCommander struct {
	apiTarget string
	topK      int
	jsonOut   bool

	configDir string
}

func NewSearchCmd() *cobra.Command {
	cmder := &SearchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search memories semantically through a running server",
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			if cmder.apiTarget != "" {
				return nil
			}

			cfger, err := config.NewConfiger(cmder.configDir)
			if err != nil {
				return err
			}
			cfg, err := cfger.LoadConfig()
			if err != nil {
				return err
			}
			cmder.apiTarget = cfg.Client.APITarget
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.apiTarget, "api-target", "a", "", "Base URL of the engram API")
	cmd.Flags().IntVarP(&cmder.topK, "top-k", "k", 5, "Number of results to return")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Emit results as JSON")

	return cmd
}

func (c *SearchCommander) run(ctx context.Context, out io.Writer, query string) error {
	searchAPI := NewSearchAPI(c.apiTarget)

	output, err := searchAPI.Search(ctx, query, c.topK)
	if err != nil {
		return err
	}

	if c.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(output)
	}

	if output.Count == 0 {
		fmt.Fprintln(out, "no matches")
		return nil
	}

	for i, result := range output.Results {
		fmt.Fprintf(out, "%s %s %s %s\n",
			cliui.RankStyle.Render(fmt.Sprintf("%2d.", i+1)),
			cliui.ScoreStyle.Render(fmt.Sprintf("%.3f", result.Score)),
			cliui.ClassStyle.Render(string(result.Classification)),
			cliui.IDStyle.Render(result.ID),
		)
		fmt.Fprintf(out, "    %s\n", cliui.PreviewStyle.Render(result.Summary))
		if len(result.Tags) > 0 {
			fmt.Fprintf(out, "    %s\n", cliui.DimStyle.Render(strings.Join(result.Tags, ", ")))
		}
	}

	return nil
}

// SearchAPI is a thin client for the server's search endpoint.
type SearchAPI struct {
	target string
	client *http.Client
}

func NewSearchAPI(target string) *SearchAPI {
	return &SearchAPI{
		target: strings.TrimRight(target, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Search runs a semantic query against the server. Non-200 responses are
// surfaced with the server's error message when it sends one.
func (s *SearchAPI) Search(ctx context.Context, query string, topK int) (*apisearch.Output, error) {
	endpoint := fmt.Sprintf("%s/v1/search?query=%s&top_k=%s",
		s.target,
		url.QueryEscape(query),
		strconv.Itoa(topK),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reaching engram API at %s: %w", s.target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("search failed: %s", apiErr.Error)
		}
		return nil, fmt.Errorf("search failed with status %d", resp.StatusCode)
	}

	var output apisearch.Output
	if err := json.NewDecoder(resp.Body).Decode(&output); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	return &output, nil
}
