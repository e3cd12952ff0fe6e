package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/artman/internal/artifact"
	"github.com/Aman-CERP/artman/internal/output"
)

// findOptions holds CLI flags for find.
type findOptions struct {
	version    string
	keyword    string
	jsonOutput bool
}

// foundArtifact is the JSON form of one search result.
type foundArtifact struct {
	Registry string `json:"registry"`
	ID       string `json:"id"`
	Version  string `json:"version"`
	Summary  string `json:"summary,omitempty"`
	Priority int    `json:"priority"`
	Location string `json:"location"`
}

func newFindCmd() *cobra.Command {
	var opts findOptions

	cmd := &cobra.Command{
		Use:   "find [query]",
		Short: "Search the configured registries",
		Long: `Search every configured registry for artifacts.

The query is an identity (compilers/gcc), a short name (gcc) or either
prefixed with a registry name (tools:gcc). Without a query every artifact
matching the other filters is listed.`,
		Example: `  # Every version of one identity
  artman find compilers/gcc

  # Versions in a range, from one registry
  artman find tools:gcc --version ">=12.0.0"

  # Free-text search on summaries
  artman find --keyword "cross compiler" --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var query string
			if len(args) == 1 {
				query = args[0]
			}
			return runFind(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().StringVar(&opts.version, "version", "", "Semantic version range, e.g. \">=1.2.0, <2.0.0\"")
	cmd.Flags().StringVarP(&opts.keyword, "keyword", "k", "", "Words that must occur in the summary")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runFind(ctx context.Context, cmd *cobra.Command, query string, opts findOptions) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	agg, err := loadRegistries(ctx, out, cfg)
	if err != nil {
		return err
	}

	slog.Info("find_started", slog.String("query", query), slog.String("version", opts.version), slog.String("keyword", opts.keyword))
	arts, err := agg.Search(ctx, artifact.Criteria{
		IDOrShortName: query,
		Keyword:       opts.keyword,
		Version:       opts.version,
	})
	if err != nil {
		return err
	}
	slog.Info("find_complete", slog.Int("results", len(arts)))

	if opts.jsonOutput {
		found := make([]foundArtifact, 0, len(arts))
		for _, a := range arts {
			found = append(found, foundArtifact{
				Registry: agg.NameOf(a.Registry),
				ID:       a.ID,
				Version:  a.Version,
				Summary:  a.Summary,
				Priority: a.Priority,
				Location: a.Location,
			})
		}
		return out.JSON(found)
	}

	if len(arts) == 0 {
		out.Warning("No artifacts found")
		return nil
	}
	rows := make([][]string, 0, len(arts))
	for _, a := range arts {
		rows = append(rows, []string{agg.NameOf(a.Registry), a.ID, a.Version, a.Summary})
	}
	out.Table([]string{"REGISTRY", "ID", "VERSION", "SUMMARY"}, rows)
	return nil
}
