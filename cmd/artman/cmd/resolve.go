package cmd

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/artman/internal/hostenv"
	"github.com/Aman-CERP/artman/internal/output"
	"github.com/Aman-CERP/artman/internal/resolve"
)

// resolveOptions holds CLI flags for resolve.
type resolveOptions struct {
	tags       []string
	jsonOutput bool
}

// resolvedArtifact is the JSON form of one resolved entry.
type resolvedArtifact struct {
	Registry   string   `json:"registry"`
	ID         string   `json:"id"`
	Version    string   `json:"version"`
	Priority   int      `json:"priority"`
	Location   string   `json:"location"`
	Requested  string   `json:"requested,omitempty"`
	RequiredBy string   `json:"required_by,omitempty"`
	Injected   bool     `json:"injected,omitempty"`
	Tools      []string `json:"tools,omitempty"`
}

// resolution is the JSON form of a resolved set.
type resolution struct {
	Host      []string           `json:"host"`
	Artifacts []resolvedArtifact `json:"artifacts"`
	Warnings  []string           `json:"warnings,omitempty"`
	Messages  []string           `json:"messages,omitempty"`
}

func newResolveCmd() *cobra.Command {
	var opts resolveOptions

	cmd := &cobra.Command{
		Use:   "resolve <request>...",
		Short: "Resolve requests into the set of artifacts to install",
		Long: `Resolve one or more requests, with everything they require on this host,
into a deduplicated install set ordered by priority.

A request is [registry:]identity[@range]. Host tags (os, arch and any
configured or --tag values) decide which conditional demand blocks apply.`,
		Example: `  artman resolve compilers/gcc@">=12.0.0"
  artman resolve tools:cmake sdks/android --tag ci
  artman resolve gcc --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), cmd, args, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.tags, "tag", "t", nil, "Extra host tag (repeatable)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runResolve(ctx context.Context, cmd *cobra.Command, args []string, opts resolveOptions) error {
	out := output.New(cmd.OutOrStdout())

	requests := make([]resolve.Request, 0, len(args))
	for _, arg := range args {
		req, err := resolve.ParseRequest(arg)
		if err != nil {
			return err
		}
		requests = append(requests, req)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	agg, err := loadRegistries(ctx, out, cfg)
	if err != nil {
		return err
	}

	tags := append(append([]string(nil), cfg.Host.Tags...), opts.tags...)
	rc := &resolve.ResolutionContext{
		Env:        hostenv.Host(tags...),
		Registries: agg,
		Evaluator:  hostenv.NewEvaluator(),
		Options:    resolve.Options{Tools: cfg.Tools},
		Logger:     slog.Default(),
	}
	set, err := rc.Resolve(ctx, requests)
	if err != nil {
		return err
	}

	entries := set.Ordered()
	if opts.jsonOutput {
		res := resolution{
			Host:      rc.Env.Tags(),
			Artifacts: make([]resolvedArtifact, 0, len(entries)),
			Warnings:  set.Warnings(),
			Messages:  set.Messages(),
		}
		for _, e := range entries {
			ra := resolvedArtifact{
				Registry:   e.RegistryName,
				ID:         e.Artifact.ID,
				Version:    e.Artifact.Version,
				Priority:   e.Artifact.Priority,
				Location:   e.Artifact.Location,
				RequiredBy: requiredBy(set, e),
				Injected:   e.Injected,
			}
			if e.RequiredBy == "" && !e.Injected {
				ra.Requested = e.Requested.String()
			}
			if e.Demands != nil {
				ra.Tools = e.Demands.RequiredTools()
			}
			res.Artifacts = append(res.Artifacts, ra)
		}
		return out.JSON(res)
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			strconv.Itoa(e.Artifact.Priority),
			e.Artifact.ID,
			e.Artifact.Version,
			e.RegistryName,
			reason(set, e),
		})
	}
	out.Table([]string{"PRIORITY", "ID", "VERSION", "REGISTRY", "REASON"}, rows)

	for _, w := range set.Warnings() {
		out.Warning(w)
	}
	for _, m := range set.Messages() {
		out.Status("ℹ️", m)
	}
	out.Newline()
	out.Successf("Resolved %d artifacts", len(entries))
	return nil
}

// requiredBy renders the artifact whose demands discovered e.
func requiredBy(set *resolve.Set, e *resolve.Entry) string {
	if e.RequiredBy == "" {
		return ""
	}
	if parent, ok := set.Get(e.RequiredBy); ok {
		return parent.Artifact.String()
	}
	return e.RequiredBy
}

func reason(set *resolve.Set, e *resolve.Entry) string {
	switch {
	case e.Injected:
		return "tool"
	case e.RequiredBy != "":
		return "required by " + requiredBy(set, e)
	default:
		return "requested " + e.Requested.String()
	}
}
