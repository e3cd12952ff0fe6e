package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/artman/internal/config"
	amerrors "github.com/Aman-CERP/artman/internal/errors"
	"github.com/Aman-CERP/artman/internal/output"
	"github.com/Aman-CERP/artman/internal/registry"
	"github.com/Aman-CERP/artman/internal/watcher"
)

func newRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Manage artifact registries",
		Long: `Manage the registries artifacts are searched in.

Registries are searched in the order they are configured. A registry is a
local folder of artifact documents or an http(s) URL of a packed snapshot,
cached under cache.dir.`,
		Example: `  artman registry list
  artman registry add tools ~/src/tool-registry
  artman registry update
  artman registry watch tools`,
	}

	cmd.AddCommand(newRegistryListCmd())
	cmd.AddCommand(newRegistryAddCmd())
	cmd.AddCommand(newRegistryRemoveCmd())
	cmd.AddCommand(newRegistryUpdateCmd())
	cmd.AddCommand(newRegistryRegenerateCmd())
	cmd.AddCommand(newRegistryWatchCmd())

	return cmd
}

// registryInfo is the JSON form of one registry's state.
type registryInfo struct {
	Name      string `json:"name"`
	Location  string `json:"location"`
	Loaded    bool   `json:"loaded"`
	Count     int    `json:"count"`
	IndexPath string `json:"index_path,omitempty"`
	Error     string `json:"error,omitempty"`
}

func newRegistryListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured registries and their state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRegistryList(cmd.Context(), cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runRegistryList(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	agg, err := openRegistries(cfg)
	if err != nil {
		return err
	}
	if err := agg.Load(ctx, false); err != nil {
		return err
	}

	members := agg.Members()
	infos := make([]registryInfo, 0, len(members))
	for _, m := range members {
		st := m.Registry.State()
		info := registryInfo{
			Name:      m.Name,
			Location:  m.Registry.Location(),
			Loaded:    st.Loaded,
			Count:     st.Count,
			IndexPath: st.IndexPath,
		}
		if st.Err != nil {
			info.Error = errorMessage(st.Err)
		}
		infos = append(infos, info)
	}

	if jsonOutput {
		return out.JSON(infos)
	}
	if len(infos) == 0 {
		out.Warning("No registries configured")
		out.Status("💡", "Add one with 'artman registry add <name> <location>'")
		return nil
	}

	styles := out.Styles()
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{info.Name, info.Location, registryStatus(styles, info)})
	}
	out.Table([]string{"NAME", "LOCATION", "STATUS"}, rows)
	return nil
}

// registryStatus renders a registry's state. Empty registries are flagged
// apart from failed ones.
func registryStatus(styles output.Styles, info registryInfo) string {
	switch {
	case info.Error != "":
		return styles.Error.Render("failed: " + info.Error)
	case !info.Loaded:
		return styles.Dim.Render("not loaded")
	case info.Count == 0:
		return styles.Warning.Render("empty (0 artifacts)")
	default:
		return styles.Success.Render(fmt.Sprintf("%d artifacts", info.Count))
	}
}

func newRegistryAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <location>",
		Short: "Add a registry to the user configuration",
		Long: `Add a registry to the user configuration. It is searched after the
registries already configured.

The location is a folder path, a file:// URL or an http(s) URL.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegistryAdd(cmd, args[0], args[1])
		},
	}
}

func runRegistryAdd(cmd *cobra.Command, name, location string) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := config.LoadUserConfig()
	if err != nil {
		return amerrors.ConfigError("failed to load user config", err)
	}
	// Reject unsupported locations before they reach the file.
	if _, err := registry.Open(location, registryOptions(cfg)); err != nil {
		return err
	}
	if err := cfg.AddRegistry(name, location); err != nil {
		return amerrors.New(amerrors.ErrCodeDuplicateRegistry, err.Error(), nil).
			WithDetail("name", name).
			WithDetail("location", location)
	}
	if err := cfg.Validate(); err != nil {
		return amerrors.ConfigError(err.Error(), nil)
	}

	backup, err := writeUserConfig(cfg)
	if err != nil {
		return err
	}

	out.Successf("Added registry %s", name)
	out.Statusf("📁", "Location: %s", location)
	if backup != "" {
		out.Statusf("💾", "Backup: %s", backup)
	}
	return nil
}

func newRegistryRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a registry from the user configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegistryRemove(cmd, args[0])
		},
	}
}

func runRegistryRemove(cmd *cobra.Command, name string) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := config.LoadUserConfig()
	if err != nil {
		return amerrors.ConfigError("failed to load user config", err)
	}
	if !cfg.RemoveRegistry(name) {
		return unknownRegistry(name)
	}

	backup, err := writeUserConfig(cfg)
	if err != nil {
		return err
	}

	out.Successf("Removed registry %s", name)
	if backup != "" {
		out.Statusf("💾", "Backup: %s", backup)
	}
	return nil
}

// writeUserConfig backs up the existing user config, then writes cfg in
// its place. It returns the backup path, empty when there was no file.
func writeUserConfig(cfg *config.Config) (string, error) {
	var backup string
	if config.UserConfigExists() {
		path, err := config.BackupUserConfig()
		if err != nil {
			return "", amerrors.IOError("failed to backup user config", err)
		}
		backup = path
	}
	if err := cfg.WriteYAML(config.GetUserConfigPath()); err != nil {
		return "", amerrors.IOError("failed to write user config", err)
	}
	return backup, nil
}

func newRegistryUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update [name]",
		Short: "Refresh registries from their source and rebuild their indexes",
		Long: `Refresh one registry, or all of them, from its source. Remote registries
fetch a new snapshot; every registry is then regenerated and saved.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegistryMaintenance(cmd, args, "update", func(ctx context.Context, r registry.Registry) error {
				return r.Update(ctx)
			})
		},
	}
}

func newRegistryRegenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate [name]",
		Short: "Rebuild registry indexes from the documents on disk",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegistryMaintenance(cmd, args, "regenerate", func(ctx context.Context, r registry.Registry) error {
				if err := r.Regenerate(ctx); err != nil {
					return err
				}
				return r.Save(ctx)
			})
		},
	}
}

// runRegistryMaintenance applies op to the named registry, or to every
// registry. Every selected registry is attempted; the first failure is
// returned. A registry left with no artifacts is a usage error.
func runRegistryMaintenance(cmd *cobra.Command, args []string, verb string, op func(context.Context, registry.Registry) error) error {
	ctx := cmd.Context()
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	agg, err := openRegistries(cfg)
	if err != nil {
		return err
	}
	members, err := selectMembers(agg, args)
	if err != nil {
		return err
	}

	progress := output.NewProgress(cmd.OutOrStdout(), progressVerbs[verb], len(members))
	if err := progress.Start(ctx); err != nil {
		return err
	}
	results := make([]error, len(members))
	for i, m := range members {
		progress.Begin(m.Name)
		results[i] = op(ctx, m.Registry)
		progress.Finish(m.Name, results[i])
	}
	_ = progress.Stop()

	var first error
	for i, m := range members {
		if err := results[i]; err != nil {
			slog.Warn("registry_"+verb+"_failed", slog.String("registry", m.Name), slog.String("error", err.Error()))
			out.Errorf("%s: %s", m.Name, errorMessage(err))
			if first == nil {
				first = err
			}
			continue
		}
		count := m.Registry.State().Count
		if count == 0 {
			out.Warningf("%s: no valid artifact documents", m.Name)
			if first == nil {
				first = amerrors.ValidationError("registry has no artifacts", nil).
					WithDetail("registry", m.Name).
					WithSuggestion("Check that the folder holds .yaml artifact documents")
			}
			continue
		}
		out.Successf("%s: %d artifacts", m.Name, count)
	}
	return first
}

var progressVerbs = map[string]string{
	"update":     "Updating",
	"regenerate": "Regenerating",
}

func selectMembers(agg *registry.Aggregate, args []string) ([]registry.Member, error) {
	if len(args) == 0 {
		return agg.Members(), nil
	}
	reg, ok := agg.Get(args[0])
	if !ok {
		return nil, unknownRegistry(args[0])
	}
	return []registry.Member{{Name: args[0], Registry: reg}}, nil
}

func unknownRegistry(name string) error {
	return amerrors.New(amerrors.ErrCodeUnknownRegistry, "unknown registry", nil).
		WithDetail("name", name).
		WithSuggestion("Run 'artman registry list' to see configured registries")
}

func newRegistryWatchCmd() *cobra.Command {
	var polling bool

	cmd := &cobra.Command{
		Use:   "watch <name>",
		Short: "Rebuild a local registry's index as its documents change",
		Long: `Watch a local registry's folder and regenerate and save its index after
every debounced batch of document changes. Runs until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runRegistryWatch(ctx, cmd, args[0], polling)
		},
	}

	cmd.Flags().BoolVar(&polling, "poll", false, "Poll the folder instead of using file system notifications")

	return cmd
}

func runRegistryWatch(ctx context.Context, cmd *cobra.Command, name string, polling bool) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	agg, err := openRegistries(cfg)
	if err != nil {
		return err
	}
	reg, ok := agg.Get(name)
	if !ok {
		return unknownRegistry(name)
	}
	local, ok := reg.(*registry.Local)
	if !ok {
		return amerrors.ValidationError("only local registries can be watched", nil).
			WithDetail("registry", name).
			WithSuggestion("Use 'artman registry update' for remote registries")
	}
	if err := local.Load(ctx, false); err != nil {
		return err
	}

	opts := watcher.DefaultOptions()
	opts.ForcePolling = polling
	opts.Logger = slog.Default()
	w, err := watcher.NewHybridWatcher(opts)
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	refresher := watcher.NewRefresher(local, w, slog.Default())
	refresher.OnRefresh = func(batch []watcher.FileEvent, err error) {
		if err != nil {
			out.Errorf("Refresh failed, keeping previous index: %s", errorMessage(err))
			return
		}
		out.Successf("%d changes, %d artifacts", len(batch), local.State().Count)
	}

	out.Statusf("👀", "Watching %s (%s)", local.Folder(), w.Mode())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = refresher.Run(ctx)
	}()

	err = w.Start(ctx, local.Folder())
	cancel()
	<-done
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
