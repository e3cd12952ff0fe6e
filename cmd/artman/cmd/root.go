// Package cmd provides the CLI commands for artman.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/artman/internal/config"
	amerrors "github.com/Aman-CERP/artman/internal/errors"
	"github.com/Aman-CERP/artman/internal/logging"
	"github.com/Aman-CERP/artman/internal/output"
	"github.com/Aman-CERP/artman/internal/profiling"
	"github.com/Aman-CERP/artman/internal/registry"
	"github.com/Aman-CERP/artman/pkg/version"
)

// Global flags
var (
	debugMode      bool
	configFile     string
	loggingCleanup func()
)

// Profiling flags
var (
	profileConfig profiling.Config
	profile       *profiling.Session
)

// NewRootCmd creates the root command for the artman CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artman",
		Short: "Find and resolve artifacts across registries",
		Long: `artman searches registries of artifact documents and resolves requested
identities into the complete, deduplicated set of artifacts to install.

Registries are folders of YAML documents, either local or fetched from a
remote snapshot. Configure them with 'artman registry add'.`,
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.SetVersionTemplate("artman version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.artman/logs/")
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Use this configuration file instead of the user and project files")

	cmd.PersistentFlags().StringVar(&profileConfig.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileConfig.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileConfig.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newFindCmd())
	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newRegistryCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startProfilingAndLogging installs the process logger, stderr warnings
// by default plus a JSON debug log file with --debug, and starts any
// requested profiles.
func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	cfg := logging.DefaultConfig()
	if debugMode {
		cfg = logging.DebugConfig()
	}
	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	if debugMode {
		slog.Info("debug_logging_enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
	}

	if profileConfig.Enabled() {
		profile, err = profiling.Start(profileConfig)
		if err != nil {
			return err
		}
	}
	return nil
}

func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	var err error
	if profile != nil {
		err = profile.Stop()
		profile = nil
	}
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return err
}

// Execute runs the root command and prints any error for the terminal.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprint(os.Stderr, amerrors.FormatForCLI(err))
	}
	return err
}

// loadConfig returns the configuration selected by --config, or the
// layered configuration for the working directory.
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFile(configFile)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return config.Load(cwd)
}

// registryOptions maps configuration onto registry options.
func registryOptions(cfg *config.Config) registry.Options {
	return registry.Options{
		CacheDir:  cfg.Cache.Dir,
		Workers:   cfg.Index.Workers,
		CacheSize: cfg.Index.CacheSize,
		Logger:    slog.Default(),
	}
}

// openRegistries builds the aggregate of every configured registry
// without loading it.
func openRegistries(cfg *config.Config) (*registry.Aggregate, error) {
	agg := registry.NewAggregate(slog.Default())
	opts := registryOptions(cfg)
	for _, rc := range cfg.Registries {
		reg, err := registry.Open(rc.Location, opts)
		if err != nil {
			return nil, err
		}
		if err := agg.Add(reg, rc.Name); err != nil {
			return nil, err
		}
	}
	return agg, nil
}

// loadRegistries opens and loads every configured registry. Member
// failures are reported as warnings; only cancellation is returned.
func loadRegistries(ctx context.Context, out *output.Writer, cfg *config.Config) (*registry.Aggregate, error) {
	agg, err := openRegistries(cfg)
	if err != nil {
		return nil, err
	}
	if err := agg.Load(ctx, false); err != nil {
		return nil, err
	}
	reportFailures(out, agg)
	return agg, nil
}

func reportFailures(out *output.Writer, agg *registry.Aggregate) {
	for _, m := range agg.Members() {
		if err := m.Registry.State().Err; err != nil {
			out.Warningf("Registry %s is unavailable: %s", m.Name, errorMessage(err))
		}
	}
}

func errorMessage(err error) string {
	if ae, ok := amerrors.As(err); ok {
		return ae.Message
	}
	return err.Error()
}
