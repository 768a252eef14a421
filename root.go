package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/apsdm-go/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagHub        string
	flagProject    string
	flagFolder     string
	flagAuthMode   string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
// It is available to all subcommands after the root pre-run phase completes.
var resolvedCfg *config.Resolved

// skipConfigCommands lists commands that must work with a broken or absent
// config file.
var skipConfigCommands = map[string]bool{
	"apsdm config init": true,
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "apsdm",
		Short:   "APS Data Management CLI",
		Long:    "Browse hubs, projects and folders, and publish files to Autodesk Platform Services Data Management.",
		Version: version,
		// Silence Cobra's default error/usage printing; main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipConfigCommands[cmd.CommandPath()] {
				return nil
			}

			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagHub, "hub", "", "hub ID (overrides hub_id)")
	cmd.PersistentFlags().StringVar(&flagProject, "project", "", "project ID (overrides project_id)")
	cmd.PersistentFlags().StringVar(&flagFolder, "folder", "", "folder URN (overrides folder_id)")
	cmd.PersistentFlags().StringVar(&flagAuthMode, "auth", authAuto,
		"credential to use: app (2-legged), user (saved login), or auto")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newAuthCmd())
	cmd.AddCommand(newHubsCmd())
	cmd.AddCommand(newProjectsCmd())
	cmd.AddCommand(newFoldersCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newVersionsCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newUploadsCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the four-layer override
// chain and stores the result in resolvedCfg for use by subcommands.
func loadConfig(cmd *cobra.Command) error {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
	}

	// Only pass target flags the user explicitly set.
	if cmd.Flags().Changed("hub") {
		cli.HubID = &flagHub
	}

	if cmd.Flags().Changed("project") {
		cli.ProjectID = &flagProject
	}

	if cmd.Flags().Changed("folder") {
		cli.FolderID = &flagFolder
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo
	format := "auto"

	// Config-based settings (lower priority than CLI flags).
	if resolvedCfg != nil {
		switch resolvedCfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}

		format = resolvedCfg.LogFormat
	}

	// CLI flags override config (highest priority).
	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return newLogger(os.Stderr, format, level, isatty.IsTerminal(os.Stderr.Fd()))
}

// newLogger picks the handler for format. "auto" is text on a terminal and
// JSON otherwise, so piped output stays machine-readable.
func newLogger(w io.Writer, format string, level slog.Level, tty bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	if format == "json" || (format != "text" && !tty) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// newHTTPClient returns an HTTP client with the configured timeout, used
// for authorization and metadata calls.
func newHTTPClient() *http.Client {
	if resolvedCfg == nil {
		return &http.Client{}
	}

	return &http.Client{Timeout: resolvedCfg.Timeout}
}

// newTransferHTTPClient has no overall timeout; a multi-gigabyte PUT is
// bounded by the command's context instead.
func newTransferHTTPClient() *http.Client {
	return &http.Client{}
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
