package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raphi011/gitembed/internal/config"
	"github.com/raphi011/gitembed/internal/log"
	"github.com/raphi011/gitembed/internal/output"
	"github.com/raphi011/gitembed/internal/ui"
	"github.com/raphi011/gitembed/internal/ui/prompt"
)

// Command group IDs for organizing help output
const (
	GroupCore   = "core"
	GroupConfig = "config"
)

// app holds global flags and the state shared by all commands of one run.
type app struct {
	// Global flags
	verbose    bool
	quiet      bool
	dir        string
	configPath string

	// Loaded in PersistentPreRunE
	cfg *config.Config

	// Terminal interaction; replaced in tests
	interactive func() bool
	confirm     func(string) (prompt.ConfirmResult, error)
}

func newApp() *app {
	return &app{
		interactive: ui.Interactive,
		confirm:     prompt.Confirm,
	}
}

// newRootCmd builds the command tree around a.
func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gitembed",
		Short: "Install pinned git subtrees into a project",
		Long: `gitembed installs versioned, git-hosted source trees into a project.

Dependencies are listed in gitembed.toml (or gitembed.yaml) at the project
root. Each one is cloned into a scratch directory, checked out at the
requested revision, and the requested subdirectory is moved into place.
A failed install never leaves a partial copy behind.`,
		SilenceUsage:               true,
		SilenceErrors:              true,
		SuggestionsMinimumDistance: 2,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "completion" || cmd.Name() == "__complete" || cmd.Name() == "help" {
				return nil
			}
			return a.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Show external commands being executed")
	rootCmd.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "Suppress all log output")
	rootCmd.PersistentFlags().StringVarP(&a.dir, "dir", "C", "", "Run as if started in `DIR`")
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Global config file (default ~/.config/gitembed/config.toml)")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
	_ = rootCmd.MarkPersistentFlagDirname("dir")

	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.AddGroup(
		&cobra.Group{ID: GroupCore, Title: "Core Commands:"},
		&cobra.Group{ID: GroupConfig, Title: "Configuration Commands:"},
	)

	// Core commands
	rootCmd.AddCommand(newInstallCmd(a))
	rootCmd.AddCommand(newSyncCmd(a))
	rootCmd.AddCommand(newListCmd(a))
	rootCmd.AddCommand(newPathCmd(a))

	// Config commands
	rootCmd.AddCommand(newConfigCmd(a))
	rootCmd.AddCommand(newDoctorCmd(a))

	return rootCmd
}

// setup resolves the working directory, attaches logger and printer to the
// command context and loads the global config.
func (a *app) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if a.dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		a.dir = wd
	}

	// Logger on stderr for diagnostics, printer on stdout for data
	ctx = log.WithLogger(ctx, log.New(cmd.ErrOrStderr(), a.verbose, a.quiet))
	ctx = output.WithPrinter(ctx, output.NewTerminal(cmd.OutOrStdout()))
	cmd.SetContext(ctx)

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = &cfg
	return nil
}

func (a *app) loadConfig() (config.Config, error) {
	if a.configPath != "" {
		cfg, err := config.LoadFrom(a.configPath)
		if err != nil {
			return cfg, err
		}
		return config.ApplyEnv(cfg)
	}
	return config.Load()
}

// Execute builds the command tree and runs it with signal handling.
func Execute() {
	// Ctrl-C cancels the context; running VCS commands are killed and
	// scratch workspaces are still reaped
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rootCmd := newRootCmd(newApp())
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Run 'gitembed -h' for help")
		cancel()
		os.Exit(1)
	}
}
