package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/raphi011/gitembed/internal/config"
	"github.com/raphi011/gitembed/internal/log"
	"github.com/raphi011/gitembed/internal/manifest"
	"github.com/raphi011/gitembed/internal/output"
)

// ConfigDisplay is the effective config as shown by "config show".
type ConfigDisplay struct {
	Backend    string `json:"backend"`
	VCSBinary  string `json:"vcs_binary"`
	ScratchDir string `json:"scratch_dir"`
	SidecarExt string `json:"sidecar_ext"`
	Timeouts   struct {
		Clone    string `json:"clone"`
		Checkout string `json:"checkout"`
		Lock     string `json:"lock"`
	} `json:"timeouts"`
}

func newConfigDisplay(cfg *config.Config) ConfigDisplay {
	d := ConfigDisplay{
		Backend:    cfg.Backend,
		VCSBinary:  cfg.VCSBinary,
		ScratchDir: cfg.EffectiveScratchDir(),
		SidecarExt: cfg.SidecarExt,
	}
	d.Timeouts.Clone = cfg.Timeouts.Clone.String()
	d.Timeouts.Checkout = cfg.Timeouts.Checkout.String()
	d.Timeouts.Lock = cfg.Timeouts.Lock.String()
	return d
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Manage configuration",
		Aliases: []string{"cfg"},
		GroupID: GroupConfig,
		Long: `Manage gitembed configuration.

Global config: ~/.config/gitembed/config.toml
Local config:  .gitembed.toml (next to the project manifest)`,
		Example: `  gitembed config init          # Create default global config
  gitembed config init --local  # Create project config
  gitembed config show          # Show effective config`,
	}

	cmd.AddCommand(newConfigInitCmd(a))
	cmd.AddCommand(newConfigShowCmd(a))

	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var (
		force  bool
		stdout bool
		local  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default config file",
		Args:  cobra.NoArgs,
		Long: `Create default config file.

Without flags, creates the global config at ~/.config/gitembed/config.toml
(or $GITEMBED_CONFIG). With --local, creates .gitembed.toml in the project
root.`,
		Example: `  gitembed config init           # Create global config
  gitembed config init --local   # Create project config
  gitembed config init -f        # Overwrite existing config
  gitembed config init -s        # Print config to stdout`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l := log.FromContext(ctx)
			out := output.FromContext(ctx)

			if stdout {
				out.Print(config.DefaultConfigTemplate)
				return nil
			}

			var configPath string
			if local {
				projectDir := a.dir
				if path, err := manifest.Find(a.dir); err == nil {
					projectDir = filepath.Dir(path)
				}
				configPath = filepath.Join(projectDir, config.LocalConfigFileName)
			} else {
				p, err := a.globalConfigPath()
				if err != nil {
					return err
				}
				configPath = p
			}

			if !force {
				if _, err := os.Stat(configPath); err == nil {
					return fmt.Errorf("config file already exists: %s (use -f to overwrite)", configPath)
				}
			}

			if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
				return err
			}
			if err := os.WriteFile(configPath, []byte(config.DefaultConfigTemplate), 0644); err != nil {
				return err
			}

			l.Printf("Created config file: %s\n", configPath)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing config")
	cmd.Flags().BoolVarP(&stdout, "stdout", "s", false, "Print config to stdout")
	cmd.Flags().BoolVar(&local, "local", false, "Create project .gitembed.toml instead of global config")

	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Args:  cobra.NoArgs,
		Long: `Show effective configuration.

Inside a project, shows the global config merged with the project's
.gitembed.toml. Otherwise shows the global config only.`,
		Example: `  gitembed config show          # Show config
  gitembed config show --json   # Output as JSON`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			cfg, projectDir, err := a.effectiveConfig()
			if err != nil {
				return err
			}
			d := newConfigDisplay(cfg)

			if jsonOutput {
				return out.JSON(d)
			}

			globalPath, err := a.globalConfigPath()
			if err != nil {
				globalPath = "(unknown)"
			}
			out.Printf("Global config: %s\n", globalPath)
			if projectDir != "" {
				localPath := filepath.Join(projectDir, config.LocalConfigFileName)
				if !exists(localPath) {
					localPath = "(none)"
				}
				out.Printf("Local config:  %s\n", localPath)
			}
			out.Println()

			out.Printf("backend: %s\n", d.Backend)
			out.Printf("vcs_binary: %s\n", d.VCSBinary)
			out.Printf("scratch_dir: %s\n", d.ScratchDir)
			out.Printf("sidecar_ext: %s\n", d.SidecarExt)
			out.Printf("timeouts.clone: %s\n", d.Timeouts.Clone)
			out.Printf("timeouts.checkout: %s\n", d.Timeouts.Checkout)
			out.Printf("timeouts.lock: %s\n", d.Timeouts.Lock)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// globalConfigPath returns --config when set and the default location otherwise.
func (a *app) globalConfigPath() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.Path()
}
