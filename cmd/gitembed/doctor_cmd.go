package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphi011/gitembed/internal/config"
	"github.com/raphi011/gitembed/internal/install"
	"github.com/raphi011/gitembed/internal/manifest"
	"github.com/raphi011/gitembed/internal/output"
	"github.com/raphi011/gitembed/internal/scratch"
	"github.com/raphi011/gitembed/internal/state"
	"github.com/raphi011/gitembed/internal/ui/styles"
	"github.com/raphi011/gitembed/internal/vcs"
)

// leftoverAge is how old a scratch workspace must be before doctor treats
// it as abandoned rather than belonging to a running install.
const leftoverAge = time.Hour

func newDoctorCmd(a *app) *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:     "doctor",
		Short:   "Diagnose and repair issues",
		GroupID: GroupConfig,
		Args:    cobra.NoArgs,
		Long: `Diagnose and repair installer issues.

Checks:
- VCS tool is installed (exec backend)
- Project manifest and config are valid
- Scratch directory is writable
- No abandoned scratch workspaces are left behind
- Install records point at existing directories
- auto_install dependencies are installed`,
		Example: `  gitembed doctor          # Check for issues
  gitembed doctor --fix    # Auto-fix recoverable issues`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)
			var issues int

			out.Println("Running diagnostics...")
			out.Println()

			cfg := a.cfg
			p, projectErr := a.loadProject()
			switch {
			case projectErr == nil:
				cfg = p.Config
				out.Println(styles.OK(fmt.Sprintf("Manifest loaded (%d dependencies)", len(p.Manifest.Entries))))
			case errors.Is(projectErr, manifest.ErrNotFound):
				out.Println(styles.Warn("No manifest found (project checks skipped)"))
			default:
				out.Println(styles.Fail(fmt.Sprintf("Invalid project: %v", projectErr)))
				issues++
			}

			if cfg.Backend == config.BackendGoGit {
				out.Println(styles.OK("Using built-in go-git backend"))
			} else if err := vcs.CheckTool(cfg.VCSBinary); err != nil {
				out.Println(styles.Fail(err.Error()))
				issues++
			} else {
				out.Println(styles.OK(fmt.Sprintf("%s is available", cfg.VCSBinary)))
			}

			root := cfg.EffectiveScratchDir()
			if err := checkScratchWritable(root); err != nil {
				out.Println(styles.Fail(fmt.Sprintf("Scratch directory not writable: %v", err)))
				issues++
			} else {
				out.Println(styles.OK(fmt.Sprintf("Scratch directory writable (%s)", root)))
			}

			leftovers, err := abandonedWorkspaces(root, time.Now().Add(-leftoverAge))
			if err != nil {
				out.Println(styles.Warn(fmt.Sprintf("Failed to scan scratch directory: %v", err)))
			}
			for _, w := range leftovers {
				if !fix {
					out.Println(styles.Fail(fmt.Sprintf("Abandoned scratch workspace: %s", w)))
					issues++
					continue
				}
				if err := scratch.Reap(w); err != nil {
					out.Println(styles.Fail(fmt.Sprintf("Failed to remove %s: %v", w, err)))
					issues++
				} else {
					out.Println(styles.OK(fmt.Sprintf("Removed %s", w)))
				}
			}

			if p != nil {
				issues += checkProject(cmd, p, fix)
			}

			out.Println()
			if issues > 0 {
				out.Printf("Found %d issue(s)\n", issues)
				if !fix {
					out.Println("Run 'gitembed doctor --fix' to auto-fix recoverable issues")
				}
				return fmt.Errorf("%d issues found", issues)
			}

			out.Println("All checks passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "Auto-fix recoverable issues")

	return cmd
}

// checkProject reports stale install records and missing auto_install
// dependencies, dropping the stale records when fix is set.
func checkProject(cmd *cobra.Command, p *project, fix bool) int {
	ctx := cmd.Context()
	out := output.FromContext(ctx)
	var issues int

	st, err := state.Load(p.Dir)
	if err != nil {
		out.Println(styles.Fail(err.Error()))
		issues++
	} else if stale := st.Stale(); len(stale) > 0 {
		for _, name := range stale {
			out.Println(styles.Fail(fmt.Sprintf("Install record for %s points at a missing directory", name)))
		}
		if fix {
			err := state.Update(ctx, p.Dir, p.Config.Timeouts.Lock, func(s *state.State) error {
				for _, name := range s.Stale() {
					s.Delete(name)
				}
				return nil
			})
			if err != nil {
				out.Println(styles.Fail(fmt.Sprintf("Failed to update install state: %v", err)))
				issues += len(stale)
			} else {
				out.Println(styles.OK(fmt.Sprintf("Removed %d stale record(s)", len(stale))))
			}
		} else {
			issues += len(stale)
		}
	} else {
		out.Println(styles.OK(fmt.Sprintf("Install records consistent (%d)", len(st.Installs))))
	}

	for _, e := range p.Manifest.AutoInstall() {
		if !install.Installed(e.Target(p.Dir)) {
			out.Println(styles.Warn(fmt.Sprintf("%s is not installed (run 'gitembed sync')", e.Name)))
		}
	}

	return issues
}

// checkScratchWritable creates and removes a workspace under root.
func checkScratchWritable(root string) error {
	ws := scratch.Factory{Root: root}.New()
	if err := ws.Ensure(); err != nil {
		return err
	}
	return ws.Reap()
}

// abandonedWorkspaces lists scratch workspaces under root last modified
// before cutoff.
func abandonedWorkspaces(root string, cutoff time.Time) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(root, scratch.Prefix+"*"))
	if err != nil {
		return nil, err
	}
	var old []string
	for _, m := range matches {
		info, err := os.Lstat(m)
		if err != nil || !info.IsDir() {
			continue
		}
		if info.ModTime().Before(cutoff) {
			old = append(old, m)
		}
	}
	return old, nil
}
