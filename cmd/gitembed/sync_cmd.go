package main

import (
	"slices"

	"github.com/spf13/cobra"

	"github.com/raphi011/gitembed/internal/install"
	"github.com/raphi011/gitembed/internal/log"
	"github.com/raphi011/gitembed/internal/manifest"
	"github.com/raphi011/gitembed/internal/state"
)

func newSyncCmd(a *app) *cobra.Command {
	var prune bool

	cmd := &cobra.Command{
		Use:     "sync",
		Short:   "Install missing auto_install dependencies",
		GroupID: GroupCore,
		Args:    cobra.NoArgs,
		Long: `Install every dependency marked auto_install whose target is missing.

Installed dependencies are left alone, so sync is cheap to run from a
build script or a git hook. With --prune, install records for
dependencies no longer in the manifest are dropped.`,
		Example: `  gitembed sync           # Install missing auto_install dependencies
  gitembed sync --prune   # Also forget removed dependencies`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l := log.FromContext(ctx)

			p, err := a.loadProject()
			if err != nil {
				return err
			}

			var missing []manifest.Entry
			for _, e := range p.Manifest.AutoInstall() {
				if !install.Installed(e.Target(p.Dir)) {
					missing = append(missing, e)
				}
			}

			if prune {
				names := p.Manifest.Names()
				err := state.Update(ctx, p.Dir, p.Config.Timeouts.Lock, func(s *state.State) error {
					for _, name := range s.Names() {
						if !slices.Contains(names, name) {
							l.Printf("Forgetting %s\n", name)
							s.Delete(name)
						}
					}
					return nil
				})
				if err != nil {
					return err
				}
			}

			if len(missing) == 0 {
				l.Println("Nothing to sync")
				return nil
			}

			inst, err := installerFor(p.Config)
			if err != nil {
				return err
			}

			jobs := entryJobs(p.Dir, missing, false)
			outcomes := runJobs(ctx, inst, a.newIndicator(cmd.ErrOrStderr(), len(jobs)), jobs)
			return report(ctx, p.Dir, p.Config.Timeouts.Lock, outcomes)
		},
	}

	cmd.Flags().BoolVar(&prune, "prune", false, "Forget install records of dependencies removed from the manifest")

	return cmd
}
