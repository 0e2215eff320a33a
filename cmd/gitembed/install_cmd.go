package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphi011/gitembed/internal/install"
	"github.com/raphi011/gitembed/internal/log"
	"github.com/raphi011/gitembed/internal/manifest"
)

func newInstallCmd(a *app) *cobra.Command {
	var (
		all      bool
		force    bool
		yes      bool
		url      string
		dest     string
		revision string
		subpath  string
	)

	cmd := &cobra.Command{
		Use:     "install [name...]",
		Short:   "Install dependencies",
		Aliases: []string{"i"},
		GroupID: GroupCore,
		Long: `Install dependencies from the project manifest, or a one-off repository.

Each dependency is cloned into a private scratch directory, checked out at
its revision, and its subdirectory moved to <path>/<leaf>. A "<leaf>.meta"
sidecar next to the subdirectory is moved along with it. Dependencies that
are already installed are skipped unless --force is given.

With --url, the manifest is not consulted and --dest names the directory
the content is placed under.`,
		Example: `  gitembed install proto              # Install one dependency
  gitembed install --all              # Install every dependency
  gitembed install proto --force      # Replace an existing install
  gitembed install --url https://github.com/org/lib.git --dest vendor --subpath pkg/util`,
		ValidArgsFunction: completeDependencyNames(a),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if url != "" {
				if len(args) > 0 || all {
					return errors.New("--url cannot be combined with dependency names or --all")
				}
				if dest == "" {
					return errors.New("--dest is required with --url")
				}
				cfg, projectDir, err := a.effectiveConfig()
				if err != nil {
					return err
				}
				inst, err := installerFor(cfg)
				if err != nil {
					return err
				}
				req := install.Request{
					DestinationRoot: absFrom(a.dir, dest),
					Repository: install.Repository{
						Kind:     install.KindGit,
						URL:      url,
						Revision: revision,
						Subpath:  subpath,
					},
					Force: force,
				}
				jobs, err := a.confirmReplacements(ctx, []job{{label: url, req: req}}, yes)
				if err != nil {
					return err
				}
				outcomes := runJobs(ctx, inst, a.newIndicator(cmd.ErrOrStderr(), len(jobs)), jobs)
				return report(ctx, projectDir, cfg.Timeouts.Lock, outcomes)
			}

			if dest != "" || revision != "" || subpath != "" {
				return errors.New("--dest, --revision and --subpath require --url")
			}
			if all && len(args) > 0 {
				return errors.New("cannot combine dependency names with --all")
			}
			if !all && len(args) == 0 {
				return errors.New("specify dependency names or --all")
			}

			p, err := a.loadProject()
			if err != nil {
				return err
			}

			entries := p.Manifest.Entries
			if !all {
				entries = nil
				for _, name := range args {
					e, err := p.Manifest.Lookup(name)
					if err != nil {
						return err
					}
					entries = append(entries, *e)
				}
			}
			if len(entries) == 0 {
				log.FromContext(ctx).Println("No dependencies in " + rel(a.dir, p.Manifest.Path))
				return nil
			}

			inst, err := installerFor(p.Config)
			if err != nil {
				return err
			}

			jobs := entryJobs(p.Dir, entries, force)
			jobs, err = a.confirmReplacements(ctx, jobs, yes)
			if err != nil {
				return err
			}
			outcomes := runJobs(ctx, inst, a.newIndicator(cmd.ErrOrStderr(), len(jobs)), jobs)
			return report(ctx, p.Dir, p.Config.Timeouts.Lock, outcomes)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Install every dependency in the manifest")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace dependencies that are already installed")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask before replacing existing installs")
	cmd.Flags().StringVar(&url, "url", "", "Install from this repository instead of the manifest")
	cmd.Flags().StringVar(&dest, "dest", "", "Destination directory for --url")
	cmd.Flags().StringVar(&revision, "revision", "", "Revision to check out for --url")
	cmd.Flags().StringVar(&subpath, "subpath", "", "Subdirectory to install for --url")
	cmd.MarkFlagsMutuallyExclusive("all", "url")
	_ = cmd.MarkFlagDirname("dest")

	return cmd
}

// entryJobs turns manifest entries into install jobs.
func entryJobs(projectDir string, entries []manifest.Entry, force bool) []job {
	jobs := make([]job, 0, len(entries))
	for _, e := range entries {
		jobs = append(jobs, job{
			name:  e.Name,
			label: e.Name,
			req:   e.Request(projectDir, force),
		})
	}
	return jobs
}

// confirmReplacements asks before a forced install replaces an existing
// target. Declined jobs are dropped; cancelling aborts the whole command.
// Without a terminal, or with yes set, every job is kept.
func (a *app) confirmReplacements(ctx context.Context, jobs []job, yes bool) ([]job, error) {
	if yes || !a.interactive() {
		return jobs, nil
	}
	l := log.FromContext(ctx)

	kept := jobs[:0:0]
	for _, j := range jobs {
		if !j.req.Force {
			kept = append(kept, j)
			continue
		}
		res, err := install.Resolve(j.req)
		if err != nil || !exists(res.Target) {
			// Resolve errors surface from Install itself
			kept = append(kept, j)
			continue
		}

		answer, err := a.confirm(fmt.Sprintf("Replace existing %s?", rel(a.dir, res.Target)))
		if err != nil {
			return nil, fmt.Errorf("confirm: %w", err)
		}
		if answer.Cancelled {
			return nil, errors.New("aborted")
		}
		if !answer.Confirmed {
			l.Printf("Skipping %s\n", j.label)
			continue
		}
		kept = append(kept, j)
	}
	return kept, nil
}
