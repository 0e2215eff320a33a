package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/raphi011/gitembed/internal/install"
	"github.com/raphi011/gitembed/internal/log"
	"github.com/raphi011/gitembed/internal/output"
	"github.com/raphi011/gitembed/internal/state"
	"github.com/raphi011/gitembed/internal/ui/static"
)

// DependencyDisplay holds dependency info for JSON output
type DependencyDisplay struct {
	Name        string     `json:"name"`
	URL         string     `json:"url"`
	Revision    string     `json:"revision,omitempty"`
	Subpath     string     `json:"subpath,omitempty"`
	Target      string     `json:"target"`
	AutoInstall bool       `json:"auto_install"`
	Installed   bool       `json:"installed"`
	Commit      string     `json:"commit,omitempty"`
	InstalledAt *time.Time `json:"installed_at,omitempty"`
}

func newListCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List dependencies",
		Aliases: []string{"ls"},
		GroupID: GroupCore,
		Args:    cobra.NoArgs,
		Long: `List the dependencies in the project manifest.

Shows where each one installs to, whether it is present on disk, and the
commit recorded by the last install.`,
		Example: `  gitembed list          # Table of dependencies
  gitembed list --json   # Output as JSON`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l := log.FromContext(ctx)
			out := output.FromContext(ctx)

			p, err := a.loadProject()
			if err != nil {
				return err
			}

			st, err := state.Load(p.Dir)
			if err != nil {
				// State is bookkeeping only; list what is on disk without it
				l.Printf("Warning: %v\n", err)
				st = &state.State{Installs: map[string]state.Record{}}
			}

			var (
				rows     [][]string
				displays = make([]DependencyDisplay, 0, len(p.Manifest.Entries))
			)
			for _, e := range p.Manifest.Entries {
				target := e.Target(p.Dir)
				status := static.DependencyStatus{
					Entry:     e,
					Target:    rel(p.Dir, target),
					Installed: install.Installed(target),
				}
				d := DependencyDisplay{
					Name:        e.Name,
					URL:         e.Repository.URL,
					Revision:    e.Repository.Revision,
					Subpath:     e.Repository.Path,
					Target:      target,
					AutoInstall: e.AutoInstall,
					Installed:   status.Installed,
				}
				if r, ok := st.Get(e.Name); ok {
					status.Record = &r
					d.Commit = r.Commit
					d.InstalledAt = &r.InstalledAt
				}
				rows = append(rows, static.DependencyRow(status))
				displays = append(displays, d)
			}

			if jsonOutput {
				return out.JSON(displays)
			}

			if len(rows) == 0 {
				l.Printf("No dependencies in %s\n", rel(a.dir, p.Manifest.Path))
				return nil
			}

			out.Print(static.RenderTable(static.DependencyHeaders, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
