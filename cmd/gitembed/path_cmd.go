package main

import (
	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/raphi011/gitembed/internal/install"
	"github.com/raphi011/gitembed/internal/log"
	"github.com/raphi011/gitembed/internal/output"
)

func newPathCmd(a *app) *cobra.Command {
	var (
		copyToClipboard bool
		relative        bool
	)

	cmd := &cobra.Command{
		Use:     "path <name>",
		Short:   "Print a dependency's install path",
		GroupID: GroupCore,
		Args:    cobra.ExactArgs(1),
		Long: `Print where a dependency is (or would be) installed.

Use with shell command substitution: cd $(gitembed path proto)`,
		Example: `  cd $(gitembed path proto)      # cd into the installed dependency
  gitembed path proto --relative  # path relative to the project root
  gitembed path proto --copy      # copy path to clipboard`,
		ValidArgsFunction: completeDependencyNames(a),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l := log.FromContext(ctx)
			out := output.FromContext(ctx)

			p, err := a.loadProject()
			if err != nil {
				return err
			}
			e, err := p.Manifest.Lookup(args[0])
			if err != nil {
				return err
			}

			target := e.Target(p.Dir)
			if !install.Installed(target) {
				l.Printf("Warning: %s is not installed (run 'gitembed install %s')\n", e.Name, e.Name)
			}
			if relative {
				target = rel(p.Dir, target)
			}

			if copyToClipboard {
				if err := clipboard.WriteAll(target); err != nil {
					l.Printf("Warning: failed to copy to clipboard: %v\n", err)
				} else {
					l.Printf("Copied %s to clipboard\n", target)
				}
			}

			out.Println(target)
			return nil
		},
	}

	cmd.Flags().BoolVar(&copyToClipboard, "copy", false, "Copy path to clipboard")
	cmd.Flags().BoolVar(&relative, "relative", false, "Print the path relative to the project root")

	return cmd
}
