package main

import (
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphi011/gitembed/internal/manifest"
)

// completeDependencyNames completes manifest entry names that are not
// already on the command line.
func completeDependencyNames(a *app) cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		// PersistentPreRunE is skipped for completion, so resolve -C here
		dir := a.dir
		if dir == "" {
			wd, err := os.Getwd()
			if err != nil {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			dir = wd
		}

		path, err := manifest.Find(dir)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		m, err := manifest.Load(path)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		var matches []string
		for _, name := range m.Names() {
			if strings.HasPrefix(name, toComplete) && !slices.Contains(args, name) {
				matches = append(matches, name)
			}
		}
		return matches, cobra.ShellCompDirectiveNoFileComp
	}
}
