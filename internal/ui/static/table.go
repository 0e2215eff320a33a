// Package static provides non-interactive terminal output components.
//
// This package contains components for rendering formatted output
// that does not require user interaction, such as tables.
package static

import (
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/raphi011/gitembed/internal/manifest"
	"github.com/raphi011/gitembed/internal/state"
	"github.com/raphi011/gitembed/internal/ui/styles"
)

// RenderTable creates a formatted table with proper column alignment.
// Headers and rows are rendered using lipgloss/table which automatically
// calculates column widths based on content. No borders are rendered.
func RenderTable(headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	t := table.New().
		Headers(headers...).
		Rows(rows...).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		BorderRow(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Bold.PaddingRight(2)
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})

	var b strings.Builder
	b.WriteString(t.String())
	b.WriteString("\n")
	return b.String()
}

// DependencyHeaders are the columns of the dependency list.
var DependencyHeaders = []string{"NAME", "STATUS", "TARGET", "SOURCE", "COMMIT"}

// DependencyStatus is one row of the dependency list.
type DependencyStatus struct {
	Entry     manifest.Entry
	Target    string        // project-relative install location
	Installed bool          // target exists on disk
	Record    *state.Record // nil when never recorded
}

// DependencyRow formats a dependency for [RenderTable] using [DependencyHeaders].
func DependencyRow(s DependencyStatus) []string {
	status := styles.ErrorStyle.Render("missing")
	if s.Installed {
		status = styles.SuccessStyle.Render("installed")
	}
	if !s.Installed && s.Entry.AutoInstall {
		status = styles.WarningStyle.Render("missing (auto)")
	}

	commit := "-"
	if s.Record != nil && s.Record.Commit != "" {
		commit = ShortCommit(s.Record.Commit)
	}

	return []string{
		s.Entry.Name,
		status,
		s.Target,
		FormatSource(s.Entry.Repository),
		commit,
	}
}

// FormatSource renders a repository as "url@revision:subpath", omitting
// unset parts.
func FormatSource(r manifest.Repository) string {
	var b strings.Builder
	b.WriteString(r.URL)
	if r.Revision != "" {
		b.WriteString("@")
		b.WriteString(r.Revision)
	}
	if r.Path != "" {
		b.WriteString(":")
		b.WriteString(r.Path)
	}
	return b.String()
}

// ShortCommit abbreviates a commit hash to 7 characters.
func ShortCommit(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
