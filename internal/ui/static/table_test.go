package static

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"github.com/raphi011/gitembed/internal/manifest"
	"github.com/raphi011/gitembed/internal/state"
)

func TestRenderTable_Empty(t *testing.T) {
	t.Parallel()

	if got := RenderTable([]string{"A"}, nil); got != "" {
		t.Errorf("RenderTable() with no rows = %q, want empty", got)
	}
}

func TestRenderTable(t *testing.T) {
	t.Parallel()

	out := ansi.Strip(RenderTable([]string{"NAME", "PATH"}, [][]string{
		{"util", "third_party/util"},
		{"proto", "vendor/proto"},
	}))

	for _, want := range []string{"NAME", "PATH", "util", "third_party/util", "vendor/proto"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("table should end with a newline")
	}
}

func TestDependencyRow(t *testing.T) {
	t.Parallel()

	entry := manifest.Entry{
		Name: "util",
		Repository: manifest.Repository{
			URL:      "https://github.com/org/lib.git",
			Revision: "v1",
			Path:     "pkg/util",
		},
	}

	tests := []struct {
		name       string
		status     DependencyStatus
		wantStatus string
		wantCommit string
	}{
		{
			name:       "installed with record",
			status:     DependencyStatus{Entry: entry, Target: "third_party/util", Installed: true, Record: &state.Record{Commit: "abc1234def5678"}},
			wantStatus: "installed",
			wantCommit: "abc1234",
		},
		{
			name:       "installed without record",
			status:     DependencyStatus{Entry: entry, Target: "third_party/util", Installed: true},
			wantStatus: "installed",
			wantCommit: "-",
		},
		{
			name:       "missing",
			status:     DependencyStatus{Entry: entry, Target: "third_party/util"},
			wantStatus: "missing",
			wantCommit: "-",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			row := DependencyRow(tt.status)
			if len(row) != len(DependencyHeaders) {
				t.Fatalf("expected %d columns, got %d", len(DependencyHeaders), len(row))
			}
			if row[0] != "util" {
				t.Errorf("NAME = %q", row[0])
			}
			if got := ansi.Strip(row[1]); got != tt.wantStatus {
				t.Errorf("STATUS = %q, want %q", got, tt.wantStatus)
			}
			if row[2] != "third_party/util" {
				t.Errorf("TARGET = %q", row[2])
			}
			if row[3] != "https://github.com/org/lib.git@v1:pkg/util" {
				t.Errorf("SOURCE = %q", row[3])
			}
			if row[4] != tt.wantCommit {
				t.Errorf("COMMIT = %q, want %q", row[4], tt.wantCommit)
			}
		})
	}
}

func TestDependencyRow_AutoInstallMissing(t *testing.T) {
	t.Parallel()

	row := DependencyRow(DependencyStatus{Entry: manifest.Entry{Name: "a", AutoInstall: true}})
	if got := ansi.Strip(row[1]); got != "missing (auto)" {
		t.Errorf("STATUS = %q, want %q", got, "missing (auto)")
	}
}

func TestFormatSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		repo manifest.Repository
		want string
	}{
		{manifest.Repository{URL: "u"}, "u"},
		{manifest.Repository{URL: "u", Revision: "v1"}, "u@v1"},
		{manifest.Repository{URL: "u", Path: "a/b"}, "u:a/b"},
		{manifest.Repository{URL: "u", Revision: "main", Path: "a"}, "u@main:a"},
	}

	for _, tt := range tests {
		if got := FormatSource(tt.repo); got != tt.want {
			t.Errorf("FormatSource(%+v) = %q, want %q", tt.repo, got, tt.want)
		}
	}
}
