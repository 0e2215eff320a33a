package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/raphi011/gitembed/internal/install"
	"github.com/raphi011/gitembed/internal/log"
	"github.com/raphi011/gitembed/internal/state"
	"github.com/raphi011/gitembed/internal/ui/progress"
	"github.com/raphi011/gitembed/internal/ui/static"
)

// job is one install to perform.
type job struct {
	name  string // manifest entry name; empty for ad-hoc installs
	label string // shown in progress and log output
	req   install.Request
}

// outcome is the result of running a job.
type outcome struct {
	job job
	res install.Result
	err error
}

// indicator shows progress across a batch of jobs.
type indicator interface {
	step(done int, label string)
	stop()
}

type spinnerIndicator struct{ s *progress.Spinner }

func (i spinnerIndicator) step(_ int, label string) { i.s.UpdateMessage("Installing " + label) }
func (i spinnerIndicator) stop()                     { i.s.Stop() }

type barIndicator struct{ b *progress.ProgressBar }

func (i barIndicator) step(done int, label string) { i.b.SetProgress(done, label) }
func (i barIndicator) stop()                       { i.b.Stop() }

type noIndicator struct{}

func (noIndicator) step(int, string) {}
func (noIndicator) stop()            {}

// newIndicator picks a spinner for one job, a progress bar for several, and
// nothing when output is not an interactive terminal or is verbose or quiet.
func (a *app) newIndicator(w io.Writer, jobs int) indicator {
	if jobs == 0 || a.verbose || a.quiet || !a.interactive() {
		return noIndicator{}
	}
	if jobs == 1 {
		s := progress.NewSpinner(w, "Installing")
		s.Start()
		return spinnerIndicator{s}
	}
	b := progress.NewProgressBar(w, jobs, "Installing")
	b.Start()
	return barIndicator{b}
}

// runJobs installs jobs in order. Jobs after a cancellation are not started.
func runJobs(ctx context.Context, inst *install.Installer, ind indicator, jobs []job) []outcome {
	outcomes := make([]outcome, 0, len(jobs))
	for i, j := range jobs {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, outcome{job: j, err: err})
			continue
		}
		ind.step(i, j.label)
		res, err := inst.Install(ctx, j.req)
		outcomes = append(outcomes, outcome{job: j, res: res, err: err})
	}
	ind.stop()
	return outcomes
}

// report logs each outcome, records successful named installs in the
// project state and returns an error if any job failed.
func report(ctx context.Context, projectDir string, lockTimeout time.Duration, outcomes []outcome) error {
	l := log.FromContext(ctx)

	var failed int
	var installed []outcome
	for _, o := range outcomes {
		switch {
		case o.err != nil:
			failed++
			l.Printf("Error: %s: %v\n", o.job.label, o.err)
			if errors.Is(o.err, install.ErrToolNotFound) {
				l.Printf("  hint: install git or set backend = \"go-git\" in the config\n")
			}
		case o.res.Skipped:
			l.Printf("%s: already installed at %s\n", o.job.label, rel(projectDir, o.res.Path))
		default:
			installed = append(installed, o)
			msg := fmt.Sprintf("Installed %s -> %s", o.job.label, rel(projectDir, o.res.Path))
			if o.res.Revision != "" {
				msg += " (" + static.ShortCommit(o.res.Revision) + ")"
			}
			l.Println(msg)
		}
	}

	if err := record(ctx, projectDir, lockTimeout, installed); err != nil {
		l.Printf("Warning: failed to update install state: %v\n", err)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d installs failed", failed, len(outcomes))
	}
	return nil
}

// record writes successful named installs to the project state.
func record(ctx context.Context, projectDir string, lockTimeout time.Duration, outcomes []outcome) error {
	var named []outcome
	for _, o := range outcomes {
		if o.job.name != "" {
			named = append(named, o)
		}
	}
	if projectDir == "" || len(named) == 0 {
		return nil
	}

	now := time.Now().UTC()
	return state.Update(ctx, projectDir, lockTimeout, func(s *state.State) error {
		for _, o := range named {
			s.Set(o.job.name, state.Record{
				Path:        o.res.Path,
				URL:         o.job.req.Repository.URL,
				Revision:    o.job.req.Repository.Revision,
				Commit:      o.res.Revision,
				InstalledAt: now,
			})
		}
		return nil
	})
}
