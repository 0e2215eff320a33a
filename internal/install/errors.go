package install

import (
	"errors"

	"github.com/raphi011/gitembed/internal/scratch"
	"github.com/raphi011/gitembed/internal/vcs"
)

// Error kinds. Match them with errors.Is; use errors.As with *StepError to
// learn which step failed.
var (
	// ErrUnsupportedKind rejects a repository kind other than "git" before any I/O.
	ErrUnsupportedKind = errors.New("unsupported repository kind")
	// ErrInvalidRequest rejects a malformed request before any I/O.
	ErrInvalidRequest = errors.New("invalid install request")
	// ErrCloneFailed means the clone did not produce the expected directory.
	ErrCloneFailed = errors.New("clone failed")
	// ErrFetchTimedOut means the clone was killed after the clone timeout.
	ErrFetchTimedOut = errors.New("clone timed out")
	// ErrPinFailed means checking out the requested revision failed.
	ErrPinFailed = errors.New("checkout failed")
	// ErrPinTimedOut means the checkout was killed after the checkout timeout.
	ErrPinTimedOut = errors.New("checkout timed out")
	// ErrRelocationSourceMissing means the requested subpath is absent from the checkout.
	ErrRelocationSourceMissing = errors.New("relocation source missing")
	// ErrRelocationFailed means moving content into the destination failed;
	// the destination has been restored.
	ErrRelocationFailed = errors.New("relocation failed")
	// ErrCleanupIncomplete is reported on Result.CleanupErr, never as the install error.
	ErrCleanupIncomplete = scratch.ErrIncomplete
	// ErrToolNotFound accompanies ErrCloneFailed when the VCS executable is missing.
	ErrToolNotFound = vcs.ErrToolNotFound
)

// Step identifies a stage of an install.
type Step string

// Install stages, in execution order.
const (
	StepResolve  Step = "resolve"
	StepFetch    Step = "fetch"
	StepPin      Step = "pin"
	StepRelocate Step = "relocate"
	StepCleanup  Step = "cleanup"
)

// StepError records which step of an install failed.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return string(e.Step) + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// FailedStep returns the step that produced err, or "" if err did not come
// from an install.
func FailedStep(err error) Step {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step
	}
	return ""
}
