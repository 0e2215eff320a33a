// Package install places a source tree from a git repository into a project
// directory.
//
// An install is a fixed pipeline run by [Installer.Install]:
//
//   - Resolve: validate the request and decide whether anything needs doing.
//     If the target already exists and Force is unset the install stops here,
//     without touching the network or the scratch area.
//   - Fetch: clone the repository into a fresh scratch workspace.
//   - Pin: check out the requested revision, if any.
//   - Relocate: move the requested subpath (or the whole checkout) into the
//     destination, together with its "<name>.meta" sidecar.
//   - Cleanup: reap the scratch workspace. This always runs once a workspace
//     was allocated, whatever the outcome of the earlier steps.
//
// # Target Naming
//
// The installed entry is named after the last segment of the subpath:
//
//	subpath "pkg/util"  ->  <destination>/util
//	subpath ""          ->  <destination> (the whole checkout)
//
// # Errors
//
// Failures are returned as [*StepError] wrapping one of the package's error
// kinds, so callers can match both the step and the cause:
//
//	if errors.Is(err, install.ErrPinFailed) { ... }
//	if install.FailedStep(err) == install.StepFetch { ... }
//
// Scratch cleanup problems never change the outcome; they are reported on
// [Result.CleanupErr].
//
// # Atomicity
//
// Relocation either completes or leaves the destination as it was. An
// existing target is moved aside first and restored if the move fails.
// Across filesystems the content is copied into a temporary sibling and
// renamed into place.
package install
