// Package vcs runs the two version-control operations gitembed needs:
// cloning a remote repository and checking out a revision.
//
// Callers depend on the narrow [Runner] interface so the installer can be
// tested with a fake. Two implementations ship:
//
//   - [Exec] shells out to the git CLI (default). This keeps compatibility
//     with user configuration such as SSH keys and credential helpers.
//   - [GoGit] uses go-git and needs no git binary on PATH.
//
// Both understand exactly two argument shapes:
//
//	clone <url> <name>     // run in the scratch root, creates <dir>/<name>
//	checkout <revision>    // run in the staged checkout
package vcs
