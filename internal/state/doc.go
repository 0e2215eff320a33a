// Package state records which dependencies have been installed into a project.
//
// The record lives in .gitembed/state.json at the project root:
//
//	{
//	  "installs": {
//	    "util": {
//	      "path": "/path/to/project/third_party/util",
//	      "url": "https://github.com/org/lib.git",
//	      "revision": "v1.2.0",
//	      "commit": "5c1f0e...",
//	      "installed_at": "2026-01-02T15:04:05Z"
//	    }
//	  }
//	}
//
// # Concurrency
//
// Use [Update] for every modification. It takes an exclusive lock on
// .gitembed/state.lock (waiting at most the configured lock timeout), reloads
// the file, applies the change and writes it back atomically.
//
// The state is advisory: the installer decides whether to install from the
// filesystem, never from this file. "gitembed doctor" reports records whose
// paths have disappeared.
package state
