// Package manifest reads the project's list of git dependencies.
//
// The manifest lives at the project root as gitembed.toml (or gitembed.yaml /
// gitembed.yml). Each entry names a repository, an optional revision and
// subpath, and the project-relative directory to install into:
//
//	[[dependencies]]
//	name = "util"
//	path = "third_party"
//	auto_install = true
//
//	[dependencies.repository]
//	type = "git"
//	url = "https://github.com/org/lib.git"
//	revision = "v1.2.0"
//	path = "pkg/util"
//
// The entry above installs to third_party/util. The manifest is only ever
// read; installed state is tracked separately by the state package.
package manifest
