// Package ui holds terminal helpers shared by the CLI.
//
// Rendering lives in subpackages:
//
//   - static: tables for "gitembed list"
//   - progress: spinner and progress bar shown while installing
//   - prompt: the replace-existing confirmation
//   - styles: the shared palette and status markers
//
// Interactive output is only used when [IsTerminal] reports a terminal;
// otherwise commands fall back to plain log lines.
package ui
