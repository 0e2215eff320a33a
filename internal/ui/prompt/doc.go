// Package prompt provides simple interactive prompts.
//
// Prompts render on stderr so stdout stays clean for piping. Callers are
// expected to check for a terminal first and skip the prompt otherwise.
package prompt
