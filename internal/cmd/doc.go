// Package cmd provides helpers for executing shell commands with proper error handling.
//
// This package wraps [os/exec.Cmd] to capture stderr and include it in error
// messages, making command failures more informative for users.
//
// # Usage
//
//	if err := cmd.RunContext(ctx, dir, "git", "status"); err != nil {
//	    // err contains stderr output if available
//	    return fmt.Errorf("git failed: %w", err)
//	}
//
//	// For commands that return output:
//	output, err := cmd.OutputContext(ctx, dir, "git", "rev-parse", "HEAD")
//
// # Timeouts
//
// Commands are started with [os/exec.CommandContext]. When the context is
// cancelled or its deadline passes, the process is killed and the context
// error is returned unchanged so callers can tell a timeout from a failure
// with [errors.Is].
//
// Every command is echoed through the context logger in verbose mode.
package cmd
