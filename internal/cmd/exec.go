// Package cmd provides helpers for executing shell commands with proper error handling.
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/raphi011/gitembed/internal/log"
)

// waitDelay bounds how long Wait blocks on inherited pipes after the process
// was killed by context cancellation.
const waitDelay = 2 * time.Second

// RunContext executes name with args in dir and returns stderr in the error message if it fails.
// The command is killed when ctx is done; in that case ctx.Err() is returned.
func RunContext(ctx context.Context, dir, name string, args ...string) error {
	_, err := OutputContext(ctx, dir, name, args...)
	return err
}

// OutputContext executes name with args in dir and returns stdout, with stderr in error if it fails.
func OutputContext(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	done := log.FromContext(ctx).Command(dir, name, args...)
	start := time.Now()
	defer func() { done(time.Since(start)) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := exec.CommandContext(ctx, name, args...)
	c.Dir = dir
	c.WaitDelay = waitDelay

	var stderr bytes.Buffer
	c.Stderr = &stderr

	output, err := c.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errMsg := strings.TrimSpace(stderr.String()); errMsg != "" {
			return nil, fmt.Errorf("%s", errMsg)
		}
		return nil, err
	}
	return output, nil
}
