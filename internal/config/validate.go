package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ValidBackends lists the accepted values for the backend setting.
var ValidBackends = []string{BackendExec, BackendGoGit}

// validateEnum checks that value (if non-empty) is one of the allowed values.
// Returns a formatted error mentioning the field name and allowed options.
func validateEnum(value, field string, allowed []string) error {
	if value == "" {
		return nil
	}
	if !slices.Contains(allowed, value) {
		return fmt.Errorf("invalid %s %q: must be %s", field, value, formatOptions(allowed))
	}
	return nil
}

// validateSidecarExt rejects extensions that would not form a single file suffix.
func validateSidecarExt(ext string) error {
	if strings.HasPrefix(ext, ".") || strings.ContainsAny(ext, `/\`) {
		return fmt.Errorf("invalid sidecar_ext %q: must be a bare extension like \"meta\"", ext)
	}
	return nil
}

// parseTimeout parses a Go duration and rejects non-positive values.
func parseTimeout(value, field string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", field, value)
	}
	return d, nil
}

// formatOptions formats a list of allowed values for error messages.
// E.g., ["a", "b", "c"] -> `"a", "b", or "c"`
func formatOptions(opts []string) string {
	quoted := make([]string, len(opts))
	for i, o := range opts {
		quoted[i] = fmt.Sprintf("%q", o)
	}
	if len(quoted) <= 2 {
		return strings.Join(quoted, " or ")
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + ", or " + quoted[len(quoted)-1]
}
