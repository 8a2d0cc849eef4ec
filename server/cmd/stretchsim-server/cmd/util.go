// Package cmd provides the offline subcommands of stretchsim-server.
package cmd

import (
	"fmt"
	"os"
)

// Version is the server version, overridden at build time with -ldflags.
var Version = "0.1.0"

// getEnv retrieves an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// scenarioArg returns the single positional scenario path, falling back to
// STRETCHSIM_SCENARIO.
func scenarioArg(args []string, required bool) (string, error) {
	switch len(args) {
	case 0:
		path := getEnv("STRETCHSIM_SCENARIO", "")
		if path == "" && required {
			return "", fmt.Errorf("a scenario file is required")
		}
		return path, nil
	case 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("expected one scenario file, got %d arguments", len(args))
	}
}
