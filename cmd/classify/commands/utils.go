// ABOUTME: Shared utility functions for CLI commands
// ABOUTME: Logger setup from global flags, output helpers and argument checks
package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/harper/comment-classifier/internal/config"
	"github.com/harper/comment-classifier/internal/logging"
)

// newLogger honours --verbose/--quiet first, then --log-level, then the config
func newLogger(cfg *config.Config, w io.Writer) (*log.Logger, io.Closer, error) {
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	switch {
	case verbose:
		level = "debug"
	case quiet:
		level = "error"
	}

	file := cfg.LogFile
	if logFile != "" {
		file = logFile
	}
	return logging.New(logging.Options{Level: level, File: file, Writer: w})
}

// wantJSON reports whether machine-readable output was requested
func wantJSON() bool {
	return outputFormat == "json"
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, _ = fmt.Fprintf(w, "%s\n", data)
	return nil
}

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return string(runes[:maxLen-3]) + "..."
}

// validatePositiveInt returns error if n is not positive
func validatePositiveInt(n int, name string) error {
	if n <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, n)
	}
	return nil
}

func validateFormat() error {
	switch outputFormat {
	case "auto", "table", "json":
		return nil
	}
	return fmt.Errorf("--format must be auto, table or json, got %q", outputFormat)
}
