// ABOUTME: Leveled logger construction for the CLI and MCP server
// ABOUTME: Writes to stderr and optionally mirrors into a rotated log file
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/harper/comment-classifier/internal/models"
)

// Options select the level and destinations of the logger
type Options struct {
	Level string
	// File mirrors output into a rotated file; "auto" uses the XDG state dir
	File string
	// Writer defaults to stderr
	Writer io.Writer
}

// DefaultLogFile is where "auto" log files go
func DefaultLogFile() string {
	return filepath.Join(xdg.StateHome, "comment-classifier", "classify.log")
}

// ParseLevel maps debug|info|warn|error to a log level
func ParseLevel(s string) (log.Level, error) {
	if s == "" {
		return log.InfoLevel, nil
	}
	lvl, err := log.ParseLevel(strings.ToLower(s))
	if err != nil {
		return 0, models.NewConfigError("invalid log level %q (want debug, info, warn or error)", s)
	}
	return lvl, nil
}

// New builds the logger. The returned closer releases the log file and is
// safe to call when no file was opened.
func New(opts Options) (*log.Logger, io.Closer, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		path := opts.File
		if path == "auto" {
			path = DefaultLogFile()
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, models.NewConfigError("log directory for %s: %v", path, err)
		}
		rotator := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		w = io.MultiWriter(w, rotator)
		closer = rotator
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		Prefix:          "classify",
	})
	return logger, closer, nil
}

// Discard returns a logger that drops everything
func Discard() *log.Logger {
	return log.New(io.Discard)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
