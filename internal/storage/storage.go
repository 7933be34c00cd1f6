// ABOUTME: Result sink selection for classification output
// ABOUTME: Picks a CSV file or a SQLite result table from the output path
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harper/comment-classifier/internal/models"
	"github.com/harper/comment-classifier/internal/storage/sqlite"
)

// ResultSink receives exactly one CommentResult per classified comment.
// Writes come from a single goroutine and are durable when Write returns.
type ResultSink interface {
	Processed() (map[string]bool, error)
	Write(result models.CommentResult) error
	Close() error
}

// Options describe the task whose results a sink stores
type Options struct {
	Task        string
	LabelColumn string
	Categories  models.CategorySet
	Model       string
	TieBreak    string
}

// AutoPath selects the shared result database under the XDG data dir
const AutoPath = "auto"

// ResolvePath expands AutoPath; any other path is returned unchanged
func ResolvePath(path string) string {
	if path == AutoPath {
		return sqlite.DefaultDBPath()
	}
	return path
}

// IsDatabase reports whether path names a SQLite result store
func IsDatabase(path string) bool {
	path = ResolvePath(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// Open returns a sink appending to path; existing results are kept so an
// interrupted run can resume
func Open(path string, opts Options) (ResultSink, error) {
	if path == "" {
		return nil, models.NewConfigError("output path is required")
	}
	path = ResolvePath(path)
	if IsDatabase(path) {
		store, err := sqlite.OpenResultStore(path, sqlite.RunInfo{
			Task:     opts.Task,
			Model:    opts.Model,
			TieBreak: opts.TieBreak,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open result database: %w", err)
		}
		return store, nil
	}
	return OpenCSV(path, opts.LabelColumn, opts.Categories)
}

// ReadResults loads every stored result for a task from a CSV file or database
func ReadResults(path string, opts Options) ([]models.CommentResult, error) {
	path = ResolvePath(path)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open results: %w", err)
	}
	if IsDatabase(path) {
		db, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = db.Close() }()
		return sqlite.ListResults(db, opts.Task)
	}
	return ReadCSV(path)
}
