// ABOUTME: Export functionality for stored classification results
// ABOUTME: Supports YAML and Markdown export formats
package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// ExportData represents the complete exportable data structure for one task
type ExportData struct {
	Version    string         `yaml:"version" json:"version"`
	ExportedAt string         `yaml:"exported_at" json:"exported_at"`
	Tool       string         `yaml:"tool" json:"tool"`
	Task       string         `yaml:"task" json:"task"`
	Runs       []ExportRun    `yaml:"runs,omitempty" json:"runs,omitempty"`
	Totals     map[string]int `yaml:"totals" json:"totals"`
	Results    []ExportResult `yaml:"results" json:"results"`
}

// ExportRun represents a run for export
type ExportRun struct {
	RunID     string `yaml:"run_id" json:"run_id"`
	Model     string `yaml:"model" json:"model"`
	TieBreak  string `yaml:"tie_break" json:"tie_break"`
	StartedAt string `yaml:"started_at" json:"started_at"`
}

// ExportResult represents a comment result for export
type ExportResult struct {
	CommentID         string         `yaml:"comment_id" json:"comment_id"`
	Label             string         `yaml:"label" json:"label"`
	Votes             map[string]int `yaml:"votes" json:"votes"`
	UnparseableChunks int            `yaml:"unparseable_chunks,omitempty" json:"unparseable_chunks,omitempty"`
	ChunkCount        int            `yaml:"chunk_count" json:"chunk_count"`
	Tied              bool           `yaml:"tied,omitempty" json:"tied,omitempty"`
}

// Export collects every run and result stored for a task
func Export(db *DB, task string) (*ExportData, error) {
	data := &ExportData{
		Version:    "1.0",
		ExportedAt: time.Now().Format(time.RFC3339),
		Tool:       "classify",
		Task:       task,
		Totals:     map[string]int{},
	}

	rows, err := db.Query(`
		SELECT id, model, tie_break, started_at
		FROM runs
		WHERE task = ?
		ORDER BY started_at
	`, task)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var run ExportRun
		var startedAt time.Time
		if err := rows.Scan(&run.RunID, &run.Model, &run.TieBreak, &startedAt); err != nil {
			continue
		}
		run.StartedAt = startedAt.Format(time.RFC3339)
		data.Runs = append(data.Runs, run)
	}

	results, err := ListResults(db, task)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	for _, r := range results {
		votes := make(map[string]int, len(r.VoteCounts))
		for c, n := range r.VoteCounts {
			votes[string(c)] = n
		}
		data.Results = append(data.Results, ExportResult{
			CommentID:         r.CommentID,
			Label:             string(r.FinalLabel),
			Votes:             votes,
			UnparseableChunks: r.UnparseableChunks,
			ChunkCount:        r.ChunkCount,
			Tied:              r.Tied,
		})
		data.Totals[string(r.FinalLabel)]++
	}

	return data, nil
}

// ExportToYAML exports a task's results to a YAML file
func ExportToYAML(db *DB, task, outputPath string) error {
	data, err := Export(db, task)
	if err != nil {
		return err
	}

	file, err := createOutput(outputPath)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return encoder.Close()
}

// ExportToMarkdown exports a task's results as a Markdown report
func ExportToMarkdown(db *DB, task, outputPath string) error {
	data, err := Export(db, task)
	if err != nil {
		return err
	}

	file, err := createOutput(outputPath)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	_, _ = fmt.Fprintf(file, "# Classification Export - %s\n\n", data.Task)
	_, _ = fmt.Fprintf(file, "Generated: %s\n\n", data.ExportedAt)

	if len(data.Runs) > 0 {
		_, _ = fmt.Fprintln(file, "## Runs")
		_, _ = fmt.Fprintln(file)
		for _, run := range data.Runs {
			_, _ = fmt.Fprintf(file, "- %s: %s (tie-break %s)\n", run.StartedAt, run.Model, run.TieBreak)
		}
		_, _ = fmt.Fprintln(file)
	}

	_, _ = fmt.Fprintln(file, "## Totals")
	_, _ = fmt.Fprintln(file)
	_, _ = fmt.Fprintln(file, "| Label | Comments |")
	_, _ = fmt.Fprintln(file, "|-------|----------|")
	labels := make([]string, 0, len(data.Totals))
	for label := range data.Totals {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		_, _ = fmt.Fprintf(file, "| %s | %d |\n", label, data.Totals[label])
	}
	_, _ = fmt.Fprintln(file)

	if len(data.Results) > 0 {
		_, _ = fmt.Fprintln(file, "## Results")
		_, _ = fmt.Fprintln(file)
		_, _ = fmt.Fprintln(file, "| Comment ID | Label | Chunks | Tied |")
		_, _ = fmt.Fprintln(file, "|------------|-------|--------|------|")
		for _, r := range data.Results {
			tied := ""
			if r.Tied {
				tied = "yes"
			}
			_, _ = fmt.Fprintf(file, "| %s | %s | %d | %s |\n", r.CommentID, r.Label, r.ChunkCount, tied)
		}
	}

	return nil
}

func createOutput(outputPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(outputPath) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return file, nil
}
