// ABOUTME: Result storage operations for SQLite
// ABOUTME: Upserts one CommentResult per comment and task, tagged with its run
package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harper/comment-classifier/internal/models"
)

// RunInfo describes the classify invocation writing results
type RunInfo struct {
	Task     string
	Model    string
	TieBreak string
}

// ResultStore handles result persistence for one task
type ResultStore struct {
	db    *DB
	runID string
	info  RunInfo
}

// NewResultStore registers a new run and returns a store writing under it
func NewResultStore(db *DB, info RunInfo) (*ResultStore, error) {
	if info.Task == "" {
		return nil, models.NewConfigError("result store needs a task name")
	}

	runID := uuid.New().String()
	_, err := db.Exec(`
		INSERT INTO runs (id, task, model, tie_break, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, runID, info.Task, info.Model, info.TieBreak, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	return &ResultStore{db: db, runID: runID, info: info}, nil
}

// OpenResultStore opens the database at path and starts a run in it
func OpenResultStore(path string, info RunInfo) (*ResultStore, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	store, err := NewResultStore(db, info)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// RunID returns the id recorded for this run
func (s *ResultStore) RunID() string {
	return s.runID
}

// Processed returns every comment id that already has a result for the task
func (s *ResultStore) Processed() (map[string]bool, error) {
	rows, err := s.db.Query(`SELECT comment_id FROM results WHERE task = ?`, s.info.Task)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	done := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		done[id] = true
	}
	return done, rows.Err()
}

// Write upserts a result; each statement commits on its own
func (s *ResultStore) Write(r models.CommentResult) error {
	votes, err := json.Marshal(r.VoteCounts)
	if err != nil {
		return fmt.Errorf("failed to encode vote counts: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO results (comment_id, task, run_id, final_label, vote_counts,
			unparseable_chunks, chunk_count, tied, state, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(comment_id, task) DO UPDATE SET
			run_id = excluded.run_id,
			final_label = excluded.final_label,
			vote_counts = excluded.vote_counts,
			unparseable_chunks = excluded.unparseable_chunks,
			chunk_count = excluded.chunk_count,
			tied = excluded.tied,
			state = excluded.state,
			created_at = excluded.created_at
	`, r.CommentID, s.info.Task, s.runID, string(r.FinalLabel), string(votes),
		r.UnparseableChunks, r.ChunkCount, r.Tied, string(r.State), time.Now().UTC())

	return err
}

// List returns all results for the task ordered by comment id
func (s *ResultStore) List() ([]models.CommentResult, error) {
	return ListResults(s.db, s.info.Task)
}

// Close closes the underlying database
func (s *ResultStore) Close() error {
	return s.db.Close()
}

// ListResults reads every stored result for a task
func ListResults(db *DB, task string) ([]models.CommentResult, error) {
	rows, err := db.Query(`
		SELECT comment_id, final_label, vote_counts, unparseable_chunks, chunk_count, tied, state
		FROM results
		WHERE task = ?
		ORDER BY comment_id
	`, task)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.CommentResult
	for rows.Next() {
		var (
			r     models.CommentResult
			label string
			votes string
			state string
		)
		if err := rows.Scan(&r.CommentID, &label, &votes, &r.UnparseableChunks, &r.ChunkCount, &r.Tied, &state); err != nil {
			return nil, err
		}
		r.FinalLabel = models.Category(label)
		r.State = models.CommentState(state)
		if err := json.Unmarshal([]byte(votes), &r.VoteCounts); err != nil {
			return nil, fmt.Errorf("bad vote counts for %s: %w", r.CommentID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Tasks lists the task names that have results
func Tasks(db *DB) ([]string, error) {
	rows, err := db.Query(`SELECT DISTINCT task FROM results ORDER BY task`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
