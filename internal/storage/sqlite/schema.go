// ABOUTME: SQLite database schema for classification results
// ABOUTME: One row per comment per task, plus the runs that produced them
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
-- Runs table (one row per classify invocation)
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    task TEXT NOT NULL,
    model TEXT NOT NULL,
    tie_break TEXT NOT NULL,
    started_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Results table (the flat result table, keyed by comment and task)
CREATE TABLE IF NOT EXISTS results (
    comment_id TEXT NOT NULL,
    task TEXT NOT NULL,
    run_id TEXT REFERENCES runs(id) ON DELETE SET NULL,
    final_label TEXT NOT NULL,
    vote_counts TEXT NOT NULL,
    unparseable_chunks INTEGER DEFAULT 0,
    chunk_count INTEGER DEFAULT 0,
    tied INTEGER DEFAULT 0,
    state TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (comment_id, task)
);

-- Indexes for efficient querying
CREATE INDEX IF NOT EXISTS idx_results_label ON results(task, final_label);
CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
`

// SchemaVersion is the current schema version for migrations
const SchemaVersion = 1
