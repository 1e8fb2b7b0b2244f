package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema creates the pipeline tables when they are missing. The
// feedback tables are owned by the surrounding CRUD application; they are
// declared here too so a fresh deployment (and the test suites) can run
// against an empty database.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS report_requests (
		id TEXT PRIMARY KEY,
		requester TEXT NOT NULL,
		report_type TEXT NOT NULL,
		output_format TEXT NOT NULL,
		parameters TEXT NOT NULL DEFAULT '',
		priority INTEGER NOT NULL DEFAULT 2,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		started_at TEXT,
		completed_at TEXT,
		artifact_ref TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		failure_kind TEXT NOT NULL DEFAULT '',
		retry_count INTEGER NOT NULL DEFAULT 0,
		max_retries INTEGER NOT NULL DEFAULT 3
	);
	CREATE INDEX IF NOT EXISTS idx_report_requests_requester
		ON report_requests (requester, created_at);
	CREATE INDEX IF NOT EXISTS idx_report_requests_status
		ON report_requests (status);

	CREATE TABLE IF NOT EXISTS faculty_feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		faculty_id INTEGER NOT NULL,
		faculty_name TEXT NOT NULL,
		subject TEXT NOT NULL,
		section TEXT NOT NULL,
		semester TEXT NOT NULL,
		academic_year TEXT NOT NULL,
		comments TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_faculty_feedback_cohort
		ON faculty_feedback (section, semester, academic_year);

	CREATE TABLE IF NOT EXISTS feedback_ratings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		feedback_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		question_text TEXT NOT NULL,
		rating INTEGER NOT NULL,
		weight REAL NOT NULL,
		FOREIGN KEY (feedback_id) REFERENCES faculty_feedback(id)
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_ratings_feedback
		ON feedback_ratings (feedback_id);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
