package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"dev/bravebird/page-verifier/pkg/models"
)

// DefaultListLimit caps ListVerificationRuns when no limit is given
const DefaultListLimit = 50

const schema = `
	CREATE TABLE IF NOT EXISTS verification_runs (
		id                   VARCHAR(36)  NOT NULL PRIMARY KEY,
		temporal_workflow_id VARCHAR(255) NOT NULL DEFAULT '',
		temporal_run_id      VARCHAR(255) NOT NULL DEFAULT '',
		target_url           TEXT         NOT NULL,
		status               VARCHAR(16)  NOT NULL,
		outcome              VARCHAR(32)  NOT NULL DEFAULT '',
		screenshot_path      TEXT         NOT NULL,
		error_message        TEXT         NOT NULL,
		started_at           DATETIME     NULL,
		completed_at         DATETIME     NULL,
		duration_ms          BIGINT       NOT NULL DEFAULT 0,
		INDEX idx_verification_runs_started_at (started_at)
	)
`

// DB represents the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection
func New(dsn string) (*DB, error) {
	cfg, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn := sql.OpenDB(connector)

	// Configure connection pool
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{conn: conn}, nil
}

// parseDSN forces parseTime so DATETIME columns scan into time values
func parseDSN(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg, nil
}

// NewFromConn wraps an existing connection
func NewFromConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// EnsureSchema creates the runs table if it does not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// ==================== Verification Runs ====================

// CreateVerificationRun inserts a run, or refreshes its Temporal IDs and status
// when the row already exists.
func (db *DB) CreateVerificationRun(ctx context.Context, run *models.VerificationRun) error {
	query := `
		INSERT INTO verification_runs (id, temporal_workflow_id, temporal_run_id, target_url, status,
		                               screenshot_path, error_message, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			temporal_workflow_id = VALUES(temporal_workflow_id),
			temporal_run_id = VALUES(temporal_run_id),
			status = VALUES(status),
			started_at = VALUES(started_at)
	`

	_, err := db.conn.ExecContext(ctx, query,
		run.ID,
		run.TemporalWorkflowID,
		run.TemporalRunID,
		run.TargetURL,
		run.Status,
		run.ScreenshotPath,
		run.ErrorMessage,
		run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// CompleteVerificationRun stores the final status and outcome of a run
func (db *DB) CompleteVerificationRun(ctx context.Context, id string, status models.RunStatus, result models.VerificationResult, errorMsg string) error {
	query := `
		UPDATE verification_runs
		SET status = ?, outcome = ?, screenshot_path = ?, error_message = ?,
		    duration_ms = ?, completed_at = NOW()
		WHERE id = ?
	`

	_, err := db.conn.ExecContext(ctx, query,
		status,
		result.Outcome,
		result.ScreenshotPath,
		completionMessage(result, errorMsg),
		result.Duration,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// AttachWorkflow stores the Temporal IDs of a started run. Only a pending run
// moves to running, so a run the worker already finished keeps its status.
func (db *DB) AttachWorkflow(ctx context.Context, id, workflowID, runID string) error {
	query := `
		UPDATE verification_runs
		SET temporal_workflow_id = ?, temporal_run_id = ?,
		    status = CASE WHEN status = 'pending' THEN 'running' ELSE status END
		WHERE id = ?
	`

	_, err := db.conn.ExecContext(ctx, query, workflowID, runID, id)
	if err != nil {
		return fmt.Errorf("failed to attach workflow: %w", err)
	}
	return nil
}

// UpdateVerificationRunStatus changes the status without touching the outcome
func (db *DB) UpdateVerificationRunStatus(ctx context.Context, id string, status models.RunStatus, errorMsg string) error {
	query := `
		UPDATE verification_runs
		SET status = ?, error_message = ?,
		    completed_at = CASE WHEN ? IN ('success', 'failed', 'canceled') THEN NOW() ELSE completed_at END
		WHERE id = ?
	`

	_, err := db.conn.ExecContext(ctx, query, status, errorMsg, status, id)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// GetVerificationRun retrieves a run by ID. A missing run is (nil, nil).
func (db *DB) GetVerificationRun(ctx context.Context, id string) (*models.VerificationRun, error) {
	query := `
		SELECT id, temporal_workflow_id, temporal_run_id, target_url, status, outcome,
		       screenshot_path, error_message, started_at, completed_at, duration_ms
		FROM verification_runs
		WHERE id = ?
	`

	run, err := scanRun(db.conn.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// ListVerificationRuns returns the most recent runs first
func (db *DB) ListVerificationRuns(ctx context.Context, limit int) ([]models.VerificationRun, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, temporal_workflow_id, temporal_run_id, target_url, status, outcome,
		       screenshot_path, error_message, started_at, completed_at, duration_ms
		FROM verification_runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []models.VerificationRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*models.VerificationRun, error) {
	var run models.VerificationRun
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&run.ID,
		&run.TemporalWorkflowID,
		&run.TemporalRunID,
		&run.TargetURL,
		&run.Status,
		&run.Outcome,
		&run.ScreenshotPath,
		&run.ErrorMessage,
		&startedAt,
		&completedAt,
		&run.DurationMs,
	)
	if err != nil {
		return nil, err
	}

	if startedAt.Valid {
		run.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return &run, nil
}

// completionMessage keeps the wait error visible for runs that finished with a
// failed render, since those do not carry a fatal error.
func completionMessage(result models.VerificationResult, errorMsg string) string {
	if errorMsg != "" {
		return errorMsg
	}
	return result.WaitError
}
