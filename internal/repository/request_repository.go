package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/campuspulse/report-server/internal/repository/models"
)

var ErrRequestNotFound = errors.New("report request not found")

// RequestRepository persists report requests in SQL. Every state transition
// is a conditional UPDATE guarded by the current status, so concurrent
// workers can never move the same request twice.
type RequestRepository struct {
	db *sql.DB
}

func NewRequestRepository(db *sql.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestColumns = `id, requester, report_type, output_format, parameters, priority,
	status, created_at, started_at, completed_at, artifact_ref, error_message,
	failure_kind, retry_count, max_retries`

// sqlTimeFormat is RFC 3339 with fixed-width nanoseconds. RFC3339Nano drops
// trailing fractional zeros, so a whole-second timestamp would sort after
// sub-second ones in the same second; the time columns are TEXT and every
// ORDER BY and range predicate relies on lexicographic order matching
// chronological order.
const sqlTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Create inserts a new PENDING request.
func (r *RequestRepository) Create(ctx context.Context, req *models.ReportRequest) error {
	params, err := json.Marshal(req.Parameters)
	if err != nil {
		return fmt.Errorf("marshal request parameters: %w", err)
	}

	const query = `
		INSERT INTO report_requests (` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, '', '', '', ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		req.ID, req.Requester, req.ReportType, req.OutputFormat, string(params),
		req.Priority, string(req.Status), req.CreatedAt.UTC().Format(sqlTimeFormat),
		req.RetryCount, req.MaxRetries)
	if err != nil {
		return fmt.Errorf("insert report request: %w", err)
	}
	return nil
}

// Get fetches one request by id.
func (r *RequestRepository) Get(ctx context.Context, id string) (*models.ReportRequest, error) {
	const query = `SELECT ` + requestColumns + ` FROM report_requests WHERE id = ?`

	req, err := scanRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, id)
		}
		return nil, fmt.Errorf("query report request: %w", err)
	}
	return req, nil
}

// ListByRequester returns a requester's requests, newest first, optionally
// filtered by status.
func (r *RequestRepository) ListByRequester(ctx context.Context, requester string, status models.RequestStatus, limit, offset int) ([]models.ReportRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM report_requests WHERE requester = ?`
	args := []any{requester}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query requests by requester: %w", err)
	}
	defer rows.Close()

	var out []models.ReportRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request row: %w", err)
		}
		out = append(out, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate request rows: %w", err)
	}
	return out, nil
}

// Claim atomically moves a PENDING request to PROCESSING and stamps
// started_at. Exactly one of any number of concurrent claimers wins; a
// claim on a missing or non-PENDING request returns false.
func (r *RequestRepository) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	const query = `
		UPDATE report_requests
		SET status = ?, started_at = ?
		WHERE id = ? AND status = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		string(models.StatusProcessing), now.UTC().Format(sqlTimeFormat),
		id, string(models.StatusPending))
	if err != nil {
		return false, fmt.Errorf("claim request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim request rows: %w", err)
	}
	return n == 1, nil
}

// MarkCompleted moves a PROCESSING request to COMPLETED with its artifact.
func (r *RequestRepository) MarkCompleted(ctx context.Context, id, artifactRef string, now time.Time) error {
	const query = `
		UPDATE report_requests
		SET status = ?, completed_at = ?, artifact_ref = ?
		WHERE id = ? AND status = ?
	`
	return r.transition(ctx, id, query,
		string(models.StatusCompleted), now.UTC().Format(sqlTimeFormat), artifactRef,
		id, string(models.StatusProcessing))
}

// MarkFailed moves a PROCESSING request to FAILED with a stable error
// message and failure classification. retry_count is left untouched; only
// the retry sweep increments it.
func (r *RequestRepository) MarkFailed(ctx context.Context, id, message string, kind models.FailureKind, now time.Time) error {
	const query = `
		UPDATE report_requests
		SET status = ?, completed_at = ?, error_message = ?, failure_kind = ?
		WHERE id = ? AND status = ?
	`
	return r.transition(ctx, id, query,
		string(models.StatusFailed), now.UTC().Format(sqlTimeFormat), message, string(kind),
		id, string(models.StatusProcessing))
}

// MarkCancelled cancels a PENDING request owned by requester. Returns false
// when the request exists but is past PENDING or owned by someone else.
func (r *RequestRepository) MarkCancelled(ctx context.Context, id, requester string, now time.Time) (bool, error) {
	const query = `
		UPDATE report_requests
		SET status = ?, completed_at = ?
		WHERE id = ? AND requester = ? AND status = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		string(models.StatusCancelled), now.UTC().Format(sqlTimeFormat),
		id, requester, string(models.StatusPending))
	if err != nil {
		return false, fmt.Errorf("cancel request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel request rows: %w", err)
	}
	return n == 1, nil
}

// ListRetryable returns FAILED transient requests with retry budget left.
func (r *RequestRepository) ListRetryable(ctx context.Context) ([]models.PendingRef, error) {
	const query = `
		SELECT id, priority FROM report_requests
		WHERE status = ? AND failure_kind = ? AND retry_count < max_retries
		ORDER BY priority ASC, created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, string(models.StatusFailed), string(models.FailureTransient))
	if err != nil {
		return nil, fmt.Errorf("query retryable requests: %w", err)
	}
	defer rows.Close()

	var out []models.PendingRef
	for rows.Next() {
		var ref models.PendingRef
		if err := rows.Scan(&ref.ID, &ref.Priority); err != nil {
			return nil, fmt.Errorf("scan retryable row: %w", err)
		}
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate retryable rows: %w", err)
	}
	return out, nil
}

// ResetForRetry moves an eligible FAILED request back to PENDING,
// incrementing retry_count and clearing the failure fields. This is the
// only statement anywhere that touches retry_count.
func (r *RequestRepository) ResetForRetry(ctx context.Context, id string) (bool, error) {
	const query = `
		UPDATE report_requests
		SET status = ?, retry_count = retry_count + 1, error_message = '',
			failure_kind = '', started_at = NULL, completed_at = NULL
		WHERE id = ? AND status = ? AND failure_kind = ? AND retry_count < max_retries
	`
	res, err := r.db.ExecContext(ctx, query,
		string(models.StatusPending), id, string(models.StatusFailed), string(models.FailureTransient))
	if err != nil {
		return false, fmt.Errorf("reset request for retry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reset request rows: %w", err)
	}
	return n == 1, nil
}

// PendingRefs returns all PENDING requests in queue order, used to rebuild
// the pending structure after a restart.
func (r *RequestRepository) PendingRefs(ctx context.Context) ([]models.PendingRef, error) {
	const query = `
		SELECT id, priority FROM report_requests
		WHERE status = ?
		ORDER BY priority ASC, created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, string(models.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("query pending requests: %w", err)
	}
	defer rows.Close()

	var out []models.PendingRef
	for rows.Next() {
		var ref models.PendingRef
		if err := rows.Scan(&ref.ID, &ref.Priority); err != nil {
			return nil, fmt.Errorf("scan pending row: %w", err)
		}
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending rows: %w", err)
	}
	return out, nil
}

// FailOrphanedProcessing fails PROCESSING requests whose worker died before
// finishing: anything started before the cutoff.
func (r *RequestRepository) FailOrphanedProcessing(ctx context.Context, cutoff time.Time, message string) (int64, error) {
	const query = `
		UPDATE report_requests
		SET status = ?, completed_at = ?, error_message = ?, failure_kind = ?
		WHERE status = ? AND started_at < ?
	`
	res, err := r.db.ExecContext(ctx, query,
		string(models.StatusFailed), time.Now().UTC().Format(sqlTimeFormat),
		message, string(models.FailureTransient),
		string(models.StatusProcessing), cutoff.UTC().Format(sqlTimeFormat))
	if err != nil {
		return 0, fmt.Errorf("fail orphaned requests: %w", err)
	}
	return res.RowsAffected()
}

// DeleteTerminalBefore removes terminal requests created before the cutoff.
func (r *RequestRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
		DELETE FROM report_requests
		WHERE status IN (?, ?, ?) AND created_at < ?
	`
	res, err := r.db.ExecContext(ctx, query,
		string(models.StatusCompleted), string(models.StatusFailed), string(models.StatusCancelled),
		cutoff.UTC().Format(sqlTimeFormat))
	if err != nil {
		return 0, fmt.Errorf("delete terminal requests: %w", err)
	}
	return res.RowsAffected()
}

func (r *RequestRepository) transition(ctx context.Context, id, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update request %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update request %s rows: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s (or not in expected state)", ErrRequestNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.ReportRequest, error) {
	var req models.ReportRequest
	var params, status, failureKind, createdAt string
	var startedAt, completedAt sql.NullString

	err := row.Scan(&req.ID, &req.Requester, &req.ReportType, &req.OutputFormat,
		&params, &req.Priority, &status, &createdAt, &startedAt, &completedAt,
		&req.ArtifactRef, &req.ErrorMessage, &failureKind, &req.RetryCount, &req.MaxRetries)
	if err != nil {
		return nil, err
	}

	req.Status = models.RequestStatus(status)
	req.FailureKind = models.FailureKind(failureKind)
	if params != "" {
		if err := json.Unmarshal([]byte(params), &req.Parameters); err != nil {
			return nil, fmt.Errorf("unmarshal request parameters: %w", err)
		}
	}
	if req.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if startedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, startedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		req.StartedAt = &t
	}
	if completedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		req.CompletedAt = &t
	}
	return &req, nil
}
