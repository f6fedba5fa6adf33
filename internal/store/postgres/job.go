package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"simplane/internal/store"

	"github.com/google/uuid"
)

// Create inserts the initial job row with status=initializing and an empty
// world. The single INSERT is atomic, so a concurrent reader never observes
// a partially-written record.
func (s *Store) Create(ctx context.Context, name, platform string, cfg store.JobConfig) (string, error) {
	jobID := uuid.NewString()[:8]
	now := time.Now().UTC()
	job := &store.Job{
		ID:          jobID,
		Name:        name,
		Platform:    platform,
		Status:      store.StatusInitializing,
		Config:      cfg,
		CreatedAt:   now,
		LastSavedAt: now,
		ActivityLog: []store.ActivityEntry{},
		ErrorLog:    []store.ErrorEntry{},
	}

	record, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to encode job: %w", err)
	}

	query := `
		INSERT INTO jobs (id, name, platform, status, industry, record, created_at, last_saved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		jobID,
		name,
		platform,
		job.Status,
		cfg.Industry,
		record,
		now,
		now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert job: %w", err)
	}
	return jobID, nil
}

// Load returns the job record, or nil if no row exists. The deletion marker
// and status columns override the serialized record so a reader always sees
// the latest lifecycle signals, even mid-delete.
func (s *Store) Load(ctx context.Context, jobID string) (*store.Job, error) {
	query := `
		SELECT record, status, deletion_marker, deleted_at, last_saved_at
		FROM jobs WHERE id = $1
	`
	var (
		record         []byte
		status         string
		deletionMarker bool
		deletedAt      sql.NullTime
		lastSavedAt    time.Time
	)
	err := s.db.QueryRowContext(ctx, query, jobID).Scan(&record, &status, &deletionMarker, &deletedAt, &lastSavedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", jobID, err)
	}

	var job store.Job
	if err := json.Unmarshal(record, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", jobID, err)
	}
	job.Status = store.JobStatus(status)
	job.DeletionMarker = deletionMarker
	job.LastSavedAt = lastSavedAt
	if deletedAt.Valid {
		t := deletedAt.Time
		job.DeletedAt = &t
	}
	return &job, nil
}

// Save overwrites the full record. The WHERE clause guards against the
// delete/save race: once deletion_marker is set the update matches zero rows
// and the save is a silent no-op by contract.
func (s *Store) Save(ctx context.Context, job *store.Job) error {
	job.LastSavedAt = time.Now().UTC()

	record, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job %s: %w", job.ID, err)
	}

	query := `
		UPDATE jobs
		SET record = $2, status = $3, last_activity_at = $4, next_activity_at = $5, last_saved_at = $6
		WHERE id = $1 AND deletion_marker = FALSE
	`
	_, err = s.db.ExecContext(ctx, query,
		job.ID,
		record,
		job.Status,
		nullTime(job.LastActivityAt),
		nullTime(job.NextActivityAt),
		job.LastSavedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}
	return nil
}

// UpdateStatus persists only the status column, honoring the deletion marker.
func (s *Store) UpdateStatus(ctx context.Context, jobID string, status store.JobStatus) error {
	query := `
		UPDATE jobs
		SET status = $2, record = jsonb_set(record, '{status}', to_jsonb($2::text)), last_saved_at = $3
		WHERE id = $1 AND deletion_marker = FALSE
	`
	_, err := s.db.ExecContext(ctx, query, jobID, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update status of job %s: %w", jobID, err)
	}
	return nil
}

// MarkForDeletion atomically sets the deletion marker and timestamp.
// This must happen before any other deletion step in the caller.
func (s *Store) MarkForDeletion(ctx context.Context, jobID string) (bool, error) {
	query := `
		UPDATE jobs
		SET deletion_marker = TRUE, deleted_at = $2, status = $3
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, jobID, time.Now().UTC(), store.StatusDeletedPending)
	if err != nil {
		return false, fmt.Errorf("failed to mark job %s for deletion: %w", jobID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ListSummaries returns all non-tombstoned records, most recently active first.
func (s *Store) ListSummaries(ctx context.Context) ([]store.JobSummary, error) {
	query := `
		SELECT id, name, platform, status, industry, last_activity_at, next_activity_at
		FROM jobs
		WHERE deletion_marker = FALSE
		ORDER BY last_activity_at DESC NULLS LAST
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var summaries []store.JobSummary
	for rows.Next() {
		var (
			sum          store.JobSummary
			lastActivity sql.NullTime
			nextActivity sql.NullTime
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Platform, &sum.Status, &sum.Industry, &lastActivity, &nextActivity); err != nil {
			return nil, fmt.Errorf("failed to scan job summary: %w", err)
		}
		if lastActivity.Valid {
			t := lastActivity.Time
			sum.LastActivityAt = &t
		}
		if nextActivity.Valid {
			t := nextActivity.Time
			sum.NextActivityAt = &t
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Count returns the number of non-tombstoned records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs WHERE deletion_marker = FALSE").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return count, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
