package store

import "context"

// JobStore handles durable persistence of simulation jobs, one record per job.
//
// Implementations must guarantee:
//   - Create is atomic: a concurrent reader never sees a partial record.
//   - Save is a silent no-op once the record's deletion marker is set, so a
//     stale in-flight writer can never resurrect a deleted job.
//   - MarkForDeletion happens-before every other deletion step in callers.
//   - ListSummaries never returns tombstoned records, even though the
//     underlying record is retained rather than physically removed.
type JobStore interface {
	// Create allocates a new job id and writes the initial record with
	// status=initializing and an empty world, returning the id.
	Create(ctx context.Context, name, platform string, cfg JobConfig) (string, error)

	// Load returns the job record, or nil if no record exists.
	Load(ctx context.Context, jobID string) (*Job, error)

	// Save overwrites the full record and stamps LastSavedAt. It does
	// nothing if the stored record is marked for deletion.
	Save(ctx context.Context, job *Job) error

	// UpdateStatus persists only the job status, honoring the deletion
	// marker like Save.
	UpdateStatus(ctx context.Context, jobID string, status JobStatus) error

	// MarkForDeletion atomically sets the deletion marker and timestamp.
	// Returns false if the job does not exist.
	MarkForDeletion(ctx context.Context, jobID string) (bool, error)

	// ListSummaries returns summaries for all non-tombstoned records,
	// most recently active first.
	ListSummaries(ctx context.Context) ([]JobSummary, error)

	// Count returns the number of non-tombstoned records.
	Count(ctx context.Context) (int64, error)
}
