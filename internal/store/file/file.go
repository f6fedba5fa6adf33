// Package file implements the JobStore interface over one JSON file per job.
//
// Records are written atomically (temp file + rename) and deletions are
// logical: the file is kept with its deletion marker set so that a restart or
// a still-executing control loop cannot resurrect the job from stale state.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"simplane/internal/store"

	"github.com/google/uuid"
)

// Store persists job records as job_<id>.json files under a state directory.
type Store struct {
	dir string
	mu  sync.Mutex // serializes writes so a delete and an in-flight save cannot interleave
}

// New creates the state directory if needed and returns a file store.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(jobID string) string {
	return filepath.Join(s.dir, "job_"+jobID+".json")
}

// Create writes the initial record with status=initializing and an empty world.
func (s *Store) Create(ctx context.Context, name, platform string, cfg store.JobConfig) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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
	if err := s.write(job); err != nil {
		return "", err
	}
	return jobID, nil
}

// Load returns the job record, or nil if no record exists.
func (s *Store) Load(ctx context.Context, jobID string) (*store.Job, error) {
	data, err := os.ReadFile(s.path(jobID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job %s: %w", jobID, err)
	}
	var job store.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", jobID, err)
	}
	return &job, nil
}

// Save overwrites the record unless its stored deletion marker is set.
// The marker is re-read under the lock immediately before writing; the save
// of a tombstoned job is a silent no-op by contract, not an error.
func (s *Store) Save(ctx context.Context, job *store.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Load(ctx, job.ID)
	if err != nil {
		return err
	}
	if current == nil || current.DeletionMarker {
		return nil
	}
	job.LastSavedAt = time.Now().UTC()
	return s.write(job)
}

// UpdateStatus persists only the status field, honoring the deletion marker.
func (s *Store) UpdateStatus(ctx context.Context, jobID string, status store.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Load(ctx, jobID)
	if err != nil {
		return err
	}
	if current == nil || current.DeletionMarker {
		return nil
	}
	current.Status = status
	current.LastSavedAt = time.Now().UTC()
	return s.write(current)
}

// MarkForDeletion atomically sets the deletion marker and timestamp.
func (s *Store) MarkForDeletion(ctx context.Context, jobID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Load(ctx, jobID)
	if err != nil {
		return false, err
	}
	if current == nil {
		return false, nil
	}
	now := time.Now().UTC()
	current.DeletionMarker = true
	current.DeletedAt = &now
	current.Status = store.StatusDeletedPending
	current.LastSavedAt = now
	if err := s.write(current); err != nil {
		return false, err
	}
	return true, nil
}

// ListSummaries returns all non-tombstoned records, most recently active first.
func (s *Store) ListSummaries(ctx context.Context) ([]store.JobSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read state dir: %w", err)
	}

	var summaries []store.JobSummary
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "job_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		jobID := strings.TrimSuffix(strings.TrimPrefix(name, "job_"), ".json")
		job, err := s.Load(ctx, jobID)
		if err != nil || job == nil {
			continue
		}
		// Tombstones are invisible to listings.
		if job.DeletionMarker {
			continue
		}
		summaries = append(summaries, store.JobSummary{
			ID:             job.ID,
			Name:           job.Name,
			Platform:       job.Platform,
			Status:         job.Status,
			Industry:       job.Config.Industry,
			LastActivityAt: job.LastActivityAt,
			NextActivityAt: job.NextActivityAt,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		ti, tj := summaries[i].LastActivityAt, summaries[j].LastActivityAt
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		default:
			return ti.After(*tj)
		}
	})
	return summaries, nil
}

// Count returns the number of non-tombstoned records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	summaries, err := s.ListSummaries(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(summaries)), nil
}

// write marshals the record and swaps it into place with a rename so a
// concurrent reader never observes a partially-written file.
func (s *Store) write(job *store.Job) error {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode job %s: %w", job.ID, err)
	}
	tmp := s.path(job.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write job %s: %w", job.ID, err)
	}
	if err := os.Rename(tmp, s.path(job.ID)); err != nil {
		return fmt.Errorf("failed to commit job %s: %w", job.ID, err)
	}
	return nil
}
