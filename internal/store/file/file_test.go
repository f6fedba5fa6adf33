package file

import (
	"context"
	"testing"
	"time"

	"simplane/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func TestCreateAndLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cfg := store.JobConfig{Industry: "technology", ActivityLevel: "high"}
	jobID, err := s.Create(ctx, "acme demo", "synthetic", cfg)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(jobID) != 8 {
		t.Errorf("got job id %q, want 8 characters", jobID)
	}

	job, err := s.Load(ctx, jobID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if job == nil {
		t.Fatal("expected job, got nil")
	}
	if job.Name != "acme demo" {
		t.Errorf("got name %q, want %q", job.Name, "acme demo")
	}
	if job.Status != store.StatusInitializing {
		t.Errorf("got status %v, want %v", job.Status, store.StatusInitializing)
	}
	if job.Config.Industry != "technology" {
		t.Errorf("got industry %q, want %q", job.Config.Industry, "technology")
	}
}

func TestLoad_NotFound(t *testing.T) {
	s := newTestStore(t)

	job, err := s.Load(context.Background(), "missing1")
	if err != nil {
		t.Fatalf("expected nil error for missing job, got %v", err)
	}
	if job != nil {
		t.Errorf("expected nil job, got %+v", job)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	jobID, err := s.Create(ctx, "acme demo", "synthetic", store.JobConfig{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	job, _ := s.Load(ctx, jobID)
	job.Status = store.StatusRunning
	now := time.Now().UTC()
	job.LastActivityAt = &now
	job.Stats.ItemsCreated = 5

	if err := s.Save(ctx, job); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, _ := s.Load(ctx, jobID)
	if loaded.Status != store.StatusRunning {
		t.Errorf("got status %v, want %v", loaded.Status, store.StatusRunning)
	}
	if loaded.Stats.ItemsCreated != 5 {
		t.Errorf("got items created %d, want 5", loaded.Stats.ItemsCreated)
	}
	if loaded.LastActivityAt == nil {
		t.Error("expected last activity timestamp")
	}
	if loaded.LastSavedAt.IsZero() {
		t.Error("expected last saved timestamp")
	}
}

func TestSave_TombstoneIsNoOp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	jobID, err := s.Create(ctx, "acme demo", "synthetic", store.JobConfig{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	job, _ := s.Load(ctx, jobID)

	found, err := s.MarkForDeletion(ctx, jobID)
	if err != nil {
		t.Fatalf("MarkForDeletion failed: %v", err)
	}
	if !found {
		t.Fatal("expected found=true")
	}

	// A save racing a delete must not resurrect the job.
	job.Status = store.StatusRunning
	if err := s.Save(ctx, job); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, _ := s.Load(ctx, jobID)
	if !loaded.DeletionMarker {
		t.Error("save overwrote the deletion marker")
	}
	if loaded.Status != store.StatusDeletedPending {
		t.Errorf("got status %v, want %v", loaded.Status, store.StatusDeletedPending)
	}
	if loaded.DeletedAt == nil {
		t.Error("expected deleted timestamp")
	}
}

func TestMarkForDeletion_NotFound(t *testing.T) {
	s := newTestStore(t)

	found, err := s.MarkForDeletion(context.Background(), "missing1")
	if err != nil {
		t.Fatalf("MarkForDeletion failed: %v", err)
	}
	if found {
		t.Error("expected found=false for missing job")
	}
}

func TestUpdateStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	jobID, err := s.Create(ctx, "acme demo", "synthetic", store.JobConfig{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := s.UpdateStatus(ctx, jobID, store.StatusPaused); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	loaded, _ := s.Load(ctx, jobID)
	if loaded.Status != store.StatusPaused {
		t.Errorf("got status %v, want %v", loaded.Status, store.StatusPaused)
	}
}

func TestListSummaries_SkipsTombstonesAndOrders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	oldID, _ := s.Create(ctx, "old", "synthetic", store.JobConfig{})
	newID, _ := s.Create(ctx, "new", "synthetic", store.JobConfig{})
	deadID, _ := s.Create(ctx, "dead", "synthetic", store.JobConfig{})

	older := time.Now().Add(-time.Hour)
	newer := time.Now().Add(-time.Minute)

	oldJob, _ := s.Load(ctx, oldID)
	oldJob.LastActivityAt = &older
	s.Save(ctx, oldJob)

	newJob, _ := s.Load(ctx, newID)
	newJob.LastActivityAt = &newer
	s.Save(ctx, newJob)

	s.MarkForDeletion(ctx, deadID)

	summaries, err := s.ListSummaries(ctx)
	if err != nil {
		t.Fatalf("ListSummaries failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}
	if summaries[0].ID != newID {
		t.Errorf("got first id %q, want most recently active %q", summaries[0].ID, newID)
	}
	for _, sum := range summaries {
		if sum.ID == deadID {
			t.Error("tombstoned job appeared in listing")
		}
	}
}

func TestCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Create(ctx, "one", "synthetic", store.JobConfig{})
	id, _ := s.Create(ctx, "two", "synthetic", store.JobConfig{})
	s.MarkForDeletion(ctx, id)

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("got count %d, want 1", count)
	}
}
