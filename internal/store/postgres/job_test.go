package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"simplane/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return &Store{db: db}, mock
}

func TestCreate_Success(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()
	cfg := store.JobConfig{Industry: "technology", ActivityLevel: "medium"}

	mock.ExpectExec(`INSERT INTO jobs`).
		WithArgs(sqlmock.AnyArg(), "acme demo", "synthetic", store.StatusInitializing, "technology",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	jobID, err := store_.Create(ctx, "acme demo", "synthetic", cfg)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(jobID) != 8 {
		t.Errorf("got job id %q, want 8 characters", jobID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestLoad_Success(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()
	saved := time.Now().UTC().Truncate(time.Second)
	job := store.Job{
		ID:       "a1b2c3d4",
		Name:     "acme demo",
		Platform: "synthetic",
		Status:   store.StatusRunning,
	}
	record, err := json.Marshal(&job)
	if err != nil {
		t.Fatalf("failed to marshal job: %v", err)
	}

	mock.ExpectQuery(`SELECT record, status, deletion_marker, deleted_at, last_saved_at`).
		WithArgs("a1b2c3d4").
		WillReturnRows(sqlmock.NewRows([]string{
			"record", "status", "deletion_marker", "deleted_at", "last_saved_at",
		}).AddRow(record, "paused", false, nil, saved))

	loaded, err := store_.Load(ctx, "a1b2c3d4")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected job, got nil")
	}
	if loaded.Name != "acme demo" {
		t.Errorf("got name %q, want %q", loaded.Name, "acme demo")
	}

	// The status column overrides the serialized record.
	if loaded.Status != store.StatusPaused {
		t.Errorf("got status %v, want %v", loaded.Status, store.StatusPaused)
	}
	if loaded.DeletionMarker {
		t.Error("expected deletion marker unset")
	}
	if !loaded.LastSavedAt.Equal(saved) {
		t.Errorf("got last saved %v, want %v", loaded.LastSavedAt, saved)
	}
}

func TestLoad_NotFound(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()

	mock.ExpectQuery(`SELECT record, status, deletion_marker, deleted_at, last_saved_at`).
		WithArgs("missing1").
		WillReturnError(sql.ErrNoRows)

	loaded, err := store_.Load(ctx, "missing1")
	if err != nil {
		t.Fatalf("expected nil error for missing job, got %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil job, got %+v", loaded)
	}
}

func TestLoad_DatabaseError(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()

	mock.ExpectQuery(`SELECT record, status, deletion_marker, deleted_at, last_saved_at`).
		WithArgs("a1b2c3d4").
		WillReturnError(sql.ErrConnDone)

	_, err := store_.Load(ctx, "a1b2c3d4")
	if err == nil {
		t.Error("expected error, got nil")
	}
}

func TestSave_GuardsDeletionMarker(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()
	job := &store.Job{
		ID:     "a1b2c3d4",
		Name:   "acme demo",
		Status: store.StatusRunning,
	}

	// Zero rows affected: the record was tombstoned between load and save.
	// The contract requires a silent no-op, not an error.
	mock.ExpectExec(`UPDATE jobs`).
		WithArgs("a1b2c3d4", sqlmock.AnyArg(), store.StatusRunning,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store_.Save(ctx, job); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestMarkForDeletion(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()

	mock.ExpectExec(`UPDATE jobs`).
		WithArgs("a1b2c3d4", sqlmock.AnyArg(), store.StatusDeletedPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	found, err := store_.MarkForDeletion(ctx, "a1b2c3d4")
	if err != nil {
		t.Fatalf("MarkForDeletion failed: %v", err)
	}
	if !found {
		t.Error("expected found=true for existing job")
	}
}

func TestMarkForDeletion_NotFound(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()

	mock.ExpectExec(`UPDATE jobs`).
		WithArgs("missing1", sqlmock.AnyArg(), store.StatusDeletedPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	found, err := store_.MarkForDeletion(ctx, "missing1")
	if err != nil {
		t.Fatalf("MarkForDeletion failed: %v", err)
	}
	if found {
		t.Error("expected found=false for missing job")
	}
}

func TestListSummaries(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()
	lastActivity := time.Now().Add(-2 * time.Minute)

	mock.ExpectQuery(`SELECT id, name, platform, status, industry, last_activity_at, next_activity_at`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "platform", "status", "industry", "last_activity_at", "next_activity_at",
		}).AddRow(
			"a1b2c3d4", "acme demo", "synthetic", "running", "technology", lastActivity, time.Now().Add(time.Minute),
		).AddRow(
			"e5f6a7b8", "clinic demo", "taskflow", "paused", "healthcare", nil, nil,
		))

	summaries, err := store_.ListSummaries(ctx)
	if err != nil {
		t.Fatalf("ListSummaries failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}
	if summaries[0].ID != "a1b2c3d4" {
		t.Errorf("got first id %q, want %q", summaries[0].ID, "a1b2c3d4")
	}
	if summaries[0].LastActivityAt == nil {
		t.Error("expected last activity timestamp on first summary")
	}
	if summaries[1].LastActivityAt != nil {
		t.Error("expected nil last activity on second summary")
	}
}

func TestCount(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM jobs`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := store_.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("got count %d, want 3", count)
	}
}
