// Package registry tracks live job runners and mediates all lifecycle
// commands. It is the only shared structure between the control surface and
// the per-job goroutines.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"simplane/internal/store"
	"simplane/internal/worker"
	"simplane/internal/worker/generator"
)

var (
	// ErrNotFound means no job record exists for the id.
	ErrNotFound = errors.New("job not found")
	// ErrNotActive means the job exists but has no live runner.
	ErrNotActive = errors.New("job has no active runner")
	// ErrInvalidTransition means the requested status change is not legal
	// from the job's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// GeneratorFactory builds the activity generator for one job.
type GeneratorFactory func(job *store.Job) generator.Generator

// Registry is safe for concurrent use.
type Registry struct {
	store        store.JobStore
	newGenerator GeneratorFactory
	runnerCfg    worker.Config
	log          *slog.Logger
	activities   metric.Int64Counter

	mu      sync.Mutex
	runners map[string]*runnerHandle
}

type runnerHandle struct {
	runner *worker.Runner
	cancel context.CancelFunc
}

// New creates an empty registry.
func New(st store.JobStore, factory GeneratorFactory, runnerCfg worker.Config, log *slog.Logger) *Registry {
	return &Registry{
		store:        st,
		newGenerator: factory,
		runnerCfg:    runnerCfg,
		log:          log,
		runners:      make(map[string]*runnerHandle),
	}
}

// SetActivityCounter wires the otel counter passed down to every runner.
func (r *Registry) SetActivityCounter(c metric.Int64Counter) {
	r.activities = c
}

// StartJob creates the job record and launches its runner goroutine.
func (r *Registry) StartJob(ctx context.Context, name, platform string, cfg store.JobConfig) (string, error) {
	jobID, err := r.store.Create(ctx, name, platform, cfg)
	if err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}

	job, err := r.store.Load(ctx, jobID)
	if err != nil {
		return "", fmt.Errorf("failed to load new job: %w", err)
	}

	r.spawn(job, false)
	r.log.Info("job started", slog.String("job_id", jobID), slog.String("name", name))
	return jobID, nil
}

// spawn registers and launches a runner for the job. paused pre-sets the
// pause flag so a reconciled paused job does not generate on boot.
func (r *Registry) spawn(job *store.Job, paused bool) {
	runner := worker.New(job.ID, r.store, r.newGenerator(job), r.runnerCfg, r.log)
	if r.activities != nil {
		runner.SetActivityCounter(r.activities)
	}
	if paused {
		runner.Pause()
	}

	runCtx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.runners[job.ID] = &runnerHandle{runner: runner, cancel: cancel}
	r.mu.Unlock()

	go func() {
		runner.Run(runCtx)
		r.mu.Lock()
		if h, ok := r.runners[job.ID]; ok && h.runner == runner {
			delete(r.runners, job.ID)
		}
		r.mu.Unlock()
		cancel()
	}()
}

func (r *Registry) handle(jobID string) *runnerHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runners[jobID]
}

// StopJob stops generation permanently. Legal from running or paused.
func (r *Registry) StopJob(ctx context.Context, jobID string) error {
	job, err := r.loadLive(ctx, jobID)
	if err != nil {
		return err
	}
	if !job.Status.CanTransition(store.StatusStopped) {
		return fmt.Errorf("%w: %s -> stopped", ErrInvalidTransition, job.Status)
	}

	if err := r.store.UpdateStatus(ctx, jobID, store.StatusStopped); err != nil {
		return fmt.Errorf("failed to persist stop: %w", err)
	}
	if h := r.handle(jobID); h != nil {
		h.runner.Stop()
	}
	r.log.Info("job stopping", slog.String("job_id", jobID))
	return nil
}

// PauseJob suspends generation without losing state. Pausing an already
// paused job is a no-op.
func (r *Registry) PauseJob(ctx context.Context, jobID string) error {
	job, err := r.loadLive(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == store.StatusPaused {
		// Already paused; just make sure any live runner flag agrees.
		if h := r.handle(jobID); h != nil {
			h.runner.Pause()
		}
		return nil
	}
	if !job.Status.CanTransition(store.StatusPaused) {
		return fmt.Errorf("%w: %s -> paused", ErrInvalidTransition, job.Status)
	}

	if err := r.store.UpdateStatus(ctx, jobID, store.StatusPaused); err != nil {
		return fmt.Errorf("failed to persist pause: %w", err)
	}
	if h := r.handle(jobID); h != nil {
		h.runner.Pause()
	}
	r.log.Info("job paused", slog.String("job_id", jobID))
	return nil
}

// ResumeJob restarts generation after a pause. Resuming an already running
// job is a no-op. If the runner goroutine is gone (process restart), a fresh
// one is spawned.
func (r *Registry) ResumeJob(ctx context.Context, jobID string) error {
	job, err := r.loadLive(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == store.StatusRunning {
		if r.handle(jobID) == nil {
			r.spawn(job, false)
		}
		return nil
	}
	if !job.Status.CanTransition(store.StatusRunning) {
		return fmt.Errorf("%w: %s -> running", ErrInvalidTransition, job.Status)
	}

	if err := r.store.UpdateStatus(ctx, jobID, store.StatusRunning); err != nil {
		return fmt.Errorf("failed to persist resume: %w", err)
	}
	if h := r.handle(jobID); h != nil {
		h.runner.Resume()
	} else {
		job.Status = store.StatusRunning
		r.spawn(job, false)
	}
	r.log.Info("job resumed", slog.String("job_id", jobID))
	return nil
}

// GenerateNow triggers one immediate activity on a live runner.
func (r *Registry) GenerateNow(ctx context.Context, jobID string) error {
	job, err := r.loadLive(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != store.StatusRunning {
		return fmt.Errorf("%w: job is %s", ErrNotActive, job.Status)
	}
	h := r.handle(jobID)
	if h == nil {
		return ErrNotActive
	}
	h.runner.GenerateNow()
	return nil
}

// DeleteJob removes a job. Ordering is load-bearing: the tombstone is
// written before anything else, so once this returns the job can never be
// resurrected by an in-flight save.
func (r *Registry) DeleteJob(ctx context.Context, jobID string, grace time.Duration) error {
	found, err := r.store.MarkForDeletion(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to mark job for deletion: %w", err)
	}
	if !found {
		return ErrNotFound
	}

	h := r.handle(jobID)
	if h != nil {
		h.runner.Stop()
	}

	r.mu.Lock()
	delete(r.runners, jobID)
	r.mu.Unlock()

	if h != nil {
		select {
		case <-h.runner.Done():
		case <-time.After(grace):
			r.log.Warn("runner did not exit within grace period, abandoning",
				slog.String("job_id", jobID))
			h.cancel()
		case <-ctx.Done():
			h.cancel()
		}
	}

	r.log.Info("job deleted", slog.String("job_id", jobID))
	return nil
}

// ReconcileOnBoot relaunches runners for every live job found in the store.
// Stopped jobs stay stopped; tombstones are invisible to listings already.
func (r *Registry) ReconcileOnBoot(ctx context.Context) error {
	summaries, err := r.store.ListSummaries(ctx)
	if err != nil {
		return fmt.Errorf("failed to list jobs for reconcile: %w", err)
	}

	restarted := 0
	for _, sum := range summaries {
		switch sum.Status {
		case store.StatusRunning, store.StatusInitializing:
			job, err := r.store.Load(ctx, sum.ID)
			if err != nil || job == nil || job.DeletionMarker {
				continue
			}
			r.spawn(job, false)
			restarted++
		case store.StatusPaused:
			job, err := r.store.Load(ctx, sum.ID)
			if err != nil || job == nil || job.DeletionMarker {
				continue
			}
			r.spawn(job, true)
			restarted++
		}
	}
	r.log.Info("boot reconcile complete",
		slog.Int("total", len(summaries)), slog.Int("restarted", restarted))
	return nil
}

// Count returns the number of live runners, for the active-jobs gauge.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runners)
}

// Shutdown cancels every runner and waits up to the grace period for them
// to drain. Job statuses are left untouched so a restarted process can
// reconcile them back to life.
func (r *Registry) Shutdown(grace time.Duration) {
	r.mu.Lock()
	handles := make([]*runnerHandle, 0, len(r.runners))
	for _, h := range r.runners {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	for _, h := range handles {
		h.cancel()
	}

	deadline := time.After(grace)
	for _, h := range handles {
		select {
		case <-h.runner.Done():
		case <-deadline:
			return
		}
	}
}

// loadLive loads a job, mapping absent records and tombstones to ErrNotFound.
func (r *Registry) loadLive(ctx context.Context, jobID string) (*store.Job, error) {
	job, err := r.store.Load(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if job == nil || job.DeletionMarker {
		return nil, ErrNotFound
	}
	return job, nil
}
