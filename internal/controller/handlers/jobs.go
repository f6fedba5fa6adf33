package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"simplane/internal/registry"
	"simplane/internal/store"
	"simplane/internal/worker/generator"
	"simplane/pkg/api"
)

const deleteGrace = 30 * time.Second

// StartJob handles POST /jobs. It creates the job record and launches its
// runner.
func (h *Handlers) StartJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.StartJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cfg, err := configFromRequest(&req)
	if err != nil {
		h.httpError(w, err.Error(), http.StatusBadRequest)
		return
	}

	name := req.Name
	if name == "" {
		name = cfg.Industry + " demo"
	}
	platform := req.Platform
	if platform == "" {
		platform = "synthetic"
	}

	jobID, err := h.registry.StartJob(ctx, name, platform, cfg)
	if err != nil {
		h.httpError(w, "Failed to start job", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusCreated, api.StartJobResponse{JobID: jobID})
}

// ListJobs handles GET /jobs. Tombstoned jobs never appear here.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.store.ListSummaries(r.Context())
	if err != nil {
		h.httpError(w, "Failed to list jobs", http.StatusInternalServerError)
		return
	}

	resp := api.ListJobsResponse{Jobs: make([]api.JobSummaryResponse, 0, len(summaries))}
	for _, sum := range summaries {
		resp.Jobs = append(resp.Jobs, api.JobSummaryResponse{
			ID:             sum.ID,
			Name:           sum.Name,
			Platform:       sum.Platform,
			Status:         string(sum.Status),
			Industry:       sum.Industry,
			LastActivityAt: sum.LastActivityAt,
			NextActivityAt: sum.NextActivityAt,
		})
	}
	h.respondJson(w, http.StatusOK, resp)
}

// GetJob handles GET /jobs/{id}.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadLive(w, r)
	if !ok {
		return
	}

	h.respondJson(w, http.StatusOK, api.JobStatusResponse{
		ID:             job.ID,
		Name:           job.Name,
		Platform:       job.Platform,
		Status:         string(job.Status),
		Industry:       job.Config.Industry,
		Containers:     len(job.World.Containers),
		WorkItems:      job.World.TotalItems(),
		CreatedAt:      job.CreatedAt,
		StartedAt:      job.StartedAt,
		LastActivityAt: job.LastActivityAt,
		NextActivityAt: job.NextActivityAt,
		Stats: api.JobStats{
			ContainersCreated: job.Stats.ContainersCreated,
			ItemsCreated:      job.Stats.ItemsCreated,
			SubItemsCreated:   job.Stats.SubItemsCreated,
			CommentsAdded:     job.Stats.CommentsAdded,
			StatusChanges:     job.Stats.StatusChanges,
			ItemsCompleted:    job.Stats.ItemsCompleted,
			Errors:            job.Stats.Errors,
		},
	})
}

// GetActivity handles GET /jobs/{id}/activity. Most recent entries first.
func (h *Handlers) GetActivity(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadLive(w, r)
	if !ok {
		return
	}

	resp := api.GetActivityResponse{
		Activities: make([]api.ActivityEntryResponse, 0, len(job.ActivityLog)),
	}
	for i := len(job.ActivityLog) - 1; i >= 0; i-- {
		entry := job.ActivityLog[i]
		resp.Activities = append(resp.Activities, api.ActivityEntryResponse{
			Timestamp: entry.Timestamp,
			Action:    entry.Action,
			Details:   entry.Details,
		})
	}
	h.respondJson(w, http.StatusOK, resp)
}

// StopJob handles POST /jobs/{id}/stop.
func (h *Handlers) StopJob(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, "stopping", h.registry.StopJob)
}

// PauseJob handles POST /jobs/{id}/pause.
func (h *Handlers) PauseJob(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, "paused", h.registry.PauseJob)
}

// ResumeJob handles POST /jobs/{id}/resume.
func (h *Handlers) ResumeJob(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, "resumed", h.registry.ResumeJob)
}

// GenerateNow handles POST /jobs/{id}/generate.
func (h *Handlers) GenerateNow(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, "activity triggered", h.registry.GenerateNow)
}

// DeleteJob handles DELETE /jobs/{id}.
func (h *Handlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	err := h.registry.DeleteJob(r.Context(), jobID, deleteGrace)
	if errors.Is(err, registry.ErrNotFound) {
		h.httpError(w, "Job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.httpError(w, "Failed to delete job", http.StatusInternalServerError)
		return
	}
	h.respondJson(w, http.StatusOK, api.CommandResponse{JobID: jobID, Message: "deleted"})
}

func (h *Handlers) command(w http.ResponseWriter, r *http.Request, message string, op func(ctx context.Context, jobID string) error) {
	jobID := r.PathValue("id")

	err := op(r.Context(), jobID)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		h.httpError(w, "Job not found", http.StatusNotFound)
	case errors.Is(err, registry.ErrInvalidTransition), errors.Is(err, registry.ErrNotActive):
		h.httpError(w, err.Error(), http.StatusConflict)
	case err != nil:
		h.httpError(w, "Command failed", http.StatusInternalServerError)
	default:
		h.respondJson(w, http.StatusOK, api.CommandResponse{JobID: jobID, Message: message})
	}
}

func (h *Handlers) loadLive(w http.ResponseWriter, r *http.Request) (*store.Job, bool) {
	jobID := r.PathValue("id")
	job, err := h.store.Load(r.Context(), jobID)
	if err != nil {
		h.httpError(w, "Failed to load job", http.StatusInternalServerError)
		return nil, false
	}
	if job == nil || job.DeletionMarker {
		h.httpError(w, "Job not found", http.StatusNotFound)
		return nil, false
	}
	return job, true
}

// configFromRequest validates and defaults the generation parameters.
func configFromRequest(req *api.StartJobRequest) (store.JobConfig, error) {
	cfg := store.JobConfig{
		Industry:            req.Industry,
		ActivityLevel:       req.ActivityLevel,
		WorkingHours:        req.WorkingHours,
		BurstFactor:         req.BurstFactor,
		DurationDays:        req.DurationDays,
		InitialContainers:   req.InitialContainers,
		BlockedFrequencyPct: req.BlockedFrequencyPct,
		BlockedDurationDays: req.BlockedDurationDays,
		ContainerEveryDays:  req.ContainerEveryDays,
	}

	if cfg.Industry == "" {
		cfg.Industry = "technology"
	} else if !validIndustry(cfg.Industry) {
		return cfg, errors.New("unknown industry")
	}
	if cfg.ActivityLevel == "" {
		cfg.ActivityLevel = "medium"
	} else if cfg.ActivityLevel != "low" && cfg.ActivityLevel != "medium" && cfg.ActivityLevel != "high" {
		return cfg, errors.New("activity_level must be low, medium or high")
	}
	if cfg.WorkingHours == "" {
		cfg.WorkingHours = "regional"
	} else if cfg.WorkingHours != "regional" && cfg.WorkingHours != "global" {
		return cfg, errors.New("working_hours must be regional or global")
	}
	if cfg.BurstFactor < 0 || cfg.BurstFactor > 1 {
		return cfg, errors.New("burst_factor must be between 0 and 1")
	}
	if cfg.BlockedFrequencyPct < 0 || cfg.BlockedFrequencyPct > 100 {
		return cfg, errors.New("blocked_frequency_pct must be between 0 and 100")
	}
	if cfg.InitialContainers <= 0 {
		cfg.InitialContainers = 1
	}
	if cfg.BlockedFrequencyPct == 0 {
		cfg.BlockedFrequencyPct = 15
	}
	if cfg.BlockedDurationDays <= 0 {
		cfg.BlockedDurationDays = 2
	}
	return cfg, nil
}

func validIndustry(industry string) bool {
	for _, known := range generator.Industries() {
		if industry == known {
			return true
		}
	}
	return false
}
