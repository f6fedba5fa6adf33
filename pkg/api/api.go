// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and Controller.
package api

import "time"

// StartJobRequest is the request body for starting a new simulation job.
type StartJobRequest struct {
	Name     string `json:"name,omitempty"`
	Platform string `json:"platform,omitempty"`

	// Generation parameters. Zero values fall back to server defaults.
	Industry            string  `json:"industry,omitempty"`
	ActivityLevel       string  `json:"activity_level,omitempty"`
	WorkingHours        string  `json:"working_hours,omitempty"`
	BurstFactor         float64 `json:"burst_factor,omitempty"`
	DurationDays        int     `json:"duration_days,omitempty"`
	InitialContainers   int     `json:"initial_containers,omitempty"`
	BlockedFrequencyPct int     `json:"blocked_frequency_pct,omitempty"`
	BlockedDurationDays int     `json:"blocked_duration_days,omitempty"`
	ContainerEveryDays  int     `json:"container_every_days,omitempty"`
}

// StartJobResponse is the response body after starting a job.
type StartJobResponse struct {
	JobID string `json:"job_id"`
}

// JobStatusResponse is the response body for job status queries.
type JobStatusResponse struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Platform       string     `json:"platform"`
	Status         string     `json:"status"`
	Industry       string     `json:"industry"`
	Containers     int        `json:"containers"`
	WorkItems      int        `json:"work_items"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
	NextActivityAt *time.Time `json:"next_activity_at,omitempty"`
	Stats          JobStats   `json:"stats"`
}

// JobStats mirrors the per-job generation counters.
type JobStats struct {
	ContainersCreated int `json:"containers_created"`
	ItemsCreated      int `json:"items_created"`
	SubItemsCreated   int `json:"sub_items_created"`
	CommentsAdded     int `json:"comments_added"`
	StatusChanges     int `json:"status_changes"`
	ItemsCompleted    int `json:"items_completed"`
	Errors            int `json:"errors"`
}

// JobSummaryResponse is one entry in the listing endpoint.
type JobSummaryResponse struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Platform       string     `json:"platform"`
	Status         string     `json:"status"`
	Industry       string     `json:"industry"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
	NextActivityAt *time.Time `json:"next_activity_at,omitempty"`
}

// ListJobsResponse is the response body for the listing endpoint.
type ListJobsResponse struct {
	Jobs []JobSummaryResponse `json:"jobs"`
}

// ActivityEntryResponse is one recorded action in a job's activity log.
type ActivityEntryResponse struct {
	Timestamp time.Time         `json:"timestamp"`
	Action    string            `json:"action"`
	Details   map[string]string `json:"details,omitempty"`
}

// GetActivityResponse is the response body for the activity log endpoint.
type GetActivityResponse struct {
	Activities []ActivityEntryResponse `json:"activities"`
}

// CommandResponse is the generic response for stop/pause/resume/delete/generate.
type CommandResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
