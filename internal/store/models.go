// Package store contains the persistence layer for simplane.
package store

import "time"

// JobStatus represents the lifecycle state of a simulation job.
type JobStatus string

const (
	StatusInitializing   JobStatus = "initializing"
	StatusRunning        JobStatus = "running"
	StatusPaused         JobStatus = "paused"
	StatusStopped        JobStatus = "stopped"
	StatusDeletedPending JobStatus = "deleted_pending"
)

// CanTransition reports whether moving from s to next is a legal status
// transition. deleted_pending is reachable from anywhere and terminal.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if next == StatusDeletedPending {
		return s != StatusDeletedPending
	}
	switch s {
	case StatusInitializing:
		return next == StatusRunning
	case StatusRunning:
		return next == StatusPaused || next == StatusStopped
	case StatusPaused:
		return next == StatusRunning || next == StatusStopped
	default:
		return false
	}
}

// ItemStatus represents the lifecycle state of a single work item.
type ItemStatus string

const (
	ItemNew        ItemStatus = "new"
	ItemInProgress ItemStatus = "in_progress"
	ItemBlocked    ItemStatus = "blocked"
	ItemCompleted  ItemStatus = "completed"
)

// JobConfig holds the immutable generation parameters for a job.
type JobConfig struct {
	Industry            string  `json:"industry"`
	ActivityLevel       string  `json:"activity_level"`
	WorkingHours        string  `json:"working_hours"`
	BurstFactor         float64 `json:"burst_factor"`
	DurationDays        int     `json:"duration_days"` // 0 = indefinite
	InitialContainers   int     `json:"initial_containers"`
	BlockedFrequencyPct int     `json:"blocked_frequency_pct"`
	BlockedDurationDays int     `json:"blocked_duration_days"`
	ContainerEveryDays  int     `json:"container_every_days"` // 0 = no time-based trigger
}

// WorkItem is one simulated unit of work inside a container.
type WorkItem struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Status        ItemStatus `json:"status"`
	Assignee      string     `json:"assignee,omitempty"`
	AssigneeName  string     `json:"assignee_name,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	BlockedAt     *time.Time `json:"blocked_at,omitempty"`
	BlockerReason string     `json:"blocker_reason,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	SubItemIDs    []string   `json:"sub_item_ids,omitempty"`
	CommentCount  int        `json:"comment_count"`
	LastCommentAt *time.Time `json:"last_comment_at,omitempty"`
}

// Container groups work items, standing in for a project, group or pipeline.
type Container struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Scenario  string     `json:"scenario,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	Items     []WorkItem `json:"items"`
}

// CompletionRatio returns the fraction of items in the container that are
// completed, or 0 for an empty container.
func (c *Container) CompletionRatio() float64 {
	if len(c.Items) == 0 {
		return 0
	}
	done := 0
	for i := range c.Items {
		if c.Items[i].Status == ItemCompleted {
			done++
		}
	}
	return float64(done) / float64(len(c.Items))
}

// WorldState is the simulated world owned by the Generator. The scheduler
// reads it but never mutates it.
type WorldState struct {
	Containers    []Container `json:"containers"`
	UsedScenarios []string    `json:"used_scenarios,omitempty"`
}

// Empty reports whether the world has no containers yet.
func (w *WorldState) Empty() bool {
	return len(w.Containers) == 0
}

// CountByStatus tallies work items by lifecycle status.
func (w *WorldState) CountByStatus() map[ItemStatus]int {
	counts := make(map[ItemStatus]int, 4)
	for i := range w.Containers {
		for j := range w.Containers[i].Items {
			counts[w.Containers[i].Items[j].Status]++
		}
	}
	return counts
}

// TotalItems returns the number of work items across all containers.
func (w *WorldState) TotalItems() int {
	n := 0
	for i := range w.Containers {
		n += len(w.Containers[i].Items)
	}
	return n
}

// Items returns pointers to every work item, across all containers.
func (w *WorldState) Items() []*WorkItem {
	var items []*WorkItem
	for i := range w.Containers {
		for j := range w.Containers[i].Items {
			items = append(items, &w.Containers[i].Items[j])
		}
	}
	return items
}

// FindItem returns the work item with the given id, or nil.
func (w *WorldState) FindItem(id string) *WorkItem {
	for i := range w.Containers {
		for j := range w.Containers[i].Items {
			if w.Containers[i].Items[j].ID == id {
				return &w.Containers[i].Items[j]
			}
		}
	}
	return nil
}

// ContainerOf returns the container holding the given item, or nil.
func (w *WorldState) ContainerOf(itemID string) *Container {
	for i := range w.Containers {
		for j := range w.Containers[i].Items {
			if w.Containers[i].Items[j].ID == itemID {
				return &w.Containers[i]
			}
		}
	}
	return nil
}

// NewestContainer returns the most recently created container, or nil.
func (w *WorldState) NewestContainer() *Container {
	if len(w.Containers) == 0 {
		return nil
	}
	newest := &w.Containers[0]
	for i := range w.Containers {
		if w.Containers[i].CreatedAt.After(newest.CreatedAt) {
			newest = &w.Containers[i]
		}
	}
	return newest
}

// ItemUpdate is a single work-item mutation inside a Delta.
type ItemUpdate struct {
	ItemID        string     `json:"item_id"`
	Status        ItemStatus `json:"status,omitempty"`
	Assignee      string     `json:"assignee,omitempty"`
	AssigneeName  string     `json:"assignee_name,omitempty"`
	BlockerReason string     `json:"blocker_reason,omitempty"`
	CommentAdded  bool       `json:"comment_added,omitempty"`
	SubItemID     string     `json:"sub_item_id,omitempty"`
}

// Delta describes world-state changes produced by one Generator call.
type Delta struct {
	NewContainers []Container           `json:"new_containers,omitempty"`
	NewItems      map[string][]WorkItem `json:"new_items,omitempty"` // keyed by container id
	Updates       []ItemUpdate          `json:"updates,omitempty"`
}

// Empty reports whether applying the delta would change nothing.
func (d *Delta) Empty() bool {
	return d == nil || (len(d.NewContainers) == 0 && len(d.NewItems) == 0 && len(d.Updates) == 0)
}

// Apply merges a delta into the world. Status timestamps are stamped here so
// the scheduler's blocked/unblocked timing decisions see consistent data.
func (w *WorldState) Apply(d *Delta, now time.Time) {
	if d == nil {
		return
	}
	w.Containers = append(w.Containers, d.NewContainers...)
	for i := range d.NewContainers {
		if sc := d.NewContainers[i].Scenario; sc != "" {
			w.UsedScenarios = append(w.UsedScenarios, sc)
		}
	}
	for containerID, items := range d.NewItems {
		for i := range w.Containers {
			if w.Containers[i].ID == containerID {
				w.Containers[i].Items = append(w.Containers[i].Items, items...)
				break
			}
		}
	}
	for _, u := range d.Updates {
		item := w.FindItem(u.ItemID)
		if item == nil {
			continue
		}
		if u.Status != "" && u.Status != item.Status {
			item.Status = u.Status
			switch u.Status {
			case ItemInProgress:
				if item.StartedAt == nil {
					t := now
					item.StartedAt = &t
				}
			case ItemBlocked:
				t := now
				item.BlockedAt = &t
				item.BlockerReason = u.BlockerReason
			case ItemCompleted:
				t := now
				item.CompletedAt = &t
			}
		}
		if u.Assignee != "" {
			item.Assignee = u.Assignee
			item.AssigneeName = u.AssigneeName
		}
		if u.CommentAdded {
			item.CommentCount++
			t := now
			item.LastCommentAt = &t
		}
		if u.SubItemID != "" {
			item.SubItemIDs = append(item.SubItemIDs, u.SubItemID)
		}
	}
}

// ActivityEntry is one recorded action in a job's bounded activity log.
type ActivityEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	Action    string            `json:"action"`
	Details   map[string]string `json:"details,omitempty"`
}

// ErrorEntry is one recorded failure in a job's bounded error tail.
type ErrorEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
}

// Stats holds per-job generation counters.
type Stats struct {
	ContainersCreated int `json:"containers_created"`
	ItemsCreated      int `json:"items_created"`
	SubItemsCreated   int `json:"sub_items_created"`
	CommentsAdded     int `json:"comments_added"`
	StatusChanges     int `json:"status_changes"`
	ItemsCompleted    int `json:"items_completed"`
	Errors            int `json:"errors"`
}

const (
	// MaxActivityLog bounds the activity ring; older entries are dropped.
	MaxActivityLog = 1000
	// MaxErrorLog bounds the error tail.
	MaxErrorLog = 100
)

// Job is the unit of orchestration: one long-running simulation session.
type Job struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Platform       string          `json:"platform"`
	Status         JobStatus       `json:"status"`
	Config         JobConfig       `json:"config"`
	World          WorldState      `json:"world"`
	NextActivityAt *time.Time      `json:"next_activity_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	LastActivityAt *time.Time      `json:"last_activity_at,omitempty"`
	LastSavedAt    time.Time       `json:"last_saved_at"`
	ActivityLog    []ActivityEntry `json:"activity_log"`
	ErrorLog       []ErrorEntry    `json:"error_log"`
	Stats          Stats           `json:"stats"`
	DeletionMarker bool            `json:"deletion_marker"`
	DeletedAt      *time.Time      `json:"deleted_at,omitempty"`
}

// LogActivity appends to the bounded activity log, evicting the oldest
// entries once the cap is reached.
func (j *Job) LogActivity(now time.Time, action string, details map[string]string) {
	j.ActivityLog = append(j.ActivityLog, ActivityEntry{
		Timestamp: now,
		Action:    action,
		Details:   details,
	})
	if len(j.ActivityLog) > MaxActivityLog {
		j.ActivityLog = j.ActivityLog[len(j.ActivityLog)-MaxActivityLog:]
	}
}

// LogError appends to the bounded error tail and bumps the error counter.
func (j *Job) LogError(now time.Time, errType, message string) {
	j.ErrorLog = append(j.ErrorLog, ErrorEntry{
		Timestamp: now,
		Type:      errType,
		Message:   message,
	})
	if len(j.ErrorLog) > MaxErrorLog {
		j.ErrorLog = j.ErrorLog[len(j.ErrorLog)-MaxErrorLog:]
	}
	j.Stats.Errors++
}

// JobSummary is the lightweight listing view of a job.
type JobSummary struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Platform       string     `json:"platform"`
	Status         JobStatus  `json:"status"`
	Industry       string     `json:"industry"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
	NextActivityAt *time.Time `json:"next_activity_at,omitempty"`
}
