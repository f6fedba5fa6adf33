// Package schedule contains the pure decision logic for when a simulation
// job should act and what kind of activity it should generate. It consumes
// entropy but performs no I/O; the runner owns all side effects.
package schedule

import (
	"math/rand"
	"time"

	"simplane/internal/store"
)

// ActivityType identifies one kind of simulated action.
type ActivityType string

const (
	ActivityStartWork       ActivityType = "start_work"
	ActivityProgressUpdate  ActivityType = "progress_update"
	ActivityBlock           ActivityType = "block"
	ActivityUnblock         ActivityType = "unblock"
	ActivityComplete        ActivityType = "complete"
	ActivityConversation    ActivityType = "conversation"
	ActivityCreateItem      ActivityType = "create_item"
	ActivityCreateSubItem   ActivityType = "create_sub_item"
	ActivityReassign        ActivityType = "reassign"
	ActivityOutOfOffice     ActivityType = "out_of_office"
	ActivityCreateContainer ActivityType = "create_container"
)

// Working-hours profiles.
const (
	WorkingHoursRegional = "regional" // weekday business hours, one region
	WorkingHoursGlobal   = "global"   // follow-the-sun coverage
)

// Activity level multipliers applied to the base per-minute probability.
var activityMultipliers = map[string]float64{
	"low":    0.3,
	"medium": 1.0,
	"high":   2.0,
}

// Burst hours: start of day, post-lunch, pre-end-of-day push.
var burstHours = map[int]bool{9: true, 13: true, 16: true}

// Scheduler decides activity timing and type for one job. It is not safe
// for concurrent use; each job runner owns its own instance.
type Scheduler struct {
	cfg      store.JobConfig
	baseRate float64
	rng      *rand.Rand
}

// New creates a scheduler for the given job config with a time-seeded
// entropy source.
func New(cfg store.JobConfig) *Scheduler {
	return NewWithRand(cfg, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand creates a scheduler with an explicit entropy source so tests
// can be deterministic.
func NewWithRand(cfg store.JobConfig, rng *rand.Rand) *Scheduler {
	baseRate, ok := activityMultipliers[cfg.ActivityLevel]
	if !ok {
		baseRate = activityMultipliers["medium"]
	}
	return &Scheduler{cfg: cfg, baseRate: baseRate, rng: rng}
}

func (s *Scheduler) chance(p float64) bool {
	return s.rng.Float64() < p
}

// IsActiveWindow reports whether generation should occur at t. The result is
// a probabilistic draw, not a deterministic yes/no: repeated calls at the
// same instant are independent.
func (s *Scheduler) IsActiveWindow(t time.Time) bool {
	// Weekends carry a small flat probability of urgent work, regardless
	// of profile.
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return s.chance(0.05)
	}

	hour := t.Hour()
	switch s.cfg.WorkingHours {
	case WorkingHoursGlobal:
		switch {
		case hour >= 8 && hour < 18:
			return true
		case (hour >= 6 && hour < 8) || (hour >= 18 && hour < 22):
			return s.chance(0.5)
		default:
			return s.chance(0.2)
		}
	default: // regional business hours
		switch {
		case hour >= 9 && hour < 18:
			return true
		case hour >= 7 && hour < 9:
			// Early birds
			return s.chance(0.2)
		case hour >= 18 && hour < 21:
			// Night owls
			return s.chance(0.15)
		default:
			return false
		}
	}
}

// IsBurstWindow reports whether t falls in an elevated-activity clock hour.
// A low burst factor makes bursts more likely (peaked distribution); a high
// factor flattens them out.
func (s *Scheduler) IsBurstWindow(t time.Time) bool {
	if !burstHours[t.Hour()] {
		return false
	}
	return s.chance(1.0 - s.cfg.BurstFactor*0.7)
}

// ShouldAct composes the active window, the base per-minute probability and
// the burst multiplier into one Bernoulli draw.
func (s *Scheduler) ShouldAct(t time.Time) bool {
	if !s.IsActiveWindow(t) {
		return false
	}

	// 10% base per minute during work hours, scaled by activity level.
	prob := s.baseRate * 0.1

	if s.IsBurstWindow(t) {
		prob *= 2.0
	}

	// Bursty configs compound: if we are generating, generate more.
	if s.cfg.BurstFactor < 0.5 && s.chance(prob) {
		prob *= 1.5
	}

	return s.chance(prob)
}

// nextActivityMaxProbes bounds the forward search to 24 hours of one-minute
// steps. The search must always terminate and always return a time strictly
// after from.
const nextActivityMaxProbes = 60 * 24

// NextActivityTime searches forward from from+1m in random 1-5 minute
// increments for a time at which ShouldAct fires. If nothing fires within
// the 24-hour bound it falls back to from+1h.
func (s *Scheduler) NextActivityTime(from time.Time) time.Time {
	probe := from.Add(time.Minute)
	for i := 0; i < nextActivityMaxProbes; i++ {
		if s.ShouldAct(probe) {
			return probe
		}
		probe = probe.Add(time.Duration(1+s.rng.Intn(5)) * time.Minute)
	}
	return from.Add(time.Hour)
}

// SelectActivityType picks what to generate next via weighted sampling over
// the activity taxonomy. Weights derive from the current item counts, so a
// type is never returned when its precondition does not hold. An empty world
// always yields create_item.
func (s *Scheduler) SelectActivityType(world *store.WorldState) ActivityType {
	counts := world.CountByStatus()
	total := world.TotalItems()

	if total == 0 {
		return ActivityCreateItem
	}

	var (
		types   []ActivityType
		weights []float64
	)
	add := func(t ActivityType, w float64) {
		types = append(types, t)
		weights = append(weights, w)
	}

	if counts[store.ItemNew] > 0 {
		add(ActivityStartWork, 30)
	}
	if counts[store.ItemInProgress] > 0 {
		add(ActivityProgressUpdate, 20)
		add(ActivityBlock, float64(s.cfg.BlockedFrequencyPct))
		add(ActivityComplete, 15)
		add(ActivityReassign, 3)
	}
	if counts[store.ItemBlocked] > 0 {
		add(ActivityUnblock, 25)
	}
	if s.hasCommentedItem(world) {
		add(ActivityConversation, 25)
	}
	add(ActivityCreateItem, 10)
	add(ActivityCreateSubItem, 5)
	add(ActivityOutOfOffice, 2)

	return s.weightedChoice(types, weights)
}

func (s *Scheduler) hasCommentedItem(world *store.WorldState) bool {
	for _, item := range world.Items() {
		if item.CommentCount > 0 {
			return true
		}
	}
	return false
}

// weightedChoice samples proportionally to the given weights. Ties break by
// sampling order, not a fixed priority.
func (s *Scheduler) weightedChoice(types []ActivityType, weights []float64) ActivityType {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return ActivityCreateItem
	}
	target := s.rng.Float64() * sum
	for i, w := range weights {
		target -= w
		if target < 0 {
			return types[i]
		}
	}
	return types[len(types)-1]
}

// SelectSubject returns a uniformly-chosen work item eligible for the given
// activity type, or nil if none qualify. Blocking is a one-time event per
// item: items that have ever been blocked are excluded from block selection.
func (s *Scheduler) SelectSubject(world *store.WorldState, activity ActivityType) *store.WorkItem {
	var candidates []*store.WorkItem
	for _, item := range world.Items() {
		if s.eligible(item, activity) {
			candidates = append(candidates, item)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[s.rng.Intn(len(candidates))]
}

func (s *Scheduler) eligible(item *store.WorkItem, activity ActivityType) bool {
	switch activity {
	case ActivityStartWork:
		return item.Status == store.ItemNew
	case ActivityProgressUpdate, ActivityReassign:
		return item.Status == store.ItemInProgress
	case ActivityBlock, ActivityComplete:
		return item.Status == store.ItemInProgress && item.BlockedAt == nil
	case ActivityUnblock:
		return item.Status == store.ItemBlocked
	case ActivityConversation:
		return item.CommentCount > 0
	case ActivityCreateSubItem:
		return item.Status != store.ItemCompleted
	default:
		return true
	}
}

// ShouldCreateContainer decides whether a new container should be opened.
// Always true for an empty world. Otherwise two independent triggers: 30%
// once the newest container is more than 80% complete, and 50% once the
// configured inter-container interval has elapsed.
func (s *Scheduler) ShouldCreateContainer(world *store.WorldState, now time.Time) bool {
	newest := world.NewestContainer()
	if newest == nil {
		return true
	}

	if len(newest.Items) > 0 && newest.CompletionRatio() > 0.8 && s.chance(0.3) {
		return true
	}

	if s.cfg.ContainerEveryDays > 0 {
		elapsed := now.Sub(newest.CreatedAt)
		if elapsed >= time.Duration(s.cfg.ContainerEveryDays)*24*time.Hour && s.chance(0.5) {
			return true
		}
	}
	return false
}

// ShouldBlock decides whether an in-progress item becomes blocked. An item
// is only ever blocked once.
func (s *Scheduler) ShouldBlock(item *store.WorkItem) bool {
	if item.Status != store.ItemInProgress || item.BlockedAt != nil {
		return false
	}
	return s.chance(float64(s.cfg.BlockedFrequencyPct) / 100.0)
}

// ShouldUnblock decides whether a blocked item becomes unblocked. The
// probability ramps with time blocked: 70% at or past the configured average
// duration, linearly up to 30% before it.
func (s *Scheduler) ShouldUnblock(item *store.WorkItem, now time.Time) bool {
	if item.Status != store.ItemBlocked {
		return false
	}
	if item.BlockedAt == nil {
		// No blocked timestamp; unblock it.
		return true
	}
	avgDays := s.cfg.BlockedDurationDays
	if avgDays <= 0 {
		avgDays = 2
	}
	daysBlocked := now.Sub(*item.BlockedAt).Hours() / 24
	if daysBlocked >= float64(avgDays) {
		return s.chance(0.7)
	}
	return s.chance(daysBlocked / float64(avgDays) * 0.3)
}
