// Package worker contains the per-job runner goroutine that turns scheduling
// decisions into persisted activity.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"simplane/internal/logger"
	"simplane/internal/schedule"
	"simplane/internal/store"
	"simplane/internal/worker/generator"
)

// Config holds the runner's timing knobs. Zero values get defaults.
type Config struct {
	TickMin           time.Duration // minimum sleep between ticks (default 30s)
	TickMax           time.Duration // maximum sleep between ticks (default 90s)
	PausePoll         time.Duration // poll interval while paused (default 60s)
	RateLimitCooldown time.Duration // cool-down after a platform 429 (default 1h)
	ErrorBackoff      time.Duration // back-off after a general error (default 5m)
	GraceTimeout      time.Duration // bound on delete-time cleanup (default 30s)
}

func (c *Config) applyDefaults() {
	if c.TickMin <= 0 {
		c.TickMin = 30 * time.Second
	}
	if c.TickMax <= c.TickMin {
		c.TickMax = c.TickMin + 60*time.Second
	}
	if c.PausePoll <= 0 {
		c.PausePoll = 60 * time.Second
	}
	if c.RateLimitCooldown <= 0 {
		c.RateLimitCooldown = time.Hour
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = 5 * time.Minute
	}
	if c.GraceTimeout <= 0 {
		c.GraceTimeout = 30 * time.Second
	}
}

// Runner owns one job's simulation loop. All job state flows through the
// store; the only shared mutable state is the trio of control flags.
type Runner struct {
	jobID  string
	store  store.JobStore
	gen    generator.Generator
	config Config
	log    *slog.Logger

	pauseFlag atomic.Bool
	stopFlag  atomic.Bool
	wakeCh    chan struct{} // stop/resume nudges; ends sleeps, never acts
	genCh     chan struct{} // explicit generate-now requests
	done      chan struct{}

	activities metric.Int64Counter // optional

	rng *rand.Rand
	now func() time.Time
}

// New creates a runner for the given job id. The job record must already
// exist in the store.
func New(jobID string, st store.JobStore, gen generator.Generator, cfg Config, log *slog.Logger) *Runner {
	cfg.applyDefaults()
	r := &Runner{
		jobID:  jobID,
		store:  st,
		gen:    gen,
		config: cfg,
		log:    log.With(slog.String("job_id", jobID)),
		wakeCh: make(chan struct{}, 1),
		genCh:  make(chan struct{}, 1),
		done:   make(chan struct{}),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
	return r
}

// SetActivityCounter wires the otel counter incremented per generated
// activity.
func (r *Runner) SetActivityCounter(c metric.Int64Counter) {
	r.activities = c
}

// Done is closed when the runner goroutine has fully exited.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Pause asks the loop to idle. The flag takes effect on the next tick.
func (r *Runner) Pause() {
	r.pauseFlag.Store(true)
}

// Resume clears the pause flag. Stale nextActivityAt values are recomputed
// on the next tick; missed activity is not caught up.
func (r *Runner) Resume() {
	r.pauseFlag.Store(false)
	r.wake()
}

// Stop asks the loop to exit cleanly.
func (r *Runner) Stop() {
	r.stopFlag.Store(true)
	r.wake()
}

// GenerateNow requests one immediate activity, skipping the schedule gate.
// It uses its own channel so a resume or stop wake can never be mistaken for
// a generation request.
func (r *Runner) GenerateNow() {
	select {
	case r.genCh <- struct{}{}:
	default:
	}
}

func (r *Runner) wake() {
	select {
	case r.wakeCh <- struct{}{}:
	default:
	}
}

// Run executes the job loop until stopped, deleted or the context ends.
// It must be called exactly once, in its own goroutine.
func (r *Runner) Run(ctx context.Context) {
	defer close(r.done)

	ctx = logger.WithJobID(ctx, r.jobID)

	job, err := r.store.Load(ctx, r.jobID)
	if err != nil {
		r.log.Error("failed to load job, runner exiting", slog.Any("error", err))
		return
	}
	if job == nil || job.DeletionMarker {
		return
	}

	sched := schedule.NewWithRand(job.Config, r.rng)

	if job.Status == store.StatusInitializing {
		if err := r.bootstrap(ctx, job, sched); err != nil {
			r.log.Error("bootstrap failed", slog.Any("error", err))
			job.LogError(r.now().UTC(), "bootstrap", err.Error())
			r.save(ctx, job)
			if !r.sleepWithWake(ctx, r.config.ErrorBackoff) {
				return
			}
		}
	} else if job.Status == store.StatusRunning && r.overdue(job) {
		// Cold start with a missed slot: catch up exactly one activity.
		// Anything older than that is simply lost time.
		if err := r.performActivity(ctx, job, sched); err != nil {
			r.handleActivityError(ctx, job, err)
		}
		r.reschedule(job, sched)
		r.save(ctx, job)
	}

	r.loop(ctx, job, sched)
}

func (r *Runner) loop(ctx context.Context, job *store.Job, sched *schedule.Scheduler) {
	var (
		cooldownUntil time.Time
		wasPaused     bool
	)

	for {
		if ctx.Err() != nil {
			return
		}

		// The persisted record is the source of truth for lifecycle
		// signals; another process may have deleted or stopped the job.
		fresh, err := r.store.Load(ctx, r.jobID)
		if err != nil {
			r.log.Warn("reload failed, retrying", slog.Any("error", err))
			if !r.sleepWithWake(ctx, r.config.ErrorBackoff) {
				return
			}
			continue
		}
		if fresh == nil || fresh.DeletionMarker {
			// No final save: the record is a tombstone now.
			r.cleanup(ctx, job)
			return
		}
		job = fresh

		if r.stopFlag.Load() || job.Status == store.StatusStopped {
			r.finishStopped(ctx, job)
			return
		}

		if r.pauseFlag.Load() || job.Status == store.StatusPaused {
			wasPaused = true
			r.sleepWithWake(ctx, r.config.PausePoll)
			continue
		}

		now := r.now().UTC()

		if wasPaused {
			wasPaused = false
			// Coming out of a pause, a nextActivityAt in the past is
			// stale downtime, not a backlog. Recompute, don't catch up.
			if r.overdue(job) {
				r.reschedule(job, sched)
				r.save(ctx, job)
				continue
			}
		}

		if r.expired(job, now) {
			r.log.Info("job duration elapsed, stopping")
			job.LogActivity(now, "duration_elapsed", nil)
			r.finishStopped(ctx, job)
			return
		}

		if now.Before(cooldownUntil) {
			r.sleepWithWake(ctx, r.minDuration(cooldownUntil.Sub(now), r.config.PausePoll))
			continue
		}

		if job.NextActivityAt == nil {
			r.reschedule(job, sched)
			r.save(ctx, job)
			continue
		}

		if !now.Before(*job.NextActivityAt) {
			if err := r.performActivity(ctx, job, sched); err != nil {
				cooldownUntil = r.handleActivityError(ctx, job, err)
			}
			r.reschedule(job, sched)
			r.save(ctx, job)
		}

		tick := r.config.TickMin + time.Duration(r.rng.Int63n(int64(r.config.TickMax-r.config.TickMin)))
		generate := r.sleepForGenerate(ctx, tick)
		if ctx.Err() != nil {
			return
		}
		// Only an explicit generate-now request acts immediately. Stop
		// and resume wakes end the sleep early but fall through to the
		// flag checks above without generating.
		if generate && !r.stopFlag.Load() && !r.pauseFlag.Load() {
			if err := r.performActivity(ctx, job, sched); err != nil {
				cooldownUntil = r.handleActivityError(ctx, job, err)
			}
			r.reschedule(job, sched)
			r.save(ctx, job)
		}
	}
}

// bootstrap creates the initial world and warms it up with a few activities
// so a fresh demo does not look freshly seeded.
func (r *Runner) bootstrap(ctx context.Context, job *store.Job, sched *schedule.Scheduler) error {
	r.log.Info("bootstrapping job",
		slog.String("industry", job.Config.Industry),
		slog.Int("initial_containers", job.Config.InitialContainers))

	delta, err := r.gen.Bootstrap(ctx, job.Config)
	if err != nil {
		return fmt.Errorf("generator bootstrap: %w", err)
	}

	now := r.now().UTC()
	job.World.Apply(delta, now)
	r.recordDelta(ctx, job, "bootstrap", delta, now)

	warmups := 3 + r.rng.Intn(4)
	for i := 0; i < warmups; i++ {
		if err := r.performActivity(ctx, job, sched); err != nil {
			job.LogError(r.now().UTC(), "warmup", err.Error())
			break
		}
	}

	job.Status = store.StatusRunning
	started := r.now().UTC()
	job.StartedAt = &started
	r.reschedule(job, sched)
	r.save(ctx, job)
	r.log.Info("job running", slog.Int("items", job.World.TotalItems()))
	return nil
}

// performActivity executes one end-to-end activity: decide, generate, apply,
// record.
func (r *Runner) performActivity(ctx context.Context, job *store.Job, sched *schedule.Scheduler) error {
	now := r.now().UTC()

	var activity schedule.ActivityType
	var subject *store.WorkItem

	if sched.ShouldCreateContainer(&job.World, now) {
		activity = schedule.ActivityCreateContainer
	} else {
		activity = sched.SelectActivityType(&job.World)
		subject = sched.SelectSubject(&job.World, activity)

		switch activity {
		case schedule.ActivityBlock:
			if subject == nil || !sched.ShouldBlock(subject) {
				// The dice said no; leave a progress comment instead.
				activity = schedule.ActivityProgressUpdate
				subject = sched.SelectSubject(&job.World, activity)
			}
		case schedule.ActivityUnblock:
			if subject != nil && !sched.ShouldUnblock(subject, now) {
				// Not yet; keep the world moving with chatter on an
				// item that actually has a conversation going.
				activity = schedule.ActivityConversation
				subject = sched.SelectSubject(&job.World, activity)
			}
		}
	}

	delta, err := r.gen.Perform(ctx, activity, subject, &job.World)
	if err != nil {
		return fmt.Errorf("perform %s: %w", activity, err)
	}

	job.World.Apply(delta, now)
	r.recordDelta(ctx, job, string(activity), delta, now)
	return nil
}

// recordDelta updates stats, the activity log and lastActivityAt from an
// applied delta.
func (r *Runner) recordDelta(ctx context.Context, job *store.Job, action string, delta *store.Delta, now time.Time) {
	if delta.Empty() {
		return
	}

	job.Stats.ContainersCreated += len(delta.NewContainers)
	for i := range delta.NewContainers {
		job.Stats.ItemsCreated += len(delta.NewContainers[i].Items)
	}
	for _, items := range delta.NewItems {
		job.Stats.ItemsCreated += len(items)
	}
	for _, u := range delta.Updates {
		if u.Status != "" {
			job.Stats.StatusChanges++
			if u.Status == store.ItemCompleted {
				job.Stats.ItemsCompleted++
			}
		}
		if u.CommentAdded {
			job.Stats.CommentsAdded++
		}
		if u.SubItemID != "" {
			// Sub-items arrive via NewItems too; reclassify the count.
			job.Stats.SubItemsCreated++
			job.Stats.ItemsCreated--
		}
	}

	details := map[string]string{}
	if len(delta.Updates) == 1 {
		details["item_id"] = delta.Updates[0].ItemID
	}
	if len(delta.NewContainers) == 1 {
		details["container"] = delta.NewContainers[0].Name
	}
	job.LogActivity(now, action, details)
	job.LastActivityAt = &now

	if r.activities != nil {
		r.activities.Add(ctx, 1, metric.WithAttributes(
			attribute.String("job_id", job.ID),
			attribute.String("activity", action),
		))
	}
}

// handleActivityError classifies the failure and returns the time until
// which the loop should cool down.
func (r *Runner) handleActivityError(ctx context.Context, job *store.Job, err error) time.Time {
	now := r.now().UTC()
	if generator.IsRateLimit(err) {
		r.log.Warn("platform rate limit, cooling down", slog.Any("error", err))
		job.LogError(now, "rate_limit", err.Error())
		r.oooBurst(job, now)
		return now.Add(r.config.RateLimitCooldown)
	}
	r.log.Warn("activity failed, backing off", slog.Any("error", err))
	job.LogError(now, "general", err.Error())
	return now.Add(r.config.ErrorBackoff)
}

// oooBurst logs a small wave of out-of-office entries during a rate-limit
// cool-down so the pause in activity reads as people being away.
func (r *Runner) oooBurst(job *store.Job, now time.Time) {
	items := job.World.Items()
	if len(items) == 0 {
		return
	}
	n := 1 + r.rng.Intn(2)
	for i := 0; i < n; i++ {
		item := items[r.rng.Intn(len(items))]
		if item.AssigneeName == "" {
			continue
		}
		job.LogActivity(now, string(schedule.ActivityOutOfOffice), map[string]string{
			"person": item.AssigneeName,
		})
	}
}

// cleanup tears down external resources after the deletion marker is
// observed. Errors are logged, never retried; the tombstone wins.
func (r *Runner) cleanup(ctx context.Context, job *store.Job) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.GraceTimeout)
	defer cancel()

	report := r.gen.Cleanup(cctx, &job.World)
	if err := report.Err(); err != nil {
		r.log.Warn("cleanup finished with errors",
			slog.Int("containers_removed", report.ContainersRemoved),
			slog.Any("error", err))
		return
	}
	r.log.Info("cleanup complete",
		slog.Int("containers_removed", report.ContainersRemoved),
		slog.Int("items_removed", report.ItemsRemoved))
}

func (r *Runner) finishStopped(ctx context.Context, job *store.Job) {
	if job.Status != store.StatusStopped {
		job.Status = store.StatusStopped
	}
	r.save(ctx, job)
	r.log.Info("job stopped")
}

func (r *Runner) reschedule(job *store.Job, sched *schedule.Scheduler) {
	next := sched.NextActivityTime(r.now().UTC())
	job.NextActivityAt = &next
}

func (r *Runner) overdue(job *store.Job) bool {
	return job.NextActivityAt != nil && job.NextActivityAt.Before(r.now().UTC())
}

func (r *Runner) expired(job *store.Job, now time.Time) bool {
	if job.Config.DurationDays <= 0 {
		return false
	}
	deadline := job.CreatedAt.Add(time.Duration(job.Config.DurationDays) * 24 * time.Hour)
	return now.After(deadline)
}

// save persists the record. The store silently drops writes for tombstoned
// jobs, so no marker check is needed here.
func (r *Runner) save(ctx context.Context, job *store.Job) {
	if err := r.store.Save(ctx, job); err != nil {
		r.log.Error("failed to save job", slog.Any("error", err))
	}
}

func (r *Runner) sleepWithWake(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-r.wakeCh:
		return true
	case <-timer.C:
		return true
	}
}

// sleepForGenerate sleeps up to d and reports whether an explicit
// generate-now request arrived. Control wakes end the sleep early but report
// false, so only generation requests bypass the schedule gate.
func (r *Runner) sleepForGenerate(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-r.genCh:
		return true
	case <-r.wakeCh:
		return false
	case <-timer.C:
		return false
	}
}

func (r *Runner) minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
