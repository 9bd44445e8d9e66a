package domain

import (
	"fmt"
	"time"
)

// Built-in background tasks.
const (
	TaskIDDriveSync        = "drive-sync"
	TaskIDIngestionCleanup = "ingestion-cleanup"
	TaskIDTempTokenCleanup = "temp-token-cleanup"
)

// TaskConfig enables one background task at a fixed cadence.
type TaskConfig struct {
	ID       string
	Name     string
	Enabled  bool
	Interval time.Duration
}

// SchedulerConfig lists the background tasks in the order they are set up.
type SchedulerConfig struct {
	// Enabled is the master switch; tasks never run when false.
	Enabled bool
	Tasks   []TaskConfig
}

// Task returns the configuration for id, or a disabled zero value.
func (c SchedulerConfig) Task(id string) TaskConfig {
	for _, t := range c.Tasks {
		if t.ID == id {
			return t
		}
	}
	return TaskConfig{ID: id}
}

// withInterval enables task id at interval d. Non-positive d is ignored.
func (c *SchedulerConfig) withInterval(id string, d time.Duration) {
	if d <= 0 {
		return
	}
	for i := range c.Tasks {
		if c.Tasks[i].ID == id {
			c.Tasks[i].Enabled = true
			c.Tasks[i].Interval = d
		}
	}
}

// DefaultSchedulerConfig runs the Drive sync and token cleanup hourly and
// purges failed ingestion records daily.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		Tasks: []TaskConfig{
			{ID: TaskIDDriveSync, Name: "Drive Sync", Enabled: true, Interval: time.Hour},
			{ID: TaskIDIngestionCleanup, Name: "Failed Ingestion Cleanup", Enabled: true, Interval: 24 * time.Hour},
			{ID: TaskIDTempTokenCleanup, Name: "Temporary Token Cleanup", Enabled: true, Interval: time.Hour},
		},
	}
}

// ScheduledTask is the persisted state of a background task. It survives
// restarts so a task is not rerun early after a crash.
type ScheduledTask struct {
	ID          string
	Name        string
	Interval    time.Duration
	Enabled     bool
	LastRun     time.Time
	NextRun     time.Time
	LastSuccess time.Time
	LastError   string
	// Failures counts consecutive failed runs; a success resets it.
	Failures int
}

// NewScheduledTask creates the stored form of cfg, first due one interval
// after now.
func NewScheduledTask(cfg TaskConfig, now time.Time) *ScheduledTask {
	return &ScheduledTask{
		ID:       cfg.ID,
		Name:     cfg.Name,
		Interval: cfg.Interval,
		Enabled:  cfg.Enabled,
		NextRun:  now.Add(cfg.Interval),
	}
}

// Apply brings a stored task in line with cfg. A changed interval
// reschedules the next run from now.
func (t *ScheduledTask) Apply(cfg TaskConfig, now time.Time) {
	if cfg.Name != "" {
		t.Name = cfg.Name
	}
	if t.Interval != cfg.Interval {
		t.Interval = cfg.Interval
		t.NextRun = now.Add(cfg.Interval)
	}
	t.Enabled = cfg.Enabled
}

// Due reports whether an enabled task should run at now. A task with no
// next run is always due.
func (t ScheduledTask) Due(now time.Time) bool {
	return t.Enabled && !t.NextRun.After(now)
}

// Finish folds a completed run into the task and schedules the next one
// an interval after the run ended.
func (t *ScheduledTask) Finish(r TaskResult) {
	t.LastRun = r.StartedAt
	t.NextRun = r.EndedAt.Add(t.Interval)
	if r.Succeeded() {
		t.LastSuccess = r.EndedAt
		t.LastError = ""
		t.Failures = 0
		return
	}
	t.LastError = r.Error
	t.Failures++
}

// RunCounts tallies what one task run touched. Sync runs fill the project
// and file counts; cleanup runs fill Removed.
type RunCounts struct {
	// Projects is the number of projects whose sync pass completed.
	Projects int
	Seen     int
	Queued   int
	Skipped  int
	Failed   int
	Errors   int
	// Removed is the number of stale rows deleted.
	Removed int
}

// Items is the headline number of a run.
func (c RunCounts) Items() int {
	if c.Removed > 0 {
		return c.Removed
	}
	return c.Projects
}

func (c RunCounts) String() string {
	if c.Projects == 0 && c.Seen == 0 {
		return fmt.Sprintf("removed=%d", c.Removed)
	}
	return fmt.Sprintf("projects=%d seen=%d queued=%d skipped=%d failed=%d errors=%d",
		c.Projects, c.Seen, c.Queued, c.Skipped, c.Failed, c.Errors)
}

// TaskResult is the outcome of one task run.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	// Error is empty when the run succeeded.
	Error  string
	Counts RunCounts
}

// Succeeded reports whether the run completed without error.
func (r TaskResult) Succeeded() bool {
	return r.Error == ""
}

// Duration is how long the run took.
func (r TaskResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}
