package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aganswers/drivesync/internal/core/domain"
	"github.com/aganswers/drivesync/internal/core/ports/driven"
	"github.com/aganswers/drivesync/internal/core/ports/driving"
	"github.com/aganswers/drivesync/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyKeep is how many results are retained per task.
const historyKeep = 100

// Scheduler runs the recurring sync and cleanup tasks.
// It is a pure core service with no external control API.
type Scheduler struct {
	config   domain.SchedulerConfig
	store    driven.SchedulerStore
	syncOrch driving.SyncOrchestrator
	tracker  driving.IngestionTracker
	tokens   driving.TokenManager
	tick     time.Duration

	mu       sync.Mutex
	running  bool
	inFlight map[string]bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	syncOrch driving.SyncOrchestrator,
	tracker driving.IngestionTracker,
	tokens driving.TokenManager,
) *Scheduler {
	return &Scheduler{
		config:   config,
		store:    store,
		syncOrch: syncOrch,
		tracker:  tracker,
		tokens:   tokens,
		tick:     time.Minute,
		inFlight: make(map[string]bool),
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Error("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler and waits for running tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Tasks returns the stored task states, soonest due first.
func (s *Scheduler) Tasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	return s.store.ListTasks(ctx)
}

// History returns the latest runs of a task, most recent first.
func (s *Scheduler) History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	if limit <= 0 {
		limit = historyKeep
	}
	return s.store.GetTaskHistory(ctx, taskID, limit)
}

// initialiseTasks ensures every enabled task exists in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	for _, cfg := range s.config.Tasks {
		if !cfg.Enabled {
			continue
		}
		if err := s.ensureTask(ctx, cfg); err != nil {
			return err
		}
	}
	return nil
}

// ensureTask creates the task or applies a changed configuration to it.
func (s *Scheduler) ensureTask(ctx context.Context, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, cfg.ID)
	if err != nil {
		return err
	}

	now := time.Now()
	if task == nil {
		task = domain.NewScheduledTask(cfg, now)
	} else {
		task.Apply(cfg, now)
	}
	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Error("scheduler: failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		if tasks[i].Due(now) {
			s.runTask(ctx, &tasks[i])
		}
	}
}

// claim marks a task as in flight. Returns false if it already is.
func (s *Scheduler) claim(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[taskID] {
		return false
	}
	s.inFlight[taskID] = true
	return true
}

func (s *Scheduler) unclaim(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, taskID)
}

// taskFunc performs one run of a task.
type taskFunc func(ctx context.Context) (domain.RunCounts, error)

func (s *Scheduler) taskFunc(taskID string) taskFunc {
	switch taskID {
	case domain.TaskIDDriveSync:
		return s.runDriveSync
	case domain.TaskIDIngestionCleanup:
		return s.runIngestionCleanup
	case domain.TaskIDTempTokenCleanup:
		return s.runTempTokenCleanup
	default:
		return nil
	}
}

// runTask executes a single task in the background. A task whose previous
// run is still going is skipped.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	fn := s.taskFunc(task.ID)
	if fn == nil {
		logger.Warn("scheduler: unknown task ID: %s", task.ID)
		return
	}
	if !s.claim(task.ID) {
		logger.Debug("scheduler: %s still running, skipping", task.ID)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.unclaim(task.ID)

		result := domain.TaskResult{TaskID: task.ID, StartedAt: time.Now()}
		counts, err := fn(ctx)
		result.EndedAt = time.Now()
		result.Counts = counts
		if err != nil {
			result.Error = err.Error()
		}
		task.Finish(result)

		if err != nil {
			logger.Error("scheduler: task %s failed (%d in a row): %v", task.ID, task.Failures, err)
		} else {
			logger.Info("scheduler: task %s finished in %s: %s", task.ID, result.Duration().Round(time.Millisecond), counts)
		}

		if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
			logger.Error("scheduler: failed to save task %s: %v", task.ID, saveErr)
		}
		if recordErr := s.store.RecordResult(ctx, &result); recordErr != nil {
			logger.Error("scheduler: failed to record result for %s: %v", task.ID, recordErr)
		}
		if pruneErr := s.store.PruneHistory(ctx, historyKeep); pruneErr != nil {
			logger.Error("scheduler: failed to prune history: %v", pruneErr)
		}
	}()
}

// runDriveSync syncs every project with an integration.
func (s *Scheduler) runDriveSync(ctx context.Context) (domain.RunCounts, error) {
	if s.syncOrch == nil {
		return domain.RunCounts{}, nil
	}
	return s.syncOrch.SyncAll(ctx)
}

// runIngestionCleanup removes expired failed ingestion records.
func (s *Scheduler) runIngestionCleanup(ctx context.Context) (domain.RunCounts, error) {
	if s.tracker == nil {
		return domain.RunCounts{}, nil
	}
	n, err := s.tracker.CleanupFailed(ctx)
	if err != nil {
		return domain.RunCounts{}, fmt.Errorf("cleanup failed records: %w", err)
	}
	return domain.RunCounts{Removed: n}, nil
}

// runTempTokenCleanup removes abandoned temporary tokens.
func (s *Scheduler) runTempTokenCleanup(ctx context.Context) (domain.RunCounts, error) {
	if s.tokens == nil {
		return domain.RunCounts{}, nil
	}
	n, err := s.tokens.CleanupTempTokens(ctx)
	return domain.RunCounts{Removed: n}, err
}
