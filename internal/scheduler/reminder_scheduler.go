package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"rassrochka_app/internal/models"
	"rassrochka_app/internal/tasks"
)

// EveryMinute fires at the start of each wall-clock minute, which is the
// resolution of a manager's reminder time.
const EveryMinute = "* * * * *"

// TaskRunner is the part of tasks.Runner the scheduler needs.
type TaskRunner interface {
	Run(ctx context.Context, taskName, trigger string, args map[string]interface{}) (*models.TaskRun, error)
}

// ReminderScheduler drives the reminder task once per minute
type ReminderScheduler struct {
	scheduler           *gocron.Scheduler
	runner              TaskRunner
	enabled             bool
	syncRunning         bool
	syncMutex           sync.Mutex
	lastSyncStartedAt   time.Time
	lastSyncCompletedAt time.Time
}

func NewReminderScheduler(runner TaskRunner, loc *time.Location, enabled bool) *ReminderScheduler {
	if loc == nil {
		loc = time.Local
	}

	logrus.WithFields(logrus.Fields{
		"cron":     EveryMinute,
		"timezone": loc.String(),
		"enabled":  enabled,
	}).Info("Reminder scheduler configured")

	return &ReminderScheduler{
		scheduler: gocron.NewScheduler(loc),
		runner:    runner,
		enabled:   enabled,
	}
}

// Start schedules the task and stops the scheduler when ctx is cancelled
func (s *ReminderScheduler) Start(ctx context.Context) error {
	if !s.enabled {
		logrus.Info("Reminder scheduler disabled by configuration")
		return nil
	}

	_, err := s.scheduler.Cron(EveryMinute).Do(func() {
		s.runReminders(ctx, tasks.TriggerScheduler)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}

	s.scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		logrus.Info("Stopping reminder scheduler")
		s.scheduler.Stop()
	}()

	return nil
}

// runReminders skips the tick when the previous cycle is still running.
func (s *ReminderScheduler) runReminders(ctx context.Context, trigger string) {
	s.syncMutex.Lock()
	if s.syncRunning {
		s.syncMutex.Unlock()
		logrus.Warn("Previous reminder cycle still running, skipping tick")
		return
	}
	s.syncRunning = true
	s.lastSyncStartedAt = time.Now()
	s.syncMutex.Unlock()

	defer func() {
		s.syncMutex.Lock()
		s.syncRunning = false
		s.lastSyncCompletedAt = time.Now()
		s.syncMutex.Unlock()
	}()

	// errors are already logged and recorded by the runner
	_, _ = s.runner.Run(ctx, tasks.SendPaymentRemindersTaskID, trigger, nil)
}

// TriggerManualSync starts a cycle in the background unless one is running
func (s *ReminderScheduler) TriggerManualSync(ctx context.Context) bool {
	s.syncMutex.Lock()
	running := s.syncRunning
	s.syncMutex.Unlock()
	if running {
		logrus.Info("Reminder cycle already running, ignoring manual trigger")
		return false
	}

	go s.runReminders(context.WithoutCancel(ctx), tasks.TriggerHTTP)
	return true
}

// GetStatus returns the current scheduler state
func (s *ReminderScheduler) GetStatus() map[string]any {
	s.syncMutex.Lock()
	defer s.syncMutex.Unlock()
	return map[string]any{
		"enabled":                s.enabled,
		"cron":                   EveryMinute,
		"running":                s.syncRunning,
		"last_sync_started_at":   s.lastSyncStartedAt,
		"last_sync_completed_at": s.lastSyncCompletedAt,
	}
}
