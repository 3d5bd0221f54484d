package tasks

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sirupsen/logrus"

	"rassrochka_app/internal/models"
)

const (
	TriggerScheduler = "scheduler"
	TriggerHTTP      = "http"
	TriggerCLI       = "cli"

	runIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	runIDLength   = 12
)

// History persists task runs.
type History interface {
	SaveTaskRun(ctx context.Context, run *models.TaskRun) error
}

// Runner executes registered tasks and records each run.
type Runner struct {
	registry *Registry
	history  History
	now      func() time.Time
}

// NewRunner wires a runner. history may be nil, in which case runs are only logged.
func NewRunner(registry *Registry, history History) *Runner {
	return &Runner{registry: registry, history: history, now: time.Now}
}

// Run executes the named task once. The returned TaskRun is filled in even
// when the handler fails; the error is the handler's.
func (r *Runner) Run(ctx context.Context, taskName, trigger string, args map[string]interface{}) (*models.TaskRun, error) {
	runID, err := gonanoid.Generate(runIDAlphabet, runIDLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate run id: %w", err)
	}

	logger := logrus.WithFields(logrus.Fields{
		"task":    taskName,
		"run_id":  runID,
		"trigger": trigger,
	})

	run := &models.TaskRun{
		RunID:    runID,
		TaskName: taskName,
		Trigger:  trigger,
		RunAt:    r.now(),
	}

	handler, found := r.registry.Get(taskName)
	if !found {
		logger.Error("Task handler not found")
		run.Status = models.TaskRunStatusHandlerNotFound
		run.Result = map[string]interface{}{"error": "Handler not found"}
		r.record(ctx, logger, run)
		return run, fmt.Errorf("task handler not found: %s", taskName)
	}

	logger.Info("Processing task")
	startTime := time.Now()
	result, err := handler(ctx, args)
	run.Runtime = int(time.Since(startTime).Milliseconds())

	if err != nil {
		run.Status = models.TaskRunStatusFailure
		run.Result = map[string]interface{}{"error": err.Error()}
		logger.WithError(err).Error("Task failed")
	} else {
		run.Status = models.TaskRunStatusSuccess
		run.Result = result
		logger.WithField("runtime_ms", run.Runtime).Info("Task completed successfully")
	}

	r.record(ctx, logger, run)
	return run, err
}

func (r *Runner) record(ctx context.Context, logger *logrus.Entry, run *models.TaskRun) {
	if r.history == nil {
		return
	}
	// history must not block or fail the task itself
	if err := r.history.SaveTaskRun(context.WithoutCancel(ctx), run); err != nil {
		logger.WithError(err).Warn("Failed to save task run")
	}
}
