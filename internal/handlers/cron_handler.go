package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"rassrochka_app/internal/models"
	"rassrochka_app/internal/tasks"
)

// TaskRunner is satisfied by *tasks.Runner.
type TaskRunner interface {
	Run(ctx context.Context, taskName, trigger string, args map[string]interface{}) (*models.TaskRun, error)
}

// StatusProvider is satisfied by *scheduler.ReminderScheduler.
type StatusProvider interface {
	GetStatus() map[string]any
}

type CronHandler struct {
	runner    TaskRunner
	scheduler StatusProvider
}

// NewCronHandler wires the trigger endpoint. scheduler may be nil.
func NewCronHandler(runner TaskRunner, scheduler StatusProvider) *CronHandler {
	return &CronHandler{runner: runner, scheduler: scheduler}
}

// RunReminders executes one reminder cycle synchronously and reports its
// result. The cycle outlives a caller that disconnects.
func (h *CronHandler) RunReminders(c echo.Context) error {
	run, err := h.runner.Run(context.WithoutCancel(c.Request().Context()), tasks.SendPaymentRemindersTaskID, tasks.TriggerHTTP, nil)
	if err != nil {
		if run == nil {
			return err
		}
		return c.JSON(http.StatusInternalServerError, run)
	}
	return c.JSON(http.StatusOK, run)
}

// Health reports liveness and, when present, the scheduler state
func (h *CronHandler) Health(c echo.Context) error {
	body := map[string]any{"status": "ok"}
	if h.scheduler != nil {
		body["scheduler"] = h.scheduler.GetStatus()
	}
	return c.JSON(http.StatusOK, body)
}
