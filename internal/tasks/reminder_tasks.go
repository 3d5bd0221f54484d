package tasks

import (
	"context"

	"rassrochka_app/internal/reminders"
)

// ReminderRunner is the part of the dispatcher the task needs.
type ReminderRunner interface {
	Run(ctx context.Context) (reminders.Summary, error)
}

// SendPaymentRemindersTaskDef runs one reminder dispatch cycle
type SendPaymentRemindersTaskDef struct {
	dispatcher ReminderRunner
}

func NewSendPaymentRemindersTask(dispatcher ReminderRunner) *SendPaymentRemindersTaskDef {
	return &SendPaymentRemindersTaskDef{dispatcher: dispatcher}
}

// TaskID returns the unique identifier for this task
func (t *SendPaymentRemindersTaskDef) TaskID() string {
	return SendPaymentRemindersTaskID
}

// HandleExecution takes no arguments; the dispatcher reads the clock itself.
func (t *SendPaymentRemindersTaskDef) HandleExecution(ctx context.Context, _ map[string]interface{}) (map[string]interface{}, error) {
	summary, err := t.dispatcher.Run(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"tenants":   summary.Tenants,
		"processed": summary.Processed,
		"sent":      summary.Sent,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
	}, nil
}
