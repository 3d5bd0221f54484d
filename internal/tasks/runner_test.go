package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rassrochka_app/internal/models"
	"rassrochka_app/internal/reminders"
)

type memHistory struct {
	runs []*models.TaskRun
	err  error
}

func (h *memHistory) SaveTaskRun(ctx context.Context, run *models.TaskRun) error {
	h.runs = append(h.runs, run)
	return h.err
}

type stubDispatcher struct {
	summary reminders.Summary
	err     error
	calls   int
}

func (d *stubDispatcher) Run(ctx context.Context) (reminders.Summary, error) {
	d.calls++
	return d.summary, d.err
}

func TestRunner_SendPaymentReminders(t *testing.T) {
	dispatcher := &stubDispatcher{summary: reminders.Summary{Tenants: 2, Processed: 1, Sent: 3, Skipped: 1}}
	registry := NewRegistry()
	DefineTasks(registry, dispatcher)
	history := &memHistory{}

	run, err := NewRunner(registry, history).Run(context.Background(), SendPaymentRemindersTaskID, TriggerCLI, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, dispatcher.calls)
	assert.Equal(t, models.TaskRunStatusSuccess, run.Status)
	assert.Equal(t, 3, run.Result["sent"])
	assert.Equal(t, TriggerCLI, run.Trigger)
	assert.Len(t, run.RunID, runIDLength)
	require.Len(t, history.runs, 1)
	assert.Same(t, run, history.runs[0])
}

func TestRunner_HandlerFailure(t *testing.T) {
	dispatcher := &stubDispatcher{err: errors.New("failed to load tenant settings")}
	registry := NewRegistry()
	DefineTasks(registry, dispatcher)
	history := &memHistory{}

	run, err := NewRunner(registry, history).Run(context.Background(), SendPaymentRemindersTaskID, TriggerScheduler, nil)
	assert.Error(t, err)
	assert.Equal(t, models.TaskRunStatusFailure, run.Status)
	assert.Equal(t, "failed to load tenant settings", run.Result["error"])
	assert.Len(t, history.runs, 1)
}

func TestRunner_UnknownTask(t *testing.T) {
	history := &memHistory{}
	run, err := NewRunner(NewRegistry(), history).Run(context.Background(), "nope", TriggerHTTP, nil)
	assert.Error(t, err)
	assert.Equal(t, models.TaskRunStatusHandlerNotFound, run.Status)
	assert.Len(t, history.runs, 1)
}

func TestRunner_HistoryErrorDoesNotFailTask(t *testing.T) {
	registry := NewRegistry()
	DefineTasks(registry, &stubDispatcher{})

	run, err := NewRunner(registry, &memHistory{err: errors.New("db down")}).Run(context.Background(), SendPaymentRemindersTaskID, TriggerCLI, nil)
	require.NoError(t, err)
	assert.Equal(t, models.TaskRunStatusSuccess, run.Status)
}

func TestRegistry_Names(t *testing.T) {
	registry := NewRegistry()
	DefineTasks(registry, &stubDispatcher{})
	registry.Register("a_task", nil)

	assert.Equal(t, []string{"a_task", "log_info", SendPaymentRemindersTaskID}, registry.Names())
}

func TestRunner_LogInfo(t *testing.T) {
	registry := NewRegistry()
	DefineTasks(registry, &stubDispatcher{})

	run, err := NewRunner(registry, nil).Run(context.Background(), LogInfoTask.TaskID(), TriggerCLI, map[string]interface{}{"message": "ping"})
	require.NoError(t, err)
	assert.Equal(t, "ping", run.Result["message"])
}
