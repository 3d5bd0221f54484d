package tasks

// SendPaymentRemindersTaskID names the reminder task for schedulers and endpoints.
const SendPaymentRemindersTaskID = "send_payment_reminders"

// DefineTasks registers all available tasks
func DefineTasks(registry *Registry, dispatcher ReminderRunner) {
	registry.Register(LogInfoTask.TaskID(), LogInfoTask.HandleExecution)

	reminderTask := NewSendPaymentRemindersTask(dispatcher)
	registry.Register(reminderTask.TaskID(), reminderTask.HandleExecution)
}
