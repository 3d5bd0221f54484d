package tasks

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogInfoTaskDef writes its message argument to the log. It is used to check
// that the scheduler and the history table are wired.
type LogInfoTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *LogInfoTaskDef) TaskID() string {
	return "log_info"
}

func (t *LogInfoTaskDef) HandleExecution(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	message, ok := args["message"].(string)
	if !ok {
		message = "No message provided"
	}
	logrus.WithField("task", t.TaskID()).Info(message)

	return map[string]interface{}{
		"status":  "success",
		"message": message,
	}, nil
}

// LogInfoTask is the singleton instance of LogInfoTaskDef
var LogInfoTask = &LogInfoTaskDef{}
