package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"rassrochka_app/internal/app"
	"rassrochka_app/internal/config"
	"rassrochka_app/internal/models"
	"rassrochka_app/internal/tasks"
)

type taskRunner interface {
	Run(ctx context.Context, taskName, trigger string, args map[string]interface{}) (*models.TaskRun, error)
}

// One reminder cycle, for system cron or manual runs.
func main() {
	os.Exit(run())
}

func run() int {
	taskName := flag.String("task_name", tasks.SendPaymentRemindersTaskID, "Name of the registered task to run")
	message := flag.String("message", "", "Message argument for log_info")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.WithError(err).Error("Failed to load configuration")
		return 1
	}
	config.ConfigureLogger(cfg.App.LogLevel)

	application, err := app.New(cfg)
	if err != nil {
		logrus.WithError(err).Error("Failed to initialize application")
		return 1
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runTask(ctx, application.Runner, *taskName, *message)
}

// runTask returns the process exit code.
func runTask(ctx context.Context, runner taskRunner, taskName, message string) int {
	var args map[string]interface{}
	if message != "" {
		args = map[string]interface{}{"message": message}
	}

	result, err := runner.Run(ctx, taskName, tasks.TriggerCLI, args)
	if err != nil {
		logrus.WithError(err).WithField("task", taskName).Error("Task run failed")
		return 1
	}

	logrus.WithFields(logrus.Fields{
		"run_id":     result.RunID,
		"runtime_ms": result.Runtime,
		"result":     result.Result,
	}).Info("Task run finished")
	return 0
}
