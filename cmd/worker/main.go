package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"rassrochka_app/internal/app"
	"rassrochka_app/internal/config"
	"rassrochka_app/internal/scheduler"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	config.ConfigureLogger(cfg.App.LogLevel)

	application, err := app.New(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize application")
	}
	defer application.Close()

	// Create context that cancels on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The worker exists to run the schedule, so it ignores REMINDER_SCHEDULER_ENABLED.
	reminderScheduler := scheduler.NewReminderScheduler(application.Runner, cfg.Location, true)
	if err := reminderScheduler.Start(ctx); err != nil {
		logrus.WithError(err).Fatal("Failed to start reminder scheduler")
	}

	logrus.Info("Worker started. Waiting for next tick...")
	<-ctx.Done()
	logrus.Info("Shutting down worker...")
}
