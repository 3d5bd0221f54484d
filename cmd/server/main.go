package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"rassrochka_app/internal/app"
	"rassrochka_app/internal/config"
	"rassrochka_app/internal/handlers"
	authMiddleware "rassrochka_app/internal/middleware"
	"rassrochka_app/internal/scheduler"
	"rassrochka_app/internal/services"
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

	// Initialize Firebase
	var verifier authMiddleware.TokenVerifier
	authClient, err := services.InitFirebase(cfg.Firebase.CredentialsPath)
	if err != nil {
		logrus.WithError(err).Warn("Firebase initialization failed, manager API will reject every request")
	} else {
		verifier = authClient
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Off by default: cmd/worker or an external cron hitting /cron/reminders
	// normally drives reminders.
	if cfg.Reminders.SchedulerEnabled && cfg.Redis.URL == "" {
		logrus.Warn("REMINDER_SCHEDULER_ENABLED without REDIS_URL: a worker running alongside will double-send reminders")
	}
	reminderScheduler := scheduler.NewReminderScheduler(application.Runner, cfg.Location, cfg.Reminders.SchedulerEnabled)
	if err := reminderScheduler.Start(ctx); err != nil {
		logrus.WithError(err).Fatal("Failed to start reminder scheduler")
	}

	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = handlers.JSONSerializer{}
	e.HTTPErrorHandler = authMiddleware.CustomErrorHandler

	e.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			logrus.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
			}).Info("request")
			return nil
		},
	}))
	e.Use(echoMiddleware.Recover())

	handlers.RegisterRoutes(e, handlers.Handlers{
		Sales:      handlers.NewSaleHandler(application.Store, cfg.Location),
		Customers:  handlers.NewCustomerHandler(application.Store, app.PhoneNormalizer(cfg)),
		Settings:   handlers.NewSettingsHandler(application.Store, application.GreenAPI),
		Cron:       handlers.NewCronHandler(application.Runner, reminderScheduler),
		Verifier:   verifier,
		CronSecret: cfg.Server.CronSecret,
	})

	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Graceful shutdown failed")
	}
}
