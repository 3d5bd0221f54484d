package app

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"rassrochka_app/internal/config"
	"rassrochka_app/internal/reminders"
	"rassrochka_app/internal/services"
	"rassrochka_app/internal/tasks"
)

// App is the dependency graph shared by every entrypoint.
type App struct {
	Config     *config.Config
	DB         *gorm.DB
	Store      *services.LedgerStore
	Redis      *services.RedisCache
	GreenAPI   *services.GreenAPIClient
	Dispatcher *reminders.Dispatcher
	Registry   *tasks.Registry
	Runner     *tasks.Runner
}

// PhoneNormalizer builds the normalizer for the configured country.
func PhoneNormalizer(cfg *config.Config) reminders.PhoneNormalizer {
	return reminders.PhoneNormalizer{
		CountryCode: cfg.Reminders.CountryCode,
		TrunkPrefix: cfg.Reminders.TrunkPrefix,
	}
}

// New connects to the database and, when configured, Redis, then wires the
// dispatcher and the task runner.
func New(cfg *config.Config) (*App, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	db, err := services.InitDB(cfg.Database.URL, logrus.GetLevel())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	a := &App{
		Config:   cfg,
		DB:       db,
		Store:    services.NewLedgerStore(db),
		GreenAPI: services.NewGreenAPIClient(cfg.GreenAPI.BaseURL, cfg.GreenAPI.Timeout),
		Registry: tasks.NewRegistry(),
	}

	// a nil *RedisCache must not end up inside the Locker interface
	var locker reminders.Locker
	if cfg.Redis.URL != "" {
		cache, err := services.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			logrus.WithError(err).Warn("Redis unavailable, reminder runs will not be locked across replicas")
		} else {
			a.Redis = cache
			locker = cache
		}
	}

	a.Dispatcher = reminders.NewDispatcher(a.Store, a.GreenAPI, locker, reminders.Options{
		Location:             cfg.Location,
		Phone:                PhoneNormalizer(cfg),
		MaxConcurrentTenants: cfg.Reminders.MaxConcurrentTenants,
		SendInterval:         cfg.Reminders.SendInterval,
		SendTimeout:          cfg.GreenAPI.Timeout,
		LockTTL:              cfg.Reminders.LockTTL,
	})

	tasks.DefineTasks(a.Registry, a.Dispatcher)
	a.Runner = tasks.NewRunner(a.Registry, services.NewTaskRunStore(db))

	return a, nil
}

// Close releases connections.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close Redis connection")
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
