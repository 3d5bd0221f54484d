package services

import (
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rassrochka_app/internal/models"
)

// InitDB opens the ledger database with connection pooling
func InitDB(dsn string, level logrus.Level) (*gorm.DB, error) {
	logMode := logger.Warn
	if level >= logrus.DebugLevel {
		logMode = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// The dispatcher runs a handful of tenants at once; the API shares the pool.
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	logrus.Info("Database connection established")
	return db, nil
}

// AutoMigrate creates the record and task history tables
func AutoMigrate(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.Record{},
		&models.TaskRun{},
	)
	if err != nil {
		return err
	}

	logrus.Info("Database migrations completed")
	return nil
}
