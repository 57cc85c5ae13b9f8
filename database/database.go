package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"student-billing/internal/domain/billing"
	"student-billing/internal/domain/students"
)

// Open connects to Postgres and migrates every billing model.
func Open(dsn string, log *zap.Logger) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), Config())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	log.Info("✅ Connected and migrated successfully")
	return db, nil
}

// Config is shared by every dialect. TranslateError lets the store detect
// unique violations without driver-specific codes.
func Config() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// students
		&students.Student{},
		&students.SessionToken{},

		// charges
		&billing.Subscription{},
		&billing.MonthlyCharge{},
		&billing.Degree{},

		// money
		&billing.Payment{},
		&billing.Invoice{},
	)
}
