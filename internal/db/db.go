// Package db opens the gorm connection and applies migrations.
package db

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/invoice-totals/internal/config"
	"github.com/diewo77/invoice-totals/internal/models"
)

const connectAttempts = 5

var connectBackoff = 2 * time.Second

// Open connects with the configured driver, retrying to give Postgres time to start.
func Open(cfg config.DatabaseConfig, log logrus.FieldLogger) (*gorm.DB, error) {
	dialector, dsn, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	var conn *gorm.DB
	for i := 1; i <= connectAttempts; i++ {
		conn, err = gorm.Open(dialector, gormCfg)
		if err == nil {
			break
		}
		log.WithError(err).
			WithField("dsn", Redact(dsn)).
			Warnf("database connection attempt %d/%d failed", i, connectAttempts)
		if i < connectAttempts {
			time.Sleep(connectBackoff)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	if cfg.Driver == "postgres" {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}
	return conn, nil
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, string, error) {
	switch cfg.Driver {
	case "postgres", "":
		dsn := NormalizeDSN(cfg.DSN())
		return postgres.Open(dsn), dsn, nil
	case "sqlite":
		dsn := cfg.DSNRaw
		if dsn == "" {
			dsn = cfg.DBName
		}
		return sqlite.Open(dsn), dsn, nil
	}
	return nil, "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// Migrate runs AutoMigrate for all models.
// Call this at application startup or as part of a migration step.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Client{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.CreditNote{},
		&models.CreditNoteItem{},
	)
}
