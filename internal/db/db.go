package db

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"zonesync/internal/config"
)

// Open opens a gorm handle for the configured driver and bounds the
// connection pool. The schema belongs to the administration layer, so no
// migration runs here.
func Open(cfg config.DBConfig, sqlDebug bool) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dial = postgres.Open(cfg.DSN)
	case "sqlite":
		dial = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	logLevel := logger.Silent
	if sqlDebug {
		logLevel = logger.Info
	}

	gdb, err := gorm.Open(dial, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return gdb, nil
}

// Connect opens the database with a bounded startup retry budget. The
// caller treats an error as fatal.
func Connect(cfg *config.Config, log *logrus.Logger) (*gorm.DB, error) {
	var lastErr error
	for i := 0; i < config.StartupRetries; i++ {
		gdb, err := Open(cfg.DB, cfg.Log.SQLDebug)
		if err == nil {
			log.Info("connected to record store")
			return gdb, nil
		}
		lastErr = err
		log.WithError(err).Warnf("failed to connect to record store (attempt %d/%d)", i+1, config.StartupRetries)
		time.Sleep(config.StartupRetryDelay)
	}
	return nil, fmt.Errorf("record store unreachable after %d attempts: %w", config.StartupRetries, lastErr)
}

// AutoMigrate creates the schema. Production databases are owned by the
// administration layer; this exists for sqlite deployments and tests.
func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&Domain{}, &Record{})
}

// Close releases the underlying connection pool.
func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
