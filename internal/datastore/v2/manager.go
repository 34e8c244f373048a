// Package v2 opens and migrates the engine's relational store.
package v2

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
	"github.com/homeledger/incident-engine/internal/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Config describes how to reach the database.
type Config struct {
	Driver       string
	Path         string // sqlite file, ":memory:" allowed
	DSN          string // mysql and postgres
	MaxOpenConns int
	LogLevel     string // silent, error, warn, info
}

// Manager owns the gorm handle for the lifetime of the process.
type Manager struct {
	db     *gorm.DB
	driver string
}

// NewManager opens a connection for cfg.Driver.
func NewManager(cfg Config) (*Manager, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gorm_logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("driver", cfg.Driver).
			Build()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 || isSQLite(cfg.Driver) {
		// sqlite allows one writer; a single connection also keeps
		// in-memory databases coherent.
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return &Manager{db: db, driver: cfg.Driver}, nil
}

func isSQLite(driver string) bool {
	return driver == "" || strings.EqualFold(driver, DriverSQLite)
}

// NewSQLiteManager opens a file-backed sqlite database under dataDir.
func NewSQLiteManager(dataDir string) (*Manager, error) {
	return NewManager(Config{Driver: DriverSQLite, Path: filepath.Join(dataDir, "incidents.db"), LogLevel: "silent"})
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverSQLite, "":
		path := cfg.Path
		if path == "" {
			return nil, errors.Newf("sqlite path is required").
				Component("datastore").
				Category(errors.CategoryValidation).
				Build()
		}
		if path == ":memory:" {
			path = "file::memory:?cache=shared"
		} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return sqlite.Open(path + sep + "_foreign_keys=ON&_busy_timeout=5000"), nil
	case DriverMySQL:
		if cfg.DSN == "" {
			return nil, errMissingDSN(cfg.Driver)
		}
		return mysql.Open(cfg.DSN), nil
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, errMissingDSN(cfg.Driver)
		}
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, errors.Newf("unsupported database driver %q", cfg.Driver).
			Component("datastore").
			Category(errors.CategoryValidation).
			Context("driver", cfg.Driver).
			Build()
	}
}

func errMissingDSN(driver string) error {
	return errors.Newf("%s driver requires a dsn", driver).
		Component("datastore").
		Category(errors.CategoryValidation).
		Context("driver", driver).
		Build()
}

func gormLogLevel(level string) gorm_logger.LogLevel {
	switch strings.ToLower(level) {
	case "info":
		return gorm_logger.Info
	case "warn":
		return gorm_logger.Warn
	case "error":
		return gorm_logger.Error
	default:
		return gorm_logger.Silent
	}
}

// Initialize creates or updates the schema.
func (m *Manager) Initialize() error {
	if err := m.db.AutoMigrate(entities.All()...); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migrate").
			Build()
	}
	return nil
}

// DB returns the gorm handle.
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// Driver returns the configured driver name.
func (m *Manager) Driver() string {
	return m.driver
}

// Ping checks connectivity.
func (m *Manager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
