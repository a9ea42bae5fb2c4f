package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gcpanel/internal/model"
)

const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"

	connectAttempts = 10
	connectBackoff  = 2 * time.Second
)

// Options selects the database backend.
type Options struct {
	Driver string
	// Path is the sqlite database file. Ignored by the other drivers.
	Path string
	DSN  string
}

// Open returns a connected GORM DB instance for the configured driver.
// Network drivers are retried while the database comes up.
func Open(ctx context.Context, opts Options) (*gorm.DB, error) {
	dialector, err := dialectorFor(opts)
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}

	attempts := connectAttempts
	if opts.Driver == DriverSQLite || opts.Driver == "" {
		attempts = 1
	}

	var gdb *gorm.DB
	for i := 1; i <= attempts; i++ {
		gdb, err = gorm.Open(dialector, gormCfg)
		if err == nil {
			break
		}
		slog.Warn("database connect failed", slog.String("driver", opts.Driver), slog.Int("attempt", i), slog.Any("error", err))
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectBackoff):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", opts.Driver, err)
	}

	if opts.Driver == DriverSQLite || opts.Driver == "" {
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	}
	return gdb, nil
}

func dialectorFor(opts Options) (gorm.Dialector, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		path := opts.Path
		if path == "" {
			path = "gcpanel.db"
		}
		return sqlite.Open(sqliteDSN(path)), nil
	case DriverMySQL:
		if opts.DSN == "" {
			return nil, fmt.Errorf("DB_DSN is required for %s", opts.Driver)
		}
		return mysql.Open(opts.DSN), nil
	case DriverPostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("DB_DSN is required for %s", opts.Driver)
		}
		return postgres.Open(opts.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", opts.Driver)
	}
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_foreign_keys=on&_busy_timeout=5000"
}

// Migrate creates or updates the schema for every model.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Reset drops every table. Used by RESET_DB=true.
func Reset(gdb *gorm.DB) error {
	for _, join := range []string{"user_roles", "project_team_members"} {
		if err := gdb.Migrator().DropTable(join); err != nil {
			return fmt.Errorf("drop %s: %w", join, err)
		}
	}
	// dependents first
	tables := model.All()
	for i := len(tables) - 1; i >= 0; i-- {
		if err := gdb.Migrator().DropTable(tables[i]); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	return nil
}
