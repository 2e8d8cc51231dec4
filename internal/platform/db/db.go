// Package db opens the module's storage connection, adapted from the
// teacher's db.PostgresService: same GORM config shape (slow-query
// threshold, ignore record-not-found spam so polling workers don't flood
// logs), generalized to also accept a sqlite:// DSN for local/dev use
// since this module supports both drivers.
package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/contentloom/storyforge/internal/domain"
	"github.com/contentloom/storyforge/internal/platform/logger"
)

// Open connects to dsn, picking the sqlite driver for a "sqlite://" or
// file-path-looking DSN and the postgres driver otherwise.
func Open(dsn string, baseLog *logger.Logger) (*gorm.DB, error) {
	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	cfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	}

	if isSQLite(dsn) {
		path := strings.TrimPrefix(dsn, "sqlite://")
		gdb, err := gorm.Open(sqlite.Open(path), cfg)
		if err != nil {
			return nil, fmt.Errorf("db: open sqlite: %w", err)
		}
		baseLog.Info("connected to sqlite", "path", path)
		return gdb, nil
	}

	gdb, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("db: open postgres: %w", err)
	}
	baseLog.Info("connected to postgres")
	return gdb, nil
}

func isSQLite(dsn string) bool {
	return strings.HasPrefix(dsn, "sqlite://") || strings.HasSuffix(dsn, ".db") || strings.HasSuffix(dsn, ".sqlite")
}

// AutoMigrate creates/updates the four core tables.
func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&domain.Story{},
		&domain.Title{},
		&domain.Content{},
		&domain.Review{},
	)
}
