package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/suPer8Hu/ai-assistant/internal/chat"
	"github.com/suPer8Hu/ai-assistant/internal/logger"
)

// Connect opens the database named by dsn. The driver is picked from the DSN
// shape: postgres URLs, MySQL URLs or go-sql-driver DSNs, and SQLite paths.
func Connect(dsn string, log *logger.Logger) (*gorm.DB, error) {
	dialector, driver, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	log.Info("Connecting to database", "driver", driver)
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// one writer keeps sqlite from reporting "database is locked"
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return gdb, nil
}

func dialectorFor(dsn string) (gorm.Dialector, string, error) {
	dsn = strings.TrimSpace(dsn)
	lower := strings.ToLower(dsn)
	switch {
	case dsn == "":
		return nil, "", fmt.Errorf("empty database dsn")
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return postgres.Open(dsn), "postgres", nil
	case strings.HasPrefix(lower, "mysql://"):
		return mysql.Open(dsn[len("mysql://"):]), "mysql", nil
	case strings.Contains(dsn, "@tcp("):
		return mysql.Open(dsn), "mysql", nil
	case strings.HasPrefix(lower, "sqlite://"):
		return sqlite.Open(dsn[len("sqlite://"):]), "sqlite", nil
	case strings.HasPrefix(lower, "file:"), strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"):
		return sqlite.Open(dsn), "sqlite", nil
	default:
		return nil, "", fmt.Errorf("unsupported database dsn")
	}
}

// Migrate creates missing tables. There is no versioned migration history.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&chat.Assistant{}, &chat.ChatLog{})
}
