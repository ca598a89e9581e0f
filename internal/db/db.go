package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

type Config struct {
	Backend     Backend
	SQLitePath  string
	DatabaseURL string
}

func ParseBackend(raw string) (Backend, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return BackendSQLite, nil
	}
	switch raw {
	case "sqlite":
		return BackendSQLite, nil
	case "postgres", "postgresql", "pg":
		return BackendPostgres, nil
	default:
		return "", fmt.Errorf("unsupported db backend %q (expected sqlite or postgres)", raw)
	}
}

func Open(cfg Config) (*gorm.DB, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = BackendSQLite
	}
	switch backend {
	case BackendSQLite:
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			return nil, errors.New("sqlite path is required")
		}
		return openSQLite(cfg.SQLitePath)
	case BackendPostgres:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, errors.New("DATABASE_URL is required when DB_BACKEND=postgres")
		}
		return openPostgres(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported db backend %q", backend)
	}
}

func openSQLite(dbPath string) (*gorm.DB, error) {
	gormDB, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := gormDB.Exec(`PRAGMA busy_timeout=5000;`).Error; err != nil {
		return nil, err
	}
	if err := gormDB.Exec(`PRAGMA foreign_keys=ON;`).Error; err != nil {
		return nil, err
	}
	if err := gormDB.Exec(`PRAGMA journal_mode=WAL;`).Error; err != nil {
		return nil, err
	}

	if err := migrate(gormDB); err != nil {
		return nil, err
	}

	return gormDB, nil
}

func openPostgres(databaseURL string) (*gorm.DB, error) {
	gormDB, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := migrate(gormDB); err != nil {
		return nil, err
	}

	return gormDB, nil
}

func migrate(db *gorm.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS file_records (
			remote_id TEXT PRIMARY KEY,
			original_name TEXT NOT NULL,
			category TEXT NOT NULL,
			backup_path TEXT,
			size BIGINT NOT NULL,
			uploaded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_file_records_category ON file_records(category);`,
		`CREATE INDEX IF NOT EXISTS idx_file_records_uploaded_at ON file_records(uploaded_at);`,

		`CREATE TABLE IF NOT EXISTS stats_totals (
			id INTEGER PRIMARY KEY,
			total BIGINT NOT NULL DEFAULT 0,
			successful BIGINT NOT NULL DEFAULT 0,
			failed BIGINT NOT NULL DEFAULT 0,
			total_bytes BIGINT NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS stats_categories (
			category TEXT PRIMARY KEY,
			count BIGINT NOT NULL DEFAULT 0,
			bytes BIGINT NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS stats_days (
			day TEXT PRIMARY KEY,
			uploads BIGINT NOT NULL DEFAULT 0,
			successes BIGINT NOT NULL DEFAULT 0,
			failures BIGINT NOT NULL DEFAULT 0,
			bytes BIGINT NOT NULL DEFAULT 0
		);`,

		`CREATE TABLE IF NOT EXISTS migration_runs (
			id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			plan_path TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_migration_runs_state ON migration_runs(state);`,
	}

	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
