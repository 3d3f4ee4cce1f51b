package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
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
	sqlDB, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := sqlDB.Exec(`PRAGMA busy_timeout=5000;`).Error; err != nil {
		return nil, err
	}
	if err := sqlDB.Exec(`PRAGMA foreign_keys=ON;`).Error; err != nil {
		return nil, err
	}
	if err := sqlDB.Exec(`PRAGMA journal_mode=WAL;`).Error; err != nil {
		return nil, err
	}

	if err := migrate(sqlDB); err != nil {
		return nil, err
	}

	return sqlDB, nil
}

func openPostgres(databaseURL string) (*gorm.DB, error) {
	sqlDB, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := migrate(sqlDB); err != nil {
		return nil, err
	}

	return sqlDB, nil
}

func migrate(db *gorm.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS active_projects (
			project_id TEXT PRIMARY KEY,
			project_name TEXT NOT NULL,
			input_dir TEXT NOT NULL DEFAULT '',
			test_type TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL,
			progress INTEGER NOT NULL DEFAULT 0,
			number_of_samples INTEGER NOT NULL DEFAULT 0,
			start_time TEXT NOT NULL,
			session_id TEXT NOT NULL,
			script_path TEXT NOT NULL DEFAULT '',
			vcf_paths_json TEXT NOT NULL DEFAULT '[]'
		);`,
		// One running pipeline per email at any time; the completion
		// migration relies on this.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_active_projects_email ON active_projects(email);`,
		`CREATE INDEX IF NOT EXISTS idx_active_projects_session ON active_projects(session_id, email);`,

		`CREATE TABLE IF NOT EXISTS completed_projects (
			project_id TEXT PRIMARY KEY,
			project_name TEXT NOT NULL,
			email TEXT NOT NULL,
			number_of_samples INTEGER NOT NULL DEFAULT 0,
			start_time TEXT NOT NULL,
			creation_time TEXT NOT NULL,
			session_id TEXT NOT NULL,
			vcf_paths_json TEXT NOT NULL DEFAULT '[]'
		);`,
		`CREATE INDEX IF NOT EXISTS idx_completed_projects_email ON completed_projects(email);`,

		`CREATE TABLE IF NOT EXISTS usage_ledgers (
			email TEXT PRIMARY KEY,
			remaining INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS help_queries (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			subject TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_help_queries_email ON help_queries(email);`,
	}

	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
