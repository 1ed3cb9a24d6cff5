package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB, tunes the pool, and ensures the schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:gradebook.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/gradebook?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	switch driver {
	case DriverSQLite:
		// SQLite should not use many concurrent writers; keep pool small.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	default:
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, `
			PRAGMA foreign_keys = ON;
			PRAGMA busy_timeout = 5000;
		`); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite pragmas: %w", err)
		}
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

// The scores table mirrors the record shape: an explicit course_score flag
// plus nullable period/group references. The three partial unique indexes are
// the authoritative uniqueness guarantee — one live score per enrollment and
// scope, with soft-deleted rows (deleted_at set) out of play. The course index
// keys on "both refs null" so it covers deployments with and without the
// explicit flag.

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('student','teacher','admin')),
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS courses (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  grading_standard_enabled INTEGER NOT NULL DEFAULT 0,
  grading_scheme TEXT NOT NULL DEFAULT '',
  hide_final_grades INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS enrollments (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('student','teacher','ta'))
);

CREATE TABLE IF NOT EXISTS grading_periods (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  title TEXT NOT NULL,
  start_at INTEGER,
  end_at INTEGER
);

CREATE TABLE IF NOT EXISTS assignment_groups (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  group_weight REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS scores (
  id TEXT PRIMARY KEY,
  enrollment_id TEXT NOT NULL REFERENCES enrollments(id) ON DELETE CASCADE,
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  course_score INTEGER NOT NULL DEFAULT 0,
  grading_period_id TEXT REFERENCES grading_periods(id),
  assignment_group_id TEXT REFERENCES assignment_groups(id),
  current_score REAL,
  final_score REAL,
  override_score REAL,
  unposted_current_score REAL,
  unposted_final_score REAL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  deleted_at INTEGER
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_scores_course
  ON scores (enrollment_id)
  WHERE grading_period_id IS NULL AND assignment_group_id IS NULL AND deleted_at IS NULL;
CREATE UNIQUE INDEX IF NOT EXISTS uq_scores_grading_period
  ON scores (enrollment_id, grading_period_id)
  WHERE grading_period_id IS NOT NULL AND deleted_at IS NULL;
CREATE UNIQUE INDEX IF NOT EXISTS uq_scores_assignment_group
  ON scores (enrollment_id, assignment_group_id)
  WHERE assignment_group_id IS NOT NULL AND deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS score_audit_log (
  "offset" INTEGER PRIMARY KEY AUTOINCREMENT, -- BIGSERIAL in Postgres
  score_id TEXT NOT NULL,
  action TEXT NOT NULL,                      -- create|update|restore|delete
  actor TEXT NOT NULL DEFAULT '',
  data TEXT NOT NULL,                        -- JSON payload
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('student','teacher','admin')),
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS courses (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  grading_standard_enabled BOOLEAN NOT NULL DEFAULT FALSE,
  grading_scheme TEXT NOT NULL DEFAULT '',
  hide_final_grades BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS enrollments (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('student','teacher','ta'))
);

CREATE TABLE IF NOT EXISTS grading_periods (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  title TEXT NOT NULL,
  start_at BIGINT,
  end_at BIGINT
);

CREATE TABLE IF NOT EXISTS assignment_groups (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  group_weight DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS scores (
  id TEXT PRIMARY KEY,
  enrollment_id TEXT NOT NULL REFERENCES enrollments(id) ON DELETE CASCADE,
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  course_score BOOLEAN NOT NULL DEFAULT FALSE,
  grading_period_id TEXT REFERENCES grading_periods(id),
  assignment_group_id TEXT REFERENCES assignment_groups(id),
  current_score DOUBLE PRECISION,
  final_score DOUBLE PRECISION,
  override_score DOUBLE PRECISION,
  unposted_current_score DOUBLE PRECISION,
  unposted_final_score DOUBLE PRECISION,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL,
  deleted_at BIGINT
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_scores_course
  ON scores (enrollment_id)
  WHERE grading_period_id IS NULL AND assignment_group_id IS NULL AND deleted_at IS NULL;
CREATE UNIQUE INDEX IF NOT EXISTS uq_scores_grading_period
  ON scores (enrollment_id, grading_period_id)
  WHERE grading_period_id IS NOT NULL AND deleted_at IS NULL;
CREATE UNIQUE INDEX IF NOT EXISTS uq_scores_assignment_group
  ON scores (enrollment_id, assignment_group_id)
  WHERE assignment_group_id IS NOT NULL AND deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS score_audit_log (
  "offset" BIGSERIAL PRIMARY KEY,
  score_id TEXT NOT NULL,
  action TEXT NOT NULL,
  actor TEXT NOT NULL DEFAULT '',
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
