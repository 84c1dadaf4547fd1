package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/pavelanni/lesspaper/internal/accesscode"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// codeAttempts bounds the access code allocation retry loop.
const codeAttempts = 10

const schemaVersion = "1"

type Store struct {
	db      *sql.DB
	driver  string
	sb      sq.StatementBuilderType
	newCode accesscode.Generator
	now     func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithCodeGenerator replaces the random access code generator.
func WithCodeGenerator(g accesscode.Generator) Option {
	return func(s *Store) { s.newCode = g }
}

// WithClock replaces the clock used for submitted_at and created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New opens the database and applies the schema. For sqlite dsn is a file path
// or ":memory:"; for postgres it is a connection string.
func New(driver, dsn string, opts ...Option) (*Store, error) {
	var (
		db  *sql.DB
		err error
		ph  sq.PlaceholderFormat
	)
	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		db, err = sql.Open("sqlite", sqliteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		// One connection keeps :memory: databases shared and serializes writers.
		db.SetMaxOpenConns(1)
		ph = sq.Question
	case DriverPostgres:
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		ph = sq.Dollar
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{
		db:      db,
		driver:  driver,
		sb:      sq.StatementBuilder.PlaceholderFormat(ph).RunWith(db),
		newCode: accesscode.Random,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	slog.Debug("store ready", "driver", driver)
	return s, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Driver reports the database driver in use.
func (s *Store) Driver() string {
	return s.driver
}

func (s *Store) migrate() error {
	stmts := sqliteSchema
	if s.driver == DriverPostgres {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return s.SetMetadata("schema_version", schemaVersion)
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS instructors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		instructor_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (instructor_id) REFERENCES instructors(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS exams (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		instructor_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		time_limit INTEGER NOT NULL,
		code TEXT NOT NULL UNIQUE,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (instructor_id) REFERENCES instructors(id)
	)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		question_type TEXT NOT NULL,
		text TEXT NOT NULL,
		options_json TEXT NOT NULL DEFAULT '',
		correct_answer TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		starter_code TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (exam_id) REFERENCES exams(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id INTEGER NOT NULL,
		student_name TEXT NOT NULL,
		submitted_at DATETIME NOT NULL,
		FOREIGN KEY (exam_id) REFERENCES exams(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS answers (
		submission_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		answer_text TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (submission_id, question_id),
		FOREIGN KEY (submission_id) REFERENCES submissions(id) ON DELETE CASCADE,
		FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_exam ON questions(exam_id, position)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_exam ON submissions(exam_id, submitted_at)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS instructors (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		instructor_id BIGINT NOT NULL REFERENCES instructors(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS exams (
		id BIGSERIAL PRIMARY KEY,
		instructor_id BIGINT NOT NULL REFERENCES instructors(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		time_limit INTEGER NOT NULL,
		code TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id BIGSERIAL PRIMARY KEY,
		exam_id BIGINT NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		question_type TEXT NOT NULL,
		text TEXT NOT NULL,
		options_json TEXT NOT NULL DEFAULT '',
		correct_answer TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		starter_code TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS submissions (
		id BIGSERIAL PRIMARY KEY,
		exam_id BIGINT NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
		student_name TEXT NOT NULL,
		submitted_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS answers (
		submission_id BIGINT NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
		question_id BIGINT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
		answer_text TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (submission_id, question_id)
	)`,
	`CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_exam ON questions(exam_id, position)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_exam ON submissions(exam_id, submitted_at)`,
}
