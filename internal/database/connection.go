package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Connect opens the store selected by dbType and creates the schema if it
// does not exist yet.
func Connect(dbType, dsn string) (*sqlx.DB, error) {
	var driver string
	switch dbType {
	case TypeSQLite, "":
		driver = "sqlite3"
		if err := ensureDataDir(dsn); err != nil {
			return nil, err
		}
	case TypePostgres:
		driver = "postgres"
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite3" {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		// SQLite doesn't support multiple writers. A single connection also
		// keeps an in-memory database alive for the life of the pool.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func ensureDataDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || strings.Contains(path, ":memory:") {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

type dialect struct {
	pk, bigint, real, ts string
}

var dialects = map[string]dialect{
	"sqlite3":  {pk: "INTEGER PRIMARY KEY AUTOINCREMENT", bigint: "INTEGER", real: "REAL", ts: "TIMESTAMP"},
	"postgres": {pk: "BIGSERIAL PRIMARY KEY", bigint: "BIGINT", real: "DOUBLE PRECISION", ts: "TIMESTAMPTZ"},
}

// schema is written once with type placeholders filled per driver. Every
// timestamp is stored in UTC.
var schema = []struct {
	name string
	ddl  string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id {{pk}},
			username TEXT NOT NULL DEFAULT '',
			telegram_chat_id {{bigint}} UNIQUE,
			notifications_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			created_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`},
	{"decks", `
		CREATE TABLE IF NOT EXISTS decks (
			id {{pk}},
			user_id {{bigint}} NOT NULL REFERENCES users(id),
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			is_public BOOLEAN NOT NULL DEFAULT FALSE,
			card_count INTEGER NOT NULL DEFAULT 0,
			created_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`},
	{"pods", `
		CREATE TABLE IF NOT EXISTS pods (
			id {{pk}},
			user_id {{bigint}} NOT NULL REFERENCES users(id),
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			is_public BOOLEAN NOT NULL DEFAULT FALSE,
			deck_count INTEGER NOT NULL DEFAULT 0,
			total_card_count INTEGER NOT NULL DEFAULT 0,
			created_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`},
	{"pod_decks", `
		CREATE TABLE IF NOT EXISTS pod_decks (
			id {{pk}},
			pod_id {{bigint}} NOT NULL REFERENCES pods(id),
			deck_id {{bigint}} NOT NULL REFERENCES decks(id),
			display_order INTEGER NOT NULL DEFAULT 0,
			added_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (pod_id, deck_id)
		)`},
	{"cards", `
		CREATE TABLE IF NOT EXISTS cards (
			id {{pk}},
			deck_id {{bigint}} NOT NULL REFERENCES decks(id),
			front_content TEXT NOT NULL,
			back_content TEXT NOT NULL,
			tags TEXT NOT NULL DEFAULT '',
			display_order INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`},
	{"study_sessions", `
		CREATE TABLE IF NOT EXISTS study_sessions (
			id {{pk}},
			user_id {{bigint}} NOT NULL REFERENCES users(id),
			deck_id {{bigint}} REFERENCES decks(id),
			pod_id {{bigint}} REFERENCES pods(id),
			started_at {{ts}} NOT NULL,
			ended_at {{ts}},
			paused_at {{ts}},
			total_paused_minutes INTEGER NOT NULL DEFAULT 0,
			cards_studied INTEGER NOT NULL DEFAULT 0,
			cards_correct INTEGER NOT NULL DEFAULT 0,
			session_type TEXT NOT NULL DEFAULT 'review',
			mode TEXT NOT NULL DEFAULT 'basic' CHECK (mode IN ('basic', 'simple-spaced', 'full-spaced')),
			CHECK ((deck_id IS NULL) <> (pod_id IS NULL))
		)`},
	{"card_reviews", `
		CREATE TABLE IF NOT EXISTS card_reviews (
			id {{pk}},
			card_id {{bigint}} NOT NULL REFERENCES cards(id),
			user_id {{bigint}} NOT NULL REFERENCES users(id),
			session_id {{bigint}} REFERENCES study_sessions(id),
			reviewed_at {{ts}} NOT NULL,
			response_quality INTEGER NOT NULL CHECK (response_quality BETWEEN 1 AND 5),
			response_time INTEGER,
			ease_factor {{real}} NOT NULL CHECK (ease_factor >= 1.3),
			interval_days INTEGER NOT NULL CHECK (interval_days >= 1),
			next_review_date {{ts}},
			repetitions INTEGER NOT NULL DEFAULT 0
		)`},
	{"telegram_link_codes", `
		CREATE TABLE IF NOT EXISTS telegram_link_codes (
			code TEXT PRIMARY KEY,
			user_id {{bigint}} NOT NULL REFERENCES users(id),
			expires_at {{ts}} NOT NULL,
			created_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`},
	{"ix_card_reviews_user_card", `
		CREATE INDEX IF NOT EXISTS ix_card_reviews_user_card
			ON card_reviews (user_id, card_id, reviewed_at)`},
	{"ix_cards_deck", `
		CREATE INDEX IF NOT EXISTS ix_cards_deck ON cards (deck_id, is_active)`},
	// At most one unfinished session per user and deck, and per user and pod.
	{"ux_study_sessions_active_deck", `
		CREATE UNIQUE INDEX IF NOT EXISTS ux_study_sessions_active_deck
			ON study_sessions (user_id, deck_id)
			WHERE ended_at IS NULL AND deck_id IS NOT NULL`},
	{"ux_study_sessions_active_pod", `
		CREATE UNIQUE INDEX IF NOT EXISTS ux_study_sessions_active_pod
			ON study_sessions (user_id, pod_id)
			WHERE ended_at IS NULL AND pod_id IS NOT NULL`},
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(db *sqlx.DB) error {
	d, ok := dialects[db.DriverName()]
	if !ok {
		return fmt.Errorf("no schema for driver %q", db.DriverName())
	}
	r := strings.NewReplacer("{{pk}}", d.pk, "{{bigint}}", d.bigint, "{{real}}", d.real, "{{ts}}", d.ts)
	for _, s := range schema {
		if _, err := db.Exec(r.Replace(s.ddl)); err != nil {
			return fmt.Errorf("failed to create %s: %w", s.name, err)
		}
	}
	return nil
}
