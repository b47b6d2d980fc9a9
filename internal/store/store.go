// Package store persists a per-session debugging transcript — break
// locations, breakpoints set, commands issued — to a small sqlite database
// so a later `ldbg history` can answer "what did I do last session".
package store

import (
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		var applied int
		err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", f).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", f, err)
		}
		if applied > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for %s: %w", f, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", f); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", f, err)
		}
	}
	return nil
}

// Session is one controller run against one debuggee.
type Session struct {
	ID        string
	Addr      string
	Pid       int
	StartedAt time.Time
}

// Event is one recorded transcript entry. Kind is "break", "command" or
// "breakpoint"; Detail is the rendered location or command line.
type Event struct {
	ID        int64
	SessionID string
	Kind      string
	Detail    string
	At        time.Time
}

// BeginSession records a new session and returns its id.
func (s *Store) BeginSession(addr string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		"INSERT INTO sessions (id, addr, started_at) VALUES (?, ?, ?)",
		id, addr, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("begin session: %w", err)
	}
	return id, nil
}

// SetSessionPid stores the debuggee pid once the first BR message reports
// it.
func (s *Store) SetSessionPid(id string, pid int) error {
	_, err := s.db.Exec("UPDATE sessions SET pid = ? WHERE id = ?", pid, id)
	if err != nil {
		return fmt.Errorf("set session pid: %w", err)
	}
	return nil
}

// Record appends one transcript event.
func (s *Store) Record(sessionID, kind, detail string) error {
	_, err := s.db.Exec(
		"INSERT INTO events (session_id, kind, detail, at) VALUES (?, ?, ?, ?)",
		sessionID, kind, detail, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// LastSession returns the most recently started session, or ok=false if
// the database has none.
func (s *Store) LastSession() (Session, bool, error) {
	var sess Session
	var pid sql.NullInt64
	err := s.db.QueryRow(
		"SELECT id, addr, pid, started_at FROM sessions ORDER BY started_at DESC, rowid DESC LIMIT 1",
	).Scan(&sess.ID, &sess.Addr, &pid, &sess.StartedAt)
	if err == sql.ErrNoRows {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("last session: %w", err)
	}
	sess.Pid = int(pid.Int64)
	return sess, true, nil
}

// Events returns a session's transcript in recording order.
func (s *Store) Events(sessionID string) ([]Event, error) {
	rows, err := s.db.Query(
		"SELECT id, session_id, kind, detail, at FROM events WHERE session_id = ? ORDER BY id",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &e.Detail, &e.At); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
