package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"agenda/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the default on-disk backend.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			date TEXT DEFAULT '',
			time TEXT DEFAULT '',
			category TEXT NOT NULL,
			details TEXT DEFAULT '',
			completed INTEGER DEFAULT 0,
			repeat_id INTEGER DEFAULT 0,
			repeat_type TEXT DEFAULT '',
			is_repeat_instance INTEGER DEFAULT 0,
			original_repeat_id INTEGER DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_date ON events(date)`,
		`CREATE INDEX IF NOT EXISTS idx_events_repeat_id ON events(repeat_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_category ON events(category)`,
		`CREATE INDEX IF NOT EXISTS idx_events_completed ON events(completed)`,
		// Settings table holds the monotonic series counter.
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		)`,
		`INSERT OR IGNORE INTO settings (key, value) VALUES ('lastRepeatId', 0)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}

const eventColumns = `id, title, date, time, category, details, completed, repeat_id, repeat_type, is_repeat_instance, original_repeat_id, created_at, updated_at`

func (s *SQLite) Insert(e *domain.Event) error {
	now := time.Now()
	res, err := s.db.Exec(
		`INSERT INTO events (title, date, time, category, details, completed, repeat_id, repeat_type, is_repeat_instance, original_repeat_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.Date, e.Time, e.Category, e.Details, e.Completed,
		e.RepeatID, e.RepeatType, e.IsRepeatInstance, e.OriginalRepeatID, now, now,
	)
	if err != nil {
		return &domain.PersistenceError{Op: "insert event", Err: err}
	}
	id, _ := res.LastInsertId()
	e.ID = id
	e.CreatedAt = now
	e.UpdatedAt = now
	return nil
}

func (s *SQLite) Get(id int64) (*domain.Event, error) {
	e := &domain.Event{}
	err := s.db.QueryRow(
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id,
	).Scan(&e.ID, &e.Title, &e.Date, &e.Time, &e.Category, &e.Details, &e.Completed,
		&e.RepeatID, &e.RepeatType, &e.IsRepeatInstance, &e.OriginalRepeatID, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "get event", Err: err}
	}
	return e, nil
}

func (s *SQLite) Put(e *domain.Event) error {
	_, err := s.db.Exec(
		`UPDATE events SET title = ?, date = ?, time = ?, category = ?, details = ?, completed = ?,
		 repeat_id = ?, repeat_type = ?, is_repeat_instance = ?, original_repeat_id = ?, updated_at = ?
		 WHERE id = ?`,
		e.Title, e.Date, e.Time, e.Category, e.Details, e.Completed,
		e.RepeatID, e.RepeatType, e.IsRepeatInstance, e.OriginalRepeatID, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return &domain.PersistenceError{Op: "update event", Err: err}
	}
	return nil
}

func (s *SQLite) Delete(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM events WHERE id = ?`, id); err != nil {
		return &domain.PersistenceError{Op: "delete event", Err: err}
	}
	return nil
}

func (s *SQLite) All() ([]*domain.Event, error) {
	rows, err := s.db.Query(`SELECT ` + eventColumns + ` FROM events ORDER BY id`)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "load events", Err: err}
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		e := &domain.Event{}
		if err := rows.Scan(&e.ID, &e.Title, &e.Date, &e.Time, &e.Category, &e.Details, &e.Completed,
			&e.RepeatID, &e.RepeatType, &e.IsRepeatInstance, &e.OriginalRepeatID, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, &domain.PersistenceError{Op: "scan event", Err: err}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "load events", Err: err}
	}
	return events, nil
}

func (s *SQLite) DeleteByRepeatID(repeatID int64, fromDate string) ([]int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, &domain.PersistenceError{Op: "batch delete", Err: err}
	}
	defer tx.Rollback()

	query := `SELECT id FROM events WHERE repeat_id = ?`
	args := []any{repeatID}
	if fromDate != "" {
		query += ` AND date >= ?`
		args = append(args, fromDate)
	}

	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "batch delete scan", Err: err}
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, &domain.PersistenceError{Op: "batch delete scan", Err: err}
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, &domain.PersistenceError{Op: "batch delete scan", Err: err}
	}
	rows.Close()

	del := `DELETE FROM events WHERE repeat_id = ?`
	if fromDate != "" {
		del += ` AND date >= ?`
	}
	if _, err := tx.Exec(del, args...); err != nil {
		return nil, &domain.PersistenceError{Op: "batch delete", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &domain.PersistenceError{Op: "batch delete", Err: err}
	}
	return ids, nil
}

func (s *SQLite) NextRepeatID() (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, &domain.PersistenceError{Op: "allocate repeat id", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE settings SET value = value + 1 WHERE key = 'lastRepeatId'`); err != nil {
		return 0, &domain.PersistenceError{Op: "allocate repeat id", Err: err}
	}
	var next int64
	if err := tx.QueryRow(`SELECT value FROM settings WHERE key = 'lastRepeatId'`).Scan(&next); err != nil {
		return 0, &domain.PersistenceError{Op: "allocate repeat id", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return 0, &domain.PersistenceError{Op: "allocate repeat id", Err: err}
	}
	return next, nil
}
