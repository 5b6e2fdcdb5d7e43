// Package activity keeps a journal of admin edits in SQLite.
package activity

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pbaille/folio/internal/domain"
)

//go:embed schema.sql
var schema string

// Log handles database operations
type Log struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the journal at dbPath.
func Open(dbPath string) (*Log, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Log{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (l *Log) Close() error {
	return l.db.Close()
}

// Record appends an entry and returns it.
func (l *Log) Record(kind, key, action string) (*domain.Activity, error) {
	id := uuid.New().String()
	now := l.now().UTC()

	_, err := l.db.Exec(
		"INSERT INTO activity (id, kind, key, action, created_at) VALUES (?, ?, ?, ?, ?)",
		id, kind, key, action, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert activity: %w", err)
	}

	return &domain.Activity{
		ID:        id,
		Kind:      kind,
		Key:       key,
		Action:    action,
		CreatedAt: now,
	}, nil
}

// Recent returns the newest entries first.
func (l *Log) Recent(limit int) ([]domain.Activity, error) {
	rows, err := l.db.Query(
		"SELECT id, kind, key, action, created_at FROM activity ORDER BY created_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return scanAll(rows)
}

// History returns every entry for one document, newest first.
func (l *Log) History(kind, key string) ([]domain.Activity, error) {
	rows, err := l.db.Query(
		"SELECT id, kind, key, action, created_at FROM activity WHERE kind = ? AND key = ? ORDER BY created_at DESC, rowid DESC",
		kind, key,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return scanAll(rows)
}

func scanAll(rows *sql.Rows) ([]domain.Activity, error) {
	defer rows.Close()

	entries := []domain.Activity{}
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.Kind, &a.Key, &a.Action, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		entries = append(entries, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}

	return entries, nil
}
