// Package sqlite persists the coordination journal. Writes go through
// RetryOnDBLock because several serve processes may share one journal file.
package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/google/uuid"
	"github.com/mistakeknot/agentmail/internal/core"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("db path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := applySchema(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func NewInMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := applySchema(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) AppendEvent(ev core.Event) (uint64, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	var cursor int64
	err := RetryOnDBLock(func() error {
		res, err := s.db.Exec(
			`INSERT INTO events (id, type, project, agent, path_pattern, detail, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ev.ID, string(ev.Type), ev.Project, ev.Agent, ev.PathPattern, ev.Detail,
			ev.CreatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		cursor, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("cursor: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return uint64(cursor), nil
}

func (s *Store) RecentEvents(project string, limit int) ([]core.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT cursor, id, type, project, agent, path_pattern, detail, created_at FROM events`
	var args []any
	if project != "" {
		query += ` WHERE project = ?`
		args = append(args, project)
	}
	query += ` ORDER BY cursor DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []core.Event
	for rows.Next() {
		var ev core.Event
		var typ, createdAt string
		if err := rows.Scan(&ev.Cursor, &ev.ID, &typ, &ev.Project, &ev.Agent, &ev.PathPattern, &ev.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Type = core.EventType(typ)
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			ev.CreatedAt = t
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
