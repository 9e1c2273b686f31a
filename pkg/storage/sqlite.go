package storage

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stenoweb/steno/pkg/errors"
	"github.com/stenoweb/steno/pkg/event"
	"github.com/stenoweb/steno/pkg/session"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore is the durable SnapshotStore. Event trees are stored as a JSON
// column; everything queried by the list endpoint has its own column.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the snapshot database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorageWrite, "creating snapshot directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageWrite, "opening snapshot database")
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStorageWrite, "configuring snapshot database")
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStorageWrite, "applying snapshot schema")
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(snap session.Snapshot) error {
	events, err := json.Marshal(snap.Events)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageWrite, "encoding snapshot events")
	}

	var endedAt any
	if snap.EndedAt != nil {
		endedAt = snap.EndedAt.UTC().Format(time.RFC3339Nano)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO recordings
			(id, name, project_id, status, started_at, ended_at, duration_ms, event_count, max_event_count, events)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Name, snap.ProjectID, string(snap.Status),
		snap.StartedAt.UTC().Format(time.RFC3339Nano), endedAt,
		snap.DurationMS, snap.EventCount, snap.MaxEventCount, string(events))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageWrite, "saving snapshot "+snap.ID)
	}
	return nil
}

func (s *SQLiteStore) Load(id string) (session.Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT id, name, project_id, status, started_at, ended_at, duration_ms, event_count, max_event_count, events
		FROM recordings WHERE id = ?`, id)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return session.Snapshot{}, errors.New(errors.ErrCodeStorageRead, "snapshot not found: "+id)
	}
	if err != nil {
		return session.Snapshot{}, errors.Wrap(err, errors.ErrCodeStorageRead, "loading snapshot "+id)
	}
	return snap, nil
}

// List returns snapshots newest first.
func (s *SQLiteStore) List() ([]session.Snapshot, error) {
	rows, err := s.db.Query(`
		SELECT id, name, project_id, status, started_at, ended_at, duration_ms, event_count, max_event_count, events
		FROM recordings ORDER BY started_at DESC, id ASC`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "listing snapshots")
	}
	defer rows.Close()

	var out []session.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "decoding snapshot row")
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "listing snapshots")
	}
	return out, nil
}

func (s *SQLiteStore) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM recordings WHERE id = ?`, id); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageWrite, "deleting snapshot "+id)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (session.Snapshot, error) {
	var (
		snap      session.Snapshot
		status    string
		startedAt string
		endedAt   sql.NullString
		events    string
	)
	err := row.Scan(&snap.ID, &snap.Name, &snap.ProjectID, &status, &startedAt, &endedAt,
		&snap.DurationMS, &snap.EventCount, &snap.MaxEventCount, &events)
	if err != nil {
		return session.Snapshot{}, err
	}

	snap.Status = session.Status(status)
	if snap.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return session.Snapshot{}, err
	}
	if endedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, endedAt.String)
		if err != nil {
			return session.Snapshot{}, err
		}
		snap.EndedAt = &t
	}

	var tree []*event.Event
	if err := json.Unmarshal([]byte(events), &tree); err != nil {
		return session.Snapshot{}, err
	}
	snap.Events = tree
	return snap, nil
}
