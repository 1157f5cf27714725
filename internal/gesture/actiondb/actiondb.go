// Package actiondb persists the arbitrated action stream and labeled gesture
// recordings to sqlite, for offline inspection and classifier retraining
// data collection.
package actiondb

import (
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/wearsense/motioncue/internal/gesture"
)

//go:embed schema.sql
var schemaSQL string

// ActionDB wraps the sqlite handle for the action log and recording tables.
type ActionDB struct {
	*sql.DB
}

// New opens (creating if needed) the database at path and applies the schema.
func New(path string) (*ActionDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open action db: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply action db schema: %w", err)
	}
	return &ActionDB{db}, nil
}

// RecordAction appends one arbitrated action to the log.
func (a *ActionDB) RecordAction(runID string, act gesture.ArbitratedAction) error {
	_, err := a.Exec(
		`INSERT INTO actions (run_id, action, source, timestamp_ns) VALUES (?, ?, ?, ?)`,
		runID, string(act.Action), string(act.Source), act.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record action: %w", err)
	}
	return nil
}

// ActionCount returns how many actions were logged for a run.
func (a *ActionDB) ActionCount(runID string) (int, error) {
	var n int
	err := a.QueryRow(`SELECT COUNT(*) FROM actions WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count actions: %w", err)
	}
	return n, nil
}

// StartSession creates a recording session and returns its ID.
func (a *ActionDB) StartSession(notes string) (string, error) {
	id := uuid.NewString()
	if _, err := a.Exec(`INSERT INTO sessions (id, notes) VALUES (?, ?)`, id, notes); err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}
	return id, nil
}

// EndSession stamps the session end time.
func (a *ActionDB) EndSession(sessionID string) error {
	_, err := a.Exec(`UPDATE sessions SET ended_at = UNIXEPOCH('subsec') WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// SaveRecording stores one labeled gesture window with its raw samples and
// returns the recording ID. The insert is transactional so a crash cannot
// leave a recording without its samples.
func (a *ActionDB) SaveRecording(sessionID, action string, startNS, endNS int64, pressCount int, samples []gesture.SensorSample) (int64, error) {
	tx, err := a.Begin()
	if err != nil {
		return 0, fmt.Errorf("save recording: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO recordings (session_id, action, start_ns, end_ns, press_count, sample_count) VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, action, startNS, endNS, pressCount, len(samples),
	)
	if err != nil {
		return 0, fmt.Errorf("save recording: %w", err)
	}
	recID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save recording: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO recording_samples (recording_id, timestamp_ns, sensor, v0, v1, v2, v3) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("save recording: %w", err)
	}
	defer stmt.Close()

	for _, s := range samples {
		if _, err := stmt.Exec(recID, s.Timestamp.UnixNano(), string(s.Kind),
			s.Values[0], s.Values[1], s.Values[2], s.Values[3]); err != nil {
			return 0, fmt.Errorf("save recording sample: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("save recording: %w", err)
	}
	return recID, nil
}

// SessionActionCounts returns per-action recording counts for a session.
func (a *ActionDB) SessionActionCounts(sessionID string) (map[string]int, error) {
	rows, err := a.Query(
		`SELECT action, COUNT(*) FROM recordings WHERE session_id = ? GROUP BY action`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			return nil, fmt.Errorf("session counts: %w", err)
		}
		counts[action] = n
	}
	return counts, rows.Err()
}
