package actiondb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wearsense/motioncue/internal/security"
)

// ExportedRecording is the on-disk form of one labeled gesture window, the
// input format for classifier training.
type ExportedRecording struct {
	RecordingID int64            `json:"recording_id"`
	SessionID   string           `json:"session_id"`
	Action      string           `json:"action"`
	StartNS     int64            `json:"start_ns"`
	EndNS       int64            `json:"end_ns"`
	PressCount  int              `json:"press_count"`
	Samples     []ExportedSample `json:"samples"`
}

// ExportedSample is one raw sensor reading inside an exported recording.
type ExportedSample struct {
	Sensor      string    `json:"sensor"`
	TimestampNS int64     `json:"timestamp_ns"`
	Values      []float64 `json:"values"`
}

// ExportSession writes every recording of a session into outDir as one JSON
// file per recording, named <action>_<id>.json. Action labels arrived over
// the wire, so they are sanitized and the final path is validated before
// anything is written. Returns the number of files written.
func (a *ActionDB) ExportSession(sessionID, outDir string) (int, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, fmt.Errorf("export session: %w", err)
	}

	rows, err := a.Query(
		`SELECT id, action, start_ns, end_ns, press_count FROM recordings WHERE session_id = ? ORDER BY id`,
		sessionID)
	if err != nil {
		return 0, fmt.Errorf("export session: %w", err)
	}
	defer rows.Close()

	var recs []ExportedRecording
	for rows.Next() {
		rec := ExportedRecording{SessionID: sessionID}
		if err := rows.Scan(&rec.RecordingID, &rec.Action, &rec.StartNS, &rec.EndNS, &rec.PressCount); err != nil {
			return 0, fmt.Errorf("export session: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("export session: %w", err)
	}

	written := 0
	for i := range recs {
		if err := a.loadSamples(&recs[i]); err != nil {
			return written, err
		}
		if err := writeRecording(outDir, recs[i]); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func (a *ActionDB) loadSamples(rec *ExportedRecording) error {
	rows, err := a.Query(
		`SELECT sensor, timestamp_ns, v0, v1, v2, v3 FROM recording_samples WHERE recording_id = ? ORDER BY timestamp_ns`,
		rec.RecordingID)
	if err != nil {
		return fmt.Errorf("export recording %d: %w", rec.RecordingID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var s ExportedSample
		var v [4]float64
		if err := rows.Scan(&s.Sensor, &s.TimestampNS, &v[0], &v[1], &v[2], &v[3]); err != nil {
			return fmt.Errorf("export recording %d: %w", rec.RecordingID, err)
		}
		s.Values = sensorValues(s.Sensor, v)
		rec.Samples = append(rec.Samples, s)
	}
	return rows.Err()
}

// sensorValues trims the fixed-width value columns back to the sensor's arity.
func sensorValues(sensor string, v [4]float64) []float64 {
	switch sensor {
	case "rotation":
		return v[:]
	case "step":
		return v[:1]
	default:
		return v[:3]
	}
}

func writeRecording(outDir string, rec ExportedRecording) error {
	name := fmt.Sprintf("%s_%d.json", security.SanitizeFilename(rec.Action), rec.RecordingID)
	path := filepath.Join(outDir, name)
	if err := security.ValidatePathWithinDirectory(path, outDir); err != nil {
		return fmt.Errorf("export recording %d: %w", rec.RecordingID, err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("export recording %d: %w", rec.RecordingID, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("export recording %d: %w", rec.RecordingID, err)
	}
	return nil
}

// Sessions lists all session IDs in creation order.
func (a *ActionDB) Sessions() ([]string, error) {
	rows, err := a.Query(`SELECT id FROM sessions ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
