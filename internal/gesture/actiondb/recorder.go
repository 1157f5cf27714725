package actiondb

import (
	"sync"
	"time"

	"github.com/wearsense/motioncue/internal/gesture"
	"github.com/wearsense/motioncue/internal/monitoring"
)

// SampleSource provides recent buffered samples for a recording window.
type SampleSource interface {
	Recent(kind gesture.SensorKind, d time.Duration) []gesture.SensorSample
}

// Recorder turns start/end label events from the companion button app into
// persisted labeled recordings. Only one recording can be active at a time;
// a start while recording, or an end with a mismatched action, is ignored
// with a log line rather than corrupting the active window.
type Recorder struct {
	db        *ActionDB
	source    SampleSource
	sessionID string

	mu          sync.Mutex
	activeLabel string
	activeStart time.Time
}

// NewRecorder creates a recorder writing into an open session.
func NewRecorder(db *ActionDB, source SampleSource, sessionID string) *Recorder {
	return &Recorder{db: db, source: source, sessionID: sessionID}
}

// HandleLabelEvent processes one label event from the transport layer.
func (r *Recorder) HandleLabelEvent(action, event string, at time.Time, count int) {
	switch event {
	case "start":
		r.start(action, at)
	case "end":
		r.end(action, at, count)
	default:
		monitoring.Logf("recorder: unknown label event %q for %q", event, action)
	}
}

func (r *Recorder) start(action string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.activeLabel != "" {
		monitoring.Logf("recorder: already recording %q, ignoring start for %q", r.activeLabel, action)
		return
	}
	r.activeLabel = action
	r.activeStart = at
	monitoring.Logf("recorder: recording %q", action)
}

func (r *Recorder) end(action string, at time.Time, count int) {
	r.mu.Lock()
	if r.activeLabel == "" {
		r.mu.Unlock()
		monitoring.Logf("recorder: no active recording to end")
		return
	}
	if r.activeLabel != action {
		r.mu.Unlock()
		monitoring.Logf("recorder: recording %q but got end for %q, ignoring", r.activeLabel, action)
		return
	}
	start := r.activeStart
	r.activeLabel = ""
	r.mu.Unlock()

	// Pull everything still in the window and keep the [start, end] slice.
	lookback := at.Sub(start) + 500*time.Millisecond
	var samples []gesture.SensorSample
	for _, kind := range []gesture.SensorKind{gesture.KindAccel, gesture.KindGyro, gesture.KindRotation} {
		for _, s := range r.source.Recent(kind, lookback) {
			if !s.Timestamp.Before(start) && !s.Timestamp.After(at) {
				samples = append(samples, s)
			}
		}
	}

	recID, err := r.db.SaveRecording(r.sessionID, action, start.UnixNano(), at.UnixNano(), count, samples)
	if err != nil {
		monitoring.Logf("recorder: failed to save %q recording: %v", action, err)
		return
	}
	monitoring.Logf("recorder: saved %q (%.2fs, %d samples) as recording %d",
		action, at.Sub(start).Seconds(), len(samples), recID)
}

// Active returns the label currently being recorded, if any.
func (r *Recorder) Active() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeLabel, r.activeLabel != ""
}
