package gesture

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wearsense/motioncue/internal/timeutil"
)

// ErrOutOfOrder is returned by Push when a sample is older than the newest
// sample already buffered for its kind. Out-of-order samples are dropped, not
// reordered: accepting them would break the non-decreasing timestamp
// invariant that snapshot consumers rely on. Callers that care about the loss
// should watch the OutOfOrderDropped counter.
var ErrOutOfOrder = errors.New("sample out of order")

// SampleBuffer keeps one time-bounded ordered sequence of samples per sensor
// kind. A single ingestion path appends; the reflex path reads the latest
// sample and the classifier path takes point-in-time snapshots. Snapshots are
// copies, so readers never observe a concurrent append.
type SampleBuffer struct {
	mu     sync.RWMutex
	window time.Duration
	byKind map[SensorKind][]SensorSample
	clock  timeutil.Clock

	outOfOrder atomic.Uint64
}

// NewSampleBuffer creates a buffer retaining samples no older than window.
func NewSampleBuffer(window time.Duration, clock timeutil.Clock) *SampleBuffer {
	if window <= 0 {
		window = 2500 * time.Millisecond
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &SampleBuffer{
		window: window,
		byKind: make(map[SensorKind][]SensorSample),
		clock:  clock,
	}
}

// Push appends a sample in timestamp order. Samples older than the newest
// buffered sample of the same kind are dropped with ErrOutOfOrder. Each push
// also evicts samples that have aged out of the window, so memory stays
// bounded by window duration times the sample rate.
func (b *SampleBuffer) Push(s SensorSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf := b.byKind[s.Kind]
	if n := len(buf); n > 0 && s.Timestamp.Before(buf[n-1].Timestamp) {
		b.outOfOrder.Add(1)
		return ErrOutOfOrder
	}
	buf = append(buf, s)

	// Lazy eviction against the newest timestamp. Compacting in place keeps
	// the backing array from growing past one window of samples.
	cutoff := s.Timestamp.Add(-b.window)
	idx := 0
	for idx < len(buf) && buf[idx].Timestamp.Before(cutoff) {
		idx++
	}
	if idx > 0 {
		n := copy(buf, buf[idx:])
		buf = buf[:n]
	}
	b.byKind[s.Kind] = buf
	return nil
}

// Snapshot returns a copy of all samples of the given kind whose age at call
// time is at most d, in non-decreasing timestamp order. It never blocks
// producers beyond the duration of the copy.
func (b *SampleBuffer) Snapshot(kind SensorKind, d time.Duration) []SensorSample {
	cutoff := b.clock.Now().Add(-d)

	b.mu.RLock()
	defer b.mu.RUnlock()

	buf := b.byKind[kind]
	idx := 0
	for idx < len(buf) && buf[idx].Timestamp.Before(cutoff) {
		idx++
	}
	if idx == len(buf) {
		return nil
	}
	out := make([]SensorSample, len(buf)-idx)
	copy(out, buf[idx:])
	return out
}

// Latest returns the most recent sample of the given kind, if any.
func (b *SampleBuffer) Latest(kind SensorKind) (SensorSample, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	buf := b.byKind[kind]
	if len(buf) == 0 {
		return SensorSample{}, false
	}
	return buf[len(buf)-1], true
}

// Len returns the number of currently buffered samples of the given kind.
func (b *SampleBuffer) Len(kind SensorKind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byKind[kind])
}

// OutOfOrderDropped returns the count of samples dropped for arriving out of
// timestamp order.
func (b *SampleBuffer) OutOfOrderDropped() uint64 {
	return b.outOfOrder.Load()
}

// Window returns the configured retention window.
func (b *SampleBuffer) Window() time.Duration {
	return b.window
}
