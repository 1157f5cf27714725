package gesture

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wearsense/motioncue/internal/monitoring"
	"github.com/wearsense/motioncue/internal/timeutil"
)

// EngineConfig holds the tuning surface of the engine. All values are
// validated at construction; invalid values are a startup failure, never a
// runtime one.
type EngineConfig struct {
	Window             time.Duration
	PredictionInterval time.Duration
	MinSamples         int
	GravityOffset      float64

	Reflex      ReflexConfig
	Arbitration ArbitratorConfig

	// Classifier may be nil: the engine then runs in reflex-only mode and
	// the periodic path becomes a no-op.
	Classifier *GestureClassifier
}

// Engine owns the process-lifetime pipeline state: the sample buffer, the
// orientation estimate, and the cooldown map inside the arbitrator. One
// Engine instance is explicitly passed to the ingestion and timer callers;
// there are no package-level singletons.
type Engine struct {
	runID     string
	cfg       EngineConfig
	clock     timeutil.Clock
	buffer    *SampleBuffer
	orient    *OrientationTransformer
	reflex    *ReflexDetector
	extractor *FeatureExtractor
	arb       *Arbitrator

	// reflexMu serializes reflex evaluation: the detector keeps a short
	// vertical history and ingestion may be driven by more than one
	// transport.
	reflexMu sync.Mutex

	cycleRunning atomic.Bool
	coldStartLog sync.Once
	stats        engineStats
}

// NewEngine constructs an engine with an explicit clock and output sink.
func NewEngine(cfg EngineConfig, clock timeutil.Clock, sink ActionSink) *Engine {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if cfg.Window <= 0 {
		cfg.Window = 2500 * time.Millisecond
	}
	if cfg.PredictionInterval <= 0 {
		cfg.PredictionInterval = 500 * time.Millisecond
	}

	return &Engine{
		runID:     uuid.NewString(),
		cfg:       cfg,
		clock:     clock,
		buffer:    NewSampleBuffer(cfg.Window, clock),
		orient:    NewOrientationTransformer(cfg.GravityOffset),
		reflex:    NewReflexDetector(cfg.Reflex),
		extractor: NewFeatureExtractor(cfg.MinSamples),
		arb:       NewArbitrator(cfg.Arbitration, sink),
	}
}

// RunID identifies this engine instance for downstream recording.
func (e *Engine) RunID() string { return e.runID }

// ReflexOnly reports whether the engine runs without a loaded classifier.
func (e *Engine) ReflexOnly() bool { return e.cfg.Classifier == nil }

// Ingest processes one inbound sensor sample. It never blocks: out-of-order
// samples are dropped and counted, rotation samples replace the orientation
// estimate, and acceleration samples additionally run the reflex fast path.
func (e *Engine) Ingest(s SensorSample) {
	e.stats.samplesIngested.Add(1)

	if err := e.buffer.Push(s); err != nil {
		e.stats.outOfOrderDropped.Add(1)
		return
	}

	switch s.Kind {
	case KindRotation:
		if !e.orient.Update(s.Values[0], s.Values[1], s.Values[2], s.Values[3]) {
			e.stats.rotationsRejected.Add(1)
		}
	case KindAccel:
		e.evaluateReflex(s)
	}
}

func (e *Engine) evaluateReflex(s SensorSample) {
	if !e.orient.HasEstimate() {
		e.coldStartLog.Do(func() {
			monitoring.Logf("no orientation estimate yet, transform is identity until the first rotation sample")
		})
	}
	world := e.orient.ToWorld(Vec3{X: s.Values[0], Y: s.Values[1], Z: s.Values[2]})

	e.reflexMu.Lock()
	ev, ok := e.reflex.Evaluate(world, s.Timestamp)
	e.reflexMu.Unlock()
	if !ok {
		return
	}
	e.stats.reflexEvents.Add(1)
	e.arb.OfferReflex(ev)
}

// Run drives the periodic classification path until ctx is cancelled. In
// reflex-only mode it parks on the context instead of ticking. If a cycle
// overruns the interval the next tick is skipped rather than queued.
func (e *Engine) Run(ctx context.Context) error {
	if e.ReflexOnly() {
		monitoring.Logf("classifier not loaded, running reflex-only")
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := e.clock.NewTicker(e.cfg.PredictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C():
			e.RunClassificationCycle(now)
		}
	}
}

// RunClassificationCycle executes one slow-path evaluation: snapshot, batch
// transform, feature extraction, prediction, arbitration. A cycle either
// completes or is skipped entirely; per-cycle failures are absorbed and
// counted. Exported so a cooperative scheduler (or a test) can drive the
// cadence without the Run loop.
func (e *Engine) RunClassificationCycle(now time.Time) {
	if e.cfg.Classifier == nil {
		return
	}
	// Overrun guard: drop, don't queue.
	if !e.cycleRunning.CompareAndSwap(false, true) {
		e.stats.cyclesSkippedBusy.Add(1)
		return
	}
	defer e.cycleRunning.Store(false)

	ws, ok := e.snapshotWindow()
	if !ok {
		e.stats.cyclesSkippedData.Add(1)
		return
	}

	fv, err := e.extractor.Extract(ws)
	if err != nil {
		// Insufficient data is the expected startup/dropout case; either
		// way the cycle is skipped with no ML opinion.
		e.stats.cyclesSkippedData.Add(1)
		return
	}

	res, err := e.cfg.Classifier.Predict(fv, now)
	if err != nil {
		monitoring.Logf("prediction failed: %v", err)
		e.stats.cyclesSkippedData.Add(1)
		return
	}

	e.stats.cyclesRun.Add(1)
	e.arb.OfferClassification(res)
}

// snapshotWindow builds the feature extraction input from point-in-time
// buffer snapshots, rotating the acceleration series into the world frame
// under a single orientation estimate.
func (e *Engine) snapshotWindow() (WindowSnapshot, bool) {
	accel := e.buffer.Snapshot(KindAccel, e.cfg.Window)
	gyro := e.buffer.Snapshot(KindGyro, e.cfg.Window)
	if len(accel) == 0 || len(gyro) == 0 {
		return WindowSnapshot{}, false
	}

	body := make([]Vec3, len(accel))
	for i, s := range accel {
		body[i] = Vec3{X: s.Values[0], Y: s.Values[1], Z: s.Values[2]}
	}
	world := e.orient.ToWorldBatch(body)

	var ws WindowSnapshot
	for i, s := range accel {
		ws.Accel.Append(s.Timestamp, world[i].X, world[i].Y, world[i].Z)
	}
	for _, s := range gyro {
		ws.Gyro.Append(s.Timestamp, s.Values[0], s.Values[1], s.Values[2])
	}
	return ws, true
}

// Recent returns a copy of buffered samples of the given kind within d, for
// the recording layer.
func (e *Engine) Recent(kind SensorKind, d time.Duration) []SensorSample {
	return e.buffer.Snapshot(kind, d)
}

// Stats returns a snapshot of all engine counters, including arbitration.
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		SamplesIngested:   e.stats.samplesIngested.Load(),
		OutOfOrderDropped: e.stats.outOfOrderDropped.Load(),
		ReflexEvents:      e.stats.reflexEvents.Load(),
		CyclesRun:         e.stats.cyclesRun.Load(),
		CyclesSkippedData: e.stats.cyclesSkippedData.Load(),
		CyclesSkippedBusy: e.stats.cyclesSkippedBusy.Load(),
		RotationsRejected: e.stats.rotationsRejected.Load(),
		ActionsDispatched: e.arb.Dispatched(),
		ActionsSuppressed: e.arb.Suppressed(),
		ResultsDiscarded:  e.arb.Discarded(),
	}
}
