package gesture

import (
	"sync/atomic"

	"github.com/wearsense/motioncue/internal/monitoring"
)

// engineStats tracks engine-level counters. All fields are atomics so both
// the ingestion and the classification paths can update them without a lock.
type engineStats struct {
	samplesIngested   atomic.Uint64
	outOfOrderDropped atomic.Uint64
	reflexEvents      atomic.Uint64
	cyclesRun         atomic.Uint64
	cyclesSkippedData atomic.Uint64
	cyclesSkippedBusy atomic.Uint64
	rotationsRejected atomic.Uint64
}

// EngineStats is a point-in-time snapshot of engine counters.
type EngineStats struct {
	SamplesIngested   uint64
	OutOfOrderDropped uint64
	ReflexEvents      uint64
	CyclesRun         uint64
	CyclesSkippedData uint64
	CyclesSkippedBusy uint64
	RotationsRejected uint64
	ActionsDispatched uint64
	ActionsSuppressed uint64
	ResultsDiscarded  uint64
}

// LogStats writes the snapshot through the package logger.
func (s EngineStats) LogStats() {
	monitoring.Logf("engine stats: ingested=%d out_of_order=%d reflex=%d cycles=%d skipped_data=%d skipped_busy=%d rot_rejected=%d dispatched=%d suppressed=%d discarded=%d",
		s.SamplesIngested, s.OutOfOrderDropped, s.ReflexEvents,
		s.CyclesRun, s.CyclesSkippedData, s.CyclesSkippedBusy,
		s.RotationsRejected, s.ActionsDispatched, s.ActionsSuppressed,
		s.ResultsDiscarded)
}
