package gesture

import (
	"math"
	"time"
)

// Default reflex thresholds (m/s², net of gravity).
const (
	DefaultJumpThreshold      = 15.0
	DefaultAttackThreshold    = 12.0
	DefaultStabilityThreshold = 5.0
)

// stabilityHistoryLen is how many recent vertical readings the attack
// stability guard inspects. At 50 Hz this is a 60 ms lookback.
const stabilityHistoryLen = 3

// ReflexConfig holds the threshold parameters of the reflex layer.
type ReflexConfig struct {
	JumpThreshold      float64
	AttackThreshold    float64
	StabilityThreshold float64
}

// DefaultReflexConfig returns the standard thresholds.
func DefaultReflexConfig() ReflexConfig {
	return ReflexConfig{
		JumpThreshold:      DefaultJumpThreshold,
		AttackThreshold:    DefaultAttackThreshold,
		StabilityThreshold: DefaultStabilityThreshold,
	}
}

// ReflexDetector evaluates per-sample thresholds on world-frame acceleration.
// The decision is a pure function of the current sample and the short
// vertical history kept for the attack stability guard; evaluation is O(1)
// per sample.
type ReflexDetector struct {
	cfg ReflexConfig

	// Ring of recent |world Z| values for the stability check.
	recentZ [stabilityHistoryLen]float64
	zPos    int
	zCount  int
}

// NewReflexDetector creates a detector with the given thresholds.
func NewReflexDetector(cfg ReflexConfig) *ReflexDetector {
	return &ReflexDetector{cfg: cfg}
}

// Evaluate inspects one world-frame acceleration sample and reports at most
// one candidate event. A jump takes priority over an attack within a single
// sample: a sharp vertical spike must not also read as a strike. The attack
// path additionally requires that vertical motion stayed below the stability
// threshold over the recent history, guarding against jump/attack
// cross-triggering on one sharp motion.
func (d *ReflexDetector) Evaluate(world Vec3, ts time.Time) (ReflexEvent, bool) {
	absZ := math.Abs(world.Z)
	zStable := absZ < d.cfg.StabilityThreshold && d.recentZStable()
	d.pushZ(absZ)

	if world.Z > d.cfg.JumpThreshold {
		return ReflexEvent{Action: ActionJump, Timestamp: ts, Magnitude: world.Z}, true
	}

	planar := math.Hypot(world.X, world.Y)
	if planar > d.cfg.AttackThreshold && zStable {
		return ReflexEvent{Action: ActionAttack, Timestamp: ts, Magnitude: planar}, true
	}

	return ReflexEvent{}, false
}

// Reset clears the stability history.
func (d *ReflexDetector) Reset() {
	d.recentZ = [stabilityHistoryLen]float64{}
	d.zPos = 0
	d.zCount = 0
}

func (d *ReflexDetector) pushZ(absZ float64) {
	d.recentZ[d.zPos] = absZ
	d.zPos = (d.zPos + 1) % stabilityHistoryLen
	if d.zCount < stabilityHistoryLen {
		d.zCount++
	}
}

func (d *ReflexDetector) recentZStable() bool {
	for i := 0; i < d.zCount; i++ {
		if d.recentZ[i] >= d.cfg.StabilityThreshold {
			return false
		}
	}
	return true
}
