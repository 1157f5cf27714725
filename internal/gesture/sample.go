// Package gesture implements the hybrid gesture recognition engine: a
// sliding-window sensor buffer, an orientation-invariant coordinate
// transform, time/frequency feature extraction, a threshold-based reflex
// detector, a pre-trained gesture classifier, and the arbitrator that merges
// both detection layers into a single deduplicated action stream.
package gesture

import "time"

// SensorKind identifies the source sensor of a sample.
type SensorKind string

const (
	// KindAccel is linear acceleration in the body frame (m/s², 3 components).
	KindAccel SensorKind = "accel"
	// KindGyro is angular velocity (rad/s, 3 components).
	KindGyro SensorKind = "gyro"
	// KindRotation is the rotation vector quaternion (x, y, z, w).
	KindRotation SensorKind = "rotation"
	// KindStep is the step detector (single component).
	KindStep SensorKind = "step"
)

// SensorSample is one reading from a wearable sensor. Samples are immutable
// once recorded into a SampleBuffer.
type SensorSample struct {
	Kind      SensorKind
	Timestamp time.Time
	Values    [4]float64
	Dims      int
}

// Vec3 is a 3-component vector in either body or world coordinates.
type Vec3 struct {
	X, Y, Z float64
}

// Action is a discrete control action emitted to the external execution layer.
type Action string

const (
	ActionJump   Action = "jump"
	ActionAttack Action = "attack"
	ActionTurn   Action = "turn"
	ActionWalk   Action = "walk"
)

// EventSource tags which detection layer produced an action.
type EventSource string

const (
	// SourceReflex marks actions from the low-latency threshold layer.
	SourceReflex EventSource = "reflex"
	// SourceML marks actions from the windowed statistical classifier.
	SourceML EventSource = "ml"
)

// ReflexEvent is a candidate action produced by the reflex detector from a
// single world-frame acceleration sample.
type ReflexEvent struct {
	Action    Action
	Timestamp time.Time
	Magnitude float64
}

// ClassificationResult is the output of one classifier prediction.
type ClassificationResult struct {
	Label      string
	Confidence float64
	Timestamp  time.Time
}

// ArbitratedAction is the sole externally visible output of the engine: one
// deduplicated action with the layer that won the dispatch.
type ArbitratedAction struct {
	Action    Action
	Source    EventSource
	Timestamp time.Time
}
