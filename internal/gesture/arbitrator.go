package gesture

import (
	"sync"
	"sync/atomic"
	"time"
)

// Default arbitration parameters.
const (
	DefaultCooldown            = 300 * time.Millisecond
	DefaultConfidenceThreshold = 0.70
)

// ActionSink consumes the arbitrated action stream. Implementations must not
// block: the reflex path calls Dispatch synchronously from sample ingestion.
type ActionSink interface {
	Dispatch(ArbitratedAction)
}

// ChannelSink delivers actions to a buffered channel, dropping (and counting)
// when the consumer falls behind so the ingestion path never stalls.
type ChannelSink struct {
	C       chan ArbitratedAction
	dropped atomic.Uint64
}

// NewChannelSink creates a sink with the given buffer size.
func NewChannelSink(size int) *ChannelSink {
	if size < 1 {
		size = 64
	}
	return &ChannelSink{C: make(chan ArbitratedAction, size)}
}

// Dispatch sends the action without blocking.
func (s *ChannelSink) Dispatch(a ArbitratedAction) {
	select {
	case s.C <- a:
	default:
		s.dropped.Add(1)
	}
}

// Dropped returns how many actions were discarded on backpressure.
func (s *ChannelSink) Dropped() uint64 { return s.dropped.Load() }

// DefaultLabelActions maps classifier labels to actions. Labels absent from
// the map ("noise", "idle") produce no action.
func DefaultLabelActions() map[string]Action {
	return map[string]Action{
		"jump":       ActionJump,
		"punch":      ActionAttack,
		"attack":     ActionAttack,
		"turn":       ActionTurn,
		"turn_left":  ActionTurn,
		"turn_right": ActionTurn,
		"walk":       ActionWalk,
	}
}

// Arbitrator merges reflex and ML candidate events into one deduplicated
// action stream. Per-action cooldown state is the only mutable state; the
// check-then-act on it is atomic with respect to both detection paths, so two
// dispatches of the same action can never land within the cooldown window.
// Precedence is purely first-to-dispatch-wins.
type Arbitrator struct {
	cooldown     time.Duration
	confidence   float64
	labelActions map[string]Action
	sink         ActionSink

	mu           sync.Mutex
	lastDispatch map[Action]time.Time

	dispatched atomic.Uint64
	suppressed atomic.Uint64
	discarded  atomic.Uint64
}

// ArbitratorConfig holds the merge-policy parameters.
type ArbitratorConfig struct {
	Cooldown            time.Duration
	ConfidenceThreshold float64
	LabelActions        map[string]Action
}

// NewArbitrator creates an arbitrator dispatching into sink. Zero-value
// config fields fall back to defaults.
func NewArbitrator(cfg ArbitratorConfig, sink ActionSink) *Arbitrator {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if cfg.LabelActions == nil {
		cfg.LabelActions = DefaultLabelActions()
	}
	return &Arbitrator{
		cooldown:     cfg.Cooldown,
		confidence:   cfg.ConfidenceThreshold,
		labelActions: cfg.LabelActions,
		sink:         sink,
		lastDispatch: make(map[Action]time.Time),
	}
}

// OfferReflex submits a reflex event on the fast path. It reports whether the
// action was dispatched.
func (a *Arbitrator) OfferReflex(ev ReflexEvent) bool {
	return a.tryDispatch(ev.Action, SourceReflex, ev.Timestamp)
}

// OfferClassification submits an ML result on the slow path. Results below
// the confidence threshold or with labels mapping to no action are discarded
// before cooldown evaluation.
func (a *Arbitrator) OfferClassification(res ClassificationResult) bool {
	if res.Confidence < a.confidence {
		a.discarded.Add(1)
		return false
	}
	action, ok := a.labelActions[res.Label]
	if !ok {
		a.discarded.Add(1)
		return false
	}
	return a.tryDispatch(action, SourceML, res.Timestamp)
}

// tryDispatch performs the atomic cooldown check-then-act and, on success,
// emits the action. Dispatch happens under the lock so the output stream
// stays in dispatch-timestamp order; the sink contract is non-blocking.
func (a *Arbitrator) tryDispatch(action Action, source EventSource, ts time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if last, ok := a.lastDispatch[action]; ok && ts.Sub(last) < a.cooldown {
		a.suppressed.Add(1)
		return false
	}
	a.lastDispatch[action] = ts
	a.dispatched.Add(1)
	a.sink.Dispatch(ArbitratedAction{Action: action, Source: source, Timestamp: ts})
	return true
}

// LastDispatch returns the timestamp of the last successful dispatch of the
// given action, if any.
func (a *Arbitrator) LastDispatch(action Action) (time.Time, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.lastDispatch[action]
	return t, ok
}

// Dispatched returns the total number of dispatched actions.
func (a *Arbitrator) Dispatched() uint64 { return a.dispatched.Load() }

// Suppressed returns the number of candidates suppressed by cooldown.
func (a *Arbitrator) Suppressed() uint64 { return a.suppressed.Load() }

// Discarded returns the number of ML results dropped for low confidence or
// unmapped labels.
func (a *Arbitrator) Discarded() uint64 { return a.discarded.Load() }
