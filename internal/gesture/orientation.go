package gesture

import (
	"math"
	"sync"
)

// minQuaternionNorm is the smallest rotation-vector norm accepted as a valid
// orientation estimate. Anything below this is numerical noise.
const minQuaternionNorm = 1e-6

// Quaternion is a unit rotation quaternion (w + xi + yj + zk).
type Quaternion struct {
	W, X, Y, Z float64
}

// OrientationTransformer rotates body-frame acceleration vectors into a
// gravity-aligned world frame using the latest rotation-vector estimate.
// Until the first valid estimate arrives the transform is identity, so the
// pipeline keeps running through cold start.
type OrientationTransformer struct {
	mu            sync.RWMutex
	q             Quaternion
	hasEstimate   bool
	gravityOffset float64
	rejected      uint64
}

// NewOrientationTransformer creates a transformer. gravityOffset is
// subtracted from the world Z axis after rotation; it is zero for linear
// acceleration sensors (gravity already removed on-device) and ~9.81 for raw
// accelerometer feeds.
func NewOrientationTransformer(gravityOffset float64) *OrientationTransformer {
	return &OrientationTransformer{gravityOffset: gravityOffset}
}

// Update replaces the orientation estimate from a rotation-vector sample
// (x, y, z, w). Degenerate near-zero-norm quaternions are rejected and the
// previous valid estimate is retained; Update reports whether the sample was
// accepted. The quaternion is unit-normalized before storage.
func (o *OrientationTransformer) Update(x, y, z, w float64) bool {
	norm := math.Sqrt(x*x + y*y + z*z + w*w)
	if norm < minQuaternionNorm {
		o.mu.Lock()
		o.rejected++
		o.mu.Unlock()
		return false
	}

	inv := 1.0 / norm
	o.mu.Lock()
	o.q = Quaternion{W: w * inv, X: x * inv, Y: y * inv, Z: z * inv}
	o.hasEstimate = true
	o.mu.Unlock()
	return true
}

// HasEstimate reports whether a valid orientation estimate has been received.
func (o *OrientationTransformer) HasEstimate() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.hasEstimate
}

// RejectedCount returns how many degenerate rotation samples were rejected.
func (o *OrientationTransformer) RejectedCount() uint64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.rejected
}

// ToWorld rotates a body-frame vector into the world frame and removes the
// configured gravity offset from the world Z axis. With no estimate yet the
// input passes through unchanged.
func (o *OrientationTransformer) ToWorld(v Vec3) Vec3 {
	o.mu.RLock()
	q := o.q
	has := o.hasEstimate
	o.mu.RUnlock()

	if !has {
		return v
	}
	w := rotate(q, v)
	w.Z -= o.gravityOffset
	return w
}

// ToWorldBatch transforms a slice of body-frame vectors with a single read of
// the current estimate, so one snapshot sees one consistent orientation.
func (o *OrientationTransformer) ToWorldBatch(vs []Vec3) []Vec3 {
	o.mu.RLock()
	q := o.q
	has := o.hasEstimate
	o.mu.RUnlock()

	out := make([]Vec3, len(vs))
	if !has {
		copy(out, vs)
		return out
	}
	for i, v := range vs {
		w := rotate(q, v)
		w.Z -= o.gravityOffset
		out[i] = w
	}
	return out
}

// rotate applies q·v·q* using the expanded cross-product form:
// v' = v + 2·(q.xyz × (q.xyz × v + w·v)).
func rotate(q Quaternion, v Vec3) Vec3 {
	tx := 2 * (q.Y*v.Z - q.Z*v.Y)
	ty := 2 * (q.Z*v.X - q.X*v.Z)
	tz := 2 * (q.X*v.Y - q.Y*v.X)

	return Vec3{
		X: v.X + q.W*tx + (q.Y*tz - q.Z*ty),
		Y: v.Y + q.W*ty + (q.Z*tx - q.X*tz),
		Z: v.Z + q.W*tz + (q.X*ty - q.Y*tx),
	}
}
