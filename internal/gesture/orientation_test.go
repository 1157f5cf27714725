package gesture

import (
	"math"
	"testing"
)

const vecTolerance = 1e-9

func assertVecNear(t *testing.T, want, got Vec3) {
	t.Helper()
	if math.Abs(want.X-got.X) > vecTolerance ||
		math.Abs(want.Y-got.Y) > vecTolerance ||
		math.Abs(want.Z-got.Z) > vecTolerance {
		t.Errorf("vector mismatch: want %+v, got %+v", want, got)
	}
}

func TestOrientation_IdentityBeforeEstimate(t *testing.T) {
	o := NewOrientationTransformer(0)

	if o.HasEstimate() {
		t.Fatal("expected no estimate on a fresh transformer")
	}
	v := Vec3{X: 1.5, Y: -2, Z: 9}
	assertVecNear(t, v, o.ToWorld(v))
}

func TestOrientation_RejectsDegenerateQuaternion(t *testing.T) {
	o := NewOrientationTransformer(0)

	if o.Update(0, 0, 0, 0) {
		t.Error("zero-norm quaternion must be rejected")
	}
	if o.HasEstimate() {
		t.Error("rejected update must not create an estimate")
	}
	if o.RejectedCount() != 1 {
		t.Errorf("expected 1 rejection, got %d", o.RejectedCount())
	}

	// A later rejection keeps the previously accepted estimate.
	if !o.Update(0, 0, 1, 0) {
		t.Fatal("valid quaternion rejected")
	}
	if o.Update(1e-9, 0, 0, 0) {
		t.Error("near-zero quaternion must be rejected")
	}
	if !o.HasEstimate() {
		t.Error("previous valid estimate must be retained")
	}
}

func TestOrientation_RotatesIntoWorldFrame(t *testing.T) {
	o := NewOrientationTransformer(0)

	// 180° about X: (0,0,1) maps to (0,0,-1).
	if !o.Update(1, 0, 0, 0) {
		t.Fatal("update failed")
	}
	assertVecNear(t, Vec3{Z: -1}, o.ToWorld(Vec3{Z: 1}))

	// 90° about Z: (1,0,0) maps to (0,1,0).
	s := math.Sin(math.Pi / 4)
	c := math.Cos(math.Pi / 4)
	if !o.Update(0, 0, s, c) {
		t.Fatal("update failed")
	}
	assertVecNear(t, Vec3{Y: 1}, o.ToWorld(Vec3{X: 1}))
}

func TestOrientation_NormalizesBeforeUse(t *testing.T) {
	o := NewOrientationTransformer(0)

	// Scaled identity quaternion must behave exactly like the identity.
	if !o.Update(0, 0, 0, 2.5) {
		t.Fatal("update failed")
	}
	v := Vec3{X: 3, Y: -1, Z: 0.5}
	assertVecNear(t, v, o.ToWorld(v))
}

func TestOrientation_GravityOffset(t *testing.T) {
	o := NewOrientationTransformer(9.81)

	if !o.Update(0, 0, 0, 1) {
		t.Fatal("update failed")
	}
	got := o.ToWorld(Vec3{Z: 9.81})
	assertVecNear(t, Vec3{}, got)
}

func TestOrientation_BatchMatchesSingle(t *testing.T) {
	o := NewOrientationTransformer(0)
	if !o.Update(0.3, -0.2, 0.5, 0.79) {
		t.Fatal("update failed")
	}

	vs := []Vec3{{X: 1}, {Y: 2}, {X: -0.5, Y: 0.25, Z: 3}}
	batch := o.ToWorldBatch(vs)
	if len(batch) != len(vs) {
		t.Fatalf("expected %d results, got %d", len(vs), len(batch))
	}
	for i, v := range vs {
		assertVecNear(t, o.ToWorld(v), batch[i])
	}
}
