package math

import (
	"math"
	"testing"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func approxVec(a, b Vec3) bool {
	return approx(a.X, b.X) && approx(a.Y, b.Y) && approx(a.Z, b.Z)
}

func TestIdentityMul(t *testing.T) {
	m := Translate(Vec3{1, 2, 3})
	result := m.Mul(Identity())

	for i := 0; i < 16; i++ {
		if result[i] != m[i] {
			t.Errorf("M * I should equal M, element %d: got %f, want %f", i, result[i], m[i])
		}
	}
}

func TestTranslateLayout(t *testing.T) {
	m := Translate(Vec3{5, 10, 15})
	if m[12] != 5 || m[13] != 10 || m[14] != 15 {
		t.Errorf("translation should be in elements 12-14, got (%f, %f, %f)", m[12], m[13], m[14])
	}
}

func TestFromTRS(t *testing.T) {
	r := QuatFromAxisAngle(Vec3{0, 1, 0}, float32(math.Pi/2))
	m := FromTRS(Vec3{10, 0, 0}, r, Vec3{2, 2, 2})

	// (1,0,0) scaled to (2,0,0), rotated 90 degrees about Y to (0,0,-2), then translated.
	got := m.TransformPoint(Vec3{1, 0, 0})
	want := Vec3{10, 0, -2}
	if !approxVec(got, want) {
		t.Errorf("TransformPoint = %v, want %v", got, want)
	}

	composed := Translate(Vec3{10, 0, 0}).Mul(r.ToMat4()).Mul(Scale(Vec3{2, 2, 2}))
	for i := range m {
		if !approx(m[i], composed[i]) {
			t.Errorf("element %d: FromTRS %f, T*R*S %f", i, m[i], composed[i])
		}
	}
}

func TestDecompose(t *testing.T) {
	tr := Vec3{1, -2, 3}
	rot := QuatFromAxisAngle(Vec3{1, 0, 0}.Normalize(), 0.7)
	sc := Vec3{1.5, 2, 0.5}

	gotT, gotR, gotS := FromTRS(tr, rot, sc).Decompose()

	if !approxVec(gotT, tr) {
		t.Errorf("translation = %v, want %v", gotT, tr)
	}
	if !approxVec(gotS, sc) {
		t.Errorf("scale = %v, want %v", gotS, sc)
	}
	if d := gotR.Dot(rot); !approx(float32(math.Abs(float64(d))), 1) {
		t.Errorf("rotation = %v, want %v", gotR, rot)
	}
}

func TestQuatSlerp(t *testing.T) {
	q1 := QuatIdentity()
	q2 := QuatFromAxisAngle(Vec3{0, 1, 0}, float32(math.Pi/2))

	if r := q1.Slerp(q2, 0); !approx(r.W, q1.W) {
		t.Errorf("Slerp at t=0 should equal q1, got %v", r)
	}
	if r := q1.Slerp(q2, 1); !approx(r.W, q2.W) || !approx(r.Y, q2.Y) {
		t.Errorf("Slerp at t=1 should equal q2, got %v", r)
	}

	half := q1.Slerp(q2, 0.5)
	expectedW := float32(math.Cos(math.Pi / 8))
	if !approx(half.W, expectedW) {
		t.Errorf("Slerp at t=0.5: expected W ~%v, got %v", expectedW, half.W)
	}
}

func TestQuatSlerpShortestPath(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{0, 0, 1}, 0.2)
	neg := Quat{-q.X, -q.Y, -q.Z, -q.W}

	r := q.Slerp(neg, 0.5)
	if !approx(float32(math.Abs(float64(r.Dot(q)))), 1) {
		t.Errorf("slerp between q and -q should stay at q, got %v", r)
	}
}

func TestQuatNormalizeDegenerate(t *testing.T) {
	if q := (Quat{}).Normalize(); q != QuatIdentity() {
		t.Errorf("zero quaternion should normalize to identity, got %v", q)
	}
}

func TestPerspectiveInfinite(t *testing.T) {
	m := Perspective(1, 1.5, 0.1, 0)
	if m[10] != -1 || !approx(m[14], -0.2) {
		t.Errorf("infinite projection: m10=%f m14=%f", m[10], m[14])
	}
	finite := Perspective(1, 1.5, 0.1, 100)
	if approx(finite[10], -1) {
		t.Error("finite projection should not match infinite depth terms")
	}
}

func TestBox3(t *testing.T) {
	b := EmptyBox()
	if !b.IsEmpty() {
		t.Fatal("new box should be empty")
	}
	b.Expand(Vec3{1, 2, 3})
	b.Expand(Vec3{-1, 0, 5})

	if b.Min != (Vec3{-1, 0, 3}) || b.Max != (Vec3{1, 2, 5}) {
		t.Errorf("unexpected bounds %v", b)
	}
	if b.Center() != (Vec3{0, 1, 4}) {
		t.Errorf("unexpected center %v", b.Center())
	}
}

func TestVec3Cross(t *testing.T) {
	got := Vec3{1, 0, 0}.Cross(Vec3{0, 1, 0})
	if got != (Vec3{0, 0, 1}) {
		t.Errorf("X cross Y = %v, want Z", got)
	}
}
