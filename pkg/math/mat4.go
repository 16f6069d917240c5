package math

import "github.com/chewxy/math32"

// Mat4 is a 4x4 matrix in column-major order, the layout glTF stores.
//
//	[m0 m4 m8  m12]
//	[m1 m5 m9  m13]
//	[m2 m6 m10 m14]
//	[m3 m7 m11 m15]
type Mat4 [16]float32

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translate returns a translation matrix.
func Translate(v Vec3) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = v.X, v.Y, v.Z
	return m
}

// Scale returns a scale matrix.
func Scale(v Vec3) Mat4 {
	m := Identity()
	m[0], m[5], m[10] = v.X, v.Y, v.Z
	return m
}

// FromTRS composes T * R * S, the node transform order.
func FromTRS(t Vec3, r Quat, s Vec3) Mat4 {
	m := r.ToMat4()
	for i := 0; i < 3; i++ {
		m[i] *= s.X
		m[4+i] *= s.Y
		m[8+i] *= s.Z
	}
	m[12], m[13], m[14] = t.X, t.Y, t.Z
	return m
}

// Perspective returns a right-handed projection with a [-1, 1] depth range.
// A zero or infinite far plane yields an infinite projection.
func Perspective(yfov, aspect, near, far float32) Mat4 {
	f := 1 / math32.Tan(yfov/2)
	m := Mat4{}
	m[0] = f / aspect
	m[5] = f
	m[11] = -1
	if far == 0 || math32.IsInf(far, 1) {
		m[10] = -1
		m[14] = -2 * near
		return m
	}
	m[10] = (far + near) / (near - far)
	m[14] = 2 * far * near / (near - far)
	return m
}

// Orthographic returns an orthographic projection from half extents.
func Orthographic(xmag, ymag, near, far float32) Mat4 {
	m := Identity()
	m[0] = 1 / xmag
	m[5] = 1 / ymag
	m[10] = 2 / (near - far)
	m[14] = (far + near) / (near - far)
	return m
}

// Mul returns m * other.
func (m Mat4) Mul(other Mat4) Mat4 {
	var r Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * other[col*4+k]
			}
			r[col*4+row] = sum
		}
	}
	return r
}

// TransformPoint applies m to a point (w = 1).
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	x := m[0]*p.X + m[4]*p.Y + m[8]*p.Z + m[12]
	y := m[1]*p.X + m[5]*p.Y + m[9]*p.Z + m[13]
	z := m[2]*p.X + m[6]*p.Y + m[10]*p.Z + m[14]
	w := m[3]*p.X + m[7]*p.Y + m[11]*p.Z + m[15]
	if w != 0 && w != 1 {
		return Vec3{x / w, y / w, z / w}
	}
	return Vec3{x, y, z}
}

// TransformDirection applies m to a direction (w = 0).
func (m Mat4) TransformDirection(d Vec3) Vec3 {
	return Vec3{
		m[0]*d.X + m[4]*d.Y + m[8]*d.Z,
		m[1]*d.X + m[5]*d.Y + m[9]*d.Z,
		m[2]*d.X + m[6]*d.Y + m[10]*d.Z,
	}
}

// Translation returns the translation column.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[12], m[13], m[14]}
}

// Decompose splits an affine matrix without shear into T, R and S.
// A negative determinant is folded into the X scale.
func (m Mat4) Decompose() (t Vec3, r Quat, s Vec3) {
	t = m.Translation()
	sx := Vec3{m[0], m[1], m[2]}.Length()
	sy := Vec3{m[4], m[5], m[6]}.Length()
	sz := Vec3{m[8], m[9], m[10]}.Length()
	if m.det3() < 0 {
		sx = -sx
	}
	s = Vec3{sx, sy, sz}
	if sx == 0 || sy == 0 || sz == 0 {
		return t, QuatIdentity(), s
	}

	r00, r01, r02 := m[0]/sx, m[4]/sy, m[8]/sz
	r10, r11, r12 := m[1]/sx, m[5]/sy, m[9]/sz
	r20, r21, r22 := m[2]/sx, m[6]/sy, m[10]/sz

	// Shepperd's method: pick the largest diagonal term for stability.
	trace := r00 + r11 + r22
	switch {
	case trace > 0:
		k := math32.Sqrt(trace+1) * 2
		r = Quat{(r21 - r12) / k, (r02 - r20) / k, (r10 - r01) / k, k / 4}
	case r00 > r11 && r00 > r22:
		k := math32.Sqrt(1+r00-r11-r22) * 2
		r = Quat{k / 4, (r01 + r10) / k, (r02 + r20) / k, (r21 - r12) / k}
	case r11 > r22:
		k := math32.Sqrt(1+r11-r00-r22) * 2
		r = Quat{(r01 + r10) / k, k / 4, (r12 + r21) / k, (r02 - r20) / k}
	default:
		k := math32.Sqrt(1+r22-r00-r11) * 2
		r = Quat{(r02 + r20) / k, (r12 + r21) / k, k / 4, (r10 - r01) / k}
	}
	return t, r.Normalize(), s
}

func (m Mat4) det3() float32 {
	return m[0]*(m[5]*m[10]-m[9]*m[6]) -
		m[4]*(m[1]*m[10]-m[9]*m[2]) +
		m[8]*(m[1]*m[6]-m[5]*m[2])
}
