package math

import "github.com/chewxy/math32"

// Quat is a rotation quaternion stored as X, Y, Z, W with W the scalar part,
// the same order glTF uses.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns the identity rotation.
func QuatIdentity() Quat {
	return Quat{W: 1}
}

// Q builds a Quat from an [x y z w] array.
func Q(a [4]float32) Quat {
	return Quat{a[0], a[1], a[2], a[3]}
}

// Array returns the components as [x y z w].
func (q Quat) Array() [4]float32 {
	return [4]float32{q.X, q.Y, q.Z, q.W}
}

// QuatFromAxisAngle creates a rotation of angle radians around a unit axis.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	s, c := math32.Sincos(angle / 2)
	return Quat{X: axis.X * s, Y: axis.Y * s, Z: axis.Z * s, W: c}
}

// Dot returns the 4D dot product.
func (q Quat) Dot(other Quat) float32 {
	return q.X*other.X + q.Y*other.Y + q.Z*other.Z + q.W*other.W
}

// Normalize returns a unit quaternion. Degenerate input yields identity.
func (q Quat) Normalize() Quat {
	length := math32.Sqrt(q.Dot(q))
	if length < 1e-6 {
		return QuatIdentity()
	}
	inv := 1 / length
	return Quat{q.X * inv, q.Y * inv, q.Z * inv, q.W * inv}
}

// Mul composes rotations: q.Mul(r) applies r first, then q.
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
	}
}

// Slerp interpolates along the shorter arc from q to other.
func (q Quat) Slerp(other Quat, t float32) Quat {
	cos := q.Dot(other)
	if cos < 0 {
		other = Quat{-other.X, -other.Y, -other.Z, -other.W}
		cos = -cos
	}

	// Nearly parallel: sin(theta) is too small to divide by.
	if cos > 0.9995 {
		return Quat{
			q.X + t*(other.X-q.X),
			q.Y + t*(other.Y-q.Y),
			q.Z + t*(other.Z-q.Z),
			q.W + t*(other.W-q.W),
		}.Normalize()
	}

	theta := math32.Acos(cos)
	sin := math32.Sin(theta)
	a := math32.Sin((1-t)*theta) / sin
	b := math32.Sin(t*theta) / sin
	return Quat{
		q.X*a + other.X*b,
		q.Y*a + other.Y*b,
		q.Z*a + other.Z*b,
		q.W*a + other.W*b,
	}
}

// ToMat4 returns the rotation matrix for q.
func (q Quat) ToMat4() Mat4 {
	q = q.Normalize()

	xx, yy, zz := q.X*q.X, q.Y*q.Y, q.Z*q.Z
	xy, xz, yz := q.X*q.Y, q.X*q.Z, q.Y*q.Z
	wx, wy, wz := q.W*q.X, q.W*q.Y, q.W*q.Z

	return Mat4{
		1 - 2*(yy+zz), 2 * (xy + wz), 2 * (xz - wy), 0,
		2 * (xy - wz), 1 - 2*(xx+zz), 2 * (yz + wx), 0,
		2 * (xz + wy), 2 * (yz - wx), 1 - 2*(xx+yy), 0,
		0, 0, 0, 1,
	}
}
