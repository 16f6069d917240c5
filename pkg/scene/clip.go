package scene

import (
	"sort"

	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// Path is the node property a channel animates.
type Path string

// Animated properties.
const (
	PathTranslation Path = "translation"
	PathRotation    Path = "rotation"
	PathScale       Path = "scale"
	PathWeights     Path = "weights"
)

// Interpolation is the keyframe interpolation mode.
type Interpolation int

const (
	Linear Interpolation = iota
	Step
	CubicSpline
)

func (i Interpolation) String() string {
	switch i {
	case Step:
		return "STEP"
	case CubicSpline:
		return "CUBICSPLINE"
	default:
		return "LINEAR"
	}
}

// ParseInterpolation maps the document string; unknown values are Linear.
func ParseInterpolation(s string) Interpolation {
	switch s {
	case "STEP":
		return Step
	case "CUBICSPLINE":
		return CubicSpline
	default:
		return Linear
	}
}

// Channel animates one property of one node.
type Channel struct {
	Target        *Node
	TargetIndex   int
	Path          Path
	Interpolation Interpolation

	// Times are keyframe times in seconds, ascending.
	Times []float32

	// Values holds Width floats per keyframe, or 3*Width for cubic splines
	// (in-tangent, value, out-tangent).
	Values []float32
	Width  int
}

// Clip is a named set of channels.
type Clip struct {
	Name     string
	Channels []Channel
	Duration float32
}

// Sample evaluates the channel at time t (seconds). Times before the first
// key clamp to it; times after the last clamp to the last.
func (c *Channel) Sample(t float32) []float32 {
	out := make([]float32, c.Width)
	n := len(c.Times)
	if n == 0 || c.Width == 0 {
		return out
	}

	// Find the surrounding keyframes.
	next := sort.Search(n, func(i int) bool { return c.Times[i] > t })
	if next == 0 {
		copy(out, c.value(0))
		return out
	}
	prev := next - 1
	if next == n || c.Interpolation == Step {
		copy(out, c.value(prev))
		return out
	}

	t0, t1 := c.Times[prev], c.Times[next]
	u := float32(0)
	if t1 != t0 {
		u = (t - t0) / (t1 - t0)
	}

	switch c.Interpolation {
	case CubicSpline:
		c.hermite(out, prev, next, u, t1-t0)
		if c.Path == PathRotation {
			q := math.Quat{X: out[0], Y: out[1], Z: out[2], W: out[3]}.Normalize()
			copy(out, []float32{q.X, q.Y, q.Z, q.W})
		}
	default:
		a, b := c.value(prev), c.value(next)
		if c.Path == PathRotation && c.Width == 4 {
			q := math.Quat{X: a[0], Y: a[1], Z: a[2], W: a[3]}.
				Slerp(math.Quat{X: b[0], Y: b[1], Z: b[2], W: b[3]}, u)
			copy(out, []float32{q.X, q.Y, q.Z, q.W})
			return out
		}
		for i := range out {
			out[i] = a[i] + u*(b[i]-a[i])
		}
	}
	return out
}

// value returns the keyframe value at key k (the middle third for splines).
func (c *Channel) value(k int) []float32 {
	stride, off := c.Width, 0
	if c.Interpolation == CubicSpline {
		stride, off = 3*c.Width, c.Width
	}
	start := k*stride + off
	if start+c.Width > len(c.Values) {
		return make([]float32, c.Width)
	}
	return c.Values[start : start+c.Width]
}

func (c *Channel) hermite(out []float32, prev, next int, u, dt float32) {
	w := c.Width
	p0 := c.Values[prev*3*w+w : prev*3*w+2*w]
	m0 := c.Values[prev*3*w+2*w : prev*3*w+3*w] // out-tangent
	p1 := c.Values[next*3*w+w : next*3*w+2*w]
	m1 := c.Values[next*3*w : next*3*w+w] // in-tangent

	u2, u3 := u*u, u*u*u
	h00 := 2*u3 - 3*u2 + 1
	h10 := u3 - 2*u2 + u
	h01 := -2*u3 + 3*u2
	h11 := u3 - u2
	for i := range out {
		out[i] = h00*p0[i] + h10*dt*m0[i] + h01*p1[i] + h11*dt*m1[i]
	}
}

// Apply writes the clip's pose at time t into the target nodes' local
// transforms. Callers refresh world matrices with Node.UpdateWorld.
func (c *Clip) Apply(t float32) {
	for i := range c.Channels {
		ch := &c.Channels[i]
		if ch.Target == nil {
			continue
		}
		v := ch.Sample(t)
		n := ch.Target
		switch ch.Path {
		case PathTranslation:
			n.SetTRS(math.Vec3{X: v[0], Y: v[1], Z: v[2]}, n.Rotation, n.Scale)
		case PathRotation:
			n.SetTRS(n.Translation, math.Quat{X: v[0], Y: v[1], Z: v[2], W: v[3]}, n.Scale)
		case PathScale:
			n.SetTRS(n.Translation, n.Rotation, math.Vec3{X: v[0], Y: v[1], Z: v[2]})
		case PathWeights:
			n.Weights = append(n.Weights[:0], v...)
		}
	}
}
