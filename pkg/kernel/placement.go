package kernel

import "math"

// Vec3 is a 3D vector or point.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// IsFinite reports whether no component is NaN or infinite.
func (v Vec3) IsFinite() bool {
	return finite(v.X) && finite(v.Y) && finite(v.Z)
}

// Quat is an orientation quaternion with the scalar part last.
type Quat struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// IdentityQuat is the "no rotation" orientation.
var IdentityQuat = Quat{W: 1}

// IsFinite reports whether no component is NaN or infinite.
func (q Quat) IsFinite() bool {
	return finite(q.X) && finite(q.Y) && finite(q.Z) && finite(q.W)
}

// Len returns the quaternion's norm.
func (q Quat) Len() float64 {
	return math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

// Normalize returns q scaled to unit length. ok is false if q has zero or
// non-finite length.
func (q Quat) Normalize() (Quat, bool) {
	l := q.Len()
	if l == 0 || !finite(l) {
		return Quat{}, false
	}
	return Quat{X: q.X / l, Y: q.Y / l, Z: q.Z / l, W: q.W / l}, true
}

// Euler returns the rotation as X, Y, Z angles in radians such that
// applying X first, then Y, then Z (R = Rz·Ry·Rx) reproduces q.
// q is expected to be unit length.
func (q Quat) Euler() (x, y, z float64) {
	x = math.Atan2(2*(q.W*q.X+q.Y*q.Z), 1-2*(q.X*q.X+q.Y*q.Y))

	sinY := 2 * (q.W*q.Y - q.Z*q.X)
	switch {
	case sinY >= 1:
		y = math.Pi / 2
	case sinY <= -1:
		y = -math.Pi / 2
	default:
		y = math.Asin(sinY)
	}

	z = math.Atan2(2*(q.W*q.Z+q.X*q.Y), 1-2*(q.Y*q.Y+q.Z*q.Z))
	return x, y, z
}

// Placement is an object's position and orientation, independent of its
// shape parameters.
type Placement struct {
	Position    Vec3 `json:"position"`
	Orientation Quat `json:"orientation"`
}

// DefaultPlacement is the origin with identity orientation.
func DefaultPlacement() Placement {
	return Placement{Orientation: IdentityQuat}
}

// IsIdentity reports whether the placement leaves geometry where it is.
func (p Placement) IsIdentity() bool {
	return p.Position == (Vec3{}) && p.Orientation == IdentityQuat
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
