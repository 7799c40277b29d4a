package anchor

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/mate/pkg/xform"
)

// OrthogonalityTolerance bounds |u·v| relative to |u||v| at construction.
const OrthogonalityTolerance = 1e-9

// ErrNotOrthogonal is returned when an anchor is built from axes that are
// not perpendicular.
var ErrNotOrthogonal = errors.New("anchor axes are not orthogonal")

// Anchor is an immutable local frame used to mate parts.
type Anchor struct {
	name string
	p    mgl64.Vec3
	u    mgl64.Vec3
	v    mgl64.Vec3
}

// New builds an anchor, checking that u and v are orthogonal. Unit length
// is expected but not enforced here; see IsUnit.
func New(name string, p, u, v mgl64.Vec3) (Anchor, error) {
	scale := u.Len() * v.Len()
	if math.Abs(u.Dot(v)) > OrthogonalityTolerance*math.Max(scale, 1) {
		return Anchor{}, fmt.Errorf("anchor %q: u=%v v=%v (u·v=%g): %w", name, u, v, u.Dot(v), ErrNotOrthogonal)
	}
	return Anchor{name: name, p: p, u: u, v: v}, nil
}

// MustNew is like New but panics on error. Intended for fixed anchors
// authored in code.
func MustNew(name string, p, u, v mgl64.Vec3) Anchor {
	a, err := New(name, p, u, v)
	if err != nil {
		panic(err)
	}
	return a
}

// Name returns the anchor name.
func (a Anchor) Name() string { return a.name }

// P returns the origin point.
func (a Anchor) P() mgl64.Vec3 { return a.p }

// U returns the first axis, normally pointing out of the part.
func (a Anchor) U() mgl64.Vec3 { return a.u }

// V returns the second axis, normally tangential to the part surface.
func (a Anchor) V() mgl64.Vec3 { return a.v }

// W returns the derived third axis u × v.
func (a Anchor) W() mgl64.Vec3 { return a.u.Cross(a.v) }

// Transform carries the anchor through m: the origin as a point, the axes
// as directions. The result keeps the receiver's name.
func (a Anchor) Transform(m mgl64.Mat4) Anchor {
	return Anchor{
		name: a.name,
		p:    TransformPoint(m, a.p),
		u:    TransformVector(m, a.u),
		v:    TransformVector(m, a.v),
	}
}

// Renamed returns a copy of the anchor under a different name.
func (a Anchor) Renamed(name string) Anchor {
	a.name = name
	return a
}

// MatingPoints returns {p, p+u, p+v}, the triple an anchor contributes when
// it is the one being moved.
func (a Anchor) MatingPoints() []mgl64.Vec3 {
	return []mgl64.Vec3{a.p, a.p.Add(a.u), a.p.Add(a.v)}
}

// ReceivingPoints returns {p, p−u, p+v}, the triple an anchor contributes
// when it receives another part. The flipped u makes the two outward
// normals face each other once mated.
func (a Anchor) ReceivingPoints() []mgl64.Vec3 {
	return []mgl64.Vec3{a.p, a.p.Sub(a.u), a.p.Add(a.v)}
}

// IsUnit reports whether both axes have unit length within tol.
func (a Anchor) IsUnit(tol float64) bool {
	return math.Abs(a.u.Len()-1) <= tol && math.Abs(a.v.Len()-1) <= tol
}

// IsZero reports whether the anchor has no usable axes, as with the zero
// value.
func (a Anchor) IsZero() bool {
	return a.u.Len() == 0 || a.v.Len() == 0
}

// ApproxEqual compares origin and axes componentwise within the absolute
// tolerance tol. Names are ignored.
func (a Anchor) ApproxEqual(b Anchor, tol float64) bool {
	return xform.Near(a.p, b.p, tol) &&
		xform.Near(a.u, b.u, tol) &&
		xform.Near(a.v, b.v, tol)
}

func (a Anchor) String() string {
	return fmt.Sprintf("anchor %q p=%v u=%v v=%v", a.name, a.p, a.u, a.v)
}
