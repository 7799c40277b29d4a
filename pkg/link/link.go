// Package link models mechanical links: a translation and rotation offset
// expressed in the local basis of an anchor and pivoting about its origin.
package link

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/mate/pkg/anchor"
	"github.com/chazu/mate/pkg/xform"
)

// ErrUnboundLink is returned by Validate when a link asks for an offset
// but its anchor has no usable axes.
var ErrUnboundLink = errors.New("link offset has no anchor frame")

// Link offsets a part relative to Anchor. Tx, Ty and Tz are distances
// along u, v and w; Rx, Ry and Rz are rotations in radians about those
// axes through the anchor origin. The zero Link is the identity.
//
// The assembly attach operations rebind a link to the receiving part's
// positioned anchor with On, so a caller's Anchor only matters when the
// link is evaluated directly.
type Link struct {
	Anchor     anchor.Anchor
	Tx, Ty, Tz float64
	Rx, Ry, Rz float64
}

// On returns a copy of the link bound to a different anchor.
func (l Link) On(a anchor.Anchor) Link {
	l.Anchor = a
	return l
}

// IsZero reports whether the link has no offset at all.
func (l Link) IsZero() bool {
	return l.Tx == 0 && l.Ty == 0 && l.Tz == 0 && l.Rx == 0 && l.Ry == 0 && l.Rz == 0
}

// Validate checks that a non-zero offset has a frame to be expressed in.
func (l Link) Validate() error {
	if l.IsZero() || !l.Anchor.IsZero() {
		return nil
	}
	return fmt.Errorf("link on %q: %w", l.Anchor.Name(), ErrUnboundLink)
}

// Translation returns the world-space translation tx·u + ty·v + tz·w.
func (l Link) Translation() mgl64.Vec3 {
	a := l.Anchor
	return a.U().Mul(l.Tx).Add(a.V().Mul(l.Ty)).Add(a.W().Mul(l.Tz))
}

// Matrix returns T ∘ Ru ∘ Rv ∘ Rw: the rotation about w is applied first,
// the translation last. The order is part of the link's meaning.
func (l Link) Matrix() mgl64.Mat4 {
	if l.IsZero() {
		return mgl64.Ident4()
	}
	a := l.Anchor
	return xform.Fold(
		xform.Translation(l.Translation()),
		xform.RotationAbout(l.Rx, a.U(), a.P()),
		xform.RotationAbout(l.Ry, a.V(), a.P()),
		xform.RotationAbout(l.Rz, a.W(), a.P()),
	)
}

func (l Link) String() string {
	return fmt.Sprintf("link on %q t=(%g %g %g) r=(%g %g %g)", l.Anchor.Name(), l.Tx, l.Ty, l.Tz, l.Rx, l.Ry, l.Rz)
}
