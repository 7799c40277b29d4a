// Package part holds positionable parts: a kernel solid plus the ordered
// history of transforms that places it in the world.
//
// History is stored outermost first. The combined transform is the left to
// right product h[0]·h[1]·…·h[n-1], so the last entry is applied to the
// shape first and the first entry last. AppendTransform therefore adds an
// innermost step and PrependTransform an outermost one.
package part

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/mate/pkg/kernel"
	"github.com/chazu/mate/pkg/xform"
)

// Part is a named solid with a transform history. The zero value is not
// usable; create parts with New.
type Part struct {
	name  string
	shape kernel.Solid

	// front holds prepended matrices in reverse order so that prepending
	// is an append. back holds appended matrices in order.
	front []mgl64.Mat4
	back  []mgl64.Mat4
}

// New returns a part with an empty history. shape may be nil for parts
// that only carry anchors.
func New(name string, shape kernel.Solid) *Part {
	return &Part{name: name, shape: shape}
}

// Name returns the part name.
func (p *Part) Name() string { return p.name }

// Shape returns the unplaced solid.
func (p *Part) Shape() kernel.Solid { return p.shape }

// AppendTransform adds m as the innermost step of the history.
func (p *Part) AppendTransform(m mgl64.Mat4) {
	p.back = append(p.back, m)
}

// PrependTransform adds m as the outermost step of the history.
func (p *Part) PrependTransform(m mgl64.Mat4) {
	p.front = append(p.front, m)
}

// Len returns the number of matrices in the history.
func (p *Part) Len() int {
	return len(p.front) + len(p.back)
}

// History returns a copy of the history, outermost first.
func (p *Part) History() []mgl64.Mat4 {
	out := make([]mgl64.Mat4, 0, p.Len())
	for i := len(p.front) - 1; i >= 0; i-- {
		out = append(out, p.front[i])
	}
	return append(out, p.back...)
}

// CombinedTransform folds the history into one matrix. It is recomputed on
// every call and is the exact identity for an empty history.
func (p *Part) CombinedTransform() mgl64.Mat4 {
	return xform.Fold(p.History()...)
}

// PositionedShape returns the shape carried through the combined transform.
// It returns nil when the part has no shape or t is nil.
func (p *Part) PositionedShape(t kernel.Transformer) kernel.Solid {
	if p.shape == nil || t == nil {
		return nil
	}
	return t.Transform(p.shape, p.CombinedTransform())
}
