package part

import (
	"errors"
	"fmt"

	"github.com/chazu/mate/pkg/anchor"
	"github.com/chazu/mate/pkg/kernel"
)

var (
	// ErrUnknownAnchor is returned when a part has no anchor of the
	// requested name.
	ErrUnknownAnchor = errors.New("unknown anchor")

	// ErrDuplicateAnchor is returned when an anchor name is registered
	// twice on the same part.
	ErrDuplicateAnchor = errors.New("duplicate anchor")
)

// AnchorablePart is a Part with named anchors expressed in the part's own
// (unplaced) coordinates.
type AnchorablePart struct {
	*Part
	anchors map[string]anchor.Anchor
	order   []string
}

// NewAnchorable creates a part carrying the given anchors. Anchor names
// must be unique.
func NewAnchorable(name string, shape kernel.Solid, anchors ...anchor.Anchor) (*AnchorablePart, error) {
	ap := &AnchorablePart{
		Part:    New(name, shape),
		anchors: make(map[string]anchor.Anchor, len(anchors)),
	}
	for _, a := range anchors {
		if err := ap.AddAnchor(a); err != nil {
			return nil, err
		}
	}
	return ap, nil
}

// AddAnchor registers a new anchor in part coordinates.
func (ap *AnchorablePart) AddAnchor(a anchor.Anchor) error {
	if _, ok := ap.anchors[a.Name()]; ok {
		return fmt.Errorf("part %q: anchor %q: %w", ap.Name(), a.Name(), ErrDuplicateAnchor)
	}
	ap.anchors[a.Name()] = a
	ap.order = append(ap.order, a.Name())
	return nil
}

// HasAnchor reports whether an anchor named name exists.
func (ap *AnchorablePart) HasAnchor(name string) bool {
	_, ok := ap.anchors[name]
	return ok
}

// AnchorNames returns anchor names in registration order.
func (ap *AnchorablePart) AnchorNames() []string {
	return append([]string(nil), ap.order...)
}

// Anchor returns the named anchor in part coordinates.
func (ap *AnchorablePart) Anchor(name string) (anchor.Anchor, error) {
	a, ok := ap.anchors[name]
	if !ok {
		return anchor.Anchor{}, fmt.Errorf("part %q: anchor %q: %w", ap.Name(), name, ErrUnknownAnchor)
	}
	return a, nil
}

// Anchors returns all anchors in part coordinates, in registration order.
func (ap *AnchorablePart) Anchors() []anchor.Anchor {
	out := make([]anchor.Anchor, 0, len(ap.order))
	for _, name := range ap.order {
		out = append(out, ap.anchors[name])
	}
	return out
}

// PositionedAnchor returns the named anchor carried through the combined
// transform, i.e. in world coordinates.
func (ap *AnchorablePart) PositionedAnchor(name string) (anchor.Anchor, error) {
	a, err := ap.Anchor(name)
	if err != nil {
		return anchor.Anchor{}, err
	}
	return a.Transform(ap.CombinedTransform()), nil
}

// PositionedAnchors returns every anchor in world coordinates, in
// registration order.
func (ap *AnchorablePart) PositionedAnchors() []anchor.Anchor {
	m := ap.CombinedTransform()
	out := make([]anchor.Anchor, 0, len(ap.order))
	for _, name := range ap.order {
		out = append(out, ap.anchors[name].Transform(m))
	}
	return out
}

// Positioned returns a new part whose shape and anchors are already placed
// and whose history is empty. The receiver is not modified.
func (ap *AnchorablePart) Positioned(t kernel.Transformer) *AnchorablePart {
	out := &AnchorablePart{
		Part:    New(ap.Name(), ap.PositionedShape(t)),
		anchors: make(map[string]anchor.Anchor, len(ap.anchors)),
		order:   append([]string(nil), ap.order...),
	}
	for _, a := range ap.PositionedAnchors() {
		out.anchors[a.Name()] = a
	}
	return out
}
