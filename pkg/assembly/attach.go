package assembly

import (
	"fmt"

	"github.com/chazu/mate/pkg/align"
	"github.com/chazu/mate/pkg/link"
	"github.com/chazu/mate/pkg/part"
)

// AttachRequest places Child against one or more receiving parts. The
// anchor, parent and link lists are parallel: entry i mates
// ChildAnchors[i] onto ParentAnchors[i] of Parents[i] with Links[i].
type AttachRequest struct {
	Child         *part.AnchorablePart
	ChildAnchors  []string
	Parents       []*part.AnchorablePart
	ParentAnchors []string
	Links         []link.Link
}

// AssemblyRequest relocates every member of Child onto the receiving
// assembly. ChildAnchors name anchors of Child, ParentAnchors anchors of
// the receiver.
type AssemblyRequest struct {
	Child         *Assembly
	ChildAnchors  []string
	ParentAnchors []string
	Links         []link.Link
}

// Attach mates childAnchor of child onto parentAnchor of parent, offset by
// l, and makes child a member. l is expressed in the frame of the parent's
// positioned anchor whatever anchor it was built with.
func (a *Assembly) Attach(child *part.AnchorablePart, childAnchor string, parent *part.AnchorablePart, parentAnchor string, l link.Link) error {
	return a.AttachParts(AttachRequest{
		Child:         child,
		ChildAnchors:  []string{childAnchor},
		Parents:       []*part.AnchorablePart{parent},
		ParentAnchors: []string{parentAnchor},
		Links:         []link.Link{l},
	})
}

// AttachParts is the batched form of Attach. All arguments are checked
// before the child is modified. Repeating a call compounds the placement.
func (a *Assembly) AttachParts(req AttachRequest) error {
	if err := checkArity(len(req.ChildAnchors), len(req.Parents), len(req.ParentAnchors), len(req.Links)); err != nil {
		return fmt.Errorf("assembly %q: attach: %w", a.name, err)
	}
	if req.Child == nil {
		return fmt.Errorf("assembly %q: attach: child: %w", a.name, ErrNilPart)
	}
	for i, p := range req.Parents {
		if p == nil {
			return fmt.Errorf("assembly %q: attach: parent %d: %w", a.name, i, ErrNilPart)
		}
	}

	pairs := make([]align.Pair, len(req.ChildAnchors))
	for i := range req.ChildAnchors {
		src, err := req.Child.PositionedAnchor(req.ChildAnchors[i])
		if err != nil {
			return fmt.Errorf("assembly %q: attach: %w", a.name, err)
		}
		dst, err := req.Parents[i].PositionedAnchor(req.ParentAnchors[i])
		if err != nil {
			return fmt.Errorf("assembly %q: attach: %w", a.name, err)
		}
		pairs[i] = align.Pair{Source: src, Target: dst, Link: req.Links[i].On(dst)}
	}
	for _, p := range req.Parents {
		if !a.Contains(p) {
			return fmt.Errorf("assembly %q: attach onto %q: %w", a.name, p.Name(), ErrNotMember)
		}
		if p == req.Child {
			return fmt.Errorf("assembly %q: part %q: %w", a.name, p.Name(), ErrSelfAttachment)
		}
	}

	pl, err := a.plan(pairs)
	if err != nil {
		return err
	}

	relocate(req.Child, pl)
	a.addMember(req.Child)

	pr := pairs[0]
	j := newJoint(PartJoint, req.Child.Name(), req.Parents[0].Name(), pr, pl)
	a.joints = append(a.joints, j)
	a.logger.Debug("attached part",
		"assembly", a.name,
		"child", j.Child, "anchor", j.ChildAnchor,
		"parent", j.Parent, "onto", j.ParentAnchor,
		"joint", j.ID)
	return nil
}

// AttachAssembly relocates every member of child as one rigid unit so that
// child's anchor childAnchor mates onto the receiver's anchor parentAnchor,
// offset by l. The two assemblies keep separate member lists.
func (a *Assembly) AttachAssembly(child *Assembly, childAnchor, parentAnchor string, l link.Link) error {
	return a.AttachAssemblies(AssemblyRequest{
		Child:         child,
		ChildAnchors:  []string{childAnchor},
		ParentAnchors: []string{parentAnchor},
		Links:         []link.Link{l},
	})
}

// AttachAssemblies is the batched form of AttachAssembly.
func (a *Assembly) AttachAssemblies(req AssemblyRequest) error {
	if err := checkArity(len(req.ChildAnchors), len(req.ParentAnchors), len(req.Links)); err != nil {
		return fmt.Errorf("assembly %q: attach assembly: %w", a.name, err)
	}
	if req.Child == nil {
		return fmt.Errorf("assembly %q: attach assembly: %w", a.name, ErrNilPart)
	}

	pairs := make([]align.Pair, len(req.ChildAnchors))
	for i := range req.ChildAnchors {
		src, err := req.Child.Anchor(req.ChildAnchors[i])
		if err != nil {
			return fmt.Errorf("assembly %q: attach assembly: %w", a.name, err)
		}
		dst, err := a.Anchor(req.ParentAnchors[i])
		if err != nil {
			return fmt.Errorf("assembly %q: attach assembly: %w", a.name, err)
		}
		pairs[i] = align.Pair{Source: src, Target: dst, Link: req.Links[i].On(dst)}
	}
	if req.Child == a {
		return fmt.Errorf("assembly %q: %w", a.name, ErrSelfAttachment)
	}
	for _, m := range req.Child.members {
		if a.Contains(m) {
			return fmt.Errorf("assembly %q: part %q belongs to both assemblies: %w", a.name, m.Name(), ErrSelfAttachment)
		}
	}

	pl, err := a.plan(pairs)
	if err != nil {
		return err
	}

	for _, m := range req.Child.members {
		relocate(m, pl)
	}

	j := newJoint(AssemblyJoint, req.Child.name, a.name, pairs[0], pl)
	a.joints = append(a.joints, j)
	a.logger.Debug("attached assembly",
		"assembly", a.name,
		"child", j.Child, "anchor", j.ChildAnchor,
		"onto", j.ParentAnchor,
		"parts", len(req.Child.members),
		"joint", j.ID)
	return nil
}

// plan validates the links and hands the pairs to the strategy.
func (a *Assembly) plan(pairs []align.Pair) (align.Placement, error) {
	for _, pr := range pairs {
		if err := pr.Link.Validate(); err != nil {
			return align.Placement{}, fmt.Errorf("assembly %q: %w", a.name, err)
		}
	}
	pl, err := a.strategy.Plan(pairs)
	if err != nil {
		return align.Placement{}, fmt.Errorf("assembly %q: %w", a.name, err)
	}
	return pl, nil
}

func checkArity(lengths ...int) error {
	for _, n := range lengths[1:] {
		if n != lengths[0] {
			return fmt.Errorf("parallel lists have lengths %v: %w", lengths, ErrArityMismatch)
		}
	}
	return nil
}
