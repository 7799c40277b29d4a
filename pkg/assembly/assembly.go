package assembly

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/chazu/mate/pkg/align"
	"github.com/chazu/mate/pkg/anchor"
	"github.com/chazu/mate/pkg/part"
)

var (
	// ErrArityMismatch is returned when the parallel lists of a batched
	// request differ in length.
	ErrArityMismatch = errors.New("arity mismatch")

	// ErrNotMember is returned when the receiving part does not belong to
	// the assembly.
	ErrNotMember = errors.New("part is not a member of the assembly")

	// ErrSelfAttachment is returned when a part or assembly is attached
	// onto itself.
	ErrSelfAttachment = errors.New("cannot attach onto itself")

	// ErrAmbiguousAnchor is returned in strict mode when an anchor name is
	// carried by more than one member.
	ErrAmbiguousAnchor = errors.New("ambiguous anchor")

	// ErrNilPart is returned when a nil part or assembly is passed in.
	ErrNilPart = errors.New("nil part")
)

// Assembly is a named, ordered collection of anchorable parts rooted at one
// part. It is not safe for concurrent use.
type Assembly struct {
	name     string
	root     *part.AnchorablePart
	members  []*part.AnchorablePart
	joints   []Joint
	strategy align.Strategy
	strict   bool
	logger   *log.Logger
}

// Option configures an Assembly.
type Option func(*Assembly)

// WithStrategy sets how anchor pairs are turned into a placement. The
// default is align.SinglePair with the SVD method.
func WithStrategy(s align.Strategy) Option {
	return func(a *Assembly) {
		if s != nil {
			a.strategy = s
		}
	}
}

// WithLogger sets the logger used for attachment tracing.
func WithLogger(l *log.Logger) Option {
	return func(a *Assembly) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithStrictAnchors makes assembly-level anchor lookups fail with
// ErrAmbiguousAnchor when several members carry the same anchor name,
// instead of the last member winning.
func WithStrictAnchors() Option {
	return func(a *Assembly) { a.strict = true }
}

// New creates an assembly whose only member is root. It panics if root is
// nil.
func New(name string, root *part.AnchorablePart, opts ...Option) *Assembly {
	if root == nil {
		panic("assembly: nil root part")
	}
	a := &Assembly{
		name:     name,
		root:     root,
		members:  []*part.AnchorablePart{root},
		strategy: align.SinglePair{},
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the assembly name.
func (a *Assembly) Name() string { return a.name }

// Root returns the root part.
func (a *Assembly) Root() *part.AnchorablePart { return a.root }

// Members returns the member parts in attachment order, root first.
func (a *Assembly) Members() []*part.AnchorablePart {
	return append([]*part.AnchorablePart(nil), a.members...)
}

// Contains reports whether p is a member.
func (a *Assembly) Contains(p *part.AnchorablePart) bool {
	for _, m := range a.members {
		if m == p {
			return true
		}
	}
	return false
}

// Joints returns the attachment records in the order they were made.
func (a *Assembly) Joints() []Joint {
	return append([]Joint(nil), a.joints...)
}

// Strict reports whether anchor lookups reject ambiguous names.
func (a *Assembly) Strict() bool { return a.strict }

// Anchors returns the union of all members' positioned anchors. Members
// are visited in order; when two members share an anchor name the later
// one wins, keeping the position of the first occurrence in the result.
// In strict mode a shared name fails with ErrAmbiguousAnchor.
func (a *Assembly) Anchors() ([]anchor.Anchor, error) {
	index := make(map[string]int)
	var out []anchor.Anchor
	for _, m := range a.members {
		for _, pa := range m.PositionedAnchors() {
			i, seen := index[pa.Name()]
			if !seen {
				index[pa.Name()] = len(out)
				out = append(out, pa)
				continue
			}
			if a.strict {
				return nil, fmt.Errorf("assembly %q: anchor %q: %w", a.name, pa.Name(), ErrAmbiguousAnchor)
			}
			out[i] = pa
		}
	}
	return out, nil
}

// Anchor returns the positioned anchor called name, using the same
// collision policy as Anchors.
func (a *Assembly) Anchor(name string) (anchor.Anchor, error) {
	var (
		found anchor.Anchor
		owner string
		hits  int
	)
	for _, m := range a.members {
		if !m.HasAnchor(name) {
			continue
		}
		pa, err := m.PositionedAnchor(name)
		if err != nil {
			return anchor.Anchor{}, err
		}
		found, owner = pa, m.Name()
		hits++
	}
	switch {
	case hits == 0:
		return anchor.Anchor{}, fmt.Errorf("assembly %q: anchor %q: %w", a.name, name, part.ErrUnknownAnchor)
	case hits > 1 && a.strict:
		return anchor.Anchor{}, fmt.Errorf("assembly %q: anchor %q on %d members: %w", a.name, name, hits, ErrAmbiguousAnchor)
	case hits > 1:
		a.logger.Debug("anchor shadowed", "assembly", a.name, "anchor", name, "owner", owner)
	}
	return found, nil
}

// Collisions maps every anchor name carried by more than one member to
// the names of those members, in member order.
func (a *Assembly) Collisions() map[string][]string {
	owners := make(map[string][]string)
	for _, m := range a.members {
		for _, name := range m.AnchorNames() {
			owners[name] = append(owners[name], m.Name())
		}
	}
	for name, parts := range owners {
		if len(parts) < 2 {
			delete(owners, name)
		}
	}
	return owners
}

func (a *Assembly) addMember(p *part.AnchorablePart) {
	if !a.Contains(p) {
		a.members = append(a.members, p)
	}
}

// relocate makes pl the new outermost placement of p.
func relocate(p *part.AnchorablePart, pl align.Placement) {
	p.PrependTransform(pl.Align)
	p.PrependTransform(pl.Offset)
}
