package align

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/mate/pkg/anchor"
	"github.com/chazu/mate/pkg/link"
)

var (
	// ErrUnderconstrainedNotSupported is returned when a placement asks for
	// more than one anchor pair. Solving multi-anchor placement is a
	// constraint problem that no strategy implements yet.
	ErrUnderconstrainedNotSupported = errors.New("multi-anchor placement not supported")

	// ErrNoPairs is returned when a placement has no anchor pair at all.
	ErrNoPairs = errors.New("no anchor pair given")
)

// Solver aligns anchors with a fixed registration method.
type Solver struct {
	Method Method
}

// Align returns the rigid transform moving source's mating points onto
// target's receiving points.
func (s Solver) Align(source, target anchor.Anchor) (mgl64.Mat4, error) {
	m, err := Superimpose(source.MatingPoints(), target.ReceivingPoints(), s.Method)
	if err != nil {
		return mgl64.Mat4{}, fmt.Errorf("align %q onto %q: %w", source.Name(), target.Name(), err)
	}
	return m, nil
}

// Align mates source onto target with the default SVD method.
func Align(source, target anchor.Anchor) (mgl64.Mat4, error) {
	return Solver{Method: MethodSVD}.Align(source, target)
}

// Pair is one anchor-to-anchor constraint: Source is the (positioned)
// anchor of the moving part, Target the (positioned) anchor it mates with,
// and Link the offset applied once mated.
type Pair struct {
	Source anchor.Anchor
	Target anchor.Anchor
	Link   link.Link
}

// Placement is the outcome of a strategy: Align mates the frames, Offset
// is the link applied on top of it.
type Placement struct {
	Align  mgl64.Mat4
	Offset mgl64.Mat4
}

// Matrix returns the combined placement, the offset applied last.
func (p Placement) Matrix() mgl64.Mat4 {
	return p.Offset.Mul4(p.Align)
}

// Strategy turns a set of anchor pairs into a placement.
type Strategy interface {
	Plan(pairs []Pair) (Placement, error)
}

// SinglePair handles exactly one anchor pair.
type SinglePair struct {
	Solver Solver
}

// Plan aligns the only pair and evaluates its link.
func (s SinglePair) Plan(pairs []Pair) (Placement, error) {
	switch {
	case len(pairs) == 0:
		return Placement{}, ErrNoPairs
	case len(pairs) > 1:
		return Placement{}, fmt.Errorf("%d anchor pairs requested: %w", len(pairs), ErrUnderconstrainedNotSupported)
	}
	pr := pairs[0]
	m, err := s.Solver.Align(pr.Source, pr.Target)
	if err != nil {
		return Placement{}, err
	}
	return Placement{Align: m, Offset: pr.Link.Matrix()}, nil
}

var _ Strategy = SinglePair{}
