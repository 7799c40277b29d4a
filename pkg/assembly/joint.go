package assembly

import (
	"github.com/google/uuid"

	"github.com/chazu/mate/pkg/align"
	"github.com/chazu/mate/pkg/link"
)

// JointKind tells part attachments from assembly relocations.
type JointKind int

const (
	PartJoint JointKind = iota
	AssemblyJoint
)

func (k JointKind) String() string {
	if k == AssemblyJoint {
		return "assembly"
	}
	return "part"
}

// Joint records one successful attachment. For assembly joints Child and
// Parent are assembly names.
type Joint struct {
	ID           uuid.UUID
	Kind         JointKind
	Child        string
	ChildAnchor  string
	Parent       string
	ParentAnchor string
	Link         link.Link
	Placement    align.Placement
}

func newJoint(kind JointKind, child, parent string, pr align.Pair, pl align.Placement) Joint {
	return Joint{
		ID:           uuid.New(),
		Kind:         kind,
		Child:        child,
		ChildAnchor:  pr.Source.Name(),
		Parent:       parent,
		ParentAnchor: pr.Target.Name(),
		Link:         pr.Link,
		Placement:    pl,
	}
}
