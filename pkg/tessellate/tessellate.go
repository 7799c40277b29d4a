// Package tessellate turns the parts of a design into triangle meshes
// using a geometry kernel. One mesh is produced per part, in world
// coordinates.
package tessellate

import (
	"fmt"

	"github.com/chazu/mate/pkg/design"
	"github.com/chazu/mate/pkg/kernel"
	"github.com/chazu/mate/pkg/part"
)

// Tessellate produces one triangle mesh per part that carries a shape.
// Each shape is moved by its part's combined transform before meshing.
// Parts without a shape (anchor-only parts) are skipped. The tessellator
// is read-only and never mutates the design.
func Tessellate(d *design.Design, k kernel.Kernel) ([]*kernel.Mesh, error) {
	if d == nil {
		return nil, nil
	}
	if k == nil {
		return nil, fmt.Errorf("tessellate: no geometry kernel")
	}

	var meshes []*kernel.Mesh
	for _, p := range d.Parts() {
		mesh, err := Part(p, k)
		if err != nil {
			return nil, err
		}
		if mesh == nil {
			continue
		}
		if owner := d.Owner(p); owner != nil {
			mesh.Assembly = owner.Name()
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// Part meshes a single part at its current pose. It returns nil when the
// part has no shape.
func Part(p *part.AnchorablePart, k kernel.Kernel) (*kernel.Mesh, error) {
	solid := p.PositionedShape(k)
	if solid == nil {
		return nil, nil
	}
	mesh, err := k.ToMesh(solid)
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for part %q: %w", p.Name(), err)
	}
	mesh.PartName = p.Name()
	return mesh, nil
}
