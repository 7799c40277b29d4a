// Package kernel defines the abstract geometry kernel interface.
// Implementations (sdfx, manifold) provide solid modeling and
// boolean operations behind this interface. Parts only ever hold a
// Solid; placing them in the world goes through Transformer.
package kernel

import "github.com/go-gl/mathgl/mgl64"

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Transformer applies a rigid 4x4 transform (column vectors, mgl64
// layout) to a solid, returning a new solid.
type Transformer interface {
	Transform(s Solid, m mgl64.Mat4) Solid
}

// Kernel is the abstract geometry kernel interface.
// Boxes have their minimum corner at the origin; cylinders stand on the
// XY plane, centered on the Z axis.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64, segments int) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Transformer
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
