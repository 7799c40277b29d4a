//go:build manifold

// Package manifold binds the Manifold C library (manifoldc) as a mate
// geometry kernel. Booleans are guaranteed to produce manifold meshes,
// which makes it the better choice for STL export of hollowed parts.
//
// manifoldc must be installed under /usr/local. Build with:
//
//	go build -tags=manifold
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/mate/pkg/kernel"
)

// Compile-time interface checks.
var _ kernel.Kernel = (*ManifoldKernel)(nil)
var _ kernel.Solid = (*manifoldSolid)(nil)

// manifoldSolid wraps a C ManifoldManifold pointer and implements kernel.Solid.
type manifoldSolid struct {
	ptr *C.ManifoldManifold
}

// BoundingBox returns the axis-aligned bounding box of the solid.
func (s *manifoldSolid) BoundingBox() (min, max [3]float64) {
	alloc := C.manifold_alloc_box()
	bbox := C.manifold_bounding_box(alloc, s.ptr)
	defer C.manifold_delete_box(bbox)

	min[0] = float64(C.manifold_box_min_x(bbox))
	min[1] = float64(C.manifold_box_min_y(bbox))
	min[2] = float64(C.manifold_box_min_z(bbox))
	max[0] = float64(C.manifold_box_max_x(bbox))
	max[1] = float64(C.manifold_box_max_y(bbox))
	max[2] = float64(C.manifold_box_max_z(bbox))
	return min, max
}

// newSolid wraps ptr and frees it when the solid is collected.
func newSolid(ptr *C.ManifoldManifold) *manifoldSolid {
	s := &manifoldSolid{ptr: ptr}
	runtime.SetFinalizer(s, func(s *manifoldSolid) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

// defaultSegments is used when a cylinder asks for fewer than three.
const defaultSegments = 32

// ManifoldKernel implements kernel.Kernel using the Manifold C library.
type ManifoldKernel struct{}

// New creates a new ManifoldKernel. Returns an error if the Manifold
// C library cannot be initialized.
func New() (kernel.Kernel, error) {
	return &ManifoldKernel{}, nil
}

// Box creates an axis-aligned box with the given dimensions and its
// minimum corner at the origin.
func (k *ManifoldKernel) Box(x, y, z float64) kernel.Solid {
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_cube(alloc,
		C.double(x), C.double(y), C.double(z),
		C.int(0), // center=false
	)
	return newSolid(ptr)
}

// Cylinder creates a cylinder along the Z axis with the given height,
// radius, and number of circular segments. The base sits on the XY plane.
func (k *ManifoldKernel) Cylinder(height, radius float64, segments int) kernel.Solid {
	if segments < 3 {
		segments = defaultSegments
	}
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_cylinder(alloc,
		C.double(height),
		C.double(radius), // radius_low
		C.double(radius), // radius_high (same = not tapered)
		C.int(segments),
		C.int(0), // center=false
	)
	return newSolid(ptr)
}

func unwrap(s kernel.Solid) *C.ManifoldManifold {
	return s.(*manifoldSolid).ptr
}

// Union returns the boolean union of two solids.
func (k *ManifoldKernel) Union(a, b kernel.Solid) kernel.Solid {
	return newSolid(C.manifold_union(C.manifold_alloc_manifold(), unwrap(a), unwrap(b)))
}

// Difference returns a minus b.
func (k *ManifoldKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return newSolid(C.manifold_difference(C.manifold_alloc_manifold(), unwrap(a), unwrap(b)))
}

// Intersection returns the boolean intersection of two solids.
func (k *ManifoldKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return newSolid(C.manifold_intersection(C.manifold_alloc_manifold(), unwrap(a), unwrap(b)))
}

// Translate moves the solid by (x, y, z).
func (k *ManifoldKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return newSolid(C.manifold_translate(C.manifold_alloc_manifold(), unwrap(s),
		C.double(x), C.double(y), C.double(z)))
}

// Transform applies an affine transform. manifoldc takes the upper 3x4
// block column by column, which is mgl64's storage order.
func (k *ManifoldKernel) Transform(s kernel.Solid, m mgl64.Mat4) kernel.Solid {
	return newSolid(C.manifold_transform(C.manifold_alloc_manifold(), unwrap(s),
		C.double(m[0]), C.double(m[1]), C.double(m[2]),
		C.double(m[4]), C.double(m[5]), C.double(m[6]),
		C.double(m[8]), C.double(m[9]), C.double(m[10]),
		C.double(m[12]), C.double(m[13]), C.double(m[14]),
	))
}

// Rotate rotates the solid by Euler angles in degrees, X first, then Y,
// then Z.
func (k *ManifoldKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return newSolid(C.manifold_rotate(C.manifold_alloc_manifold(), unwrap(s),
		C.double(x), C.double(y), C.double(z)))
}

// ToMesh extracts the MeshGL of a solid. Positions are the first three
// vertex properties and normals, when present, the next three.
func (k *ManifoldKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	meshGL := C.manifold_get_meshgl(C.manifold_alloc_meshgl(), unwrap(s))
	defer C.manifold_delete_meshgl(meshGL)

	numVert := int(C.manifold_meshgl_num_vert(meshGL))
	numTri := int(C.manifold_meshgl_num_tri(meshGL))
	if numVert == 0 || numTri == 0 {
		return &kernel.Mesh{}, nil
	}
	numProp := int(C.manifold_meshgl_num_prop(meshGL))
	if numProp < 3 {
		return nil, fmt.Errorf("manifold: mesh has %d vertex properties, need at least 3", numProp)
	}

	props := make([]float32, numVert*numProp)
	C.manifold_meshgl_vert_properties((*C.float)(unsafe.Pointer(&props[0])), meshGL)
	indices := make([]uint32, numTri*3)
	C.manifold_meshgl_tri_verts((*C.uint32_t)(unsafe.Pointer(&indices[0])), meshGL)

	hasNormals := numProp >= 6
	vertices := make([]float32, 0, numVert*3)
	normals := make([]float32, 0, numVert*3)
	for i := 0; i < numVert; i++ {
		row := props[i*numProp : (i+1)*numProp]
		vertices = append(vertices, row[0], row[1], row[2])
		if hasNormals {
			normals = append(normals, row[3], row[4], row[5])
		}
	}
	if !hasNormals {
		normals = vertexNormals(vertices, indices)
	}

	mesh := &kernel.Mesh{Vertices: vertices, Normals: normals, Indices: indices}
	if mesh.VertexCount() != numVert {
		return nil, fmt.Errorf("manifold: vertex count mismatch: got %d, expected %d", mesh.VertexCount(), numVert)
	}
	return mesh, nil
}

// vertexNormals averages the area-weighted face normals around each
// vertex.
func vertexNormals(vertices []float32, indices []uint32) []float32 {
	at := func(i uint32) mgl64.Vec3 {
		return mgl64.Vec3{float64(vertices[i*3]), float64(vertices[i*3+1]), float64(vertices[i*3+2])}
	}
	sums := make([]mgl64.Vec3, len(vertices)/3)
	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := indices[t], indices[t+1], indices[t+2]
		a := at(i0)
		n := at(i1).Sub(a).Cross(at(i2).Sub(a))
		for _, i := range []uint32{i0, i1, i2} {
			sums[i] = sums[i].Add(n)
		}
	}
	out := make([]float32, 0, len(vertices))
	for _, n := range sums {
		if n.Len() > 1e-12 {
			n = n.Normalize()
		}
		out = append(out, float32(n[0]), float32(n[1]), float32(n[2]))
	}
	return out
}
