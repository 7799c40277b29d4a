package export

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/chazu/mate/pkg/kernel"
)

// stlHeader is written into the 80 byte header of every STL file.
const stlHeader = "mate binary STL"

// WriteSTL writes all meshes as one binary STL solid. Facet normals are
// computed from the triangle winding.
func WriteSTL(w io.Writer, meshes []*kernel.Mesh) error {
	var count uint32
	for _, m := range meshes {
		if len(m.Indices)%3 != 0 {
			return fmt.Errorf("export: mesh %q: index count %d is not a multiple of 3", m.PartName, len(m.Indices))
		}
		count += uint32(m.TriangleCount())
	}

	bw := bufio.NewWriter(w)
	var header [80]byte
	copy(header[:], stlHeader)
	if _, err := bw.Write(header[:]); err != nil {
		return fmt.Errorf("export: write STL header: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, count); err != nil {
		return fmt.Errorf("export: write STL header: %w", err)
	}

	var facet [50]byte
	for _, m := range meshes {
		nv := uint32(m.VertexCount())
		for t := 0; t < len(m.Indices); t += 3 {
			var tri [3][3]float32
			for j := 0; j < 3; j++ {
				idx := m.Indices[t+j]
				if idx >= nv {
					return fmt.Errorf("export: mesh %q: index %d out of range (%d vertices)", m.PartName, idx, nv)
				}
				copy(tri[j][:], m.Vertices[idx*3:idx*3+3])
			}
			n := facetNormal(tri)
			off := 0
			for _, v := range [4][3]float32{n, tri[0], tri[1], tri[2]} {
				for _, f := range v {
					binary.LittleEndian.PutUint32(facet[off:], math.Float32bits(f))
					off += 4
				}
			}
			// Attribute byte count stays zero.
			if _, err := bw.Write(facet[:]); err != nil {
				return fmt.Errorf("export: write STL facet: %w", err)
			}
		}
	}
	return bw.Flush()
}

// facetNormal returns the unit normal of a counter-clockwise triangle, or
// the zero vector for a degenerate one.
func facetNormal(tri [3][3]float32) [3]float32 {
	var e1, e2 [3]float64
	for i := 0; i < 3; i++ {
		e1[i] = float64(tri[1][i] - tri[0][i])
		e2[i] = float64(tri[2][i] - tri[0][i])
	}
	n := [3]float64{
		e1[1]*e2[2] - e1[2]*e2[1],
		e1[2]*e2[0] - e1[0]*e2[2],
		e1[0]*e2[1] - e1[1]*e2[0],
	}
	l := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
	if l == 0 {
		return [3]float32{}
	}
	return [3]float32{float32(n[0] / l), float32(n[1] / l), float32(n[2] / l)}
}
