package export

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/mate/pkg/anchor"
	"github.com/chazu/mate/pkg/assembly"
	"github.com/chazu/mate/pkg/design"
	"github.com/chazu/mate/pkg/kernel"
	"github.com/chazu/mate/pkg/link"
	"github.com/chazu/mate/pkg/part"
)

func triangle(name string) *kernel.Mesh {
	return &kernel.Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Normals:  []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices:  []uint32{0, 1, 2},
		PartName: name,
	}
}

func TestWriteSTL(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSTL(&buf, []*kernel.Mesh{triangle("a"), triangle("b")}); err != nil {
		t.Fatalf("WriteSTL: %v", err)
	}
	b := buf.Bytes()
	if len(b) != 84+2*50 {
		t.Fatalf("STL size = %d, want %d", len(b), 84+2*50)
	}
	if !strings.HasPrefix(string(b[:80]), stlHeader) {
		t.Errorf("header = %q", b[:80])
	}
	if n := binary.LittleEndian.Uint32(b[80:84]); n != 2 {
		t.Errorf("triangle count = %d, want 2", n)
	}
	nz := math.Float32frombits(binary.LittleEndian.Uint32(b[84+8:]))
	if nz != 1 {
		t.Errorf("facet normal z = %g, want 1", nz)
	}
	vx := math.Float32frombits(binary.LittleEndian.Uint32(b[84+24:]))
	if vx != 1 {
		t.Errorf("second vertex x = %g, want 1", vx)
	}
}

func TestWriteSTLErrors(t *testing.T) {
	tests := []struct {
		name string
		mesh *kernel.Mesh
	}{
		{"ragged indices", &kernel.Mesh{Vertices: []float32{0, 0, 0}, Indices: []uint32{0, 0}}},
		{"index out of range", &kernel.Mesh{Vertices: []float32{0, 0, 0}, Indices: []uint32{0, 0, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteSTL(&buf, []*kernel.Mesh{tt.mesh}); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestFacetNormalDegenerate(t *testing.T) {
	n := facetNormal([3][3]float32{{1, 1, 1}, {1, 1, 1}, {2, 2, 2}})
	if n != [3]float32{} {
		t.Errorf("degenerate normal = %v, want zero", n)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	err := WriteJSON(&buf, []*kernel.Mesh{triangle("plate")}, map[string]string{"plate": "red"})
	if err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var got MeshFile
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got.Meshes) != 1 || got.Meshes[0].PartName != "plate" {
		t.Errorf("unexpected meshes: %+v", got.Meshes)
	}
	if got.Colors["plate"] != "red" {
		t.Errorf("colors = %v", got.Colors)
	}

	buf.Reset()
	if err := WriteJSON(&buf, nil, nil); err != nil {
		t.Fatalf("WriteJSON(nil): %v", err)
	}
	if !strings.Contains(buf.String(), `"meshes": []`) {
		t.Errorf("empty export should contain an empty mesh list, got %s", buf.String())
	}
}

// stackDesign builds two stacked parts in one assembly, a second assembly
// attached to it, and one free part.
func stackDesign(t *testing.T) *design.Design {
	t.Helper()
	mk := func(name string) *part.AnchorablePart {
		p, err := part.NewAnchorable(name, nil,
			anchor.MustNew("top", mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{1, 0, 0}),
			anchor.MustNew("bottom", mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 0, -1}, mgl64.Vec3{1, 0, 0}),
		)
		if err != nil {
			t.Fatal(err)
		}
		return p
	}
	d := design.New()
	base, lid, foot, loose := mk("base"), mk("lid"), mk("foot"), mk("loose")
	for _, p := range []*part.AnchorablePart{base, lid, foot, loose} {
		if err := d.AddPart(p, design.SourceRef{}); err != nil {
			t.Fatal(err)
		}
	}
	d.SetColor("base", "tan")

	stack := assembly.New("stack", base)
	if err := stack.Attach(lid, "bottom", base, "top", link.Link{}); err != nil {
		t.Fatal(err)
	}
	stand := assembly.New("stand", foot)
	if err := stand.AttachAssembly(stack, "bottom", "top", link.Link{}); err != nil {
		t.Fatal(err)
	}
	for _, a := range []*assembly.Assembly{stack, stand} {
		if err := d.AddAssembly(a, design.SourceRef{}); err != nil {
			t.Fatal(err)
		}
	}
	return d
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(stackDesign(t))

	for _, want := range []string{
		"digraph mate {",
		`label="stack";`,
		`label="stand";`,
		`"base" [fillcolor="tan", penwidth=2];`,
		`"lid" -> "base" [label="bottom → top"];`,
		`"base" -> "foot" [label="stack: bottom → top", style=dashed];`,
		`  "loose";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), ToDOT(stackDesign(t)))
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Errorf("output does not look like SVG: %.80s", svg)
	}
}
