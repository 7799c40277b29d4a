package engine

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/mate/pkg/anchor"
	"github.com/chazu/mate/pkg/assembly"
	"github.com/chazu/mate/pkg/design"
	"github.com/chazu/mate/pkg/kernel/sdfx"
	"github.com/chazu/mate/pkg/part"
	"github.com/chazu/mate/pkg/xform"
)

const tol = 1e-9

// boxOnBox stacks a second box on the first, flipped, with its top pushed
// one unit into the first box's top.
const boxOnBox = `
(defn cube [name]
  (defpart name (box 10 10 10)
    (anchor "top" (vec3 5 5 10) (vec3 0 0 1) (vec3 0 1 0))
    (anchor "bottom" :p (vec3 5 5 0) :u (vec3 0 0 -1) :v (vec3 0 1 0))))

(def box1 (cube "box1"))
(def box2 (cube "box2"))
(def stack (assembly "stack" box1))
(attach stack box2 "top" box1 "top" (link :tx -1))
`

func mustEval(t *testing.T, eng *Engine, source string) *design.Design {
	t.Helper()
	d, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if d == nil {
		t.Fatal("expected non-nil design")
	}
	return d
}

func mustFail(t *testing.T, source string) EvalError {
	t.Helper()
	d, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if d != nil {
		t.Fatal("expected nil design")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected an eval error")
	}
	return evalErrs[0]
}

func positionedAt(t *testing.T, p *part.AnchorablePart, name string) mgl64.Vec3 {
	t.Helper()
	a, err := p.PositionedAnchor(name)
	if err != nil {
		t.Fatalf("anchor %q: %v", name, err)
	}
	return a.P()
}

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(defpart "a" :color "red")`,
			expect: `(defpart "a" "__kw_color" "red")`,
		},
		{
			name:   "multiple keywords",
			input:  `(link :tx 1 :rz 0.5)`,
			expect: `(link "__kw_tx" 1 "__kw_rz" 0.5)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(attach-assembly top sub "a" "b")`,
			expect: `(attach_assembly top sub "a" "b")`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative literal preserved",
			input:  `(link :tx -1)`,
			expect: `(link "__kw_tx" -1)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:head-dia`,
			expect: `"__kw_head-dia"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Part definition
// ---------------------------------------------------------------------------

func TestDefpartRegistersAnchors(t *testing.T) {
	d := mustEval(t, NewEngine(), `
(defpart "plate" (box 20 10 2)
  (anchor "center" (vec3 10 5 2) (vec3 0 0 1) (vec3 1 0 0))
  (anchor "edge" (vec3 20 5 1) (vec3 1 0 0) (vec3 0 0 1))
  :color "steelblue")
`)
	p := d.Part("plate")
	if p == nil {
		t.Fatal("expected part named 'plate'")
	}
	if got := p.AnchorNames(); len(got) != 2 || got[0] != "center" || got[1] != "edge" {
		t.Errorf("anchor names = %v, want [center edge]", got)
	}
	if p.Len() != 0 {
		t.Errorf("new part should have an empty history, got %d", p.Len())
	}
	if c, ok := d.Color("plate"); !ok || c != "steelblue" {
		t.Errorf("color = %q, %v; want steelblue", c, ok)
	}
	// Without a kernel the part carries no geometry.
	if p.Shape() != nil {
		t.Errorf("expected nil shape without a kernel, got %v", p.Shape())
	}
}

func TestDefpartWithKernel(t *testing.T) {
	d := mustEval(t, NewEngine(WithKernel(sdfx.New())), `
(defpart "peg"
  (union (cylinder :height 10 :radius 2) (translate (box 4 4 1) (vec3 -2 -2 0)))
  (anchor "tip" (vec3 0 0 10) (vec3 0 0 1) (vec3 1 0 0)))
`)
	if d.Part("peg").Shape() == nil {
		t.Fatal("expected a shape from the sdfx kernel")
	}
}

func TestVariableReference(t *testing.T) {
	d := mustEval(t, NewEngine(), `
(def h 19)
(defpart "side" (box 10 10 h)
  (anchor "top" (vec3 5 5 h) (vec3 0 0 1) (vec3 0 1 0)))
`)
	got := positionedAt(t, d.Part("side"), "top")
	if !xform.Near(got, mgl64.Vec3{5, 5, 19}, tol) {
		t.Errorf("top = %v, want (5 5 19)", got)
	}
}

func TestPartLookupAndPlace(t *testing.T) {
	d := mustEval(t, NewEngine(), `
(defpart "peg" (anchor "tip" (vec3 1 0 0) (vec3 1 0 0) (vec3 0 1 0)))
(place (part "peg") :at (vec3 0 0 5) :rotate (vec3 0 0 90))
`)
	p := d.Part("peg")
	if p.Len() != 1 {
		t.Fatalf("place should add one transform, got %d", p.Len())
	}
	got := positionedAt(t, p, "tip")
	if !xform.Near(got, mgl64.Vec3{0, 1, 5}, 1e-9) {
		t.Errorf("tip = %v, want (0 1 5)", got)
	}
}

func TestPlaceAfterAttachMovesInWorld(t *testing.T) {
	d := mustEval(t, NewEngine(), boxOnBox+`
(place (part "box2") :at (vec3 100 0 0))
`)
	box2 := d.Part("box2")
	if box2.Len() != 3 {
		t.Fatalf("history length = %d, want 3", box2.Len())
	}
	// box2 is flipped by the attach; a world move still shifts along +x.
	if got := positionedAt(t, box2, "bottom"); !xform.Near(got, mgl64.Vec3{105, 5, 19}, tol) {
		t.Errorf("box2 bottom = %v, want (105 5 19)", got)
	}
}

func TestAnchorsBuiltin(t *testing.T) {
	d := mustEval(t, NewEngine(), `
(def p (defpart "p"
  (anchor "a" (vec3 0 0 0) (vec3 1 0 0) (vec3 0 1 0))
  (anchor "b" (vec3 1 0 0) (vec3 1 0 0) (vec3 0 1 0))))
(cond (== 2 (len (anchors p))) (defpart "part-ok") nil)
(cond (== 2 (len (anchors (assembly "asm" p)))) (defpart "asm-ok") nil)
`)
	for _, name := range []string{"part-ok", "asm-ok"} {
		if d.Part(name) == nil {
			t.Errorf("expected %q to be defined", name)
		}
	}
}

// ---------------------------------------------------------------------------
// Attachment
// ---------------------------------------------------------------------------

func TestBoxOnBoxScript(t *testing.T) {
	d := mustEval(t, NewEngine(), boxOnBox)

	asm := d.Assembly("stack")
	if asm == nil {
		t.Fatal("expected assembly named 'stack'")
	}
	if len(asm.Members()) != 2 {
		t.Fatalf("members = %d, want 2", len(asm.Members()))
	}
	if len(asm.Joints()) != 1 {
		t.Fatalf("joints = %d, want 1", len(asm.Joints()))
	}

	box2 := d.Part("box2")
	if got := positionedAt(t, box2, "top"); !xform.Near(got, mgl64.Vec3{5, 5, 9}, tol) {
		t.Errorf("box2 top = %v, want (5 5 9)", got)
	}
	if got := positionedAt(t, box2, "bottom"); !xform.Near(got, mgl64.Vec3{5, 5, 19}, tol) {
		t.Errorf("box2 bottom = %v, want (5 5 19)", got)
	}
	if d.Owner(box2) != asm {
		t.Error("box2 should be owned by the stack")
	}
}

func TestBatchedAttach(t *testing.T) {
	d := mustEval(t, NewEngine(), `
(def base (defpart "base"
  (anchor "top" (vec3 0 0 1) (vec3 0 0 1) (vec3 1 0 0))))
(def lid (defpart "lid"
  (anchor "under" (vec3 0 0 0) (vec3 0 0 -1) (vec3 1 0 0))))
(def asm (assembly "asm" base))
(attach asm lid (list "under") (list base) (list "top") (list (link)))
`)
	got := positionedAt(t, d.Part("lid"), "under")
	if !xform.Near(got, mgl64.Vec3{0, 0, 1}, tol) {
		t.Errorf("lid under = %v, want (0 0 1)", got)
	}
}

func TestAttachAssemblyScript(t *testing.T) {
	d := mustEval(t, NewEngine(), boxOnBox+`
(def box3 (cube "box3"))
(def tower (assembly "tower" box3))
(attach-assembly tower stack "bottom" "top")
`)
	// The stack's only "bottom" after shadowing is box2's.
	got := positionedAt(t, d.Part("box2"), "bottom")
	if !xform.Near(got, mgl64.Vec3{5, 5, 10}, tol) {
		t.Errorf("box2 bottom = %v, want (5 5 10)", got)
	}
	if len(d.Assembly("tower").Joints()) != 1 {
		t.Errorf("tower should record one assembly joint")
	}
	if d.Assembly("tower").Joints()[0].Kind != assembly.AssemblyJoint {
		t.Errorf("expected an assembly joint")
	}
}

func TestAttachErrors(t *testing.T) {
	prelude := `
(def a (defpart "a" (anchor "x" (vec3 0 0 0) (vec3 0 0 1) (vec3 1 0 0))))
(def b (defpart "b" (anchor "x" (vec3 0 0 0) (vec3 0 0 1) (vec3 1 0 0))))
(def c (defpart "c" (anchor "x" (vec3 0 0 0) (vec3 0 0 1) (vec3 1 0 0))))
(def asm (assembly "asm" a))
`
	tests := []struct {
		name   string
		source string
		want   error
	}{
		{"arity", `(attach asm b (list "x" "x") (list a) (list "x") (list (link)))`, assembly.ErrArityMismatch},
		{"unknown anchor", `(attach asm b "nope" a "x")`, part.ErrUnknownAnchor},
		{"not member", `(attach asm b "x" c "x")`, assembly.ErrNotMember},
		{"self", `(attach asm a "x" a "x")`, assembly.ErrSelfAttachment},
		{"duplicate name", `(defpart "a")`, design.ErrDuplicateName},
		{"strict", `(def s (assembly "s" c :strict true))
(attach s b "x" c "x")
(anchors s)`, assembly.ErrAmbiguousAnchor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := mustFail(t, prelude+tt.source)
			if !errors.Is(e, tt.want) {
				t.Errorf("error %q (%v) does not wrap %v", e.Message, e.Err, tt.want)
			}
		})
	}
}

func TestAnchorRejectsParallelAxes(t *testing.T) {
	e := mustFail(t, `(anchor "bad" (vec3 0 0 0) (vec3 1 0 0) (vec3 2 0 0))`)
	if !errors.Is(e, anchor.ErrNotOrthogonal) {
		t.Errorf("expected ErrNotOrthogonal, got %v", e.Err)
	}
}

func TestBuiltinArgumentErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"vec3 arity", `(vec3 1 2)`},
		{"box negative", `(box 1 -2 3)`},
		{"box missing", `(box 1 2)`},
		{"cylinder missing radius", `(cylinder :height 4)`},
		{"union single", `(union (box 1 1 1))`},
		{"defpart two shapes", `(defpart "x" (box 1 1 1) (box 2 2 2))`},
		{"defpart bad arg", `(defpart "x" 42)`},
		{"part unknown", `(part "ghost")`},
		{"link positional", `(link 1 2 3)`},
		{"link unknown field", `(link :tw 1)`},
		{"attach short", `(attach 1 2 3)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := mustFail(t, tt.source)
			if e.Err == nil {
				t.Errorf("expected builtin cause, got message %q", e.Message)
			}
		})
	}
}

func TestEngineStrictOption(t *testing.T) {
	d, evalErrs, err := NewEngine(WithStrictAnchors(true)).Evaluate(boxOnBox + `(anchors stack)`)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if d != nil || len(evalErrs) == 0 {
		t.Fatal("expected strict assemblies to reject the shared anchor names")
	}
	if !errors.Is(evalErrs[0], assembly.ErrAmbiguousAnchor) {
		t.Errorf("expected ErrAmbiguousAnchor, got %v", evalErrs[0].Err)
	}
}
