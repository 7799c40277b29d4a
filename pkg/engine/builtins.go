package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/mate/pkg/align"
	"github.com/chazu/mate/pkg/anchor"
	"github.com/chazu/mate/pkg/assembly"
	"github.com/chazu/mate/pkg/design"
	"github.com/chazu/mate/pkg/kernel"
	"github.com/chazu/mate/pkg/link"
	"github.com/chazu/mate/pkg/part"
)

// defaultSegments is the cylinder tessellation used when the script does
// not give one.
const defaultSegments = 32

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps an mgl64.Vec3.
type sexpVec3 struct {
	vec mgl64.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpSolid wraps a kernel solid. solid is nil when the engine runs
// without a kernel.
type sexpSolid struct {
	solid kernel.Solid
	desc  string
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	return "(" + s.desc + ")"
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// sexpAnchor wraps an anchor.Anchor.
type sexpAnchor struct {
	a anchor.Anchor
}

func (a *sexpAnchor) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(anchor %q)", a.a.Name())
}
func (a *sexpAnchor) Type() *zygo.RegisteredType { return nil }

// sexpPart wraps a registered part.
type sexpPart struct {
	p *part.AnchorablePart
}

func (p *sexpPart) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(part %q)", p.p.Name())
}
func (p *sexpPart) Type() *zygo.RegisteredType { return nil }

// sexpAssembly wraps a registered assembly.
type sexpAssembly struct {
	a *assembly.Assembly
}

func (a *sexpAssembly) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(assembly %q)", a.a.Name())
}
func (a *sexpAssembly) Type() *zygo.RegisteredType { return nil }

// sexpLink wraps a link.Link. Its anchor is bound when attached.
type sexpLink struct {
	l link.Link
}

func (l *sexpLink) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(link :tx %g :ty %g :tz %g :rx %g :ry %g :rz %g)", l.l.Tx, l.l.Ty, l.l.Tz, l.l.Rx, l.l.Ry, l.l.Rz)
}
func (l *sexpLink) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toBool accepts zygomys booleans and treats a bare keyword flag as true.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (mgl64.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return mgl64.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// isList reports whether s is a list or array.
func isList(s zygo.Sexp) bool {
	switch s.(type) {
	case *zygo.SexpPair, *zygo.SexpArray:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Evaluation state
// ---------------------------------------------------------------------------

// evalState is what the builtins of one evaluation share.
type evalState struct {
	kernel   kernel.Kernel
	design   *design.Design
	strategy align.Strategy
	strict   bool
	logger   *log.Logger

	// failure is the first error raised by a builtin. zygomys flattens
	// errors to text, so it is kept to preserve the original error chain.
	failure error
}

// fail records err and hands it back to the interpreter.
func (st *evalState) fail(err error) (zygo.Sexp, error) {
	if st.failure == nil {
		st.failure = err
	}
	return zygo.SexpNull, err
}

func (st *evalState) toSolid(s zygo.Sexp) (*sexpSolid, error) {
	if v, ok := s.(*sexpSolid); ok {
		return v, nil
	}
	return nil, fmt.Errorf("expected shape, got %T (%s)", s, s.SexpString(nil))
}

// toPart accepts a part value or the name of a registered part.
func (st *evalState) toPart(s zygo.Sexp) (*part.AnchorablePart, error) {
	switch v := s.(type) {
	case *sexpPart:
		return v.p, nil
	case *zygo.SexpStr:
		if p := st.design.Part(v.S); p != nil {
			return p, nil
		}
		return nil, fmt.Errorf("no part named %q", v.S)
	}
	return nil, fmt.Errorf("expected part, got %T (%s)", s, s.SexpString(nil))
}

// toAssembly accepts an assembly value or the name of a registered assembly.
func (st *evalState) toAssembly(s zygo.Sexp) (*assembly.Assembly, error) {
	switch v := s.(type) {
	case *sexpAssembly:
		return v.a, nil
	case *zygo.SexpStr:
		if a := st.design.Assembly(v.S); a != nil {
			return a, nil
		}
		return nil, fmt.Errorf("no assembly named %q", v.S)
	}
	return nil, fmt.Errorf("expected assembly, got %T (%s)", s, s.SexpString(nil))
}

func toLink(s zygo.Sexp) (link.Link, error) {
	if v, ok := s.(*sexpLink); ok {
		return v.l, nil
	}
	return link.Link{}, fmt.Errorf("expected link, got %T (%s)", s, s.SexpString(nil))
}

// listOf converts every element of a list with conv. The batched attach
// forms use it.
func listOf[T any](s zygo.Sexp, conv func(zygo.Sexp) (T, error)) ([]T, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for i, item := range items {
		v, err := conv(item)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// combine folds shapes with a kernel boolean. Without a kernel the result
// is a nil solid.
func (st *evalState) combine(op string, args []zygo.Sexp, f func(a, b kernel.Solid) kernel.Solid) (zygo.Sexp, error) {
	if len(args) < 2 {
		return st.fail(fmt.Errorf("%s requires at least 2 shapes, got %d", op, len(args)))
	}
	var acc kernel.Solid
	for i, arg := range args {
		s, err := st.toSolid(arg)
		if err != nil {
			return st.fail(fmt.Errorf("%s: shape %d: %w", op, i, err))
		}
		switch {
		case st.kernel == nil:
		case i == 0:
			acc = s.solid
		default:
			acc = f(acc, s.solid)
		}
	}
	return &sexpSolid{solid: acc, desc: fmt.Sprintf("%s of %d", op, len(args))}, nil
}

// eulerDegrees builds Rz·Ry·Rx from angles in degrees, matching
// kernel.Kernel.Rotate.
func eulerDegrees(r mgl64.Vec3) mgl64.Mat4 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	return mgl64.HomogRotate3DZ(rad(r[2])).
		Mul4(mgl64.HomogRotate3DY(rad(r[1]))).
		Mul4(mgl64.HomogRotate3DX(rad(r[0])))
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs all mate DSL builtins into a zygomys
// environment. The builtins populate st.design during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, st *evalState) {
	registerShapeBuiltins(env, st)
	registerPartBuiltins(env, st)
	registerAssemblyBuiltins(env, st)
}

func registerShapeBuiltins(env *zygo.Zlisp, st *evalState) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return st.fail(fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args)))
		}
		var v mgl64.Vec3
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return st.fail(fmt.Errorf("vec3: %s: %w", axis, err))
			}
			v[i] = f
		}
		return &sexpVec3{vec: v}, nil
	})

	// -----------------------------------------------------------------------
	// (box 10 20 30) or (box :x 10 :y 20 :z 30)
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var dims mgl64.Vec3
		for i, axis := range []string{"x", "y", "z"} {
			v, ok := pa.kw[axis]
			if !ok && i < len(pa.positional) {
				v, ok = pa.positional[i], true
			}
			if !ok {
				return st.fail(fmt.Errorf("box: missing %s dimension", axis))
			}
			f, err := toFloat64(v)
			if err != nil {
				return st.fail(fmt.Errorf("box: %s: %w", axis, err))
			}
			if f <= 0 {
				return st.fail(fmt.Errorf("box: %s dimension is %g, must be positive", axis, f))
			}
			dims[i] = f
		}
		s := &sexpSolid{desc: fmt.Sprintf("box %gx%gx%g", dims[0], dims[1], dims[2])}
		if st.kernel != nil {
			s.solid = st.kernel.Box(dims[0], dims[1], dims[2])
		}
		return s, nil
	})

	// -----------------------------------------------------------------------
	// (cylinder :height 20 :radius 5 :segments 32)
	// -----------------------------------------------------------------------
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		vals := map[string]float64{"segments": defaultSegments}
		for i, key := range []string{"height", "radius", "segments"} {
			v, ok := pa.kw[key]
			if !ok && i < len(pa.positional) {
				v, ok = pa.positional[i], true
			}
			if !ok {
				if key == "segments" {
					continue
				}
				return st.fail(fmt.Errorf("cylinder: missing %s", key))
			}
			f, err := toFloat64(v)
			if err != nil {
				return st.fail(fmt.Errorf("cylinder: %s: %w", key, err))
			}
			if f <= 0 {
				return st.fail(fmt.Errorf("cylinder: %s is %g, must be positive", key, f))
			}
			vals[key] = f
		}
		s := &sexpSolid{desc: fmt.Sprintf("cylinder h=%g r=%g", vals["height"], vals["radius"])}
		if st.kernel != nil {
			s.solid = st.kernel.Cylinder(vals["height"], vals["radius"], int(vals["segments"]))
		}
		return s, nil
	})

	// -----------------------------------------------------------------------
	// (union a b ...), (difference a b ...), (intersection a b ...)
	// -----------------------------------------------------------------------
	env.AddFunction("union", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return st.combine("union", args, func(a, b kernel.Solid) kernel.Solid { return st.kernel.Union(a, b) })
	})
	env.AddFunction("difference", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return st.combine("difference", args, func(a, b kernel.Solid) kernel.Solid { return st.kernel.Difference(a, b) })
	})
	env.AddFunction("intersection", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return st.combine("intersection", args, func(a, b kernel.Solid) kernel.Solid { return st.kernel.Intersection(a, b) })
	})

	// -----------------------------------------------------------------------
	// (translate shape (vec3 1 2 3)) and (rotate shape (vec3 0 0 90))
	// -----------------------------------------------------------------------
	env.AddFunction("translate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return st.fail(fmt.Errorf("translate requires a shape and a vec3"))
		}
		s, err := st.toSolid(args[0])
		if err != nil {
			return st.fail(fmt.Errorf("translate: %w", err))
		}
		v, err := toVec3(args[1])
		if err != nil {
			return st.fail(fmt.Errorf("translate: %w", err))
		}
		out := &sexpSolid{desc: "translated " + s.desc}
		if st.kernel != nil {
			out.solid = st.kernel.Translate(s.solid, v[0], v[1], v[2])
		}
		return out, nil
	})
	env.AddFunction("rotate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return st.fail(fmt.Errorf("rotate requires a shape and a vec3 of degrees"))
		}
		s, err := st.toSolid(args[0])
		if err != nil {
			return st.fail(fmt.Errorf("rotate: %w", err))
		}
		v, err := toVec3(args[1])
		if err != nil {
			return st.fail(fmt.Errorf("rotate: %w", err))
		}
		out := &sexpSolid{desc: "rotated " + s.desc}
		if st.kernel != nil {
			out.solid = st.kernel.Rotate(s.solid, v[0], v[1], v[2])
		}
		return out, nil
	})
}

func registerPartBuiltins(env *zygo.Zlisp, st *evalState) {

	// -----------------------------------------------------------------------
	// (anchor "top" (vec3 5 5 10) (vec3 0 0 1) (vec3 0 1 0))
	// (anchor "top" :p (vec3 5 5 10) :u (vec3 0 0 1) :v (vec3 0 1 0))
	// -----------------------------------------------------------------------
	env.AddFunction("anchor", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return st.fail(fmt.Errorf("anchor requires a name"))
		}
		anchorName, err := toString(pa.positional[0])
		if err != nil {
			return st.fail(fmt.Errorf("anchor: name: %w", err))
		}
		var vecs [3]mgl64.Vec3
		for i, key := range []string{"p", "u", "v"} {
			v, ok := pa.kw[key]
			if !ok && i+1 < len(pa.positional) {
				v, ok = pa.positional[i+1], true
			}
			if !ok {
				return st.fail(fmt.Errorf("anchor %q: missing %s", anchorName, key))
			}
			vecs[i], err = toVec3(v)
			if err != nil {
				return st.fail(fmt.Errorf("anchor %q: %s: %w", anchorName, key, err))
			}
		}
		a, err := anchor.New(anchorName, vecs[0], vecs[1], vecs[2])
		if err != nil {
			return st.fail(err)
		}
		return &sexpAnchor{a: a}, nil
	})

	// -----------------------------------------------------------------------
	// (defpart "name" (box ...) (anchor ...) ... :color "red")
	// -----------------------------------------------------------------------
	env.AddFunction("defpart", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return st.fail(fmt.Errorf("defpart requires a name"))
		}
		partName, err := toString(pa.positional[0])
		if err != nil {
			return st.fail(fmt.Errorf("defpart: name: %w", err))
		}

		var (
			shape    kernel.Solid
			hasShape bool
			anchors  []anchor.Anchor
		)
		for i, arg := range pa.positional[1:] {
			switch v := arg.(type) {
			case *sexpSolid:
				if hasShape {
					return st.fail(fmt.Errorf("defpart %q: more than one shape; combine them with union", partName))
				}
				shape, hasShape = v.solid, true
			case *sexpAnchor:
				anchors = append(anchors, v.a)
			default:
				return st.fail(fmt.Errorf("defpart %q: argument %d: expected shape or anchor, got %T (%s)",
					partName, i+1, arg, arg.SexpString(nil)))
			}
		}

		p, err := part.NewAnchorable(partName, shape, anchors...)
		if err != nil {
			return st.fail(err)
		}
		if err := st.design.AddPart(p, design.SourceRef{Form: "defpart"}); err != nil {
			return st.fail(err)
		}
		if v, ok := pa.kw["color"]; ok {
			c, err := toKeywordString(v)
			if err != nil {
				return st.fail(fmt.Errorf("defpart %q: color: %w", partName, err))
			}
			st.design.SetColor(partName, c)
		}
		return &sexpPart{p: p}, nil
	})

	// -----------------------------------------------------------------------
	// (part "name")
	// -----------------------------------------------------------------------
	env.AddFunction("part", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return st.fail(fmt.Errorf("part requires a name argument"))
		}
		if _, ok := args[0].(*zygo.SexpStr); !ok {
			return st.fail(fmt.Errorf("part: name: expected string, got %T", args[0]))
		}
		p, err := st.toPart(args[0])
		if err != nil {
			return st.fail(fmt.Errorf("part: %w", err))
		}
		return &sexpPart{p: p}, nil
	})

	// -----------------------------------------------------------------------
	// (place (part "leg") :at (vec3 0 0 10) :rotate (vec3 0 0 90))
	//
	// A world move: the rotation (about the world origin) and then the
	// translation act on the part where it currently is, including any
	// earlier attach.
	// -----------------------------------------------------------------------
	env.AddFunction("place", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return st.fail(fmt.Errorf("place requires a part reference as first argument"))
		}
		p, err := st.toPart(pa.positional[0])
		if err != nil {
			return st.fail(fmt.Errorf("place: %w", err))
		}
		m := mgl64.Ident4()
		if v, ok := pa.kw["at"]; ok {
			at, err := toVec3(v)
			if err != nil {
				return st.fail(fmt.Errorf("place: at: %w", err))
			}
			m = mgl64.Translate3D(at[0], at[1], at[2])
		}
		if v, ok := pa.kw["rotate"]; ok {
			r, err := toVec3(v)
			if err != nil {
				return st.fail(fmt.Errorf("place: rotate: %w", err))
			}
			m = m.Mul4(eulerDegrees(r))
		}
		p.PrependTransform(m)
		return &sexpPart{p: p}, nil
	})

	// -----------------------------------------------------------------------
	// (anchors (part "p")) or (anchors (assembly-ref)) -> list of names
	// -----------------------------------------------------------------------
	env.AddFunction("anchors", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return st.fail(fmt.Errorf("anchors requires a part or assembly"))
		}
		var names []string
		switch v := args[0].(type) {
		case *sexpPart:
			names = v.p.AnchorNames()
		case *sexpAssembly:
			all, err := v.a.Anchors()
			if err != nil {
				return st.fail(err)
			}
			for _, a := range all {
				names = append(names, a.Name())
			}
		default:
			return st.fail(fmt.Errorf("anchors: expected part or assembly, got %T", args[0]))
		}
		items := make([]zygo.Sexp, len(names))
		for i, n := range names {
			items[i] = &zygo.SexpStr{S: n}
		}
		return zygo.MakeList(items), nil
	})
}

func registerAssemblyBuiltins(env *zygo.Zlisp, st *evalState) {

	// -----------------------------------------------------------------------
	// (assembly "name" (part "root") :strict true :color "blue")
	// -----------------------------------------------------------------------
	env.AddFunction("assembly", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return st.fail(fmt.Errorf("assembly requires a name and a root part"))
		}
		asmName, err := toString(pa.positional[0])
		if err != nil {
			return st.fail(fmt.Errorf("assembly: name: %w", err))
		}
		root, err := st.toPart(pa.positional[1])
		if err != nil {
			return st.fail(fmt.Errorf("assembly %q: root: %w", asmName, err))
		}

		opts := []assembly.Option{
			assembly.WithStrategy(st.strategy),
			assembly.WithLogger(st.logger),
		}
		strict := st.strict
		if v, ok := pa.kw["strict"]; ok {
			if strict, err = toBool(v); err != nil {
				return st.fail(fmt.Errorf("assembly %q: strict: %w", asmName, err))
			}
		}
		if strict {
			opts = append(opts, assembly.WithStrictAnchors())
		}

		a := assembly.New(asmName, root, opts...)
		if err := st.design.AddAssembly(a, design.SourceRef{Form: "assembly"}); err != nil {
			return st.fail(err)
		}
		if v, ok := pa.kw["color"]; ok {
			c, err := toKeywordString(v)
			if err != nil {
				return st.fail(fmt.Errorf("assembly %q: color: %w", asmName, err))
			}
			st.design.SetColor(asmName, c)
		}
		return &sexpAssembly{a: a}, nil
	})

	// -----------------------------------------------------------------------
	// (link :tx -1 :ty 0 :tz 0 :rx 0.2 :ry 0 :rz 0)   angles in radians
	// -----------------------------------------------------------------------
	env.AddFunction("link", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return st.fail(fmt.Errorf("link takes keyword arguments only (:tx :ty :tz :rx :ry :rz)"))
		}
		var l link.Link
		fields := map[string]*float64{
			"tx": &l.Tx, "ty": &l.Ty, "tz": &l.Tz,
			"rx": &l.Rx, "ry": &l.Ry, "rz": &l.Rz,
		}
		for key, v := range pa.kw {
			dst, ok := fields[key]
			if !ok {
				return st.fail(fmt.Errorf("link: unknown field :%s", key))
			}
			f, err := toFloat64(v)
			if err != nil {
				return st.fail(fmt.Errorf("link: %s: %w", key, err))
			}
			*dst = f
		}
		return &sexpLink{l: l}, nil
	})

	// -----------------------------------------------------------------------
	// (attach asm child "child-anchor" parent "parent-anchor" [link])
	// (attach asm child (list ...) (list ...) (list ...) (list ...))
	// -----------------------------------------------------------------------
	env.AddFunction("attach", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 5 && len(args) != 6 {
			return st.fail(fmt.Errorf("attach requires assembly, child, child anchor, parent, parent anchor and an optional link"))
		}
		a, err := st.toAssembly(args[0])
		if err != nil {
			return st.fail(fmt.Errorf("attach: %w", err))
		}
		child, err := st.toPart(args[1])
		if err != nil {
			return st.fail(fmt.Errorf("attach: child: %w", err))
		}

		req := assembly.AttachRequest{Child: child}
		if isList(args[2]) {
			if len(args) != 6 {
				return st.fail(fmt.Errorf("attach: batched form requires a list of links"))
			}
			if req.ChildAnchors, err = listOf(args[2], toString); err != nil {
				return st.fail(fmt.Errorf("attach: child anchors: %w", err))
			}
			if req.Parents, err = listOf(args[3], st.toPart); err != nil {
				return st.fail(fmt.Errorf("attach: parents: %w", err))
			}
			if req.ParentAnchors, err = listOf(args[4], toString); err != nil {
				return st.fail(fmt.Errorf("attach: parent anchors: %w", err))
			}
			if req.Links, err = listOf(args[5], toLink); err != nil {
				return st.fail(fmt.Errorf("attach: links: %w", err))
			}
		} else {
			ca, err := toString(args[2])
			if err != nil {
				return st.fail(fmt.Errorf("attach: child anchor: %w", err))
			}
			parent, err := st.toPart(args[3])
			if err != nil {
				return st.fail(fmt.Errorf("attach: parent: %w", err))
			}
			pa, err := toString(args[4])
			if err != nil {
				return st.fail(fmt.Errorf("attach: parent anchor: %w", err))
			}
			var l link.Link
			if len(args) == 6 {
				if l, err = toLink(args[5]); err != nil {
					return st.fail(fmt.Errorf("attach: %w", err))
				}
			}
			req.ChildAnchors = []string{ca}
			req.Parents = []*part.AnchorablePart{parent}
			req.ParentAnchors = []string{pa}
			req.Links = []link.Link{l}
		}

		if err := a.AttachParts(req); err != nil {
			return st.fail(err)
		}
		return &sexpPart{p: child}, nil
	})

	// -----------------------------------------------------------------------
	// (attach-assembly parent child "child-anchor" "parent-anchor" [link])
	// (attach-assembly parent child (list ...) (list ...) (list ...))
	// -----------------------------------------------------------------------
	env.AddFunction("attach_assembly", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 4 && len(args) != 5 {
			return st.fail(fmt.Errorf("attach-assembly requires parent, child, child anchor, parent anchor and an optional link"))
		}
		parent, err := st.toAssembly(args[0])
		if err != nil {
			return st.fail(fmt.Errorf("attach-assembly: parent: %w", err))
		}
		child, err := st.toAssembly(args[1])
		if err != nil {
			return st.fail(fmt.Errorf("attach-assembly: child: %w", err))
		}

		req := assembly.AssemblyRequest{Child: child}
		if isList(args[2]) {
			if len(args) != 5 {
				return st.fail(fmt.Errorf("attach-assembly: batched form requires a list of links"))
			}
			if req.ChildAnchors, err = listOf(args[2], toString); err != nil {
				return st.fail(fmt.Errorf("attach-assembly: child anchors: %w", err))
			}
			if req.ParentAnchors, err = listOf(args[3], toString); err != nil {
				return st.fail(fmt.Errorf("attach-assembly: parent anchors: %w", err))
			}
			if req.Links, err = listOf(args[4], toLink); err != nil {
				return st.fail(fmt.Errorf("attach-assembly: links: %w", err))
			}
		} else {
			ca, err := toString(args[2])
			if err != nil {
				return st.fail(fmt.Errorf("attach-assembly: child anchor: %w", err))
			}
			pa, err := toString(args[3])
			if err != nil {
				return st.fail(fmt.Errorf("attach-assembly: parent anchor: %w", err))
			}
			var l link.Link
			if len(args) == 5 {
				if l, err = toLink(args[4]); err != nil {
					return st.fail(fmt.Errorf("attach-assembly: %w", err))
				}
			}
			req.ChildAnchors = []string{ca}
			req.ParentAnchors = []string{pa}
			req.Links = []link.Link{l}
		}

		if err := parent.AttachAssemblies(req); err != nil {
			return st.fail(err)
		}
		return &sexpAssembly{a: parent}, nil
	})
}
