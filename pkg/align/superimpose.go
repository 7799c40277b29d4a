package align

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"

	"github.com/chazu/mate/pkg/xform"
)

// ErrDegenerateFrame is returned when a point set does not span a plane
// (coincident or colinear points), so no unique rotation exists.
var ErrDegenerateFrame = errors.New("degenerate frame")

// degeneracyTolerance bounds the spanned area relative to the squared
// extent of the point set.
const degeneracyTolerance = 1e-12

// Method selects the registration algorithm.
type Method int

const (
	MethodSVD Method = iota
	MethodQuaternion
	MethodBasis
)

func (m Method) String() string {
	switch m {
	case MethodSVD:
		return "svd"
	case MethodQuaternion:
		return "quaternion"
	case MethodBasis:
		return "basis"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod maps a method name as produced by String back to a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "svd", "":
		return MethodSVD, nil
	case "quaternion":
		return MethodQuaternion, nil
	case "basis":
		return MethodBasis, nil
	}
	return 0, fmt.Errorf("align: unknown method %q, expected svd, quaternion or basis", s)
}

// Superimpose returns the rigid transform M minimizing Σ|M·src[i] − dst[i]|².
// Both sets need the same length, at least three points, and must span a
// plane.
func Superimpose(src, dst []mgl64.Vec3, method Method) (mgl64.Mat4, error) {
	if len(src) != len(dst) {
		return mgl64.Mat4{}, fmt.Errorf("align: %d source points, %d target points: %w", len(src), len(dst), ErrDegenerateFrame)
	}
	if len(src) < 3 {
		return mgl64.Mat4{}, fmt.Errorf("align: need at least 3 points, got %d: %w", len(src), ErrDegenerateFrame)
	}
	if err := checkSpan(src); err != nil {
		return mgl64.Mat4{}, fmt.Errorf("align: source: %w", err)
	}
	if err := checkSpan(dst); err != nil {
		return mgl64.Mat4{}, fmt.Errorf("align: target: %w", err)
	}

	cs, cd := centroid(src), centroid(dst)

	var (
		r   mgl64.Mat3
		err error
	)
	switch method {
	case MethodSVD:
		r, err = rotationSVD(src, dst, cs, cd)
	case MethodQuaternion:
		r, err = rotationQuaternion(src, dst, cs, cd)
	case MethodBasis:
		r, err = rotationBasis(src, dst)
		// The basis method pins the first correspondence exactly.
		cs, cd = src[0], dst[0]
	default:
		return mgl64.Mat4{}, fmt.Errorf("align: unsupported method %v", method)
	}
	if err != nil {
		return mgl64.Mat4{}, err
	}

	t := cd.Sub(r.Mul3x1(cs))
	return xform.FromRotation(r, t), nil
}

func centroid(ps []mgl64.Vec3) mgl64.Vec3 {
	var c mgl64.Vec3
	for _, p := range ps {
		c = c.Add(p)
	}
	return c.Mul(1 / float64(len(ps)))
}

// checkSpan fails unless some pair of edges from the first point spans a
// non-vanishing area.
func checkSpan(ps []mgl64.Vec3) error {
	var extent float64
	for _, p := range ps[1:] {
		extent = math.Max(extent, p.Sub(ps[0]).Len())
	}
	if extent == 0 {
		return fmt.Errorf("all %d points coincide: %w", len(ps), ErrDegenerateFrame)
	}
	for i := 1; i < len(ps); i++ {
		for j := i + 1; j < len(ps); j++ {
			area := ps[i].Sub(ps[0]).Cross(ps[j].Sub(ps[0])).Len()
			if area > degeneracyTolerance*extent*extent {
				return nil
			}
		}
	}
	return fmt.Errorf("points are colinear: %w", ErrDegenerateFrame)
}

// crossCovariance returns H = Σ (src[i]−cs)(dst[i]−cd)ᵀ.
func crossCovariance(src, dst []mgl64.Vec3, cs, cd mgl64.Vec3) *mat.Dense {
	h := mat.NewDense(3, 3, nil)
	for i := range src {
		a := src[i].Sub(cs)
		b := dst[i].Sub(cd)
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				h.Set(r, c, h.At(r, c)+a[r]*b[c])
			}
		}
	}
	return h
}

func toMat3(d mat.Matrix) mgl64.Mat3 {
	var m mgl64.Mat3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.Set(r, c, d.At(r, c))
		}
	}
	return m
}

// rotationSVD solves the orthogonal Procrustes problem: with H = UΣVᵀ the
// optimal rotation is V·diag(1, 1, d)·Uᵀ, d correcting a reflection.
func rotationSVD(src, dst []mgl64.Vec3, cs, cd mgl64.Vec3) (mgl64.Mat3, error) {
	h := crossCovariance(src, dst, cs, cd)

	var svd mat.SVD
	if ok := svd.Factorize(h, mat.SVDFull); !ok {
		return mgl64.Mat3{}, fmt.Errorf("align: svd factorization failed: %w", ErrDegenerateFrame)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var vut mat.Dense
	vut.Mul(&v, u.T())
	d := 1.0
	if mat.Det(&vut) < 0 {
		d = -1
	}

	corr := mat.NewDiagDense(3, []float64{1, 1, d})
	var vd, r mat.Dense
	vd.Mul(&v, corr)
	r.Mul(&vd, u.T())
	return toMat3(&r), nil
}

// rotationQuaternion builds Horn's symmetric 4x4 matrix from the
// cross-covariance; its dominant eigenvector is the optimal unit quaternion
// (w, x, y, z).
func rotationQuaternion(src, dst []mgl64.Vec3, cs, cd mgl64.Vec3) (mgl64.Mat3, error) {
	h := crossCovariance(src, dst, cs, cd)
	sxx, sxy, sxz := h.At(0, 0), h.At(0, 1), h.At(0, 2)
	syx, syy, syz := h.At(1, 0), h.At(1, 1), h.At(1, 2)
	szx, szy, szz := h.At(2, 0), h.At(2, 1), h.At(2, 2)

	n := mat.NewSymDense(4, []float64{
		sxx + syy + szz, syz - szy, szx - sxz, sxy - syx,
		syz - szy, sxx - syy - szz, sxy + syx, szx + sxz,
		szx - sxz, sxy + syx, syy - sxx - szz, syz + szy,
		sxy - syx, szx + sxz, syz + szy, szz - sxx - syy,
	})

	var es mat.EigenSym
	if ok := es.Factorize(n, true); !ok {
		return mgl64.Mat3{}, fmt.Errorf("align: eigen decomposition failed: %w", ErrDegenerateFrame)
	}
	values := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	best := 0
	for i := range values {
		if values[i] > values[best] {
			best = i
		}
	}
	q := mgl64.Quat{
		W: vecs.At(0, best),
		V: mgl64.Vec3{vecs.At(1, best), vecs.At(2, best), vecs.At(3, best)},
	}.Normalize()
	return q.Mat4().Mat3(), nil
}

// rotationBasis maps the orthonormal frame spanned by the first three
// source points onto the one spanned by the first three target points.
func rotationBasis(src, dst []mgl64.Vec3) (mgl64.Mat3, error) {
	bs, err := basis(src[0], src[1], src[2])
	if err != nil {
		return mgl64.Mat3{}, fmt.Errorf("align: source: %w", err)
	}
	bd, err := basis(dst[0], dst[1], dst[2])
	if err != nil {
		return mgl64.Mat3{}, fmt.Errorf("align: target: %w", err)
	}
	return bd.Mul3(bs.Transpose()), nil
}

// basis returns the Gram-Schmidt frame of a point triple as matrix columns.
func basis(p0, p1, p2 mgl64.Vec3) (mgl64.Mat3, error) {
	a := p1.Sub(p0)
	b := p2.Sub(p0)
	if a.Len() == 0 {
		return mgl64.Mat3{}, fmt.Errorf("first edge has zero length: %w", ErrDegenerateFrame)
	}
	e1 := a.Normalize()
	b = b.Sub(e1.Mul(b.Dot(e1)))
	if b.Len() <= degeneracyTolerance*a.Len() {
		return mgl64.Mat3{}, fmt.Errorf("triple is colinear: %w", ErrDegenerateFrame)
	}
	e2 := b.Normalize()
	return mgl64.Mat3FromCols(e1, e2, e1.Cross(e2)), nil
}
