// Package xform holds the homogeneous 4x4 transform helpers shared by the
// anchor, link and part packages. Matrices follow the mgl64 convention:
// column-major storage, applied to column vectors (M × p).
package xform

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Translation returns a translation-only matrix.
func Translation(t mgl64.Vec3) mgl64.Mat4 {
	return mgl64.Translate3D(t[0], t[1], t[2])
}

// RotationAbout returns the matrix rotating by angle (radians, right hand
// rule) about axis, with pivot as the fixed point. A zero angle yields the
// exact identity regardless of axis.
func RotationAbout(angle float64, axis, pivot mgl64.Vec3) mgl64.Mat4 {
	if angle == 0 {
		return mgl64.Ident4()
	}
	r := mgl64.HomogRotate3D(angle, axis.Normalize())
	return Translation(pivot).Mul4(r).Mul4(Translation(pivot.Mul(-1)))
}

// Fold multiplies ms left to right. The result of an empty fold is the
// identity matrix.
func Fold(ms ...mgl64.Mat4) mgl64.Mat4 {
	out := mgl64.Ident4()
	for _, m := range ms {
		out = out.Mul4(m)
	}
	return out
}

// FromRotation builds a homogeneous matrix from a 3x3 rotation and a
// translation.
func FromRotation(r mgl64.Mat3, t mgl64.Vec3) mgl64.Mat4 {
	m := r.Mat4()
	m.Set(0, 3, t[0])
	m.Set(1, 3, t[1])
	m.Set(2, 3, t[2])
	return m
}

// TranslationOf returns the translation column of m.
func TranslationOf(m mgl64.Mat4) mgl64.Vec3 {
	return mgl64.Vec3{m.At(0, 3), m.At(1, 3), m.At(2, 3)}
}

// IsRigid reports whether m is a proper rigid motion within tol: affine
// bottom row, orthonormal linear part and a determinant of +1.
func IsRigid(m mgl64.Mat4, tol float64) bool {
	row := m.Row(3)
	if math.Abs(row[0]) > tol || math.Abs(row[1]) > tol || math.Abs(row[2]) > tol || math.Abs(row[3]-1) > tol {
		return false
	}
	r := m.Mat3()
	rtr, id := r.Transpose().Mul3(r), mgl64.Ident3()
	if !near(rtr[:], id[:], tol) {
		return false
	}
	return math.Abs(r.Det()-1) <= tol
}

// Near reports whether a and b agree in every component within the
// absolute tolerance tol. mgl64's ApproxEqualThreshold is relative and
// degenerates to tol² next to an exact zero.
func Near(a, b mgl64.Vec3, tol float64) bool {
	return near(a[:], b[:], tol)
}

// NearMat is Near for matrices.
func NearMat(a, b mgl64.Mat4, tol float64) bool {
	return near(a[:], b[:], tol)
}

func near(a, b []float64, tol float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}
