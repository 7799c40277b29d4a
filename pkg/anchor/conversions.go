package anchor

import "github.com/go-gl/mathgl/mgl64"

// Point4 lifts a point to homogeneous coordinates (w = 1) so that
// translations apply to it.
func Point4(p mgl64.Vec3) mgl64.Vec4 {
	return p.Vec4(1)
}

// Vector4 lifts a direction to homogeneous coordinates (w = 0) so that
// translations are ignored.
func Vector4(v mgl64.Vec3) mgl64.Vec4 {
	return v.Vec4(0)
}

// FromPoint4 drops the homogeneous coordinate of a transformed point.
func FromPoint4(p mgl64.Vec4) mgl64.Vec3 {
	return p.Vec3()
}

// FromVector4 drops the homogeneous coordinate of a transformed direction.
func FromVector4(v mgl64.Vec4) mgl64.Vec3 {
	return v.Vec3()
}

// TransformPoint applies m to p with point semantics.
func TransformPoint(m mgl64.Mat4, p mgl64.Vec3) mgl64.Vec3 {
	return FromPoint4(m.Mul4x1(Point4(p)))
}

// TransformVector applies m to v with vector semantics.
func TransformVector(m mgl64.Mat4, v mgl64.Vec3) mgl64.Vec3 {
	return FromVector4(m.Mul4x1(Vector4(v)))
}
