// Package align computes the rigid transform that mates one anchor onto
// another.
//
// The mating points of the moving anchor, {p, p+u, p+v}, are registered
// onto the receiving points of the target anchor, {p, p−u, p+v}. The
// registration is a general least-error rigid superimposition of N point
// correspondences (no scale, no shear), so three exact correspondences
// are only its simplest case.
//
// Three registration methods are provided and agree within floating point
// tolerance on well-posed input:
//
//   - MethodSVD: orthogonal decomposition of the cross-covariance (Kabsch)
//   - MethodQuaternion: Horn's closed-form unit quaternion
//   - MethodBasis: direct construction of an orthonormal basis per triple
//
// Strategies decide how a set of anchor pairs becomes a placement. Only
// SinglePair exists today; requests with more than one pair are rejected
// with ErrUnderconstrainedNotSupported.
package align
