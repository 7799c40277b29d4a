// Package anchor defines anchors: named local mating frames placed on part
// surfaces. An anchor is an origin point p and two orthogonal axes u and v;
// u normally points out of the part and v is tangential to its surface.
// The third axis w = u × v is always derived, never stored.
//
// Anchors are values. Transform returns a new anchor and never mutates the
// receiver, so anchors can be shared freely between parts and assemblies.
package anchor
