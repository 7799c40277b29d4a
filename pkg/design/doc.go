// Package design holds the model produced by evaluating a mate script:
// the parts and assemblies it defines, in definition order, plus the
// tiered validation run over them before meshing.
package design
