// Package export writes evaluated designs to files: triangle meshes as
// binary STL or JSON, and the attachment structure as a Graphviz graph.
package export
