//go:build !manifold

// Package manifold binds the Manifold C library as a mate geometry kernel.
// Without the "manifold" build tag only this stub is compiled and New
// fails with ErrUnavailable; mate then falls back to the sdfx kernel or
// runs without geometry.
//
// Build with: go build -tags=manifold
package manifold

import (
	"fmt"

	"github.com/chazu/mate/pkg/kernel"
)

// New always fails in builds without the manifold tag.
func New() (kernel.Kernel, error) {
	return nil, fmt.Errorf("%w: build with -tags=manifold", ErrUnavailable)
}
