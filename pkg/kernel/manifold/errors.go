package manifold

import "errors"

// ErrUnavailable is returned by New when the binary was built without the
// Manifold C library.
var ErrUnavailable = errors.New("manifold kernel not available")
