//go:build !manifold

// Package manifold provides a CGo-based kernel.Modeler binding to the
// Manifold library. When the "manifold" build tag is not set, this stub
// package is compiled instead, returning an error from New().
//
// Build with: go build -tags=manifold
package manifold

import (
	"errors"

	"github.com/chazu/burl/pkg/kernel"
)

// ErrUnavailable is returned by New when the package was built without
// the manifold tag.
var ErrUnavailable = errors.New("manifold modeler not available: build with -tags=manifold")

// New returns ErrUnavailable. Build with -tags=manifold to enable.
func New() (kernel.Modeler, error) {
	return nil, ErrUnavailable
}
