// Package sdfx implements the kernel.Modeler interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"

	"github.com/chazu/burl/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Modeler = (*SdfxModeler)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution along the
// longest bounding box axis.
const DefaultMeshCells = 64

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxModeler implements kernel.Modeler using sdfx.
type SdfxModeler struct {
	meshCells int
}

// Option configures an SdfxModeler.
type Option func(*SdfxModeler)

// WithMeshCells sets the marching cubes resolution. Values below 1 are ignored.
func WithMeshCells(n int) Option {
	return func(m *SdfxModeler) {
		if n > 0 {
			m.meshCells = n
		}
	}
}

// New returns a new SdfxModeler.
func New(opts ...Option) *SdfxModeler {
	m := &SdfxModeler{meshCells: DefaultMeshCells}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Box creates a box centered at the origin, length along X, width along Y
// and height along Z.
func (m *SdfxModeler) Box(length, width, height float64) (kernel.Solid, error) {
	s, err := sdf.Box3D(v3.Vec{X: length, Y: width, Z: height}, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Box3D: %w", err)
	}
	return wrap(s), nil
}

// Cylinder creates a Z-axis cylinder centered at the origin.
// The segments parameter is ignored since SDF represents smooth surfaces.
func (m *SdfxModeler) Cylinder(radius, height float64, segments int) (kernel.Solid, error) {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Cylinder3D: %w", err)
	}
	return wrap(s), nil
}

// Sphere creates a sphere centered at the origin. segments is ignored.
func (m *SdfxModeler) Sphere(radius float64, segments int) (kernel.Solid, error) {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Sphere3D: %w", err)
	}
	return wrap(s), nil
}

// Place rotates the solid about the origin, then translates it.
func (m *SdfxModeler) Place(s kernel.Solid, p kernel.Placement) kernel.Solid {
	if p.IsIdentity() {
		return s
	}
	xRad, yRad, zRad := p.Orientation.Euler()

	rot := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	mv := sdf.Translate3d(v3.Vec{X: p.Position.X, Y: p.Position.Y, Z: p.Position.Z})
	return wrap(sdf.Transform3D(unwrap(s), mv.Mul(rot)))
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
// Each triangle gets its own three vertices carrying the face normal.
func (m *SdfxModeler) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	sdf3 := unwrap(s)

	renderer := render.NewMarchingCubesUniform(m.meshCells)
	triangles := render.ToTriangles(sdf3, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
